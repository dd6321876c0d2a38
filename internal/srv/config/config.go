package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const paramFilename = "param.yaml"

type ServerConfig struct {
	ConfigDir      string
	DebugMode      bool
	SimulationMode bool

	*ServerParam

	// AwsEndpoint is derived from the param file when the AWS source is
	// selected, nil otherwise.
	AwsEndpoint *AwsEndpoint
}

func NewServerConfig(configDir string, debugMode bool, simulationMode bool) *ServerConfig {
	serverConfig := &ServerConfig{
		ConfigDir:      configDir,
		DebugMode:      debugMode,
		SimulationMode: simulationMode,
	}

	// Check Configuration folder
	_, err := os.Stat(configDir)
	if err != nil {
		if os.IsNotExist(err) {
			logrus.Printf("Creation of config folder: %s", configDir)
			err = os.Mkdir(configDir, 0770)
			if err != nil {
				logrus.Fatalf("Unable to create config folder: %v\n", err)
			}
		} else {
			logrus.Fatalf("Unable to access config folder: %s", configDir)
		}
	}

	// Open param file
	rawConfig, err := os.ReadFile(serverConfig.GetCompleteParamFilename())
	if err == nil {
		// Interpret param file
		serverConfig.ServerParam = &ServerParam{}
		err = yaml.Unmarshal(rawConfig, serverConfig.ServerParam)
		if err != nil {
			logrus.Fatalf("Unable to interpret config file: %v\n", err)
		}
	} else {
		// Create default param file
		logrus.Infof("Create default param file")
		serverConfig.ServerParam = &ServerParam{}

		err = yaml.Unmarshal(ParamDefaultFile, serverConfig.ServerParam)
		if err != nil {
			logrus.Fatalf("Unable to interpret config file: %v\n", err)
		}

		serverConfig.SaveParam()
	}

	if err = serverConfig.validate(); err != nil {
		logrus.Fatalf("Invalid configuration: %v\n", err)
	}

	return serverConfig
}

// validate checks the loaded param file and derives the AWS endpoint. It
// returns a *Error on any defect so configuration mistakes surface at
// startup instead of as retried fetch failures.
func (sc *ServerConfig) validate() error {
	if sc.StationCode == "" {
		return &Error{Field: "station_code", Reason: "is required"}
	}

	for i, surfaceParam := range sc.SurfaceParams {
		if surfaceParam.Platform == "" {
			return &Error{Field: "surfaces", Reason: fmt.Sprintf("platform is required for surface %d", i+1)}
		}
	}

	if sc.RefreshParam.BaseIntervalSecs <= 0 ||
		sc.RefreshParam.RetryBaseSecs <= 0 ||
		sc.RefreshParam.RetryCapSecs < sc.RefreshParam.RetryBaseSecs {
		return &Error{Field: "refresh", Reason: "intervals must be positive and retry cap must not be below retry base"}
	}

	if sc.OfflineMode {
		return nil
	}

	switch sc.RailApiParam.Source {
	case "raildataorg":
		ldbParam := sc.RailApiParam.RailDataOrgParam
		if ldbParam == nil || ldbParam.BaseURL == "" {
			return &Error{Field: "rail_api.raildataorg.base_url", Reason: "is required"}
		}
		// A bad URL must fail here, not as endlessly retried fetches.
		parsed, err := url.ParseRequestURI(ldbParam.BaseURL)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			return &Error{Field: "rail_api.raildataorg.base_url", Reason: fmt.Sprintf("invalid URL: %s", ldbParam.BaseURL)}
		}
		if sc.RailApiParam.ApiKey == "" {
			return &Error{Field: "rail_api.api_key", Reason: "is required"}
		}
	case "aws":
		awsParam := sc.RailApiParam.AwsParam
		if awsParam == nil || awsParam.URL == "" {
			return &Error{Field: "rail_api.aws.url", Reason: "is required"}
		}
		if awsParam.AccessKey == "" || awsParam.SecretKey == "" {
			return &Error{Field: "rail_api.aws", Reason: "access_key and secret_key are required"}
		}
		endpoint, err := ParseAwsURL(awsParam.URL)
		if err != nil {
			return err
		}
		sc.AwsEndpoint = endpoint
	default:
		return &Error{Field: "rail_api.source", Reason: "must be raildataorg or aws"}
	}

	return nil
}

func (sc *ServerConfig) GetCompleteParamFilename() string {
	return filepath.Join(sc.ConfigDir, paramFilename)
}

func (sc *ServerConfig) SaveParam() {
	logrus.Debugf("Save param file: %s", sc.GetCompleteParamFilename())
	rawConfig, err := yaml.Marshal(*sc.ServerParam)
	if err != nil {
		logrus.Fatalf("Unable to serialize param file: %v\n", err)
	}
	err = os.WriteFile(sc.GetCompleteParamFilename(), rawConfig, 0660)
	if err != nil {
		logrus.Fatalf("Unable to save param file: %v\n", err)
	}
}
