package config

import (
	_ "embed"
)

//go:embed param_default.yaml
var ParamDefaultFile []byte

type ServerParam struct {
	StationCode     string          `yaml:"station_code"`
	OfflineMode     bool            `yaml:"offline_mode"`
	OfflineJSONFile string          `yaml:"offline_json_file,omitempty"`
	AlertOverride   string          `yaml:"alert_override,omitempty"`
	RefreshParam    RefreshParam    `yaml:"refresh"`
	SurfaceParams   []*SurfaceParam `yaml:"surfaces"`
	RailApiParam    RailApiParam    `yaml:"rail_api"`
	ApiParam        ApiParam        `yaml:"api"`
}

// SurfaceParam binds one OLED screen to the platform whose departures it
// shows. Zero to N surfaces may be configured.
type SurfaceParam struct {
	I2CBus   string `yaml:"i2c_bus"`
	Platform string `yaml:"platform"`
}

type RefreshParam struct {
	BaseIntervalSecs       int64 `yaml:"base_interval_secs"`
	RetryBaseSecs          int64 `yaml:"retry_base_secs"`
	RetryCapSecs           int64 `yaml:"retry_cap_secs"`
	FailureBannerThreshold int   `yaml:"failure_banner_threshold"`
}

// RailApiParam selects the departure-board API. Source is either
// "raildataorg" (flat x-apikey auth) or "aws" (SigV4-signed API Gateway).
type RailApiParam struct {
	Source           string    `yaml:"source"`
	ApiKey           string    `yaml:"api_key"`
	RailDataOrgParam *LdbParam `yaml:"raildataorg,omitempty"`
	AwsParam         *AwsParam `yaml:"aws,omitempty"`
}

type LdbParam struct {
	BaseURL string `yaml:"base_url"`
	NumRows int64  `yaml:"num_rows"`
}

type AwsParam struct {
	URL       string `yaml:"url"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

type ApiParam struct {
	Enabled bool   `yaml:"enabled"`
	SslPort int64  `yaml:"ssl_port"`
	ApiKey  string `yaml:"api_key"`
}
