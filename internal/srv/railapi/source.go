package railapi

import (
	"context"
	"fmt"
	"time"

	"github.com/Pharkie/picow-railway-departure/internal/srv/config"
	"github.com/Pharkie/picow-railway-departure/internal/srv/sigv4"
)

// Source produces one raw departure-board JSON document per call. It does
// not touch the snapshot or the retry state; that is the engine's job.
type Source interface {
	Fetch(ctx context.Context) ([]byte, error)
}

const fetchTimeout = 10 * time.Second

// NewSource builds the source selected by the param file: the offline file
// reader, or a live HTTP source for the raildata.org or AWS API.
func NewSource(serverConfig *config.ServerConfig) (Source, error) {
	if serverConfig.OfflineMode {
		return NewOfflineSource(serverConfig.OfflineJSONFile), nil
	}

	switch serverConfig.RailApiParam.Source {
	case "raildataorg":
		return NewRailDataOrgSource(serverConfig), nil
	case "aws":
		return NewAwsSource(serverConfig)
	default:
		return nil, &config.Error{Field: "rail_api.source", Reason: "must be raildataorg or aws"}
	}
}

// NewRailDataOrgSource targets the LDBWS live departure board endpoint with
// flat x-apikey auth.
func NewRailDataOrgSource(serverConfig *config.ServerConfig) *LiveSource {
	railParam := serverConfig.RailApiParam
	url := fmt.Sprintf("%s/%s?numRows=%d",
		railParam.RailDataOrgParam.BaseURL,
		serverConfig.StationCode,
		railParam.RailDataOrgParam.NumRows)

	apiKey := railParam.ApiKey
	return newLiveSource(url, func(time.Time) (map[string]string, error) {
		return map[string]string{"x-apikey": apiKey}, nil
	})
}

// NewAwsSource targets the AWS API Gateway intermediary and signs every
// request with SigV4. The x-apikey header rides along, matching what the
// gateway expects.
func NewAwsSource(serverConfig *config.ServerConfig) (*LiveSource, error) {
	endpoint := serverConfig.AwsEndpoint
	if endpoint == nil {
		return nil, &config.Error{Field: "rail_api.aws.url", Reason: "is required"}
	}

	creds := sigv4.Credentials{
		AccessKey: serverConfig.RailApiParam.AwsParam.AccessKey,
		SecretKey: serverConfig.RailApiParam.AwsParam.SecretKey,
	}
	spec := sigv4.RequestSpec{
		Host:        endpoint.Host,
		URI:         endpoint.URI,
		Region:      endpoint.Region,
		Service:     endpoint.Service,
		Method:      "GET",
		QueryString: endpoint.QueryString,
	}
	apiKey := serverConfig.RailApiParam.ApiKey

	return newLiveSource(endpoint.URL, func(now time.Time) (map[string]string, error) {
		headers, err := sigv4.SignedHeaders(creds, spec, sigv4.NewCanonicalTimestamp(now))
		if err != nil {
			return nil, err
		}
		headers["x-apikey"] = apiKey
		return headers, nil
	}), nil
}
