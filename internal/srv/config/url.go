package config

import (
	"fmt"
	"regexp"
	"strings"
)

// Error reports a malformed configuration value. Configuration defects are
// fatal at startup and never retried.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

var urlPattern = regexp.MustCompile(`^(https?)://([^/]+)(/[^?]*)(\?(.*))?$`)

// AwsEndpoint is the AWS API Gateway URL split into the parts SigV4 signing
// needs. Region and service are derived from the host the way API Gateway
// names them: <id>.<service>.<region>.amazonaws.com.
type AwsEndpoint struct {
	URL         string
	Host        string
	URI         string
	QueryString string
	Region      string
	Service     string
}

// ParseAwsURL splits a full API Gateway URL into an AwsEndpoint.
func ParseAwsURL(rawURL string) (*AwsEndpoint, error) {
	match := urlPattern.FindStringSubmatch(rawURL)
	if match == nil {
		return nil, &Error{Field: "rail_api.aws.url", Reason: fmt.Sprintf("invalid URL: %s", rawURL)}
	}

	endpoint := &AwsEndpoint{
		URL:         rawURL,
		Host:        match[2],
		URI:         match[3],
		QueryString: match[5],
	}

	hostParts := strings.Split(endpoint.Host, ".")
	if len(hostParts) < 3 {
		return nil, &Error{Field: "rail_api.aws.url", Reason: fmt.Sprintf("host too short to derive region and service: %s", endpoint.Host)}
	}
	endpoint.Service = hostParts[1]
	endpoint.Region = hostParts[2]

	return endpoint, nil
}
