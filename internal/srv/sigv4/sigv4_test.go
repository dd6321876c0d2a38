package sigv4

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Hex SHA-256 of the empty string, the payload hash of every GET request.
const emptyPayloadHash = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

var testCreds = Credentials{
	AccessKey: "AKIDEXAMPLE",
	SecretKey: "wJalrXUtnFEMI/K7MDENG+bPxRfiCYEXAMPLEKEY",
}

var testSpec = RequestSpec{
	Host:        "kmm1ogta93.execute-api.eu-west-2.amazonaws.com",
	URI:         "/prod/PMW",
	Region:      "eu-west-2",
	Service:     "execute-api",
	Method:      "GET",
	QueryString: "platforms=1,2",
}

var testTimestamp = CanonicalTimestamp{
	DateStamp: "20240115",
	AmzDate:   "20240115T093045Z",
}

func TestNewCanonicalTimestamp(t *testing.T) {
	// The two formats must come from the same instant, in UTC.
	instant := time.Date(2024, 1, 15, 10, 30, 45, 0, time.FixedZone("CET", 3600))
	ts := NewCanonicalTimestamp(instant)

	assert.Equal(t, "20240115", ts.DateStamp)
	assert.Equal(t, "20240115T093045Z", ts.AmzDate)
	assert.True(t, strings.HasPrefix(ts.AmzDate, ts.DateStamp))
}

func TestSignedHeadersDeterministic(t *testing.T) {
	first, err := SignedHeaders(testCreds, testSpec, testTimestamp)
	require.NoError(t, err)
	second, err := SignedHeaders(testCreds, testSpec, testTimestamp)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestSignedHeadersShape(t *testing.T) {
	headers, err := SignedHeaders(testCreds, testSpec, testTimestamp)
	require.NoError(t, err)

	assert.Equal(t, testTimestamp.AmzDate, headers["x-amz-date"])

	authorization := headers["Authorization"]
	assert.True(t, strings.HasPrefix(authorization,
		"AWS4-HMAC-SHA256 Credential=AKIDEXAMPLE/20240115/eu-west-2/execute-api/aws4_request, "))
	assert.Contains(t, authorization, "SignedHeaders=host;x-amz-date")

	_, signature, found := strings.Cut(authorization, "Signature=")
	require.True(t, found)
	assert.Len(t, signature, 64)
	assert.Equal(t, strings.ToLower(signature), signature)
}

func TestCanonicalRequestLayout(t *testing.T) {
	request := canonicalRequest(testSpec, testTimestamp)

	lines := strings.Split(request, "\n")
	require.Len(t, lines, 8)
	assert.Equal(t, "GET", lines[0])
	assert.Equal(t, "/prod/PMW", lines[1])
	assert.Equal(t, "platforms=1,2", lines[2])
	assert.Equal(t, "host:kmm1ogta93.execute-api.eu-west-2.amazonaws.com", lines[3])
	assert.Equal(t, "x-amz-date:20240115T093045Z", lines[4])
	// Trailing newline after the canonical headers leaves an empty field.
	assert.Equal(t, "", lines[5])
	assert.Equal(t, "host;x-amz-date", lines[6])
	assert.Equal(t, emptyPayloadHash, lines[7])
}

func TestSignatureChangesWithAnyInput(t *testing.T) {
	reference, err := SignedHeaders(testCreds, testSpec, testTimestamp)
	require.NoError(t, err)

	mutations := map[string]func() (map[string]string, error){
		"payload byte": func() (map[string]string, error) {
			spec := testSpec
			spec.Payload = []byte("x")
			return SignedHeaders(testCreds, spec, testTimestamp)
		},
		"query string": func() (map[string]string, error) {
			spec := testSpec
			spec.QueryString = "platforms=1,3"
			return SignedHeaders(testCreds, spec, testTimestamp)
		},
		"uri": func() (map[string]string, error) {
			spec := testSpec
			spec.URI = "/prod/PAD"
			return SignedHeaders(testCreds, spec, testTimestamp)
		},
		"host": func() (map[string]string, error) {
			spec := testSpec
			spec.Host = "other.execute-api.eu-west-2.amazonaws.com"
			return SignedHeaders(testCreds, spec, testTimestamp)
		},
		"timestamp": func() (map[string]string, error) {
			ts := testTimestamp
			ts.AmzDate = "20240115T093046Z"
			return SignedHeaders(testCreds, testSpec, ts)
		},
		"secret key": func() (map[string]string, error) {
			creds := testCreds
			creds.SecretKey = creds.SecretKey + "0"
			return SignedHeaders(creds, testSpec, testTimestamp)
		},
	}

	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			mutated, err := mutate()
			require.NoError(t, err)
			assert.NotEqual(t, reference["Authorization"], mutated["Authorization"])
		})
	}
}

func TestSignedHeadersRejectsIncompleteInput(t *testing.T) {
	tests := []struct {
		name  string
		creds Credentials
		spec  RequestSpec
		ts    CanonicalTimestamp
	}{
		{"no access key", Credentials{SecretKey: "s"}, testSpec, testTimestamp},
		{"no secret key", Credentials{AccessKey: "a"}, testSpec, testTimestamp},
		{"no host", testCreds, RequestSpec{Method: "GET", Region: "r", Service: "s"}, testTimestamp},
		{"no method", testCreds, RequestSpec{Host: "h", Region: "r", Service: "s"}, testTimestamp},
		{"no region", testCreds, RequestSpec{Host: "h", Method: "GET", Service: "s"}, testTimestamp},
		{"no timestamp", testCreds, testSpec, CanonicalTimestamp{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SignedHeaders(tt.creds, tt.spec, tt.ts)
			var specErr *InvalidSpecError
			assert.ErrorAs(t, err, &specErr)
		})
	}
}
