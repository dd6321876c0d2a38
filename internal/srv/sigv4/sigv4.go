package sigv4

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

const algorithm = "AWS4-HMAC-SHA256"

// Credentials holds the AWS keys used to sign requests. Values are loaded
// once from the param file and must never be logged.
type Credentials struct {
	AccessKey string
	SecretKey string
}

// RequestSpec describes one request to sign. It is built fresh per call and
// carries no state of its own.
type RequestSpec struct {
	Host        string
	URI         string
	Region      string
	Service     string
	Method      string
	QueryString string
	Payload     []byte
}

// CanonicalTimestamp is the pair of date formats SigV4 needs. Both values
// come from a single clock read so the canonical request and the credential
// scope can never disagree within one signing operation.
type CanonicalTimestamp struct {
	DateStamp string // YYYYMMDD
	AmzDate   string // YYYYMMDDThhmmssZ
}

func NewCanonicalTimestamp(now time.Time) CanonicalTimestamp {
	utc := now.UTC()
	return CanonicalTimestamp{
		DateStamp: utc.Format("20060102"),
		AmzDate:   utc.Format("20060102T150405Z"),
	}
}

// InvalidSpecError reports a request spec or credentials that cannot produce
// a valid signature. It indicates a configuration defect and is never
// retried.
type InvalidSpecError struct {
	Field string
}

func (e *InvalidSpecError) Error() string {
	return fmt.Sprintf("sigv4: missing or invalid %s", e.Field)
}

// SignedHeaders produces the x-amz-date and Authorization headers for the
// given spec. Identical inputs always produce identical signatures.
func SignedHeaders(creds Credentials, spec RequestSpec, ts CanonicalTimestamp) (map[string]string, error) {
	switch {
	case creds.AccessKey == "":
		return nil, &InvalidSpecError{Field: "access key"}
	case creds.SecretKey == "":
		return nil, &InvalidSpecError{Field: "secret key"}
	case spec.Host == "":
		return nil, &InvalidSpecError{Field: "host"}
	case spec.Method == "":
		return nil, &InvalidSpecError{Field: "http method"}
	case spec.Region == "":
		return nil, &InvalidSpecError{Field: "region"}
	case spec.Service == "":
		return nil, &InvalidSpecError{Field: "service"}
	case ts.DateStamp == "" || ts.AmzDate == "":
		return nil, &InvalidSpecError{Field: "timestamp"}
	}

	credentialScope := ts.DateStamp + "/" + spec.Region + "/" + spec.Service + "/aws4_request"

	stringToSign := algorithm + "\n" +
		ts.AmzDate + "\n" +
		credentialScope + "\n" +
		hexSHA256([]byte(canonicalRequest(spec, ts)))

	signingKey := signatureKey(creds.SecretKey, ts.DateStamp, spec.Region, spec.Service)
	signature := hex.EncodeToString(hmacSHA256(signingKey, stringToSign))

	authorization := algorithm +
		" Credential=" + creds.AccessKey + "/" + credentialScope +
		", SignedHeaders=" + signedHeaderNames +
		", Signature=" + signature

	return map[string]string{
		"x-amz-date":    ts.AmzDate,
		"Authorization": authorization,
	}, nil
}

// The only headers signed are host and x-amz-date, lower-cased and sorted.
const signedHeaderNames = "host;x-amz-date"

func canonicalRequest(spec RequestSpec, ts CanonicalTimestamp) string {
	canonicalHeaders := "host:" + spec.Host + "\n" + "x-amz-date:" + ts.AmzDate + "\n"

	return spec.Method + "\n" +
		spec.URI + "\n" +
		spec.QueryString + "\n" +
		canonicalHeaders + "\n" +
		signedHeaderNames + "\n" +
		hexSHA256(spec.Payload)
}

// signatureKey derives the signing key by chaining HMAC-SHA256 over the date,
// region, service and the fixed aws4_request terminator.
func signatureKey(secretKey, dateStamp, region, service string) []byte {
	kDate := hmacSHA256([]byte("AWS4"+secretKey), dateStamp)
	kRegion := hmacSHA256(kDate, region)
	kService := hmacSHA256(kRegion, service)
	return hmacSHA256(kService, "aws4_request")
}

func hmacSHA256(key []byte, msg string) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(msg))
	return mac.Sum(nil)
}

func hexSHA256(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
