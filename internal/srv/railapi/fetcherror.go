package railapi

import "fmt"

type FetchErrorKind int

const (
	// FetchNetwork covers timeouts, connection failures and unreadable
	// resources.
	FetchNetwork FetchErrorKind = iota
	// FetchProtocol covers non-2xx HTTP statuses.
	FetchProtocol
	// FetchParse covers bodies that are not a valid board document.
	FetchParse
)

func (k FetchErrorKind) String() string {
	switch k {
	case FetchNetwork:
		return "network"
	case FetchProtocol:
		return "protocol"
	case FetchParse:
		return "parse"
	default:
		return "unknown"
	}
}

// FetchError is the retryable failure of one fetch attempt. It never
// propagates to the display layer; the engine backs off and keeps the last
// good snapshot.
type FetchError struct {
	Kind FetchErrorKind
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch failed (%s): %v", e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func NewFetchError(kind FetchErrorKind, err error) *FetchError {
	return &FetchError{Kind: kind, Err: err}
}
