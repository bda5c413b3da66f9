package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyCatalog signals that no row survived validation. It is a clean
	// stop, not a fault: the query simply matched nothing usable.
	ErrEmptyCatalog = errors.New("catalog contains no valid earthquake records")

	// ErrRunInProgress is returned when a run is requested while another is in flight.
	ErrRunInProgress = errors.New("a catalog run is already in progress")
)

// InvalidSpecError reports an incomplete or inconsistent query. It is raised
// before any network or file activity.
type InvalidSpecError struct {
	Field  string
	Reason string
}

func (e *InvalidSpecError) Error() string {
	return fmt.Sprintf("invalid query: %s: %s", e.Field, e.Reason)
}

// NetworkErrorKind classifies a failed download.
type NetworkErrorKind int

const (
	NetworkHTTP NetworkErrorKind = iota + 1
	NetworkConnectivity
	NetworkOther
)

func (k NetworkErrorKind) String() string {
	switch k {
	case NetworkHTTP:
		return "http"
	case NetworkConnectivity:
		return "connectivity"
	default:
		return "other"
	}
}

// NetworkError is a download failure that survived the retry.
type NetworkError struct {
	Kind       NetworkErrorKind
	URL        string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.Kind == NetworkHTTP {
		return fmt.Sprintf("download %s: http status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("download %s: %s: %v", e.URL, e.Kind, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// UserMessage is the operator-facing explanation for the failure kind.
func (e *NetworkError) UserMessage() string {
	switch e.Kind {
	case NetworkHTTP:
		return fmt.Sprintf("The USGS service rejected the request (HTTP %d). Check the selected timespan and magnitude, or try again later.", e.StatusCode)
	case NetworkConnectivity:
		return "Could not reach the USGS service. Check the network connection and try again."
	default:
		return "The earthquake catalog could not be downloaded."
	}
}

// IOError is a local file-system failure while reading, writing or merging catalog files.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}
