package gibs

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/airbusgeo/modis/internal/utils"
)

// ConnectionError is returned when no response was received from the service
type ConnectionError struct {
	URL string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("request %s: %v", e.URL, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// Temporary returns true if the underlying error is transient
func (e *ConnectionError) Temporary() bool {
	return utils.Temporary(e.Err)
}

// StatusError is returned when the service answered with a non-success status
type StatusError struct {
	URL        string
	StatusCode int
	// Body is the beginning of the response body
	Body string
}

func (e *StatusError) Error() string {
	s := fmt.Sprintf("request %s: %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
	if e.Body != "" {
		s += ": " + e.Body
	}
	return s
}

// Temporary returns true for 429 and 5xx statuses
func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || (e.StatusCode >= 500 && e.StatusCode < 600)
}

// WriteError is returned when the response was received but could not be written to its destination
type WriteError struct {
	URL string
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write response of %s: %v", e.URL, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// IsStatusError returns true if err is (or wraps) a StatusError
func IsStatusError(err error) bool {
	var serr *StatusError
	return errors.As(err, &serr)
}

// IsConnectionError returns true if err is (or wraps) a ConnectionError
func IsConnectionError(err error) bool {
	var cerr *ConnectionError
	return errors.As(err, &cerr)
}

// IsWriteError returns true if err is (or wraps) a WriteError
func IsWriteError(err error) bool {
	var werr *WriteError
	return errors.As(err, &werr)
}
