package modis

import (
	"errors"
	"fmt"
)

type ErrorCode int

const (
	UnexpectedError ErrorCode = iota
	InputParametersError
	APIConnectionError
	QuicklookError
)

// Exit codes of the pipeline step
const (
	ExitCodeError           = 1
	ExitCodeInputParameters = 2
	ExitCodeAPIConnection   = 5
)

type FetchError struct {
	code    ErrorCode
	desc    string
	details []string
	// number of details that are invalid layer names (the rest are geometries)
	nbNames int
	cause   error
}

// NewInputParametersError creates a new error stating that the query cannot be processed
func NewInputParametersError(desc string, a ...interface{}) error {
	return FetchError{code: InputParametersError, desc: fmt.Sprintf(desc, a...)}
}

// NewInvalidLayersError creates an input parameters error listing the requested layers
// that are unknown and the extents (as WKT) of the layers that do not cover the query.
func NewInvalidLayersError(invalidNames, invalidGeometries []string) error {
	details := append(append([]string{}, invalidNames...), invalidGeometries...)
	return FetchError{
		code:    InputParametersError,
		desc:    fmt.Sprintf("invalid layers: %q have invalid names, %q are layer bounds, search should be within this", invalidNames, invalidGeometries),
		details: details,
		nbNames: len(invalidNames),
	}
}

// NewAPIConnectionError creates a new error stating that the imagery service could not be reached
func NewAPIConnectionError(cause error, desc string, a ...interface{}) error {
	return FetchError{code: APIConnectionError, desc: fmt.Sprintf(desc, a...), cause: cause}
}

// NewQuicklookError creates a new error stating that a quicklook could not be retrieved
func NewQuicklookError(cause error, desc string, a ...interface{}) error {
	return FetchError{code: QuicklookError, desc: fmt.Sprintf(desc, a...), cause: cause}
}

// NewUnexpectedError creates a new error for failures that are neither input nor connection related
func NewUnexpectedError(cause error, desc string, a ...interface{}) error {
	return FetchError{code: UnexpectedError, desc: fmt.Sprintf(desc, a...), cause: cause}
}

// Error implements error
func (e FetchError) Error() string {
	s := e.code.String() + ": " + e.desc
	if e.cause != nil {
		s += ": " + e.cause.Error()
	}
	return s
}

// Unwrap returns the underlying error, if any
func (e FetchError) Unwrap() error {
	return e.cause
}

// Desc returns a description of the error
func (e FetchError) Desc() string {
	return e.desc
}

// Code returns the code of the error
func (e FetchError) Code() ErrorCode {
	return e.code
}

// Details returns all the details of the error
func (e FetchError) Details() []string {
	return e.details
}

// InvalidNames returns the unknown layer names of an error created by NewInvalidLayersError
func (e FetchError) InvalidNames() []string {
	return e.details[:e.nbNames]
}

// InvalidGeometries returns the layer extents of an error created by NewInvalidLayersError
func (e FetchError) InvalidGeometries() []string {
	return e.details[e.nbNames:]
}

// ExitCode returns the process exit code associated to the kind of error
func (e FetchError) ExitCode() int {
	switch e.code {
	case InputParametersError:
		return ExitCodeInputParameters
	case APIConnectionError:
		return ExitCodeAPIConnection
	}
	return ExitCodeError
}

func (c ErrorCode) String() string {
	switch c {
	case InputParametersError:
		return "InputParametersError"
	case APIConnectionError:
		return "APIConnectionError"
	case QuicklookError:
		return "QuicklookError"
	}
	return "UnexpectedError"
}

// IsError tests whether error is a FetchError
func IsError(err error, code ErrorCode) bool {
	var ferr FetchError
	return errors.As(err, &ferr) && ferr.Code() == code
}

// AsError tests whether error is a FetchError and returns it
func AsError(err error, code ErrorCode) (FetchError, bool) {
	var ferr FetchError
	return ferr, errors.As(err, &ferr) && ferr.Code() == code
}

// ExitCode returns the exit code of any error (ExitCodeError if it is not a FetchError)
func ExitCode(err error) int {
	var ferr FetchError
	if errors.As(err, &ferr) {
		return ferr.ExitCode()
	}
	return ExitCodeError
}
