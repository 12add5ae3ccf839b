// Package errs defines unnix's structured error kinds and the
// exit-code policy used to translate them at the command entry point.
package errs

import (
	"errors"
	"fmt"
)

// Exit codes for scripting integration.
const (
	// ExitSuccess indicates the command completed without error.
	ExitSuccess = 0
	// ExitFailure indicates a resolution, protocol, or I/O error.
	ExitFailure = 1
	// ExitConfigError indicates a manifest or lockfile parse/validation error.
	ExitConfigError = 2
)

// ExitError represents a command termination with a specific exit
// code, carrying optional context about what went wrong.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit code %d", e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }

// NewExitError wraps err as an ExitError with the given code.
func NewExitError(code int, err error) *ExitError {
	return &ExitError{Code: code, Err: err}
}

// NewExitErrorf builds an ExitError from a formatted message.
func NewExitErrorf(code int, format string, args ...interface{}) *ExitError {
	return &ExitError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// GetExitCode extracts the exit code a command should return for err.
// nil maps to ExitSuccess; a non-ExitError maps to ExitFailure.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// Kind distinguishes the broad category of a failure for logging and
// diagnostics, independent of the exit code it maps to.
type Kind string

const (
	KindParse         Kind = "parse"
	KindIO            Kind = "io"
	KindProtocol      Kind = "protocol"
	KindResolution    Kind = "resolution"
	KindConfiguration Kind = "configuration"
)

// ParseError reports a manifest or lockfile parse failure with source
// location, the Go analogue of the original implementation's
// span-carrying diagnostics.
type ParseError struct {
	Path    string
	Line    int
	Column  int
	Excerpt string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return e.Err.Error()
	}
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %v", e.Path, e.Line, e.Column, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// NotFoundError reports a narinfo or package that no configured
// source/cache could resolve.
type NotFoundError struct {
	What string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("not found: %s", e.What) }

// ProtocolError reports an unexpected response from a binary cache or
// build-farm endpoint (a non-404 HTTP error, a malformed JSON body).
type ProtocolError struct {
	URL string
	Err error
}

func (e *ProtocolError) Error() string { return fmt.Sprintf("%s: %v", e.URL, e.Err) }
func (e *ProtocolError) Unwrap() error { return e.Err }

// ConfigError reports an invalid or missing piece of local
// configuration: a malformed manifest, a missing external binary.
type ConfigError struct {
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}
func (e *ConfigError) Unwrap() error { return e.Err }
