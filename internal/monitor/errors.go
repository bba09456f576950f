package monitor

import (
	"errors"
	"fmt"
)

// ErrNoMonitor is returned by Attribute.Call when the call site has no
// monitor in its user-data slot (it was never compiled, or compilation
// failed before a monitor was created).
var ErrNoMonitor = errors.New("no monitor registered for call site")

// SetupError reports a malformed use of the attribute function detected at
// registration time.
//
// Setup errors are fatal to elaboration: the host is expected to abort. The
// monitor only reports them; it never terminates the process itself.
type SetupError struct {
	// Code identifies the error category.
	Code SetupErrorCode

	// Name is the attribute function name as seen by the host.
	Name string

	// Site is the offending call site.
	Site CallSite

	// Args is the number of arguments that were supplied.
	Args int
}

// SetupErrorCode categorizes setup errors.
type SetupErrorCode string

const (
	// ErrCodeMissingArgument indicates the call had no argument.
	ErrCodeMissingArgument SetupErrorCode = "MISSING_ARGUMENT"

	// ErrCodeExtraArguments indicates the call had more than one argument.
	// The first argument is still monitored.
	ErrCodeExtraArguments SetupErrorCode = "EXTRA_ARGUMENTS"
)

// Error implements the error interface using the host's diagnostic layout.
func (e *SetupError) Error() string {
	switch e.Code {
	case ErrCodeMissingArgument:
		return fmt.Sprintf("%s: (compiler error) %s requires a single argument.", e.Site, e.Name)
	case ErrCodeExtraArguments:
		return fmt.Sprintf("%s: (compiler error) %s only takes a single argument.", e.Site, e.Name)
	}
	return fmt.Sprintf("%s: %s: %s", e.Site, e.Code, e.Name)
}

// Fatal reports whether the host should abort elaboration. Every setup
// error is fatal.
func (e *SetupError) Fatal() bool {
	return true
}

// IsSetupError returns true if err is, or wraps, a *SetupError.
func IsSetupError(err error) bool {
	var se *SetupError
	return errors.As(err, &se)
}

// IsMissingArgument returns true if err is a setup error for a call with no
// argument.
func IsMissingArgument(err error) bool {
	var se *SetupError
	if errors.As(err, &se) {
		return se.Code == ErrCodeMissingArgument
	}
	return false
}

// IsExtraArguments returns true if err is a setup error for a call with more
// than one argument.
func IsExtraArguments(err error) bool {
	var se *SetupError
	if errors.As(err, &se) {
		return se.Code == ErrCodeExtraArguments
	}
	return false
}
