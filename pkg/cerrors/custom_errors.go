package cerrors

import (
	"errors"
	"fmt"

	"github.com/palantir/stacktrace"
)

// Validation rejects a malformed flag update. The offending value is never
// persisted.
type Validation struct {
	Field  string
	Reason string
}

func (e Validation) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid feature flag: %s", e.Reason)
	}
	return fmt.Sprintf("invalid feature flag: field '%s' %s", e.Field, e.Reason)
}

func (e Validation) UserFriendly() bool {
	return true
}

func (e Validation) ErrorType() ErrorType {
	return ErrorTypeValidation
}

// FlagNotFound indicates a lookup for a flag outside the catalog.
type FlagNotFound struct {
	Name string
}

func (e FlagNotFound) Error() string {
	return fmt.Sprintf("feature flag '%s' not found", e.Name)
}

func (e FlagNotFound) UserFriendly() bool {
	return true
}

func (e FlagNotFound) ErrorType() ErrorType {
	return ErrorTypeFlagNotFound
}

// Simulated is a deliberately injected failure. It is surfaced with a
// distinguishing code so dashboards can separate injected faults from
// genuine bugs.
type Simulated struct {
	Reason string
}

func (e Simulated) Error() string {
	return e.Reason
}

func (e Simulated) UserFriendly() bool {
	return true
}

func (e Simulated) ErrorType() ErrorType {
	return ErrorTypeSimulated
}

// Store indicates a failure in the durable flag store, including decode
// failures on read (store corruption is propagated, never swallowed).
type Store struct {
	Operation string
	Key       string
	Reason    string
}

func (e Store) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("failed to %s flags: %s", e.Operation, e.Reason)
	}
	return fmt.Sprintf("failed to %s flag '%s': %s", e.Operation, e.Key, e.Reason)
}

func (e Store) UserFriendly() bool {
	return true
}

func (e Store) ErrorType() ErrorType {
	return ErrorTypeStore
}

// IsSimulated reports whether err originates from fault injection.
func IsSimulated(err error) bool {
	var sim Simulated
	if errors.As(err, &sim) {
		return true
	}
	return GetErrorType(stacktrace.RootCause(err)) == ErrorTypeSimulated
}
