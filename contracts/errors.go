package contracts

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// Configuration errors
	ErrBindingNotFound       = errors.New("configuration: no target bound for kind")
	ErrFrameworkNotSupported = errors.New("configuration: framework not supported")
	ErrFrameworkRegistered   = errors.New("configuration: framework already registered")
	ErrInvalidBinding        = errors.New("configuration: invalid target binding")
	ErrUnknownTarget         = errors.New("configuration: target kind not handled by framework")

	// Registration errors
	ErrInvalidInterceptor = errors.New("interceptor: invalid interceptor")

	// Entry point errors
	ErrEntryPointNotFound = errors.New("entry point: not found")
	ErrInvalidEntryPoint  = errors.New("entry point: cannot parse")
)

// ConfigurationError is a fatal setup problem: a dispatch without a binding
// or an unknown framework name. It is never retried.
type ConfigurationError struct {
	Op         string
	Domain     string
	TargetKind string
	Known      []string
	Err        error
}

func (e *ConfigurationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "configuration error: %s", e.Op)
	if e.Domain != "" {
		fmt.Fprintf(&b, " domain=%s", e.Domain)
	}
	if e.TargetKind != "" {
		fmt.Fprintf(&b, " kind=%s", e.TargetKind)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	if len(e.Known) > 0 {
		fmt.Fprintf(&b, " (known: %s)", strings.Join(e.Known, ", "))
	}
	return b.String()
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// IsConfigurationError checks if an error is a configuration error
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}

// SignatureMismatchWarning reports that a bound callable does not match any
// known-compatible signature. Binding proceeds anyway.
type SignatureMismatchWarning struct {
	TargetKind string
	Got        string
	Allowed    []string
}

func (w *SignatureMismatchWarning) Error() string {
	return fmt.Sprintf("signature mismatch: %s has unknown signature %s that may not be supported", w.TargetKind, w.Got)
}

// InterruptError is returned by a stand-in when an interceptor terminated the
// call. It is control flow, not a failure.
type InterruptError struct {
	Record *CallRecord
}

func (e *InterruptError) Error() string {
	if e.Record == nil {
		return "call interrupted by interceptor"
	}
	return fmt.Sprintf("call to %s interrupted by interceptor", e.Record.TargetKind)
}

// IsInterrupt checks if an error is an interrupt
func IsInterrupt(err error) bool {
	if err == nil {
		return false
	}
	var interrupt *InterruptError
	return errors.As(err, &interrupt)
}

// GetInterruptedRecord extracts the final record from an interrupt
func GetInterruptedRecord(err error) (*CallRecord, bool) {
	var interrupt *InterruptError
	if errors.As(err, &interrupt) && interrupt.Record != nil {
		return interrupt.Record, true
	}
	return nil, false
}

// HookPhase names the chain a hook belongs to
type HookPhase string

const (
	PhaseBeforeCall HookPhase = "beforeCall"
	PhaseAfterCall  HookPhase = "afterCall"
)

// HookError wraps an error returned by an interceptor hook
type HookError struct {
	Interceptor string
	Phase       HookPhase
	TargetKind  string
	Err         error
}

func (e *HookError) Error() string {
	return fmt.Sprintf("interceptor %s failed in %s for %s: %v", e.Interceptor, e.Phase, e.TargetKind, e.Err)
}

func (e *HookError) Unwrap() error {
	return e.Err
}
