package services

import "fmt"

// ValidationError marks caller input that fails a domain rule. It is always
// returned synchronously and never leaves a partial write behind.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validationErrorf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// CorruptDataWarning flags a persisted blob that could not be decoded. The
// operation that raised it still succeeded against empty-state data; callers
// may surface it but must not treat it as fatal.
type CorruptDataWarning struct {
	Key string
	Err error
}

func (w *CorruptDataWarning) Error() string {
	return fmt.Sprintf("corrupt data under %q treated as empty: %v", w.Key, w.Err)
}

func (w *CorruptDataWarning) Unwrap() error { return w.Err }

// CapabilityDenied reports a missing host capability. Retryable tells the
// caller whether asking again can still succeed or the user must be routed
// to host settings.
type CapabilityDenied struct {
	Capability string
	Retryable  bool
}

func (e *CapabilityDenied) Error() string {
	return fmt.Sprintf("capability %s denied (retryable=%v)", e.Capability, e.Retryable)
}

// SchedulingFailure wraps a host timer registration error. The affected
// channel is left disabled.
type SchedulingFailure struct {
	Channel string
	Err     error
}

func (e *SchedulingFailure) Error() string {
	return fmt.Sprintf("scheduling %s reminder: %v", e.Channel, e.Err)
}

func (e *SchedulingFailure) Unwrap() error { return e.Err }
