package host

import "fmt"

// The host surfaces every failure as one of four phase errors. All are fatal
// at the process level; retry policy belongs to the supervisor, not here.

// ConfigError reports a malformed configuration value, such as an invalid
// bind address.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string { return fmt.Sprintf("parsing: %v", e.Err) }
func (e *ConfigError) Unwrap() error { return e.Err }
func (e *ConfigError) Phase() string { return "parsing" }

// BindError reports that the listener could not be started, e.g. the address
// is already in use.
type BindError struct {
	Err error
}

func (e *BindError) Error() string { return fmt.Sprintf("binding: %v", e.Err) }
func (e *BindError) Unwrap() error { return e.Err }
func (e *BindError) Phase() string { return "binding" }

// AttachError reports that the service could not be attached to an
// established transport.
type AttachError struct {
	Err error
}

func (e *AttachError) Error() string { return fmt.Sprintf("attaching: %v", e.Err) }
func (e *AttachError) Unwrap() error { return e.Err }
func (e *AttachError) Phase() string { return "attaching" }

// SessionError reports a failure during the active serving phase.
type SessionError struct {
	Err error
}

func (e *SessionError) Error() string { return fmt.Sprintf("serving: %v", e.Err) }
func (e *SessionError) Unwrap() error { return e.Err }
func (e *SessionError) Phase() string { return "serving" }

// PhaseError is implemented by all host errors so callers can name the
// failing phase without type-switching.
type PhaseError interface {
	error
	Phase() string
}
