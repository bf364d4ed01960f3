package econet

import "errors"

// Sentinel errors returned by this package. All errors coming out of the
// client wrap exactly one of them, so callers can classify failures with
// errors.Is without parsing messages.
var (
	// ErrAuthentication covers login rejections and missing credentials in
	// the login response.
	ErrAuthentication = errors.New("authentication failed")
	// ErrNotFound is returned when a device id does not resolve to a known
	// device, or when an omitted id cannot be resolved unambiguously.
	ErrNotFound = errors.New("device not found")
	// ErrValidation is returned when a requested value is rejected before
	// any network call is made.
	ErrValidation = errors.New("validation failed")
	// ErrTransport covers network failures on both the HTTP and the MQTT
	// channel, including publishing while the realtime channel is down.
	ErrTransport = errors.New("transport error")
	// ErrParse is returned when a server response cannot be decoded.
	ErrParse = errors.New("parse error")
)
