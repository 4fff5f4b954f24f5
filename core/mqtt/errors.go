package mqtt

import "errors"

var (
	// ErrPublish wraps transport failures while publishing a setpoint.
	ErrPublish = errors.New("publish setpoint")
	// ErrRPCTimeout is returned when the mode-enable endpoint does not reply in time.
	ErrRPCTimeout = errors.New("timeout waiting for service reply")
	// ErrRejected is returned when the remote side refuses the request.
	ErrRejected = errors.New("request rejected")
	// ErrUnknownKind is returned for a channel request with an invalid kind.
	ErrUnknownKind = errors.New("unknown setpoint kind")
)
