package mqtt

import "github.com/kilianp07/offboard/core/setpoint"

// Channel is the publisher handle of one setpoint variant.
type Channel interface {
	// Topic is the fully qualified channel name.
	Topic() string
	// Publish sends sp with retained delivery so late subscribers still get it.
	Publish(sp setpoint.Setpoint) error
	// SubscriberCount returns the number of bridges currently listening.
	SubscriberCount() int
}

// ModeClient requests offboard (guided) mode from the flight controller.
type ModeClient interface {
	// ServiceName is the fully qualified name of the mode-enable endpoint.
	ServiceName() string
	// GuidedEnable performs one boolean remote call. The timeout is owned by
	// the implementation.
	GuidedEnable(value bool) error
}

// Session is the process-wide transport session. It must be opened once
// before any channel is used.
type Session interface {
	ModeClient
	Channel(kind setpoint.Kind) (Channel, error)
	Close()
}
