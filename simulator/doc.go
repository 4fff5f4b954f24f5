// Package simulator plays the flight-controller side of the setpoint
// protocol for local testing. A Bridge advertises its presence, receives
// retained setpoints on the three setpoint channels and answers guided-enable
// requests according to a ReplyStrategy.
package simulator
