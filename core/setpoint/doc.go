// Package setpoint builds the motion setpoints sent to a flight-controller
// bridge.
//
// A setpoint is one of three message shapes, each carrying a header with a
// capture timestamp and a frame identifier:
//
//   - PositionTarget: local position plus a heading-only orientation
//   - VelocityTarget: linear velocity plus a yaw rate
//   - AccelTarget: linear acceleration or force
//
// Selection holds the operator's choice as a tagged union. Exactly one of its
// fields may be set; NewSelection enforces that before anything is built.
package setpoint
