package setpoint

import (
	"fmt"
	"time"
)

// DefaultFrameID labels the local coordinate frame of every setpoint.
const DefaultFrameID = "local_origin"

// Kind identifies the setpoint variant.
type Kind int

const (
	KindPosition Kind = iota + 1
	KindVelocity
	KindAcceleration
)

// Kinds lists the variants in dispatch priority order.
var Kinds = []Kind{KindPosition, KindVelocity, KindAcceleration}

func (k Kind) String() string {
	switch k {
	case KindPosition:
		return "position"
	case KindVelocity:
		return "velocity"
	case KindAcceleration:
		return "acceleration"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Channel returns the channel name the variant is published on, relative to
// "<namespace>/setpoint/".
func (k Kind) Channel() string {
	switch k {
	case KindPosition:
		return "local_position"
	case KindVelocity:
		return "cmd_vel"
	case KindAcceleration:
		return "accel"
	default:
		return ""
	}
}

// ParseKind converts a kind name back to a Kind.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if k.String() == s || k.Channel() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown setpoint kind %q", s)
}

// Stamp is a capture time split into seconds and nanoseconds.
type Stamp struct {
	Sec     int64  `json:"sec"`
	Nanosec uint32 `json:"nanosec"`
}

// NewStamp converts t to a Stamp.
func NewStamp(t time.Time) Stamp {
	return Stamp{Sec: t.Unix(), Nanosec: uint32(t.Nanosecond())}
}

// Time converts the stamp back to a time.Time.
func (s Stamp) Time() time.Time { return time.Unix(s.Sec, int64(s.Nanosec)) }

// Header is the envelope shared by every setpoint.
type Header struct {
	Stamp   Stamp  `json:"stamp"`
	FrameID string `json:"frame_id"`
}

type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type Quaternion struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	W float64 `json:"w"`
}

type Pose struct {
	Position    Vector3    `json:"position"`
	Orientation Quaternion `json:"orientation"`
}

type Twist struct {
	Linear  Vector3 `json:"linear"`
	Angular Vector3 `json:"angular"`
}

// Setpoint is implemented by PositionTarget, VelocityTarget and AccelTarget
// only.
type Setpoint interface {
	Kind() Kind
	Envelope() Header
	setpoint()
}

// PositionTarget is a local position with a heading.
type PositionTarget struct {
	Header Header `json:"header"`
	Pose   Pose   `json:"pose"`
}

// VelocityTarget is a linear velocity with a yaw rate.
type VelocityTarget struct {
	Header Header `json:"header"`
	Twist  Twist  `json:"twist"`
}

// AccelTarget is a linear acceleration or force.
type AccelTarget struct {
	Header Header  `json:"header"`
	Vector Vector3 `json:"vector"`
}

func (PositionTarget) Kind() Kind { return KindPosition }
func (VelocityTarget) Kind() Kind { return KindVelocity }
func (AccelTarget) Kind() Kind    { return KindAcceleration }

func (p PositionTarget) Envelope() Header { return p.Header }
func (v VelocityTarget) Envelope() Header { return v.Header }
func (a AccelTarget) Envelope() Header    { return a.Header }

func (PositionTarget) setpoint() {}
func (VelocityTarget) setpoint() {}
func (AccelTarget) setpoint()    {}
