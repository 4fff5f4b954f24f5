package setpoint

import "time"

// Builder constructs setpoints. Inputs are trusted; nothing is range checked.
type Builder struct {
	FrameID string
	Now     func() time.Time
}

// NewBuilder returns a Builder stamping messages with frameID and the wall
// clock. An empty frameID falls back to DefaultFrameID.
func NewBuilder(frameID string) *Builder {
	if frameID == "" {
		frameID = DefaultFrameID
	}
	return &Builder{FrameID: frameID, Now: time.Now}
}

func (b *Builder) header() Header {
	now := time.Now
	if b.Now != nil {
		now = b.Now
	}
	frame := b.FrameID
	if frame == "" {
		frame = DefaultFrameID
	}
	return Header{Stamp: NewStamp(now()), FrameID: frame}
}

// Position builds a position target. When degrees is set, yaw is converted to
// radians once here. Roll and pitch are always zero.
func (b *Builder) Position(x, y, z, yaw float64, degrees bool) PositionTarget {
	if degrees {
		yaw = Radians(yaw)
	}
	return PositionTarget{
		Header: b.header(),
		Pose: Pose{
			Position:    Vector3{X: x, Y: y, Z: z},
			Orientation: FromEuler(0, 0, yaw),
		},
	}
}

// Velocity builds a velocity target. yawRate only populates the angular z
// component.
func (b *Builder) Velocity(vx, vy, vz, yawRate float64) VelocityTarget {
	return VelocityTarget{
		Header: b.header(),
		Twist: Twist{
			Linear:  Vector3{X: vx, Y: vy, Z: vz},
			Angular: Vector3{Z: yawRate},
		},
	}
}

// Acceleration builds an acceleration target.
func (b *Builder) Acceleration(afx, afy, afz float64) AccelTarget {
	return AccelTarget{
		Header: b.header(),
		Vector: Vector3{X: afx, Y: afy, Z: afz},
	}
}
