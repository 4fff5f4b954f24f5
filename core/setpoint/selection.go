package setpoint

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoSetpoint is returned when none of position, velocity or acceleration is set.
	ErrNoSetpoint = errors.New("one of position, velocity or acceleration is required")
	// ErrConflictingSetpoints is returned when more than one variant is set.
	ErrConflictingSetpoints = errors.New("position, velocity and acceleration are mutually exclusive")
	// ErrArity is returned when a variant gets the wrong number of values.
	ErrArity = errors.New("wrong number of values")
)

// Selection is the operator's choice. At most one of Position, Velocity and
// Acceleration is non-nil.
type Selection struct {
	Position     *[4]float64
	Velocity     *[4]float64
	Acceleration *[3]float64
	// Degrees marks the position yaw as degrees.
	Degrees bool
}

// NewSelection validates raw operator input. A nil slice means the variant was
// not supplied.
func NewSelection(position, velocity, acceleration []float64, degrees bool) (Selection, error) {
	var given []string
	if position != nil {
		given = append(given, KindPosition.String())
	}
	if velocity != nil {
		given = append(given, KindVelocity.String())
	}
	if acceleration != nil {
		given = append(given, KindAcceleration.String())
	}
	switch {
	case len(given) == 0:
		return Selection{}, ErrNoSetpoint
	case len(given) > 1:
		return Selection{}, fmt.Errorf("%w: got %s", ErrConflictingSetpoints, strings.Join(given, ", "))
	}
	if degrees && position == nil {
		return Selection{}, fmt.Errorf("degrees only applies to position")
	}

	var sel Selection
	switch {
	case position != nil:
		if len(position) != 4 {
			return Selection{}, fmt.Errorf("%w: position takes x y z yaw, got %d", ErrArity, len(position))
		}
		sel.Position = (*[4]float64)(position)
		sel.Degrees = degrees
	case velocity != nil:
		if len(velocity) != 4 {
			return Selection{}, fmt.Errorf("%w: velocity takes vx vy vz yaw_rate, got %d", ErrArity, len(velocity))
		}
		sel.Velocity = (*[4]float64)(velocity)
	default:
		if len(acceleration) != 3 {
			return Selection{}, fmt.Errorf("%w: acceleration takes afx afy afz, got %d", ErrArity, len(acceleration))
		}
		sel.Acceleration = (*[3]float64)(acceleration)
	}
	return sel, nil
}

// Kind reports the first populated variant in priority order, or 0.
func (s Selection) Kind() Kind {
	switch {
	case s.Position != nil:
		return KindPosition
	case s.Velocity != nil:
		return KindVelocity
	case s.Acceleration != nil:
		return KindAcceleration
	}
	return 0
}

// Build constructs the setpoint of the first populated variant, checking
// position, then velocity, then acceleration.
func (s Selection) Build(b *Builder) (Setpoint, error) {
	switch {
	case s.Position != nil:
		p := s.Position
		return b.Position(p[0], p[1], p[2], p[3], s.Degrees), nil
	case s.Velocity != nil:
		v := s.Velocity
		return b.Velocity(v[0], v[1], v[2], v[3]), nil
	case s.Acceleration != nil:
		a := s.Acceleration
		return b.Acceleration(a[0], a[1], a[2]), nil
	}
	return nil, ErrNoSetpoint
}
