package setpoint

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
)

// FromEuler composes roll, pitch and yaw (radians, applied in that order about
// the fixed x, y and z axes) into a unit quaternion.
func FromEuler(roll, pitch, yaw float64) Quaternion {
	qx := axisAngle(roll, 1, 0, 0)
	qy := axisAngle(pitch, 0, 1, 0)
	qz := axisAngle(yaw, 0, 0, 1)
	q := quat.Mul(qz, quat.Mul(qy, qx))
	return Quaternion{X: q.Imag, Y: q.Jmag, Z: q.Kmag, W: q.Real}
}

func axisAngle(angle, x, y, z float64) quat.Number {
	s, c := math.Sincos(angle / 2)
	return quat.Number{Real: c, Imag: x * s, Jmag: y * s, Kmag: z * s}
}

// YawOf returns the heading encoded in q, in (-π, π].
func YawOf(q Quaternion) float64 {
	return math.Atan2(2*(q.W*q.Z+q.X*q.Y), 1-2*(q.Y*q.Y+q.Z*q.Z))
}

// RollPitchOf returns the roll and pitch encoded in q.
func RollPitchOf(q Quaternion) (roll, pitch float64) {
	roll = math.Atan2(2*(q.W*q.X+q.Y*q.Z), 1-2*(q.X*q.X+q.Y*q.Y))
	sinp := 2 * (q.W*q.Y - q.Z*q.X)
	switch {
	case sinp >= 1:
		pitch = math.Pi / 2
	case sinp <= -1:
		pitch = -math.Pi / 2
	default:
		pitch = math.Asin(sinp)
	}
	return roll, pitch
}

// Norm returns the quaternion magnitude.
func (q Quaternion) Norm() float64 {
	return quat.Abs(quat.Number{Real: q.W, Imag: q.X, Jmag: q.Y, Kmag: q.Z})
}

// Radians converts degrees to radians.
func Radians(deg float64) float64 { return deg * math.Pi / 180 }
