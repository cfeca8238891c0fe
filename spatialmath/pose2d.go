// Package spatialmath defines the planar pose type used by the planner and conversions into it.
package spatialmath

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// Pose2D is a position in the map plane plus a heading in radians, measured counter-clockwise
// from the +X (east) axis. It is a plain value and is always copied.
type Pose2D struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Theta float64 `json:"theta"`
}

// NewPose2D returns a pose with its heading normalized into (-π, π].
func NewPose2D(x, y, theta float64) Pose2D {
	return Pose2D{X: x, Y: y, Theta: NormalizeAngle(theta)}
}

// NewPose2DFromVector flattens a 3D position onto the map plane.
func NewPose2DFromVector(v r3.Vector, theta float64) Pose2D {
	return NewPose2D(v.X, v.Y, theta)
}

// Point returns the position of the pose.
func (p Pose2D) Point() r2.Point {
	return r2.Point{X: p.X, Y: p.Y}
}

// Heading returns the unit vector the pose is facing.
func (p Pose2D) Heading() r2.Point {
	return r2.Point{X: math.Cos(p.Theta), Y: math.Sin(p.Theta)}
}

// IsFinite reports whether every component is a real number.
func (p Pose2D) IsFinite() bool {
	for _, v := range []float64{p.X, p.Y, p.Theta} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// ToWorld maps a point expressed in the pose's frame (x forward, y left) into the map frame.
func (p Pose2D) ToWorld(local r2.Point) r2.Point {
	sin, cos := math.Sincos(p.Theta)
	return r2.Point{
		X: p.X + local.X*cos - local.Y*sin,
		Y: p.Y + local.X*sin + local.Y*cos,
	}
}

// ToLocal maps a map frame point into the pose's frame (x forward, y left).
func (p Pose2D) ToLocal(world r2.Point) r2.Point {
	d := world.Sub(p.Point())
	sin, cos := math.Sincos(p.Theta)
	return r2.Point{
		X: d.X*cos + d.Y*sin,
		Y: -d.X*sin + d.Y*cos,
	}
}

func (p Pose2D) String() string {
	return fmt.Sprintf("(x=%.3f, y=%.3f, theta=%.3f)", p.X, p.Y, p.Theta)
}

// NormalizeAngle wraps an angle in radians into (-π, π].
func NormalizeAngle(theta float64) float64 {
	if math.IsNaN(theta) || math.IsInf(theta, 0) {
		return theta
	}
	theta = math.Mod(theta, 2*math.Pi)
	switch {
	case theta > math.Pi:
		theta -= 2 * math.Pi
	case theta <= -math.Pi:
		theta += 2 * math.Pi
	}
	return theta
}

// YawFromQuaternion returns the rotation about +Z encoded by a unit quaternion.
func YawFromQuaternion(q quat.Number) float64 {
	return math.Atan2(
		2*(q.Real*q.Kmag+q.Imag*q.Jmag),
		1-2*(q.Jmag*q.Jmag+q.Kmag*q.Kmag),
	)
}
