// Package hdmap holds the lane topology the planner queries: lane polygons, centerlines and the
// left/right adjacency between lanes.
package hdmap

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
)

// Side selects the left or right neighbors of a lane, relative to its driving direction.
type Side uint8

// The two sides of a lane.
const (
	SideLeft Side = iota
	SideRight
)

func (s Side) String() string {
	switch s {
	case SideLeft:
		return "left"
	case SideRight:
		return "right"
	default:
		return "unknown"
	}
}

// A Lane is a drivable lane: the polygon that bounds it, the polyline drivers follow and the ids
// of the lanes directly adjacent on each side.
type Lane struct {
	ID             string
	Boundary       []r2.Point
	Centerline     []r2.Point
	LeftNeighbors  []string
	RightNeighbors []string
	// SpeedLimit is in meters per second; zero means unlimited.
	SpeedLimit float64

	bounds r2.Rect
}

// A Neighbor is a lane adjacent (directly or transitively) to a queried lane together with the
// perpendicular offset between the two centerlines in meters.
type Neighbor struct {
	LaneID          string
	LateralDistance float64
}

func (l *Lane) validate() error {
	if l.ID == "" {
		return errors.New("lane id is required")
	}
	if len(l.Boundary) < 3 {
		return errors.Errorf("lane %q: boundary needs at least 3 points, got %d", l.ID, len(l.Boundary))
	}
	if len(l.Centerline) < 2 {
		return errors.Errorf("lane %q: centerline needs at least 2 points, got %d", l.ID, len(l.Centerline))
	}
	l.bounds = r2.RectFromPoints(l.Boundary...)
	return nil
}

// Contains reports whether pt lies inside the lane boundary.
func (l *Lane) Contains(pt r2.Point) bool {
	if !l.bounds.ContainsPoint(pt) {
		return false
	}
	// Even-odd ray casting along +X.
	inside := false
	for i, j := 0, len(l.Boundary)-1; i < len(l.Boundary); j, i = i, i+1 {
		a, b := l.Boundary[i], l.Boundary[j]
		if (a.Y > pt.Y) != (b.Y > pt.Y) &&
			pt.X < (b.X-a.X)*(pt.Y-a.Y)/(b.Y-a.Y)+a.X {
			inside = !inside
		}
	}
	return inside
}

// Projection locates a point relative to the lane centerline.
type Projection struct {
	// Station is the arc length along the centerline to the closest point.
	Station float64
	// Lateral is the signed offset of the point from the centerline, positive to the left.
	Lateral float64
	// Heading is the direction of the centerline at the closest point, in radians.
	Heading float64
	// Point is the closest point on the centerline.
	Point r2.Point
}

// Project returns the closest point on the centerline to pt.
func (l *Lane) Project(pt r2.Point) Projection {
	best := Projection{Lateral: math.Inf(1)}
	bestDist := math.Inf(1)
	var station float64
	for i := 0; i+1 < len(l.Centerline); i++ {
		a, b := l.Centerline[i], l.Centerline[i+1]
		seg := b.Sub(a)
		segLen := seg.Norm()
		if segLen == 0 {
			continue
		}
		u := math.Max(0, math.Min(1, pt.Sub(a).Dot(seg)/(segLen*segLen)))
		closest := a.Add(seg.Mul(u))
		if dist := pt.Sub(closest).Norm(); dist < bestDist {
			bestDist = dist
			lateral := dist
			if seg.Cross(pt.Sub(a)) < 0 {
				lateral = -dist
			}
			best = Projection{
				Station: station + u*segLen,
				Lateral: lateral,
				Heading: math.Atan2(seg.Y, seg.X),
				Point:   closest,
			}
		}
		station += segLen
	}
	return best
}

// Length returns the arc length of the centerline.
func (l *Lane) Length() float64 {
	var length float64
	for i := 0; i+1 < len(l.Centerline); i++ {
		length += l.Centerline[i+1].Sub(l.Centerline[i]).Norm()
	}
	return length
}

// PointAt returns the centerline point and heading at the given station, clamped to the lane.
func (l *Lane) PointAt(station float64) (r2.Point, float64) {
	var travelled float64
	last := len(l.Centerline) - 1
	for i := 0; i < last; i++ {
		a, b := l.Centerline[i], l.Centerline[i+1]
		seg := b.Sub(a)
		segLen := seg.Norm()
		if segLen == 0 {
			continue
		}
		heading := math.Atan2(seg.Y, seg.X)
		if station <= travelled+segLen || i == last-1 {
			u := math.Max(0, math.Min(1, (station-travelled)/segLen))
			return a.Add(seg.Mul(u)), heading
		}
		travelled += segLen
	}
	return l.Centerline[last], 0
}

// midpoint is the centerline point halfway along the lane; lateral offsets to other lanes are
// measured from it.
func (l *Lane) midpoint() r2.Point {
	pt, _ := l.PointAt(l.Length() / 2)
	return pt
}

func (l *Lane) clone() *Lane {
	cp := *l
	cp.Boundary = append([]r2.Point(nil), l.Boundary...)
	cp.Centerline = append([]r2.Point(nil), l.Centerline...)
	cp.LeftNeighbors = append([]string(nil), l.LeftNeighbors...)
	cp.RightNeighbors = append([]string(nil), l.RightNeighbors...)
	return &cp
}

func (l *Lane) neighbors(side Side) []string {
	if side == SideLeft {
		return l.LeftNeighbors
	}
	return l.RightNeighbors
}
