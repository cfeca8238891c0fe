// Package planning defines the surface shared by every planning strategy: the Strategy interface,
// the values that flow through a planning cycle and the collaborators a strategy plans against.
package planning

import (
	"context"
	"time"

	"github.com/golang/geo/r3"
	"github.com/google/uuid"
	geo "github.com/kellydunn/golang-geo"
	"gonum.org/v1/gonum/num/quat"

	"github.com/openav/naviplan/spatialmath"
)

// A Strategy turns localization, operator commands and map data into one trajectory per tick.
// Strategies are selected by name from configuration, see RegisterStrategy.
type Strategy interface {
	// Name identifies the strategy in logs and configuration.
	Name() string
	// Init acquires collaborators. It fails with ErrInitialization when one is missing.
	Init(ctx context.Context) error
	// Start begins periodic RunOnce invocations. It fails with ErrAlreadyRunning when running.
	Start(ctx context.Context) error
	// Stop halts scheduling and waits for an in-flight RunOnce. It is idempotent.
	Stop(ctx context.Context) error
	// RunOnce executes a single planning cycle and publishes exactly one Result.
	RunOnce(ctx context.Context) Result
	// SetFallbackTrajectory overwrites traj with the strategy's conservative trajectory.
	SetFallbackTrajectory(traj *Trajectory)
	// OnPad delivers an operator command. It may be called concurrently with RunOnce.
	OnPad(msg PadMessage)
}

// A TrajectoryPoint is one timestamped state along a trajectory.
type TrajectoryPoint struct {
	X            float64       `json:"x"`
	Y            float64       `json:"y"`
	Theta        float64       `json:"theta"`
	Kappa        float64       `json:"kappa"`
	Velocity     float64       `json:"v"`
	Acceleration float64       `json:"a"`
	RelativeTime time.Duration `json:"relative_time"`
}

// Pose returns the planar pose of the point.
func (p TrajectoryPoint) Pose() spatialmath.Pose2D {
	return spatialmath.Pose2D{X: p.X, Y: p.Y, Theta: p.Theta}
}

// A Trajectory is the sequence of states handed to the control loop. RelativeTime of each point is
// relative to the Result timestamp.
type Trajectory struct {
	Points []TrajectoryPoint `json:"points"`
}

// Empty reports whether the trajectory has no points.
func (t Trajectory) Empty() bool {
	return len(t.Points) == 0
}

// Clone returns a trajectory that shares no memory with t.
func (t Trajectory) Clone() Trajectory {
	return Trajectory{Points: append([]TrajectoryPoint(nil), t.Points...)}
}

// Source says which pipeline produced a Result's trajectory.
type Source uint8

// The possible trajectory sources.
const (
	SourcePrimary Source = iota
	SourceFallback
)

func (s Source) String() string {
	if s == SourcePrimary {
		return "primary"
	}
	return "fallback"
}

// MarshalText encodes the source by name.
func (s Source) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// A Result is what a strategy emits downstream each tick.
type Result struct {
	ID           uuid.UUID     `json:"id"`
	Sequence     uint64        `json:"sequence"`
	Timestamp    time.Time     `json:"timestamp"`
	Trajectory   Trajectory    `json:"trajectory"`
	Source       Source        `json:"source"`
	Action       DrivingAction `json:"action"`
	TargetLaneID string        `json:"target_lane_id"`
	// Degraded is set when the cycle ran without fresh localization.
	Degraded bool `json:"degraded"`
	// FallbackReason explains why a fallback trajectory was emitted.
	FallbackReason string `json:"fallback_reason,omitempty"`
}

// A LocalizationEstimate is one localization sample. Position is in the map frame in meters.
// When Geo is set it takes precedence over Position and is projected around the configured
// origin. When Orientation is set, the heading is derived from it instead of Heading.
type LocalizationEstimate struct {
	Timestamp   time.Time    `json:"timestamp"`
	Position    r3.Vector    `json:"position"`
	Heading     float64      `json:"heading"`
	Orientation *quat.Number `json:"orientation,omitempty"`
	Geo         *GeoFix      `json:"geo,omitempty"`
	// CompassHeading is in degrees clockwise from north and is only used with Geo.
	CompassHeading float64 `json:"compass_heading,omitempty"`
}

// A GeoFix is a GNSS position in degrees.
type GeoFix struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Point converts the fix into a geo.Point.
func (g GeoFix) Point() *geo.Point {
	return geo.NewPoint(g.Lat, g.Lng)
}

// LocalizationProvider hands out the most recent localization sample. A nil sample with a nil
// error means none has arrived yet.
type LocalizationProvider interface {
	LatestLocalization(ctx context.Context) (*LocalizationEstimate, error)
}

// Optimizer turns a pose, a driving action and a target lane into a dense trajectory.
type Optimizer interface {
	Plan(ctx context.Context, pose spatialmath.Pose2D, action DrivingAction, targetLaneID string) (Trajectory, error)
}

// TrajectorySink receives exactly one Result per tick.
type TrajectorySink interface {
	Publish(ctx context.Context, result Result) error
}
