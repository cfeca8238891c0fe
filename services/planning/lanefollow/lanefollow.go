// Package lanefollow implements a reference trajectory optimizer that tracks the centerline of the
// target lane, blending in from the vehicle's current lateral offset.
package lanefollow

import (
	"context"
	"math"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gonum.org/v1/gonum/floats"

	"github.com/openav/naviplan/hdmap"
	"github.com/openav/naviplan/logging"
	"github.com/openav/naviplan/services/planning"
	"github.com/openav/naviplan/spatialmath"
	"github.com/openav/naviplan/utils"
)

// Options tune the generated trajectories.
type Options struct {
	// Horizon is how far ahead in time trajectories reach.
	Horizon time.Duration `json:"horizon"`
	// Points is the number of samples over the horizon.
	Points int `json:"points"`
	// CruiseSpeed is in meters per second and is capped by the lane speed limit.
	CruiseSpeed float64 `json:"cruise_speed"`
	// Deceleration is used when stopping or pulling over, in meters per second squared.
	Deceleration float64 `json:"deceleration"`
	// BlendDistance is the distance over which a lateral offset is removed, in meters.
	BlendDistance float64 `json:"blend_distance"`
}

// DefaultOptions returns the options used for unset fields.
func DefaultOptions() Options {
	return Options{
		Horizon:       5 * time.Second,
		Points:        26,
		CruiseSpeed:   planning.DefaultCruiseSpeed,
		Deceleration:  2,
		BlendDistance: 30,
	}
}

func (o *Options) applyDefaults() {
	def := DefaultOptions()
	if o.Horizon == 0 {
		o.Horizon = def.Horizon
	}
	if o.Points == 0 {
		o.Points = def.Points
	}
	if o.CruiseSpeed == 0 {
		o.CruiseSpeed = def.CruiseSpeed
	}
	if o.Deceleration == 0 {
		o.Deceleration = def.Deceleration
	}
	if o.BlendDistance == 0 {
		o.BlendDistance = def.BlendDistance
	}
}

// Validate ensures the options can produce a trajectory.
func (o *Options) Validate() error {
	var errs error
	if o.Horizon <= 0 {
		errs = multierr.Append(errs, errors.New("horizon must be positive"))
	}
	if o.Points < 2 {
		errs = multierr.Append(errs, errors.Errorf("points must be at least 2, got %d", o.Points))
	}
	if o.CruiseSpeed < 0 {
		errs = multierr.Append(errs, errors.New("cruise_speed cannot be negative"))
	}
	if o.Deceleration <= 0 {
		errs = multierr.Append(errs, errors.New("deceleration must be positive"))
	}
	if o.BlendDistance <= 0 {
		errs = multierr.Append(errs, errors.New("blend_distance must be positive"))
	}
	return errs
}

// Optimizer plans along lane centerlines from an hdmap.Service.
type Optimizer struct {
	lanes  hdmap.Service
	opts   Options
	logger logging.Logger
}

var _ planning.Optimizer = (*Optimizer)(nil)

// NewOptimizer returns an optimizer planning against lanes. Unset options take their defaults.
func NewOptimizer(lanes hdmap.Service, opts Options, logger logging.Logger) (*Optimizer, error) {
	opts.applyDefaults()
	if err := opts.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid lane follow options")
	}
	return &Optimizer{lanes: lanes, opts: opts, logger: logger}, nil
}

// Plan returns a trajectory that follows targetLaneID from pose. Stop and pull over decelerate
// to a standstill.
func (o *Optimizer) Plan(
	ctx context.Context,
	pose spatialmath.Pose2D,
	action planning.DrivingAction,
	targetLaneID string,
) (planning.Trajectory, error) {
	if targetLaneID == "" {
		return planning.Trajectory{}, errors.New("no target lane")
	}
	lane, err := o.lanes.Lane(ctx, targetLaneID)
	if err != nil {
		return planning.Trajectory{}, err
	}

	speed := o.opts.CruiseSpeed
	if lane.SpeedLimit > 0 {
		speed = math.Min(speed, lane.SpeedLimit)
	}
	decel := 0.0
	if action == planning.ActionStop || action == planning.ActionPullOver {
		decel = o.opts.Deceleration
	}

	times := floats.Span(make([]float64, o.opts.Points), 0, o.opts.Horizon.Seconds())
	start := lane.Project(pose.Point())
	// Offset of the vehicle from the target centerline; removed smoothly over BlendDistance.
	offset := start.Lateral

	points := make([]planning.TrajectoryPoint, len(times))
	for i, t := range times {
		travelled, velocity, accel := profile(speed, decel, t)
		station := start.Station + travelled
		center, heading := lane.PointAt(station)

		blend, slope := smoothstep(travelled / o.opts.BlendDistance)
		lateral := offset * (1 - blend)
		normal := spatialmath.NewPose2D(0, 0, heading+math.Pi/2).Heading()
		pos := center.Add(normal.Mul(lateral))

		theta := heading - math.Atan(offset*slope/o.opts.BlendDistance)
		points[i] = planning.TrajectoryPoint{
			X:            pos.X,
			Y:            pos.Y,
			Theta:        spatialmath.NormalizeAngle(theta),
			Velocity:     velocity,
			Acceleration: accel,
			RelativeTime: time.Duration(t * float64(time.Second)),
		}
	}
	fillCurvature(points)

	o.logger.CDebugw(ctx, "planned lane follow trajectory",
		"lane", targetLaneID, "action", action, "speed", speed, "offset", offset, "points", len(points))
	return planning.Trajectory{Points: points}, nil
}

// profile returns the distance travelled, speed and acceleration after t seconds when starting
// at speed and braking at decel until standstill.
func profile(speed, decel, t float64) (float64, float64, float64) {
	if decel == 0 {
		return speed * t, speed, 0
	}
	stopAt := speed / decel
	if t >= stopAt {
		return speed * stopAt / 2, 0, 0
	}
	return speed*t - decel*t*t/2, speed - decel*t, -decel
}

// smoothstep is the cubic 3u²-2u³ clamped to [0, 1], with its derivative.
func smoothstep(u float64) (float64, float64) {
	if u <= 0 || u >= 1 {
		return utils.Clamp(u, 0, 1), 0
	}
	return utils.Square(u) * (3 - 2*u), 6 * u * (1 - u)
}

// fillCurvature estimates curvature from the heading change between neighboring points.
func fillCurvature(points []planning.TrajectoryPoint) {
	for i := 1; i < len(points); i++ {
		prev, cur := points[i-1], points[i]
		ds := math.Hypot(cur.X-prev.X, cur.Y-prev.Y)
		if ds < 1e-6 {
			points[i].Kappa = prev.Kappa
			continue
		}
		points[i].Kappa = spatialmath.NormalizeAngle(cur.Theta-prev.Theta) / ds
	}
	if len(points) > 1 {
		points[0].Kappa = points[1].Kappa
	}
}
