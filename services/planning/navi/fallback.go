package navi

import (
	"time"

	"github.com/openav/naviplan/services/planning"
)

// FallbackGenerator builds the trajectory emitted when the optimizer cannot be used. It never
// fails.
type FallbackGenerator struct {
	points int
	step   time.Duration
}

// NewFallbackGenerator returns a generator producing points samples spaced step apart. Fewer
// than one point is raised to one.
func NewFallbackGenerator(points int, step time.Duration) *FallbackGenerator {
	if points < 1 {
		points = 1
	}
	if step < 0 {
		step = 0
	}
	return &FallbackGenerator{points: points, step: step}
}

// Synthesize returns a zero-motion trajectory holding the pose of cfg, or the map origin when
// cfg was never valid.
func (g *FallbackGenerator) Synthesize(cfg VehicleConfig) planning.Trajectory {
	var anchor VehicleConfig
	if cfg.IsValid {
		anchor = cfg
	}
	points := make([]planning.TrajectoryPoint, g.points)
	for i := range points {
		points[i] = planning.TrajectoryPoint{
			X:            anchor.X,
			Y:            anchor.Y,
			Theta:        anchor.Heading,
			RelativeTime: time.Duration(i) * g.step,
		}
	}
	return planning.Trajectory{Points: points}
}

// Stitch re-times the remainder of a previously published trajectory, stamped at published, so
// that it is relative to now. Points already in the past are dropped. When fewer than two points
// remain it returns Synthesize(cfg).
func (g *FallbackGenerator) Stitch(last planning.Trajectory, published, now time.Time, cfg VehicleConfig) planning.Trajectory {
	elapsed := now.Sub(published)
	var points []planning.TrajectoryPoint
	for _, pt := range last.Points {
		if pt.RelativeTime < elapsed {
			continue
		}
		pt.RelativeTime -= elapsed
		points = append(points, pt)
	}
	if len(points) < 2 {
		return g.Synthesize(cfg)
	}
	return planning.Trajectory{Points: points}
}
