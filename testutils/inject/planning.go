package inject

import (
	"context"

	"github.com/openav/naviplan/services/planning"
	"github.com/openav/naviplan/spatialmath"
)

// Optimizer is an injected trajectory optimizer.
type Optimizer struct {
	planning.Optimizer
	PlanFunc func(
		ctx context.Context,
		pose spatialmath.Pose2D,
		action planning.DrivingAction,
		targetLaneID string,
	) (planning.Trajectory, error)
}

// Plan calls the injected Plan or the real variant.
func (o *Optimizer) Plan(
	ctx context.Context,
	pose spatialmath.Pose2D,
	action planning.DrivingAction,
	targetLaneID string,
) (planning.Trajectory, error) {
	if o.PlanFunc == nil {
		return o.Optimizer.Plan(ctx, pose, action, targetLaneID)
	}
	return o.PlanFunc(ctx, pose, action, targetLaneID)
}

// LocalizationProvider is an injected localization source.
type LocalizationProvider struct {
	planning.LocalizationProvider
	LatestLocalizationFunc func(ctx context.Context) (*planning.LocalizationEstimate, error)
}

// LatestLocalization calls the injected LatestLocalization or the real variant.
func (l *LocalizationProvider) LatestLocalization(ctx context.Context) (*planning.LocalizationEstimate, error) {
	if l.LatestLocalizationFunc == nil {
		return l.LocalizationProvider.LatestLocalization(ctx)
	}
	return l.LatestLocalizationFunc(ctx)
}

// TrajectorySink is an injected sink.
type TrajectorySink struct {
	planning.TrajectorySink
	PublishFunc func(ctx context.Context, result planning.Result) error
}

// Publish calls the injected Publish or the real variant.
func (s *TrajectorySink) Publish(ctx context.Context, result planning.Result) error {
	if s.PublishFunc == nil {
		return s.TrajectorySink.Publish(ctx, result)
	}
	return s.PublishFunc(ctx, result)
}

// Strategy is an injected planning strategy.
type Strategy struct {
	planning.Strategy
	NameFunc                  func() string
	InitFunc                  func(ctx context.Context) error
	StartFunc                 func(ctx context.Context) error
	StopFunc                  func(ctx context.Context) error
	RunOnceFunc               func(ctx context.Context) planning.Result
	SetFallbackTrajectoryFunc func(traj *planning.Trajectory)
	OnPadFunc                 func(msg planning.PadMessage)
}

// Name calls the injected Name or the real variant.
func (s *Strategy) Name() string {
	if s.NameFunc == nil {
		return s.Strategy.Name()
	}
	return s.NameFunc()
}

// Init calls the injected Init or the real variant.
func (s *Strategy) Init(ctx context.Context) error {
	if s.InitFunc == nil {
		return s.Strategy.Init(ctx)
	}
	return s.InitFunc(ctx)
}

// Start calls the injected Start or the real variant.
func (s *Strategy) Start(ctx context.Context) error {
	if s.StartFunc == nil {
		return s.Strategy.Start(ctx)
	}
	return s.StartFunc(ctx)
}

// Stop calls the injected Stop or the real variant.
func (s *Strategy) Stop(ctx context.Context) error {
	if s.StopFunc == nil {
		return s.Strategy.Stop(ctx)
	}
	return s.StopFunc(ctx)
}

// RunOnce calls the injected RunOnce or the real variant.
func (s *Strategy) RunOnce(ctx context.Context) planning.Result {
	if s.RunOnceFunc == nil {
		return s.Strategy.RunOnce(ctx)
	}
	return s.RunOnceFunc(ctx)
}

// SetFallbackTrajectory calls the injected SetFallbackTrajectory or the real variant.
func (s *Strategy) SetFallbackTrajectory(traj *planning.Trajectory) {
	if s.SetFallbackTrajectoryFunc == nil {
		s.Strategy.SetFallbackTrajectory(traj)
		return
	}
	s.SetFallbackTrajectoryFunc(traj)
}

// OnPad calls the injected OnPad or the real variant.
func (s *Strategy) OnPad(msg planning.PadMessage) {
	if s.OnPadFunc == nil {
		s.Strategy.OnPad(msg)
		return
	}
	s.OnPadFunc(msg)
}
