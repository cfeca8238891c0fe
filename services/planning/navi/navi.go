// Package navi implements the navigation-mode planning strategy. Each tick it refreshes the
// vehicle pose, applies the latest operator pad command, selects a target lane and asks the
// optimizer for a trajectory, emitting a conservative fallback whenever that is not possible.
package navi

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	geo "github.com/kellydunn/golang-geo"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/multierr"

	"github.com/openav/naviplan/logging"
	"github.com/openav/naviplan/services/planning"
)

// Name is the strategy name used in configuration.
const Name = "navi"

func init() {
	planning.RegisterStrategy(Name, func(
		deps planning.Dependencies,
		cfg *planning.Config,
		logger logging.Logger,
	) (planning.Strategy, error) {
		return New(deps, cfg, logger)
	})
}

// Attributes are navi specific settings read from Config.Attributes.
type Attributes struct {
	// MapTimeout bounds each map query. It defaults to the optimizer timeout.
	MapTimeout time.Duration `json:"map_timeout"`
}

// Stats are counters describing the strategy since it was created.
type Stats struct {
	Cycles            uint64                  `json:"cycles"`
	Fallbacks         uint64                  `json:"fallbacks"`
	OptimizerFailures uint64                  `json:"optimizer_failures"`
	DegradedCycles    uint64                  `json:"degraded_cycles"`
	PadOverwritten    uint64                  `json:"pad_overwritten"`
	Scheduler         planning.SchedulerStats `json:"scheduler"`
}

type publishedTrajectory struct {
	trajectory planning.Trajectory
	timestamp  time.Time
}

// NaviPlanning is the navigation-mode planning strategy.
type NaviPlanning struct {
	cfg    *planning.Config
	attrs  Attributes
	deps   planning.Dependencies
	clk    clock.Clock
	logger logging.Logger

	lifecycle planning.Lifecycle
	scheduler *planning.Scheduler

	pad      *PadCommandProcessor
	tracker  *VehiclePoseTracker
	fallback *FallbackGenerator

	// runMu serializes planning cycles; everything below it belongs to the cycle.
	runMu           sync.Mutex
	lanes           *LaneSelector
	vehicle         VehicleConfig
	action          planning.DrivingAction
	actionUndecided bool
	targetLaneID    string
	lastPrimary     *publishedTrajectory

	sequence          atomic.Uint64
	fallbacks         atomic.Uint64
	optimizerFailures atomic.Uint64
	degradedCycles    atomic.Uint64
}

var _ planning.Strategy = (*NaviPlanning)(nil)

// New returns an uninitialized strategy. cfg must already have its defaults applied.
func New(deps planning.Dependencies, cfg *planning.Config, logger logging.Logger) (*NaviPlanning, error) {
	var attrs Attributes
	if err := planning.DecodeAttributes(cfg.Attributes, &attrs); err != nil {
		return nil, errors.Wrap(err, "decoding navi attributes")
	}
	if attrs.MapTimeout == 0 {
		attrs.MapTimeout = cfg.OptimizerTimeout
	}

	var origin *geo.Point
	if cfg.Origin != nil {
		origin = geo.NewPoint(cfg.Origin.Lat, cfg.Origin.Lng)
	}
	clk := deps.ClockOrDefault()
	n := &NaviPlanning{
		cfg:      cfg,
		attrs:    attrs,
		deps:     deps,
		clk:      clk,
		logger:   logger,
		pad:      &PadCommandProcessor{},
		tracker:  NewVehiclePoseTracker(clk, cfg.LocalizationMaxAge(), origin),
		fallback: NewFallbackGenerator(cfg.FallbackPoints, cfg.FallbackStep),
		action:   planning.ActionFollow,
	}
	n.scheduler = planning.NewScheduler(clk, cfg.TickPeriod, func(ctx context.Context) {
		n.RunOnce(ctx)
	}, logger)
	return n, nil
}

// Name returns the strategy name.
func (n *NaviPlanning) Name() string {
	return Name
}

// Init checks that every collaborator was supplied.
func (n *NaviPlanning) Init(ctx context.Context) error {
	return n.lifecycle.Transition(planning.StateInitialized, func() error {
		var errs error
		if n.deps.Map == nil {
			errs = multierr.Append(errs, planning.NewMissingCollaboratorError("map"))
		}
		if n.deps.Optimizer == nil {
			errs = multierr.Append(errs, planning.NewMissingCollaboratorError("optimizer"))
		}
		if n.deps.Localization == nil {
			errs = multierr.Append(errs, planning.NewMissingCollaboratorError("localization"))
		}
		if n.deps.Sink == nil {
			errs = multierr.Append(errs, planning.NewMissingCollaboratorError("sink"))
		}
		if errs != nil {
			return errs
		}

		n.runMu.Lock()
		n.lanes = NewLaneSelector(n.deps.Map, n.attrs.MapTimeout)
		n.runMu.Unlock()
		n.logger.Infow("initialized",
			"tick_period", n.cfg.TickPeriod,
			"optimizer_timeout", n.cfg.OptimizerTimeout,
			"max_localization_age", n.cfg.LocalizationMaxAge())
		return nil
	})
}

// Start begins invoking RunOnce every tick period.
func (n *NaviPlanning) Start(ctx context.Context) error {
	return n.lifecycle.Transition(planning.StateRunning, func() error {
		if err := n.scheduler.Start(); err != nil {
			return err
		}
		n.logger.Infow("started")
		return nil
	})
}

// Stop stops scheduling and waits for an in-flight cycle. Stopping a strategy that is not
// running does nothing: Stop is idempotent, so the lifecycle's ErrIllegalTransition is not
// surfaced here even though Transition still rejects entering Stopped from any state but Running.
func (n *NaviPlanning) Stop(ctx context.Context) error {
	err := n.lifecycle.Transition(planning.StateStopped, func() error {
		n.scheduler.Stop()
		n.logger.Infow("stopped", "ticks", n.scheduler.Stats().Ticks)
		return nil
	})
	if errors.Is(err, planning.ErrIllegalTransition) {
		return nil
	}
	return err
}

// OnPad hands an operator command to the next planning cycle.
func (n *NaviPlanning) OnPad(msg planning.PadMessage) {
	if msg.Received.IsZero() {
		msg.Received = n.clk.Now()
	}
	n.pad.OnPad(msg)
	n.logger.Debugw("pad command queued", "action", msg.Action)
}

// RunOnce runs one planning cycle and publishes its result. It always produces a non-empty
// trajectory.
func (n *NaviPlanning) RunOnce(ctx context.Context) planning.Result {
	n.runMu.Lock()
	defer n.runMu.Unlock()

	now := n.clk.Now()
	result := planning.Result{
		ID:        uuid.New(),
		Sequence:  n.sequence.Inc(),
		Timestamp: now,
	}

	poseErr := n.updateVehicle(ctx)
	if poseErr != nil {
		result.Degraded = true
		n.degradedCycles.Inc()
		n.logger.CDebugw(ctx, "localization degraded", "error", poseErr, "retained", n.vehicle.IsValid)
	}

	if msg, ok := n.pad.Drain(); ok {
		n.applyPad(msg)
	}

	// Lanes are only looked up from a fresh pose; a pending action waits for one.
	if n.vehicle.IsValid && poseErr == nil {
		n.selectLane(ctx)
	}

	result.Action = n.action
	result.TargetLaneID = n.targetLaneID

	var err error
	switch {
	case !n.vehicle.IsValid:
		err = errors.New("no valid vehicle pose has been observed")
	case poseErr != nil:
		// The retained pose anchors the fallback but is too old to plan motion from.
		err = errors.Wrap(poseErr, "localization degraded")
	default:
		var traj planning.Trajectory
		if traj, err = n.plan(ctx); err == nil {
			result.Trajectory = traj
			result.Source = planning.SourcePrimary
			n.lastPrimary = &publishedTrajectory{trajectory: traj.Clone(), timestamp: now}
		} else {
			n.optimizerFailures.Inc()
			n.logger.Warnw("optimizer failed, emitting fallback trajectory", "error", err)
		}
	}
	if err != nil {
		n.fallbacks.Inc()
		result.Source = planning.SourceFallback
		result.FallbackReason = err.Error()
		result.Trajectory = n.fallbackTrajectory(now)
	}

	if n.deps.Sink != nil {
		if err := n.deps.Sink.Publish(ctx, result); err != nil {
			n.logger.Errorw("failed to publish trajectory", "sequence", result.Sequence, "error", err)
		}
	}
	return result
}

// SetFallbackTrajectory overwrites traj with the trajectory the strategy falls back to in its
// current state.
func (n *NaviPlanning) SetFallbackTrajectory(traj *planning.Trajectory) {
	if traj == nil {
		return
	}
	n.runMu.Lock()
	defer n.runMu.Unlock()
	*traj = n.fallbackTrajectory(n.clk.Now())
}

// Stats returns the strategy counters.
func (n *NaviPlanning) Stats() Stats {
	return Stats{
		Cycles:            n.sequence.Load(),
		Fallbacks:         n.fallbacks.Load(),
		OptimizerFailures: n.optimizerFailures.Load(),
		DegradedCycles:    n.degradedCycles.Load(),
		PadOverwritten:    n.pad.Overwritten(),
		Scheduler:         n.scheduler.Stats(),
	}
}

func (n *NaviPlanning) updateVehicle(ctx context.Context) error {
	var est *planning.LocalizationEstimate
	var fetchErr error
	if n.deps.Localization != nil {
		est, fetchErr = n.deps.Localization.LatestLocalization(ctx)
	}
	vehicle, err := n.tracker.Update(est)
	n.vehicle = vehicle
	return multierr.Combine(fetchErr, err)
}

func (n *NaviPlanning) applyPad(msg planning.PadMessage) {
	if !msg.Action.Valid() {
		n.logger.Warnw("ignoring pad command with unknown action", "action", msg.Action)
		return
	}
	n.logger.Infow("driving action changed", "from", n.action, "to", msg.Action)
	n.action = msg.Action
	n.actionUndecided = true
}

// selectLane refreshes the lane snapshot and updates the target lane. A freshly applied action
// is decided on the first cycle that finds a lane and the neighbors it needs.
func (n *NaviPlanning) selectLane(ctx context.Context) {
	if n.lanes == nil {
		return
	}
	snapshot, err := n.lanes.Refresh(ctx, n.vehicle.Pose())
	if errors.Is(err, ErrNoLaneFound) {
		n.logger.CDebugw(ctx, "keeping target lane", "target", n.targetLaneID, "error", err)
		return
	}
	if err != nil {
		n.logger.Warnw("neighbor lanes unavailable", "error", err)
	}

	if n.actionUndecided && !neighborsKnown(n.action, snapshot) {
		n.logger.CDebugw(ctx, "deferring driving action until neighbor lanes are known", "action", n.action)
	} else if n.actionUndecided {
		n.actionUndecided = false
		target, ok := decideTarget(n.action, snapshot, n.targetLaneID)
		if !ok {
			n.logger.Warnw("no lane to carry out driving action, keeping target",
				"action", n.action, "lane", snapshot.CurrentLaneID, "target", n.targetLaneID)
		}
		if target != n.targetLaneID {
			n.logger.Infow("target lane changed", "from", n.targetLaneID, "to", target, "action", n.action)
		}
		n.targetLaneID = target
	}
	if n.targetLaneID == "" {
		n.targetLaneID = snapshot.CurrentLaneID
	}
}

type planned struct {
	trajectory planning.Trajectory
	err        error
}

// plan calls the optimizer under the configured timeout. An optimizer that does not return in
// time is abandoned.
func (n *NaviPlanning) plan(ctx context.Context) (planning.Trajectory, error) {
	if n.deps.Optimizer == nil {
		return planning.Trajectory{}, errors.Wrap(planning.ErrOptimizerFailure, "no optimizer")
	}
	var cancel context.CancelFunc
	if n.cfg.OptimizerTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, n.cfg.OptimizerTimeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	pose, action, target := n.vehicle.Pose(), n.action, n.targetLaneID
	done := make(chan planned, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- planned{err: errors.Errorf("panic: %v", r)}
			}
		}()
		traj, err := n.deps.Optimizer.Plan(ctx, pose, action, target)
		done <- planned{trajectory: traj, err: err}
	}()

	select {
	case <-ctx.Done():
		return planning.Trajectory{}, errors.Wrapf(planning.ErrOptimizerFailure, "planning %v: %v", pose, ctx.Err())
	case res := <-done:
		if res.err != nil {
			return planning.Trajectory{}, errors.Wrapf(planning.ErrOptimizerFailure, "planning %v: %v", pose, res.err)
		}
		if res.trajectory.Empty() {
			return planning.Trajectory{}, errors.Wrapf(planning.ErrOptimizerFailure, "planning %v: empty trajectory", pose)
		}
		return res.trajectory, nil
	}
}

func (n *NaviPlanning) fallbackTrajectory(now time.Time) planning.Trajectory {
	if n.cfg.ReuseLastTrajectory && n.lastPrimary != nil {
		return n.fallback.Stitch(n.lastPrimary.trajectory, n.lastPrimary.timestamp, now, n.vehicle)
	}
	return n.fallback.Synthesize(n.vehicle)
}
