package navi

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/multierr"

	"github.com/openav/naviplan/hdmap"
	"github.com/openav/naviplan/spatialmath"
)

// ErrNoLaneFound is returned when the vehicle pose does not fall inside any known lane.
var ErrNoLaneFound = errors.New("no lane found")

// noLaneError matches ErrNoLaneFound while keeping the map error as its cause.
type noLaneError struct {
	pose  spatialmath.Pose2D
	cause error
}

func (e *noLaneError) Error() string {
	return fmt.Sprintf("no lane found at %v: %v", e.pose, e.cause)
}

func (e *noLaneError) Is(target error) bool {
	return target == ErrNoLaneFound
}

func (e *noLaneError) Unwrap() error {
	return e.cause
}

// LaneInfo is a neighboring lane and its lateral distance from the vehicle's lane in meters.
type LaneInfo struct {
	LaneID          string  `json:"lane_id"`
	LateralDistance float64 `json:"lateral_distance"`
}

// LaneSnapshot is the lane selection of one planning cycle. It is rebuilt every cycle.
type LaneSnapshot struct {
	CurrentLaneID string
	Left          []LaneInfo
	Right         []LaneInfo
	// LeftErr and RightErr are set when that side could not be queried, leaving it empty.
	LeftErr  error
	RightErr error
}

// LaneSelector finds the lane the vehicle is in and ranks its neighbors.
type LaneSelector struct {
	svc     hdmap.Service
	timeout time.Duration
}

// NewLaneSelector returns a selector querying svc. Each query is bounded by timeout when it is
// positive.
func NewLaneSelector(svc hdmap.Service, timeout time.Duration) *LaneSelector {
	return &LaneSelector{svc: svc, timeout: timeout}
}

type answer[T any] struct {
	value T
	err   error
}

// query runs fn under the selector's deadline. A map service that does not return by then is
// abandoned and its late answer dropped.
func query[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	var cancel context.CancelFunc
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	done := make(chan answer[T], 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- answer[T]{err: errors.Errorf("map query panicked: %v", r)}
			}
		}()
		value, err := fn(ctx)
		done <- answer[T]{value: value, err: err}
	}()

	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case res := <-done:
		return res.value, res.err
	}
}

// CurrentLaneID returns the id of the lane containing pose. Any failure, including a map query
// error, matches ErrNoLaneFound.
func (s *LaneSelector) CurrentLaneID(ctx context.Context, pose spatialmath.Pose2D) (string, error) {
	id, err := query(ctx, s.timeout, func(ctx context.Context) (string, error) {
		return s.svc.LaneContaining(ctx, pose.Point())
	})
	if err == nil && id == "" {
		err = hdmap.ErrLaneNotFound
	}
	if err != nil {
		return "", &noLaneError{pose: pose, cause: err}
	}
	return id, nil
}

// NeighborLanes returns the lanes on one side of the lane containing pose, nearest first. Lanes
// at equal distance keep the map's order. A lane without neighbors on that side yields an empty
// slice.
func (s *LaneSelector) NeighborLanes(ctx context.Context, pose spatialmath.Pose2D, side hdmap.Side) ([]LaneInfo, error) {
	laneID, err := s.CurrentLaneID(ctx, pose)
	if err != nil {
		return nil, err
	}
	return s.neighborsOf(ctx, laneID, side)
}

// Refresh rebuilds the lane snapshot for pose. Failing neighbor queries leave that side empty,
// are recorded on the snapshot and are returned alongside it.
func (s *LaneSelector) Refresh(ctx context.Context, pose spatialmath.Pose2D) (LaneSnapshot, error) {
	laneID, err := s.CurrentLaneID(ctx, pose)
	if err != nil {
		return LaneSnapshot{}, err
	}
	snapshot := LaneSnapshot{CurrentLaneID: laneID, Left: []LaneInfo{}, Right: []LaneInfo{}}
	left, leftErr := s.neighborsOf(ctx, laneID, hdmap.SideLeft)
	if leftErr == nil {
		snapshot.Left = left
	}
	right, rightErr := s.neighborsOf(ctx, laneID, hdmap.SideRight)
	if rightErr == nil {
		snapshot.Right = right
	}
	snapshot.LeftErr, snapshot.RightErr = leftErr, rightErr
	return snapshot, multierr.Combine(leftErr, rightErr)
}

func (s *LaneSelector) neighborsOf(ctx context.Context, laneID string, side hdmap.Side) ([]LaneInfo, error) {
	neighbors, err := query(ctx, s.timeout, func(ctx context.Context) ([]hdmap.Neighbor, error) {
		return s.svc.NeighborsOf(ctx, laneID, side)
	})
	if err != nil {
		return nil, errors.Wrapf(err, "querying %s neighbors of lane %q", side, laneID)
	}
	infos := lo.Map(neighbors, func(n hdmap.Neighbor, _ int) LaneInfo {
		return LaneInfo{LaneID: n.LaneID, LateralDistance: n.LateralDistance}
	})
	sort.SliceStable(infos, func(i, j int) bool {
		return infos[i].LateralDistance < infos[j].LateralDistance
	})
	return infos, nil
}
