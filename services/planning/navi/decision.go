package navi

import (
	"github.com/openav/naviplan/services/planning"
)

// decideTarget applies a freshly drained action to the lane selection and returns the lane to
// track. ok is false when the action could not be carried out, in which case target is returned
// unchanged.
//
//	follow        the current lane
//	change_left   the nearest left neighbor
//	change_right  the nearest right neighbor
//	pull_over     the farthest right neighbor, or the current lane on the rightmost lane
//	stop          unchanged
func decideTarget(action planning.DrivingAction, lanes LaneSnapshot, target string) (string, bool) {
	switch action {
	case planning.ActionFollow:
		return lanes.CurrentLaneID, true
	case planning.ActionChangeLeft:
		if len(lanes.Left) == 0 {
			return target, false
		}
		return lanes.Left[0].LaneID, true
	case planning.ActionChangeRight:
		if len(lanes.Right) == 0 {
			return target, false
		}
		return lanes.Right[0].LaneID, true
	case planning.ActionPullOver:
		if len(lanes.Right) == 0 {
			return lanes.CurrentLaneID, true
		}
		return lanes.Right[len(lanes.Right)-1].LaneID, true
	case planning.ActionStop:
		return target, true
	default:
		return target, false
	}
}

// neighborsKnown reports whether the neighbor list action depends on was queried successfully.
// An empty list only means there is no such lane when it was.
func neighborsKnown(action planning.DrivingAction, lanes LaneSnapshot) bool {
	switch action {
	case planning.ActionChangeLeft:
		return lanes.LeftErr == nil
	case planning.ActionChangeRight, planning.ActionPullOver:
		return lanes.RightErr == nil
	default:
		return true
	}
}
