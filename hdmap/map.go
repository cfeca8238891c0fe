package hdmap

import (
	"context"
	"math"
	"sync"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// ErrLaneNotFound is returned when a point lies outside every lane or a lane id is unknown.
var ErrLaneNotFound = errors.New("lane not found")

// Service answers lane topology queries. Implementations must be safe for concurrent use and
// must report missing lanes with an error wrapping ErrLaneNotFound.
type Service interface {
	// LaneContaining returns the id of the lane whose polygon contains pt.
	LaneContaining(ctx context.Context, pt r2.Point) (string, error)
	// NeighborsOf returns every lane reachable from laneID by repeatedly stepping to the given
	// side, in breadth-first enumeration order.
	NeighborsOf(ctx context.Context, laneID string, side Side) ([]Neighbor, error)
	// Lane returns a copy of the lane with the given id.
	Lane(ctx context.Context, laneID string) (*Lane, error)
}

// Map is an in-memory Service. Its lanes can be replaced atomically while it is being queried.
type Map struct {
	mu    sync.RWMutex
	lanes map[string]*Lane
	order []string
}

var _ Service = (*Map)(nil)

// NewMap validates the lanes and builds a map from them.
func NewMap(lanes []*Lane) (*Map, error) {
	m := &Map{}
	if err := m.Replace(lanes); err != nil {
		return nil, err
	}
	return m, nil
}

// Replace swaps the whole lane set. On error the previous lanes are kept.
func (m *Map) Replace(lanes []*Lane) error {
	byID := make(map[string]*Lane, len(lanes))
	order := make([]string, 0, len(lanes))
	for _, lane := range lanes {
		lane = lane.clone()
		if err := lane.validate(); err != nil {
			return err
		}
		if _, ok := byID[lane.ID]; ok {
			return errors.Errorf("duplicate lane id %q", lane.ID)
		}
		byID[lane.ID] = lane
		order = append(order, lane.ID)
	}
	for _, lane := range byID {
		for _, id := range lo.Flatten([][]string{lane.LeftNeighbors, lane.RightNeighbors}) {
			if _, ok := byID[id]; !ok {
				return errors.Errorf("lane %q references unknown neighbor %q", lane.ID, id)
			}
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.lanes = byID
	m.order = order
	return nil
}

// LaneIDs returns the lane ids in file order.
func (m *Map) LaneIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.order...)
}

// LaneContaining returns the lane containing pt. Where lane polygons overlap, the lane whose
// centerline is closest wins.
func (m *Map) LaneContaining(ctx context.Context, pt r2.Point) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	found := ""
	bestDist := math.Inf(1)
	for _, id := range m.order {
		lane := m.lanes[id]
		if !lane.Contains(pt) {
			continue
		}
		if dist := math.Abs(lane.Project(pt).Lateral); dist < bestDist {
			found, bestDist = id, dist
		}
	}
	if found == "" {
		return "", errors.Wrapf(ErrLaneNotFound, "no lane contains (%.3f, %.3f)", pt.X, pt.Y)
	}
	return found, nil
}

// NeighborsOf walks the adjacency graph on one side of laneID. Lateral distances are measured
// from the middle of laneID's centerline.
func (m *Map) NeighborsOf(ctx context.Context, laneID string, side Side) ([]Neighbor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	origin, ok := m.lanes[laneID]
	if !ok {
		return nil, errors.Wrapf(ErrLaneNotFound, "unknown lane %q", laneID)
	}
	ref := origin.midpoint()

	visited := map[string]bool{laneID: true}
	queue := append([]string(nil), origin.neighbors(side)...)
	var found []string
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if visited[id] {
			continue
		}
		visited[id] = true
		found = append(found, id)
		queue = append(queue, m.lanes[id].neighbors(side)...)
	}

	return lo.Map(found, func(id string, _ int) Neighbor {
		return Neighbor{
			LaneID:          id,
			LateralDistance: math.Abs(m.lanes[id].Project(ref).Lateral),
		}
	}), nil
}

// Lane returns a copy of the lane so callers cannot mutate the map.
func (m *Map) Lane(ctx context.Context, laneID string) (*Lane, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	lane, ok := m.lanes[laneID]
	if !ok {
		return nil, errors.Wrapf(ErrLaneNotFound, "unknown lane %q", laneID)
	}
	return lane.clone(), nil
}
