package inject

import (
	"context"

	"github.com/golang/geo/r2"

	"github.com/openav/naviplan/hdmap"
)

// MapService is an injected lane topology service.
type MapService struct {
	hdmap.Service
	LaneContainingFunc func(ctx context.Context, pt r2.Point) (string, error)
	NeighborsOfFunc    func(ctx context.Context, laneID string, side hdmap.Side) ([]hdmap.Neighbor, error)
	LaneFunc           func(ctx context.Context, laneID string) (*hdmap.Lane, error)
}

// LaneContaining calls the injected LaneContaining or the real variant.
func (m *MapService) LaneContaining(ctx context.Context, pt r2.Point) (string, error) {
	if m.LaneContainingFunc == nil {
		return m.Service.LaneContaining(ctx, pt)
	}
	return m.LaneContainingFunc(ctx, pt)
}

// NeighborsOf calls the injected NeighborsOf or the real variant.
func (m *MapService) NeighborsOf(ctx context.Context, laneID string, side hdmap.Side) ([]hdmap.Neighbor, error) {
	if m.NeighborsOfFunc == nil {
		return m.Service.NeighborsOf(ctx, laneID, side)
	}
	return m.NeighborsOfFunc(ctx, laneID, side)
}

// Lane calls the injected Lane or the real variant.
func (m *MapService) Lane(ctx context.Context, laneID string) (*hdmap.Lane, error) {
	if m.LaneFunc == nil {
		return m.Service.Lane(ctx, laneID)
	}
	return m.LaneFunc(ctx, laneID)
}
