package hdmap

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"go.viam.com/test"
)

func readStraightRoad(t *testing.T) *Map {
	t.Helper()
	m, err := ReadMap("testdata/straight_road.json5")
	test.That(t, err, test.ShouldBeNil)
	return m
}

func TestReadMap(t *testing.T) {
	m := readStraightRoad(t)
	test.That(t, m.LaneIDs(), test.ShouldResemble, []string{"right_1", "center", "left_1", "left_2"})

	lane, err := m.Lane(context.Background(), "center")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, lane.SpeedLimit, test.ShouldEqual, 20)
	test.That(t, lane.Length(), test.ShouldAlmostEqual, 100)

	// Mutating the copy leaves the map untouched.
	lane.Centerline[0] = r2.Point{X: -1, Y: -1}
	again, err := m.Lane(context.Background(), "center")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, again.Centerline[0], test.ShouldResemble, r2.Point{})

	_, err = ReadMap("testdata/missing.json5")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestNewMapValidation(t *testing.T) {
	square := []r2.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}}
	line := []r2.Point{{X: 0, Y: 0.5}, {X: 1, Y: 0.5}}

	_, err := NewMap([]*Lane{{ID: "a", Boundary: square[:2], Centerline: line}})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "boundary")

	_, err = NewMap([]*Lane{{ID: "a", Boundary: square, Centerline: line[:1]}})
	test.That(t, err.Error(), test.ShouldContainSubstring, "centerline")

	_, err = NewMap([]*Lane{
		{ID: "a", Boundary: square, Centerline: line},
		{ID: "a", Boundary: square, Centerline: line},
	})
	test.That(t, err.Error(), test.ShouldContainSubstring, "duplicate")

	_, err = NewMap([]*Lane{{ID: "a", Boundary: square, Centerline: line, LeftNeighbors: []string{"ghost"}}})
	test.That(t, err.Error(), test.ShouldContainSubstring, "ghost")

	m, err := NewMap([]*Lane{{ID: "a", Boundary: square, Centerline: line}})
	test.That(t, err, test.ShouldBeNil)
	// A failed replace keeps the old lanes.
	test.That(t, m.Replace([]*Lane{{ID: ""}}), test.ShouldNotBeNil)
	test.That(t, m.LaneIDs(), test.ShouldResemble, []string{"a"})
}

func TestLaneContaining(t *testing.T) {
	m := readStraightRoad(t)
	ctx := context.Background()

	id, err := m.LaneContaining(ctx, r2.Point{X: 10, Y: 0})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, id, test.ShouldEqual, "center")

	id, err = m.LaneContaining(ctx, r2.Point{X: 60, Y: 7.5})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, id, test.ShouldEqual, "left_2")

	// A point on a shared edge belongs to the lane above it.
	id, err = m.LaneContaining(ctx, r2.Point{X: 10, Y: 1.75})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, id, test.ShouldEqual, "left_1")

	_, err = m.LaneContaining(ctx, r2.Point{X: 10, Y: 50})
	test.That(t, errors.Is(err, ErrLaneNotFound), test.ShouldBeTrue)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = m.LaneContaining(cancelled, r2.Point{X: 10, Y: 0})
	test.That(t, errors.Is(err, context.Canceled), test.ShouldBeTrue)
}

func TestNeighborsOf(t *testing.T) {
	m := readStraightRoad(t)
	ctx := context.Background()

	left, err := m.NeighborsOf(ctx, "center", SideLeft)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, left, test.ShouldHaveLength, 2)
	test.That(t, left[0].LaneID, test.ShouldEqual, "left_1")
	test.That(t, left[0].LateralDistance, test.ShouldAlmostEqual, 3.5)
	test.That(t, left[1].LaneID, test.ShouldEqual, "left_2")
	test.That(t, left[1].LateralDistance, test.ShouldAlmostEqual, 7)

	right, err := m.NeighborsOf(ctx, "left_2", SideRight)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(right), test.ShouldEqual, 3)
	test.That(t, right[2].LaneID, test.ShouldEqual, "right_1")
	test.That(t, right[2].LateralDistance, test.ShouldAlmostEqual, 10.5)

	none, err := m.NeighborsOf(ctx, "right_1", SideRight)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, none, test.ShouldBeEmpty)

	_, err = m.NeighborsOf(ctx, "ghost", SideLeft)
	test.That(t, errors.Is(err, ErrLaneNotFound), test.ShouldBeTrue)
}

func TestLaneProjection(t *testing.T) {
	m := readStraightRoad(t)
	lane, err := m.Lane(context.Background(), "center")
	test.That(t, err, test.ShouldBeNil)

	proj := lane.Project(r2.Point{X: 75, Y: 1})
	test.That(t, proj.Station, test.ShouldAlmostEqual, 75)
	test.That(t, proj.Lateral, test.ShouldAlmostEqual, 1)
	test.That(t, proj.Heading, test.ShouldAlmostEqual, 0)

	proj = lane.Project(r2.Point{X: 20, Y: -1})
	test.That(t, proj.Lateral, test.ShouldAlmostEqual, -1)

	pt, heading := lane.PointAt(130)
	test.That(t, pt, test.ShouldResemble, r2.Point{X: 100, Y: 0})
	test.That(t, heading, test.ShouldAlmostEqual, 0)

	pt, _ = lane.PointAt(-5)
	test.That(t, pt, test.ShouldResemble, r2.Point{X: 0, Y: 0})

	test.That(t, lane.Contains(r2.Point{X: 50, Y: 0}), test.ShouldBeTrue)
	test.That(t, lane.Contains(r2.Point{X: 50, Y: 2}), test.ShouldBeFalse)
	test.That(t, math.IsInf(lane.Project(r2.Point{}).Lateral, 0), test.ShouldBeFalse)
	test.That(t, SideLeft.String(), test.ShouldEqual, "left")
}
