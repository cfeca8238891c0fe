package navi

import (
	"math"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r3"
	geo "github.com/kellydunn/golang-geo"
	"github.com/pkg/errors"
	"go.viam.com/test"
	"gonum.org/v1/gonum/num/quat"

	"github.com/openav/naviplan/services/planning"
)

func TestVehiclePoseTrackerContinuity(t *testing.T) {
	tracker := NewVehiclePoseTracker(clock.NewMock(), 0, nil)

	cfg, err := tracker.Update(nil)
	test.That(t, errors.Is(err, ErrDegradedPose), test.ShouldBeTrue)
	test.That(t, cfg.IsValid, test.ShouldBeFalse)
	test.That(t, tracker.Degraded(), test.ShouldBeTrue)

	cfg, err = tracker.Update(&planning.LocalizationEstimate{Position: r3.Vector{X: 10, Y: 2, Z: 0.5}, Heading: 3 * math.Pi})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg, test.ShouldResemble, VehicleConfig{X: 10, Y: 2, Heading: math.Pi, IsValid: true})
	test.That(t, tracker.Degraded(), test.ShouldBeFalse)

	cfg, err = tracker.Update(nil)
	test.That(t, errors.Is(err, ErrDegradedPose), test.ShouldBeTrue)
	test.That(t, cfg, test.ShouldResemble, VehicleConfig{X: 10, Y: 2, Heading: math.Pi, IsValid: true})
	test.That(t, tracker.LastValid(), test.ShouldResemble, cfg)
	test.That(t, tracker.Degraded(), test.ShouldBeTrue)
}

func TestVehiclePoseTrackerRejectsMalformed(t *testing.T) {
	tracker := NewVehiclePoseTracker(clock.NewMock(), 0, nil)
	_, err := tracker.Update(&planning.LocalizationEstimate{Position: r3.Vector{X: 1}})
	test.That(t, err, test.ShouldBeNil)

	for _, est := range []*planning.LocalizationEstimate{
		{Position: r3.Vector{X: math.NaN()}},
		{Position: r3.Vector{Y: math.Inf(1)}},
		{Heading: math.NaN()},
		{Geo: &planning.GeoFix{Lat: 40, Lng: -74}},
	} {
		cfg, err := tracker.Update(est)
		test.That(t, errors.Is(err, ErrDegradedPose), test.ShouldBeTrue)
		test.That(t, cfg, test.ShouldResemble, VehicleConfig{X: 1, IsValid: true})
	}
}

func TestVehiclePoseTrackerStaleness(t *testing.T) {
	mock := clock.NewMock()
	mock.Set(time.Unix(100, 0))
	tracker := NewVehiclePoseTracker(mock, 500*time.Millisecond, nil)

	fresh := &planning.LocalizationEstimate{Timestamp: mock.Now(), Position: r3.Vector{X: 5}}
	cfg, err := tracker.Update(fresh)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.X, test.ShouldEqual, 5)

	mock.Add(time.Second)
	stale := &planning.LocalizationEstimate{Timestamp: mock.Now().Add(-600 * time.Millisecond), Position: r3.Vector{X: 6}}
	cfg, err = tracker.Update(stale)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "old")
	test.That(t, cfg.X, test.ShouldEqual, 5)

	untimed := &planning.LocalizationEstimate{Position: r3.Vector{X: 7}}
	cfg, err = tracker.Update(untimed)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.X, test.ShouldEqual, 7)
}

func TestVehiclePoseTrackerOrientationAndGeo(t *testing.T) {
	origin := geo.NewPoint(40.7, -74.0)
	tracker := NewVehiclePoseTracker(clock.NewMock(), 0, origin)

	// A quarter turn about +Z.
	half := math.Pi / 4
	q := quat.Number{Real: math.Cos(half), Kmag: math.Sin(half)}
	cfg, err := tracker.Update(&planning.LocalizationEstimate{Position: r3.Vector{X: 1, Y: 1}, Heading: 3, Orientation: &q})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.Heading, test.ShouldAlmostEqual, math.Pi/2)

	// North of the origin, facing east.
	north := origin.PointAtDistanceAndBearing(0.1, 0)
	cfg, err = tracker.Update(&planning.LocalizationEstimate{
		Geo:            &planning.GeoFix{Lat: north.Lat(), Lng: north.Lng()},
		CompassHeading: 90,
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.X, test.ShouldAlmostEqual, 0, 1e-6)
	test.That(t, cfg.Y, test.ShouldAlmostEqual, 100, 0.5)
	test.That(t, cfg.Heading, test.ShouldAlmostEqual, 0)
}
