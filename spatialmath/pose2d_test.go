package spatialmath

import (
	"math"
	"testing"

	"github.com/golang/geo/r2"
	geo "github.com/kellydunn/golang-geo"
	"go.viam.com/test"
	"gonum.org/v1/gonum/num/quat"
)

func TestNormalizeAngle(t *testing.T) {
	test.That(t, NormalizeAngle(0), test.ShouldEqual, 0)
	test.That(t, NormalizeAngle(math.Pi), test.ShouldAlmostEqual, math.Pi)
	test.That(t, NormalizeAngle(-math.Pi), test.ShouldAlmostEqual, math.Pi)
	test.That(t, NormalizeAngle(3*math.Pi/2), test.ShouldAlmostEqual, -math.Pi/2)
	test.That(t, NormalizeAngle(-5*math.Pi/2), test.ShouldAlmostEqual, -math.Pi/2)
	test.That(t, math.IsNaN(NormalizeAngle(math.NaN())), test.ShouldBeTrue)
}

func TestPose2DFrames(t *testing.T) {
	pose := NewPose2D(10, 5, math.Pi/2)
	world := pose.ToWorld(r2.Point{X: 2, Y: 1})
	test.That(t, world.X, test.ShouldAlmostEqual, 9)
	test.That(t, world.Y, test.ShouldAlmostEqual, 7)

	local := pose.ToLocal(world)
	test.That(t, local.X, test.ShouldAlmostEqual, 2)
	test.That(t, local.Y, test.ShouldAlmostEqual, 1)

	test.That(t, pose.IsFinite(), test.ShouldBeTrue)
	test.That(t, Pose2D{X: math.Inf(1)}.IsFinite(), test.ShouldBeFalse)
	test.That(t, Pose2D{Theta: math.NaN()}.IsFinite(), test.ShouldBeFalse)
}

func TestYawFromQuaternion(t *testing.T) {
	half := math.Pi / 4
	// Rotation of π/2 about +Z.
	q := quat.Number{Real: math.Cos(half), Kmag: math.Sin(half)}
	test.That(t, YawFromQuaternion(q), test.ShouldAlmostEqual, math.Pi/2)
	test.That(t, YawFromQuaternion(quat.Number{Real: 1}), test.ShouldAlmostEqual, 0)
}

func TestGeoPointToPoint(t *testing.T) {
	origin := geo.NewPoint(40.7, -74.0)

	test.That(t, GeoPointToPoint(origin, origin), test.ShouldResemble, r2.Point{})

	north := GeoPointToPoint(geo.NewPoint(40.701, -74.0), origin)
	test.That(t, north.X, test.ShouldAlmostEqual, 0)
	test.That(t, north.Y, test.ShouldAlmostEqual, 111.2, 0.5)

	southWest := GeoPointToPoint(geo.NewPoint(40.699, -74.001), origin)
	test.That(t, southWest.X, test.ShouldBeLessThan, 0)
	test.That(t, southWest.Y, test.ShouldBeLessThan, 0)

	test.That(t, CompassToTheta(0), test.ShouldAlmostEqual, math.Pi/2)
	test.That(t, CompassToTheta(90), test.ShouldAlmostEqual, 0)
}
