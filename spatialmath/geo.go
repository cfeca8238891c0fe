package spatialmath

import (
	"github.com/golang/geo/r2"
	geo "github.com/kellydunn/golang-geo"

	"github.com/openav/naviplan/utils"
)

// GetCartesianDistance returns the north-south and east-west distances in meters between two
// geopoints, measured along a parallel and a meridian through their corner point.
func GetCartesianDistance(p, q *geo.Point) (float64, float64) {
	corner := geo.NewPoint(p.Lat(), q.Lng())
	// GreatCircleDistance is in kilometers.
	distAlongLat := 1e3 * q.GreatCircleDistance(corner)
	distAlongLng := 1e3 * p.GreatCircleDistance(corner)
	return distAlongLat, distAlongLng
}

// GeoPointToPoint projects point onto the local east-north plane tangent at origin, in meters.
// The projection is linearized about origin, so it is only accurate near it.
func GeoPointToPoint(point, origin *geo.Point) r2.Point {
	north, east := GetCartesianDistance(origin, point)
	if point.Lat() < origin.Lat() {
		north = -north
	}
	if point.Lng() < origin.Lng() {
		east = -east
	}
	return r2.Point{X: east, Y: north}
}

// CompassToTheta converts a compass heading in degrees (0 north, clockwise) into a planar heading
// in radians (0 east, counter-clockwise).
func CompassToTheta(compassDeg float64) float64 {
	return NormalizeAngle(utils.DegToRad(90 - compassDeg))
}
