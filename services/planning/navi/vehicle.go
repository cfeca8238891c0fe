package navi

import (
	"time"

	"github.com/benbjohnson/clock"
	geo "github.com/kellydunn/golang-geo"
	"github.com/pkg/errors"

	"github.com/openav/naviplan/services/planning"
	"github.com/openav/naviplan/spatialmath"
)

// ErrDegradedPose marks a cycle that had no usable localization sample.
var ErrDegradedPose = errors.New("degraded vehicle pose")

// VehicleConfig is the vehicle pose as seen by one planning cycle. IsValid stays false until a
// localization sample has been converted successfully.
type VehicleConfig struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Heading float64 `json:"heading"`
	IsValid bool    `json:"is_valid"`
}

// Pose returns the config as a planar pose.
func (c VehicleConfig) Pose() spatialmath.Pose2D {
	return spatialmath.Pose2D{X: c.X, Y: c.Y, Theta: c.Heading}
}

// VehiclePoseTracker converts localization samples into VehicleConfigs and keeps the last valid
// one across cycles without fresh localization. It is owned by the planning cycle and is not
// safe for concurrent use.
type VehiclePoseTracker struct {
	clk    clock.Clock
	maxAge time.Duration
	origin *geo.Point

	last     VehicleConfig
	degraded bool
}

// NewVehiclePoseTracker returns a tracker that rejects samples older than maxAge, zero disabling
// the check. origin is required to accept GNSS fixes and may be nil otherwise.
func NewVehiclePoseTracker(clk clock.Clock, maxAge time.Duration, origin *geo.Point) *VehiclePoseTracker {
	return &VehiclePoseTracker{clk: clk, maxAge: maxAge, origin: origin}
}

// Update converts est. When est is missing, stale or malformed it returns the retained config,
// which is invalid if no sample was ever accepted, along with an error wrapping ErrDegradedPose.
func (t *VehiclePoseTracker) Update(est *planning.LocalizationEstimate) (VehicleConfig, error) {
	pose, err := t.convert(est)
	if err != nil {
		t.degraded = true
		return t.last, errors.Wrap(ErrDegradedPose, err.Error())
	}
	t.degraded = false
	t.last = VehicleConfig{X: pose.X, Y: pose.Y, Heading: pose.Theta, IsValid: true}
	return t.last, nil
}

// LastValid returns the most recently accepted config.
func (t *VehiclePoseTracker) LastValid() VehicleConfig {
	return t.last
}

// Degraded reports whether the last Update fell back to the retained config.
func (t *VehiclePoseTracker) Degraded() bool {
	return t.degraded
}

func (t *VehiclePoseTracker) convert(est *planning.LocalizationEstimate) (spatialmath.Pose2D, error) {
	if est == nil {
		return spatialmath.Pose2D{}, errors.New("no localization received")
	}
	// Untimed samples cannot be aged and are accepted as is.
	if t.maxAge > 0 && !est.Timestamp.IsZero() {
		if age := t.clk.Since(est.Timestamp); age > t.maxAge {
			return spatialmath.Pose2D{}, errors.Errorf("localization is %s old, limit is %s", age, t.maxAge)
		}
	}

	var pose spatialmath.Pose2D
	switch {
	case est.Geo != nil:
		if t.origin == nil {
			return spatialmath.Pose2D{}, errors.New("received a GNSS fix but no origin is configured")
		}
		pt := spatialmath.GeoPointToPoint(est.Geo.Point(), t.origin)
		pose = spatialmath.NewPose2D(pt.X, pt.Y, spatialmath.CompassToTheta(est.CompassHeading))
	case est.Orientation != nil:
		pose = spatialmath.NewPose2DFromVector(est.Position, spatialmath.YawFromQuaternion(*est.Orientation))
	default:
		pose = spatialmath.NewPose2DFromVector(est.Position, est.Heading)
	}
	if !pose.IsFinite() {
		return spatialmath.Pose2D{}, errors.Errorf("localization is not finite: %v", pose)
	}
	return pose, nil
}
