package utils

import (
	"testing"
	"time"

	"go.viam.com/test"
)

func TestAssertType(t *testing.T) {
	attrs, err := AssertType[map[string]any](map[string]any{"points": 3})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, attrs["points"], test.ShouldEqual, 3)

	_, err = AssertType[map[string]any]("points")
	test.That(t, err, test.ShouldBeError, NewUnexpectedTypeError[map[string]any]("points"))
	test.That(t, err.Error(), test.ShouldEqual, "expected map[string]interface {} but got string")
}

func TestGuard(t *testing.T) {
	cleaned := 0
	func() {
		guard := NewGuard(func() { cleaned++ })
		defer guard.OnFail()
	}()
	test.That(t, cleaned, test.ShouldEqual, 1)

	func() {
		guard := NewGuard(func() { cleaned++ })
		defer guard.OnFail()
		guard.Success()
	}()
	test.That(t, cleaned, test.ShouldEqual, 1)
}

func TestRollingAverage(t *testing.T) {
	ra := NewRollingAverage(3)
	test.That(t, ra.NumSamples(), test.ShouldEqual, 3)
	test.That(t, ra.Average(), test.ShouldEqual, time.Duration(0))

	ra.Add(10 * time.Millisecond)
	test.That(t, ra.Average(), test.ShouldEqual, 10*time.Millisecond)
	ra.Add(20 * time.Millisecond)
	ra.Add(30 * time.Millisecond)
	test.That(t, ra.Average(), test.ShouldEqual, 20*time.Millisecond)
	ra.Add(60 * time.Millisecond)
	test.That(t, ra.Average(), test.ShouldEqual, 110*time.Millisecond/3)
}

func TestMath(t *testing.T) {
	test.That(t, RadToDeg(DegToRad(90)), test.ShouldAlmostEqual, 90)
	test.That(t, Square(-3), test.ShouldEqual, 9)
	test.That(t, Clamp(5, 0, 1), test.ShouldEqual, 1)
	test.That(t, Clamp(-5, 0, 1), test.ShouldEqual, 0)
}
