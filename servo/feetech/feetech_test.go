package feetech

import (
	"testing"

	"go.viam.com/test"
)

func TestTickConversion(t *testing.T) {
	test.That(t, ticksToDegrees(0), test.ShouldEqual, 0.0)
	test.That(t, ticksToDegrees(2048), test.ShouldEqual, 180.0)
	test.That(t, ticksToDegrees(4096), test.ShouldEqual, 360.0)

	test.That(t, degreesToTicks(0), test.ShouldEqual, 0)
	test.That(t, degreesToTicks(180), test.ShouldEqual, 2048)
	// Rounds to the nearest tick rather than truncating.
	test.That(t, degreesToTicks(0.05), test.ShouldEqual, 1)

	for _, angle := range []float64{0, 12.3, 90, 160, 240} {
		back := ticksToDegrees(degreesToTicks(angle))
		// One tick is under 0.09 degrees.
		test.That(t, back, test.ShouldAlmostEqual, angle, 360.0/ticksPerTurn)
	}
}
