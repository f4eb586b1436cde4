package gripper

import (
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"
)

func TestMappingValidate(t *testing.T) {
	for _, tc := range []struct {
		name    string
		mutate  func(m *Mapping)
		invalid bool
	}{
		{"factory defaults", func(m *Mapping) {}, false},
		{"closed angle above range", func(m *Mapping) { m.ClosedAngle = 241 }, true},
		{"open angle below range", func(m *Mapping) { m.OpenAngle = -1 }, true},
		{"min step too small", func(m *Mapping) { m.MinStep = 0.05 }, true},
		{"min step too large", func(m *Mapping) { m.MinStep = 60 }, true},
		{"range smaller than min step", func(m *Mapping) {
			m.ClosedAngle = 100
			m.OpenAngle = 102
		}, true},
		{"zero max speed", func(m *Mapping) { m.MaxSpeed = 0 }, true},
		{"reversed wide range", func(m *Mapping) {
			m.ClosedAngle = 30
			m.OpenAngle = 210
			m.ReverseDirection = true
		}, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			m := DefaultMapping()
			tc.mutate(&m)
			err := m.Validate()
			if tc.invalid {
				test.That(t, err, test.ShouldNotBeNil)
				test.That(t, errors.Is(err, ErrInvalidArgument), test.ShouldBeTrue)
			} else {
				test.That(t, err, test.ShouldBeNil)
			}
		})
	}
}

func TestMappingAngleToPercent(t *testing.T) {
	m := DefaultMapping() // closed 160, open 90

	test.That(t, m.AngleToPercent(160), test.ShouldAlmostEqual, 0)
	test.That(t, m.AngleToPercent(90), test.ShouldAlmostEqual, 100)
	test.That(t, m.AngleToPercent(125), test.ShouldAlmostEqual, 50)

	// Out-of-range angles clamp to the ends of travel.
	test.That(t, m.AngleToPercent(200), test.ShouldAlmostEqual, 0)
	test.That(t, m.AngleToPercent(10), test.ShouldAlmostEqual, 100)
}

func TestMappingPercentToAngle(t *testing.T) {
	m := DefaultMapping()

	test.That(t, m.PercentToAngle(0), test.ShouldAlmostEqual, 160)
	test.That(t, m.PercentToAngle(100), test.ShouldAlmostEqual, 90)
	test.That(t, m.PercentToAngle(50), test.ShouldAlmostEqual, 125)

	// Percent inputs clamp to [0, 100].
	test.That(t, m.PercentToAngle(-20), test.ShouldAlmostEqual, 160)
	test.That(t, m.PercentToAngle(130), test.ShouldAlmostEqual, 90)
}

func TestMappingRoundTrip(t *testing.T) {
	for _, m := range []Mapping{
		DefaultMapping(),
		{ClosedAngle: 30, OpenAngle: 210, MinStep: 5, MaxSpeed: 20},
		{ClosedAngle: 30, OpenAngle: 210, MinStep: 5, MaxSpeed: 20, ReverseDirection: true},
	} {
		for _, percent := range []float64{0, 12.5, 50, 99, 100} {
			angle := m.PercentToAngle(percent)
			test.That(t, m.AngleToPercent(angle), test.ShouldAlmostEqual, percent, 1e-9)
		}
	}
}

func TestMappingReverseDirection(t *testing.T) {
	m := DefaultMapping()
	m.ReverseDirection = true

	// Reversing swaps which end of the angle range is closed.
	test.That(t, m.AngleToPercent(160), test.ShouldAlmostEqual, 100)
	test.That(t, m.AngleToPercent(90), test.ShouldAlmostEqual, 0)
	test.That(t, m.PercentToAngle(0), test.ShouldAlmostEqual, 90)
	test.That(t, m.PercentToAngle(100), test.ShouldAlmostEqual, 160)
}

func TestMappingDegenerateRange(t *testing.T) {
	m := Mapping{ClosedAngle: 120, OpenAngle: 120.05, MinStep: 5, MaxSpeed: 20}
	test.That(t, m.AngleToPercent(120), test.ShouldAlmostEqual, 0)
	test.That(t, m.AngleToPercent(150), test.ShouldAlmostEqual, 0)
}
