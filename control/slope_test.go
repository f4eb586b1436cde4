package control

import (
	"math"
	"math/rand"
	"testing"

	"go.viam.com/test"
)

func TestSlopeRateBound(t *testing.T) {
	s := NewSlope(0.1, 0.25, false)
	rnd := rand.New(rand.NewSource(42))

	prev := s.Output()
	for i := 0; i < 500; i++ {
		if i%37 == 0 {
			s.SetTarget(rnd.Float64()*20 - 10)
		}
		s.Update()
		step := math.Abs(s.Output() - prev)
		test.That(t, step, test.ShouldBeLessThanOrEqualTo, 0.25+1e-9)
		prev = s.Output()
	}
}

func TestSlopeConvergence(t *testing.T) {
	for _, tc := range []struct {
		name   string
		target float64
		rate   float64
		ticks  int
	}{
		{"positive", 1.05, 0.1, 11},
		{"negative", -1.05, 0.1, 11},
		{"exact multiple", 1.0, 0.1, 10},
		{"single step", 0.05, 0.1, 1},
	} {
		t.Run(tc.name, func(t *testing.T) {
			s := NewSlope(tc.rate, tc.rate, false)
			s.SetTarget(tc.target)

			want := int(math.Ceil(math.Abs(tc.target) / tc.rate))
			test.That(t, want, test.ShouldEqual, tc.ticks)

			ticks := 0
			for s.Output() != tc.target {
				s.Update()
				ticks++
				test.That(t, ticks, test.ShouldBeLessThanOrEqualTo, tc.ticks)
			}
			test.That(t, ticks, test.ShouldEqual, tc.ticks)
			test.That(t, s.Output(), test.ShouldEqual, tc.target)

			// Converged output stays put.
			s.Update()
			test.That(t, s.Output(), test.ShouldEqual, tc.target)
		})
	}
}

func TestSlopeRealFirstAnchoring(t *testing.T) {
	s := NewSlope(0.1, 0.1, true)
	s.SetTarget(2.0)

	// Walk the cursor up to 1.5.
	for i := 0; i < 15; i++ {
		s.SetReal(s.Output())
		s.Update()
	}
	test.That(t, s.Output(), test.ShouldAlmostEqual, 1.5, 1e-9)

	// The measurement sits between the cursor and the target: the plan
	// re-anchors to 1.7 and still takes its rate step in the same tick.
	s.SetReal(1.7)
	s.Update()
	test.That(t, s.Output(), test.ShouldAlmostEqual, 1.8, 1e-9)
}

func TestSlopeRealFirstIgnoresOutliers(t *testing.T) {
	s := NewSlope(0.1, 0.1, true)
	s.SetTarget(2.0)
	for i := 0; i < 15; i++ {
		s.SetReal(s.Output())
		s.Update()
	}

	// A measurement outside the cursor-to-target segment must not move
	// the plan.
	s.SetReal(3.5)
	s.Update()
	test.That(t, s.Output(), test.ShouldAlmostEqual, 1.6, 1e-9)
}

func TestSlopeNegativeRamp(t *testing.T) {
	s := NewSlope(0.2, 0.1, false)

	// Accelerate negative: increase rate governs.
	s.SetTarget(-1.0)
	s.Update()
	test.That(t, s.Output(), test.ShouldAlmostEqual, -0.2, 1e-9)
	s.Update()
	test.That(t, s.Output(), test.ShouldAlmostEqual, -0.4, 1e-9)

	// Ramp back toward zero: decrease rate governs.
	s.SetTarget(0)
	s.Update()
	test.That(t, s.Output(), test.ShouldAlmostEqual, -0.3, 1e-9)
}

func TestSlopeAnchor(t *testing.T) {
	s := NewSlope(0.1, 0.1, false)

	// Ramping toward zero from an anchored cursor, instead of starting
	// already there.
	s.Anchor(1.0)
	s.SetTarget(0)
	s.Update()
	test.That(t, s.Output(), test.ShouldAlmostEqual, 0.9, 1e-9)

	for i := 0; i < 20; i++ {
		s.Update()
	}
	test.That(t, s.Output(), test.ShouldEqual, 0.0)
}

func TestSlopeReset(t *testing.T) {
	s := NewSlope(0.5, 0.5, true)
	s.SetTarget(3)
	s.SetReal(1)
	s.Update()
	test.That(t, s.Output(), test.ShouldNotEqual, 0.0)

	s.Reset()
	test.That(t, s.Output(), test.ShouldEqual, 0.0)
	test.That(t, s.Target(), test.ShouldEqual, 0.0)

	// Rates survive a reset.
	s.SetTarget(1)
	s.Update()
	test.That(t, s.Output(), test.ShouldAlmostEqual, 0.5, 1e-9)
}
