// Package control implements the numeric building blocks of the gripper
// motion-control stack: a rate-limited slope planner and a PID controller.
// Blocks are plain values with no I/O; one instance serves one actuator and
// callers must serialize access to it.
package control

import "math"

// Slope is a rate-limited trajectory shaper. Each Update moves an internal
// planning cursor toward the target by at most one rate step, so downstream
// consumers see a smoothed trajectory instead of a setpoint jump.
//
// When real-first is enabled and the latest measured value sits between the
// planning cursor and the target, the cursor re-anchors to the measurement
// before stepping. This keeps the plan honest against the hardware without
// discarding planning continuity.
type Slope struct {
	increaseRate float64
	decreaseRate float64
	realFirst    bool

	target   float64
	planning float64
	real     float64
	output   float64
}

// NewSlope returns a slope planner with the given per-update rates.
// Rates are magnitudes; negative inputs are folded to positive.
func NewSlope(increaseRate, decreaseRate float64, realFirst bool) *Slope {
	return &Slope{
		increaseRate: math.Abs(increaseRate),
		decreaseRate: math.Abs(decreaseRate),
		realFirst:    realFirst,
	}
}

// SetTarget sets the value the planner ramps toward.
func (s *Slope) SetTarget(v float64) { s.target = v }

// SetReal feeds the planner the latest true measurement. Callers should do
// this once per update cycle, before Update.
func (s *Slope) SetReal(v float64) { s.real = v }

// SetIncreaseRate sets the per-update step used when accelerating away from
// zero or ramping toward a larger magnitude.
func (s *Slope) SetIncreaseRate(v float64) { s.increaseRate = math.Abs(v) }

// SetDecreaseRate sets the per-update step used when ramping back toward
// zero.
func (s *Slope) SetDecreaseRate(v float64) { s.decreaseRate = math.Abs(v) }

// SetRealFirst toggles re-anchoring to the measured value.
func (s *Slope) SetRealFirst(enable bool) { s.realFirst = enable }

// Anchor moves the planning cursor (and output) to v, so the next Update
// ramps from there. Use it when a plan starts from an arbitrary position
// rather than continuing a previous one.
func (s *Slope) Anchor(v float64) {
	s.planning = v
	s.output = v
}

// Target returns the current target.
func (s *Slope) Target() float64 { return s.target }

// Output returns the value planned by the last Update.
func (s *Slope) Output() float64 { return s.output }

// Update advances the plan by one control period. The output changes by at
// most one rate step per call, except that the final step snaps exactly onto
// the target so the plan never overshoots or oscillates around it.
func (s *Slope) Update() {
	out := s.planning

	if s.realFirst {
		// Re-anchor when the measurement lies on the segment between the
		// cursor and the target (either ordering). Planning continues from
		// the anchor in this same call.
		if (s.target >= s.real && s.real >= s.planning) ||
			(s.target <= s.real && s.real <= s.planning) {
			out = s.real
		}
	}

	switch {
	case s.planning > 0:
		if s.target > s.planning {
			if math.Abs(s.planning-s.target) > s.increaseRate {
				out += s.increaseRate
			} else {
				out = s.target
			}
		} else if s.target < s.planning {
			if math.Abs(s.planning-s.target) > s.decreaseRate {
				out -= s.decreaseRate
			} else {
				out = s.target
			}
		}
	case s.planning < 0:
		if s.target < s.planning {
			if math.Abs(s.planning-s.target) > s.increaseRate {
				out -= s.increaseRate
			} else {
				out = s.target
			}
		} else if s.target > s.planning {
			if math.Abs(s.planning-s.target) > s.decreaseRate {
				out += s.decreaseRate
			} else {
				out = s.target
			}
		}
	default:
		// At exactly zero the increase rate governs acceleration in either
		// direction.
		if s.target > s.planning {
			if math.Abs(s.planning-s.target) > s.increaseRate {
				out += s.increaseRate
			} else {
				out = s.target
			}
		} else if s.target < s.planning {
			if math.Abs(s.planning-s.target) > s.increaseRate {
				out -= s.increaseRate
			} else {
				out = s.target
			}
		}
	}

	s.output = out
	s.planning = out
}

// Reset zeroes the target, cursor, measurement and output. Rates and the
// real-first flag are preserved.
func (s *Slope) Reset() {
	s.target = 0
	s.planning = 0
	s.real = 0
	s.output = 0
}
