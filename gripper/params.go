package gripper

import "time"

// ControlParams tunes one slot's control pipeline. Gains are pushed into
// the slot's PID and slope instances when applied. The friction and
// backlash fields are calibration data carried for tooling; the control
// loop does not apply them.
type ControlParams struct {
	// Slope planner rates, in percent of travel per control period.
	SlopeIncreaseRate float64
	SlopeDecreaseRate float64
	SlopeRealFirst    bool

	// PID gains and bounds, operating on degrees.
	PIDKp          float64
	PIDKi          float64
	PIDKd          float64
	PIDOutputLimit float64
	PIDDeadZone    float64

	// Mechanical compensation scalars (advisory, not applied).
	StaticFrictionCompensation float64
	DynamicFrictionCoeff       float64
	BacklashCompensation       float64

	// MaxPositionError is the largest tolerated tracking error in
	// percent of travel.
	MaxPositionError float64

	// FeedbackTimeout is how long the slot may go without a successful
	// position read before it faults.
	FeedbackTimeout time.Duration

	// SafetyStopTimeout caps a single movement's duration. Configured
	// and surfaced, not yet enforced by the loop.
	SafetyStopTimeout time.Duration
}

// DefaultControlParams returns the factory tuning for a gripper slot.
func DefaultControlParams() ControlParams {
	return ControlParams{
		SlopeIncreaseRate: 2.0,
		SlopeDecreaseRate: 2.0,
		SlopeRealFirst:    true,

		PIDKp:          0.5,
		PIDKi:          0.1,
		PIDKd:          0.05,
		PIDOutputLimit: 10.0,
		PIDDeadZone:    0.5,

		StaticFrictionCompensation: 2.0,
		DynamicFrictionCoeff:       0.1,
		BacklashCompensation:       1.0,

		MaxPositionError:  5.0,
		FeedbackTimeout:   5 * time.Second,
		SafetyStopTimeout: 30 * time.Second,
	}
}
