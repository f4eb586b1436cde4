package gripper

import "time"

// State is the lifecycle state of a gripper slot.
type State uint8

// The slot states.
const (
	StateIdle State = iota
	StateMoving
	StateHolding
	StateError
	StateCalibrating
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateMoving:
		return "MOVING"
	case StateHolding:
		return "HOLDING"
	case StateError:
		return "ERROR"
	case StateCalibrating:
		return "CALIBRATING"
	default:
		return "UNKNOWN"
	}
}

// Mode selects the control algorithm for a slot.
type Mode uint8

// The control modes. Force control is reserved: it is selectable but has no
// algorithm yet, and movement requests in it are rejected.
const (
	ModeOpenLoop Mode = iota
	ModeClosedLoop
	ModeForceControl
)

// String implements fmt.Stringer.
func (m Mode) String() string {
	switch m {
	case ModeOpenLoop:
		return "OPEN_LOOP"
	case ModeClosedLoop:
		return "CLOSED_LOOP"
	case ModeForceControl:
		return "FORCE_CONTROL"
	default:
		return "UNKNOWN"
	}
}

// Reference names a mapping anchor for calibration.
type Reference uint8

// The calibration references.
const (
	ReferenceClosed Reference = iota
	ReferenceOpen
)

// String implements fmt.Stringer.
func (r Reference) String() string {
	switch r {
	case ReferenceClosed:
		return "closed"
	case ReferenceOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Status is a point-in-time snapshot of one gripper slot.
type Status struct {
	ServoID int
	State   State
	Mode    Mode

	// Position, as a percent of travel (0 = closed, 100 = open) and as
	// shaft angles in degrees. HardwareAngle is the raw encoder reading;
	// CurrentAngle tracks it while feedback is valid.
	CurrentPercent float64
	TargetPercent  float64
	CurrentAngle   float64
	HardwareAngle  float64

	// Movement bookkeeping.
	IsMoving         bool
	MovementProgress float64
	MovementStart    time.Time
	MovementDuration time.Duration

	// Feedback freshness.
	FeedbackValid bool
	LastFeedback  time.Time

	// Tracking diagnostics, in percent of travel.
	PositionError    float64
	MaxPositionError float64

	TotalMovements uint32
	LastUpdate     time.Time
}
