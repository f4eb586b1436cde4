// Package servo defines the transport capability for a serial-bus servo.
// Implementations own the wire protocol; consumers (the gripper orchestrator
// and the command layer above it) only see positions in degrees and move
// requests with a duration.
package servo

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// Bus servos position within a 0..240 degree range and accept move windows
// between 20ms and 30s.
const (
	MinAngle = 0.0
	MaxAngle = 240.0

	MinMoveDuration = 20 * time.Millisecond
	MaxMoveDuration = 30 * time.Second
)

// ErrUnsupported is returned by transports that do not expose a given
// capability (for example diagnostics on a write-only bus).
var ErrUnsupported = errors.New("operation not supported by this servo transport")

// WorkMode selects between position (servo) and continuous-rotation (motor)
// operation.
type WorkMode uint8

// The supported work modes.
const (
	WorkModeServo WorkMode = iota
	WorkModeMotor
)

// String implements fmt.Stringer.
func (m WorkMode) String() string {
	switch m {
	case WorkModeServo:
		return "SERVO"
	case WorkModeMotor:
		return "MOTOR"
	default:
		return "UNKNOWN"
	}
}

// Transport is the capability a serial-bus servo exposes upward. A single
// failed call means "no data this cycle", never a fatal bus condition;
// callers decide how stale is too stale.
type Transport interface {
	// Position reads the current shaft angle in degrees.
	Position(ctx context.Context, id int) (float64, error)

	// Move commands the shaft to angle over the given window. The angle
	// must be within [MinAngle, MaxAngle] and the duration within
	// [MinMoveDuration, MaxMoveDuration].
	Move(ctx context.Context, id int, angle float64, duration time.Duration) error

	// Temperature reads the winding temperature in °C.
	Temperature(ctx context.Context, id int) (int, error)

	// Voltage reads the bus voltage in volts.
	Voltage(ctx context.Context, id int) (float64, error)

	// LoadEnabled reports whether the servo is holding torque.
	LoadEnabled(ctx context.Context, id int) (bool, error)

	// SetLoadEnabled engages or releases torque.
	SetLoadEnabled(ctx context.Context, id int, enabled bool) error

	// ModeAndSpeed reads the work mode and, in motor mode, the signed
	// rotation speed in [-1000, 1000].
	ModeAndSpeed(ctx context.Context, id int) (WorkMode, int, error)

	// SetModeAndSpeed sets the work mode and motor-mode speed.
	SetModeAndSpeed(ctx context.Context, id int, mode WorkMode, speed int) error
}

// ValidateAngle checks that angle is a commandable shaft position.
func ValidateAngle(angle float64) error {
	if angle < MinAngle || angle > MaxAngle {
		return errors.Errorf("angle %.1f out of range [%.0f, %.0f]", angle, MinAngle, MaxAngle)
	}
	return nil
}

// ValidateMoveDuration checks that d is an acceptable move window.
func ValidateMoveDuration(d time.Duration) error {
	if d < MinMoveDuration || d > MaxMoveDuration {
		return errors.Errorf("move duration %v out of range [%v, %v]", d, MinMoveDuration, MaxMoveDuration)
	}
	return nil
}

// ValidateSpeed checks a motor-mode speed value.
func ValidateSpeed(speed int) error {
	if speed < -1000 || speed > 1000 {
		return errors.Errorf("speed %d out of range [-1000, 1000]", speed)
	}
	return nil
}
