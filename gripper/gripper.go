// Package gripper implements the motion-control orchestrator for the
// serial-bus servo grippers of the manipulator. Each gripper slot pairs a
// slope planner with a PID controller; a fixed-rate loop reads hardware
// feedback, advances the planned trajectory and streams short-horizon move
// commands to the servo transport.
package gripper

import (
	"time"

	"github.com/pkg/errors"
)

// MaxGrippers is the fixed capacity of the slot table.
const MaxGrippers = 4

const (
	// DefaultFrequency is the control loop rate in Hz.
	DefaultFrequency = 20.0
	// maxFrequency bounds configurable loop rates.
	maxFrequency = 200.0

	// ControlPrecision is the percent tolerance at which a movement
	// counts as complete.
	ControlPrecision = 0.5

	// percentEpsilon is the tolerance for "planner has converged on the
	// target".
	percentEpsilon = 0.1
)

// Lock acquisition bounds. The tick wait is short so a stuck caller costs
// the loop one cycle per slot, not its schedule.
const (
	apiLockWait   = 100 * time.Millisecond
	queryLockWait = 50 * time.Millisecond
	tickLockWait  = 10 * time.Millisecond
)

var (
	// ErrInvalidArgument is returned for bad servo IDs and out-of-range
	// percents, angles or mapping parameters. The operation leaves no
	// state change behind.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrLockTimeout is returned when the controller lock could not be
	// acquired within its bounded wait. The operation did not run;
	// callers may retry.
	ErrLockTimeout = errors.New("controller lock acquisition timed out")

	// ErrUnimplementedMode is returned when a movement is requested in a
	// mode with no control algorithm (force control is reserved).
	ErrUnimplementedMode = errors.New("control mode not implemented")
)
