package gripper

import (
	"math"

	"github.com/pkg/errors"

	"github.com/sentry-robotics/armperiph/servo"
)

// Angle ranges below this many degrees are treated as degenerate by the
// percent conversion.
const minMappingRange = 0.1

// Mapping converts between a gripper's percent-of-travel scale and the
// underlying servo angle. Zero percent is the closed reference, one hundred
// the open one; ReverseDirection flips which end of the angle range each
// sits on.
type Mapping struct {
	ClosedAngle float64
	OpenAngle   float64
	// MinStep is the smallest mechanically meaningful angle step; the
	// closed/open range must span at least this much.
	MinStep float64
	// MaxSpeed is the default travel rate in percent per second, used to
	// derive movement durations when the caller gives none.
	MaxSpeed         float64
	ReverseDirection bool
	IsCalibrated     bool
}

// DefaultMapping returns the factory mapping for an uncalibrated gripper.
func DefaultMapping() Mapping {
	return Mapping{
		ClosedAngle: 160.0,
		OpenAngle:   90.0,
		MinStep:     5.0,
		MaxSpeed:    20.0,
	}
}

// Validate checks the mapping against the servo's mechanical limits.
func (m Mapping) Validate() error {
	if m.ClosedAngle < servo.MinAngle || m.ClosedAngle > servo.MaxAngle ||
		m.OpenAngle < servo.MinAngle || m.OpenAngle > servo.MaxAngle {
		return errors.Wrapf(ErrInvalidArgument,
			"angle range closed=%.1f open=%.1f outside [%.0f, %.0f]",
			m.ClosedAngle, m.OpenAngle, servo.MinAngle, servo.MaxAngle)
	}
	if m.MinStep < 0.1 || m.MinStep > 50.0 {
		return errors.Wrapf(ErrInvalidArgument, "min step %.2f outside [0.1, 50]", m.MinStep)
	}
	if math.Abs(m.ClosedAngle-m.OpenAngle) < m.MinStep {
		return errors.Wrapf(ErrInvalidArgument,
			"angle range %.1f° smaller than min step %.1f°",
			math.Abs(m.ClosedAngle-m.OpenAngle), m.MinStep)
	}
	if m.MaxSpeed <= 0 {
		return errors.Wrapf(ErrInvalidArgument, "max speed %.1f must be positive", m.MaxSpeed)
	}
	return nil
}

// AngleToPercent converts a shaft angle to percent of travel, clamped to
// [0, 100]. A degenerate (near-zero) angle range yields 0.
func (m Mapping) AngleToPercent(angle float64) float64 {
	rng := m.OpenAngle - m.ClosedAngle
	if math.Abs(rng) < minMappingRange {
		return 0
	}
	var percent float64
	if m.ReverseDirection {
		percent = (m.OpenAngle - angle) / rng * 100.0
	} else {
		percent = (angle - m.ClosedAngle) / rng * 100.0
	}
	return clamp(percent, 0, 100)
}

// PercentToAngle converts percent of travel to a shaft angle, clamped to
// the servo's mechanical range.
func (m Mapping) PercentToAngle(percent float64) float64 {
	percent = clamp(percent, 0, 100)
	rng := m.OpenAngle - m.ClosedAngle
	var angle float64
	if m.ReverseDirection {
		angle = m.OpenAngle - percent/100.0*rng
	} else {
		angle = m.ClosedAngle + percent/100.0*rng
	}
	return clamp(angle, servo.MinAngle, servo.MaxAngle)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
