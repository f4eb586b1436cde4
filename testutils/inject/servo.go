// Package inject provides dependency-injected fakes for tests.
package inject

import (
	"context"
	"time"

	"github.com/sentry-robotics/armperiph/servo"
)

// ServoTransport is an injected servo transport.
type ServoTransport struct {
	servo.Transport
	PositionFunc        func(ctx context.Context, id int) (float64, error)
	MoveFunc            func(ctx context.Context, id int, angle float64, duration time.Duration) error
	TemperatureFunc     func(ctx context.Context, id int) (int, error)
	VoltageFunc         func(ctx context.Context, id int) (float64, error)
	LoadEnabledFunc     func(ctx context.Context, id int) (bool, error)
	SetLoadEnabledFunc  func(ctx context.Context, id int, enabled bool) error
	ModeAndSpeedFunc    func(ctx context.Context, id int) (servo.WorkMode, int, error)
	SetModeAndSpeedFunc func(ctx context.Context, id int, mode servo.WorkMode, speed int) error
}

// Position calls the injected Position or the real version.
func (s *ServoTransport) Position(ctx context.Context, id int) (float64, error) {
	if s.PositionFunc == nil {
		return s.Transport.Position(ctx, id)
	}
	return s.PositionFunc(ctx, id)
}

// Move calls the injected Move or the real version.
func (s *ServoTransport) Move(ctx context.Context, id int, angle float64, duration time.Duration) error {
	if s.MoveFunc == nil {
		return s.Transport.Move(ctx, id, angle, duration)
	}
	return s.MoveFunc(ctx, id, angle, duration)
}

// Temperature calls the injected Temperature or the real version.
func (s *ServoTransport) Temperature(ctx context.Context, id int) (int, error) {
	if s.TemperatureFunc == nil {
		return s.Transport.Temperature(ctx, id)
	}
	return s.TemperatureFunc(ctx, id)
}

// Voltage calls the injected Voltage or the real version.
func (s *ServoTransport) Voltage(ctx context.Context, id int) (float64, error) {
	if s.VoltageFunc == nil {
		return s.Transport.Voltage(ctx, id)
	}
	return s.VoltageFunc(ctx, id)
}

// LoadEnabled calls the injected LoadEnabled or the real version.
func (s *ServoTransport) LoadEnabled(ctx context.Context, id int) (bool, error) {
	if s.LoadEnabledFunc == nil {
		return s.Transport.LoadEnabled(ctx, id)
	}
	return s.LoadEnabledFunc(ctx, id)
}

// SetLoadEnabled calls the injected SetLoadEnabled or the real version.
func (s *ServoTransport) SetLoadEnabled(ctx context.Context, id int, enabled bool) error {
	if s.SetLoadEnabledFunc == nil {
		return s.Transport.SetLoadEnabled(ctx, id, enabled)
	}
	return s.SetLoadEnabledFunc(ctx, id, enabled)
}

// ModeAndSpeed calls the injected ModeAndSpeed or the real version.
func (s *ServoTransport) ModeAndSpeed(ctx context.Context, id int) (servo.WorkMode, int, error) {
	if s.ModeAndSpeedFunc == nil {
		return s.Transport.ModeAndSpeed(ctx, id)
	}
	return s.ModeAndSpeedFunc(ctx, id)
}

// SetModeAndSpeed calls the injected SetModeAndSpeed or the real version.
func (s *ServoTransport) SetModeAndSpeed(ctx context.Context, id int, mode servo.WorkMode, speed int) error {
	if s.SetModeAndSpeedFunc == nil {
		return s.Transport.SetModeAndSpeed(ctx, id, mode, speed)
	}
	return s.SetModeAndSpeedFunc(ctx, id, mode, speed)
}
