// Package feetech adapts a feetech serial-bus servo chain to the
// servo.Transport capability. Wire framing stays inside the feetech
// library; this package only converts between degrees and raw ticks.
package feetech

import (
	"context"
	"sync"
	"time"

	"github.com/edaniels/golog"
	"github.com/hipsterbrown/feetech-servo/feetech"
	"github.com/pkg/errors"

	"github.com/sentry-robotics/armperiph/servo"
)

const (
	defaultBaudRate = 1_000_000
	defaultTimeout  = 100 * time.Millisecond

	// STS-series servos report 4096 ticks per full turn.
	ticksPerTurn = 4096
)

// Config describes the serial bus to open.
type Config struct {
	// Port is the serial device path, e.g. /dev/ttyUSB0.
	Port string
	// BaudRate defaults to 1MBaud when zero.
	BaudRate int
	// ScanLow and ScanHigh bound the bus scan used to discover servos.
	ScanLow  int
	ScanHigh int
}

// Transport is a servo.Transport over a feetech bus.
type Transport struct {
	logger golog.Logger
	bus    *feetech.Bus

	mu          sync.Mutex
	servos      map[int]*feetech.Servo
	loadEnabled map[int]bool
}

// New opens the bus, scans for servos in the configured ID window and
// returns a transport serving them.
func New(ctx context.Context, cfg Config, logger golog.Logger) (*Transport, error) {
	baud := cfg.BaudRate
	if baud == 0 {
		baud = defaultBaudRate
	}
	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     cfg.Port,
		BaudRate: baud,
		Protocol: feetech.ProtocolSTS,
		Timeout:  defaultTimeout,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "open servo bus on %s", cfg.Port)
	}

	found, err := bus.Scan(ctx, cfg.ScanLow, cfg.ScanHigh)
	if err != nil {
		if closeErr := bus.Close(); closeErr != nil {
			logger.Errorw("closing bus after failed scan", "error", closeErr)
		}
		return nil, errors.Wrap(err, "scan servo bus")
	}

	t := &Transport{
		logger:      logger,
		bus:         bus,
		servos:      make(map[int]*feetech.Servo, len(found)),
		loadEnabled: make(map[int]bool, len(found)),
	}
	for _, f := range found {
		t.servos[f.ID] = feetech.NewServo(bus, f.ID, f.Model)
		logger.Infof("found servo id %d model %s on %s", f.ID, f.Model, cfg.Port)
	}
	if len(t.servos) == 0 {
		logger.Warnf("no servos found on %s in id window [%d, %d]", cfg.Port, cfg.ScanLow, cfg.ScanHigh)
	}
	return t, nil
}

// Close releases the serial bus.
func (t *Transport) Close() error {
	return t.bus.Close()
}

// IDs returns the servo IDs discovered at startup.
func (t *Transport) IDs() []int {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := make([]int, 0, len(t.servos))
	for id := range t.servos {
		ids = append(ids, id)
	}
	return ids
}

func (t *Transport) servoByID(id int) (*feetech.Servo, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.servos[id]
	if !ok {
		return nil, errors.Errorf("no servo with id %d on bus", id)
	}
	return s, nil
}

// Position implements servo.Transport.
func (t *Transport) Position(ctx context.Context, id int) (float64, error) {
	s, err := t.servoByID(id)
	if err != nil {
		return 0, err
	}
	raw, err := s.Position(ctx)
	if err != nil {
		return 0, errors.Wrapf(err, "read position of servo %d", id)
	}
	return ticksToDegrees(raw), nil
}

// Move implements servo.Transport.
func (t *Transport) Move(ctx context.Context, id int, angle float64, duration time.Duration) error {
	if err := servo.ValidateAngle(angle); err != nil {
		return err
	}
	if err := servo.ValidateMoveDuration(duration); err != nil {
		return err
	}
	s, err := t.servoByID(id)
	if err != nil {
		return err
	}
	if err := s.SetPositionWithTime(ctx, degreesToTicks(angle), int(duration.Milliseconds())); err != nil {
		return errors.Wrapf(err, "move servo %d", id)
	}
	return nil
}

// Temperature implements servo.Transport. The feetech driver does not
// expose the temperature register.
func (t *Transport) Temperature(ctx context.Context, id int) (int, error) {
	return 0, servo.ErrUnsupported
}

// Voltage implements servo.Transport. The feetech driver does not expose
// the voltage register.
func (t *Transport) Voltage(ctx context.Context, id int) (float64, error) {
	return 0, servo.ErrUnsupported
}

// LoadEnabled implements servo.Transport. The bus has no torque-state read,
// so this reports the last commanded state (servos power up released).
func (t *Transport) LoadEnabled(ctx context.Context, id int) (bool, error) {
	if _, err := t.servoByID(id); err != nil {
		return false, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.loadEnabled[id], nil
}

// SetLoadEnabled implements servo.Transport.
func (t *Transport) SetLoadEnabled(ctx context.Context, id int, enabled bool) error {
	s, err := t.servoByID(id)
	if err != nil {
		return err
	}
	if enabled {
		err = s.Enable(ctx)
	} else {
		err = s.Disable(ctx)
	}
	if err != nil {
		return errors.Wrapf(err, "set torque of servo %d", id)
	}
	t.mu.Lock()
	t.loadEnabled[id] = enabled
	t.mu.Unlock()
	return nil
}

// ModeAndSpeed implements servo.Transport. Continuous-rotation mode is not
// exposed by the feetech driver.
func (t *Transport) ModeAndSpeed(ctx context.Context, id int) (servo.WorkMode, int, error) {
	if _, err := t.servoByID(id); err != nil {
		return servo.WorkModeServo, 0, err
	}
	return servo.WorkModeServo, 0, nil
}

// SetModeAndSpeed implements servo.Transport.
func (t *Transport) SetModeAndSpeed(ctx context.Context, id int, mode servo.WorkMode, speed int) error {
	if err := servo.ValidateSpeed(speed); err != nil {
		return err
	}
	if mode != servo.WorkModeServo {
		return servo.ErrUnsupported
	}
	_, err := t.servoByID(id)
	return err
}

func ticksToDegrees(raw int) float64 {
	return float64(raw) * 360.0 / ticksPerTurn
}

func degreesToTicks(angle float64) int {
	return int(angle*ticksPerTurn/360.0 + 0.5)
}
