// Package gripperconfig loads and validates the gripper daemon's YAML
// configuration. Values layer on top of the factory defaults, so a config
// file only needs the fields it wants to change.
package gripperconfig

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/pkg/errors"
	yml "gopkg.in/yaml.v2"

	"github.com/sentry-robotics/armperiph/gripper"
)

// ServoConfig describes the serial bus the servos hang off.
type ServoConfig struct {
	Port     string `koanf:"port" yaml:"port"`
	BaudRate int    `koanf:"baud_rate" yaml:"baud_rate"`
	ScanLow  int    `koanf:"scan_low" yaml:"scan_low"`
	ScanHigh int    `koanf:"scan_high" yaml:"scan_high"`
}

// SlotConfig configures one gripper slot: its mapping, tuning and control
// mode. Zero values fall back to the factory defaults.
type SlotConfig struct {
	ID      int    `koanf:"id" yaml:"id"`
	Enabled bool   `koanf:"enabled" yaml:"enabled"`
	Mode    string `koanf:"mode" yaml:"mode"`

	ClosedAngle      float64 `koanf:"closed_angle" yaml:"closed_angle"`
	OpenAngle        float64 `koanf:"open_angle" yaml:"open_angle"`
	MinStep          float64 `koanf:"min_step" yaml:"min_step"`
	MaxSpeed         float64 `koanf:"max_speed" yaml:"max_speed"`
	ReverseDirection bool    `koanf:"reverse_direction" yaml:"reverse_direction"`

	SlopeIncreaseRate float64 `koanf:"slope_increase_rate" yaml:"slope_increase_rate"`
	SlopeDecreaseRate float64 `koanf:"slope_decrease_rate" yaml:"slope_decrease_rate"`

	PIDKp          float64 `koanf:"pid_kp" yaml:"pid_kp"`
	PIDKi          float64 `koanf:"pid_ki" yaml:"pid_ki"`
	PIDKd          float64 `koanf:"pid_kd" yaml:"pid_kd"`
	PIDOutputLimit float64 `koanf:"pid_output_limit" yaml:"pid_output_limit"`
	PIDDeadZone    float64 `koanf:"pid_dead_zone" yaml:"pid_dead_zone"`

	FeedbackTimeout time.Duration `koanf:"feedback_timeout" yaml:"feedback_timeout"`
}

// Config is the daemon's full configuration.
type Config struct {
	Frequency float64      `koanf:"frequency" yaml:"frequency"`
	Servo     ServoConfig  `koanf:"servo" yaml:"servo"`
	Slots     []SlotConfig `koanf:"slots" yaml:"slots"`
}

// DefaultConfig returns the configuration used when no file overrides it:
// one open-loop slot on the factory mapping.
func DefaultConfig() Config {
	return Config{
		Frequency: gripper.DefaultFrequency,
		Servo: ServoConfig{
			Port:     "/dev/ttyUSB0",
			BaudRate: 1000000,
			ScanLow:  1,
			ScanHigh: gripper.MaxGrippers,
		},
		Slots: []SlotConfig{{ID: 0, Enabled: true, Mode: "open_loop"}},
	}
}

// Load reads the YAML file at path, layered over the defaults. A missing
// file yields the defaults alone.
func Load(path string) (Config, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(DefaultConfig(), "koanf"), nil); err != nil {
		return Config{}, errors.Wrap(err, "load default config")
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if !errors.Is(err, os.ErrNotExist) && !strings.Contains(err.Error(), "no such") {
			return Config{}, errors.Wrapf(err, "load config file %q", path)
		}
	}
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, errors.Wrap(err, "unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for inconsistencies a running daemon
// could not recover from.
func (c Config) Validate() error {
	if c.Frequency <= 0 {
		return errors.Errorf("frequency %.1f must be positive", c.Frequency)
	}
	if c.Servo.Port == "" {
		return errors.New("servo.port is required")
	}
	seen := map[int]bool{}
	for _, slot := range c.Slots {
		if slot.ID < 0 || slot.ID >= gripper.MaxGrippers {
			return errors.Errorf("slot id %d outside [0, %d)", slot.ID, gripper.MaxGrippers)
		}
		if seen[slot.ID] {
			return errors.Errorf("slot id %d configured twice", slot.ID)
		}
		seen[slot.ID] = true
		if _, err := slot.ControlMode(); err != nil {
			return err
		}
	}
	return nil
}

// Dump writes the configuration as YAML.
func (c Config) Dump(w io.Writer) error {
	return yml.NewEncoder(w).Encode(c)
}

// ControlMode parses the slot's mode string.
func (s SlotConfig) ControlMode() (gripper.Mode, error) {
	switch s.Mode {
	case "", "open_loop":
		return gripper.ModeOpenLoop, nil
	case "closed_loop":
		return gripper.ModeClosedLoop, nil
	case "force_control":
		return gripper.ModeForceControl, nil
	default:
		return 0, errors.Errorf("slot %d: unknown mode %q", s.ID, s.Mode)
	}
}

// Mapping converts the slot's mapping fields, with zero values falling back
// to the factory mapping.
func (s SlotConfig) Mapping() gripper.Mapping {
	m := gripper.DefaultMapping()
	if s.ClosedAngle != 0 {
		m.ClosedAngle = s.ClosedAngle
	}
	if s.OpenAngle != 0 {
		m.OpenAngle = s.OpenAngle
	}
	if s.MinStep != 0 {
		m.MinStep = s.MinStep
	}
	if s.MaxSpeed != 0 {
		m.MaxSpeed = s.MaxSpeed
	}
	m.ReverseDirection = s.ReverseDirection
	return m
}

// ControlParams converts the slot's tuning fields, with zero values falling
// back to the factory tuning.
func (s SlotConfig) ControlParams() gripper.ControlParams {
	p := gripper.DefaultControlParams()
	if s.SlopeIncreaseRate != 0 {
		p.SlopeIncreaseRate = s.SlopeIncreaseRate
	}
	if s.SlopeDecreaseRate != 0 {
		p.SlopeDecreaseRate = s.SlopeDecreaseRate
	}
	if s.PIDKp != 0 {
		p.PIDKp = s.PIDKp
	}
	if s.PIDKi != 0 {
		p.PIDKi = s.PIDKi
	}
	if s.PIDKd != 0 {
		p.PIDKd = s.PIDKd
	}
	if s.PIDOutputLimit != 0 {
		p.PIDOutputLimit = s.PIDOutputLimit
	}
	if s.PIDDeadZone != 0 {
		p.PIDDeadZone = s.PIDDeadZone
	}
	if s.FeedbackTimeout != 0 {
		p.FeedbackTimeout = s.FeedbackTimeout
	}
	return p
}
