package gripperconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.viam.com/test"

	"github.com/sentry-robotics/armperiph/gripper"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.Frequency, test.ShouldEqual, gripper.DefaultFrequency)
	test.That(t, cfg.Servo.Port, test.ShouldEqual, "/dev/ttyUSB0")
	test.That(t, len(cfg.Slots), test.ShouldEqual, 1)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gripperd.yml")
	raw := `
frequency: 50
servo:
  port: /dev/ttyACM1
slots:
  - id: 0
    enabled: true
    mode: closed_loop
    closed_angle: 150
    open_angle: 80
    pid_kp: 0.8
    feedback_timeout: 2s
  - id: 1
    enabled: true
`
	test.That(t, os.WriteFile(path, []byte(raw), 0o600), test.ShouldBeNil)

	cfg, err := Load(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.Frequency, test.ShouldEqual, 50)
	test.That(t, cfg.Servo.Port, test.ShouldEqual, "/dev/ttyACM1")
	// Unset servo fields keep their defaults.
	test.That(t, cfg.Servo.BaudRate, test.ShouldEqual, 1000000)
	test.That(t, len(cfg.Slots), test.ShouldEqual, 2)

	slot := cfg.Slots[0]
	mode, err := slot.ControlMode()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, mode, test.ShouldEqual, gripper.ModeClosedLoop)

	m := slot.Mapping()
	test.That(t, m.ClosedAngle, test.ShouldEqual, 150)
	test.That(t, m.OpenAngle, test.ShouldEqual, 80)
	// Fields the file omits fall back to the factory mapping.
	test.That(t, m.MinStep, test.ShouldEqual, gripper.DefaultMapping().MinStep)

	p := slot.ControlParams()
	test.That(t, p.PIDKp, test.ShouldEqual, 0.8)
	test.That(t, p.PIDKi, test.ShouldEqual, gripper.DefaultControlParams().PIDKi)
	test.That(t, p.FeedbackTimeout, test.ShouldEqual, 2*time.Second)
}

func TestLoadRejectsBadConfig(t *testing.T) {
	for name, raw := range map[string]string{
		"negative frequency": "frequency: -5\n",
		"bad slot id":        "slots:\n  - id: 9\n",
		"duplicate slot":     "slots:\n  - id: 1\n  - id: 1\n",
		"unknown mode":       "slots:\n  - id: 0\n    mode: telepathy\n",
	} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "gripperd.yml")
			test.That(t, os.WriteFile(path, []byte(raw), 0o600), test.ShouldBeNil)
			_, err := Load(path)
			test.That(t, err, test.ShouldNotBeNil)
		})
	}
}

func TestConfigDump(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yml")
	f, err := os.Create(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, DefaultConfig().Dump(f), test.ShouldBeNil)
	test.That(t, f.Close(), test.ShouldBeNil)

	cfg, err := Load(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg, test.ShouldResemble, DefaultConfig())
}
