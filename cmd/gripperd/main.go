// Package main runs the gripper motion-control daemon: it opens the servo
// bus, applies the configured mappings and tuning, and drives the control
// loop until interrupted.
package main

import (
	"context"
	"os"

	"github.com/edaniels/golog"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"github.com/sentry-robotics/armperiph/gripper"
	"github.com/sentry-robotics/armperiph/gripper/gripperconfig"
	"github.com/sentry-robotics/armperiph/servo/feetech"
)

var logger = golog.NewDevelopmentLogger("gripperd")

func main() {
	utils.ContextualMain(mainWithArgs, logger)
}

func mainWithArgs(ctx context.Context, args []string, logger golog.Logger) error {
	app := &cli.App{
		Name:  "gripperd",
		Usage: "motion control daemon for serial-bus servo grippers",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "gripperd.yml",
				Usage:   "path to the YAML configuration",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run the control loop until interrupted",
				Action: func(c *cli.Context) error {
					return runDaemon(c.Context, c.String("config"), logger)
				},
			},
			{
				Name:  "conf",
				Usage: "print the effective configuration",
				Action: func(c *cli.Context) error {
					cfg, err := gripperconfig.Load(c.String("config"))
					if err != nil {
						return err
					}
					return cfg.Dump(os.Stdout)
				},
			},
		},
	}
	return app.RunContext(ctx, args)
}

func runDaemon(ctx context.Context, configPath string, logger golog.Logger) error {
	cfg, err := gripperconfig.Load(configPath)
	if err != nil {
		return err
	}

	transport, err := feetech.New(ctx, feetech.Config{
		Port:     cfg.Servo.Port,
		BaudRate: cfg.Servo.BaudRate,
		ScanLow:  cfg.Servo.ScanLow,
		ScanHigh: cfg.Servo.ScanHigh,
	}, logger)
	if err != nil {
		return err
	}

	controller, err := gripper.NewController(logger, transport, gripper.Config{Frequency: cfg.Frequency})
	if err != nil {
		return multierr.Combine(err, transport.Close())
	}

	for _, slot := range cfg.Slots {
		if !slot.Enabled {
			continue
		}
		if err := configureSlot(ctx, controller, slot); err != nil {
			return multierr.Combine(err, transport.Close())
		}
	}

	if err := controller.Start(); err != nil {
		return multierr.Combine(err, transport.Close())
	}

	<-ctx.Done()
	return multierr.Combine(controller.Close(context.Background()), transport.Close())
}

func configureSlot(ctx context.Context, controller *gripper.Controller, slot gripperconfig.SlotConfig) error {
	if err := controller.ConfigureMapping(ctx, slot.ID, slot.Mapping()); err != nil {
		return err
	}
	if err := controller.SetControlParams(ctx, slot.ID, slot.ControlParams()); err != nil {
		return err
	}
	mode, err := slot.ControlMode()
	if err != nil {
		return err
	}
	return controller.SetMode(ctx, slot.ID, mode)
}
