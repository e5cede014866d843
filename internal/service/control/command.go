package control

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/oshokin/qidev/internal/controller"
	"github.com/oshokin/qidev/internal/logger"
	"github.com/oshokin/qidev/internal/service/common"
)

// Chooser picks one of options when the user did not name a target.
type Chooser func(prompt string, options []string) (string, error)

var (
	// ErrNothingToChoose is returned when a target must be chosen from an empty list.
	ErrNothingToChoose = errors.New("nothing to choose from")
	// ErrInvalidLifeState is returned by Life for states other than on and off.
	ErrInvalidLifeState = errors.New(`life state must be "on" or "off"`)
	// ErrInvalidNaoAction is returned by Nao for unknown actions.
	ErrInvalidNaoAction = errors.New(`nao action must be "start", "stop" or "restart"`)

	// errNoChooser is returned when a target is missing and nobody can be asked.
	errNoChooser = errors.New("a name is required")
)

// naoActions are the arguments the robot's nao script accepts.
var naoActions = []string{"start", "stop", "restart"} //nolint:gochecknoglobals // Fixed robot script.

// withController connects over the service bus only and runs fn.
func withController(ctx context.Context, opts *common.ConnectOptions, fn func(*controller.Controller) error) error {
	conn := *opts
	conn.Session, conn.Shell = true, false

	robot, err := common.Connect(ctx, &conn)
	if err != nil {
		return err
	}

	defer robot.Close() //nolint:errcheck // Nothing to report after the command ran.

	return fn(robot.Controller)
}

// choose returns name, or asks chooser to pick one of the listed options.
func choose(name, prompt string, chooser Chooser, list func() ([]string, error)) (string, error) {
	if name != "" {
		return name, nil
	}

	if chooser == nil {
		return "", errNoChooser
	}

	options, err := list()
	if err != nil {
		return "", err
	}

	if len(options) == 0 {
		return "", ErrNothingToChoose
	}

	return chooser(prompt, options)
}

// Life turns autonomous life "on" or "off".
func Life(ctx context.Context, opts *common.ConnectOptions, state string) error {
	var on bool

	switch strings.ToLower(state) {
	case "on":
		on = true
	case "off":
	default:
		return fmt.Errorf("%q: %w", state, ErrInvalidLifeState)
	}

	return withController(ctx, opts, func(c *controller.Controller) error {
		return c.SetAutonomousLife(ctx, on)
	})
}

// Nao runs "nao <action>" in the robot shell and returns its output.
func Nao(ctx context.Context, opts *common.ConnectOptions, action string) (string, error) {
	if !slices.Contains(naoActions, action) {
		return "", fmt.Errorf("%q: %w", action, ErrInvalidNaoAction)
	}

	conn := *opts
	conn.Session, conn.Shell = false, true

	robot, err := common.Connect(ctx, &conn)
	if err != nil {
		return "", err
	}

	defer robot.Close() //nolint:errcheck // Nothing to report after the command ran.

	logger.Debugf(ctx, "Running nao %s on %s", action, robot.Link.Hostname())

	return robot.Link.Run(ctx, "nao "+action)
}

// Reboot reboots the robot.
func Reboot(ctx context.Context, opts *common.ConnectOptions) error {
	return withController(ctx, opts, func(c *controller.Controller) error {
		return c.Reboot(ctx)
	})
}

// Shutdown powers the robot off.
func Shutdown(ctx context.Context, opts *common.ConnectOptions) error {
	return withController(ctx, opts, func(c *controller.Controller) error {
		return c.Shutdown(ctx)
	})
}

// Rest sends the robot to its resting posture.
func Rest(ctx context.Context, opts *common.ConnectOptions) error {
	return withController(ctx, opts, func(c *controller.Controller) error {
		return c.Rest(ctx)
	})
}

// Wake wakes the robot up.
func Wake(ctx context.Context, opts *common.ConnectOptions) error {
	return withController(ctx, opts, func(c *controller.Controller) error {
		return c.WakeUp(ctx)
	})
}

// Volume applies a volume directive and returns the new level.
func Volume(ctx context.Context, opts *common.ConnectOptions, directive string) (int, error) {
	if _, err := controller.ParseVolume(directive); err != nil {
		return 0, err
	}

	var level int

	err := withController(ctx, opts, func(c *controller.Controller) error {
		var err error

		level, err = c.SetVolume(ctx, directive)

		return err
	})

	return level, err
}
