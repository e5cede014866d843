package control

import (
	"context"

	"github.com/oshokin/qidev/internal/controller"
	"github.com/oshokin/qidev/internal/service/common"
)

// ToggleOptions describes a start or stop request.
type ToggleOptions struct {
	// Start starts the target; otherwise it is stopped.
	Start bool
	// Name is the target; empty asks the chooser.
	Name string
	// Behavior targets a behavior instead of a service.
	Behavior bool
	// Life goes through autonomous life: start focuses an activity, stop
	// stops the focused one and needs no name.
	Life bool
}

// Outcome is what Toggle did.
type Outcome struct {
	// Name is the target acted on; empty when the focused activity was stopped.
	Name string
	// Result tells whether the robot complied.
	Result controller.Result
}

// Toggle starts or stops a service, a behavior or the focused activity.
// A refusal by the robot is reported in the Result, not as an error.
func Toggle(ctx context.Context, opts *common.ConnectOptions, toggle ToggleOptions, chooser Chooser) (Outcome, error) {
	var outcome Outcome

	err := withController(ctx, opts, func(c *controller.Controller) error {
		if toggle.Life && !toggle.Start {
			outcome.Result = c.StopFocus(ctx)

			return nil
		}

		prompt, list := candidates(ctx, c, toggle)

		name, err := choose(toggle.Name, prompt, chooser, list)
		if err != nil {
			return err
		}

		outcome.Name = name

		var result controller.Result

		switch {
		case toggle.Life:
			result = c.SwitchFocus(ctx, name)
		case toggle.Behavior && toggle.Start:
			result = c.StartBehavior(ctx, name)
		case toggle.Behavior:
			result = c.StopBehavior(ctx, name)
		case toggle.Start:
			result = c.StartService(ctx, name)
		default:
			result = c.StopService(ctx, name)
		}

		outcome.Result = result

		return nil
	})

	return outcome, err
}

// candidates returns the prompt and the names worth offering for toggle.
func candidates(
	ctx context.Context,
	c *controller.Controller,
	toggle ToggleOptions,
) (string, func() ([]string, error)) {
	switch {
	case toggle.Life || (toggle.Behavior && toggle.Start):
		return "Behavior", func() ([]string, error) { return c.InstalledBehaviors(ctx) }
	case toggle.Behavior:
		return "Running behavior", func() ([]string, error) { return c.RunningBehaviors(ctx) }
	case toggle.Start:
		return "Service", func() ([]string, error) { return c.DeclaredServices(ctx) }
	default:
		return "Running service", func() ([]string, error) { return c.RunningServices(ctx) }
	}
}
