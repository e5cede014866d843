package cmd

import (
	"context"
	"strconv"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/oshokin/qidev/internal/service/common"
	"github.com/oshokin/qidev/internal/service/control"
)

var (
	// toggleBehavior targets behaviors in start and stop.
	toggleBehavior bool
	// toggleLife goes through autonomous life in start and stop.
	toggleLife bool

	startCmd = newToggleCommand(true)
	stopCmd  = newToggleCommand(false)

	lifeCmd = &cobra.Command{
		Use:       "life <on|off>",
		Short:     "Turn autonomous life on or off.",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := control.Life(cmd.Context(), connection(), args[0]); err != nil {
				return err
			}

			pterm.Success.Printfln("Autonomous life %s", strings.ToLower(args[0]))

			return nil
		},
	}

	naoCmd = &cobra.Command{
		Use:       "nao <start|stop|restart>",
		Short:     "Start, stop or restart naoqi on the robot.",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"start", "stop", "restart"},
		RunE: func(cmd *cobra.Command, args []string) error {
			output, err := control.Nao(cmd.Context(), connection(), args[0])
			if output != "" {
				pterm.Println(strings.TrimRight(output, "\n"))
			}

			return err
		},
	}

	rebootCmd = simpleCommand("reboot", "Reboot the robot.", "Rebooting", control.Reboot)

	shutdownCmd = simpleCommand("shutdown", "Shut the robot down.", "Shutting down", control.Shutdown)

	restCmd = simpleCommand("rest", "Send the robot to its resting posture.", "Resting", control.Rest)

	wakeCmd = simpleCommand("wake", "Wake the robot up.", "Awake", control.Wake)

	volCmd = &cobra.Command{
		Use:   "vol <level>",
		Short: "Adjust the volume on the robot.",
		Long: `Set the output volume. The level is 0 to 100, +N or -N to change the current
level, or "up" and "down" to change it by 10. The result is clamped to 0-100.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := control.Volume(cmd.Context(), connection(), args[0])
			if err != nil {
				return err
			}

			pterm.Success.Println("Volume set to " + strconv.Itoa(level))

			return nil
		},
	}
)

// newToggleCommand builds the start or stop command.
func newToggleCommand(start bool) *cobra.Command {
	verb, past := "stop", "Stopped"
	if start {
		verb, past = "start", "Started"
	}

	return &cobra.Command{
		Use:   verb + " [name]",
		Short: strings.ToUpper(verb[:1]) + verb[1:] + " a service, or a behavior with -b; prompts for the name when omitted.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			toggle := control.ToggleOptions{
				Start:    start,
				Behavior: toggleBehavior,
				Life:     toggleLife,
			}

			if len(args) > 0 {
				toggle.Name = args[0]
			}

			outcome, err := control.Toggle(cmd.Context(), connection(), toggle, choose)
			if err != nil {
				return err
			}

			target := outcome.Name
			if target == "" {
				target = "focused activity"
			}

			report(outcome.Result, past+" "+target, "Could not "+verb+" "+target)

			return nil
		},
	}
}

// simpleCommand builds an argument-less command running action.
func simpleCommand(
	use, short, done string,
	action func(ctx context.Context, opts *common.ConnectOptions) error,
) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := action(cmd.Context(), connection()); err != nil {
				return err
			}

			pterm.Success.Println(done)

			return nil
		},
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	for _, toggle := range []*cobra.Command{startCmd, stopCmd} {
		toggle.Flags().BoolVarP(&toggleBehavior, "behavior", "b", false, "target a behavior instead of a service")
		toggle.Flags().BoolVarP(&toggleLife, "life", "l", false, "use autonomous life to focus or stop an activity")
		toggle.MarkFlagsMutuallyExclusive("behavior", "life")
	}

	rootCmd.AddCommand(startCmd, stopCmd, lifeCmd, naoCmd, rebootCmd, shutdownCmd, restCmd, wakeCmd, volCmd)
}
