package cmd

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/oshokin/qidev/internal/service/setup"
)

var (
	configCmd = &cobra.Command{
		Use:   "config <field> <value>",
		Short: "Set a default: hostname, username, port, ssh_port, timeout or password.",
		Long: `Set one persisted setting. The password is stored in the OS keyring for the
configured user and hostname, never in the settings file.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := setup.Configure(cmd.Context(), &setup.Options{ConfigPath: configPath}, args[0], args[1]); err != nil {
				return err
			}

			pterm.Success.Printfln("%s saved", args[0])

			return nil
		},
	}

	connectCmd = &cobra.Command{
		Use:   "connect <hostname>",
		Short: "Remember the robot to talk to.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := setup.Connect(cmd.Context(), &setup.Options{ConfigPath: configPath}, args[0]); err != nil {
				return err
			}

			pterm.Success.Printfln("Using robot %s", args[0])

			return nil
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.AddCommand(configCmd, connectCmd)
}
