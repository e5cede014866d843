package cmd

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/oshokin/qidev/internal/service/server"
)

var (
	// simulateOptions configures the simulated robot.
	simulateOptions server.Options

	simulateCmd = &cobra.Command{
		Use:    "simulate",
		Short:  "Serve a simulated robot's service bus on this machine.",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			simulateOptions.Ready = func(address string) {
				pterm.Info.Printfln("Simulated robot on %s, press Ctrl+C to stop", address)
			}

			return server.Run(cmd.Context(), &simulateOptions)
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := simulateCmd.Flags()
	flags.StringVarP(&simulateOptions.ListenAddress, "listen", "l", "", "listen address (default: 127.0.0.1:9559)")
	flags.StringVar(&simulateOptions.Name, "name", "", "robot name (default: nao)")

	rootCmd.AddCommand(simulateCmd)
}
