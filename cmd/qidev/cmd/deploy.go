package cmd

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/oshokin/qidev/internal/service/deploy"
)

var (
	// projectDir is the project installed by the install command.
	projectDir string

	installCmd = &cobra.Command{
		Use:   "install",
		Short: "Package a project directory and install it on the robot.",
		Long: `Build <uuid>.pkg next to the project directory from its manifest.xml, upload
it to the robot's staging directory and install it, replacing any package with
the same uuid. The staged archive is removed once the install succeeded.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			spinner, _ := pterm.DefaultSpinner.Start("Installing package")

			installed, err := deploy.Install(cmd.Context(), &deploy.InstallOptions{
				Connection: *connection(),
				ProjectDir: projectDir,
			})
			if err != nil {
				spinner.Fail("Install failed")

				return err
			}

			target := "robot"
			if installed.Virtual {
				target = "virtual robot"
			}

			spinner.Success("Installed " + installed.UUID + " on the " + target)

			return nil
		},
	}

	removeCmd = &cobra.Command{
		Use:   "remove <uuid>",
		Short: "Remove an installed package.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := deploy.Remove(cmd.Context(), connection(), args[0])
			if err != nil {
				return err
			}

			report(result, "Removed "+args[0], "Could not remove "+args[0])

			return nil
		},
	}

	fetchCmd = &cobra.Command{
		Use:   "fetch <remote-path> [local-path]",
		Short: "Download a file from the robot.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var local string
			if len(args) > 1 {
				local = args[1]
			}

			saved, err := deploy.Fetch(cmd.Context(), connection(), args[0], local)
			if err != nil {
				return err
			}

			pterm.Success.Printfln("Saved %s", saved)

			return nil
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	installCmd.Flags().StringVarP(&projectDir, "path", "p", "", "project directory (default: working directory)")

	rootCmd.AddCommand(installCmd, removeCmd, fetchCmd)
}
