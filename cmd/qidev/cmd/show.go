package cmd

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/oshokin/qidev/internal/controller"
	"github.com/oshokin/qidev/internal/service/control"
)

var (
	// showQuery collects the show flags.
	showQuery control.ShowQuery

	showCmd = &cobra.Command{
		Use:   "show",
		Short: "Show the packages installed on the robot.",
		Long: `Without flags, list the installed packages. -s lists the declared services,
-i describes one package (prompting for it when no uuid is given) and -a lists
what is running right now.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			showQuery.Inspect = showQuery.Inspect || showQuery.Package != ""

			listing, err := control.Show(cmd.Context(), connection(), showQuery, choose)
			if err != nil {
				return err
			}

			switch {
			case showQuery.Services:
				printServices(listing.Services)
			case showQuery.Inspect:
				printPackage(listing.Package)
			case showQuery.Active:
				printActive(listing)
			default:
				printPackages(listing.Packages)
			}

			return nil
		},
	}
)

func printPackages(packages []controller.PackageInfo) {
	heading("Installed packages")

	lines := make([]string, 0, len(packages))
	for _, p := range packages {
		lines = append(lines, p.Name+" "+pterm.NewStyle(pterm.FgGray).Sprint(p.UUID+" "+p.Version))
	}

	bullets(lines)
}

func printPackage(info *controller.PackageInfo) {
	pterm.DefaultBox.
		WithTitle(pterm.NewStyle(pterm.FgCyan, pterm.Bold).Sprint(info.Name)).
		WithPadding(1).
		Println("uuid:    " + info.UUID + "\nversion: " + info.Version)

	heading("Behaviors")
	bullets(info.Behaviors)
}

func printServices(services []control.ServiceState) {
	heading("Services")

	lines := make([]string, 0, len(services))

	for _, s := range services {
		state := pterm.NewStyle(pterm.FgGray).Sprint("stopped")
		if s.Running {
			state = pterm.NewStyle(pterm.FgGreen).Sprint("running")
		}

		lines = append(lines, s.Name+" "+state)
	}

	bullets(lines)
}

func printActive(listing *control.Listing) {
	heading("Running behaviors")
	bullets(listing.RunningBehaviors)

	heading("Running services")
	bullets(listing.RunningServices)

	if listing.FocusedActivity != "" {
		heading("Focused activity")
		bullets([]string{listing.FocusedActivity})
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := showCmd.Flags()
	flags.BoolVarP(&showQuery.Services, "services", "s", false, "show the services declared on the robot")
	flags.BoolVarP(&showQuery.Inspect, "inspect", "i", false, "inspect a package, prompting for it")
	flags.StringVar(&showQuery.Package, "package", "", "uuid of the package to inspect")
	flags.BoolVarP(&showQuery.Active, "active", "a", false, "show running behaviors and services")
	showCmd.MarkFlagsMutuallyExclusive("services", "inspect", "active")

	rootCmd.AddCommand(showCmd)
}
