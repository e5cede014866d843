// Package cmd wires the qidev command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"github.com/oshokin/qidev/internal/logger"
	"github.com/oshokin/qidev/internal/service/common"
	"github.com/oshokin/qidev/internal/version"
)

var (
	// configPath to the settings YAML file.
	configPath string
	// hostname overrides the configured robot.
	hostname string
	// verbose switches logging to debug.
	verbose bool
	// logLevel sets any zap level by name.
	logLevel string

	// errInvalidLogLevel is returned for --log-level values zap does not know.
	errInvalidLogLevel = errors.New("invalid log level")

	// rootCmd represents the base command, dispatching to the subcommands.
	rootCmd = &cobra.Command{
		Use:   "qidev",
		Short: "Deploy packages to a robot and control its services.",
		Long: `qidev builds a project into a package, uploads it to the robot over SSH and
installs it through the robot's package manager. It also starts and stops
behaviors and services, toggles autonomous life and drives power, posture and
volume through the service bus.

Run "qidev connect <hostname>" once to remember the robot. When nothing answers
on the robot's SSH port, qidev treats the target as a virtual robot and works
with the local filesystem instead.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: configureLogging,
	}
)

// Execute runs the qidev CLI and exits with non-zero status on error.
// Interrupted commands exit silently with status 0.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	// Setup graceful shutdown handling.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)

	err := rootCmd.ExecuteContext(ctx)

	interrupted := ctx.Err() != nil

	stop()

	_ = logger.Logger().Sync() //nolint:errcheck // Sync fails on terminals, nothing to do about it.

	code := exitCode(err, interrupted)
	if code != 0 {
		pterm.Error.Println(err.Error())
	}

	os.Exit(code)
}

// exitCode maps the command outcome to the process status.
func exitCode(err error, interrupted bool) int {
	if err == nil || interrupted || errors.Is(err, context.Canceled) {
		return 0
	}

	return 1
}

func configureLogging(*cobra.Command, []string) error {
	switch {
	case verbose:
		logger.SetLevel(zapcore.DebugLevel)
	case logLevel != "":
		level, ok := logger.ParseLogLevel(logLevel)
		if !ok {
			return fmt.Errorf("%w: %q", errInvalidLogLevel, logLevel)
		}

		logger.SetLevel(level)
	}

	if logger.Level() == zapcore.DebugLevel {
		pterm.EnableDebugMessages()
	}

	return nil
}

// connection returns the robot selection shared by the commands.
func connection() *common.ConnectOptions {
	return &common.ConnectOptions{
		ConfigPath: configPath,
		Hostname:   hostname,
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := rootCmd.PersistentFlags()

	// Setup command flags with consistent naming and descriptions.
	flags.StringVarP(&configPath, "config", "c", "", "path to settings file (default: user config directory)")
	flags.StringVar(&hostname, "host", "", "robot hostname, overriding the configured one")
	flags.BoolVarP(&verbose, "verbose", "v", false, "be verbose")
	flags.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
}
