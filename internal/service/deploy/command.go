package deploy

import (
	"context"

	"github.com/oshokin/qidev/internal/controller"
	"github.com/oshokin/qidev/internal/logger"
	"github.com/oshokin/qidev/internal/packaging"
	"github.com/oshokin/qidev/internal/service/common"
)

// InstallOptions contains inputs for Install.
type InstallOptions struct {
	// Connection selects the robot.
	Connection common.ConnectOptions
	// ProjectDir is the project to package; empty means the working directory.
	ProjectDir string
}

// InstallReport describes a finished install.
type InstallReport struct {
	// UUID identifies the installed package.
	UUID string
	// Archive is the local archive that was built.
	Archive string
	// Virtual is set when the robot had no shell channel.
	Virtual bool
}

// Install packages the project and installs it on the robot.
func Install(ctx context.Context, opts *InstallOptions) (*InstallReport, error) {
	ctx = logger.WithName(ctx, "install")

	archive, err := packaging.NewBuilder(logger.Component(ctx, "packaging")).Build(opts.ProjectDir)
	if err != nil {
		return nil, err
	}

	conn := opts.Connection
	conn.Session, conn.Shell = true, true

	robot, err := common.Connect(ctx, &conn)
	if err != nil {
		return nil, err
	}

	defer robot.Close() //nolint:errcheck // Nothing left to report once installed.

	mode := robot.Link.Mode()

	filename, err := robot.Transfer.Upload(ctx, mode, archive)
	if err != nil {
		return nil, err
	}

	logger.DebugKV(ctx, "Archive staged", "filename", filename, "staging", mode.StagingPath())

	if err = robot.Controller.InstallPackage(ctx, mode, archive); err != nil {
		logger.ErrorKV(ctx, "Install failed, staged archive kept", "archive", filename, "host", robot.Link.Hostname(), "error", err)

		return nil, err
	}

	if err = robot.Transfer.Delete(ctx, mode, archive); err != nil {
		logger.WarnKV(ctx, "Could not delete the staged archive", "archive", filename, "error", err)
	}

	report := &InstallReport{
		UUID:    packaging.UUIDFromArchiveName(archive),
		Archive: archive,
		Virtual: robot.Link.IsVirtual(),
	}

	logger.InfoKV(ctx, "Package installed", "uuid", report.UUID, "host", robot.Link.Hostname(), "virtual", report.Virtual)

	return report, nil
}

// Remove uninstalls the package uuid.
func Remove(ctx context.Context, opts *common.ConnectOptions, uuid string) (controller.Result, error) {
	conn := *opts
	conn.Session, conn.Shell = true, false

	robot, err := common.Connect(ctx, &conn)
	if err != nil {
		return controller.Result{}, err
	}

	defer robot.Close() //nolint:errcheck // Read-only close.

	return robot.Controller.RemovePackage(ctx, uuid), nil
}

// Fetch downloads remotePath from the robot into localPath and returns where it landed.
func Fetch(ctx context.Context, opts *common.ConnectOptions, remotePath, localPath string) (string, error) {
	conn := *opts
	conn.Session, conn.Shell = false, true

	robot, err := common.Connect(ctx, &conn)
	if err != nil {
		return "", err
	}

	defer robot.Close() //nolint:errcheck // Read-only close.

	return robot.Transfer.Fetch(ctx, robot.Link.Mode(), remotePath, localPath)
}
