package deploy

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/qidev/internal/config"
	"github.com/oshokin/qidev/internal/credentials"
	"github.com/oshokin/qidev/internal/packaging"
	"github.com/oshokin/qidev/internal/service/common"
	"github.com/oshokin/qidev/internal/testutil/bustest"
	"github.com/oshokin/qidev/internal/testutil/sshtest"
	"github.com/oshokin/qidev/internal/transfer"
)

const manifest = `<?xml version="1.0" encoding="UTF-8" ?>
<package version="0.0.1" uuid="my-app">
    <names><name lang="en_US">My App</name></names>
</package>
`

// virtualRobot serves a robot whose SSH port refuses connections.
func virtualRobot(t *testing.T) (*bustest.Robot, common.ConnectOptions) {
	t.Helper()

	robot := bustest.Start(t)

	cfg := config.New("127.0.0.1")
	cfg.Port = robot.Port
	cfg.SSHPort = bustest.ClosedPort(t)
	cfg.Timeout = 2 * time.Second

	path := filepath.Join(t.TempDir(), config.DefaultConfigFilename)
	require.NoError(t, config.Save(path, cfg))

	return robot, common.ConnectOptions{
		ConfigPath:  path,
		Credentials: credentials.NewStore(keyring.NewArrayKeyring(nil)),
	}
}

// physicalRobot serves a robot with an SSH daemon that stages packages under a temporary directory.
func physicalRobot(t *testing.T) (*bustest.Robot, common.ConnectOptions) {
	t.Helper()

	robot, conn := virtualRobot(t)
	shell := sshtest.Start(t, config.DefaultUsername, credentials.DefaultPassword)

	cfg, err := config.Load(conn.ConfigPath)
	require.NoError(t, err)

	cfg.SSHPort = shell.Port()
	require.NoError(t, config.Save(conn.ConfigPath, cfg))

	conn.Staging = t.TempDir()

	return robot, conn
}

// writeProject creates a project directory with a manifest and one behavior file.
func writeProject(t *testing.T, manifestContents string) string {
	t.Helper()

	dir := filepath.Join(t.TempDir(), "my-app")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "behavior_1"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, packaging.ManifestFilename), []byte(manifestContents), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "behavior_1", "behavior.xar"), []byte("<xar/>"), 0o600))

	return dir
}

// TestInstall_Virtual installs from the local archive and deletes it afterwards.
func TestInstall_Virtual(t *testing.T) {
	t.Parallel()

	robot, conn := virtualRobot(t)
	project := writeProject(t, manifest)

	report, err := Install(context.Background(), &InstallOptions{Connection: conn, ProjectDir: project})
	require.NoError(t, err)
	require.Equal(t, "my-app", report.UUID)
	require.True(t, report.Virtual)
	require.Equal(t, filepath.Join(filepath.Dir(project), "my-app.pkg"), report.Archive)

	from, ok := robot.Package("my-app")
	require.True(t, ok)
	require.Equal(t, report.Archive, from)

	require.NoFileExists(t, report.Archive)
	require.Equal(t, []string{"PackageManager.removePkg", "PackageManager.install"}, robot.Server.Calls())
}

// TestInstall_FailureKeepsArchive leaves the archive behind when the robot rejects it.
func TestInstall_FailureKeepsArchive(t *testing.T) {
	t.Parallel()

	robot, conn := virtualRobot(t)
	robot.Server.Register("PackageManager", "install", func(context.Context, []*structpb.Value) (*structpb.Value, error) {
		return nil, errors.New("corrupted package")
	})

	project := writeProject(t, manifest)

	_, err := Install(context.Background(), &InstallOptions{Connection: conn, ProjectDir: project})
	require.ErrorContains(t, err, "corrupted package")
	require.FileExists(t, filepath.Join(filepath.Dir(project), "my-app.pkg"))
}

// TestInstall_Physical uploads the archive over SFTP and removes the staged copy once installed.
func TestInstall_Physical(t *testing.T) {
	t.Parallel()

	robot, conn := physicalRobot(t)
	project := writeProject(t, manifest)

	report, err := Install(context.Background(), &InstallOptions{Connection: conn, ProjectDir: project})
	require.NoError(t, err)
	require.Equal(t, "my-app", report.UUID)
	require.False(t, report.Virtual)

	staged := filepath.Join(conn.Staging, "my-app.pkg")

	from, ok := robot.Package("my-app")
	require.True(t, ok)
	require.Equal(t, staged, from)

	require.NoFileExists(t, staged)
	require.FileExists(t, report.Archive)
}

// TestInstall_PhysicalFailureKeepsStagedArchive leaves the uploaded archive on the robot when install fails.
func TestInstall_PhysicalFailureKeepsStagedArchive(t *testing.T) {
	t.Parallel()

	robot, conn := physicalRobot(t)
	robot.Server.Register("PackageManager", "install", func(context.Context, []*structpb.Value) (*structpb.Value, error) {
		return nil, errors.New("corrupted package")
	})

	project := writeProject(t, manifest)

	_, err := Install(context.Background(), &InstallOptions{Connection: conn, ProjectDir: project})
	require.ErrorContains(t, err, "corrupted package")

	staged, err := os.ReadFile(filepath.Join(conn.Staging, "my-app.pkg"))
	require.NoError(t, err)
	require.NotEmpty(t, staged)
}

// TestInstall_NoIdentity stops before connecting when the manifest has no uuid.
func TestInstall_NoIdentity(t *testing.T) {
	t.Parallel()

	robot, conn := virtualRobot(t)
	project := writeProject(t, `<package version="0.0.1"/>`)

	_, err := Install(context.Background(), &InstallOptions{Connection: conn, ProjectDir: project})
	require.ErrorIs(t, err, packaging.ErrIdentityMissing)
	require.Empty(t, robot.Server.Calls())
}

// TestRemove reports whether the package manager removed the package.
func TestRemove(t *testing.T) {
	t.Parallel()

	robot, conn := virtualRobot(t)
	robot.AddPackage("my-app", "/apps/my-app.pkg")

	result, err := Remove(context.Background(), &conn, "my-app")
	require.NoError(t, err)
	require.True(t, result.OK())

	result, err = Remove(context.Background(), &conn, "my-app")
	require.NoError(t, err)
	require.False(t, result.OK())
}

// TestFetch_Virtual has no file channel to fetch through.
func TestFetch_Virtual(t *testing.T) {
	t.Parallel()

	_, conn := virtualRobot(t)

	_, err := Fetch(context.Background(), &conn, "/home/nao/log.txt", filepath.Join(t.TempDir(), "log.txt"))
	require.ErrorIs(t, err, transfer.ErrNoFileChannel)
}
