package control

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/qidev/internal/config"
	"github.com/oshokin/qidev/internal/controller"
	"github.com/oshokin/qidev/internal/credentials"
	"github.com/oshokin/qidev/internal/device"
	"github.com/oshokin/qidev/internal/service/common"
	"github.com/oshokin/qidev/internal/testutil/bustest"
)

// virtualRobot serves a robot whose SSH port refuses connections.
func virtualRobot(t *testing.T) (*bustest.Robot, *common.ConnectOptions) {
	t.Helper()

	robot := bustest.Start(t)

	cfg := config.New("127.0.0.1")
	cfg.Port = robot.Port
	cfg.SSHPort = bustest.ClosedPort(t)
	cfg.Timeout = 2 * time.Second

	path := filepath.Join(t.TempDir(), config.DefaultConfigFilename)
	require.NoError(t, config.Save(path, cfg))

	return robot, &common.ConnectOptions{
		ConfigPath:  path,
		Credentials: credentials.NewStore(keyring.NewArrayKeyring(nil)),
	}
}

// pick returns a Chooser that records what it was offered and answers with the first option.
func pick(offered *[]string) Chooser {
	return func(_ string, options []string) (string, error) {
		*offered = options

		return options[0], nil
	}
}

// TestShow covers every listing.
func TestShow(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	robot, conn := virtualRobot(t)
	robot.AddPackage("my-app", "/apps/my-app.pkg")

	listing, err := Show(ctx, conn, ShowQuery{}, nil)
	require.NoError(t, err)
	require.Len(t, listing.Packages, 1)
	require.Equal(t, "my-app", listing.Packages[0].UUID)

	listing, err = Show(ctx, conn, ShowQuery{Services: true}, nil)
	require.NoError(t, err)
	require.Equal(t, []ServiceState{
		{Name: "ALTabletService", Running: true},
		{Name: "ALVoiceEmotion", Running: false},
	}, listing.Services)

	var offered []string

	listing, err = Show(ctx, conn, ShowQuery{Inspect: true}, pick(&offered))
	require.NoError(t, err)
	require.Equal(t, []string{"my-app"}, offered)
	require.Equal(t, "my-app", listing.Package.UUID)

	listing, err = Show(ctx, conn, ShowQuery{Active: true}, nil)
	require.NoError(t, err)
	require.Empty(t, listing.RunningBehaviors)
	require.Equal(t, []string{"ALTabletService"}, listing.RunningServices)
	require.Empty(t, listing.FocusedActivity)
}

// TestShow_InspectWithoutChooser needs a package name.
func TestShow_InspectWithoutChooser(t *testing.T) {
	t.Parallel()

	_, conn := virtualRobot(t)

	_, err := Show(context.Background(), conn, ShowQuery{Inspect: true}, nil)
	require.ErrorIs(t, err, errNoChooser)
}

// TestToggle starts and stops services, behaviors and the focused activity.
func TestToggle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	_, conn := virtualRobot(t)

	outcome, err := Toggle(ctx, conn, ToggleOptions{Start: true, Name: "ALVoiceEmotion"}, nil)
	require.NoError(t, err)
	require.True(t, outcome.Result.OK())

	outcome, err = Toggle(ctx, conn, ToggleOptions{Start: true, Name: "ALVoiceEmotion"}, nil)
	require.NoError(t, err)
	require.False(t, outcome.Result.OK())

	var offered []string

	outcome, err = Toggle(ctx, conn, ToggleOptions{Start: true, Behavior: true}, pick(&offered))
	require.NoError(t, err)
	require.True(t, outcome.Result.OK())
	require.Equal(t, []string{"animations/Stand/Gestures/Hey_1", "dialog_move_head/animations"}, offered)
	require.Equal(t, "animations/Stand/Gestures/Hey_1", outcome.Name)

	outcome, err = Toggle(ctx, conn, ToggleOptions{Behavior: true}, pick(&offered))
	require.NoError(t, err)
	require.True(t, outcome.Result.OK())
	require.Equal(t, []string{"animations/Stand/Gestures/Hey_1"}, offered)

	_, err = Toggle(ctx, conn, ToggleOptions{Behavior: true}, pick(&offered))
	require.ErrorIs(t, err, ErrNothingToChoose)

	outcome, err = Toggle(ctx, conn, ToggleOptions{Life: true}, nil)
	require.NoError(t, err)
	require.False(t, outcome.Result.OK())

	outcome, err = Toggle(ctx, conn, ToggleOptions{Start: true, Life: true, Name: "dialog_move_head/animations"}, nil)
	require.NoError(t, err)
	require.True(t, outcome.Result.OK())

	outcome, err = Toggle(ctx, conn, ToggleOptions{Life: true}, nil)
	require.NoError(t, err)
	require.True(t, outcome.Result.OK())
}

// TestLife maps on and off to the autonomous life states.
func TestLife(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	robot, conn := virtualRobot(t)

	require.NoError(t, Life(ctx, conn, "off"))
	require.Equal(t, "disabled", robot.LifeState())

	require.NoError(t, Life(ctx, conn, "ON"))
	require.Equal(t, "solitary", robot.LifeState())

	require.ErrorIs(t, Life(ctx, conn, "maybe"), ErrInvalidLifeState)
}

// TestPowerAndPosture covers reboot, shutdown, rest and wake.
func TestPowerAndPosture(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	robot, conn := virtualRobot(t)

	require.NoError(t, Wake(ctx, conn))
	require.Equal(t, "stand", robot.Posture())

	require.NoError(t, Rest(ctx, conn))
	require.Equal(t, "crouch", robot.Posture())

	require.NoError(t, Reboot(ctx, conn))
	require.Equal(t, "rebooting", robot.PowerState())

	require.NoError(t, Shutdown(ctx, conn))
	require.Equal(t, "shutdown", robot.PowerState())
}

// TestVolume applies directives and rejects malformed ones before connecting.
func TestVolume(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	robot, conn := virtualRobot(t)

	level, err := Volume(ctx, conn, "down")
	require.NoError(t, err)
	require.Equal(t, 40, level)
	require.Equal(t, 40, robot.Volume())

	_, err = Volume(ctx, conn, "eleven")
	require.ErrorIs(t, err, controller.ErrInvalidVolume)
}

// TestNao needs the shell channel, which a virtual robot lacks.
func TestNao(t *testing.T) {
	t.Parallel()

	_, conn := virtualRobot(t)

	_, err := Nao(context.Background(), conn, "restart")
	require.ErrorIs(t, err, device.ErrNoShell)

	_, err = Nao(context.Background(), conn, "explode")
	require.ErrorIs(t, err, ErrInvalidNaoAction)
}
