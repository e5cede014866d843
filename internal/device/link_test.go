package device

import (
	"context"
	"net"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	server "github.com/oshokin/qidev/internal/api/grpc/bus"
	"github.com/oshokin/qidev/internal/testutil/sshtest"
)

const testTimeout = 2 * time.Second

// reservePort returns a free TCP port on loopback and closes it.
func reservePort(t *testing.T) int {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	//nolint:forcetypeassert // TCP listener.
	port := l.Addr().(*net.TCPAddr).Port
	_ = l.Close()

	return port
}

// startRobot serves an emulated robot bus on loopback and returns its port.
func startRobot(t *testing.T) int {
	t.Helper()

	srv := server.NewServer()
	server.NewRobot("nao").Register(srv)

	addr, stop, err := srv.Serve("127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(stop)

	_, port, err := net.SplitHostPort(addr)
	require.NoError(t, err)

	n, err := net.LookupPort("tcp", port)
	require.NoError(t, err)

	return n
}

// TestOpen_UnreachableSession fails with ErrConnection when the bus port is closed.
func TestOpen_UnreachableSession(t *testing.T) {
	t.Parallel()

	identity := Identity{
		Hostname: "127.0.0.1",
		Username: "nao",
		Password: "nao",
		Port:     reservePort(t),
		SSHPort:  reservePort(t),
	}

	link, err := Open(context.Background(), identity, Options{Session: true, Shell: true, Timeout: testTimeout}, nil)
	require.ErrorIs(t, err, ErrConnection)
	require.Nil(t, link)
}

// TestOpen_UnresolvableHost fails with ErrConnection whichever channels are requested.
func TestOpen_UnresolvableHost(t *testing.T) {
	t.Parallel()

	identity := Identity{
		Hostname: "qidev-robot.invalid",
		Username: "nao",
		Password: "nao",
		Port:     9559,
		SSHPort:  22,
	}

	for _, opts := range []Options{
		{Session: true, Shell: true, Timeout: testTimeout},
		{Session: false, Shell: true, Timeout: testTimeout},
	} {
		link, err := Open(context.Background(), identity, opts, nil)
		require.ErrorIs(t, err, ErrConnection)
		require.Nil(t, link)
	}
}

// TestOpen_RefusedShellMeansVirtual switches to virtual mode when SSH is refused.
func TestOpen_RefusedShellMeansVirtual(t *testing.T) {
	t.Parallel()

	identity := Identity{
		Hostname: "127.0.0.1",
		Username: "nao",
		Password: "nao",
		Port:     startRobot(t),
		SSHPort:  reservePort(t),
	}

	link, err := Open(context.Background(), identity, Options{Session: true, Shell: true, Timeout: testTimeout}, nil)
	require.NoError(t, err)

	defer func() {
		require.NoError(t, link.Close())
	}()

	require.True(t, link.IsVirtual())

	home, err := os.UserHomeDir()
	require.NoError(t, err)

	virtual, ok := link.Mode().(Virtual)
	require.True(t, ok)
	require.Equal(t, home, virtual.LocalRoot)
	require.Equal(t, LocalStagingPath(home), link.StagingPath())
	require.True(t, strings.HasPrefix(link.StagingPath(), home))

	require.Nil(t, link.shell)
	require.Nil(t, link.files)

	_, err = link.Run(context.Background(), "nao status")
	require.ErrorIs(t, err, ErrNoShell)

	session, err := link.Bus()
	require.NoError(t, err)
	require.NotNil(t, session)
}

// TestOpen_Physical keeps both channels when SSH accepts the credentials.
func TestOpen_Physical(t *testing.T) {
	t.Parallel()

	sshServer := sshtest.Start(t, "nao", "nao")
	sshServer.Reply("nao status", "naoqi is running\n")

	identity := Identity{
		Hostname: "127.0.0.1",
		Username: "nao",
		Password: "nao",
		Port:     startRobot(t),
		SSHPort:  sshServer.Port(),
	}

	link, err := Open(context.Background(), identity, Options{Session: true, Shell: true, Timeout: testTimeout}, nil)
	require.NoError(t, err)

	defer link.Close() //nolint:errcheck // Test cleanup.

	require.False(t, link.IsVirtual())
	require.Equal(t, "127.0.0.1", link.Hostname())
	require.Equal(t, "/home/nao/.local/share/PackageManager/apps", link.StagingPath())

	physical, ok := link.Mode().(Physical)
	require.True(t, ok)
	require.NotNil(t, physical.Shell)
	require.NotNil(t, physical.Files)

	output, err := link.Run(context.Background(), "nao status")
	require.NoError(t, err)
	require.Equal(t, "naoqi is running\n", output)

	_, err = link.Run(context.Background(), "nao explode")
	require.Error(t, err)
	require.Equal(t, []string{"nao status", "nao explode"}, sshServer.Commands())
}

// TestOpen_BadPassword treats an authentication failure as a connection error.
func TestOpen_BadPassword(t *testing.T) {
	t.Parallel()

	sshServer := sshtest.Start(t, "nao", "nao")

	identity := Identity{
		Hostname: "127.0.0.1",
		Username: "nao",
		Password: "wrong",
		SSHPort:  sshServer.Port(),
	}

	link, err := Open(context.Background(), identity, Options{Shell: true, Timeout: testTimeout}, nil)
	require.ErrorIs(t, err, ErrConnection)
	require.Nil(t, link)
}

// TestOpen_ShellOnly leaves the session unset.
func TestOpen_ShellOnly(t *testing.T) {
	t.Parallel()

	identity := Identity{
		Hostname: "127.0.0.1",
		Username: "nao",
		SSHPort:  reservePort(t),
	}

	link, err := Open(context.Background(), identity, Options{Shell: true, Timeout: testTimeout}, nil)
	require.NoError(t, err)

	defer link.Close() //nolint:errcheck // Test cleanup.

	_, err = link.Bus()
	require.ErrorIs(t, err, ErrNoSession)
}

// TestStagingPaths checks the fixed robot layout.
func TestStagingPaths(t *testing.T) {
	t.Parallel()

	require.Equal(t, "/home/nao/.local/share/PackageManager/apps", RemoteStagingPath("nao"))
	require.Equal(t, "/home/nao/.local/share/PackageManager/apps", Physical{Staging: RemoteStagingPath("nao")}.StagingPath())
	require.Contains(t, LocalStagingPath(os.TempDir()), "PackageManager")
}
