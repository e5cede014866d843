package bus_test

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	server "github.com/oshokin/qidev/internal/api/grpc/bus"
	"github.com/oshokin/qidev/internal/bus"
)

// startBus serves srv on a loopback port for the duration of the test.
func startBus(t *testing.T, srv *server.Server) string {
	t.Helper()

	addr, stop, err := srv.Serve("127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(stop)

	return addr
}

// reservePort returns an address on a free TCP port and closes it.
func reservePort(t *testing.T) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	addr := l.Addr().String()
	_ = l.Close()

	return addr
}

// TestDial_ValidatesAddress verifies that Dial rejects empty addresses.
func TestDial_ValidatesAddress(t *testing.T) {
	t.Parallel()

	s, err := bus.Dial(context.Background(), "")
	require.Error(t, err)
	require.Nil(t, s)
}

// TestDial_Unreachable reports ErrConnection for a closed port.
func TestDial_Unreachable(t *testing.T) {
	t.Parallel()

	s, err := bus.Dial(context.Background(), reservePort(t), bus.WithConnectTimeout(2*time.Second))
	require.ErrorIs(t, err, bus.ErrConnection)
	require.Nil(t, s)
}

// TestSession_ResolveAndCall exercises lookup, argument encoding and result decoding.
func TestSession_ResolveAndCall(t *testing.T) {
	t.Parallel()

	srv := server.NewServer()
	srv.Register("ALTextToSpeech", "say", func(_ context.Context, args []*structpb.Value) (*structpb.Value, error) {
		return structpb.NewStringValue("said " + args[0].GetStringValue()), nil
	})

	ctx := context.Background()

	addr := startBus(t, srv)

	session, err := bus.Dial(ctx, addr)
	require.NoError(t, err)

	defer func() {
		require.NoError(t, session.Close())
	}()

	require.Equal(t, addr, session.Address())

	tts, err := session.Resolve(ctx, "ALTextToSpeech")
	require.NoError(t, err)
	require.Equal(t, "ALTextToSpeech", tts.Name())

	result, err := tts.Call(ctx, "say", "hello")
	require.NoError(t, err)

	said, err := bus.AsString(result)
	require.NoError(t, err)
	require.Equal(t, "said hello", said)

	require.Equal(t, []string{"ALTextToSpeech.say"}, srv.Calls())
}

// TestSession_RemoteErrors wraps lookup and call failures in RemoteOperationError.
func TestSession_RemoteErrors(t *testing.T) {
	t.Parallel()

	srv := server.NewServer()
	srv.Register("PackageManager", "removePkg", func(context.Context, []*structpb.Value) (*structpb.Value, error) {
		return nil, errors.New("package not found")
	})

	ctx := context.Background()

	session, err := bus.Dial(ctx, startBus(t, srv))
	require.NoError(t, err)

	defer session.Close() //nolint:errcheck // Test cleanup.

	_, err = session.Resolve(ctx, "ALMissing")
	require.True(t, bus.IsRemoteOperation(err))
	require.Equal(t, codes.NotFound, status.Code(errors.Unwrap(err)))

	pm, err := session.Resolve(ctx, "PackageManager")
	require.NoError(t, err)

	_, err = pm.Call(ctx, "removePkg", "my-app")

	var remoteErr *bus.RemoteOperationError
	require.ErrorAs(t, err, &remoteErr)
	require.Equal(t, "PackageManager", remoteErr.Service)
	require.Equal(t, "removePkg", remoteErr.Method)
	require.Equal(t, "PackageManager.removePkg: package not found", remoteErr.Error())

	_, err = pm.Call(ctx, "explode")
	require.Equal(t, codes.Unimplemented, status.Code(errors.Unwrap(err)))
}

// TestSession_Closed rejects calls on a closed session.
func TestSession_Closed(t *testing.T) {
	t.Parallel()

	var session *bus.Session

	require.NoError(t, session.Close())

	_, err := session.Resolve(context.Background(), "ALSystem")
	require.Error(t, err)
}
