// Package bustest serves an emulated robot on loopback for tests.
package bustest

import (
	"net"
	"strconv"
	"testing"

	server "github.com/oshokin/qidev/internal/api/grpc/bus"
)

// Robot is an emulated robot reachable over the service bus.
type Robot struct {
	*server.Robot

	// Server records the calls served.
	Server *server.Server
	// Port is the service bus port on 127.0.0.1.
	Port int
}

// Start serves a robot named "nao" until the test ends.
func Start(t *testing.T) *Robot {
	t.Helper()

	srv := server.NewServer()
	robot := server.NewRobot("nao")
	robot.Register(srv)

	addr, stop, err := srv.Serve("127.0.0.1:0")
	if err != nil {
		t.Fatalf("serve robot: %v", err)
	}

	t.Cleanup(stop)

	return &Robot{Robot: robot, Server: srv, Port: portOf(t, addr)}
}

// ClosedPort returns a loopback port nothing listens on.
// Dialing it is refused, which is how a virtual robot looks over SSH.
func ClosedPort(t *testing.T) int {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("reserve port: %v", err)
	}

	addr := listener.Addr().String()
	_ = listener.Close()

	return portOf(t, addr)
}

func portOf(t *testing.T, addr string) int {
	t.Helper()

	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatalf("split %s: %v", addr, err)
	}

	n, err := strconv.Atoi(port)
	if err != nil {
		t.Fatalf("parse port %s: %v", port, err)
	}

	return n
}
