package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"

	"google.golang.org/grpc"

	api "github.com/oshokin/qidev/internal/api/grpc/bus"
	"github.com/oshokin/qidev/internal/config"
	"github.com/oshokin/qidev/internal/logger"
)

// Options controls the simulated robot.
type Options struct {
	// ListenAddress is where the service bus listens; empty means the default bus port on loopback.
	ListenAddress string
	// Name is the robot name reported by ALSystem.
	Name string
	// Ready, when set, receives the bound address once the server accepts calls.
	Ready func(address string)
}

const defaultRobotName = "nao"

// Run serves an emulated robot over the service bus until ctx is canceled.
// Pointing qidev at it with an unused SSH port gives a virtual robot.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "simulate")

	listenAddress := opts.ListenAddress
	if listenAddress == "" {
		listenAddress = net.JoinHostPort("127.0.0.1", strconv.Itoa(config.DefaultPort))
	}

	name := opts.Name
	if name == "" {
		name = defaultRobotName
	}

	srv := api.NewServer()
	api.NewRobot(name).Register(srv)

	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", listenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", listenAddress, err)
	}

	grpcServer := grpc.NewServer()
	srv.Attach(grpcServer)

	logger.InfoKV(ctx, "Simulated robot listening", "listen_address", lis.Addr().String(), "name", name)

	if opts.Ready != nil {
		opts.Ready(lis.Addr().String())
	}

	// Done channel is closed after GracefulStop finishes to ensure we block
	// until the server fully stops before returning.
	done := make(chan struct{})

	go func() {
		<-ctx.Done()
		logger.Info(ctx, "Shutting down simulated robot")
		grpcServer.GracefulStop()
		close(done)
	}()

	if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve gRPC: %w", err)
	}

	<-done

	return nil
}
