package bus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/qidev/internal/logger"
)

// Session is a remote-procedure session to the robot's service bus.
type Session struct {
	// conn is the underlying gRPC connection.
	conn *grpc.ClientConn
	// address is the host:port the session was opened against.
	address string
	// log receives per-call diagnostics.
	log *zap.SugaredLogger

	// connectTimeout bounds the initial handshake only.
	connectTimeout time.Duration
}

// Option configures a Session.
type Option func(*Session)

// WithConnectTimeout bounds how long Dial waits for the connection to become ready.
func WithConnectTimeout(timeout time.Duration) Option {
	return func(s *Session) {
		if timeout > 0 {
			s.connectTimeout = timeout
		}
	}
}

// WithLogger sets the logger used for call diagnostics.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(s *Session) {
		if log != nil {
			s.log = log
		}
	}
}

const defaultConnectTimeout = 5 * time.Second

var (
	// errAddressRequired is returned when a required address value is missing.
	errAddressRequired = errors.New("address must be provided")
	// errSessionClosed is returned when a closed or zero session is used.
	errSessionClosed = errors.New("session is closed")
)

var _ ServiceBus = (*Session)(nil)

// Dial opens a session and waits until the connection is ready.
// Any failure, including name resolution, wraps ErrConnection.
// Note: the bus speaks plaintext; robots live on a trusted network.
func Dial(ctx context.Context, address string, opts ...Option) (*Session, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	session := &Session{
		address:        address,
		log:            logger.NewNop(),
		connectTimeout: defaultConnectTimeout,
	}

	for _, opt := range opts {
		opt(session)
	}

	conn, err := grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrConnection, address, err)
	}

	if err = waitReady(ctx, conn, session.connectTimeout); err != nil {
		_ = conn.Close()

		return nil, fmt.Errorf("%w %s: %w", ErrConnection, address, err)
	}

	session.conn = conn

	session.log.Debugw("Service bus session ready", "address", address)

	return session, nil
}

// waitReady drives the lazily connecting client until READY, or fails on the
// first transient failure so an unreachable robot is reported right away.
func waitReady(ctx context.Context, conn *grpc.ClientConn, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn.Connect()

	for {
		state := conn.GetState()

		switch state {
		case connectivity.Ready:
			return nil
		case connectivity.TransientFailure, connectivity.Shutdown:
			return fmt.Errorf("connection state %s", state)
		case connectivity.Idle:
			conn.Connect()
		case connectivity.Connecting:
		}

		if !conn.WaitForStateChange(ctx, state) {
			return ctx.Err()
		}
	}
}

// Address returns the host:port of the session.
func (s *Session) Address() string {
	return s.address
}

// Close releases the underlying gRPC connection.
func (s *Session) Close() error {
	if s == nil || s.conn == nil {
		return nil
	}

	err := s.conn.Close()
	s.conn = nil

	return err
}

// Resolve looks a service up on the bus. Nothing is cached.
//
//nolint:ireturn // Callers program against the ServiceHandle capability.
func (s *Session) Resolve(ctx context.Context, name string) (ServiceHandle, error) {
	if s == nil || s.conn == nil {
		return nil, errSessionClosed
	}

	request, err := structpb.NewStruct(map[string]any{FieldService: name})
	if err != nil {
		return nil, fmt.Errorf("encode lookup: %w", err)
	}

	response := new(structpb.Struct)

	if err = s.conn.Invoke(ctx, LookupMethod, request, response); err != nil {
		return nil, &RemoteOperationError{Service: name, Err: err}
	}

	s.log.Debugw("Resolved service", "service", name)

	return &handle{session: s, name: name}, nil
}

// handle is a resolved service bound to the session that resolved it.
type handle struct {
	session *Session
	name    string
}

// Name returns the service name.
func (h *handle) Name() string {
	return h.name
}

// Call invokes method with positional arguments and returns its result.
func (h *handle) Call(ctx context.Context, method string, args ...any) (*structpb.Value, error) {
	if h.session.conn == nil {
		return nil, errSessionClosed
	}

	list, err := structpb.NewList(args)
	if err != nil {
		return nil, fmt.Errorf("encode %s.%s arguments: %w", h.name, method, err)
	}

	request := &structpb.Struct{
		Fields: map[string]*structpb.Value{
			FieldService: structpb.NewStringValue(h.name),
			FieldMethod:  structpb.NewStringValue(method),
			FieldArgs:    structpb.NewListValue(list),
		},
	}

	response := new(structpb.Value)

	h.session.log.Debugw("Calling service", "service", h.name, "method", method)

	if err = h.session.conn.Invoke(ctx, CallMethod, request, response); err != nil {
		return nil, &RemoteOperationError{Service: h.name, Method: method, Err: err}
	}

	return response, nil
}
