package bus

import (
	"context"
	"fmt"
	"net"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	client "github.com/oshokin/qidev/internal/bus"
)

// Handler serves one method of a service.
// A nil result is sent as a null value.
type Handler func(ctx context.Context, args []*structpb.Value) (*structpb.Value, error)

// Server implements the ServiceBus gRPC API.
type Server struct {
	// mu guards services and calls.
	mu sync.RWMutex
	// services maps service name to method name to handler.
	services map[string]map[string]Handler
	// calls records every served call as "service.method", in order.
	calls []string
}

// busServer is the handler type checked by grpc.Server.RegisterService.
type busServer interface {
	lookup(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	call(ctx context.Context, req *structpb.Struct) (*structpb.Value, error)
}

var _ busServer = (*Server)(nil)

// NewServer returns a server with no services.
func NewServer() *Server {
	return &Server{
		services: make(map[string]map[string]Handler),
	}
}

// Register installs handler for service.method, declaring the service.
func (s *Server) Register(service, method string, handler Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()

	methods, ok := s.services[service]
	if !ok {
		methods = make(map[string]Handler)
		s.services[service] = methods
	}

	methods[method] = handler
}

// Calls returns the served calls in order.
func (s *Server) Calls() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]string(nil), s.calls...)
}

// Attach registers the service bus on a gRPC server.
func (s *Server) Attach(registrar grpc.ServiceRegistrar) {
	registrar.RegisterService(&serviceDesc, s)
}

func (s *Server) lookup(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	name := req.GetFields()[client.FieldService].GetStringValue()
	if name == "" {
		return nil, status.Error(codes.InvalidArgument, "service is required")
	}

	s.mu.RLock()
	_, ok := s.services[name]
	s.mu.RUnlock()

	if !ok {
		return nil, status.Errorf(codes.NotFound, "service %q is not registered", name)
	}

	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			client.FieldService: structpb.NewStringValue(name),
		},
	}, nil
}

func (s *Server) call(ctx context.Context, req *structpb.Struct) (*structpb.Value, error) {
	var (
		fields  = req.GetFields()
		service = fields[client.FieldService].GetStringValue()
		method  = fields[client.FieldMethod].GetStringValue()
		args    = fields[client.FieldArgs].GetListValue().GetValues()
	)

	s.mu.Lock()
	s.calls = append(s.calls, service+"."+method)
	methods, ok := s.services[service]

	var handler Handler
	if ok {
		handler = methods[method]
	}
	s.mu.Unlock()

	if !ok {
		return nil, status.Errorf(codes.NotFound, "service %q is not registered", service)
	}

	if handler == nil {
		return nil, status.Errorf(codes.Unimplemented, "%s has no method %q", service, method)
	}

	result, err := handler(ctx, args)
	if err != nil {
		if _, isStatus := status.FromError(err); isStatus {
			return nil, err
		}

		return nil, status.Error(codes.Internal, err.Error())
	}

	if result == nil {
		result = structpb.NewNullValue()
	}

	return result, nil
}

//nolint:gochecknoglobals // Service descriptors are package-level by gRPC convention.
var serviceDesc = grpc.ServiceDesc{
	ServiceName: client.ServiceName,
	HandlerType: (*busServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Lookup",
			Handler: func(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
				req := new(structpb.Struct)
				if err := dec(req); err != nil {
					return nil, err
				}

				//nolint:forcetypeassert // RegisterService guarantees the handler type.
				return srv.(busServer).lookup(ctx, req)
			},
		},
		{
			MethodName: "Call",
			Handler: func(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
				req := new(structpb.Struct)
				if err := dec(req); err != nil {
					return nil, err
				}

				//nolint:forcetypeassert // RegisterService guarantees the handler type.
				return srv.(busServer).call(ctx, req)
			},
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "qi/bus/v1/bus.proto",
}

// Serve starts a gRPC server for s on address (use "127.0.0.1:0" for a free
// port) and returns the bound address with a function that stops it.
func (s *Server) Serve(address string) (string, func(), error) {
	listener, err := new(net.ListenConfig).Listen(context.Background(), "tcp", address)
	if err != nil {
		return "", nil, fmt.Errorf("listen on %s: %w", address, err)
	}

	grpcServer := grpc.NewServer()
	s.Attach(grpcServer)

	go func() {
		_ = grpcServer.Serve(listener) //nolint:errcheck // Serve returns once stopped.
	}()

	return listener.Addr().String(), grpcServer.Stop, nil
}
