package bus

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// Fully qualified gRPC method names of the service bus.
const (
	ServiceName  = "qi.bus.v1.ServiceBus"
	LookupMethod = "/" + ServiceName + "/Lookup"
	CallMethod   = "/" + ServiceName + "/Call"
)

// Envelope field names shared by client and server.
const (
	FieldService = "service"
	FieldMethod  = "method"
	FieldArgs    = "args"
)

// ServiceBus resolves named services on the robot.
type ServiceBus interface {
	Resolve(ctx context.Context, name string) (ServiceHandle, error)
	Close() error
}

// ServiceHandle calls methods of one resolved service.
type ServiceHandle interface {
	Name() string
	Call(ctx context.Context, method string, args ...any) (*structpb.Value, error)
}

// ErrConnection reports that the bus could not be reached.
var ErrConnection = errors.New("could not establish connection to host")

// RemoteOperationError is a failure raised by the robot while serving a call.
type RemoteOperationError struct {
	// Service is the target service name.
	Service string
	// Method is the called method, empty for lookups.
	Method string
	// Err is the underlying transport or remote error.
	Err error
}

// Error implements error.
func (e *RemoteOperationError) Error() string {
	message := e.Err.Error()
	if st, ok := status.FromError(e.Err); ok {
		message = st.Message()
	}

	if e.Method == "" {
		return fmt.Sprintf("%s: %s", e.Service, message)
	}

	return fmt.Sprintf("%s.%s: %s", e.Service, e.Method, message)
}

// Unwrap returns the underlying error.
func (e *RemoteOperationError) Unwrap() error {
	return e.Err
}

// IsRemoteOperation reports whether err carries a RemoteOperationError.
func IsRemoteOperation(err error) bool {
	var remoteErr *RemoteOperationError

	return errors.As(err, &remoteErr)
}
