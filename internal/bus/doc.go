// Package bus is the client side of the robot's service bus.
//
// The bus is a registry of named services (PackageManager, ALBehaviorManager,
// ALAudioDevice, ...). A Session resolves a service by name and calls its
// methods with positional arguments. Calls travel over gRPC with a generic
// envelope built from protobuf well-known types, so no generated stubs are
// involved:
//
//	/qi.bus.v1.ServiceBus/Lookup  Struct{service}                -> Struct{service}
//	/qi.bus.v1.ServiceBus/Call    Struct{service, method, args}  -> Value
//
// Handles are never cached: every operation resolves its service again.
package bus
