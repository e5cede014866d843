// Package bus implements the server side of the service bus envelope.
//
// Server dispatches Lookup and Call requests to Go handlers registered per
// service and method. It stands in for a robot in tests and in local
// simulations of the bus.
package bus
