// Package server runs a simulated robot: the service bus of an emulated robot
// on a local port, for trying qidev without hardware.
package server
