package controller

import "errors"

// Result is the outcome of an operation whose failure is reported, not raised.
type Result struct {
	// Err is the remote failure, nil on success.
	Err error
}

// OK reports success.
func (r Result) OK() bool {
	return r.Err == nil
}

// errRefused is recorded when the robot answers false without raising.
var errRefused = errors.New("the robot refused the request")

func resultOf(err error) Result {
	return Result{Err: err}
}
