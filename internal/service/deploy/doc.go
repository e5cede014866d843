// Package deploy moves packages onto the robot and off it.
//
// Install builds the project archive, stages it, installs it through the
// package manager and removes the staged copy once the install succeeded.
// A failed install leaves the staged archive in place.
package deploy
