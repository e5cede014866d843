// Package common opens the robot for the command services.
//
// Connect reads the persisted settings, looks up the shell password and opens a
// device link with the channels a command needs, bundled with the controller
// and transfer helpers that run over it.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
