// Package controller issues lifecycle operations against the robot's named
// services: package install and removal, behaviors, services, autonomous
// life, power, motion and audio.
//
// Every operation resolves its service on the bus again; nothing is cached and
// nothing is retried. Operations whose failure is an expected answer
// (remove, start, stop, focus) return a Result instead of an error.
package controller
