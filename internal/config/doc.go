// Package config defines the persisted connection settings of qidev and
// provides helpers to load, validate, edit and save them in YAML format.
//
// The settings hold the robot hostname, the shell username, the service bus
// and SSH ports, and the connect timeout. Passwords are never written here;
// see package credentials.
package config
