// Package version exposes qidev build metadata.
//
// Version, Commit and BuildTime are set with -ldflags "-X" at release time and
// keep their local-build defaults otherwise.
package version
