package version

import (
	"fmt"
	"runtime/debug"
)

// Placeholders left in Commit and BuildTime when ldflags do not set them.
const (
	unknownCommit = "none"
	unknownTime   = "unknown"
	// shortCommitLength is how much of a VCS revision is shown.
	shortCommitLength = 7
)

var (
	// Version is the semantic version of the build. It can be overridden via ldflags.
	Version = "0.1.0"
	// Commit is the short git SHA embedded at build time (or "none").
	Commit = unknownCommit
	// BuildTime is the UTC build timestamp embedded at build time.
	BuildTime = unknownTime
)

// Info describes one build of qidev.
type Info struct {
	Version   string
	Commit    string
	BuildTime string
	Modified  bool
}

// Current returns the ldflags values, completed from the VCS stamp the Go toolchain embeds.
func Current() Info {
	info := Info{Version: Version, Commit: Commit, BuildTime: BuildTime}

	if build, ok := debug.ReadBuildInfo(); ok {
		info = info.withBuildSettings(build.Settings)
	}

	return info
}

// withBuildSettings fills the fields ldflags left unset from vcs.* settings.
func (i Info) withBuildSettings(settings []debug.BuildSetting) Info {
	for _, setting := range settings {
		switch setting.Key {
		case "vcs.revision":
			if i.Commit == unknownCommit && setting.Value != "" {
				i.Commit = setting.Value[:min(len(setting.Value), shortCommitLength)]
			}
		case "vcs.time":
			if i.BuildTime == unknownTime && setting.Value != "" {
				i.BuildTime = setting.Value
			}
		case "vcs.modified":
			i.Modified = setting.Value == "true"
		}
	}

	return i
}

// String renders the build as printed by `qidev version`.
func (i Info) String() string {
	commit := i.Commit
	if i.Modified {
		commit += "-dirty"
	}

	return fmt.Sprintf("qidev %s (commit %s, built %s)", i.Version, commit, i.BuildTime)
}

// Short returns only the semantic version string.
func Short() string {
	return Version
}

// Full returns a human-readable version string with commit and build time.
func Full() string {
	return Current().String()
}
