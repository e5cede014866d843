package device

import (
	"path"
	"path/filepath"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// Mode is either Physical or Virtual.
type Mode interface {
	// StagingPath is where package archives wait before installation.
	StagingPath() string

	isMode()
}

// Physical is a robot reachable over the service bus and SSH.
type Physical struct {
	// Shell is the SSH connection, nil when the shell channel was not requested.
	Shell *ssh.Client
	// Files is the SFTP client on Shell, nil with it.
	Files *sftp.Client
	// Staging is the remote staging directory.
	Staging string
}

// StagingPath implements Mode.
func (p Physical) StagingPath() string { return p.Staging }

func (Physical) isMode() {}

// Virtual is a simulated robot whose filesystem is the local one.
type Virtual struct {
	// LocalRoot is the home directory standing in for the robot's.
	LocalRoot string
	// Staging is the local staging directory under LocalRoot.
	Staging string
}

// StagingPath implements Mode.
func (v Virtual) StagingPath() string { return v.Staging }

func (Virtual) isMode() {}

// stagingSuffix is the package manager directory relative to a home directory.
var stagingSuffix = []string{".local", "share", "PackageManager", "apps"} //nolint:gochecknoglobals // Fixed robot layout.

// RemoteStagingPath returns the staging directory of user on a physical robot.
// Robots always run Linux, so the path uses forward slashes.
func RemoteStagingPath(user string) string {
	return path.Join(append([]string{"/home", user}, stagingSuffix...)...)
}

// LocalStagingPath returns the staging directory under a local home directory.
func LocalStagingPath(home string) string {
	return filepath.Join(append([]string{home}, stagingSuffix...)...)
}
