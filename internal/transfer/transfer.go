// Package transfer moves package archives between this machine and a robot's
// staging directory: over SFTP for physical robots, on the local filesystem
// for virtual ones.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/pkg/sftp"
	"go.uber.org/zap"

	"github.com/oshokin/qidev/internal/device"
	"github.com/oshokin/qidev/internal/logger"
)

var (
	// ErrTransfer wraps any file-transfer protocol failure.
	ErrTransfer = errors.New("file transfer failed")
	// ErrNoFileChannel is returned when the robot has no file-transfer channel.
	ErrNoFileChannel = errors.New("no file-transfer channel to the robot")
	// errUnknownMode is returned for Mode implementations this package does not know.
	errUnknownMode = errors.New("unknown device mode")
)

// Transfer performs file operations against a robot.
type Transfer struct {
	log *zap.SugaredLogger
}

// New returns a Transfer logging to log.
func New(log *zap.SugaredLogger) *Transfer {
	if log == nil {
		log = logger.NewNop()
	}

	return &Transfer{log: log}
}

// Upload places the archive in the robot's staging directory and returns its filename.
// Virtual robots already see the local file, so nothing is copied.
func (t *Transfer) Upload(_ context.Context, mode device.Mode, archivePath string) (string, error) {
	filename := filepath.Base(archivePath)

	switch m := mode.(type) {
	case device.Virtual:
		return filename, nil
	case device.Physical:
		if m.Files == nil {
			return "", ErrNoFileChannel
		}

		remotePath := path.Join(m.Staging, filename)

		t.log.Debugw("Uploading package", "local", archivePath, "remote", remotePath)

		if err := put(m.Files, archivePath, remotePath); err != nil {
			return "", fmt.Errorf("%w: upload %s: %w", ErrTransfer, filename, err)
		}

		return filename, nil
	default:
		return "", errUnknownMode
	}
}

// Fetch copies remotePath from the robot to localPath and returns the local path.
// An empty localPath means the remote base name in the working directory.
func (t *Transfer) Fetch(_ context.Context, mode device.Mode, remotePath, localPath string) (string, error) {
	physical, ok := mode.(device.Physical)
	if !ok || physical.Files == nil {
		return "", ErrNoFileChannel
	}

	if localPath == "" {
		localPath = path.Base(remotePath)
	}

	t.log.Debugw("Fetching file", "remote", remotePath, "local", localPath)

	if err := get(physical.Files, remotePath, localPath); err != nil {
		return "", fmt.Errorf("%w: fetch %s: %w", ErrTransfer, remotePath, err)
	}

	return localPath, nil
}

// Delete removes the staged copy of the archive.
// On a virtual robot that is the local archive itself.
func (t *Transfer) Delete(_ context.Context, mode device.Mode, archivePath string) error {
	switch m := mode.(type) {
	case device.Virtual:
		t.log.Debugw("Deleting local package", "path", archivePath)

		if err := os.Remove(archivePath); err != nil {
			return fmt.Errorf("delete %s: %w", archivePath, err)
		}

		return nil
	case device.Physical:
		if m.Shell == nil {
			return ErrNoFileChannel
		}

		remotePath := path.Join(m.Staging, filepath.Base(archivePath))

		t.log.Debugw("Deleting staged package", "remote", remotePath)

		// A dedicated SFTP session, released whatever the outcome.
		files, err := sftp.NewClient(m.Shell)
		if err != nil {
			return fmt.Errorf("%w: open sftp: %w", ErrTransfer, err)
		}

		defer files.Close() //nolint:errcheck // Nothing to do about a failed close.

		if err = files.Remove(remotePath); err != nil {
			return fmt.Errorf("delete %s: %w", remotePath, err)
		}

		return nil
	default:
		return errUnknownMode
	}
}

func put(files *sftp.Client, localPath, remotePath string) (err error) {
	src, err := os.Open(filepath.Clean(localPath))
	if err != nil {
		return err
	}

	defer src.Close() //nolint:errcheck // Read-only file.

	dst, err := files.Create(remotePath)
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := dst.Close(); err == nil {
			err = closeErr
		}
	}()

	_, err = dst.ReadFrom(src)

	return err
}

func get(files *sftp.Client, remotePath, localPath string) (err error) {
	src, err := files.Open(remotePath)
	if err != nil {
		return err
	}

	defer src.Close() //nolint:errcheck // Read-only file.

	dst, err := os.Create(filepath.Clean(localPath))
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := dst.Close(); err == nil {
			err = closeErr
		}
	}()

	_, err = io.Copy(dst, src)

	return err
}
