//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"

	"github.com/oshokin/qidev/internal/config"
	"github.com/oshokin/qidev/internal/controller"
	"github.com/oshokin/qidev/internal/credentials"
	"github.com/oshokin/qidev/internal/device"
	"github.com/oshokin/qidev/internal/logger"
	"github.com/oshokin/qidev/internal/transfer"
)

// ConnectOptions selects the robot and the channels to open.
type ConnectOptions struct {
	// ConfigPath is the settings file; empty means config.DefaultPath.
	ConfigPath string
	// Hostname overrides the persisted hostname.
	Hostname string
	// Session opens the service bus session.
	Session bool
	// Shell opens the SSH channel.
	Shell bool
	// Staging overrides the remote package staging directory.
	Staging string
	// Credentials supplies the shell password; nil opens the OS keyring.
	Credentials *credentials.Store
}

// Robot is an open robot with the helpers that operate on it.
type Robot struct {
	// Config is the effective configuration.
	Config *config.Config
	// Link holds the open channels.
	Link *device.Link
	// Controller calls services; nil when no session was requested.
	Controller *controller.Controller
	// Transfer moves files to and from the robot.
	Transfer *transfer.Transfer
}

// Connect loads the settings and opens the robot.
func Connect(ctx context.Context, opts *ConnectOptions) (*Robot, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	store := opts.Credentials
	if store == nil && opts.Shell {
		if store, err = credentials.Open(); err != nil {
			logger.WarnKV(ctx, "Keyring unavailable, using the default password", "error", err)
		}
	}

	password, err := store.Password(cfg.Username, cfg.Hostname)
	if err != nil {
		return nil, err
	}

	identity := device.Identity{
		Hostname: cfg.Hostname,
		Username: cfg.Username,
		Password: password,
		Port:     cfg.Port,
		SSHPort:  cfg.SSHPort,
	}

	link, err := device.Open(ctx, identity, device.Options{
		Session: opts.Session,
		Shell:   opts.Shell,
		Timeout: cfg.Timeout,
		Staging: opts.Staging,
	}, logger.Component(ctx, "device"))
	if err != nil {
		return nil, err
	}

	robot := &Robot{
		Config:   cfg,
		Link:     link,
		Transfer: transfer.New(logger.Component(ctx, "transfer")),
	}

	if opts.Session {
		session, err := link.Bus()
		if err != nil {
			_ = link.Close()

			return nil, err
		}

		robot.Controller = controller.New(session, logger.Component(ctx, "controller"))
	}

	return robot, nil
}

// Close releases the robot's channels.
func (r *Robot) Close() error {
	if r == nil {
		return nil
	}

	return r.Link.Close()
}

// loadConfig reads the settings, applying the hostname override.
// With an override the settings file may be missing.
func loadConfig(opts *ConnectOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)

	switch {
	case err == nil:
	case errors.Is(err, config.ErrNotConnected) && opts.Hostname != "":
		cfg = config.New(opts.Hostname)
	default:
		return nil, err
	}

	if opts.Hostname != "" {
		cfg.Hostname = opts.Hostname
	}

	return cfg, nil
}
