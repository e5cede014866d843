package setup

import (
	"context"
	"strings"

	"github.com/oshokin/qidev/internal/config"
	"github.com/oshokin/qidev/internal/credentials"
	"github.com/oshokin/qidev/internal/logger"
)

// FieldPassword stores the shell password in the keyring instead of the settings file.
const FieldPassword = "password"

// Options contains inputs for Configure and Connect.
type Options struct {
	// ConfigPath is the settings file; empty means config.DefaultPath.
	ConfigPath string
	// Credentials stores the password; nil opens the OS keyring.
	Credentials *credentials.Store
}

// Configure sets one field, the way "qidev config <field> <value>" does.
func Configure(ctx context.Context, opts *Options, field, value string) error {
	cfg, err := config.LoadOrNew(opts.ConfigPath)
	if err != nil {
		return err
	}

	if strings.EqualFold(strings.TrimSpace(field), FieldPassword) {
		return storePassword(ctx, opts, cfg, value)
	}

	if err = config.SetField(cfg, field, value); err != nil {
		return err
	}

	if cfg.Hostname == "" {
		return config.ErrNotConnected
	}

	if err = config.Save(opts.ConfigPath, cfg); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Setting saved", "field", field, "value", value)

	return nil
}

// Connect remembers hostname as the robot to talk to.
func Connect(ctx context.Context, opts *Options, hostname string) error {
	return Configure(ctx, opts, config.FieldHostname, hostname)
}

func storePassword(ctx context.Context, opts *Options, cfg *config.Config, password string) error {
	if cfg.Hostname == "" {
		return config.ErrNotConnected
	}

	store := opts.Credentials
	if store == nil {
		var err error

		if store, err = credentials.Open(); err != nil {
			return err
		}
	}

	if err := store.SetPassword(cfg.Username, cfg.Hostname, password); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Password stored", "user", cfg.Username, "host", cfg.Hostname)

	return nil
}
