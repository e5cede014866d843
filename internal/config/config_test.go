package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestValidate checks required fields and defaults for Config.
func TestValidate(t *testing.T) {
	t.Parallel()

	// Missing hostname.
	err := Validate(new(Config))
	require.Error(t, err)

	// Bad port.
	err = Validate(&Config{Hostname: "nao.local", Port: 70000})
	require.Error(t, err)

	// Defaults are filled in.
	cfg := &Config{Hostname: "nao.local"}
	require.NoError(t, Validate(cfg))
	require.Equal(t, DefaultUsername, cfg.Username)
	require.Equal(t, DefaultPort, cfg.Port)
	require.Equal(t, DefaultSSHPort, cfg.SSHPort)
	require.Equal(t, DefaultTimeout, cfg.Timeout)
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "settings.yaml")

	settings := &Config{
		Hostname: "192.168.1.12",
		Username: "nao",
		Port:     9559,
		SSHPort:  2222,
		Timeout:  3 * time.Second,
	}

	require.NoError(t, Save(path, settings))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, settings, loaded)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(DefaultFilePermissions), info.Mode().Perm())
}

// TestLoad_Missing reports that the user must connect first.
func TestLoad_Missing(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.ErrorIs(t, err, ErrNotConnected)

	cfg, err := LoadOrNew(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.Empty(t, cfg.Hostname)
	require.Equal(t, DefaultPort, cfg.Port)
}

// TestSetField covers every editable field and the error paths.
func TestSetField(t *testing.T) {
	t.Parallel()

	cfg := New("nao.local")

	require.NoError(t, SetField(cfg, "hostname", " pepper.local "))
	require.NoError(t, SetField(cfg, "USERNAME", "admin"))
	require.NoError(t, SetField(cfg, "port", "9600"))
	require.NoError(t, SetField(cfg, "ssh_port", "2200"))
	require.NoError(t, SetField(cfg, "timeout", "750ms"))

	require.Equal(t, &Config{
		Hostname: "pepper.local",
		Username: "admin",
		Port:     9600,
		SSHPort:  2200,
		Timeout:  750 * time.Millisecond,
	}, cfg)

	require.ErrorIs(t, SetField(cfg, "colour", "blue"), ErrUnknownField)
	require.Error(t, SetField(cfg, "port", "abc"))
	require.Error(t, SetField(cfg, "port", "0"))
	require.Error(t, SetField(cfg, "timeout", "soon"))
}
