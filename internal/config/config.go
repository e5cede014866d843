package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the connection parameters of the robot qidev talks to.
type Config struct {
	// Hostname is the robot hostname or IP address.
	Hostname string `yaml:"hostname"`
	// Username is the shell account used for SSH and to build the staging path.
	Username string `yaml:"username"`
	// Port is the service bus port.
	Port int `yaml:"port"`
	// SSHPort is the port of the robot's SSH daemon.
	SSHPort int `yaml:"ssh_port"`
	// Timeout bounds the initial connection handshake of both channels.
	Timeout time.Duration `yaml:"timeout"`
}

const (
	// DefaultConfigFilename is the settings file name inside the config directory.
	DefaultConfigFilename = "settings.yaml"

	// DefaultUsername is the stock shell account on the robot.
	DefaultUsername = "nao"

	// DefaultPort is the service bus port of the robot.
	DefaultPort = 9559

	// DefaultSSHPort is the standard SSH port.
	DefaultSSHPort = 22

	// DefaultTimeout is the default duration for connection handshakes.
	DefaultTimeout = 5 * time.Second

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600

	// defaultDirPermissions is used when creating the config directory.
	defaultDirPermissions = 0o700

	// appDirectory is the per-user directory name under os.UserConfigDir.
	appDirectory = "qidev"

	maxPort = 65535
)

// Editable field names accepted by SetField.
const (
	FieldHostname = "hostname"
	FieldUsername = "username"
	FieldPort     = "port"
	FieldSSHPort  = "ssh_port"
	FieldTimeout  = "timeout"
)

var (
	// ErrNotConnected is returned when no settings file exists yet.
	ErrNotConnected = errors.New(`connect to a hostname first with "qidev connect"`)
	// ErrUnknownField is returned by SetField for names it does not know.
	ErrUnknownField = errors.New("unknown configuration field")

	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errHostnameRequired is returned when the hostname is missing.
	errHostnameRequired = errors.New("hostname must be provided")
	// errInvalidPort is returned for ports outside 1..65535.
	errInvalidPort = errors.New("port must be between 1 and 65535")
)

// DefaultPath returns the settings location under the user config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config directory: %w", err)
	}

	return filepath.Join(dir, appDirectory, DefaultConfigFilename), nil
}

// New returns a configuration with defaults for everything but the hostname.
func New(hostname string) *Config {
	cfg := &Config{Hostname: hostname}
	applyDefaults(cfg)

	return cfg
}

// Load reads configuration from the provided path and validates essential fields.
// An empty path means DefaultPath.
func Load(path string) (*Config, error) {
	path, err := resolvePath(path)
	if err != nil {
		return nil, err
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotConnected
		}

		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err = yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err = Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadOrNew loads the settings at path, or starts from defaults when the file
// does not exist yet. Used by the commands that create the file.
func LoadOrNew(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, ErrNotConnected) {
		cfg = New("")

		return cfg, nil
	}

	return cfg, err
}

// Save writes the configuration to the provided path, creating its directory.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	path, err := resolvePath(path)
	if err != nil {
		return err
	}

	if err = Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err = os.MkdirAll(filepath.Dir(path), defaultDirPermissions); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	// Restrict permissions.
	if err = os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks required fields and fills defaults for the optional ones.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if strings.TrimSpace(cfg.Hostname) == "" {
		return errHostnameRequired
	}

	applyDefaults(cfg)

	if cfg.Port > maxPort || cfg.Port < 0 {
		return fmt.Errorf("port %d: %w", cfg.Port, errInvalidPort)
	}

	if cfg.SSHPort > maxPort || cfg.SSHPort < 0 {
		return fmt.Errorf("ssh port %d: %w", cfg.SSHPort, errInvalidPort)
	}

	return nil
}

// SetField updates a single setting from its textual form.
func SetField(cfg *Config, field, value string) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	value = strings.TrimSpace(value)

	switch strings.ToLower(strings.TrimSpace(field)) {
	case FieldHostname:
		cfg.Hostname = value
	case FieldUsername:
		cfg.Username = value
	case FieldPort:
		port, err := parsePort(value)
		if err != nil {
			return err
		}

		cfg.Port = port
	case FieldSSHPort:
		port, err := parsePort(value)
		if err != nil {
			return err
		}

		cfg.SSHPort = port
	case FieldTimeout:
		timeout, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid timeout: %w", err)
		}

		cfg.Timeout = timeout
	default:
		return fmt.Errorf("%s: %w", field, ErrUnknownField)
	}

	return nil
}

func parsePort(value string) (int, error) {
	port, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid port %q: %w", value, err)
	}

	if port < 1 || port > maxPort {
		return 0, fmt.Errorf("port %d: %w", port, errInvalidPort)
	}

	return port, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Username == "" {
		cfg.Username = DefaultUsername
	}

	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}

	if cfg.SSHPort == 0 {
		cfg.SSHPort = DefaultSSHPort
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
}

func resolvePath(path string) (string, error) {
	if path != "" {
		return path, nil
	}

	return DefaultPath()
}
