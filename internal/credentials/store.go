// Package credentials keeps robot shell passwords in the OS keyring.
//
// Native backends are preferred (macOS Keychain, Windows Credential Manager,
// Secret Service, KWallet, pass). When none is available, an encrypted file
// keyring under the qidev config directory is used instead. Robots ship with
// the password "nao", which is returned when nothing was stored.
package credentials

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/99designs/keyring"
)

const (
	// ServiceName identifies our keyring namespace.
	ServiceName = "qidev"

	// DefaultPassword is the factory password of the robot shell account.
	DefaultPassword = "nao"

	fileKeyringDirectory = "keyring"
)

// Store reads and writes shell passwords.
type Store struct {
	ring keyring.Keyring
}

// NewStore wraps an already opened keyring.
func NewStore(ring keyring.Keyring) *Store {
	return &Store{ring: ring}
}

// Open opens the platform keyring, falling back to the file backend.
func Open() (*Store, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("locate config directory: %w", err)
	}

	//nolint:exhaustruct // Backends not listed keep their zero configuration.
	ring, err := keyring.Open(keyring.Config{
		ServiceName: ServiceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.WinCredBackend,
			keyring.SecretServiceBackend,
			keyring.KWalletBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		KeychainTrustApplication: true,
		PassPrefix:               ServiceName,
		WinCredPrefix:            ServiceName,
		FileDir:                  filepath.Join(configDir, ServiceName, fileKeyringDirectory),
		FilePasswordFunc:         fixedFilePassword,
	})
	if err != nil {
		return nil, fmt.Errorf("open keyring: %w", err)
	}

	return NewStore(ring), nil
}

// Password returns the stored password for user@host, or DefaultPassword.
func (s *Store) Password(user, host string) (string, error) {
	if s == nil || s.ring == nil {
		return DefaultPassword, nil
	}

	item, err := s.ring.Get(key(user, host))
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return DefaultPassword, nil
		}

		return "", fmt.Errorf("read password: %w", err)
	}

	return string(item.Data), nil
}

// SetPassword stores the password for user@host.
func (s *Store) SetPassword(user, host, password string) error {
	//nolint:exhaustruct // Labels and descriptions are optional.
	err := s.ring.Set(keyring.Item{
		Key:   key(user, host),
		Data:  []byte(password),
		Label: "qidev shell password for " + key(user, host),
	})
	if err != nil {
		return fmt.Errorf("store password: %w", err)
	}

	return nil
}

func key(user, host string) string {
	return user + "@" + host
}

// fixedFilePassword unlocks the file backend without prompting, so
// non-interactive runs never block on a terminal.
func fixedFilePassword(string) (string, error) {
	return ServiceName, nil
}
