package auth

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "igengage"
	keyringPrefix  = "instagram_"
)

var (
	// ErrNotFound means no password is stored for the username
	ErrNotFound = errors.New("credentials not found")
	// ErrInvalidUsername means the username is empty
	ErrInvalidUsername = errors.New("username is required")
)

// Vault stores account passwords in the system keychain so the JSON
// account store can carry blank passwords on disk.
type Vault struct{}

// NewVault creates a keyring-backed vault, probing keychain availability
func NewVault() (*Vault, error) {
	testKey := "test_availability"
	if err := keyring.Set(keyringService, testKey, "test"); err != nil {
		return nil, fmt.Errorf("keyring not available: %w", err)
	}
	_ = keyring.Delete(keyringService, testKey)

	return &Vault{}, nil
}

// Store saves the password for a username in the keychain
func (v *Vault) Store(username, password string) error {
	if username == "" {
		return ErrInvalidUsername
	}
	if err := keyring.Set(keyringService, keyringPrefix+username, password); err != nil {
		return fmt.Errorf("failed to store in keyring: %w", err)
	}
	return nil
}

// Retrieve gets the password for a username from the keychain
func (v *Vault) Retrieve(username string) (string, error) {
	if username == "" {
		return "", ErrInvalidUsername
	}
	password, err := keyring.Get(keyringService, keyringPrefix+username)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to retrieve from keyring: %w", err)
	}
	return password, nil
}

// Delete removes the password for a username from the keychain
func (v *Vault) Delete(username string) error {
	if username == "" {
		return ErrInvalidUsername
	}
	if err := keyring.Delete(keyringService, keyringPrefix+username); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete from keyring: %w", err)
	}
	return nil
}

// Exists checks whether a password is stored for the username
func (v *Vault) Exists(username string) bool {
	_, err := v.Retrieve(username)
	return err == nil
}
