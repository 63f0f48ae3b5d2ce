package auth

import (
	"errors"
	"testing"

	"github.com/zalando/go-keyring"
)

func TestVaultRoundTrip(t *testing.T) {
	keyring.MockInit()

	vault, err := NewVault()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := vault.Store("alice", "secret1"); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if !vault.Exists("alice") {
		t.Error("expected stored credentials to exist")
	}

	password, err := vault.Retrieve("alice")
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if password != "secret1" {
		t.Errorf("unexpected password: %s", password)
	}

	if err := vault.Delete("alice"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if vault.Exists("alice") {
		t.Error("expected credentials to be gone after delete")
	}
}

func TestVaultMissingCredentials(t *testing.T) {
	keyring.MockInit()

	vault, err := NewVault()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := vault.Retrieve("ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	// Deleting a missing entry is a no-op
	if err := vault.Delete("ghost"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestVaultRejectsEmptyUsername(t *testing.T) {
	keyring.MockInit()

	vault, err := NewVault()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := vault.Store("", "pw"); !errors.Is(err, ErrInvalidUsername) {
		t.Errorf("expected ErrInvalidUsername, got %v", err)
	}
	if _, err := vault.Retrieve(""); !errors.Is(err, ErrInvalidUsername) {
		t.Errorf("expected ErrInvalidUsername, got %v", err)
	}
}
