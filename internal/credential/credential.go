// Package credential stores account passwords in the operating system
// keyring.
package credential

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"

	"github.com/imlich/cardsync/internal/config"
)

// ErrNotFound is returned when no password is stored for the account.
var ErrNotFound = errors.New("credential: not found")

// Password returns the stored password of the account.
func Password(account string) (string, error) {
	secret, err := keyring.Get(config.KeyringService, account)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%s: %w", config.ErrKeyringGet, err)
	}
	return secret, nil
}

// SetPassword stores or replaces the password of the account.
func SetPassword(account, password string) error {
	if err := keyring.Set(config.KeyringService, account, password); err != nil {
		return fmt.Errorf("storing password for %s: %w", account, err)
	}
	return nil
}

// DeletePassword removes the stored password of the account. Deleting a
// missing entry is a no-op.
func DeletePassword(account string) error {
	err := keyring.Delete(config.KeyringService, account)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("deleting password for %s: %w", account, err)
	}
	return nil
}
