// Package credential stores the bearer token in the system keyring.
package credential

import (
	"errors"
	"fmt"
	"strings"

	"github.com/99designs/keyring"
)

const serviceName = "loci"

// TokenKey is the keyring item holding the access token.
const TokenKey = "access_token"

// ErrNoToken is returned when no credential is stored.
var ErrNoToken = errors.New("credential: no stored token")

// Source yields the current bearer token. Implementations must return
// ErrNoToken (possibly wrapped) when no credential is available.
type Source interface {
	Token() (string, error)
}

func openKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/loci/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("loci-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// Store is the keyring-backed token source.
type Store struct{}

// Token returns the stored access token.
func (Store) Token() (string, error) {
	ring, err := openKeyring()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(TokenKey)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return "", ErrNoToken
		}
		return "", fmt.Errorf("getting credential: %w", err)
	}

	tok := strings.TrimSpace(string(item.Data))
	if tok == "" {
		return "", ErrNoToken
	}
	return tok, nil
}

// Set stores the access token.
func (Store) Set(token string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:  TokenKey,
		Data: []byte(token),
	})
	if err != nil {
		return fmt.Errorf("setting credential: %w", err)
	}
	return nil
}

// Delete removes the stored token. Missing tokens are not an error.
func (Store) Delete() error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Remove(TokenKey)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("deleting credential: %w", err)
	}
	return nil
}

// Static is a fixed-token source for tests and non-interactive tooling.
type Static string

// Token returns the fixed token.
func (s Static) Token() (string, error) {
	if strings.TrimSpace(string(s)) == "" {
		return "", ErrNoToken
	}
	return string(s), nil
}
