// Package auth persists the backend bearer token on disk. The token is read
// fresh at every connection-establishment time rather than cached, so a
// re-login is picked up by long-running commands.
package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const TokenName = "token"

var ErrNoToken = errors.New("no token stored: run tivly login")

// ~/.config/tivly/token
func TokenPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "tivly", TokenName), nil
}

// Save writes the token with owner-only permissions.
func Save(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("empty token")
	}

	tp, err := TokenPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(tp), 0o700); err != nil {
		return err
	}
	return os.WriteFile(tp, []byte(token), 0o600)
}

// Load reads the stored token. Returns ErrNoToken when none exists.
func Load() (string, error) {
	tp, err := TokenPath()
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(tp)
	if os.IsNotExist(err) {
		return "", ErrNoToken
	}
	if err != nil {
		return "", err
	}

	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

// Clear removes the stored token. Missing token is not an error.
func Clear() error {
	tp, err := TokenPath()
	if err != nil {
		return err
	}
	if err := os.Remove(tp); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
