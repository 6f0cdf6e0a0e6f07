package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNoSession indicates no stored session token.
var ErrNoSession = errors.New("not logged in")

// SaveSessionToken writes the session token with owner-only permissions.
func (c *Config) SaveSessionToken(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("session token is empty")
	}

	path := c.SessionTokenPath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(token+"\n"), 0600); err != nil {
		return fmt.Errorf("write session token: %w", err)
	}
	return nil
}

// ReadSessionToken returns the stored session token, or ErrNoSession.
func (c *Config) ReadSessionToken() (string, error) {
	data, err := os.ReadFile(c.SessionTokenPath())
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNoSession
		}
		return "", fmt.Errorf("read session token: %w", err)
	}

	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", ErrNoSession
	}
	return token, nil
}

// ClearSessionToken removes the stored session token. Missing file is
// not an error.
func (c *Config) ClearSessionToken() error {
	if err := os.Remove(c.SessionTokenPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove session token: %w", err)
	}
	return nil
}
