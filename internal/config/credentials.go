package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Credentials is what `cineflow login` persists between invocations.
type Credentials struct {
	APIBase   string    `yaml:"api_base,omitempty"`
	Token     string    `yaml:"token"`
	ExpiresAt time.Time `yaml:"expires_at,omitempty"`
}

func (c Credentials) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

func DefaultCredentialsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".cineflow", "credentials.yaml")
	}
	return filepath.Join(home, ".config", "cineflow", "credentials.yaml")
}

// LoadCredentials reads path. A missing file yields empty credentials.
func LoadCredentials(path string) (Credentials, error) {
	var creds Credentials
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return creds, nil
	}
	if err != nil {
		return creds, fmt.Errorf("read credentials: %w", err)
	}
	if err := yaml.Unmarshal(raw, &creds); err != nil {
		return creds, fmt.Errorf("parse credentials %s: %w", path, err)
	}
	return creds, nil
}

func SaveCredentials(path string, creds Credentials) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create credentials dir: %w", err)
	}
	raw, err := yaml.Marshal(creds)
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	return nil
}

// ClearCredentials removes the file; a missing file is not an error.
func ClearCredentials(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove credentials: %w", err)
	}
	return nil
}
