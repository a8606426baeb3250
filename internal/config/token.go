package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultTokenPath returns the default token file path. This is the single
// piece of durable client state: the bearer token, read at startup and
// rewritten or removed on every session change.
func DefaultTokenPath() string {
	dir := getConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "token")
}

// ReadTokenFile reads a bearer token from a file. The file should contain
// only the token; surrounding whitespace is trimmed. Warns when permissions
// are open beyond the owner.
func ReadTokenFile(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("failed to stat token file: %w", err)
	}

	if mode := info.Mode().Perm(); mode&0077 != 0 {
		fmt.Fprintf(os.Stderr, "Warning: token file %s has insecure permissions %04o. Consider 'chmod 600 %s'\n", path, mode, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read token file: %w", err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", fmt.Errorf("token file is empty")
	}
	return token, nil
}

// WriteTokenFile writes a bearer token to a file with 0600 permissions,
// creating the parent directory as needed.
func WriteTokenFile(path, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("cannot write empty token")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(token+"\n"), 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

// RemoveTokenFile deletes the persisted token. A missing file is fine.
func RemoveTokenFile(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove token file: %w", err)
	}
	return nil
}
