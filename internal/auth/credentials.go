// Package auth manages the local credentials file: an administrator
// password plus a username-to-password map, bootstrapped with a
// default administrator password on first run. Remote account
// procedures live in the remote package; this file only gates the
// local application.
package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// DefaultAdminPassword seeds a fresh credentials file. Operators are
// expected to change it immediately via SetAdminPassword.
const DefaultAdminPassword = "admin"

// ErrUserExists is returned by Register for a duplicate username.
var ErrUserExists = errors.New("auth: username already registered")

type fileFormat struct {
	AdminPassword string            `json:"admin_password"`
	Users         map[string]string `json:"users"`
}

// Credentials is the local credential store backed by one JSON file.
type Credentials struct {
	path string

	mu   sync.Mutex
	data fileFormat
}

// Load reads the credentials file, creating it with the default
// administrator password when absent.
func Load(path string) (*Credentials, error) {
	c := &Credentials{path: path}

	raw, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		c.data = fileFormat{
			AdminPassword: DefaultAdminPassword,
			Users:         map[string]string{},
		}
		if err := c.persist(); err != nil {
			return nil, err
		}
		return c, nil
	case err != nil:
		return nil, fmt.Errorf("auth: read %s: %w", path, err)
	}

	if err := json.Unmarshal(raw, &c.data); err != nil {
		return nil, fmt.Errorf("auth: parse %s: %w", path, err)
	}
	if c.data.Users == nil {
		c.data.Users = map[string]string{}
	}
	return c, nil
}

// Verify reports whether username/password match a registered user.
func (c *Credentials) Verify(username, password string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	stored, ok := c.data.Users[username]
	return ok && stored == password
}

// IsAdminPassword reports whether pw is the administrator password.
func (c *Credentials) IsAdminPassword(pw string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return pw == c.data.AdminPassword
}

// SetAdminPassword replaces the administrator password.
func (c *Credentials) SetAdminPassword(pw string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data.AdminPassword = pw
	return c.persist()
}

// Register adds a user. Fails with ErrUserExists on a duplicate
// username.
func (c *Credentials) Register(username, password string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, dup := c.data.Users[username]; dup {
		return ErrUserExists
	}
	c.data.Users[username] = password
	return c.persist()
}

// Remove deletes a user. Removing an unknown user is a no-op.
func (c *Credentials) Remove(username string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data.Users, username)
	return c.persist()
}

// Users lists the registered usernames.
func (c *Credentials) Users() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.data.Users))
	for u := range c.data.Users {
		names = append(names, u)
	}
	return names
}

func (c *Credentials) persist() error {
	data, err := json.MarshalIndent(c.data, "", "  ")
	if err != nil {
		return fmt.Errorf("auth: marshal: %w", err)
	}
	if dir := filepath.Dir(c.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("auth: mkdir: %w", err)
		}
	}
	if err := os.WriteFile(c.path, data, 0o600); err != nil {
		return fmt.Errorf("auth: write %s: %w", c.path, err)
	}
	return nil
}
