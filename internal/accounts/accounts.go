// Package accounts manages the directory of configured email accounts.
//
// The directory is persisted as a JSON object keyed by account name.
// Every mutation persists immediately so a crash loses at most the change
// in flight, never the directory's consistency.
package accounts

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
)

// Account is one configured mailbox.
type Account struct {
	Name        string `json:"name"`
	Provider    string `json:"provider"`
	DisplayName string `json:"display_name"`

	// Provider-specific credential locations (Gmail).
	GoogleCredentialsPath string `json:"google_credentials_path,omitempty"`
	GoogleTokenPath       string `json:"google_token_path,omitempty"`

	Enabled bool `json:"enabled"`
	Default bool `json:"default_account"`
}

// Update carries a partial account mutation. Nil fields are left unchanged.
type Update struct {
	Provider              *string
	DisplayName           *string
	GoogleCredentialsPath *string
	GoogleTokenPath       *string
	Enabled               *bool
	Default               *bool
}

// ErrNotFound indicates the named account is not in the directory.
type ErrNotFound struct {
	Name string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("email account %q not found", e.Name)
}

// Directory owns the account name -> Account mapping and its persistence.
// Methods are not safe for concurrent use; the manager serializes access.
type Directory struct {
	path     string
	accounts map[string]Account
	logger   *slog.Logger
}

// Load reads the account directory from path. A missing file yields an
// empty directory. A file that fails to parse falls back to a single
// synthesized default account pointing at well-known credential locations
// under fallbackDir, matching first-run behavior.
func Load(path, fallbackDir string, logger *slog.Logger) *Directory {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Directory{
		path:     path,
		accounts: make(map[string]Account),
		logger:   logger,
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return d
	}
	if err == nil {
		err = json.Unmarshal(data, &d.accounts)
	}
	if err != nil {
		logger.Warn("failed to load account directory, using synthesized default",
			"path", path, "error", err)
		d.accounts = map[string]Account{
			"default": {
				Name:                  "default",
				Provider:              "gmail",
				DisplayName:           "Default Account",
				GoogleCredentialsPath: filepath.Join(fallbackDir, "client_secret.json"),
				GoogleTokenPath:       filepath.Join(fallbackDir, "token.json"),
				Enabled:               true,
				Default:               true,
			},
		}
	}
	return d
}

// Get returns the named account.
func (d *Directory) Get(name string) (Account, error) {
	acc, ok := d.accounts[name]
	if !ok {
		return Account{}, &ErrNotFound{Name: name}
	}
	return acc, nil
}

// Names returns all account names in canonical (sorted) order.
func (d *Directory) Names() []string {
	names := make([]string, 0, len(d.accounts))
	for name := range d.accounts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// List returns accounts in canonical order. When enabledOnly is set,
// disabled accounts are skipped.
func (d *Directory) List(enabledOnly bool) []Account {
	var out []Account
	for _, name := range d.Names() {
		acc := d.accounts[name]
		if enabledOnly && !acc.Enabled {
			continue
		}
		out = append(out, acc)
	}
	return out
}

// Default resolves the default account: an account explicitly marked
// default among enabled accounts wins, otherwise the first enabled
// account in canonical order. Returns false if no account is enabled.
func (d *Directory) Default() (Account, bool) {
	var first *Account
	for _, name := range d.Names() {
		acc := d.accounts[name]
		if !acc.Enabled {
			continue
		}
		if acc.Default {
			return acc, true
		}
		if first == nil {
			a := acc
			first = &a
		}
	}
	if first != nil {
		return *first, true
	}
	return Account{}, false
}

// Add inserts or replaces an account and persists the directory.
// If the account is marked default, the default flag is cleared on all
// other accounts first so at most one account is ever default.
func (d *Directory) Add(acc Account) error {
	if acc.Name == "" {
		return fmt.Errorf("account name is required")
	}
	if acc.Default {
		d.clearDefaults()
	}
	d.accounts[acc.Name] = acc
	return d.save()
}

// Apply merges a partial update into the named account and persists.
// Setting Default to true re-applies the single-default invariant.
func (d *Directory) Apply(name string, u Update) (Account, error) {
	acc, ok := d.accounts[name]
	if !ok {
		return Account{}, &ErrNotFound{Name: name}
	}

	if u.Provider != nil {
		acc.Provider = *u.Provider
	}
	if u.DisplayName != nil {
		acc.DisplayName = *u.DisplayName
	}
	if u.GoogleCredentialsPath != nil {
		acc.GoogleCredentialsPath = *u.GoogleCredentialsPath
	}
	if u.GoogleTokenPath != nil {
		acc.GoogleTokenPath = *u.GoogleTokenPath
	}
	if u.Enabled != nil {
		acc.Enabled = *u.Enabled
	}
	if u.Default != nil {
		if *u.Default {
			d.clearDefaults()
		}
		acc.Default = *u.Default
	}

	d.accounts[name] = acc
	if err := d.save(); err != nil {
		return Account{}, err
	}
	return acc, nil
}

// Remove deletes the named account and persists. If the removed account
// was the default and other accounts remain, the first remaining account
// in canonical order is promoted to default.
func (d *Directory) Remove(name string) error {
	acc, ok := d.accounts[name]
	if !ok {
		return &ErrNotFound{Name: name}
	}
	delete(d.accounts, name)

	if acc.Default {
		for _, remaining := range d.Names() {
			promoted := d.accounts[remaining]
			if !promoted.Enabled {
				continue
			}
			promoted.Default = true
			d.accounts[remaining] = promoted
			break
		}
	}
	return d.save()
}

// clearDefaults unsets the default flag on every account.
func (d *Directory) clearDefaults() {
	for name, acc := range d.accounts {
		if acc.Default {
			acc.Default = false
			d.accounts[name] = acc
		}
	}
}

// save writes the directory to disk.
func (d *Directory) save() error {
	if err := os.MkdirAll(filepath.Dir(d.path), 0700); err != nil {
		return fmt.Errorf("create directory for %s: %w", d.path, err)
	}
	data, err := json.MarshalIndent(d.accounts, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal account directory: %w", err)
	}
	if err := os.WriteFile(d.path, data, 0600); err != nil {
		return fmt.Errorf("write account directory: %w", err)
	}
	return nil
}
