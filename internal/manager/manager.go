// Package manager owns the account directory and the per-account client
// cache. It is the single entry point the API, MCP, and CLI surfaces use
// to reach a provider client.
package manager

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ZihaoFU245/It-s-Friday/internal/accounts"
	"github.com/ZihaoFU245/It-s-Friday/internal/adapter"
	"github.com/ZihaoFU245/It-s-Friday/internal/email"
)

// ErrNoAccounts indicates no enabled account could serve as the default.
var ErrNoAccounts = fmt.Errorf("no enabled email accounts configured")

// DisabledError indicates the named account exists but is disabled.
type DisabledError struct {
	Name string
}

func (e *DisabledError) Error() string {
	return fmt.Sprintf("email account %q is disabled", e.Name)
}

// NotCreatedError indicates the account exists but no client has been
// built for it yet. Returned by GetClient, never by Client.
type NotCreatedError struct {
	Name string
}

func (e *NotCreatedError) Error() string {
	return fmt.Sprintf("no email client created for account %q", e.Name)
}

// Factory builds a provider client for an account. Injectable for tests.
type Factory func(ctx context.Context, acc accounts.Account, opts adapter.Options) (email.Client, error)

// Manager resolves account names to live provider clients. Clients are
// created on first use and cached until the account is updated or removed.
type Manager struct {
	mu     sync.Mutex
	dir    *accounts.Directory
	cache  map[string]email.Client
	locks  map[string]*sync.Mutex // per-account creation locks
	opts   adapter.Options
	build  Factory
	logger *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithFactory overrides the client factory.
func WithFactory(f Factory) Option {
	return func(m *Manager) {
		m.build = f
	}
}

// New creates a Manager over the given account directory.
func New(dir *accounts.Directory, opts adapter.Options, options ...Option) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		dir:    dir,
		cache:  make(map[string]email.Client),
		locks:  make(map[string]*sync.Mutex),
		opts:   opts,
		build:  adapter.New,
		logger: logger,
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

// resolve maps a possibly-empty account name to its directory record.
// An empty name selects the default account.
func (m *Manager) resolve(name string) (accounts.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if name == "" {
		acc, ok := m.dir.Default()
		if !ok {
			return accounts.Account{}, ErrNoAccounts
		}
		return acc, nil
	}

	acc, err := m.dir.Get(name)
	if err != nil {
		return accounts.Account{}, err
	}
	if !acc.Enabled {
		return accounts.Account{}, &DisabledError{Name: name}
	}
	return acc, nil
}

// accountLock returns the creation lock for an account, creating it on
// first use. Per-account locks let slow OAuth flows for one account run
// without blocking clients of other accounts.
func (m *Manager) accountLock(name string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[name]
	if !ok {
		l = &sync.Mutex{}
		m.locks[name] = l
	}
	return l
}

// cached returns the cached client for an account, if any. The two-state
// result lets callers distinguish a miss without sentinel errors.
func (m *Manager) cached(name string) (email.Client, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cache[name]
	return c, ok
}

// GetClient returns the cached client for the named account without
// building one. An empty name selects the default account. A cold cache
// reports *NotCreatedError, letting callers distinguish "never built"
// from the build-on-demand path Client takes.
func (m *Manager) GetClient(name string) (email.Client, error) {
	acc, err := m.resolve(name)
	if err != nil {
		return nil, err
	}
	c, ok := m.cached(acc.Name)
	if !ok {
		return nil, &NotCreatedError{Name: acc.Name}
	}
	return c, nil
}

// Client returns a live provider client for the named account, creating
// and caching one on first use. An empty name selects the default account.
func (m *Manager) Client(ctx context.Context, name string) (email.Client, error) {
	acc, err := m.resolve(name)
	if err != nil {
		return nil, err
	}

	if c, ok := m.cached(acc.Name); ok {
		return c, nil
	}

	// Serialize creation per account so concurrent first calls don't
	// both run the OAuth flow.
	lock := m.accountLock(acc.Name)
	lock.Lock()
	defer lock.Unlock()

	if c, ok := m.cached(acc.Name); ok {
		return c, nil
	}

	m.logger.Info("creating email client", "account", acc.Name, "provider", acc.Provider)
	client, err := m.build(ctx, acc, m.opts)
	if err != nil {
		return nil, fmt.Errorf("create client for %q: %w", acc.Name, err)
	}

	m.mu.Lock()
	m.cache[acc.Name] = client
	m.mu.Unlock()
	return client, nil
}

// Invalidate drops the cached client for an account, if present.
func (m *Manager) Invalidate(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cache, name)
}

// Accounts returns the directory contents in canonical order.
func (m *Manager) Accounts(enabledOnly bool) []accounts.Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dir.List(enabledOnly)
}

// DefaultAccount resolves the current default account.
func (m *Manager) DefaultAccount() (accounts.Account, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dir.Default()
}

// AddAccount inserts or replaces an account. A replaced account's cached
// client is dropped since its configuration may have changed.
func (m *Manager) AddAccount(acc accounts.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.dir.Add(acc); err != nil {
		return err
	}
	delete(m.cache, acc.Name)
	return nil
}

// UpdateAccount applies a partial update and drops the stale client.
func (m *Manager) UpdateAccount(name string, u accounts.Update) (accounts.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, err := m.dir.Apply(name, u)
	if err != nil {
		return accounts.Account{}, err
	}
	delete(m.cache, name)
	return acc, nil
}

// RemoveAccount deletes an account and its cached client.
func (m *Manager) RemoveAccount(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.dir.Remove(name); err != nil {
		return err
	}
	delete(m.cache, name)
	return nil
}

// Validate creates (or reuses) the account's client and confirms the
// provider answers a profile request.
func (m *Manager) Validate(ctx context.Context, name string) (*email.Profile, error) {
	client, err := m.Client(ctx, name)
	if err != nil {
		return nil, err
	}
	return client.GetProfile(ctx)
}

// UnreadResult is one account's slice of an all-accounts unread fan-out.
// Err is set when that account failed; other accounts are unaffected.
type UnreadResult struct {
	Account  string
	Messages []*email.Message
	Err      error
}

// UnreadAll fetches unread messages from every enabled account in
// parallel. Per-account failures degrade to an error entry in the result
// rather than failing the whole fan-out.
func (m *Manager) UnreadAll(ctx context.Context, maxResults int, opts email.UnreadOptions) []UnreadResult {
	enabled := m.Accounts(true)
	results := make([]UnreadResult, len(enabled))

	g, ctx := errgroup.WithContext(ctx)
	for i, acc := range enabled {
		i, acc := i, acc
		g.Go(func() error {
			results[i].Account = acc.Name
			client, err := m.Client(ctx, acc.Name)
			if err != nil {
				results[i].Err = err
				return nil
			}
			msgs, err := client.GetUnreadMessages(ctx, maxResults, opts)
			if err != nil {
				results[i].Err = err
				return nil
			}
			results[i].Messages = msgs
			return nil
		})
	}
	g.Wait() // goroutines never return errors; they record them per-account
	return results
}

// CountResult is one account's slice of an all-accounts unread count.
type CountResult struct {
	Account string
	Count   int64
	Err     error
}

// CountUnreadAll counts unread messages across every enabled account in
// parallel, degrading per-account like UnreadAll.
func (m *Manager) CountUnreadAll(ctx context.Context, opts email.UnreadOptions) []CountResult {
	enabled := m.Accounts(true)
	results := make([]CountResult, len(enabled))

	g, ctx := errgroup.WithContext(ctx)
	for i, acc := range enabled {
		i, acc := i, acc
		g.Go(func() error {
			results[i].Account = acc.Name
			client, err := m.Client(ctx, acc.Name)
			if err != nil {
				results[i].Err = err
				return nil
			}
			n, err := client.CountUnreadMessages(ctx, opts)
			if err != nil {
				results[i].Err = err
				return nil
			}
			results[i].Count = n
			return nil
		})
	}
	g.Wait()
	return results
}

// Summary describes one account's standing for status surfaces.
type Summary struct {
	Name      string `json:"name"`
	Provider  string `json:"provider"`
	Display   string `json:"display_name"`
	Enabled   bool   `json:"enabled"`
	Default   bool   `json:"default_account"`
	Connected bool   `json:"connected"`
}

// Summaries reports every account with whether a live client exists.
func (m *Manager) Summaries() []Summary {
	m.mu.Lock()
	defer m.mu.Unlock()

	accs := m.dir.List(false)
	out := make([]Summary, len(accs))
	for i, acc := range accs {
		_, connected := m.cache[acc.Name]
		out[i] = Summary{
			Name:      acc.Name,
			Provider:  acc.Provider,
			Display:   acc.DisplayName,
			Enabled:   acc.Enabled,
			Default:   acc.Default,
			Connected: connected,
		}
	}
	return out
}
