package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ZihaoFU245/It-s-Friday/internal/accounts"
	"github.com/ZihaoFU245/It-s-Friday/internal/email"
	"github.com/ZihaoFU245/It-s-Friday/internal/gmail"
	"github.com/ZihaoFU245/It-s-Friday/internal/oauth"
)

// Options carries the cross-provider knobs the factory needs.
type Options struct {
	// RateLimitQPS caps Gmail API throughput. Zero uses the client default.
	RateLimitQPS float64

	// ConsentTimeout bounds how long an interactive OAuth consent flow
	// may wait for the user. Zero uses the store default.
	ConsentTimeout time.Duration

	// Headless selects the device-code OAuth flow over the browser flow.
	Headless bool

	Logger *slog.Logger
}

// New builds the provider client for an account. The switch is
// deliberately exhaustive: adding a provider means adding a case here,
// there is no runtime registry to misconfigure.
func New(ctx context.Context, acc accounts.Account, opts Options) (email.Client, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	switch acc.Provider {
	case "gmail":
		return newGmailClient(ctx, acc, opts, logger)
	case "outlook":
		return NewOutlook(logger), nil
	default:
		return nil, fmt.Errorf("unsupported provider %q for account %q", acc.Provider, acc.Name)
	}
}

// newGmailClient wires credentials, token store, and the rate-limited API
// client for one Gmail account. Missing credential paths fail here, before
// any network traffic.
func newGmailClient(ctx context.Context, acc accounts.Account, opts Options, logger *slog.Logger) (email.Client, error) {
	if acc.GoogleCredentialsPath == "" {
		return nil, fmt.Errorf("account %q has no google_credentials_path", acc.Name)
	}
	if acc.GoogleTokenPath == "" {
		return nil, fmt.Errorf("account %q has no google_token_path", acc.Name)
	}

	storeOpts := []oauth.Option{
		oauth.WithLogger(logger),
		oauth.WithHeadless(opts.Headless),
	}
	if opts.ConsentTimeout > 0 {
		storeOpts = append(storeOpts, oauth.WithConsentTimeout(opts.ConsentTimeout))
	}

	store, err := oauth.NewStore(acc.GoogleCredentialsPath, acc.GoogleTokenPath, oauth.GmailScopes, storeOpts...)
	if err != nil {
		return nil, fmt.Errorf("account %q: %w", acc.Name, err)
	}

	tokenSource, err := store.Ensure(ctx)
	if err != nil {
		return nil, fmt.Errorf("account %q: %w", acc.Name, err)
	}

	clientOpts := []gmail.ClientOption{gmail.WithLogger(logger)}
	if opts.RateLimitQPS > 0 {
		clientOpts = append(clientOpts, gmail.WithRateLimiter(gmail.NewRateLimiter(opts.RateLimitQPS)))
	}

	return NewGmail(gmail.NewClient(tokenSource, clientOpts...), logger), nil
}
