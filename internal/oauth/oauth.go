// Package oauth manages the OAuth2 credential lifecycle for one
// account/service pair: load, refresh, re-authenticate, persist.
package oauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// GmailScopes is the full scope set the Gmail provider requires.
var GmailScopes = []string{
	"https://www.googleapis.com/auth/gmail.readonly",
	"https://www.googleapis.com/auth/gmail.send",
	"https://www.googleapis.com/auth/gmail.compose",
	"https://www.googleapis.com/auth/gmail.modify",
	"https://www.googleapis.com/auth/gmail.labels",
}

// DefaultConsentTimeout bounds the interactive consent flow. The flow
// blocks on a browser redirect, so unattended runs need an upper bound.
const DefaultConsentTimeout = 5 * time.Minute

// Store handles the credential lifecycle for a single account+service
// token file. A client is usable only while its credentials are valid and
// granted scopes cover the required set; Ensure drives the full
// load -> refresh -> re-authenticate -> persist chain.
type Store struct {
	config         *oauth2.Config
	tokenPath      string
	consentTimeout time.Duration
	headless       bool
	logger         *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithConsentTimeout overrides the interactive consent flow bound.
func WithConsentTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.consentTimeout = d
		}
	}
}

// WithHeadless switches authorization to the device code flow.
func WithHeadless(headless bool) Option {
	return func(s *Store) {
		s.headless = headless
	}
}

// WithLogger sets the logger for the store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore creates a credential store from a client secrets file and a
// token cache path. Scopes are sorted so comparisons are stable.
func NewStore(clientSecretsPath, tokenPath string, scopes []string, opts ...Option) (*Store, error) {
	data, err := os.ReadFile(clientSecretsPath)
	if err != nil {
		return nil, fmt.Errorf("read client secrets: %w", err)
	}

	sorted := append([]string(nil), scopes...)
	sort.Strings(sorted)

	config, err := google.ConfigFromJSON(data, sorted...)
	if err != nil {
		return nil, fmt.Errorf("parse client secrets: %w", err)
	}

	s := &Store{
		config:         config,
		tokenPath:      tokenPath,
		consentTimeout: DefaultConsentTimeout,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// tokenFile wraps an OAuth2 token with the scopes it was authorized for.
// The scope list is compared against the required set on load; a mismatch
// always forces re-authentication, never silent partial-scope reuse.
type tokenFile struct {
	oauth2.Token
	Scopes []string `json:"scopes,omitempty"`
}

// Ensure returns a token source with valid credentials, walking the state
// machine as far as needed: cached token, refresh, then interactive
// consent. Credentials are persisted after every successful change.
func (s *Store) Ensure(ctx context.Context) (oauth2.TokenSource, error) {
	token := s.loadValidScoped()

	if token != nil && token.Valid() {
		return s.persistingSource(ctx, token), nil
	}

	// Expired but refreshable: try the refresh token before falling back
	// to a full consent flow.
	if token != nil && token.RefreshToken != "" {
		refreshed, err := s.config.TokenSource(ctx, token).Token()
		if err == nil {
			if saveErr := s.saveToken(refreshed); saveErr != nil {
				s.logger.Warn("failed to save refreshed token", "path", s.tokenPath, "error", saveErr)
			}
			return s.persistingSource(ctx, refreshed), nil
		}
		s.logger.Warn("token refresh failed, re-authenticating", "path", s.tokenPath, "error", err)
	}

	token, err := s.Authorize(ctx)
	if err != nil {
		return nil, err
	}
	return s.persistingSource(ctx, token), nil
}

// Authorize runs the interactive consent flow and persists the result.
// The consent screen is always forced so scope grants stay explicit even
// on re-authentication.
func (s *Store) Authorize(ctx context.Context) (*oauth2.Token, error) {
	flowCtx, cancel := context.WithTimeout(ctx, s.consentTimeout)
	defer cancel()

	var token *oauth2.Token
	var err error
	if s.headless {
		token, err = s.deviceFlow(flowCtx)
	} else {
		token, err = s.browserFlow(flowCtx)
	}
	if err != nil {
		return nil, fmt.Errorf("consent flow: %w", err)
	}

	if err := s.saveToken(token); err != nil {
		return nil, fmt.Errorf("save token: %w", err)
	}
	return token, nil
}

// AddScopes grows the required scope set. When the union differs from the
// current set the cached token is discarded and the full re-authentication
// path runs; scopes only ever grow, never silently narrow.
func (s *Store) AddScopes(ctx context.Context, additional []string) error {
	merged := make(map[string]struct{}, len(s.config.Scopes)+len(additional))
	for _, sc := range s.config.Scopes {
		merged[sc] = struct{}{}
	}
	for _, sc := range additional {
		merged[sc] = struct{}{}
	}

	union := make([]string, 0, len(merged))
	for sc := range merged {
		union = append(union, sc)
	}
	sort.Strings(union)

	if scopesEqual(union, s.config.Scopes) {
		return nil
	}

	s.config.Scopes = union
	if err := s.DeleteToken(); err != nil {
		return fmt.Errorf("discard stale token: %w", err)
	}
	_, err := s.Ensure(ctx)
	return err
}

// HasToken reports whether a usable scoped token file exists.
func (s *Store) HasToken() bool {
	return s.loadValidScoped() != nil
}

// DeleteToken removes the token cache file.
func (s *Store) DeleteToken() error {
	err := os.Remove(s.tokenPath)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// TokenPath returns the token cache file path.
func (s *Store) TokenPath() string {
	return s.tokenPath
}

// Scopes returns the currently required scope set.
func (s *Store) Scopes() []string {
	return append([]string(nil), s.config.Scopes...)
}

// loadValidScoped loads the cached token, returning nil when absent or
// when its recorded scopes differ from the required set. A scope mismatch
// deletes the stale file so the consent flow starts clean.
func (s *Store) loadValidScoped() *oauth2.Token {
	data, err := os.ReadFile(s.tokenPath)
	if err != nil {
		return nil
	}

	var tf tokenFile
	if err := json.Unmarshal(data, &tf); err != nil {
		s.logger.Warn("failed to parse token file", "path", s.tokenPath, "error", err)
		_ = s.DeleteToken()
		return nil
	}

	stored := append([]string(nil), tf.Scopes...)
	sort.Strings(stored)
	if !scopesEqual(stored, s.config.Scopes) {
		s.logger.Info("scope mismatch, forcing re-authentication",
			"stored", stored, "required", s.config.Scopes)
		_ = s.DeleteToken()
		return nil
	}

	return &tf.Token
}

// saveToken persists a token with the required scope set.
func (s *Store) saveToken(token *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(s.tokenPath), 0700); err != nil {
		return err
	}

	tf := tokenFile{
		Token:  *token,
		Scopes: s.config.Scopes,
	}
	data, err := json.MarshalIndent(tf, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.tokenPath, data, 0600)
}

// persistingSource wraps the auto-refreshing source so every refreshed
// token is written back to the cache file.
func (s *Store) persistingSource(ctx context.Context, token *oauth2.Token) oauth2.TokenSource {
	return &savingTokenSource{
		store: s,
		src:   s.config.TokenSource(ctx, token),
		last:  token.AccessToken,
	}
}

type savingTokenSource struct {
	store *Store
	src   oauth2.TokenSource

	mu   sync.Mutex
	last string
}

func (ts *savingTokenSource) Token() (*oauth2.Token, error) {
	token, err := ts.src.Token()
	if err != nil {
		return nil, err
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()
	if token.AccessToken != ts.last {
		ts.last = token.AccessToken
		if err := ts.store.saveToken(token); err != nil {
			ts.store.logger.Warn("failed to save refreshed token",
				"path", ts.store.tokenPath, "error", err)
		}
	}
	return token, nil
}

func scopesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

const (
	redirectPort = "8089"
	callbackPath = "/callback"
)

// newCallbackHandler returns an HTTP handler that processes the OAuth callback.
func (s *Store) newCallbackHandler(expectedState string, codeChan chan<- string, errChan chan<- error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("state") != expectedState {
			errChan <- fmt.Errorf("state mismatch: possible CSRF attack")
			fmt.Fprintf(w, "Error: state mismatch")
			return
		}
		code := r.URL.Query().Get("code")
		if code == "" {
			errChan <- fmt.Errorf("no code in callback")
			fmt.Fprintf(w, "Error: no authorization code received")
			return
		}
		codeChan <- code
		fmt.Fprintf(w, "Authorization successful! You can close this window.")
	}
}

// browserFlow opens a browser for OAuth authorization and waits for the
// local callback.
func (s *Store) browserFlow(ctx context.Context) (*oauth2.Token, error) {
	stateBytes := make([]byte, 16)
	if _, err := rand.Read(stateBytes); err != nil {
		return nil, fmt.Errorf("generate state: %w", err)
	}
	state := base64.URLEncoding.EncodeToString(stateBytes)

	codeChan := make(chan string, 1)
	errChan := make(chan error, 1)

	mux := http.NewServeMux()
	mux.Handle(callbackPath, s.newCallbackHandler(state, codeChan, errChan))
	server := &http.Server{Addr: "localhost:" + redirectPort, Handler: mux}

	go func() {
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			errChan <- err
		}
	}()
	defer func() { _ = server.Shutdown(context.Background()) }()

	s.config.RedirectURL = "http://localhost:" + redirectPort + callbackPath
	authURL := s.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)

	fmt.Printf("Opening browser for authorization...\n")
	fmt.Printf("If browser doesn't open, visit:\n%s\n\n", authURL)

	if err := openBrowser(authURL); err != nil {
		s.logger.Warn("failed to open browser", "error", err)
	}

	select {
	case code := <-codeChan:
		return s.config.Exchange(ctx, code)
	case err := <-errChan:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// deviceFlow uses the device authorization grant for headless environments.
func (s *Store) deviceFlow(ctx context.Context) (*oauth2.Token, error) {
	deviceEndpoint := "https://oauth2.googleapis.com/device/code"

	resp, err := http.PostForm(deviceEndpoint, map[string][]string{
		"client_id": {s.config.ClientID},
		"scope":     {strings.Join(s.config.Scopes, " ")},
	})
	if err != nil {
		return nil, fmt.Errorf("request device code: %w", err)
	}
	defer resp.Body.Close()

	var deviceResp struct {
		DeviceCode      string `json:"device_code"`
		UserCode        string `json:"user_code"`
		VerificationURL string `json:"verification_url"`
		ExpiresIn       int    `json:"expires_in"`
		Interval        int    `json:"interval"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&deviceResp); err != nil {
		return nil, fmt.Errorf("parse device response: %w", err)
	}

	fmt.Printf("\nTo authorize this account, visit:\n  %s\n\n", deviceResp.VerificationURL)
	fmt.Printf("And enter code: %s\n\nWaiting for authorization...\n", deviceResp.UserCode)

	interval := time.Duration(deviceResp.Interval) * time.Second
	if interval < 5*time.Second {
		interval = 5 * time.Second
	}

	deadline := time.Now().Add(time.Duration(deviceResp.ExpiresIn) * time.Second)

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}

		token, err := s.pollForToken(deviceResp.DeviceCode)
		if err == nil {
			fmt.Printf("Authorization successful!\n")
			return token, nil
		}

		errStr := err.Error()
		if errStr == "oauth error: authorization_pending" || errStr == "oauth error: slow_down" {
			continue
		}
		return nil, err
	}

	return nil, fmt.Errorf("authorization timed out")
}

// pollForToken polls the token endpoint during device flow.
func (s *Store) pollForToken(deviceCode string) (*oauth2.Token, error) {
	resp, err := http.PostForm("https://oauth2.googleapis.com/token", map[string][]string{
		"client_id":     {s.config.ClientID},
		"client_secret": {s.config.ClientSecret},
		"device_code":   {deviceCode},
		"grant_type":    {"urn:ietf:params:oauth:grant-type:device_code"},
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var tokenResp struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int    `json:"expires_in"`
		TokenType    string `json:"token_type"`
		Error        string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return nil, err
	}

	if tokenResp.Error != "" {
		return nil, fmt.Errorf("oauth error: %s", tokenResp.Error)
	}

	return &oauth2.Token{
		AccessToken:  tokenResp.AccessToken,
		RefreshToken: tokenResp.RefreshToken,
		TokenType:    tokenResp.TokenType,
		Expiry:       time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second),
	}, nil
}

// openBrowser opens the default browser to the given URL.
func openBrowser(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}
