package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ZihaoFU245/It-s-Friday/internal/accounts"
	"github.com/ZihaoFU245/It-s-Friday/internal/adapter"
	"github.com/ZihaoFU245/It-s-Friday/internal/config"
	"github.com/ZihaoFU245/It-s-Friday/internal/email"
	"github.com/ZihaoFU245/It-s-Friday/internal/gmail"
	"github.com/ZihaoFU245/It-s-Friday/internal/manager"
)

// stubClient covers the email.Client methods the handlers exercise. The
// embedded interface panics on anything untested.
type stubClient struct {
	email.Client
	name string
}

func (s *stubClient) GetProfile(ctx context.Context) (*email.Profile, error) {
	return &email.Profile{EmailAddress: s.name + "@example.com", Provider: "gmail"}, nil
}

func (s *stubClient) ListMessages(ctx context.Context, maxResults int, query, folder string) ([]email.MessageSummary, error) {
	return []email.MessageSummary{{ID: "m1", ThreadID: "t1"}}, nil
}

func (s *stubClient) GetMessage(ctx context.Context, messageID string) (*email.Message, error) {
	if messageID == "missing" {
		return nil, &gmail.NotFoundError{Path: "/messages/missing"}
	}
	return &email.Message{ID: messageID, Subject: "hello"}, nil
}

func (s *stubClient) SearchMessages(ctx context.Context, query string, maxResults int) ([]*email.Message, error) {
	return []*email.Message{{ID: "s1", Subject: query}}, nil
}

func (s *stubClient) SendEmail(ctx context.Context, msg email.Outgoing) *email.SendResult {
	if len(msg.To) == 0 {
		return &email.SendResult{Success: false, Error: "no recipients", Provider: "gmail"}
	}
	return &email.SendResult{ID: "sent-1", ThreadID: "t1", Success: true, Provider: "gmail"}
}

func (s *stubClient) MarkAsRead(ctx context.Context, messageIDs []string) error {
	return nil
}

func (s *stubClient) CountUnreadMessages(ctx context.Context, opts email.UnreadOptions) (int64, error) {
	return 3, nil
}

func (s *stubClient) GetUnreadMessages(ctx context.Context, maxResults int, opts email.UnreadOptions) ([]*email.Message, error) {
	return []*email.Message{{ID: s.name + "-u1", IsRead: false}}, nil
}

func newTestServer(t *testing.T, apiKey string, accs ...accounts.Account) *Server {
	t.Helper()

	dir := accounts.Load(filepath.Join(t.TempDir(), "accounts.json"), t.TempDir(), nil)
	for _, acc := range accs {
		if err := dir.Add(acc); err != nil {
			t.Fatal(err)
		}
	}

	factory := func(ctx context.Context, acc accounts.Account, opts adapter.Options) (email.Client, error) {
		if acc.Name == "broken" {
			return nil, fmt.Errorf("auth failed")
		}
		return &stubClient{name: acc.Name}, nil
	}

	cfg := &config.Config{}
	cfg.Server.APIKey = apiKey
	mgr := manager.New(dir, adapter.Options{}, manager.WithFactory(factory))
	return NewServer(cfg, mgr, nil)
}

func doRequest(t *testing.T, s *Server, method, path, apiKey string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func TestHealthNoAuth(t *testing.T) {
	s := newTestServer(t, "secret")
	rec := doRequest(t, s, "GET", "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("health status = %d, want 200", rec.Code)
	}
}

func TestAuthMiddleware(t *testing.T) {
	s := newTestServer(t, "secret",
		accounts.Account{Name: "work", Provider: "gmail", Enabled: true, Default: true})

	t.Run("missing key", func(t *testing.T) {
		rec := doRequest(t, s, "GET", "/api/v1/accounts", "", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("wrong key", func(t *testing.T) {
		rec := doRequest(t, s, "GET", "/api/v1/accounts", "wrong", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("x-api-key header", func(t *testing.T) {
		rec := doRequest(t, s, "GET", "/api/v1/accounts", "secret", nil)
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})

	t.Run("bearer token", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/accounts", nil)
		req.Header.Set("Authorization", "Bearer secret")
		rec := httptest.NewRecorder()
		s.Router().ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})
}

func TestAuthDisabledWithoutKey(t *testing.T) {
	s := newTestServer(t, "",
		accounts.Account{Name: "work", Provider: "gmail", Enabled: true, Default: true})
	rec := doRequest(t, s, "GET", "/api/v1/accounts", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 with auth disabled", rec.Code)
	}
}

func TestAccountLifecycle(t *testing.T) {
	s := newTestServer(t, "")

	rec := doRequest(t, s, "POST", "/api/v1/accounts", "", map[string]interface{}{
		"name":            "work",
		"provider":        "gmail",
		"display_name":    "Work",
		"default_account": true,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add status = %d: %s", rec.Code, rec.Body.String())
	}

	var list struct {
		Accounts []manager.Summary `json:"accounts"`
	}
	rec = doRequest(t, s, "GET", "/api/v1/accounts", "", nil)
	decodeBody(t, rec, &list)
	if len(list.Accounts) != 1 || list.Accounts[0].Name != "work" {
		t.Fatalf("accounts = %+v", list.Accounts)
	}
	if !list.Accounts[0].Default {
		t.Error("work should be the default account")
	}

	rec = doRequest(t, s, "PATCH", "/api/v1/accounts/work", "", map[string]interface{}{
		"display_name": "Renamed",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("patch status = %d: %s", rec.Code, rec.Body.String())
	}
	var acc accounts.Account
	decodeBody(t, rec, &acc)
	if acc.DisplayName != "Renamed" {
		t.Errorf("display name = %q", acc.DisplayName)
	}

	rec = doRequest(t, s, "PATCH", "/api/v1/accounts/ghost", "", map[string]interface{}{
		"display_name": "x",
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("patch missing account status = %d, want 404", rec.Code)
	}

	rec = doRequest(t, s, "DELETE", "/api/v1/accounts/work", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec = doRequest(t, s, "DELETE", "/api/v1/accounts/work", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("double delete status = %d, want 404", rec.Code)
	}
}

func TestAddAccountValidation(t *testing.T) {
	s := newTestServer(t, "")
	rec := doRequest(t, s, "POST", "/api/v1/accounts", "", map[string]interface{}{
		"name": "work",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 without provider", rec.Code)
	}
}

func TestAccountProfile(t *testing.T) {
	s := newTestServer(t, "",
		accounts.Account{Name: "work", Provider: "gmail", Enabled: true, Default: true})

	rec := doRequest(t, s, "GET", "/api/v1/accounts/work/profile", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var p email.Profile
	decodeBody(t, rec, &p)
	if p.EmailAddress != "work@example.com" {
		t.Errorf("email = %q", p.EmailAddress)
	}
}

func TestGetMessage(t *testing.T) {
	s := newTestServer(t, "",
		accounts.Account{Name: "work", Provider: "gmail", Enabled: true, Default: true})

	rec := doRequest(t, s, "GET", "/api/v1/email/messages/m1", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var msg email.Message
	decodeBody(t, rec, &msg)
	if msg.ID != "m1" || msg.Subject != "hello" {
		t.Errorf("message = %+v", msg)
	}

	rec = doRequest(t, s, "GET", "/api/v1/email/messages/missing", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing message status = %d, want 404", rec.Code)
	}
}

func TestListMessagesResolvesDefaultAccount(t *testing.T) {
	s := newTestServer(t, "",
		accounts.Account{Name: "work", Provider: "gmail", Enabled: true, Default: true})

	rec := doRequest(t, s, "GET", "/api/v1/email/messages?max=5", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var out struct {
		Messages []email.MessageSummary `json:"messages"`
		Count    int                    `json:"count"`
	}
	decodeBody(t, rec, &out)
	if out.Count != 1 || out.Messages[0].ID != "m1" {
		t.Errorf("response = %+v", out)
	}
}

func TestListMessagesNoAccounts(t *testing.T) {
	s := newTestServer(t, "")
	rec := doRequest(t, s, "GET", "/api/v1/email/messages", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 with no accounts", rec.Code)
	}
}

func TestListMessagesDisabledAccount(t *testing.T) {
	s := newTestServer(t, "",
		accounts.Account{Name: "off", Provider: "gmail", Enabled: false},
		accounts.Account{Name: "on", Provider: "gmail", Enabled: true, Default: true})

	rec := doRequest(t, s, "GET", "/api/v1/email/messages?account=off", "", nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409 for disabled account", rec.Code)
	}
}

func TestSearchRequiresQuery(t *testing.T) {
	s := newTestServer(t, "",
		accounts.Account{Name: "work", Provider: "gmail", Enabled: true, Default: true})

	rec := doRequest(t, s, "GET", "/api/v1/email/search", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 without q", rec.Code)
	}

	rec = doRequest(t, s, "GET", "/api/v1/email/search?q=invoice", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var out struct {
		Messages []*email.Message `json:"messages"`
	}
	decodeBody(t, rec, &out)
	if len(out.Messages) != 1 || out.Messages[0].Subject != "invoice" {
		t.Errorf("messages = %+v", out.Messages)
	}
}

func TestSend(t *testing.T) {
	s := newTestServer(t, "",
		accounts.Account{Name: "work", Provider: "gmail", Enabled: true, Default: true})

	t.Run("success", func(t *testing.T) {
		rec := doRequest(t, s, "POST", "/api/v1/email/send", "", map[string]interface{}{
			"to":      []string{"dest@example.com"},
			"subject": "hi",
			"body":    "hello",
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
		}
		var res email.SendResult
		decodeBody(t, rec, &res)
		if !res.Success || res.ID != "sent-1" {
			t.Errorf("result = %+v", res)
		}
	})

	t.Run("missing recipients", func(t *testing.T) {
		rec := doRequest(t, s, "POST", "/api/v1/email/send", "", map[string]interface{}{
			"subject": "hi",
		})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestMarkRead(t *testing.T) {
	s := newTestServer(t, "",
		accounts.Account{Name: "work", Provider: "gmail", Enabled: true, Default: true})

	rec := doRequest(t, s, "POST", "/api/v1/email/mark-read", "", map[string]interface{}{
		"message_ids": []string{"m1", "m2"},
	})
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, s, "POST", "/api/v1/email/mark-read", "", map[string]interface{}{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 without ids", rec.Code)
	}
}

func TestUnreadAllAccounts(t *testing.T) {
	s := newTestServer(t, "",
		accounts.Account{Name: "broken", Provider: "gmail", Enabled: true},
		accounts.Account{Name: "work", Provider: "gmail", Enabled: true, Default: true})

	rec := doRequest(t, s, "GET", "/api/v1/email/unread?all=true", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var out struct {
		Accounts []accountUnread `json:"accounts"`
	}
	decodeBody(t, rec, &out)
	if len(out.Accounts) != 2 {
		t.Fatalf("accounts = %+v", out.Accounts)
	}

	byName := map[string]accountUnread{}
	for _, a := range out.Accounts {
		byName[a.Account] = a
	}
	if byName["broken"].Error == "" {
		t.Error("broken account should report its error")
	}
	if len(byName["work"].Messages) != 1 {
		t.Errorf("work messages = %+v", byName["work"].Messages)
	}
}

func TestUnreadCountTotal(t *testing.T) {
	s := newTestServer(t, "",
		accounts.Account{Name: "a", Provider: "gmail", Enabled: true, Default: true},
		accounts.Account{Name: "b", Provider: "gmail", Enabled: true})

	rec := doRequest(t, s, "GET", "/api/v1/email/unread/count?all=true", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var out struct {
		Total int64 `json:"total"`
	}
	decodeBody(t, rec, &out)
	if out.Total != 6 {
		t.Errorf("total = %d, want 6", out.Total)
	}

	rec = doRequest(t, s, "GET", "/api/v1/email/unread/count", "", nil)
	var single struct {
		Count int64 `json:"count"`
	}
	decodeBody(t, rec, &single)
	if single.Count != 3 {
		t.Errorf("count = %d, want 3", single.Count)
	}
}

func TestRateLimitExceeded(t *testing.T) {
	s := newTestServer(t, "")

	var saw429 bool
	for i := 0; i < 50; i++ {
		rec := doRequest(t, s, "GET", "/health", "", nil)
		if rec.Code == http.StatusTooManyRequests {
			saw429 = true
			break
		}
	}
	if !saw429 {
		t.Error("expected a 429 after exhausting the burst")
	}
}

func TestRateLimitKeysByClientAddress(t *testing.T) {
	s := newTestServer(t, "")

	// Exhaust one client's budget.
	for i := 0; i < 50; i++ {
		req := httptest.NewRequest("GET", "/health", nil)
		req.Header.Set("X-Real-IP", "198.51.100.7")
		rec := httptest.NewRecorder()
		s.Router().ServeHTTP(rec, req)
	}

	// A different client still gets through.
	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("X-Real-IP", "198.51.100.8")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("fresh client status = %d, want 200", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, "secret")

	req := httptest.NewRequest("OPTIONS", "/api/v1/accounts", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Allow-Origin = %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Headers"); !strings.Contains(got, "X-API-Key") {
		t.Errorf("Allow-Headers = %q, missing X-API-Key", got)
	}
}

func TestCORSRestrictedOrigin(t *testing.T) {
	s := newTestServer(t, "")
	s.cfg.Server.CORSOrigins = []string{"https://app.example.com"}
	s.router = s.setupRouter()

	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("disallowed origin got Allow-Origin %q", got)
	}

	req = httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Errorf("allowed origin got Allow-Origin %q", got)
	}
}
