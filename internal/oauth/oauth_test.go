package oauth

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/oauth2"
)

func setupTestStore(t *testing.T, scopes []string) *Store {
	t.Helper()
	dir := t.TempDir()
	return &Store{
		config:         &oauth2.Config{Scopes: scopes},
		tokenPath:      filepath.Join(dir, "default-gmail.json"),
		consentTimeout: DefaultConsentTimeout,
		logger:         slog.Default(),
	}
}

func writeTokenFile(t *testing.T, s *Store, token oauth2.Token, scopes []string) {
	t.Helper()
	tf := tokenFile{Token: token, Scopes: scopes}
	data, err := json.Marshal(tf)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(s.tokenPath, data, 0600); err != nil {
		t.Fatal(err)
	}
}

var testToken = oauth2.Token{AccessToken: "test-access", TokenType: "Bearer"}

func TestLoadMatchingScopes(t *testing.T) {
	scopes := []string{"scope-a", "scope-b"}
	s := setupTestStore(t, scopes)
	writeTokenFile(t, s, testToken, scopes)

	token := s.loadValidScoped()
	if token == nil {
		t.Fatal("expected token for matching scopes")
	}
	if token.AccessToken != "test-access" {
		t.Errorf("AccessToken = %q, want test-access", token.AccessToken)
	}
}

func TestScopeMismatchForcesReauth(t *testing.T) {
	s := setupTestStore(t, []string{"scope-a", "scope-b"})
	writeTokenFile(t, s, testToken, []string{"scope-a"})

	if token := s.loadValidScoped(); token != nil {
		t.Fatal("expected nil token for scope mismatch")
	}

	// The stale file must be deleted so the consent flow starts clean.
	if _, err := os.Stat(s.tokenPath); !os.IsNotExist(err) {
		t.Error("expected stale token file to be deleted")
	}
}

func TestScopeOrderDoesNotMatter(t *testing.T) {
	s := setupTestStore(t, []string{"scope-a", "scope-b"})
	writeTokenFile(t, s, testToken, []string{"scope-b", "scope-a"})

	if token := s.loadValidScoped(); token == nil {
		t.Error("expected token: stored scopes differ only in order")
	}
}

func TestLegacyTokenWithoutScopesIsDiscarded(t *testing.T) {
	s := setupTestStore(t, []string{"scope-a"})

	data, err := json.Marshal(testToken)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(s.tokenPath, data, 0600); err != nil {
		t.Fatal(err)
	}

	if token := s.loadValidScoped(); token != nil {
		t.Error("expected legacy token without scope metadata to be discarded")
	}
}

func TestCorruptTokenFileIsDiscarded(t *testing.T) {
	s := setupTestStore(t, []string{"scope-a"})
	if err := os.WriteFile(s.tokenPath, []byte("{broken"), 0600); err != nil {
		t.Fatal(err)
	}

	if token := s.loadValidScoped(); token != nil {
		t.Error("expected nil for corrupt token file")
	}
	if _, err := os.Stat(s.tokenPath); !os.IsNotExist(err) {
		t.Error("expected corrupt token file to be deleted")
	}
}

func TestSaveTokenRecordsScopes(t *testing.T) {
	scopes := []string{"scope-a", "scope-b"}
	s := setupTestStore(t, scopes)

	if err := s.saveToken(&testToken); err != nil {
		t.Fatalf("saveToken: %v", err)
	}

	data, err := os.ReadFile(s.tokenPath)
	if err != nil {
		t.Fatal(err)
	}
	var tf tokenFile
	if err := json.Unmarshal(data, &tf); err != nil {
		t.Fatal(err)
	}
	if len(tf.Scopes) != 2 || tf.Scopes[0] != "scope-a" || tf.Scopes[1] != "scope-b" {
		t.Errorf("saved scopes = %v, want %v", tf.Scopes, scopes)
	}
	if tf.AccessToken != "test-access" {
		t.Errorf("saved AccessToken = %q", tf.AccessToken)
	}
}

func TestEnsureReturnsSourceForValidToken(t *testing.T) {
	scopes := []string{"scope-a"}
	s := setupTestStore(t, scopes)
	// Zero expiry means the token never expires, so Ensure must not need
	// a refresh or a consent flow.
	writeTokenFile(t, s, testToken, scopes)

	ts, err := s.Ensure(context.Background())
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	token, err := ts.Token()
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if token.AccessToken != "test-access" {
		t.Errorf("AccessToken = %q, want test-access", token.AccessToken)
	}
}

func TestHasToken(t *testing.T) {
	scopes := []string{"scope-a"}
	s := setupTestStore(t, scopes)

	if s.HasToken() {
		t.Error("HasToken = true with no token file")
	}
	writeTokenFile(t, s, testToken, scopes)
	if !s.HasToken() {
		t.Error("HasToken = false with valid token file")
	}
}

func TestDeleteTokenIdempotent(t *testing.T) {
	s := setupTestStore(t, []string{"scope-a"})
	if err := s.DeleteToken(); err != nil {
		t.Errorf("DeleteToken on missing file: %v", err)
	}
	writeTokenFile(t, s, testToken, []string{"scope-a"})
	if err := s.DeleteToken(); err != nil {
		t.Errorf("DeleteToken: %v", err)
	}
	if err := s.DeleteToken(); err != nil {
		t.Errorf("DeleteToken second call: %v", err)
	}
}

func TestScopesEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b []string
		want bool
	}{
		{"both empty", nil, nil, true},
		{"equal", []string{"a", "b"}, []string{"a", "b"}, true},
		{"different length", []string{"a"}, []string{"a", "b"}, false},
		{"different content", []string{"a", "c"}, []string{"a", "b"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := scopesEqual(tt.a, tt.b); got != tt.want {
				t.Errorf("scopesEqual(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}
