package auth

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// createTempStore returns a store backed by a file in a fresh temp
// directory.
func createTempStore(t *testing.T) *Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "tokens", "oauth_tokens.json")
	store, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	return store
}

// testToken builds a token expiring one hour out. The timestamp is
// truncated so a JSON round trip reproduces it exactly.
func testToken(providerID string) Token {
	return Token{
		ProviderID:   providerID,
		AccessToken:  "access-" + providerID,
		RefreshToken: "refresh-" + providerID,
		ExpiresAt:    time.Now().Add(time.Hour).UTC().Truncate(time.Second),
	}
}

func TestStore_PutGet(t *testing.T) {
	store := createTempStore(t)

	token := testToken("anthropic")
	if err := store.Put(token); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, ok := store.Get("anthropic")
	if !ok {
		t.Fatal("Get returned no token")
	}
	if got != token {
		t.Errorf("Get = %+v, want %+v", got, token)
	}

	if _, ok := store.Get("missing"); ok {
		t.Error("Get returned a token for an unknown provider id")
	}
}

func TestStore_PutOverwrites(t *testing.T) {
	store := createTempStore(t)

	if err := store.Put(testToken("anthropic")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	updated := testToken("anthropic")
	updated.AccessToken = "access-rotated"
	if err := store.Put(updated); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, _ := store.Get("anthropic")
	if got.AccessToken != "access-rotated" {
		t.Errorf("AccessToken = %q, want access-rotated", got.AccessToken)
	}
	if len(store.List()) != 1 {
		t.Errorf("Expected 1 token after overwrite, got %d", len(store.List()))
	}
}

func TestStore_Reload(t *testing.T) {
	store := createTempStore(t)

	token := testToken("anthropic")
	token.EnterpriseURL = "https://enterprise.example.com"
	if err := store.Put(token); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	reloaded, err := NewStore(store.Path())
	if err != nil {
		t.Fatalf("NewStore reload failed: %v", err)
	}

	got, ok := reloaded.Get("anthropic")
	if !ok {
		t.Fatal("reloaded store has no token")
	}
	if got.ProviderID != token.ProviderID ||
		got.AccessToken != token.AccessToken ||
		got.RefreshToken != token.RefreshToken ||
		got.EnterpriseURL != token.EnterpriseURL {
		t.Errorf("reloaded token = %+v, want %+v", got, token)
	}
	if !got.ExpiresAt.Equal(token.ExpiresAt) {
		t.Errorf("ExpiresAt = %v, want %v", got.ExpiresAt, token.ExpiresAt)
	}
}

func TestStore_FilePermissions(t *testing.T) {
	store := createTempStore(t)

	if err := store.Put(testToken("anthropic")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	info, err := os.Stat(store.Path())
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("token file mode = %o, want 600", perm)
	}

	dirInfo, err := os.Stat(filepath.Dir(store.Path()))
	if err != nil {
		t.Fatalf("stat dir failed: %v", err)
	}
	if perm := dirInfo.Mode().Perm(); perm != 0o700 {
		t.Errorf("token directory mode = %o, want 700", perm)
	}
}

func TestStore_Delete(t *testing.T) {
	store := createTempStore(t)

	if err := store.Put(testToken("anthropic")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Delete("anthropic"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok := store.Get("anthropic"); ok {
		t.Error("token still present after Delete")
	}

	reloaded, err := NewStore(store.Path())
	if err != nil {
		t.Fatalf("NewStore reload failed: %v", err)
	}
	if _, ok := reloaded.Get("anthropic"); ok {
		t.Error("deleted token came back after reload")
	}

	if err := store.Delete("missing"); err != nil {
		t.Errorf("Delete of absent id failed: %v", err)
	}
}

func TestStore_ListSorted(t *testing.T) {
	store := createTempStore(t)

	for _, id := range []string{"zai", "anthropic", "openrouter"} {
		if err := store.Put(testToken(id)); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}

	tokens := store.List()
	if len(tokens) != 3 {
		t.Fatalf("Expected 3 tokens, got %d", len(tokens))
	}

	want := []string{"anthropic", "openrouter", "zai"}
	for i, id := range want {
		if tokens[i].ProviderID != id {
			t.Errorf("tokens[%d].ProviderID = %q, want %q", i, tokens[i].ProviderID, id)
		}
	}
}

func TestStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oauth_tokens.json")
	if err := os.WriteFile(path, []byte("not json{"), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	if _, err := NewStore(path); err == nil {
		t.Fatal("Expected error for corrupt token file, got nil")
	}
}

func TestStore_OmitsEmptyEnterpriseURL(t *testing.T) {
	store := createTempStore(t)

	if err := store.Put(testToken("anthropic")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	data, err := os.ReadFile(store.Path())
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if strings.Contains(string(data), "enterprise_url") {
		t.Error("empty enterprise_url was serialized")
	}

	token := testToken("copilot")
	token.EnterpriseURL = "https://enterprise.example.com"
	if err := store.Put(token); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	data, err = os.ReadFile(store.Path())
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if !strings.Contains(string(data), "https://enterprise.example.com") {
		t.Error("set enterprise_url was not serialized")
	}
}

func TestStore_LeavesNoTempFiles(t *testing.T) {
	store := createTempStore(t)

	for i := 0; i < 5; i++ {
		if err := store.Put(testToken("anthropic")); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}

	entries, err := os.ReadDir(filepath.Dir(store.Path()))
	if err != nil {
		t.Fatalf("read dir failed: %v", err)
	}
	if len(entries) != 1 {
		var names []string
		for _, entry := range entries {
			names = append(names, entry.Name())
		}
		t.Errorf("Expected only the token file, got %v", names)
	}
}
