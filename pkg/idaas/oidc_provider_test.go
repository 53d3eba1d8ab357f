package idaas

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func writeOidcTokenFile(t *testing.T, path string, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "system:serviceaccount:default:app",
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	signed, err := token.SignedString([]byte("test-signing-key"))
	if err != nil {
		t.Fatalf("Failed to sign test token: %v", err)
	}
	if err := os.WriteFile(path, []byte(signed), 0600); err != nil {
		t.Fatalf("Failed to write token file: %v", err)
	}
	return signed
}

func TestStaticOidcTokenProvider(t *testing.T) {
	provider := &StaticOidcTokenProvider{OidcToken: "static-token"}

	token, err := provider.GetOidcToken()
	if err != nil {
		t.Fatalf("GetOidcToken failed: %v", err)
	}
	if token != "static-token" {
		t.Errorf("Expected static-token, got %s", token)
	}
}

func TestFileOidcTokenProvider_CachesUntilNearExpiry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oidc-token")
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	first := writeOidcTokenFile(t, path, now.Add(time.Hour))

	provider := NewFileOidcTokenProvider(path)
	provider.now = func() time.Time { return now }

	token, err := provider.GetOidcToken()
	if err != nil {
		t.Fatalf("GetOidcToken failed: %v", err)
	}
	if token != first {
		t.Error("Expected the file contents")
	}

	// Rewrite the file; the cached token is still served because more than
	// ten minutes remain before exp.
	second := writeOidcTokenFile(t, path, now.Add(2*time.Hour))
	token, err = provider.GetOidcToken()
	if err != nil {
		t.Fatalf("GetOidcToken failed: %v", err)
	}
	if token != first {
		t.Error("Expected the cached token while it is still fresh")
	}

	// Within ten minutes of expiry the file is re-read.
	provider.now = func() time.Time { return now.Add(51 * time.Minute) }
	token, err = provider.GetOidcToken()
	if err != nil {
		t.Fatalf("GetOidcToken failed: %v", err)
	}
	if token != second {
		t.Error("Expected the rotated token near expiry")
	}
}

func TestFileOidcTokenProvider_UnparseableTokenRereadsEachCall(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oidc-token")
	if err := os.WriteFile(path, []byte("not-a-jwt"), 0600); err != nil {
		t.Fatalf("Failed to write token file: %v", err)
	}

	provider := NewFileOidcTokenProvider(path)

	// A token without a parseable exp claim is treated as soon-to-expire,
	// so every call re-reads the file.
	token, err := provider.GetOidcToken()
	if err != nil {
		t.Fatalf("GetOidcToken failed: %v", err)
	}
	if token != "not-a-jwt" {
		t.Errorf("Expected raw file contents, got %s", token)
	}

	if err := os.WriteFile(path, []byte("still-not-a-jwt"), 0600); err != nil {
		t.Fatalf("Failed to rewrite token file: %v", err)
	}
	token, err = provider.GetOidcToken()
	if err != nil {
		t.Fatalf("GetOidcToken failed: %v", err)
	}
	if token != "still-not-a-jwt" {
		t.Errorf("Expected re-read contents, got %s", token)
	}
}

func TestFileOidcTokenProvider_MissingFile(t *testing.T) {
	provider := NewFileOidcTokenProvider(filepath.Join(t.TempDir(), "absent"))

	_, err := provider.GetOidcToken()
	if err == nil {
		t.Fatal("Expected error for missing token file")
	}
	if !errors.Is(err, ErrCredential) {
		t.Errorf("Expected ErrCredential, got %v", err)
	}
}
