package idaas

import (
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// StaticOidcTokenProvider returns a pre-configured OIDC token.
type StaticOidcTokenProvider struct {
	OidcToken string
}

// GetOidcToken returns the configured token.
func (p *StaticOidcTokenProvider) GetOidcToken() (string, error) {
	return p.OidcToken, nil
}

// oidcTokenExpirySkew controls how early the file provider re-reads the
// token before its exp claim.
const oidcTokenExpirySkew = 600 * time.Second

// FileOidcTokenProvider reads an OIDC token from a file, caching it until
// the token's exp claim is within ten minutes of expiry. Kubernetes-style
// projected tokens are rotated in place by the kubelet, so re-reading picks
// up the rotation.
type FileOidcTokenProvider struct {
	oidcTokenFilePath string

	mu          sync.Mutex
	oidcToken   string
	expiresTime int64

	now    func() time.Time
	logger *slog.Logger
}

// NewFileOidcTokenProvider creates a provider reading from the given path.
func NewFileOidcTokenProvider(oidcTokenFilePath string) *FileOidcTokenProvider {
	return &FileOidcTokenProvider{
		oidcTokenFilePath: oidcTokenFilePath,
		now:               func() time.Time { return time.Now().UTC() },
		logger:            slog.Default(),
	}
}

// OidcTokenFilePath returns the configured file path.
func (p *FileOidcTokenProvider) OidcTokenFilePath() string {
	return p.oidcTokenFilePath
}

// GetOidcToken returns the cached token, re-reading the file when the cached
// token is absent or will expire within ten minutes.
func (p *FileOidcTokenProvider) GetOidcToken() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.oidcToken != "" && !p.willSoonExpire() {
		return p.oidcToken, nil
	}

	raw, err := os.ReadFile(p.oidcTokenFilePath)
	if err != nil {
		return "", &CredentialError{Message: "reading OIDC token file " + p.oidcTokenFilePath, Err: err}
	}

	p.oidcToken = string(raw)
	p.expiresTime = p.parseExpirationTime(p.oidcToken)
	return p.oidcToken, nil
}

// parseExpirationTime extracts the exp claim without verifying the
// signature; this client is not the token's audience.
func (p *FileOidcTokenProvider) parseExpirationTime(token string) int64 {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		p.logger.Warn("failed to parse expiration time from OIDC token", "error", err)
		return 0
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return 0
	}
	return exp.Unix()
}

func (p *FileOidcTokenProvider) willSoonExpire() bool {
	if p.expiresTime == 0 {
		return true
	}
	return p.now().Add(oidcTokenExpirySkew).Unix() >= p.expiresTime
}
