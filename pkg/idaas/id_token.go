package idaas

import (
	"context"
	"fmt"
	"sync"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// IDTokenVerifier verifies ID tokens returned alongside access tokens
// against the issuer's JWKS endpoint. The JWKS client refreshes keys in the
// background.
type IDTokenVerifier struct {
	issuer   string
	clientID string
	jwksURL  string

	mu   sync.RWMutex
	jwks keyfunc.Keyfunc
}

// NewIDTokenVerifier creates a verifier for the given issuer. The JWKS URL
// defaults to the issuer's conventional /.well-known location when empty.
func NewIDTokenVerifier(issuer, clientID, jwksURL string) (*IDTokenVerifier, error) {
	if issuer == "" {
		return nil, &ConfigError{ErrorCode: CodeIssuerEndpointNotFound, Message: "issuer is blank"}
	}
	if jwksURL == "" {
		jwksURL = issuer + "/.well-known/jwks.json"
	}
	return &IDTokenVerifier{
		issuer:   issuer,
		clientID: clientID,
		jwksURL:  jwksURL,
	}, nil
}

// Verify checks the ID token's signature, issuer, audience, and expiry, and
// returns its claims.
func (v *IDTokenVerifier) Verify(ctx context.Context, idToken string) (jwt.MapClaims, error) {
	if idToken == "" {
		return nil, &CredentialError{Message: "id token is empty"}
	}

	jwks, err := v.keyfunc(ctx)
	if err != nil {
		return nil, &HTTPError{ErrorCode: CodeConnectFailed, Message: "fetching JWKS from " + v.jwksURL, Err: err}
	}

	claims := jwt.MapClaims{}
	parserOpts := []jwt.ParserOption{
		jwt.WithIssuer(v.issuer),
		jwt.WithExpirationRequired(),
	}
	if v.clientID != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(v.clientID))
	}

	token, err := jwt.ParseWithClaims(idToken, claims, jwks.Keyfunc, parserOpts...)
	if err != nil {
		return nil, &EncodingError{Message: "verifying id token", Err: err}
	}
	if !token.Valid {
		return nil, &EncodingError{Message: "id token is invalid"}
	}
	return claims, nil
}

// keyfunc lazily initializes the background-refreshing JWKS client.
func (v *IDTokenVerifier) keyfunc(ctx context.Context) (keyfunc.Keyfunc, error) {
	v.mu.RLock()
	jwks := v.jwks
	v.mu.RUnlock()
	if jwks != nil {
		return jwks, nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.jwks != nil {
		return v.jwks, nil
	}

	jwks, err := keyfunc.NewDefaultCtx(ctx, []string{v.jwksURL})
	if err != nil {
		return nil, fmt.Errorf("initializing JWKS client: %w", err)
	}
	v.jwks = jwks
	return jwks, nil
}

// Close drops the JWKS client; the next Verify reinitializes it.
func (v *IDTokenVerifier) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.jwks = nil
}
