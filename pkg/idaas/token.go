package idaas

import (
	"time"

	"golang.org/x/oauth2"
)

// TokenResponse is the typed result of a successful token endpoint request.
//
// ExpiresAt is a wall-clock unix timestamp agreed with the server; when the
// server omits it, the client computes it from ExpiresIn at receipt time.
type TokenResponse struct {
	// AccessToken is the bearer credential returned by the token endpoint.
	AccessToken string `json:"access_token"`

	// IDToken is the OpenID Connect ID token. Empty for machine clients.
	IDToken string `json:"id_token,omitempty"`

	// RefreshToken is used to obtain new access tokens. Empty for machine
	// clients.
	RefreshToken string `json:"refresh_token,omitempty"`

	// TokenType is the type of the token, "Bearer" expected.
	TokenType string `json:"token_type,omitempty"`

	// ExpiresIn is the token lifetime in seconds.
	ExpiresIn int64 `json:"expires_in,omitempty"`

	// ExpiresAt is the absolute expiry as a unix timestamp in seconds.
	ExpiresAt int64 `json:"expires_at,omitempty"`

	// Scope is the granted scope, when the server echoes it.
	Scope string `json:"scope,omitempty"`
}

// Expiry returns ExpiresAt as a time.Time in UTC.
func (t *TokenResponse) Expiry() time.Time {
	return time.Unix(t.ExpiresAt, 0).UTC()
}

// Expired reports whether the token's expiry has passed.
func (t *TokenResponse) Expired() bool {
	if t.ExpiresAt == 0 {
		return false
	}
	return time.Now().Unix() >= t.ExpiresAt
}

// WillSoonExpire reports whether less than 15% of the token's lifetime
// remains.
func (t *TokenResponse) WillSoonExpire() bool {
	now := time.Now().Unix()
	const expireFactor = 0.15
	return float64(t.ExpiresIn)*expireFactor > float64(t.ExpiresAt-now)
}

// OAuth2Token converts the response to the golang.org/x/oauth2 token type so
// the client composes with anything consuming the standard contract.
func (t *TokenResponse) OAuth2Token() *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  t.AccessToken,
		TokenType:    t.TokenType,
		RefreshToken: t.RefreshToken,
	}
	if t.ExpiresAt > 0 {
		tok.Expiry = t.Expiry()
	}
	if t.IDToken != "" {
		tok = tok.WithExtra(map[string]interface{}{"id_token": t.IDToken})
	}
	return tok
}
