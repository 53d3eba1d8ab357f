package idaas

import "context"

// Credential is the read surface of an acquired machine credential.
type Credential interface {
	// GetAccessToken returns the access token.
	GetAccessToken() string

	// GetIDToken returns the ID token. Empty for machine clients.
	GetIDToken() string

	// GetRefreshToken returns the refresh token. Empty for machine clients.
	GetRefreshToken() string

	// GetTokenType returns the token type, "Bearer" expected.
	GetTokenType() string
}

// GetAccessToken implements Credential.
func (t *TokenResponse) GetAccessToken() string { return t.AccessToken }

// GetIDToken implements Credential.
func (t *TokenResponse) GetIDToken() string { return t.IDToken }

// GetRefreshToken implements Credential.
func (t *TokenResponse) GetRefreshToken() string { return t.RefreshToken }

// GetTokenType implements Credential.
func (t *TokenResponse) GetTokenType() string { return t.TokenType }

// CredentialProvider supplies machine credentials, refreshing them
// transparently.
type CredentialProvider interface {
	// GetCredential returns a valid credential, refreshing when needed.
	GetCredential(ctx context.Context) (*TokenResponse, error)

	// GetBearerToken returns the access token of a valid credential.
	GetBearerToken(ctx context.Context) (string, error)
}

// JwtClientAssertionProvider supplies JWT client assertions for the
// CLIENT_SECRET_JWT, PRIVATE_KEY_JWT, and PCA methods. Assertions are
// regenerated on every call so iat, exp, and jti stay current.
type JwtClientAssertionProvider interface {
	GetClientAssertion() (string, error)
}

// OidcTokenProvider supplies OIDC tokens for the OIDC federated credential
// method.
type OidcTokenProvider interface {
	GetOidcToken() (string, error)
}

// Pkcs7AttestedDocumentProvider supplies PKCS7-signed attested documents for
// the PKCS7 federated credential method.
type Pkcs7AttestedDocumentProvider interface {
	GetAttestedDocument(ctx context.Context) (string, error)
}

// ClientSecretSupplier resolves the client secret at refresh time, so
// operators may rotate secrets without a restart.
type ClientSecretSupplier func() (string, error)
