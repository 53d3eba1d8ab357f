package idaas

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// assertionLifetime is the validity window of generated client assertions.
const assertionLifetime = 300 * time.Second

// assertionClaims builds the registered claims shared by every client
// assertion: iss and sub are the client id, aud is the token endpoint, jti is
// a random 128-bit nonce.
func assertionClaims(clientID, tokenEndpoint string, now time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Issuer:    clientID,
		Subject:   clientID,
		Audience:  jwt.ClaimStrings{tokenEndpoint},
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(assertionLifetime)),
	}
}

// StaticClientSecretAssertionProvider generates HS256 client assertions
// signed with the client secret. The assertion is regenerated on every call.
type StaticClientSecretAssertionProvider struct {
	ClientID             string
	TokenEndpoint        string
	ClientSecretSupplier ClientSecretSupplier

	// now is the clock source, pluggable for testing.
	now func() time.Time
}

// NewStaticClientSecretAssertionProvider creates an HS256 assertion provider.
func NewStaticClientSecretAssertionProvider(clientID, tokenEndpoint string, supplier ClientSecretSupplier) *StaticClientSecretAssertionProvider {
	return &StaticClientSecretAssertionProvider{
		ClientID:             clientID,
		TokenEndpoint:        tokenEndpoint,
		ClientSecretSupplier: supplier,
		now:                  func() time.Time { return time.Now().UTC() },
	}
}

// GetClientAssertion generates a fresh HS256 assertion.
func (p *StaticClientSecretAssertionProvider) GetClientAssertion() (string, error) {
	if p.ClientID == "" || p.TokenEndpoint == "" {
		return "", &CredentialError{Message: "client id and token endpoint are required for generating a client assertion"}
	}
	if p.ClientSecretSupplier == nil {
		return "", &CredentialError{Message: "client secret supplier is required for generating a client assertion"}
	}

	secret, err := p.ClientSecretSupplier()
	if err != nil {
		return "", err
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, assertionClaims(p.ClientID, p.TokenEndpoint, p.now()))
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", &CredentialError{Message: "signing client assertion", Err: err}
	}
	return signed, nil
}

// StaticPrivateKeyAssertionProvider generates RS256 or ES256 client
// assertions signed with a private key; the algorithm follows the key type.
// The assertion is regenerated on every call.
type StaticPrivateKeyAssertionProvider struct {
	ClientID      string
	TokenEndpoint string

	key    crypto.Signer
	method jwt.SigningMethod
	now    func() time.Time
}

// NewStaticPrivateKeyAssertionProvider parses the PEM-encoded private key
// and creates an assertion provider signing with RS256 for RSA keys and
// ES256 for ECDSA keys.
func NewStaticPrivateKeyAssertionProvider(clientID, tokenEndpoint, privateKeyPEM string) (*StaticPrivateKeyAssertionProvider, error) {
	key, err := ParsePrivateKeyFromPEM(privateKeyPEM)
	if err != nil {
		return nil, err
	}

	var method jwt.SigningMethod
	switch key.(type) {
	case *rsa.PrivateKey:
		method = jwt.SigningMethodRS256
	case *ecdsa.PrivateKey:
		method = jwt.SigningMethodES256
	default:
		return nil, &EncodingError{Message: "unsupported private key type for client assertion"}
	}

	return &StaticPrivateKeyAssertionProvider{
		ClientID:      clientID,
		TokenEndpoint: tokenEndpoint,
		key:           key,
		method:        method,
		now:           func() time.Time { return time.Now().UTC() },
	}, nil
}

// GetClientAssertion generates a fresh private-key assertion.
func (p *StaticPrivateKeyAssertionProvider) GetClientAssertion() (string, error) {
	if p.ClientID == "" || p.TokenEndpoint == "" {
		return "", &CredentialError{Message: "client id and token endpoint are required for generating a client assertion"}
	}

	token := jwt.NewWithClaims(p.method, assertionClaims(p.ClientID, p.TokenEndpoint, p.now()))
	signed, err := token.SignedString(p.key)
	if err != nil {
		return "", &CredentialError{Message: "signing client assertion", Err: err}
	}
	return signed, nil
}

// ParsePrivateKeyFromPEM parses a PEM private key, supporting PKCS#8
// ("PRIVATE KEY"), PKCS#1 RSA ("RSA PRIVATE KEY"), and SEC 1 ECDSA
// ("EC PRIVATE KEY") encodings.
func ParsePrivateKeyFromPEM(pemContent string) (crypto.Signer, error) {
	block, _ := pem.Decode([]byte(pemContent))
	if block == nil {
		return nil, &EncodingError{Message: "no PEM block found in private key material"}
	}

	switch block.Type {
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, &EncodingError{Message: "parsing PKCS#8 private key", Err: err}
		}
		signer, ok := key.(crypto.Signer)
		if !ok {
			return nil, &EncodingError{Message: "unsupported PKCS#8 private key type"}
		}
		return signer, nil
	case "RSA PRIVATE KEY":
		key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, &EncodingError{Message: "parsing PKCS#1 RSA private key", Err: err}
		}
		return key, nil
	case "EC PRIVATE KEY":
		key, err := x509.ParseECPrivateKey(block.Bytes)
		if err != nil {
			return nil, &EncodingError{Message: "parsing EC private key", Err: err}
		}
		return key, nil
	default:
		return nil, &EncodingError{Message: "unsupported private key PEM type " + block.Type}
	}
}
