package idaas

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"

	"github.com/jeremyhahn/go-idaas/pkg/cache"
)

// shortLifetimeThreshold is the expires_in below which the stale and
// prefetch points collapse to just before expiry.
const shortLifetimeThreshold = 15 * time.Second

// EnvClientSecretSupplier returns a supplier that reads the client secret
// from the named environment variable on every call, so rotated secrets are
// picked up without a restart.
func EnvClientSecretSupplier(envVarName string) ClientSecretSupplier {
	return func() (string, error) {
		secret := os.Getenv(envVarName)
		if secret == "" {
			return "", &CredentialError{Message: "client secret environment variable " + envVarName + " is empty"}
		}
		return secret, nil
	}
}

// MachineCredentialProvider acquires and maintains an access token for a
// non-human principal. It is reusable, safe for concurrent use, and holds no
// state beyond its cache.
type MachineCredentialProvider struct {
	clientID      string
	scope         string
	tokenEndpoint string
	authnMethod   AuthnMethod

	clientSecretSupplier     ClientSecretSupplier
	clientAssertionProvider  JwtClientAssertionProvider
	federatedCredentialName  string
	attestedDocumentProvider Pkcs7AttestedDocumentProvider
	oidcTokenProvider        OidcTokenProvider
	clientX509Certificate    string
	x509CertChains           string

	asyncCredentialUpdate bool
	staleValueBehavior    cache.StaleValueBehavior
	httpClient            HTTPClient
	now                   func() time.Time
	logger                *slog.Logger

	supplier *cache.CachedResultSupplier[*TokenResponse]
}

// ProviderOption configures a MachineCredentialProvider.
type ProviderOption func(*MachineCredentialProvider)

// WithAuthnMethod sets the client authentication method. The default is
// CLIENT_SECRET_POST.
func WithAuthnMethod(method AuthnMethod) ProviderOption {
	return func(p *MachineCredentialProvider) { p.authnMethod = method }
}

// WithClientSecretSupplier sets the client secret source for the
// CLIENT_SECRET_BASIC and CLIENT_SECRET_POST methods.
func WithClientSecretSupplier(supplier ClientSecretSupplier) ProviderOption {
	return func(p *MachineCredentialProvider) { p.clientSecretSupplier = supplier }
}

// WithClientAssertionProvider sets the assertion source for the
// CLIENT_SECRET_JWT, PRIVATE_KEY_JWT, and PCA methods.
func WithClientAssertionProvider(provider JwtClientAssertionProvider) ProviderOption {
	return func(p *MachineCredentialProvider) { p.clientAssertionProvider = provider }
}

// WithFederatedCredentialName sets the application federated credential name
// required by the PKCS7, OIDC, and PCA methods.
func WithFederatedCredentialName(name string) ProviderOption {
	return func(p *MachineCredentialProvider) { p.federatedCredentialName = name }
}

// WithAttestedDocumentProvider sets the document source for PKCS7.
func WithAttestedDocumentProvider(provider Pkcs7AttestedDocumentProvider) ProviderOption {
	return func(p *MachineCredentialProvider) { p.attestedDocumentProvider = provider }
}

// WithOidcTokenProvider sets the token source for OIDC.
func WithOidcTokenProvider(provider OidcTokenProvider) ProviderOption {
	return func(p *MachineCredentialProvider) { p.oidcTokenProvider = provider }
}

// WithClientX509Certificate sets the certificate and chain for PCA.
func WithClientX509Certificate(certificate, chains string) ProviderOption {
	return func(p *MachineCredentialProvider) {
		p.clientX509Certificate = certificate
		p.x509CertChains = chains
	}
}

// WithAsyncCredentialUpdate selects the non-blocking prefetch strategy, so
// prefetch refreshes run on the process-wide background worker instead of a
// caller's stack.
func WithAsyncCredentialUpdate(enabled bool) ProviderOption {
	return func(p *MachineCredentialProvider) { p.asyncCredentialUpdate = enabled }
}

// WithStaleValueBehavior sets the refresh failure policy. The default is
// STRICT.
func WithStaleValueBehavior(behavior cache.StaleValueBehavior) ProviderOption {
	return func(p *MachineCredentialProvider) { p.staleValueBehavior = behavior }
}

// WithHTTPClient overrides the HTTP client; the default is the process-wide
// shared client.
func WithHTTPClient(client HTTPClient) ProviderOption {
	return func(p *MachineCredentialProvider) { p.httpClient = client }
}

// WithProviderClock overrides the clock source, pluggable for testing.
func WithProviderClock(now func() time.Time) ProviderOption {
	return func(p *MachineCredentialProvider) { p.now = now }
}

// WithProviderLogger sets the logger used by the provider and its cache.
func WithProviderLogger(logger *slog.Logger) ProviderOption {
	return func(p *MachineCredentialProvider) { p.logger = logger }
}

// NewMachineCredentialProvider creates a provider for the given client id,
// scope, and token endpoint.
func NewMachineCredentialProvider(clientID, scope, tokenEndpoint string, opts ...ProviderOption) (*MachineCredentialProvider, error) {
	if clientID == "" {
		return nil, &ConfigError{ErrorCode: CodeClientIDNotFound, Message: "client id is blank"}
	}
	if scope == "" {
		return nil, &ConfigError{ErrorCode: CodeInvalidRequest, Message: "scope is blank"}
	}
	if tokenEndpoint == "" {
		return nil, &ConfigError{ErrorCode: CodeTokenEndpointNotFound, Message: "token endpoint is blank"}
	}

	p := &MachineCredentialProvider{
		clientID:           clientID,
		scope:              scope,
		tokenEndpoint:      tokenEndpoint,
		authnMethod:        AuthnClientSecretPost,
		staleValueBehavior: cache.StaleValueStrict,
		now:                func() time.Time { return time.Now().UTC() },
		logger:             slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.httpClient == nil {
		p.httpClient = DefaultHTTPClient()
	}
	if p.clientSecretSupplier == nil {
		p.clientSecretSupplier = EnvClientSecretSupplier(DefaultClientSecretEnvVar)
	}

	var strategy cache.PrefetchStrategy
	if p.asyncCredentialUpdate {
		strategy = cache.NewNonBlockingPrefetchStrategy()
	} else {
		strategy = cache.NewOneCallerBlocksPrefetchStrategy()
	}

	p.supplier = cache.NewCachedResultSupplier(p.refreshCredential,
		cache.WithPrefetchStrategy[*TokenResponse](strategy),
		cache.WithStaleValueBehavior[*TokenResponse](p.staleValueBehavior),
		cache.WithClock[*TokenResponse](p.now),
		cache.WithLogger[*TokenResponse](p.logger),
	)
	return p, nil
}

// AuthnMethod returns the configured authentication method.
func (p *MachineCredentialProvider) AuthnMethod() AuthnMethod { return p.authnMethod }

// ClientID returns the configured client id.
func (p *MachineCredentialProvider) ClientID() string { return p.clientID }

// Scope returns the configured scope.
func (p *MachineCredentialProvider) Scope() string { return p.scope }

// TokenEndpoint returns the configured token endpoint.
func (p *MachineCredentialProvider) TokenEndpoint() string { return p.tokenEndpoint }

// GetCredential returns a valid credential, refreshing it when needed.
func (p *MachineCredentialProvider) GetCredential(ctx context.Context) (*TokenResponse, error) {
	return p.supplier.Get(ctx)
}

// GetBearerToken returns the access token of a valid credential.
func (p *MachineCredentialProvider) GetBearerToken(ctx context.Context) (string, error) {
	credential, err := p.GetCredential(ctx)
	if err != nil {
		return "", err
	}
	return credential.AccessToken, nil
}

// Token implements oauth2.TokenSource, so the provider plugs into anything
// consuming the standard contract.
func (p *MachineCredentialProvider) Token() (*oauth2.Token, error) {
	credential, err := p.GetCredential(context.Background())
	if err != nil {
		return nil, err
	}
	return credential.OAuth2Token(), nil
}

var _ oauth2.TokenSource = (*MachineCredentialProvider)(nil)

// Close releases the provider's cache resources.
func (p *MachineCredentialProvider) Close() {
	p.supplier.Close()
}

// refreshCredential fetches a new token and computes the cache timing points
// from its expiry. The supplier applies jitter before storing.
func (p *MachineCredentialProvider) refreshCredential(ctx context.Context) (cache.RefreshResult[*TokenResponse], error) {
	token, err := p.getTokenFromIDaaS(ctx)
	if err != nil {
		return cache.RefreshResult[*TokenResponse]{}, err
	}

	staleTime, prefetchTime := tokenRefreshTimes(token, p.now())

	return cache.NewRefreshResultBuilder(token).
		StaleTime(staleTime).
		PrefetchTime(prefetchTime).
		NotAfter(token.Expiry()).
		Build()
}

// tokenRefreshTimes computes the canonical timing points: stale at 4/5 of
// the token lifetime, prefetch at 2/3. Very short lifetimes collapse both to
// just before expiry.
func tokenRefreshTimes(token *TokenResponse, now time.Time) (staleTime, prefetchTime time.Time) {
	expiresAt := token.Expiry()
	expiresIn := time.Duration(token.ExpiresIn) * time.Second

	if expiresIn < shortLifetimeThreshold {
		edge := expiresAt.Add(-1 * time.Second)
		if edge.Before(now) {
			edge = now
		}
		return edge, edge
	}

	staleTime = expiresAt.Add(-time.Duration(token.ExpiresIn/5) * time.Second)
	prefetchTime = expiresAt.Add(-time.Duration(token.ExpiresIn/3) * time.Second)
	return staleTime, prefetchTime
}

// getTokenFromIDaaS assembles and sends the token request for the
// configured authentication method.
func (p *MachineCredentialProvider) getTokenFromIDaaS(ctx context.Context) (*TokenResponse, error) {
	switch p.authnMethod {
	case AuthnClientSecretBasic:
		secret, err := p.clientSecretSupplier()
		if err != nil {
			return nil, err
		}
		header := http.Header{}
		header.Set("Authorization", basicAuthHeader(p.clientID, secret))
		return postTokenEndpoint(ctx, p.httpClient, p.tokenEndpoint,
			buildClientSecretBasicForm(p.clientID, p.scope), header)

	case AuthnClientSecretPost:
		secret, err := p.clientSecretSupplier()
		if err != nil {
			return nil, err
		}
		return postTokenEndpoint(ctx, p.httpClient, p.tokenEndpoint,
			buildClientSecretPostForm(p.clientID, secret, p.scope), nil)

	case AuthnClientSecretJWT, AuthnPrivateKeyJWT:
		if p.clientAssertionProvider == nil {
			return nil, &ConfigError{ErrorCode: CodeAuthnConfigurationNotFound,
				Message: "client assertion provider is required for " + string(p.authnMethod)}
		}
		assertion, err := p.clientAssertionProvider.GetClientAssertion()
		if err != nil {
			return nil, err
		}
		return postTokenEndpoint(ctx, p.httpClient, p.tokenEndpoint,
			buildClientAssertionForm(p.clientID, assertion, p.scope), nil)

	case AuthnPKCS7:
		if p.federatedCredentialName == "" {
			return nil, &ConfigError{ErrorCode: CodeFederatedCredentialNameNotFound,
				Message: "application federated credential name is blank"}
		}
		if p.attestedDocumentProvider == nil {
			return nil, &ConfigError{ErrorCode: CodeAuthnConfigurationNotFound,
				Message: "attested document provider is required for PKCS7"}
		}
		document, err := p.attestedDocumentProvider.GetAttestedDocument(ctx)
		if err != nil {
			return nil, err
		}
		return postTokenEndpoint(ctx, p.httpClient, p.tokenEndpoint,
			buildPKCS7Form(p.clientID, p.federatedCredentialName, document, p.scope), nil)

	case AuthnOIDC:
		if p.federatedCredentialName == "" {
			return nil, &ConfigError{ErrorCode: CodeFederatedCredentialNameNotFound,
				Message: "application federated credential name is blank"}
		}
		if p.oidcTokenProvider == nil {
			return nil, &ConfigError{ErrorCode: CodeAuthnConfigurationNotFound,
				Message: "oidc token provider is required for OIDC"}
		}
		oidcToken, err := p.oidcTokenProvider.GetOidcToken()
		if err != nil {
			return nil, err
		}
		return postTokenEndpoint(ctx, p.httpClient, p.tokenEndpoint,
			buildOIDCForm(p.clientID, p.federatedCredentialName, oidcToken, p.scope), nil)

	case AuthnPCA:
		if p.federatedCredentialName == "" {
			return nil, &ConfigError{ErrorCode: CodeFederatedCredentialNameNotFound,
				Message: "application federated credential name is blank"}
		}
		if p.clientAssertionProvider == nil {
			return nil, &ConfigError{ErrorCode: CodeAuthnConfigurationNotFound,
				Message: "client assertion provider is required for PCA"}
		}
		if p.clientX509Certificate == "" {
			return nil, &ConfigError{ErrorCode: CodeClientX509CertificateNotFound,
				Message: "client x509 certificate is blank"}
		}
		if p.x509CertChains == "" {
			return nil, &ConfigError{ErrorCode: CodeX509CertChainsNotFound,
				Message: "x509 certificate chains are blank"}
		}
		assertion, err := p.clientAssertionProvider.GetClientAssertion()
		if err != nil {
			return nil, err
		}
		return postTokenEndpoint(ctx, p.httpClient, p.tokenEndpoint,
			buildPCAForm(p.clientID, p.federatedCredentialName, p.clientX509Certificate,
				p.x509CertChains, assertion, p.scope), nil)

	default:
		return nil, &ConfigError{ErrorCode: CodeUnsupportedAuthenticationMethod,
			Message: "unsupported authentication method " + string(p.authnMethod)}
	}
}
