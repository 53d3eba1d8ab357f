// Package config provides the typed configuration surface for the IDaaS
// credential client and a file loader that accepts both camelCase and
// snake_case keys.
package config

import (
	"time"

	"github.com/jeremyhahn/go-idaas/pkg/idaas"
)

// HTTPConfig carries the HTTP timeouts and TLS verification flag.
type HTTPConfig struct {
	// ConnectTimeout bounds connection establishment. Defaults to 5s;
	// bounded to [2s, 60s].
	ConnectTimeout time.Duration

	// ReadTimeout bounds waiting for the response. Defaults to 10s; bounded
	// to [2s, 60s].
	ReadTimeout time.Duration

	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool
}

// AuthnConfig selects the authentication method and references the material
// it needs. Secrets are referenced by environment-variable name, never
// embedded.
type AuthnConfig struct {
	IdentityType idaas.IdentityType
	AuthnMethod  idaas.AuthnMethod

	// ClientSecretEnvVarName names the env var holding the client secret
	// for the CLIENT_SECRET_* methods.
	ClientSecretEnvVarName string

	// PrivateKeyEnvVarName names the env var holding the PEM private key
	// for PRIVATE_KEY_JWT and PCA.
	PrivateKeyEnvVarName string

	// ApplicationFederatedCredentialName is required by PKCS7, OIDC, and
	// PCA.
	ApplicationFederatedCredentialName string

	// ClientDeployEnvironment selects the default material sub-provider for
	// PKCS7 and OIDC.
	ClientDeployEnvironment idaas.DeployEnvironment

	// OidcTokenFilePath points at the OIDC token file; when empty,
	// OidcTokenFilePathEnvVarName or the deploy environment's conventional
	// path is consulted.
	OidcTokenFilePath           string
	OidcTokenFilePathEnvVarName string

	// ClientX509Certificate and X509CertChains carry the PEM material for
	// PCA.
	ClientX509Certificate string
	X509CertChains        string
}

// ClientConfig is the complete client configuration. One ClientConfig feeds
// one credential provider.
type ClientConfig struct {
	IdaasInstanceID string
	ClientID        string
	Scope           string
	Issuer          string
	TokenEndpoint   string

	// AsyncCredentialUpdate selects the non-blocking prefetch strategy.
	AsyncCredentialUpdate bool

	// StaleValueBehavior is STRICT or ALLOW. Defaults to STRICT.
	StaleValueBehavior string

	Authn *AuthnConfig
	HTTP  HTTPConfig
}

// Validate checks required fields and applies defaults in place.
func (c *ClientConfig) Validate() error {
	if c.ClientID == "" {
		return &idaas.ConfigError{ErrorCode: idaas.CodeClientIDNotFound, Message: "client id is required"}
	}
	if c.TokenEndpoint == "" {
		return &idaas.ConfigError{ErrorCode: idaas.CodeTokenEndpointNotFound, Message: "token endpoint is required"}
	}
	if c.Scope == "" {
		c.Scope = idaas.DefaultScope
	}
	if c.Authn == nil {
		return &idaas.ConfigError{ErrorCode: idaas.CodeAuthnConfigurationNotFound, Message: "authn configuration is required"}
	}
	if c.Authn.AuthnMethod == "" {
		c.Authn.AuthnMethod = idaas.AuthnNone
	}
	if _, err := idaas.ParseAuthnMethod(string(c.Authn.AuthnMethod)); err != nil {
		return err
	}
	if c.Authn.IdentityType == "" {
		c.Authn.IdentityType = idaas.IdentityClient
	}
	if c.StaleValueBehavior == "" {
		c.StaleValueBehavior = "STRICT"
	}

	if c.HTTP.ConnectTimeout == 0 {
		c.HTTP.ConnectTimeout = idaas.DefaultConnectTimeout
	}
	if c.HTTP.ConnectTimeout < idaas.MinTimeout || c.HTTP.ConnectTimeout > idaas.MaxTimeout {
		return &idaas.ConfigError{ErrorCode: idaas.CodeConnectTimeoutNotValid,
			Message: "connect timeout must be between 2s and 60s"}
	}
	if c.HTTP.ReadTimeout == 0 {
		c.HTTP.ReadTimeout = idaas.DefaultReadTimeout
	}
	if c.HTTP.ReadTimeout < idaas.MinTimeout || c.HTTP.ReadTimeout > idaas.MaxTimeout {
		return &idaas.ConfigError{ErrorCode: idaas.CodeReadTimeoutNotValid,
			Message: "read timeout must be between 2s and 60s"}
	}
	return nil
}
