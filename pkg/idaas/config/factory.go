package config

import (
	"os"

	"github.com/jeremyhahn/go-idaas/pkg/cache"
	"github.com/jeremyhahn/go-idaas/pkg/idaas"
)

// NewCredentialProvider wires a MachineCredentialProvider from a validated
// configuration, selecting the material sub-provider by authentication
// method and deploy environment. Additional options are appended after the
// config-derived ones, so callers may override for testing.
func NewCredentialProvider(cfg *ClientConfig, extra ...idaas.ProviderOption) (*idaas.MachineCredentialProvider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	behavior, err := cache.ParseStaleValueBehavior(cfg.StaleValueBehavior)
	if err != nil {
		return nil, err
	}

	opts := []idaas.ProviderOption{
		idaas.WithAuthnMethod(cfg.Authn.AuthnMethod),
		idaas.WithAsyncCredentialUpdate(cfg.AsyncCredentialUpdate),
		idaas.WithStaleValueBehavior(behavior),
		idaas.WithHTTPClient(idaas.NewHTTPClient(idaas.HTTPClientOptions{
			ConnectTimeout:     cfg.HTTP.ConnectTimeout,
			ReadTimeout:        cfg.HTTP.ReadTimeout,
			InsecureSkipVerify: cfg.HTTP.InsecureSkipVerify,
		})),
	}

	methodOpts, err := materialOptions(cfg)
	if err != nil {
		return nil, err
	}
	opts = append(opts, methodOpts...)
	opts = append(opts, extra...)

	return idaas.NewMachineCredentialProvider(cfg.ClientID, cfg.Scope, cfg.TokenEndpoint, opts...)
}

// materialOptions resolves the method-specific material sub-provider.
func materialOptions(cfg *ClientConfig) ([]idaas.ProviderOption, error) {
	authn := cfg.Authn

	switch authn.AuthnMethod {
	case idaas.AuthnClientSecretBasic, idaas.AuthnClientSecretPost:
		return []idaas.ProviderOption{
			idaas.WithClientSecretSupplier(clientSecretSupplier(authn)),
		}, nil

	case idaas.AuthnClientSecretJWT:
		provider := idaas.NewStaticClientSecretAssertionProvider(
			cfg.ClientID, cfg.TokenEndpoint, clientSecretSupplier(authn))
		return []idaas.ProviderOption{idaas.WithClientAssertionProvider(provider)}, nil

	case idaas.AuthnPrivateKeyJWT:
		provider, err := privateKeyAssertionProvider(cfg)
		if err != nil {
			return nil, err
		}
		return []idaas.ProviderOption{idaas.WithClientAssertionProvider(provider)}, nil

	case idaas.AuthnPCA:
		if authn.ClientX509Certificate == "" {
			return nil, &idaas.ConfigError{ErrorCode: idaas.CodeClientX509CertificateNotFound,
				Message: "client x509 certificate is required for PCA"}
		}
		if authn.X509CertChains == "" {
			return nil, &idaas.ConfigError{ErrorCode: idaas.CodeX509CertChainsNotFound,
				Message: "x509 certificate chains are required for PCA"}
		}
		provider, err := privateKeyAssertionProvider(cfg)
		if err != nil {
			return nil, err
		}
		return []idaas.ProviderOption{
			idaas.WithClientAssertionProvider(provider),
			idaas.WithFederatedCredentialName(authn.ApplicationFederatedCredentialName),
			idaas.WithClientX509Certificate(authn.ClientX509Certificate, authn.X509CertChains),
		}, nil

	case idaas.AuthnPKCS7:
		document, err := attestedDocumentProvider(cfg)
		if err != nil {
			return nil, err
		}
		return []idaas.ProviderOption{
			idaas.WithAttestedDocumentProvider(document),
			idaas.WithFederatedCredentialName(authn.ApplicationFederatedCredentialName),
		}, nil

	case idaas.AuthnOIDC:
		token, err := oidcTokenProvider(cfg)
		if err != nil {
			return nil, err
		}
		return []idaas.ProviderOption{
			idaas.WithOidcTokenProvider(token),
			idaas.WithFederatedCredentialName(authn.ApplicationFederatedCredentialName),
		}, nil

	default:
		return nil, &idaas.ConfigError{ErrorCode: idaas.CodeUnsupportedAuthenticationMethod,
			Message: "unsupported authentication method " + string(authn.AuthnMethod)}
	}
}

func clientSecretSupplier(authn *AuthnConfig) idaas.ClientSecretSupplier {
	envVar := authn.ClientSecretEnvVarName
	if envVar == "" {
		envVar = idaas.DefaultClientSecretEnvVar
	}
	return idaas.EnvClientSecretSupplier(envVar)
}

func privateKeyAssertionProvider(cfg *ClientConfig) (idaas.JwtClientAssertionProvider, error) {
	envVar := cfg.Authn.PrivateKeyEnvVarName
	if envVar == "" {
		return nil, &idaas.ConfigError{ErrorCode: idaas.CodePrivateKeyEnvVarNameNotFound,
			Message: "private key env var name is required"}
	}
	pem := os.Getenv(envVar)
	if pem == "" {
		return nil, &idaas.CredentialError{Message: "private key environment variable " + envVar + " is empty"}
	}
	return idaas.NewStaticPrivateKeyAssertionProvider(cfg.ClientID, cfg.TokenEndpoint, pem)
}

func attestedDocumentProvider(cfg *ClientConfig) (idaas.Pkcs7AttestedDocumentProvider, error) {
	switch cfg.Authn.ClientDeployEnvironment {
	case idaas.DeployAlibabaCloudECS, idaas.DeployAlibabaCloudECI:
		if cfg.IdaasInstanceID == "" {
			return nil, &idaas.ConfigError{ErrorCode: idaas.CodeInstanceIDNotFound,
				Message: "idaas instance id is required for the ECS attested document provider"}
		}
		return idaas.NewAlibabaCloudEcsAttestedDocumentProvider(cfg.IdaasInstanceID)
	case idaas.DeployAWSEC2:
		return &idaas.AwsEc2Pkcs7AttestedDocumentProvider{}, nil
	case "":
		return nil, &idaas.ConfigError{ErrorCode: idaas.CodeClientDeployEnvironmentNotFound,
			Message: "client deploy environment is required for PKCS7"}
	default:
		return nil, &idaas.ConfigError{ErrorCode: idaas.CodeUnsupportedClientDeployEnvironment,
			Message: "no attested document provider for environment " + string(cfg.Authn.ClientDeployEnvironment)}
	}
}

func oidcTokenProvider(cfg *ClientConfig) (idaas.OidcTokenProvider, error) {
	authn := cfg.Authn

	path := authn.OidcTokenFilePath
	if path == "" && authn.OidcTokenFilePathEnvVarName != "" {
		path = os.Getenv(authn.OidcTokenFilePathEnvVarName)
	}
	if path == "" {
		switch authn.ClientDeployEnvironment {
		case idaas.DeployAlibabaCloudACK:
			path = os.Getenv(idaas.ACKOIDCTokenFileEnvVar)
		case idaas.DeployKubernetes:
			path = idaas.KubernetesServiceAccountTokenPath
		}
	}
	if path == "" {
		return nil, &idaas.ConfigError{ErrorCode: idaas.CodeAuthnConfigurationNotFound,
			Message: "oidc token file path is required for OIDC"}
	}
	return idaas.NewFileOidcTokenProvider(path), nil
}
