package idaas

import "fmt"

// AuthnMethod identifies the client authentication method used against the
// token endpoint.
type AuthnMethod string

const (
	// AuthnNone indicates no authentication method has been configured.
	AuthnNone AuthnMethod = "NONE"

	// AuthnClientSecretBasic sends the client secret in an HTTP Basic header.
	AuthnClientSecretBasic AuthnMethod = "CLIENT_SECRET_BASIC"

	// AuthnClientSecretPost sends the client secret in the form body.
	AuthnClientSecretPost AuthnMethod = "CLIENT_SECRET_POST"

	// AuthnClientSecretJWT sends an HS256 client assertion derived from the
	// client secret.
	AuthnClientSecretJWT AuthnMethod = "CLIENT_SECRET_JWT"

	// AuthnPrivateKeyJWT sends an RS256/ES256 client assertion signed with a
	// private key.
	AuthnPrivateKeyJWT AuthnMethod = "PRIVATE_KEY_JWT"

	// AuthnPKCS7 exchanges a cloud-platform-signed attested document.
	AuthnPKCS7 AuthnMethod = "PKCS7"

	// AuthnOIDC exchanges a federated OIDC token.
	AuthnOIDC AuthnMethod = "OIDC"

	// AuthnPCA sends a private-key assertion together with a private-CA
	// certificate chain.
	AuthnPCA AuthnMethod = "PCA"
)

// ParseAuthnMethod maps a configuration string to an AuthnMethod.
func ParseAuthnMethod(s string) (AuthnMethod, error) {
	switch AuthnMethod(s) {
	case AuthnNone, AuthnClientSecretBasic, AuthnClientSecretPost,
		AuthnClientSecretJWT, AuthnPrivateKeyJWT, AuthnPKCS7, AuthnOIDC, AuthnPCA:
		return AuthnMethod(s), nil
	default:
		return "", &ConfigError{ErrorCode: CodeUnsupportedAuthenticationMethod,
			Message: fmt.Sprintf("unknown authentication method %q", s)}
	}
}

// IdentityType distinguishes machine clients from human principals.
type IdentityType string

const (
	IdentityClient IdentityType = "CLIENT"
	IdentityHuman  IdentityType = "HUMAN"
)

// DeployEnvironment identifies where the client runs, which selects the
// default material sub-provider for PKCS7 and OIDC methods.
type DeployEnvironment string

const (
	DeployCommon          DeployEnvironment = "COMMON"
	DeployComputer        DeployEnvironment = "COMPUTER"
	DeployKubernetes      DeployEnvironment = "KUBERNETES"
	DeployAlibabaCloudECS DeployEnvironment = "ALIBABA_CLOUD_ECS"
	DeployAlibabaCloudECI DeployEnvironment = "ALIBABA_CLOUD_ECI"
	DeployAlibabaCloudACK DeployEnvironment = "ALIBABA_CLOUD_ACK"
	DeployAWSEC2          DeployEnvironment = "AWS_EC2"
	DeployCustom          DeployEnvironment = "CUSTOM"
)

// OAuth 2.0 form parameter names and values.
const (
	paramClientID                = "client_id"
	paramClientSecret            = "client_secret"
	paramScope                   = "scope"
	paramGrantType               = "grant_type"
	paramClientAssertionType     = "client_assertion_type"
	paramClientAssertion         = "client_assertion"
	paramFederatedCredentialName = "application_federated_credential_name"
	paramClientX509Certificate   = "client_x509"
	paramX509CertChains          = "client_x509_chain"
	paramRefreshToken            = "refresh_token"
	paramSubjectToken            = "subject_token"
	paramSubjectTokenType        = "subject_token_type"
	paramRequestedTokenType      = "requested_token_type"
	paramAudience                = "audience"

	grantClientCredentials        = "client_credentials"
	grantRefreshToken             = "refresh_token"
	grantTokenExchange            = "urn:ietf:params:oauth:grant-type:token-exchange"
	subjectTokenTypeJWT           = "urn:ietf:params:oauth:token-type:jwt"
	requestedTokenTypeAccessToken = "urn:ietf:params:oauth:token-type:access_token"
)

// Client assertion type URNs. The jwt-bearer value is RFC 7523; the others
// are IDaaS-defined.
const (
	AssertionTypeJWTBearer          = "urn:ietf:params:oauth:client-assertion-type:jwt-bearer"
	AssertionTypePrivateCAJWTBearer = "urn:cloud:idaas:params:oauth:client-assertion-type:x509-jwt-bearer"
	AssertionTypePKCS7Bearer        = "urn:cloud:idaas:params:oauth:client-assertion-type:pkcs7-bearer"
	AssertionTypeOIDCBearer         = "urn:cloud:idaas:params:oauth:client-assertion-type:id-token-bearer"
)

// DefaultScope is the scope requested when none is configured.
const DefaultScope = "urn:cloud:idaas:pam|cloud_account:obtain_access_credential"

// Well-known environment variables and file paths.
const (
	// DefaultClientSecretEnvVar holds the client secret when no explicit
	// environment variable name is configured.
	DefaultClientSecretEnvVar = "CLOUD_IDAAS_CLIENT_SECRET"

	// DefaultClientIDEnvVar holds the client id for environments that
	// provision it out of band.
	DefaultClientIDEnvVar = "CLOUD_IDAAS_CLIENT_ID"

	// KubernetesServiceAccountTokenPath is the conventional projected
	// service account token location.
	KubernetesServiceAccountTokenPath = "/var/run/secrets/kubernetes.io/serviceaccount/token"

	// ACKOIDCTokenFileEnvVar names the env var that carries the OIDC token
	// file path on Alibaba Cloud ACK.
	ACKOIDCTokenFileEnvVar = "ALIBABA_CLOUD_OIDC_TOKEN_FILE"
)
