package config

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jeremyhahn/go-idaas/pkg/idaas"
)

func TestNewCredentialProvider_ClientSecretPost(t *testing.T) {
	t.Setenv("DEMO_SECRET", "sekrit")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if got := r.PostForm.Get("client_secret"); got != "sekrit" {
			t.Errorf("Expected secret from env var, got %s", got)
		}
		w.Write([]byte(`{"access_token":"T1","token_type":"Bearer","expires_in":3600}`))
	}))
	defer server.Close()

	cfg := validConfig()
	cfg.TokenEndpoint = server.URL

	provider, err := NewCredentialProvider(cfg, idaas.WithHTTPClient(http.DefaultClient))
	if err != nil {
		t.Fatalf("NewCredentialProvider failed: %v", err)
	}
	defer provider.Close()

	token, err := provider.GetBearerToken(context.Background())
	if err != nil {
		t.Fatalf("GetBearerToken failed: %v", err)
	}
	if token != "T1" {
		t.Errorf("Expected T1, got %s", token)
	}
}

func TestNewCredentialProvider_PrivateKeyJWT(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("Failed to generate key: %v", err)
	}
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatalf("Failed to marshal key: %v", err)
	}
	t.Setenv("DEMO_PRIVATE_KEY", string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})))

	cfg := validConfig()
	cfg.Authn = &AuthnConfig{
		AuthnMethod:          idaas.AuthnPrivateKeyJWT,
		PrivateKeyEnvVarName: "DEMO_PRIVATE_KEY",
	}

	provider, err := NewCredentialProvider(cfg, idaas.WithHTTPClient(http.DefaultClient))
	if err != nil {
		t.Fatalf("NewCredentialProvider failed: %v", err)
	}
	provider.Close()
}

func TestNewCredentialProvider_PrivateKeyJWTMissingEnvVar(t *testing.T) {
	cfg := validConfig()
	cfg.Authn = &AuthnConfig{AuthnMethod: idaas.AuthnPrivateKeyJWT}

	_, err := NewCredentialProvider(cfg)
	if err == nil {
		t.Fatal("Expected error for missing private key env var name")
	}
	var configErr *idaas.ConfigError
	if !errors.As(err, &configErr) {
		t.Fatalf("Expected *ConfigError, got %T", err)
	}
	if configErr.Code() != idaas.CodePrivateKeyEnvVarNameNotFound {
		t.Errorf("Expected %s, got %s", idaas.CodePrivateKeyEnvVarNameNotFound, configErr.Code())
	}
}

func TestNewCredentialProvider_PKCS7DeployEnvironments(t *testing.T) {
	cfg := validConfig()
	cfg.Authn = &AuthnConfig{
		AuthnMethod:                        idaas.AuthnPKCS7,
		ApplicationFederatedCredentialName: "fed-cred",
		ClientDeployEnvironment:            idaas.DeployAWSEC2,
	}

	provider, err := NewCredentialProvider(cfg, idaas.WithHTTPClient(http.DefaultClient))
	if err != nil {
		t.Fatalf("NewCredentialProvider failed: %v", err)
	}
	defer provider.Close()

	// The AWS EC2 document provider is a declared placeholder.
	_, err = provider.GetCredential(context.Background())
	if err == nil {
		t.Fatal("Expected not-implemented error")
	}
	if !errors.Is(err, idaas.ErrNotImplemented) {
		t.Errorf("Expected ErrNotImplemented in chain, got %v", err)
	}
}

func TestNewCredentialProvider_PKCS7MissingDeployEnvironment(t *testing.T) {
	cfg := validConfig()
	cfg.Authn = &AuthnConfig{
		AuthnMethod:                        idaas.AuthnPKCS7,
		ApplicationFederatedCredentialName: "fed-cred",
	}

	_, err := NewCredentialProvider(cfg)
	if err == nil {
		t.Fatal("Expected error for missing deploy environment")
	}
	var configErr *idaas.ConfigError
	if !errors.As(err, &configErr) {
		t.Fatalf("Expected *ConfigError, got %T", err)
	}
	if configErr.Code() != idaas.CodeClientDeployEnvironmentNotFound {
		t.Errorf("Expected %s, got %s", idaas.CodeClientDeployEnvironmentNotFound, configErr.Code())
	}
}

func TestNewCredentialProvider_UnsupportedDeployEnvironment(t *testing.T) {
	cfg := validConfig()
	cfg.Authn = &AuthnConfig{
		AuthnMethod:                        idaas.AuthnPKCS7,
		ApplicationFederatedCredentialName: "fed-cred",
		ClientDeployEnvironment:            idaas.DeployEnvironment("GOOGLE_VM"),
	}

	_, err := NewCredentialProvider(cfg)
	if err == nil {
		t.Fatal("Expected error for unsupported deploy environment")
	}
	var configErr *idaas.ConfigError
	if !errors.As(err, &configErr) {
		t.Fatalf("Expected *ConfigError, got %T", err)
	}
	if configErr.Code() != idaas.CodeUnsupportedClientDeployEnvironment {
		t.Errorf("Expected %s, got %s", idaas.CodeUnsupportedClientDeployEnvironment, configErr.Code())
	}
}

func TestNewCredentialProvider_OIDCTokenFilePathResolution(t *testing.T) {
	cfg := validConfig()
	cfg.Authn = &AuthnConfig{
		AuthnMethod:                        idaas.AuthnOIDC,
		ApplicationFederatedCredentialName: "fed-cred",
		OidcTokenFilePath:                  "/var/run/secrets/token",
	}

	provider, err := NewCredentialProvider(cfg, idaas.WithHTTPClient(http.DefaultClient))
	if err != nil {
		t.Fatalf("NewCredentialProvider failed: %v", err)
	}
	provider.Close()
}

func TestNewCredentialProvider_OIDCMissingPath(t *testing.T) {
	cfg := validConfig()
	cfg.Authn = &AuthnConfig{
		AuthnMethod:                        idaas.AuthnOIDC,
		ApplicationFederatedCredentialName: "fed-cred",
	}

	if _, err := NewCredentialProvider(cfg); err == nil {
		t.Fatal("Expected error when no OIDC token file path can be resolved")
	}
}
