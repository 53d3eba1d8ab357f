package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jeremyhahn/go-idaas/pkg/idaas"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "client-config.json")
	if err := os.WriteFile(path, []byte(contents), 0600); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestLoad_CamelCaseKeys(t *testing.T) {
	path := writeConfigFile(t, `{
		"idaasInstanceId": "idaas-1",
		"clientId": "abc",
		"scope": "pam",
		"issuer": "https://example.idaas.test",
		"tokenEndpoint": "https://example.idaas.test/oauth2/token",
		"authnConfiguration": {
			"identityType": "CLIENT",
			"authnMethod": "CLIENT_SECRET_POST",
			"clientSecretEnvVarName": "DEMO_SECRET"
		},
		"httpConfiguration": {
			"connectTimeout": 6,
			"readTimeout": 20
		}
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.IdaasInstanceID != "idaas-1" {
		t.Errorf("Expected idaas-1, got %s", cfg.IdaasInstanceID)
	}
	if cfg.ClientID != "abc" {
		t.Errorf("Expected abc, got %s", cfg.ClientID)
	}
	if cfg.TokenEndpoint != "https://example.idaas.test/oauth2/token" {
		t.Errorf("Unexpected token endpoint %s", cfg.TokenEndpoint)
	}
	if cfg.Authn.AuthnMethod != idaas.AuthnClientSecretPost {
		t.Errorf("Expected CLIENT_SECRET_POST, got %s", cfg.Authn.AuthnMethod)
	}
	if cfg.Authn.ClientSecretEnvVarName != "DEMO_SECRET" {
		t.Errorf("Expected DEMO_SECRET, got %s", cfg.Authn.ClientSecretEnvVarName)
	}
	if cfg.HTTP.ConnectTimeout != 6*time.Second {
		t.Errorf("Expected 6s connect timeout, got %v", cfg.HTTP.ConnectTimeout)
	}
	if cfg.HTTP.ReadTimeout != 20*time.Second {
		t.Errorf("Expected 20s read timeout, got %v", cfg.HTTP.ReadTimeout)
	}
}

func TestLoad_SnakeCaseKeys(t *testing.T) {
	path := writeConfigFile(t, `{
		"idaas_instance_id": "idaas-1",
		"client_id": "abc",
		"token_endpoint": "https://example.idaas.test/oauth2/token",
		"stale_value_behavior": "ALLOW",
		"async_credential_update_enabled": true,
		"authn_configuration": {
			"authn_method": "OIDC",
			"application_federated_credential_name": "fed-cred",
			"oidc_token_file_path": "/var/run/token"
		}
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Authn.AuthnMethod != idaas.AuthnOIDC {
		t.Errorf("Expected OIDC, got %s", cfg.Authn.AuthnMethod)
	}
	if cfg.Authn.ApplicationFederatedCredentialName != "fed-cred" {
		t.Errorf("Expected fed-cred, got %s", cfg.Authn.ApplicationFederatedCredentialName)
	}
	if cfg.Authn.OidcTokenFilePath != "/var/run/token" {
		t.Errorf("Expected token file path, got %s", cfg.Authn.OidcTokenFilePath)
	}
	if cfg.StaleValueBehavior != "ALLOW" {
		t.Errorf("Expected ALLOW, got %s", cfg.StaleValueBehavior)
	}
	if !cfg.AsyncCredentialUpdate {
		t.Error("Expected async credential update enabled")
	}
	// Defaults applied during validation.
	if cfg.Scope != idaas.DefaultScope {
		t.Errorf("Expected default scope, got %s", cfg.Scope)
	}
}

func TestLoad_PathFromEnvironment(t *testing.T) {
	path := writeConfigFile(t, `{
		"clientId": "abc",
		"tokenEndpoint": "https://example.idaas.test/oauth2/token",
		"authnConfiguration": {"authnMethod": "CLIENT_SECRET_POST"}
	}`)
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ClientID != "abc" {
		t.Errorf("Expected abc, got %s", cfg.ClientID)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if err == nil {
		t.Fatal("Expected error for missing config file")
	}

	var configErr *idaas.ConfigError
	if !errors.As(err, &configErr) {
		t.Fatalf("Expected *ConfigError, got %T", err)
	}
	if configErr.Code() != idaas.CodeLoadConfigFileFailed {
		t.Errorf("Expected %s, got %s", idaas.CodeLoadConfigFileFailed, configErr.Code())
	}
}

func TestLoad_InvalidConfigRejected(t *testing.T) {
	path := writeConfigFile(t, `{
		"tokenEndpoint": "https://example.idaas.test/oauth2/token",
		"authnConfiguration": {"authnMethod": "CLIENT_SECRET_POST"}
	}`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("Expected validation error for missing client id")
	}
	if !errors.Is(err, idaas.ErrConfig) {
		t.Errorf("Expected ErrConfig, got %v", err)
	}
}
