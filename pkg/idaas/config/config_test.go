package config

import (
	"errors"
	"testing"
	"time"

	"github.com/jeremyhahn/go-idaas/pkg/idaas"
)

func validConfig() *ClientConfig {
	return &ClientConfig{
		IdaasInstanceID: "idaas-1",
		ClientID:        "abc",
		TokenEndpoint:   "https://example.idaas.test/oauth2/token",
		Authn: &AuthnConfig{
			AuthnMethod:            idaas.AuthnClientSecretPost,
			ClientSecretEnvVarName: "DEMO_SECRET",
		},
	}
}

func TestClientConfig_ValidateAppliesDefaults(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	if cfg.Scope != idaas.DefaultScope {
		t.Errorf("Expected default scope, got %s", cfg.Scope)
	}
	if cfg.HTTP.ConnectTimeout != 5*time.Second {
		t.Errorf("Expected 5s connect timeout, got %v", cfg.HTTP.ConnectTimeout)
	}
	if cfg.HTTP.ReadTimeout != 10*time.Second {
		t.Errorf("Expected 10s read timeout, got %v", cfg.HTTP.ReadTimeout)
	}
	if cfg.StaleValueBehavior != "STRICT" {
		t.Errorf("Expected STRICT default, got %s", cfg.StaleValueBehavior)
	}
	if cfg.Authn.IdentityType != idaas.IdentityClient {
		t.Errorf("Expected CLIENT identity, got %s", cfg.Authn.IdentityType)
	}
}

func TestClientConfig_ValidateRequiredFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ClientConfig)
		code   string
	}{
		{"missing client id", func(c *ClientConfig) { c.ClientID = "" }, idaas.CodeClientIDNotFound},
		{"missing token endpoint", func(c *ClientConfig) { c.TokenEndpoint = "" }, idaas.CodeTokenEndpointNotFound},
		{"missing authn", func(c *ClientConfig) { c.Authn = nil }, idaas.CodeAuthnConfigurationNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("Expected validation error")
			}
			var configErr *idaas.ConfigError
			if !errors.As(err, &configErr) {
				t.Fatalf("Expected *ConfigError, got %T", err)
			}
			if configErr.Code() != tc.code {
				t.Errorf("Expected code %s, got %s", tc.code, configErr.Code())
			}
		})
	}
}

func TestClientConfig_ValidateTimeoutBounds(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.ConnectTimeout = time.Second
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for connect timeout under 2s")
	}

	cfg = validConfig()
	cfg.HTTP.ReadTimeout = 2 * time.Minute
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for read timeout over 60s")
	}

	cfg = validConfig()
	cfg.HTTP.ConnectTimeout = 2 * time.Second
	cfg.HTTP.ReadTimeout = 60 * time.Second
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected boundary timeouts to validate, got %v", err)
	}
}

func TestClientConfig_ValidateUnknownAuthnMethod(t *testing.T) {
	cfg := validConfig()
	cfg.Authn.AuthnMethod = "PASSWORD"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Expected error for unknown authn method")
	}
	var configErr *idaas.ConfigError
	if !errors.As(err, &configErr) {
		t.Fatalf("Expected *ConfigError, got %T", err)
	}
	if configErr.Code() != idaas.CodeUnsupportedAuthenticationMethod {
		t.Errorf("Expected %s, got %s", idaas.CodeUnsupportedAuthenticationMethod, configErr.Code())
	}
}
