package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jeremyhahn/go-idaas/pkg/idaas"
)

// Configuration file discovery.
const (
	// ConfigPathEnvVar names the env var overriding the config file path.
	ConfigPathEnvVar = "CLOUD_IDAAS_CONFIG_PATH"

	// DefaultConfigPath is the conventional config file location.
	DefaultConfigPath = "~/.cloud_idaas/client-config.json"
)

// Load reads the client configuration from the given path. An empty path
// falls back to CLOUD_IDAAS_CONFIG_PATH and then to the default location.
// Keys may be camelCase or snake_case; both normalize to the same field.
func Load(path string) (*ClientConfig, error) {
	if path == "" {
		path = os.Getenv(ConfigPathEnvVar)
	}
	if path == "" {
		path = DefaultConfigPath
	}
	path = expandHome(path)

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, &idaas.ConfigError{ErrorCode: idaas.CodeLoadConfigFileFailed,
			Message: "reading config file " + path + ": " + err.Error()}
	}

	cfg, err := fromSettings(v.AllSettings())
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// expandHome resolves a leading ~/ against the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

// normalizeKey lowercases a key and strips underscores, so camelCase and
// snake_case spellings collide onto the same lookup key. Viper has already
// lowercased camelCase keys by the time they reach AllSettings.
func normalizeKey(key string) string {
	return strings.ReplaceAll(strings.ToLower(key), "_", "")
}

// settingsMap wraps a decoded settings map with normalized-key lookups.
type settingsMap map[string]interface{}

func normalizeSettings(raw map[string]interface{}) settingsMap {
	normalized := make(settingsMap, len(raw))
	for key, value := range raw {
		normalized[normalizeKey(key)] = value
	}
	return normalized
}

func (s settingsMap) str(key string) string {
	if v, ok := s[normalizeKey(key)].(string); ok {
		return v
	}
	return ""
}

func (s settingsMap) boolean(key string) bool {
	if v, ok := s[normalizeKey(key)].(bool); ok {
		return v
	}
	return false
}

func (s settingsMap) seconds(key string) time.Duration {
	switch v := s[normalizeKey(key)].(type) {
	case int:
		return time.Duration(v) * time.Second
	case int64:
		return time.Duration(v) * time.Second
	case float64:
		return time.Duration(v * float64(time.Second))
	default:
		return 0
	}
}

func (s settingsMap) section(key string) (settingsMap, bool) {
	if v, ok := s[normalizeKey(key)].(map[string]interface{}); ok {
		return normalizeSettings(v), true
	}
	return nil, false
}

// fromSettings builds a typed ClientConfig from a decoded settings map.
func fromSettings(raw map[string]interface{}) (*ClientConfig, error) {
	settings := normalizeSettings(raw)

	cfg := &ClientConfig{
		IdaasInstanceID:       settings.str("idaas_instance_id"),
		ClientID:              settings.str("client_id"),
		Scope:                 settings.str("scope"),
		Issuer:                settings.str("issuer"),
		TokenEndpoint:         settings.str("token_endpoint"),
		AsyncCredentialUpdate: settings.boolean("async_credential_update_enabled"),
		StaleValueBehavior:    settings.str("stale_value_behavior"),
	}

	if authn, ok := settings.section("authn_configuration"); ok {
		method, err := idaas.ParseAuthnMethod(valueOr(authn.str("authn_method"), string(idaas.AuthnNone)))
		if err != nil {
			return nil, err
		}
		cfg.Authn = &AuthnConfig{
			IdentityType:                       idaas.IdentityType(valueOr(authn.str("identity_type"), string(idaas.IdentityClient))),
			AuthnMethod:                        method,
			ClientSecretEnvVarName:             authn.str("client_secret_env_var_name"),
			PrivateKeyEnvVarName:               authn.str("private_key_env_var_name"),
			ApplicationFederatedCredentialName: authn.str("application_federated_credential_name"),
			ClientDeployEnvironment:            idaas.DeployEnvironment(authn.str("client_deploy_environment")),
			OidcTokenFilePath:                  authn.str("oidc_token_file_path"),
			OidcTokenFilePathEnvVarName:        authn.str("oidc_token_file_path_env_var_name"),
			ClientX509Certificate:              authn.str("client_x509_certificate"),
			X509CertChains:                     authn.str("x509_cert_chains"),
		}
	}

	if httpSection, ok := settings.section("http_configuration"); ok {
		cfg.HTTP = HTTPConfig{
			ConnectTimeout:     httpSection.seconds("connect_timeout"),
			ReadTimeout:        httpSection.seconds("read_timeout"),
			InsecureSkipVerify: httpSection.boolean("insecure_skip_verify"),
		}
	}

	return cfg, nil
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
