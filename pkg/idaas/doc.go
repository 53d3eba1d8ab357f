// Package idaas implements a machine-to-machine credential client for an
// Identity-as-a-Service platform.
//
// A MachineCredentialProvider acquires an OAuth 2.0 access token on behalf
// of a non-human principal using one of the client authentication methods
// defined by OAuth 2.0 / OIDC, and keeps it continuously valid through the
// time-based cache in package cache: fresh reads cost a pointer load, reads
// in the prefetch window trigger a refresh while still being served the
// current token (on the first such caller's stack by default, on a
// background worker with WithAsyncCredentialUpdate), and only reads past the
// stale point wait for the token endpoint.
//
// # Authentication Methods
//
//   - CLIENT_SECRET_BASIC: client secret in an HTTP Basic header
//   - CLIENT_SECRET_POST: client secret in the form body
//   - CLIENT_SECRET_JWT: HS256 client assertion derived from the secret
//   - PRIVATE_KEY_JWT: RS256/ES256 client assertion signed by a private key
//   - PKCS7: cloud-platform-signed attested document exchange
//   - OIDC: federated OIDC token exchange
//   - PCA: private-key assertion plus a private-CA certificate chain
//
// Secrets are resolved indirectly through environment variables at refresh
// time, never embedded in configuration.
//
// Example:
//
//	provider, err := idaas.NewMachineCredentialProvider(
//	    "my-client", idaas.DefaultScope, "https://example.idaas.test/oauth2/token",
//	    idaas.WithAuthnMethod(idaas.AuthnClientSecretPost),
//	    idaas.WithClientSecretSupplier(idaas.EnvClientSecretSupplier("MY_APP_SECRET")),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	token, err := provider.GetBearerToken(ctx)
//
// The provider also implements oauth2.TokenSource.
package idaas
