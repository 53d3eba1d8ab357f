package idaas

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// errResponse is the JSON error body returned by the token endpoint.
type errResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	RequestID        string `json:"request_id"`
}

// requestIDHeader is consulted when the error body carries no request id.
const requestIDHeader = "X-Request-Id"

// buildClientSecretPostForm assembles the form body for CLIENT_SECRET_POST.
func buildClientSecretPostForm(clientID, clientSecret, scope string) url.Values {
	form := url.Values{}
	form.Set(paramGrantType, grantClientCredentials)
	form.Set(paramClientID, clientID)
	form.Set(paramClientSecret, clientSecret)
	form.Set(paramScope, scope)
	return form
}

// buildClientSecretBasicForm assembles the form body for CLIENT_SECRET_BASIC;
// the secret itself travels in the Authorization header.
func buildClientSecretBasicForm(clientID, scope string) url.Values {
	form := url.Values{}
	form.Set(paramGrantType, grantClientCredentials)
	form.Set(paramClientID, clientID)
	form.Set(paramScope, scope)
	return form
}

// basicAuthHeader builds the HTTP Basic Authorization value for the client.
func basicAuthHeader(clientID, clientSecret string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(clientID+":"+clientSecret))
}

// buildClientAssertionForm assembles the form body for CLIENT_SECRET_JWT and
// PRIVATE_KEY_JWT.
func buildClientAssertionForm(clientID, clientAssertion, scope string) url.Values {
	form := url.Values{}
	form.Set(paramGrantType, grantClientCredentials)
	form.Set(paramClientID, clientID)
	form.Set(paramClientAssertionType, AssertionTypeJWTBearer)
	form.Set(paramClientAssertion, clientAssertion)
	form.Set(paramScope, scope)
	return form
}

// buildPKCS7Form assembles the form body for the PKCS7 attested document
// exchange.
func buildPKCS7Form(clientID, federatedCredentialName, attestedDocument, scope string) url.Values {
	form := url.Values{}
	form.Set(paramGrantType, grantClientCredentials)
	form.Set(paramClientID, clientID)
	form.Set(paramFederatedCredentialName, federatedCredentialName)
	form.Set(paramClientAssertionType, AssertionTypePKCS7Bearer)
	form.Set(paramClientAssertion, attestedDocument)
	form.Set(paramScope, scope)
	return form
}

// buildOIDCForm assembles the form body for the OIDC federated credential
// exchange.
func buildOIDCForm(clientID, federatedCredentialName, oidcToken, scope string) url.Values {
	form := url.Values{}
	form.Set(paramGrantType, grantClientCredentials)
	form.Set(paramClientID, clientID)
	form.Set(paramFederatedCredentialName, federatedCredentialName)
	form.Set(paramClientAssertionType, AssertionTypeOIDCBearer)
	form.Set(paramClientAssertion, oidcToken)
	form.Set(paramScope, scope)
	return form
}

// buildPCAForm assembles the form body for the private-CA certificate
// exchange: a private-key assertion plus the certificate and its chain.
func buildPCAForm(clientID, federatedCredentialName, clientX509Certificate, x509CertChains, clientAssertion, scope string) url.Values {
	form := url.Values{}
	form.Set(paramGrantType, grantClientCredentials)
	form.Set(paramClientID, clientID)
	form.Set(paramFederatedCredentialName, federatedCredentialName)
	form.Set(paramClientAssertionType, AssertionTypePrivateCAJWTBearer)
	form.Set(paramClientAssertion, clientAssertion)
	form.Set(paramClientX509Certificate, clientX509Certificate)
	form.Set(paramX509CertChains, x509CertChains)
	form.Set(paramScope, scope)
	return form
}

// buildTokenExchangeForm assembles an RFC 8693 token exchange request.
func buildTokenExchangeForm(audience, subjectToken, scope string) url.Values {
	form := url.Values{}
	form.Set(paramGrantType, grantTokenExchange)
	form.Set(paramAudience, audience)
	form.Set(paramSubjectToken, subjectToken)
	form.Set(paramSubjectTokenType, subjectTokenTypeJWT)
	form.Set(paramRequestedTokenType, requestedTokenTypeAccessToken)
	form.Set(paramScope, scope)
	return form
}

// buildRefreshTokenForm assembles a refresh_token grant request.
func buildRefreshTokenForm(clientID, refreshToken string) url.Values {
	form := url.Values{}
	form.Set(paramGrantType, grantRefreshToken)
	form.Set(paramClientID, clientID)
	form.Set(paramRefreshToken, refreshToken)
	return form
}

// ExchangeToken performs an RFC 8693 token exchange: the subject token is
// swapped for an access token scoped to the given audience.
func ExchangeToken(ctx context.Context, client HTTPClient, tokenEndpoint, audience, subjectToken, scope string) (*TokenResponse, error) {
	if client == nil {
		client = DefaultHTTPClient()
	}
	return postTokenEndpoint(ctx, client, tokenEndpoint,
		buildTokenExchangeForm(audience, subjectToken, scope), nil)
}

// RefreshAccessToken redeems a refresh token for a new access token.
func RefreshAccessToken(ctx context.Context, client HTTPClient, tokenEndpoint, clientID, refreshToken string) (*TokenResponse, error) {
	if refreshToken == "" {
		return nil, &CredentialError{Message: "refresh token is empty"}
	}
	if client == nil {
		client = DefaultHTTPClient()
	}
	return postTokenEndpoint(ctx, client, tokenEndpoint,
		buildRefreshTokenForm(clientID, refreshToken), nil)
}

// postTokenEndpoint sends an assembled form to the token endpoint and maps
// the outcome: 2xx parses into a TokenResponse, 4xx into a ClientError, 5xx
// into a ServerError, and transport failures into an HTTPError.
func postTokenEndpoint(ctx context.Context, client HTTPClient, tokenEndpoint string, form url.Values, header http.Header) (*TokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &HTTPError{ErrorCode: CodeInvalidRequest, Message: "building token request", Err: err}
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", UserAgent())
	for key, values := range header {
		for _, v := range values {
			req.Header.Set(key, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &HTTPError{ErrorCode: CodeReadTimeout, Message: "reading token response", Err: err}
	}

	return parseTokenResponse(resp, body)
}

// parseTokenResponse maps an HTTP response to a TokenResponse or a typed
// error.
func parseTokenResponse(resp *http.Response, body []byte) (*TokenResponse, error) {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var token TokenResponse
		if err := json.Unmarshal(body, &token); err != nil {
			return nil, &EncodingError{Message: "parsing token response", Err: err}
		}
		if token.AccessToken == "" {
			return nil, &ClientError{
				ErrorCode:        CodeAccessTokenNotFound,
				ErrorDescription: "no access token in response",
				StatusCode:       resp.StatusCode,
			}
		}
		if token.ExpiresAt == 0 && token.ExpiresIn > 0 {
			token.ExpiresAt = time.Now().Unix() + token.ExpiresIn
		}
		return &token, nil

	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		errResp, requestID := parseErrResponse(resp, body)
		return nil, &ClientError{
			ErrorCode:        errResp.Error,
			ErrorDescription: errResp.ErrorDescription,
			RequestID:        requestID,
			StatusCode:       resp.StatusCode,
		}

	default:
		errResp, requestID := parseErrResponse(resp, body)
		return nil, &ServerError{
			ErrorCode:        errResp.Error,
			ErrorDescription: errResp.ErrorDescription,
			RequestID:        requestID,
			StatusCode:       resp.StatusCode,
		}
	}
}

// parseErrResponse extracts the OAuth error body, falling back to the raw
// body text and the X-Request-Id header.
func parseErrResponse(resp *http.Response, body []byte) (errResponse, string) {
	var errResp errResponse
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error == "" {
		errResp.Error = resp.Status
		errResp.ErrorDescription = string(body)
	}
	requestID := errResp.RequestID
	if requestID == "" {
		requestID = resp.Header.Get(requestIDHeader)
	}
	return errResp, requestID
}

// classifyTransportError maps a transport failure onto the HTTPError codes:
// connect timeout, read timeout, or connect failure.
func classifyTransportError(err error) *HTTPError {
	var netErr net.Error
	timeout := errors.As(err, &netErr) && netErr.Timeout()

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		if timeout {
			return &HTTPError{ErrorCode: CodeConnectTimeout, Message: "connect timeout", Err: err}
		}
		return &HTTPError{ErrorCode: CodeConnectFailed, Message: "connect failed", Err: err}
	}
	if timeout {
		return &HTTPError{ErrorCode: CodeReadTimeout, Message: "read timeout", Err: err}
	}
	return &HTTPError{ErrorCode: CodeConnectFailed, Message: "http request failed", Err: err}
}
