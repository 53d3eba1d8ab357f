package idaas

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/jeremyhahn/go-idaas/pkg/cache"
)

// StaticPkcs7AttestedDocumentProvider returns a pre-configured document.
type StaticPkcs7AttestedDocumentProvider struct {
	AttestedDocument string
}

// GetAttestedDocument returns the configured document.
func (p *StaticPkcs7AttestedDocumentProvider) GetAttestedDocument(ctx context.Context) (string, error) {
	return p.AttestedDocument, nil
}

// Alibaba Cloud ECS metadata service endpoints (IMDSv2 style).
const (
	ecsMetaServerTokenURL         = "http://100.100.100.200/latest/api/token"
	ecsMetaServerPKCS7URLTemplate = "http://100.100.100.200/latest/dynamic/instance-identity/pkcs7?audience=%s"

	ecsMetadataTokenTTLHeader = "X-aliyun-ecs-metadata-token-ttl-seconds"
	ecsMetadataTokenHeader    = "X-aliyun-ecs-metadata-token"
)

// Bounds on the attested document validity window, in seconds.
const (
	minDocumentEffectiveSeconds = 1200
	maxDocumentEffectiveSeconds = 1314000
)

// AlibabaCloudEcsAttestedDocumentProvider fetches PKCS7-signed instance
// identity documents from the ECS metadata service. Documents are cached in
// a CachedResultSupplier using the standard stale/prefetch offsets for the
// configured validity window (one hour by default).
type AlibabaCloudEcsAttestedDocumentProvider struct {
	idaasInstanceID          string
	metaServerURLTemplate    string
	documentEffectiveSeconds int64

	httpClient HTTPClient
	supplier   *cache.CachedResultSupplier[string]
	now        func() time.Time
}

// EcsProviderOption configures the ECS attested document provider.
type EcsProviderOption func(*AlibabaCloudEcsAttestedDocumentProvider)

// WithEcsMetaServerURLTemplate overrides the metadata service URL template.
func WithEcsMetaServerURLTemplate(template string) EcsProviderOption {
	return func(p *AlibabaCloudEcsAttestedDocumentProvider) { p.metaServerURLTemplate = template }
}

// WithEcsDocumentEffectiveSeconds overrides the document validity window.
func WithEcsDocumentEffectiveSeconds(seconds int64) EcsProviderOption {
	return func(p *AlibabaCloudEcsAttestedDocumentProvider) { p.documentEffectiveSeconds = seconds }
}

// WithEcsHTTPClient overrides the HTTP client used for metadata requests.
func WithEcsHTTPClient(client HTTPClient) EcsProviderOption {
	return func(p *AlibabaCloudEcsAttestedDocumentProvider) { p.httpClient = client }
}

// WithEcsClock overrides the clock source, pluggable for testing.
func WithEcsClock(now func() time.Time) EcsProviderOption {
	return func(p *AlibabaCloudEcsAttestedDocumentProvider) { p.now = now }
}

// NewAlibabaCloudEcsAttestedDocumentProvider creates a provider for the
// given IDaaS instance id.
func NewAlibabaCloudEcsAttestedDocumentProvider(idaasInstanceID string, opts ...EcsProviderOption) (*AlibabaCloudEcsAttestedDocumentProvider, error) {
	if idaasInstanceID == "" {
		return nil, &ConfigError{ErrorCode: CodeInstanceIDNotFound, Message: "idaas instance id cannot be empty"}
	}

	p := &AlibabaCloudEcsAttestedDocumentProvider{
		idaasInstanceID:          idaasInstanceID,
		metaServerURLTemplate:    ecsMetaServerPKCS7URLTemplate,
		documentEffectiveSeconds: 3600,
		now:                      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.documentEffectiveSeconds <= minDocumentEffectiveSeconds || p.documentEffectiveSeconds > maxDocumentEffectiveSeconds {
		return nil, &ConfigError{
			ErrorCode: CodeInvalidRequest,
			Message: fmt.Sprintf("document effective seconds must be greater than %d and at most %d",
				minDocumentEffectiveSeconds, maxDocumentEffectiveSeconds),
		}
	}
	if p.httpClient == nil {
		p.httpClient = DefaultHTTPClient()
	}

	p.supplier = cache.NewCachedResultSupplier(p.refreshDocument,
		cache.WithStaleValueBehavior[string](cache.StaleValueStrict),
		cache.WithClock[string](p.now),
	)
	return p, nil
}

// GetAttestedDocument returns a cached document, refreshing it from the
// metadata service when needed.
func (p *AlibabaCloudEcsAttestedDocumentProvider) GetAttestedDocument(ctx context.Context) (string, error) {
	return p.supplier.Get(ctx)
}

// refreshDocument fetches a session token and then the PKCS7 document,
// retrying once with a fresh session token when the metadata service answers
// 401.
func (p *AlibabaCloudEcsAttestedDocumentProvider) refreshDocument(ctx context.Context) (cache.RefreshResult[string], error) {
	signingTime := p.now().Unix()

	audience, err := json.Marshal(map[string]interface{}{
		"aud":         p.idaasInstanceID,
		"signingTime": signingTime,
	})
	if err != nil {
		return cache.RefreshResult[string]{}, &EncodingError{Message: "encoding audience parameter", Err: err}
	}
	docURL := fmt.Sprintf(p.metaServerURLTemplate, url.QueryEscape(string(audience)))

	document, err := p.fetchDocument(ctx, docURL)
	if err != nil {
		return cache.RefreshResult[string]{}, err
	}

	expiresAt := time.Unix(signingTime+p.documentEffectiveSeconds, 0).UTC()
	staleTime := expiresAt.Add(-time.Duration(p.documentEffectiveSeconds/5) * time.Second)
	prefetchTime := expiresAt.Add(-time.Duration(p.documentEffectiveSeconds/3) * time.Second)

	return cache.NewRefreshResultBuilder(document).
		StaleTime(staleTime).
		PrefetchTime(prefetchTime).
		NotAfter(expiresAt).
		Build()
}

func (p *AlibabaCloudEcsAttestedDocumentProvider) fetchDocument(ctx context.Context, docURL string) (string, error) {
	for attempt := 0; ; attempt++ {
		sessionToken, err := p.fetchSessionToken(ctx)
		if err != nil {
			return "", err
		}

		document, status, err := p.fetchWithToken(ctx, docURL, sessionToken)
		if err != nil {
			return "", err
		}
		if status == http.StatusUnauthorized && attempt == 0 {
			// Session token rejected; retry once with a fresh one.
			continue
		}
		if status < 200 || status >= 300 {
			return "", &HTTPError{ErrorCode: CodeConnectFailed,
				Message: fmt.Sprintf("metadata service returned status %d", status)}
		}
		return document, nil
	}
}

// fetchSessionToken performs the IMDSv2-style PUT for a session token.
func (p *AlibabaCloudEcsAttestedDocumentProvider) fetchSessionToken(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, ecsMetaServerTokenURL, nil)
	if err != nil {
		return "", &HTTPError{ErrorCode: CodeInvalidRequest, Message: "building metadata token request", Err: err}
	}
	req.Header.Set(ecsMetadataTokenTTLHeader, fmt.Sprintf("%d", p.documentEffectiveSeconds))
	req.Header.Set("User-Agent", UserAgent())

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", classifyTransportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &HTTPError{ErrorCode: CodeReadTimeout, Message: "reading metadata token response", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &HTTPError{ErrorCode: CodeConnectFailed,
			Message: fmt.Sprintf("metadata token request returned status %d", resp.StatusCode)}
	}
	return string(body), nil
}

func (p *AlibabaCloudEcsAttestedDocumentProvider) fetchWithToken(ctx context.Context, docURL, sessionToken string) (string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, docURL, nil)
	if err != nil {
		return "", 0, &HTTPError{ErrorCode: CodeInvalidRequest, Message: "building metadata document request", Err: err}
	}
	req.Header.Set(ecsMetadataTokenHeader, sessionToken)
	req.Header.Set("User-Agent", UserAgent())

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", 0, classifyTransportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, &HTTPError{ErrorCode: CodeReadTimeout, Message: "reading metadata document response", Err: err}
	}
	return string(body), resp.StatusCode, nil
}

// AwsEc2Pkcs7AttestedDocumentProvider is a declared placeholder: the AWS EC2
// document exchange protocol is not implemented.
type AwsEc2Pkcs7AttestedDocumentProvider struct{}

// GetAttestedDocument always fails with a not-implemented error.
func (p *AwsEc2Pkcs7AttestedDocumentProvider) GetAttestedDocument(ctx context.Context) (string, error) {
	return "", &NotImplementedError{Message: "AWS EC2 PKCS7 attested document provider is not implemented"}
}
