package eks

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	log "github.com/sirupsen/logrus"
)

const (
	tokenPrefix = "k8s-aws-v1."

	// The presigned URL is honoured by the EKS authenticator for 15 minutes.
	tokenExpiry      = 15 * time.Minute
	presignURLExpiry = "60"

	tokenRefreshBuffer = 1 * time.Minute

	clusterIDHeader = "x-k8s-aws-id"
)

type generateFunc func(ctx context.Context) (token string, expiry time.Time, err error)

// TokenProvider produces and caches EKS bearer tokens. Safe for concurrent use;
// client-go calls it from every request goroutine.
type TokenProvider struct {
	mu       sync.Mutex
	token    string
	expiry   time.Time
	generate generateFunc
}

func NewTokenProvider(cfg aws.Config, clusterName string) *TokenProvider {
	return &TokenProvider{
		generate: func(ctx context.Context) (string, time.Time, error) {
			return generateToken(ctx, cfg, clusterName)
		},
	}
}

// GetToken returns the cached token unless it is within tokenRefreshBuffer of
// expiring.
func (tp *TokenProvider) GetToken(ctx context.Context) (string, error) {
	tp.mu.Lock()
	defer tp.mu.Unlock()

	if tp.token != "" && time.Until(tp.expiry) > tokenRefreshBuffer {
		return tp.token, nil
	}

	token, expiry, err := tp.generate(ctx)
	if err != nil {
		return "", fmt.Errorf("generating EKS token: %w", err)
	}
	log.WithField("expires", expiry.Format(time.RFC3339)).Debug("refreshed EKS bearer token")

	tp.token = token
	tp.expiry = expiry
	return tp.token, nil
}

// generateToken is the equivalent of `aws eks get-token`: a presigned STS
// GetCallerIdentity URL, base64url-encoded behind the k8s-aws-v1. prefix.
//
// The cluster header must be part of the signature, which smithyhttp.AddHeaderValue
// does not achieve (aws-sdk-go-v2#1922), hence the presigner wrapper.
func generateToken(ctx context.Context, cfg aws.Config, clusterName string) (string, time.Time, error) {
	presignClient := sts.NewPresignClient(sts.NewFromConfig(cfg))

	headers := map[string]string{
		clusterIDHeader: clusterName,
		"X-Amz-Expires": presignURLExpiry,
	}

	presigned, err := presignClient.PresignGetCallerIdentity(ctx, &sts.GetCallerIdentityInput{},
		func(po *sts.PresignOptions) {
			po.Presigner = &eksPresigner{base: po.Presigner, headers: headers}
		},
	)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("presigning GetCallerIdentity: %w", err)
	}

	token := tokenPrefix + base64.RawURLEncoding.EncodeToString([]byte(presigned.URL))
	return token, time.Now().Add(tokenExpiry), nil
}

type eksPresigner struct {
	base    sts.HTTPPresignerV4
	headers map[string]string
}

func (p *eksPresigner) PresignHTTP(
	ctx context.Context, credentials aws.Credentials, r *http.Request,
	payloadHash string, service string, region string, signingTime time.Time,
	optFns ...func(*v4.SignerOptions),
) (string, http.Header, error) {
	for k, v := range p.headers {
		r.Header.Set(k, v)
	}
	return p.base.PresignHTTP(ctx, credentials, r, payloadHash, service, region, signingTime, optFns...)
}

// WrapTransport matches rest.Config.WrapTransport.
func (tp *TokenProvider) WrapTransport(rt http.RoundTripper) http.RoundTripper {
	return &tokenTransport{base: rt, provider: tp}
}

type tokenTransport struct {
	base     http.RoundTripper
	provider *TokenProvider
}

func (t *tokenTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token, err := t.provider.GetToken(req.Context())
	if err != nil {
		return nil, fmt.Errorf("getting EKS bearer token: %w", err)
	}

	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+token)

	return t.base.RoundTrip(req)
}
