package eks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countingProvider(calls *atomic.Int32, ttl time.Duration) *TokenProvider {
	return &TokenProvider{
		generate: func(ctx context.Context) (string, time.Time, error) {
			n := calls.Add(1)
			return fmt.Sprintf("%stoken-%d", tokenPrefix, n), time.Now().Add(ttl), nil
		},
	}
}

func TestTokenProvider_ReusesFreshToken(t *testing.T) {
	var calls atomic.Int32
	tp := countingProvider(&calls, tokenExpiry)

	first, err := tp.GetToken(context.Background())
	require.NoError(t, err)
	second, err := tp.GetToken(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), calls.Load())
	assert.True(t, strings.HasPrefix(first, tokenPrefix))
}

func TestTokenProvider_RefreshesInsideBuffer(t *testing.T) {
	var calls atomic.Int32
	tp := countingProvider(&calls, tokenExpiry)

	first, err := tp.GetToken(context.Background())
	require.NoError(t, err)

	tp.mu.Lock()
	tp.expiry = time.Now().Add(tokenRefreshBuffer / 2)
	tp.mu.Unlock()

	second, err := tp.GetToken(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Equal(t, int32(2), calls.Load())
}

func TestTokenProvider_ConcurrentCallersShareToken(t *testing.T) {
	var calls atomic.Int32
	tp := countingProvider(&calls, tokenExpiry)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := tp.GetToken(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestTokenProvider_PropagatesGenerateError(t *testing.T) {
	tp := &TokenProvider{
		generate: func(ctx context.Context) (string, time.Time, error) {
			return "", time.Time{}, errors.New("sts unavailable")
		},
	}

	_, err := tp.GetToken(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sts unavailable")
}

func TestTokenTransport_SetsBearerOnClone(t *testing.T) {
	var calls atomic.Int32
	tp := countingProvider(&calls, tokenExpiry)

	var seen *http.Request
	rt := tp.WrapTransport(roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		seen = req
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(""))}, nil
	}))

	req, err := http.NewRequest(http.MethodGet, "https://example.eks.amazonaws.com/version", nil)
	require.NoError(t, err)

	resp, err := rt.RoundTrip(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.NotNil(t, seen)
	assert.Equal(t, "Bearer "+tokenPrefix+"token-1", seen.Header.Get("Authorization"))
	assert.Empty(t, req.Header.Get("Authorization"))
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}
