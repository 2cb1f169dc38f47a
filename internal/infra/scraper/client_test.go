package scraper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"crashscraper/internal/domain/entity"
	"crashscraper/internal/resilience/retry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Get(t *testing.T) {
	t.Run("sends headers and returns body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "crashscraper-test", r.Header.Get("User-Agent"))
			assert.Contains(t, r.Header.Get("Accept-Language"), "es")
			_, _ = w.Write([]byte("<html>ok</html>"))
		}))
		defer srv.Close()

		page, err := testClient().Get(context.Background(), srv.URL+"/nota", KindDetail)
		require.NoError(t, err)
		assert.Equal(t, "<html>ok</html>", string(page.Body))
		assert.Equal(t, "/nota", page.URL.Path)
	})

	t.Run("retries 5xx then succeeds", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_, _ = w.Write([]byte("ok"))
		}))
		defer srv.Close()

		page, err := testClient().Get(context.Background(), srv.URL, KindListing)
		require.NoError(t, err)
		assert.Equal(t, "ok", string(page.Body))
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("429 carries Retry-After", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.Header().Set("Retry-After", "120")
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()

		c := NewClient("throttled", ClientOptions{Retry: retry.Config{MaxAttempts: 1}})
		_, err := c.Get(context.Background(), srv.URL, KindListing)

		var netErr *entity.NetworkError
		require.True(t, errors.As(err, &netErr))
		assert.Equal(t, http.StatusTooManyRequests, netErr.StatusCode)
		assert.Equal(t, 120*time.Second, netErr.RetryAfter)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("404 is not retried", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			http.NotFound(w, r)
		}))
		defer srv.Close()

		_, err := testClient().Get(context.Background(), srv.URL, KindDetail)
		require.Error(t, err)

		var netErr *entity.NetworkError
		require.True(t, errors.As(err, &netErr))
		assert.Equal(t, http.StatusNotFound, netErr.StatusCode)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("connection failure is a network error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := srv.URL
		srv.Close()

		_, err := testClient().Get(context.Background(), url, KindListing)
		var netErr *entity.NetworkError
		require.True(t, errors.As(err, &netErr))
	})

	t.Run("cancelled context is returned as is", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		defer srv.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := testClient().Get(ctx, srv.URL, KindListing)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
