package httpmiddleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestWrapOrder(t *testing.T) {
	var order []string
	mk := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Wrap(okHandler(), mk("outer"), mk("inner"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, []string{"outer", "inner"}, order)
}

func TestRequestID(t *testing.T) {
	t.Run("generates when absent", func(t *testing.T) {
		var got string
		h := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = RequestIDFromContext(r.Context())
		}))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		require.NotEmpty(t, got)
		assert.Equal(t, got, rec.Header().Get("X-Request-ID"))
	})

	t.Run("reuses well-formed header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", "trace-42")

		rec := httptest.NewRecorder()
		RequestID()(okHandler()).ServeHTTP(rec, req)

		assert.Equal(t, "trace-42", rec.Header().Get("X-Request-ID"))
	})

	t.Run("replaces malformed header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", "bad\x01id")

		rec := httptest.NewRecorder()
		RequestID()(okHandler()).ServeHTTP(rec, req)

		assert.NotEqual(t, "bad\x01id", rec.Header().Get("X-Request-ID"))
		assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	})
}

func TestRecovery(t *testing.T) {
	h := Recovery()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"internal server error"}`, rec.Body.String())
}

func TestRateLimiter(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	newTestLimiter := func(max int, window time.Duration) *limiter {
		l := newLimiter(RateLimitConfig{Max: max, Window: window})
		l.now = func() time.Time { return now }
		return l
	}

	t.Run("enforces cap within window", func(t *testing.T) {
		l := newTestLimiter(2, time.Minute)

		_, _, ok := l.allow("a")
		assert.True(t, ok)
		_, _, ok = l.allow("a")
		assert.True(t, ok)
		_, _, ok = l.allow("a")
		assert.False(t, ok)
	})

	t.Run("keys are independent", func(t *testing.T) {
		l := newTestLimiter(1, time.Minute)

		_, _, ok := l.allow("a")
		assert.True(t, ok)
		_, _, ok = l.allow("b")
		assert.True(t, ok)
	})

	t.Run("quota recovers after the window passes", func(t *testing.T) {
		l := newTestLimiter(1, time.Minute)
		base := now

		_, _, ok := l.allow("a")
		require.True(t, ok)
		_, _, ok = l.allow("a")
		require.False(t, ok)

		l.now = func() time.Time { return base.Add(2 * time.Minute) }
		_, _, ok = l.allow("a")
		assert.True(t, ok)
	})

	t.Run("evicts stale buckets", func(t *testing.T) {
		l := newTestLimiter(1, time.Minute)

		l.allow("a")
		require.Len(t, l.buckets, 1)

		l.evictStale(now.Add(3 * time.Minute))
		assert.Empty(t, l.buckets)
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := RateLimit(ctx, RateLimitConfig{
		Max:    1,
		Window: time.Minute,
		KeyFunc: func(*http.Request) string {
			return "fixed"
		},
	})(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Limit"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"success":false,"error":"rate limit exceeded"}`, rec.Body.String())
}
