package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProbeThresholds(t *testing.T) {
	failing := true
	p := newProbe("db", time.Second, func(context.Context) error {
		if failing {
			return errors.New("connection refused")
		}
		return nil
	})

	ctx := context.Background()

	// Below the failure threshold the probe stays healthy.
	p.run(ctx)
	p.run(ctx)
	_, failed := p.failure()
	assert.False(t, failed)

	p.run(ctx)
	msg, failed := p.failure()
	require.True(t, failed)
	assert.Equal(t, "connection refused", msg)

	// A single success restores health.
	failing = false
	p.run(ctx)
	_, failed = p.failure()
	assert.False(t, failed)
}

func TestLiveEndpoint(t *testing.T) {
	h := New()
	h.AddLivenessCheck("always-ok", time.Second, func(context.Context) error {
		return nil
	})

	rec := httptest.NewRecorder()
	h.LiveEndpoint(rec, httptest.NewRequest(http.MethodGet, "/livez", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestLiveEndpointUnhealthy(t *testing.T) {
	h := New()
	h.AddLivenessCheck("broken", time.Second, func(context.Context) error {
		return errors.New("boom")
	})

	// Drive the probe past the failure threshold directly.
	p := h.liveness[0]
	for range failureThreshold {
		p.run(context.Background())
	}

	rec := httptest.NewRecorder()
	h.LiveEndpoint(rec, httptest.NewRequest(http.MethodGet, "/livez", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "boom")
}

func TestReadyEndpointGate(t *testing.T) {
	h := New()

	rec := httptest.NewRecorder()
	h.ReadyEndpoint(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	h.SetReady(true)
	rec = httptest.NewRecorder()
	h.ReadyEndpoint(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, h.IsReady())

	h.SetReady(false)
	assert.False(t, h.IsReady())
}

func TestGoroutineCountCheck(t *testing.T) {
	assert.NoError(t, GoroutineCountCheck(1_000_000)(context.Background()))
	assert.Error(t, GoroutineCountCheck(0)(context.Background()))
}
