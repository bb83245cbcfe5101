package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func passing() CheckFunc {
	return func(context.Context) error { return nil }
}

func failing(msg string) CheckFunc {
	return func(context.Context) error { return errors.New(msg) }
}

func get(t *testing.T, handler http.HandlerFunc, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest(http.MethodGet, path, nil))
	require.Equal(t, "application/json", w.Header().Get("Content-Type"))
	return w
}

func TestLiveEndpoint(t *testing.T) {
	tests := []struct {
		name     string
		check    CheckFunc
		runs     int
		wantCode int
		wantBody string
	}{
		{
			name:     "passing",
			check:    passing(),
			runs:     1,
			wantCode: http.StatusOK,
			wantBody: `{"status":"ok"}`,
		},
		{
			name:     "below failure threshold",
			check:    failing("temporary"),
			runs:     2,
			wantCode: http.StatusOK,
			wantBody: `{"status":"ok"}`,
		},
		{
			name:     "at failure threshold",
			check:    failing("connection refused"),
			runs:     3,
			wantCode: http.StatusServiceUnavailable,
			wantBody: `{"status":"unhealthy","checks":{"db":"connection refused"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New()
			h.Register(Liveness, "db", tt.check)
			for range tt.runs {
				h.probes[0].run(context.Background())
			}

			w := get(t, h.LiveEndpoint, "/livez")
			assert.Equal(t, tt.wantCode, w.Code)
			assert.JSONEq(t, tt.wantBody, w.Body.String())
		})
	}
}

func TestReadyEndpoint_Gate(t *testing.T) {
	h := New()
	h.Register(Readiness, "postgres", passing())

	w := get(t, h.ReadyEndpoint, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"unhealthy","checks":{"_readiness":"service is not ready"}}`, w.Body.String())
	assert.False(t, h.IsReady())

	h.SetReady(true)
	w = get(t, h.ReadyEndpoint, "/readyz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, h.IsReady())
}

func TestReadyEndpoint_IgnoresLiveness(t *testing.T) {
	h := New()
	h.SetReady(true)
	h.Register(Liveness, "goroutines", failing("too many"), WithThresholds(1, 1))
	h.probes[0].run(context.Background())

	assert.Equal(t, http.StatusOK, get(t, h.ReadyEndpoint, "/readyz").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, h.LiveEndpoint, "/livez").Code)
}

func TestProbe_Recovers(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	check := func(context.Context) error {
		if fail.Load() {
			return errors.New("down")
		}
		return nil
	}

	h := New()
	h.SetReady(true)
	h.Register(Readiness, "postgres", check, WithThresholds(1, 2))
	p := h.probes[0]

	p.run(context.Background())
	assert.False(t, h.IsReady())

	fail.Store(false)
	p.run(context.Background())
	assert.False(t, h.IsReady(), "one success is below the success threshold")
	p.run(context.Background())
	assert.True(t, h.IsReady())
}

func TestProbe_Timeout(t *testing.T) {
	h := New()
	h.Register(Liveness, "slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, WithTimeout(10*time.Millisecond), WithThresholds(1, 1))

	h.probes[0].run(context.Background())

	w := get(t, h.LiveEndpoint, "/livez")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "deadline exceeded")
}

func TestRun(t *testing.T) {
	var calls atomic.Int32
	h := New()
	h.Register(Readiness, "counter", func(context.Context) error {
		calls.Add(1)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx, 5*time.Millisecond) }()

	require.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestPingCheck(t *testing.T) {
	ok := PingCheck(pingerFunc(func(context.Context) error { return nil }))
	require.NoError(t, ok(context.Background()))

	bad := PingCheck(pingerFunc(func(context.Context) error { return errors.New("refused") }))
	err := bad(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ping: refused")
}

func TestGoroutineCountCheck(t *testing.T) {
	require.NoError(t, GoroutineCountCheck(1_000_000)(context.Background()))
	require.Error(t, GoroutineCountCheck(0)(context.Background()))
}
