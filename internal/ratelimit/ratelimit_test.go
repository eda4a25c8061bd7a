package ratelimit

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Unix(1_700_000_000, 0)

// testConfig disables the local throttle so only upstream rate limits cause waits.
var testConfig = Config{SafetyMargin: time.Second}

func newTestTransport(t *testing.T, clock *clockwork.FakeClock, handler http.Handler) (*http.Client, *httptest.Server, *bytes.Buffer) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logs := &bytes.Buffer{}
	logger := slog.New(slog.NewJSONHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	tr := NewTransport("test", testConfig, WithClock(clock), WithLogger(logger))
	return &http.Client{Transport: tr}, server, logs
}

func setRateHeaders(w http.ResponseWriter, limit, remaining int, reset time.Time) {
	w.Header().Set("x-ratelimit-limit", fmt.Sprint(limit))
	w.Header().Set("x-ratelimit-remaining", fmt.Sprint(remaining))
	w.Header().Set("x-ratelimit-reset", fmt.Sprint(reset.Unix()))
	w.Header().Set("x-ratelimit-used", fmt.Sprint(limit-remaining))
}

func blockingGet(client *http.Client, url string) <-chan *http.Response {
	done := make(chan *http.Response, 1)
	go func() {
		resp, err := client.Get(url)
		if err != nil {
			done <- nil
			return
		}
		done <- resp
	}()
	return done
}

func TestState_Update(t *testing.T) {
	t.Run("parses headers regardless of case", func(t *testing.T) {
		var s State
		h := http.Header{}
		h.Set("x-ratelimit-limit", "5000")
		h.Set("X-RATELIMIT-REMAINING", "4999")
		h.Set("X-Ratelimit-Reset", "1700000000")
		h.Set("x-ratelimit-used", "1")

		info, ok := s.Update(h)
		require.True(t, ok)
		assert.Equal(t, 5000, info.Limit)
		assert.Equal(t, 4999, info.Remaining)
		assert.Equal(t, int64(1700000000), info.Reset)
		assert.Equal(t, 1, info.Used)
	})

	t.Run("keeps previous state when headers are missing", func(t *testing.T) {
		var s State
		h := http.Header{}
		h.Set(headerLimit, "60")
		h.Set(headerRemaining, "10")
		h.Set(headerReset, "1700000000")
		s.Update(h)

		info, ok := s.Update(http.Header{})
		require.True(t, ok)
		assert.Equal(t, 10, info.Remaining)
	})

	t.Run("reports unknown before any response", func(t *testing.T) {
		var s State
		_, ok := s.Snapshot()
		assert.False(t, ok)
	})
}

func TestTransport_WaitsForResetBeforeNextRequest(t *testing.T) {
	clock := clockwork.NewFakeClockAt(epoch)
	var requests int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&requests, 1) == 1 {
			setRateHeaders(w, 5000, 0, epoch.Add(5*time.Second))
		} else {
			setRateHeaders(w, 5000, 4999, epoch.Add(time.Hour))
		}
		w.WriteHeader(http.StatusOK)
	})
	client, server, _ := newTestTransport(t, clock, handler)

	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	resp.Body.Close()

	done := blockingGet(client, server.URL)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))

	// 5s until reset plus the 1s margin, minus a millisecond.
	clock.Advance(6*time.Second - time.Millisecond)
	assert.Never(t, func() bool { return atomic.LoadInt32(&requests) > 1 }, 50*time.Millisecond, 5*time.Millisecond)

	clock.Advance(time.Millisecond)
	select {
	case resp := <-done:
		require.NotNil(t, resp)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	case <-time.After(2 * time.Second):
		t.Fatal("request did not resume after reset")
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(&requests))
}

func TestTransport_RetriesOnceOnRateLimitError(t *testing.T) {
	t.Run("403 with zero remaining waits and succeeds", func(t *testing.T) {
		clock := clockwork.NewFakeClockAt(epoch)
		var requests int32
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&requests, 1) == 1 {
				setRateHeaders(w, 5000, 0, epoch.Add(2*time.Second))
				w.WriteHeader(http.StatusForbidden)
				fmt.Fprintln(w, `{"message": "API rate limit exceeded"}`)
				return
			}
			setRateHeaders(w, 5000, 4999, epoch.Add(time.Hour))
			w.WriteHeader(http.StatusOK)
		})
		client, server, _ := newTestTransport(t, clock, handler)

		done := blockingGet(client, server.URL)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		require.NoError(t, clock.BlockUntilContext(ctx, 1))
		assert.Equal(t, int32(1), atomic.LoadInt32(&requests))

		clock.Advance(3 * time.Second)
		resp := <-done
		require.NotNil(t, resp)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, int32(2), atomic.LoadInt32(&requests))
	})

	t.Run("429 with a rate limit message and no headers waits the margin", func(t *testing.T) {
		clock := clockwork.NewFakeClockAt(epoch)
		var requests int32
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&requests, 1) == 1 {
				w.WriteHeader(http.StatusTooManyRequests)
				fmt.Fprintln(w, `{"message": "You have exceeded a secondary Rate Limit"}`)
				return
			}
			w.WriteHeader(http.StatusOK)
		})
		client, server, _ := newTestTransport(t, clock, handler)

		done := blockingGet(client, server.URL)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		require.NoError(t, clock.BlockUntilContext(ctx, 1))

		clock.Advance(time.Second)
		resp := <-done
		require.NotNil(t, resp)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, int32(2), atomic.LoadInt32(&requests))
	})

	t.Run("returns the second failure without another retry", func(t *testing.T) {
		clock := clockwork.NewFakeClockAt(epoch)
		var requests int32
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&requests, 1)
			setRateHeaders(w, 5000, 0, epoch.Add(time.Second))
			w.WriteHeader(http.StatusForbidden)
			fmt.Fprintln(w, `{"message": "API rate limit exceeded"}`)
		})
		client, server, _ := newTestTransport(t, clock, handler)

		done := blockingGet(client, server.URL)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		require.NoError(t, clock.BlockUntilContext(ctx, 1))

		clock.Advance(2 * time.Second)
		resp := <-done
		require.NotNil(t, resp)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		assert.Equal(t, int32(2), atomic.LoadInt32(&requests))
	})
}

func TestTransport_PassesThroughOtherErrors(t *testing.T) {
	t.Run("403 without rate limit evidence", func(t *testing.T) {
		clock := clockwork.NewFakeClockAt(epoch)
		var requests int32
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&requests, 1)
			setRateHeaders(w, 5000, 4000, epoch.Add(time.Hour))
			w.WriteHeader(http.StatusForbidden)
			fmt.Fprint(w, `{"message": "Resource not accessible by integration"}`)
		})
		client, server, _ := newTestTransport(t, clock, handler)

		resp, err := client.Get(server.URL)
		require.NoError(t, err)
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		assert.Contains(t, string(body), "Resource not accessible")
		assert.Equal(t, int32(1), atomic.LoadInt32(&requests))
	})

	t.Run("404", func(t *testing.T) {
		clock := clockwork.NewFakeClockAt(epoch)
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
		client, server, _ := newTestTransport(t, clock, handler)

		resp, err := client.Get(server.URL)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestTransport_WarnsWhenRemainingIsLow(t *testing.T) {
	clock := clockwork.NewFakeClockAt(epoch)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setRateHeaders(w, 100, 5, epoch.Add(time.Hour))
		w.WriteHeader(http.StatusOK)
	})
	client, server, logs := newTestTransport(t, clock, handler)

	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Contains(t, logs.String(), "Rate limit running low")
	info, ok := client.Transport.(*Transport).RateLimit()
	require.True(t, ok)
	assert.Equal(t, 5, info.Remaining)
	assert.Equal(t, 95, info.Used)
}

func TestLimiter_Reservoir(t *testing.T) {
	clock := clockwork.NewFakeClockAt(epoch)
	l := NewLimiter(Config{Reservoir: 2, RefreshInterval: 10 * time.Second}, clock)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		release, err := l.Acquire(ctx)
		require.NoError(t, err)
		release()
	}
	assert.Equal(t, 0, l.Remaining())

	done := make(chan error, 1)
	go func() {
		release, err := l.Acquire(ctx)
		if err == nil {
			release()
		}
		done <- err
	}()

	waitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(waitCtx, 1))

	clock.Advance(10 * time.Second)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("acquire did not resume after refill")
	}
	assert.Equal(t, 1, l.Remaining())
}

func TestLimiter_MinTime(t *testing.T) {
	clock := clockwork.NewFakeClockAt(epoch)
	l := NewLimiter(Config{MinTime: 100 * time.Millisecond}, clock)
	ctx := context.Background()

	release, err := l.Acquire(ctx)
	require.NoError(t, err)
	release()

	done := make(chan error, 1)
	go func() {
		release, err := l.Acquire(ctx)
		if err == nil {
			release()
		}
		done <- err
	}()

	waitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(waitCtx, 1))
	clock.Advance(100 * time.Millisecond)
	require.NoError(t, <-done)
}

func TestLimiter_MaxConcurrent(t *testing.T) {
	l := NewLimiter(Config{MaxConcurrent: 1}, clockwork.NewFakeClockAt(epoch))
	ctx := context.Background()

	first, err := l.Acquire(ctx)
	require.NoError(t, err)

	var acquired int32
	go func() {
		release, err := l.Acquire(ctx)
		if err == nil {
			atomic.StoreInt32(&acquired, 1)
			release()
		}
	}()

	assert.Never(t, func() bool { return atomic.LoadInt32(&acquired) == 1 }, 50*time.Millisecond, 5*time.Millisecond)
	first()
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&acquired) == 1 }, time.Second, 5*time.Millisecond)
}

func TestLimiter_AcquireHonoursCancellation(t *testing.T) {
	clock := clockwork.NewFakeClockAt(epoch)
	l := NewLimiter(Config{Reservoir: 1, RefreshInterval: time.Hour}, clock)

	release, err := l.Acquire(context.Background())
	require.NoError(t, err)
	release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.Acquire(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
