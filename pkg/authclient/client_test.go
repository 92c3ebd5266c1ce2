package authclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI mimics the cookie behaviour of the auth endpoints.
type fakeAPI struct {
	mu        sync.Mutex
	current   string
	gate      chan struct{}
	refreshOK atomic.Bool

	refreshes atomic.Int32
	orders    atomic.Int32
	unauth    atomic.Int32
	bodies    []string
}

func (f *fakeAPI) expire() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = f.current + "-stale"
}

func unauthorized(w http.ResponseWriter, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": "nope", "code": code})
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.current = "access-1"
		f.mu.Unlock()
		http.SetCookie(w, &http.Cookie{Name: "accessToken", Value: "access-1", Path: "/"})
		http.SetCookie(w, &http.Cookie{Name: "refreshToken", Value: "refresh-1", Path: "/"})
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": "Login successful",
			"data":    map[string]any{"user": map[string]string{"id": "u1", "email": "a@b.com"}},
		})
	})
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		n := f.refreshes.Add(1)
		f.mu.Lock()
		gate := f.gate
		f.mu.Unlock()
		if gate != nil {
			<-gate
		}
		c, err := r.Cookie("refreshToken")
		if !f.refreshOK.Load() || err != nil || c.Value != "refresh-1" {
			unauthorized(w, "AUTH_005")
			return
		}
		next := fmt.Sprintf("access-%d", n+1)
		f.mu.Lock()
		f.current = next
		f.mu.Unlock()
		http.SetCookie(w, &http.Cookie{Name: "accessToken", Value: next, Path: "/"})
		_ = json.NewEncoder(w).Encode(map[string]any{"message": "Token refreshed successfully"})
	})
	mux.HandleFunc("/orders", func(w http.ResponseWriter, r *http.Request) {
		f.orders.Add(1)
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.bodies = append(f.bodies, string(body))
		current := f.current
		f.mu.Unlock()
		c, err := r.Cookie("accessToken")
		if err != nil || c.Value != current {
			f.unauth.Add(1)
			unauthorized(w, "AUTH_002")
			return
		}
		_, _ = w.Write([]byte(`{"message":"ok"}`))
	})
	mux.HandleFunc("/always-401", func(w http.ResponseWriter, r *http.Request) {
		f.orders.Add(1)
		unauthorized(w, "AUTH_007")
	})
	return mux
}

func setup(t *testing.T) (*Client, *fakeAPI) {
	t.Helper()
	api := &fakeAPI{}
	api.refreshOK.Store(true)
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)
	c, err := New(srv.URL)
	require.NoError(t, err)
	u, err := c.Login(context.Background(), "a@b.com", "pw")
	require.NoError(t, err)
	require.Equal(t, "u1", u.ID)
	return c, api
}

func get(t *testing.T, c *Client, path string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, c.URL(path), nil)
	require.NoError(t, err)
	resp, err := c.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestExpiredAccessRefreshesOnceAndReplays(t *testing.T) {
	c, api := setup(t)
	api.expire()

	resp := get(t, c, "/orders")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, api.refreshes.Load())
	assert.EqualValues(t, 2, api.orders.Load())

	// The renewed cookie is reused without further refreshes.
	resp = get(t, c, "/orders")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, api.refreshes.Load())
}

func TestValidAccessDoesNotRefresh(t *testing.T) {
	c, api := setup(t)
	resp := get(t, c, "/orders")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Zero(t, api.refreshes.Load())
}

func TestRefreshFailureReturnsOriginalResponse(t *testing.T) {
	c, api := setup(t)
	api.refreshOK.Store(false)
	api.expire()

	resp := get(t, c, "/orders")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "AUTH_002", body["code"])
	assert.EqualValues(t, 1, api.refreshes.Load())
	assert.EqualValues(t, 1, api.orders.Load())
}

func TestReplayFailureSurfaces(t *testing.T) {
	c, api := setup(t)
	resp := get(t, c, "/always-401")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.EqualValues(t, 1, api.refreshes.Load())
	assert.EqualValues(t, 2, api.orders.Load())
}

func TestRefreshCallNeverTriggersRefresh(t *testing.T) {
	c, api := setup(t)
	api.refreshOK.Store(false)

	err := c.Refresh(context.Background())
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnauthorized, se.Status)
	assert.Equal(t, "AUTH_005", se.Code)
	assert.EqualValues(t, 1, api.refreshes.Load())

	req, err := http.NewRequest(http.MethodPost, c.URL(DefaultRefreshPath), nil)
	require.NoError(t, err)
	resp, err := c.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.EqualValues(t, 2, api.refreshes.Load())
}

func TestReplayResendsBody(t *testing.T) {
	c, api := setup(t)
	api.expire()

	req, err := http.NewRequest(http.MethodPost, c.URL("/orders"), io.NopCloser(strings.NewReader(`{"sku":"x"}`)))
	require.NoError(t, err)
	resp, err := c.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	api.mu.Lock()
	defer api.mu.Unlock()
	require.Len(t, api.bodies, 2)
	assert.Equal(t, api.bodies[0], api.bodies[1])
}

func TestRetryPolicy(t *testing.T) {
	p := RetryPolicy{RefreshPath: DefaultRefreshPath}
	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	unauth := &http.Response{StatusCode: http.StatusUnauthorized}

	assert.True(t, p.ShouldRefresh(req, unauth))
	assert.False(t, p.ShouldRefresh(req, &http.Response{StatusCode: http.StatusForbidden}))
	assert.False(t, p.ShouldRefresh(httptest.NewRequest(http.MethodPost, "/auth/refresh", nil), unauth))

	retried := req.WithContext(p.markRetried(req.Context()))
	assert.True(t, p.Retried(retried.Context()))
	assert.False(t, p.ShouldRefresh(retried, unauth))
}

func TestConcurrentUnauthorizedShareOneRefresh(t *testing.T) {
	c, api := setup(t)
	gate := make(chan struct{})
	api.mu.Lock()
	api.gate = gate
	api.mu.Unlock()
	api.expire()

	const n = 5
	var wg sync.WaitGroup
	codes := make([]int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req, _ := http.NewRequest(http.MethodGet, c.URL("/orders"), nil)
			resp, err := c.Do(req)
			if err != nil {
				return
			}
			codes[i] = resp.StatusCode
			_ = resp.Body.Close()
		}(i)
	}

	require.Eventually(t, func() bool { return api.unauth.Load() == n }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(gate)
	wg.Wait()

	assert.EqualValues(t, 1, api.refreshes.Load())
	for _, code := range codes {
		assert.Equal(t, http.StatusOK, code)
	}
}

func TestSharedRefreshSurvivesFirstCallerCancel(t *testing.T) {
	c, api := setup(t)
	gate := make(chan struct{})
	api.mu.Lock()
	api.gate = gate
	api.mu.Unlock()
	api.expire()

	ctx, cancel := context.WithCancel(context.Background())
	firstDone := make(chan struct{})
	go func() {
		defer close(firstDone)
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, c.URL("/orders"), nil)
		if resp, err := c.Do(req); err == nil {
			_ = resp.Body.Close()
		}
	}()
	// The first caller owns the in-flight refresh.
	require.Eventually(t, func() bool { return api.refreshes.Load() == 1 }, 2*time.Second, 5*time.Millisecond)

	secondCode := make(chan int, 1)
	go func() {
		req, _ := http.NewRequest(http.MethodGet, c.URL("/orders"), nil)
		resp, err := c.Do(req)
		if err != nil {
			secondCode <- 0
			return
		}
		_ = resp.Body.Close()
		secondCode <- resp.StatusCode
	}()
	require.Eventually(t, func() bool { return api.unauth.Load() == 2 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	cancel()
	time.Sleep(20 * time.Millisecond)
	close(gate)

	assert.Equal(t, http.StatusOK, <-secondCode)
	<-firstDone
	assert.EqualValues(t, 1, api.refreshes.Load())
}
