// Package authclient is an HTTP client for the auth API that renews an expired
// access token once and replays the failed request.
package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/otravers/otravers/backend/go-services/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultLoginPath   = "/auth/login"
	DefaultRefreshPath = "/auth/refresh"
	DefaultLogoutPath  = "/auth/logout"

	refreshTimeout = 10 * time.Second
)

type retriedKey struct{}

// RetryPolicy decides whether a failed request may be refreshed and replayed.
// A request is replayed at most once; the mark travels on its context.
type RetryPolicy struct {
	RefreshPath string
}

// Retried reports whether ctx belongs to a request that was already replayed.
func (RetryPolicy) Retried(ctx context.Context) bool {
	v, _ := ctx.Value(retriedKey{}).(bool)
	return v
}

func (RetryPolicy) markRetried(ctx context.Context) context.Context {
	return context.WithValue(ctx, retriedKey{}, true)
}

// ShouldRefresh reports whether resp for req warrants a refresh and replay.
func (p RetryPolicy) ShouldRefresh(req *http.Request, resp *http.Response) bool {
	if resp.StatusCode != http.StatusUnauthorized {
		return false
	}
	if strings.HasSuffix(req.URL.Path, p.RefreshPath) {
		return false
	}
	return !p.Retried(req.Context())
}

// Client wraps an http.Client with a cookie jar so the auth cookies set by the
// server ride along on every request.
type Client struct {
	base   *url.URL
	http   *http.Client
	policy RetryPolicy
	group  singleflight.Group
	log    *zap.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the underlying client. Its jar is replaced when nil.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithRefreshPath(p string) Option {
	return func(c *Client) { c.policy.RefreshPath = p }
}

// New returns a Client rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	c := &Client{
		base:   u,
		http:   &http.Client{Timeout: 15 * time.Second},
		policy: RetryPolicy{RefreshPath: DefaultRefreshPath},
		log:    logger.With(zap.String("component", "authclient")),
	}
	for _, o := range opts {
		o(c)
	}
	if c.http.Jar == nil {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, err
		}
		c.http.Jar = jar
	}
	return c, nil
}

// URL resolves path against the base URL.
func (c *Client) URL(path string) string {
	return c.base.String() + path
}

// Do sends req. On a 401 it refreshes once, sharing the refresh with any
// concurrent callers, and replays req with the renewed cookies. When the
// refresh fails the original 401 is returned unchanged.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if req.Body != nil && req.GetBody == nil {
		body, err := io.ReadAll(req.Body)
		_ = req.Body.Close()
		if err != nil {
			return nil, err
		}
		req.Body = io.NopCloser(bytes.NewReader(body))
		req.GetBody = func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(body)), nil }
	}

	resp, err := c.http.Do(req)
	if err != nil || !c.policy.ShouldRefresh(req, resp) {
		return resp, err
	}

	// Keep the original failure readable in case the refresh does not help.
	original, rerr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(original))
	if rerr != nil {
		return resp, nil
	}

	// Shared by every waiting caller; detached from the first caller's cancellation.
	if _, err, _ := c.group.Do("refresh", func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(req.Context()), refreshTimeout)
		defer cancel()
		return nil, c.Refresh(ctx)
	}); err != nil {
		c.log.Debug("refresh failed", zap.String("path", req.URL.Path), zap.Error(err))
		return resp, nil
	}

	replay := req.Clone(c.policy.markRetried(req.Context()))
	replay.Header.Del("Cookie")
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return resp, nil
		}
		replay.Body = body
	}
	return c.http.Do(replay)
}

// StatusError is returned by the convenience calls when the server answers
// with a non-2xx status.
type StatusError struct {
	Status  int
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("auth api: %d %s %s", e.Status, e.Code, e.Message)
}

func (c *Client) post(ctx context.Context, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL(path), body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	// The refresh call goes straight to the wire so it can never trigger itself.
	do := c.Do
	if path == c.policy.RefreshPath {
		do = c.http.Do
	}
	resp, err := do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		se := &StatusError{Status: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(se)
		return se
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

// User is the identity summary returned by Login.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Login authenticates and stores the session cookies in the jar.
func (c *Client) Login(ctx context.Context, email, password string) (User, error) {
	var out struct {
		Data struct {
			User User `json:"user"`
		} `json:"data"`
	}
	err := c.post(ctx, DefaultLoginPath, map[string]string{"email": email, "password": password}, &out)
	return out.Data.User, err
}

// Refresh exchanges the refresh cookie for a new access cookie.
func (c *Client) Refresh(ctx context.Context) error {
	return c.post(ctx, c.policy.RefreshPath, nil, nil)
}

func (c *Client) Logout(ctx context.Context) error {
	return c.post(ctx, DefaultLogoutPath, nil, nil)
}
