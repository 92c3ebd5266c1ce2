package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/otravers/otravers/backend/go-services/internal/config"
	"github.com/otravers/otravers/backend/go-services/internal/sessions"
	"github.com/otravers/otravers/backend/go-services/internal/tokens"
	"github.com/otravers/otravers/backend/go-services/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type authFixture struct {
	router *gin.Engine
	codec  *tokens.Codec
	store  *sessions.RedisStore
	clock  *time.Time
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	m, err := mr.Run()
	require.NoError(t, err)
	t.Cleanup(m.Close)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	store := sessions.NewRedisStore(client, "session:")

	cfg := &config.Config{}
	cfg.JWT.AccessSecret = "mw-access-secret-xxxxxxxxxxxxxxx"
	cfg.JWT.RefreshSecret = "mw-refresh-secret-xxxxxxxxxxxxxx"
	now := time.Now().Truncate(time.Second)
	clock := &now
	codec, err := tokens.NewCodec(cfg, tokens.WithClock(func() time.Time { return *clock }))
	require.NoError(t, err)

	g := gin.New()
	g.GET("/protected", SessionAuth(codec, store), func(c *gin.Context) {
		claims, ok := ClaimsFrom(c)
		require.True(t, ok)
		fromCtx, ok := ClaimsFromContext(c.Request.Context())
		require.True(t, ok)
		require.Same(t, claims, fromCtx)
		c.JSON(http.StatusOK, gin.H{"id": claims.UserID, "sessionId": claims.SessionID})
	})
	return &authFixture{router: g, codec: codec, store: store, clock: clock}
}

func (f *authFixture) login(t *testing.T, userID, sessionID string) string {
	t.Helper()
	require.NoError(t, f.store.Put(context.Background(), sessionID, &sessions.Session{UserID: userID}, time.Hour))
	tok, err := f.codec.IssueAccessToken(tokens.Identity{UserID: userID, Email: "a@b.com"}, sessionID)
	require.NoError(t, err)
	return tok
}

func (f *authFixture) get(t *testing.T, token string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: AccessCookie, Value: token})
	}
	rw := httptest.NewRecorder()
	f.router.ServeHTTP(rw, req)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &body))
	return rw.Code, body
}

func TestSessionAuth_NoCookie(t *testing.T) {
	f := newAuthFixture(t)
	before := testutil.ToFloat64(metrics.SessionRejections.WithLabelValues("missing_token"))

	code, body := f.get(t, "")
	require.Equal(t, http.StatusUnauthorized, code)
	require.Equal(t, "AUTH_001", body["code"])
	require.Equal(t, "Authentication Required", body["message"])
	require.Equal(t, before+1, testutil.ToFloat64(metrics.SessionRejections.WithLabelValues("missing_token")))
}

func TestSessionAuth_Valid(t *testing.T) {
	f := newAuthFixture(t)
	tok := f.login(t, "user-1", "sess-1")

	code, body := f.get(t, tok)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "user-1", body["id"])
	require.Equal(t, "sess-1", body["sessionId"])
}

func TestSessionAuth_Expired(t *testing.T) {
	f := newAuthFixture(t)
	tok := f.login(t, "user-1", "sess-1")
	*f.clock = f.clock.Add(15*time.Minute + time.Second)

	code, body := f.get(t, tok)
	require.Equal(t, http.StatusUnauthorized, code)
	require.Equal(t, "AUTH_002", body["code"])
}

func TestSessionAuth_Invalid(t *testing.T) {
	f := newAuthFixture(t)
	code, body := f.get(t, "garbage.token.value")
	require.Equal(t, http.StatusUnauthorized, code)
	require.Equal(t, "AUTH_003", body["code"])
}

func TestSessionAuth_LogoutTakesEffectImmediately(t *testing.T) {
	f := newAuthFixture(t)
	tok := f.login(t, "user-1", "sess-1")

	code, _ := f.get(t, tok)
	require.Equal(t, http.StatusOK, code)

	require.NoError(t, f.store.Delete(context.Background(), "sess-1"))

	code, body := f.get(t, tok)
	require.Equal(t, http.StatusUnauthorized, code)
	require.Equal(t, "AUTH_007", body["code"])
	require.Equal(t, "Invalid Session", body["message"])
}

func TestSessionAuth_SessionOfAnotherUser(t *testing.T) {
	f := newAuthFixture(t)
	require.NoError(t, f.store.Put(context.Background(), "sess-9", &sessions.Session{UserID: "someone-else"}, time.Hour))
	tok, err := f.codec.IssueAccessToken(tokens.Identity{UserID: "user-1"}, "sess-9")
	require.NoError(t, err)

	code, body := f.get(t, tok)
	require.Equal(t, http.StatusUnauthorized, code)
	require.Equal(t, "AUTH_007", body["code"])
}

type brokenStore struct{}

func (brokenStore) Get(ctx context.Context, id string) (*sessions.Session, error) {
	return nil, errors.New("redis: connection pool timeout")
}

func TestSessionAuth_StoreFailureIs500(t *testing.T) {
	gin.SetMode(gin.TestMode)
	f := newAuthFixture(t)
	tok := f.login(t, "user-1", "sess-1")

	g := gin.New()
	g.GET("/protected", SessionAuth(f.codec, brokenStore{}), func(c *gin.Context) { c.Status(http.StatusOK) })
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: AccessCookie, Value: tok})
	rw := httptest.NewRecorder()
	g.ServeHTTP(rw, req)

	require.Equal(t, http.StatusInternalServerError, rw.Code)
	require.NotContains(t, rw.Body.String(), "pool timeout")
}

func TestClaimsFrom_Absent(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	_, ok := ClaimsFrom(c)
	require.False(t, ok)
	_, ok = ClaimsFromContext(context.Background())
	require.False(t, ok)
}
