package middleware_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/CUknot/grammable/middleware"
	"github.com/CUknot/grammable/sessions"
	"github.com/CUknot/grammable/testutil"
	"github.com/CUknot/grammable/utils"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "middleware-secret"

func authRouter(t *testing.T, revoker sessions.Revoker) (*gin.Engine, *middleware.Auth) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	auth := &middleware.Auth{DB: testutil.NewDB(t), Secret: secret, Revoker: revoker}
	r := gin.New()
	r.Use(auth.CurrentUser())
	r.GET("/page", middleware.RequireUser(), func(c *gin.Context) {
		c.String(http.StatusOK, middleware.CurrentUserFrom(c).Email)
	})
	r.GET("/api", middleware.JWTAuth(), func(c *gin.Context) {
		c.String(http.StatusOK, middleware.ClaimsFrom(c).ID)
	})
	return r, auth
}

func serve(r http.Handler, path string, mutate func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if mutate != nil {
		mutate(req)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireUser(t *testing.T) {
	r, auth := authRouter(t, sessions.NewMemoryRevoker())
	user := testutil.CreateUser(t, auth.DB)
	token, err := utils.GenerateToken(user.ID, secret)
	require.NoError(t, err)

	w := serve(r, "/page", nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, middleware.LoginPath, w.Header().Get("Location"))

	w = serve(r, "/page", func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: token})
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, user.Email, w.Body.String())
}

func TestJWTAuth(t *testing.T) {
	revoker := sessions.NewMemoryRevoker()
	r, auth := authRouter(t, revoker)
	user := testutil.CreateUser(t, auth.DB)
	token, err := utils.GenerateToken(user.ID, secret)
	require.NoError(t, err)
	bearer := func(req *http.Request) { req.Header.Set("Authorization", "Bearer "+token) }

	assert.Equal(t, http.StatusUnauthorized, serve(r, "/api", nil).Code)

	w := serve(r, "/api", bearer)
	require.Equal(t, http.StatusOK, w.Code)
	claims, err := utils.ParseToken(token, secret)
	require.NoError(t, err)
	assert.Equal(t, claims.ID, w.Body.String())

	require.NoError(t, revoker.Revoke(context.Background(), claims.ID, time.Now().Add(time.Hour)))
	assert.Equal(t, http.StatusUnauthorized, serve(r, "/api", bearer).Code)
}

func TestTokenForDeletedUserIsAnonymous(t *testing.T) {
	r, _ := authRouter(t, sessions.NewMemoryRevoker())
	token, err := utils.GenerateToken(4242, secret)
	require.NoError(t, err)

	w := serve(r, "/page", func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: token})
	})
	assert.Equal(t, http.StatusFound, w.Code)
	// the stale cookie is cleared
	assert.Contains(t, w.Header().Get("Set-Cookie"), middleware.SessionCookie+"=;")
}

type unavailableRevoker struct {
	down bool
}

func (r *unavailableRevoker) Revoke(context.Context, string, time.Time) error { return nil }

func (r *unavailableRevoker) IsRevoked(context.Context, string) (bool, error) {
	if r.down {
		return false, errors.New("redis: connection refused")
	}
	return false, nil
}

func TestRevocationStoreOutageKeepsTheCookie(t *testing.T) {
	revoker := &unavailableRevoker{down: true}
	r, auth := authRouter(t, revoker)
	user := testutil.CreateUser(t, auth.DB)
	token, err := utils.GenerateToken(user.ID, secret)
	require.NoError(t, err)
	withCookie := func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: token})
	}

	w := serve(r, "/page", withCookie)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Empty(t, w.Header().Get("Set-Cookie"))

	revoker.down = false
	w = serve(r, "/page", withCookie)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, user.Email, w.Body.String())
}

func TestMethodOverride(t *testing.T) {
	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { seen = r.Method })
	h := middleware.MethodOverride(next)

	tests := []struct {
		name   string
		method string
		form   url.Values
		header string
		want   string
	}{
		{"delete field", http.MethodPost, url.Values{"_method": {"delete"}}, "", http.MethodDelete},
		{"patch field", http.MethodPost, url.Values{"_method": {"PATCH"}}, "", http.MethodPatch},
		{"header", http.MethodPost, nil, "DELETE", http.MethodDelete},
		{"unknown verb ignored", http.MethodPost, url.Values{"_method": {"get"}}, "", http.MethodPost},
		{"only posts are rewritten", http.MethodGet, url.Values{"_method": {"delete"}}, "", http.MethodGet},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/grams/1", strings.NewReader(tt.form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			if tt.header != "" {
				req.Header.Set("X-HTTP-Method-Override", tt.header)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)
			assert.Equal(t, tt.want, seen)
		})
	}
}

type countingReader struct {
	r    io.Reader
	read int
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.read += n
	return n, err
}

func TestMethodOverrideLeavesMultipartBodiesUnread(t *testing.T) {
	var seen string
	h := middleware.MethodOverride(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { seen = r.Method }))

	body, contentType := testutil.MultipartBody(t, map[string]string{"_method": "delete", "message": "hi"}, nil)
	counter := &countingReader{r: body}
	req := httptest.NewRequest(http.MethodPost, "/grams/1", counter)
	req.Header.Set("Content-Type", contentType)
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, http.MethodPost, seen)
	assert.Zero(t, counter.read)

	req = httptest.NewRequest(http.MethodPost, "/grams/1?_method=patch", strings.NewReader(""))
	req.Header.Set("Content-Type", contentType)
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, http.MethodPatch, seen)
}

func TestLimitBody(t *testing.T) {
	var readErr error
	h := middleware.LimitBody(8, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", strings.NewReader("short")))
	assert.NoError(t, readErr)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", strings.NewReader("much too long")))
	var maxErr *http.MaxBytesError
	assert.ErrorAs(t, readErr, &maxErr)
}
