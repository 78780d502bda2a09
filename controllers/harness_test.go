package controllers_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/CUknot/grammable/middleware"
	"github.com/CUknot/grammable/models"
	"github.com/CUknot/grammable/routes"
	"github.com/CUknot/grammable/sessions"
	"github.com/CUknot/grammable/storage"
	"github.com/CUknot/grammable/testutil"
	"github.com/CUknot/grammable/utils"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "test-secret"

type event struct {
	Type    string
	Payload interface{}
}

type recordingFeed struct {
	mu     sync.Mutex
	events []event
}

func (f *recordingFeed) Publish(eventType string, payload interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event{Type: eventType, Payload: payload})
}

func (f *recordingFeed) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Type)
	}
	return out
}

type harness struct {
	t       *testing.T
	db      *gorm.DB
	store   *storage.Disk
	feed    *recordingFeed
	revoker *sessions.MemoryRevoker
	handler http.Handler
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logrus.SetOutput(io.Discard)

	db := testutil.NewDB(t)
	store, err := storage.NewDisk(t.TempDir(), 1<<20)
	require.NoError(t, err)

	h := &harness{
		t:       t,
		db:      db,
		store:   store,
		feed:    &recordingFeed{},
		revoker: sessions.NewMemoryRevoker(),
	}

	router, err := routes.NewRouter(routes.Deps{
		DB:        db,
		Store:     store,
		UploadDir: store.Dir,
		Secret:    testSecret,
		Revoker:   h.revoker,
		Feed:      h.feed,
	})
	require.NoError(t, err)
	h.handler = routes.Handler(router, store.MaxBytes)
	return h
}

// sessionCookie signs user in the way the login page would
func (h *harness) sessionCookie(user *models.User) *http.Cookie {
	h.t.Helper()
	token, err := utils.GenerateToken(user.ID, testSecret)
	require.NoError(h.t, err)
	return &http.Cookie{Name: middleware.SessionCookie, Value: token}
}

func (h *harness) serve(req *http.Request, user *models.User) *httptest.ResponseRecorder {
	h.t.Helper()
	if user != nil {
		req.AddCookie(h.sessionCookie(user))
	}
	w := httptest.NewRecorder()
	h.handler.ServeHTTP(w, req)
	return w
}

func (h *harness) get(path string, user *models.User) *httptest.ResponseRecorder {
	return h.serve(httptest.NewRequest(http.MethodGet, path, nil), user)
}

func (h *harness) form(method, path string, values url.Values, user *models.User) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return h.serve(req, user)
}

func (h *harness) multipart(method, path string, fields map[string]string, upload *testutil.Upload, user *models.User) *httptest.ResponseRecorder {
	body, contentType := testutil.MultipartBody(h.t, fields, upload)
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", contentType)
	return h.serve(req, user)
}

func (h *harness) reload(gram *models.Gram) (*models.Gram, error) {
	var fresh models.Gram
	err := h.db.First(&fresh, gram.ID).Error
	return &fresh, err
}

func (h *harness) countGrams() int64 {
	var n int64
	require.NoError(h.t, h.db.Model(&models.Gram{}).Count(&n).Error)
	return n
}

func requireRedirect(t *testing.T, w *httptest.ResponseRecorder, location string) {
	t.Helper()
	require.Equal(t, http.StatusFound, w.Code, w.Body.String())
	require.Equal(t, location, w.Header().Get("Location"))
}
