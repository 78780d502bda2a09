package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareCountsByRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	r.GET("/grams/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/grams/:id", "404"))

	for _, id := range []string{"1", "2"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/grams/"+id, nil))
		require.Equal(t, http.StatusNotFound, w.Code)
	}

	after := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/grams/:id", "404"))
	assert.Equal(t, before+2, after)
}

func TestRecordGramMutation(t *testing.T) {
	before := testutil.ToFloat64(gramMutations.WithLabelValues("create"))
	RecordGramMutation("create")
	assert.Equal(t, before+1, testutil.ToFloat64(gramMutations.WithLabelValues("create")))
}

func TestHandlerExposesRegistry(t *testing.T) {
	RecordGramMutation("delete")

	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "grammable_grams_mutations_total")
}
