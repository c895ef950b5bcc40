package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payment-widget/internal/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(mw...)
	r.GET("/widgets/:id", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/panic", func(c *gin.Context) { panic("boom") })
	return r
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequestID(t *testing.T) {
	r := newRouter(RequestID())

	w := serve(r, httptest.NewRequest(http.MethodGet, "/widgets/a", nil))
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/widgets/a", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	w = serve(r, req)
	assert.Equal(t, "req-42", w.Header().Get(RequestIDHeader))
}

func TestCORS(t *testing.T) {
	t.Run("allow list", func(t *testing.T) {
		r := newRouter(CORS([]string{"https://shop.example"}))

		req := httptest.NewRequest(http.MethodGet, "/widgets/a", nil)
		req.Header.Set("Origin", "https://shop.example")
		assert.Equal(t, "https://shop.example", serve(r, req).Header().Get("Access-Control-Allow-Origin"))

		req = httptest.NewRequest(http.MethodGet, "/widgets/a", nil)
		req.Header.Set("Origin", "https://evil.example")
		assert.Empty(t, serve(r, req).Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("wildcard preflight", func(t *testing.T) {
		r := newRouter(CORS([]string{"*"}))
		w := serve(r, httptest.NewRequest(http.MethodOptions, "/widgets/a", nil))
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestRateLimitPerClient(t *testing.T) {
	r := newRouter(RateLimit(logger.Discard(), 1, 2))

	get := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/widgets/a", nil)
		req.RemoteAddr = ip + ":1234"
		return serve(r, req).Code
	}

	assert.Equal(t, http.StatusOK, get("10.0.0.1"))
	assert.Equal(t, http.StatusOK, get("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, get("10.0.0.1"))
	assert.Equal(t, http.StatusOK, get("10.0.0.2"), "buckets are per client")
}

func TestRecovery(t *testing.T) {
	r := newRouter(Recovery(logger.Discard()))
	w := serve(r, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Internal server error")
}

func TestSecurityHeaders(t *testing.T) {
	w := serve(newRouter(SecurityHeaders(logger.Discard())), httptest.NewRequest(http.MethodGet, "/widgets/a", nil))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	r := newRouter(Metrics())
	counter := httpRequestsTotal.WithLabelValues(http.MethodGet, "/widgets/:id", "200")
	before := testutil.ToFloat64(counter)

	serve(r, httptest.NewRequest(http.MethodGet, "/widgets/a", nil))
	serve(r, httptest.NewRequest(http.MethodGet, "/widgets/b", nil))

	require.Equal(t, before+2, testutil.ToFloat64(counter))
}
