package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/chachabrian/rideon-backend/internal/models"
	apperrors "github.com/chachabrian/rideon-backend/pkg/errors"
	"github.com/chachabrian/rideon-backend/pkg/logger"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeAuth map[string]*models.User

func (f fakeAuth) Authenticate(ctx context.Context, token string) (*models.User, error) {
	if u, ok := f[token]; ok {
		return u, nil
	}
	return nil, apperrors.ErrInvalidToken
}

func testUsers() fakeAuth {
	rider := &models.User{Email: "rider@example.com", UserType: models.UserTypeRider}
	rider.ID = 1
	driver := &models.User{Email: "driver@example.com", UserType: models.UserTypeDriver}
	driver.ID = 2
	return fakeAuth{"rider-token": rider, "driver-token": driver}
}

func newRouter(auth Authenticator, extra ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(sessions.Sessions("rideon_session", cookie.NewStore([]byte("test-secret"))))
	for _, h := range extra {
		r.Use(h)
	}
	protected := r.Group("/", AuthRequired(auth))
	protected.GET("/api/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": CurrentUser(c).ID, "type": c.GetString("userType")})
	})
	protected.GET("/driver-dashboard/", RequireRole(models.UserTypeDriver), func(c *gin.Context) {
		c.String(http.StatusOK, "driver home")
	})
	protected.POST("/api/rides", RequireRole(models.UserTypeRider), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})
	return r
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestAuthRequired_TokenSources(t *testing.T) {
	r := newRouter(testUsers())

	tests := []struct {
		name  string
		setup func(*http.Request)
		want  float64
	}{
		{"bearer header", func(req *http.Request) { req.Header.Set("Authorization", "Bearer rider-token") }, 1},
		{"cookie", func(req *http.Request) { req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: "driver-token"}) }, 2},
		{"query", func(req *http.Request) { req.URL.RawQuery = "token=rider-token" }, 1},
		{"cookie wins over header", func(req *http.Request) {
			req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: "driver-token"})
			req.Header.Set("Authorization", "Bearer rider-token")
		}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
			tt.setup(req)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.want, decode(t, w)["id"])
		})
	}
}

func TestAuthRequired_SessionFallback(t *testing.T) {
	r := newRouter(testUsers(), func(c *gin.Context) {
		sessions.Default(c).Set(AccessTokenCookie, "driver-token")
		c.Next()
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/me", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "DRIVER", decode(t, w)["type"])
}

func TestAuthRequired_Rejections(t *testing.T) {
	r := newRouter(testUsers())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "UNAUTHORIZED", decode(t, w)["code"])

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer bogus")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// a browser asking for a page is sent to the login form
	req = httptest.NewRequest(http.MethodGet, "/driver-dashboard/", nil)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login/?next=%2Fdriver-dashboard%2F", w.Header().Get("Location"))
}

func TestRequireRole(t *testing.T) {
	r := newRouter(testUsers())

	req := httptest.NewRequest(http.MethodPost, "/api/rides", nil)
	req.Header.Set("Authorization", "Bearer rider-token")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusCreated, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/rides", nil)
	req.Header.Set("Authorization", "Bearer driver-token")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "/driver-dashboard/", decode(t, w)["redirect_url"])

	req = httptest.NewRequest(http.MethodGet, "/driver-dashboard/", nil)
	req.Header.Set("Accept", "text/html")
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: "rider-token"})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/dashboard/", w.Header().Get("Location"))
}

func TestLandingPage(t *testing.T) {
	assert.Equal(t, "/driver-dashboard/", LandingPage(models.UserTypeDriver))
	assert.Equal(t, "/dashboard/", LandingPage(models.UserTypeRider))
	assert.Equal(t, "/", LandingPage(models.UserTypeAdmin))
}

func TestRespondError(t *testing.T) {
	r := gin.New()
	r.GET("/fail", func(c *gin.Context) {
		RespondError(c, apperrors.Validation("Registration failed", map[string]string{"email": "Enter a valid email address."}))
	})
	r.GET("/boom", func(c *gin.Context) {
		RespondError(c, assert.AnError)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fail", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Registration failed","code":"VALIDATION_ERROR","errors":{"email":"Enter a valid email address."}}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"An unexpected error occurred","code":"INTERNAL_ERROR"}`, w.Body.String())
}

func TestMetricsAndLogging(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	r := gin.New()
	r.Use(RequestLogger(logger.NewNop()), m.Handler())
	r.GET("/api/rides/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, id := range []string{"1", "2", "3"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/rides/"+id, nil))
		assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
	}

	assert.Equal(t, 3.0, promtest.ToFloat64(m.requests.WithLabelValues(http.MethodGet, "/api/rides/:id", "200")))
}
