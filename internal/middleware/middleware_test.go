package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BruksfildServices01/salon-scheduler/internal/config"
	"github.com/BruksfildServices01/salon-scheduler/internal/models"
	"github.com/BruksfildServices01/salon-scheduler/pkg/logging"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testCfg = &config.Config{JWTSecret: "test-secret"}

func whoami(c *gin.Context) {
	actor, ok := ActorFrom(c)
	c.JSON(http.StatusOK, gin.H{"authenticated": ok, "user_id": actor.UserID, "role": actor.Role})
}

func do(r *gin.Engine, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	r := gin.New()
	r.GET("/", AuthMiddleware(testCfg), whoami)

	token, err := IssueToken("test-secret", 7, models.RoleStaff, time.Hour)
	require.NoError(t, err)

	w := do(r, token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"authenticated":true,"user_id":7,"role":"staff"}`, w.Body.String())

	assert.Equal(t, http.StatusUnauthorized, do(r, "").Code)

	forged, _ := IssueToken("other-secret", 7, models.RoleAdmin, time.Hour)
	assert.Equal(t, http.StatusUnauthorized, do(r, forged).Code)

	expired, _ := IssueToken("test-secret", 7, models.RoleAdmin, -time.Minute)
	assert.Equal(t, http.StatusUnauthorized, do(r, expired).Code)
}

func TestOptionalAuth(t *testing.T) {
	r := gin.New()
	r.GET("/", OptionalAuth(testCfg), whoami)

	w := do(r, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"authenticated":false,"user_id":0,"role":""}`, w.Body.String())

	assert.Equal(t, http.StatusUnauthorized, do(r, "garbage").Code)

	token, _ := IssueToken("test-secret", 3, models.RoleCustomer, time.Hour)
	assert.Contains(t, do(r, token).Body.String(), `"user_id":3`)
}

func TestRequireRole(t *testing.T) {
	r := gin.New()
	r.GET("/", AuthMiddleware(testCfg), RequireRole(models.RoleAdmin, models.RoleStaff), whoami)

	admin, _ := IssueToken("test-secret", 1, models.RoleAdmin, time.Hour)
	customer, _ := IssueToken("test-secret", 2, models.RoleCustomer, time.Hour)

	assert.Equal(t, http.StatusOK, do(r, admin).Code)
	assert.Equal(t, http.StatusForbidden, do(r, customer).Code)
}

func TestRequestIDAndLogger(t *testing.T) {
	var buf bytes.Buffer
	r := gin.New()
	r.Use(RequestID(), RequestLogger(logging.NewWithWriter(&buf, "info")))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusTeapot) })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(HeaderRequestID, "req-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "req-123", w.Header().Get(HeaderRequestID))
	assert.Contains(t, buf.String(), `"request_id":"req-123"`)
	assert.Contains(t, buf.String(), `"status":418`)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Len(t, w.Header().Get(HeaderRequestID), 36)
}

func TestCORSPreflight(t *testing.T) {
	r := gin.New()
	r.Use(CORSMiddleware())
	r.GET("/", whoami)

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://salon.test")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://salon.test", w.Header().Get("Access-Control-Allow-Origin"))
}
