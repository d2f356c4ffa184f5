package middleware

import (
	"cofq_backend/internal/config"
	"cofq_backend/internal/model"
	"cofq_backend/internal/util"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "middleware-test-secret-0123456789abcdef"

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{JWT: config.JWTConfig{Secret: testSecret}}

	r := gin.New()
	r.GET("/me", AuthMiddleware(cfg), func(c *gin.Context) {
		util.Success(c, util.GetUserFromContext(c).UserID)
	})
	r.GET("/admin", AuthMiddleware(cfg), RoleMiddleware(model.Admin), func(c *gin.Context) {
		util.Success(c, "ok")
	})
	return r
}

func token(t *testing.T, role model.UserRole, secret string, ttl time.Duration) string {
	t.Helper()
	u := &model.User{Email: "sparky@example.com", Role: role}
	u.ID = 7
	tok, err := util.GenerateJWT(u, secret, ttl)
	require.NoError(t, err)
	return tok
}

func do(r http.Handler, path, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	r := newRouter()

	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", "Bearer garbage").Code)
	assert.Equal(t, http.StatusUnauthorized,
		do(r, "/me", "Bearer "+token(t, model.Student, "another-secret", time.Hour)).Code)
	assert.Equal(t, http.StatusUnauthorized,
		do(r, "/me", "Bearer "+token(t, model.Student, testSecret, -time.Minute)).Code)

	w := do(r, "/me", "Bearer "+token(t, model.Student, testSecret, time.Hour))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"code":200,"message":"success","data":7}`, w.Body.String())

	w = do(r, "/me", "bearer "+token(t, model.Student, testSecret, time.Hour))
	assert.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, http.StatusUnauthorized,
		do(r, "/me?token="+token(t, model.Student, testSecret, time.Hour), "").Code)
	assert.Equal(t, http.StatusUnauthorized,
		do(r, "/me", "Basic "+token(t, model.Student, testSecret, time.Hour)).Code)
}

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/id", func(c *gin.Context) {
		util.Success(c, c.GetString(util.RequestIDKey))
	})

	req := httptest.NewRequest(http.MethodGet, "/id", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	generated := w.Header().Get(util.RequestIDHeader)
	assert.Len(t, generated, 36)
	assert.Contains(t, w.Body.String(), generated)

	req = httptest.NewRequest(http.MethodGet, "/id", nil)
	req.Header.Set(util.RequestIDHeader, "upstream-42")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "upstream-42", w.Header().Get(util.RequestIDHeader))
}

func TestRoleMiddleware(t *testing.T) {
	r := newRouter()

	assert.Equal(t, http.StatusForbidden,
		do(r, "/admin", "Bearer "+token(t, model.Student, testSecret, time.Hour)).Code)
	assert.Equal(t, http.StatusOK,
		do(r, "/admin", "Bearer "+token(t, model.Admin, testSecret, time.Hour)).Code)
}
