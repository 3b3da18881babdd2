package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/service"
)

func newAuthRouter(guards ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handlers := append(guards, func(c *gin.Context) {
		user := "anonymous"
		if claims, ok := c.Get(ContextUserKey); ok {
			user = claims.(*models.JWTClaims).UserID
		}
		c.String(http.StatusOK, user)
	})
	router.GET("/timetables", handlers...)
	return router
}

func request(router *gin.Engine, authorization string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(http.MethodGet, "/timetables", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestJWTRequiresValidBearer(t *testing.T) {
	tokens := service.NewTokenService("secret", "")
	admin, err := tokens.Issue("admin-1", models.RoleAdmin, time.Hour)
	require.NoError(t, err)
	router := newAuthRouter(JWT(tokens))

	assert.Equal(t, http.StatusUnauthorized, request(router, "").Code)
	assert.Equal(t, http.StatusUnauthorized, request(router, "Basic abc").Code)
	assert.Equal(t, http.StatusUnauthorized, request(router, "Bearer not-a-token").Code)

	w := request(router, "Bearer "+admin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "admin-1", w.Body.String())
}

func TestOptionalJWTNeverBlocks(t *testing.T) {
	tokens := service.NewTokenService("secret", "")
	teacher, err := tokens.Issue("teacher-1", models.RoleTeacher, time.Hour)
	require.NoError(t, err)
	router := newAuthRouter(OptionalJWT(tokens))

	w := request(router, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "anonymous", w.Body.String())

	w = request(router, "Bearer garbage")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "anonymous", w.Body.String())

	w = request(router, "Bearer "+teacher)
	assert.Equal(t, "teacher-1", w.Body.String())
}

func TestRequireRoles(t *testing.T) {
	tokens := service.NewTokenService("secret", "")
	teacher, err := tokens.Issue("teacher-1", models.RoleTeacher, time.Hour)
	require.NoError(t, err)
	admin, err := tokens.Issue("admin-1", models.RoleAdmin, time.Hour)
	require.NoError(t, err)

	router := newAuthRouter(JWT(tokens), RequireRoles(models.RoleAdmin, models.RoleSuperAdmin))
	assert.Equal(t, http.StatusForbidden, request(router, "Bearer "+teacher).Code)
	assert.Equal(t, http.StatusOK, request(router, "Bearer "+admin).Code)

	unauthenticated := newAuthRouter(RequireRoles(models.RoleAdmin))
	assert.Equal(t, http.StatusUnauthorized, request(unauthenticated, "").Code)
}

func TestTimetablePolicies(t *testing.T) {
	tokens := service.NewTokenService("secret", "")
	teacher, err := tokens.Issue("teacher-1", models.RoleTeacher, time.Hour)
	require.NoError(t, err)
	student, err := tokens.Issue("student-1", models.RoleStudent, time.Hour)
	require.NoError(t, err)

	editors := newAuthRouter(JWT(tokens), TimetableEditors())
	assert.Equal(t, http.StatusForbidden, request(editors, "Bearer "+teacher).Code)

	requesters := newAuthRouter(JWT(tokens), SolveRequesters())
	assert.Equal(t, http.StatusOK, request(requesters, "Bearer "+teacher).Code)
	assert.Equal(t, http.StatusForbidden, request(requesters, "Bearer "+student).Code)
}

func TestResponseMeta(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Nil(t, ExtractMeta(c))

	SetCacheHit(c, true)
	SetMeta(c, "mode", "preview")
	assert.Equal(t, map[string]interface{}{"cache_hit": true, "mode": "preview"}, ExtractMeta(c))
}

func TestMetricsMiddlewareLabelsRoutes(t *testing.T) {
	metrics := service.NewMetricsService()
	router := newAuthRouter(Metrics(metrics))

	request(router, "")
	req, _ := http.NewRequest(http.MethodGet, "/missing", nil)
	router.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, uint64(2), metrics.Snapshot().RequestsTotal)
}
