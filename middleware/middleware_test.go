package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sitesafe-api/config"
	"sitesafe-api/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func useMockDB(t *testing.T) sqlmock.Sqlmock {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	db, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	prev := config.DB
	config.DB = db
	t.Cleanup(func() {
		config.DB = prev
		sqlDB.Close()
	})
	return mock
}

func useSecret(t *testing.T) {
	t.Helper()
	prev := config.Current.Auth
	config.Current.Auth.JWTSecret = "test-secret"
	config.Current.Auth.JWTExpireHours = 1
	t.Cleanup(func() { config.Current.Auth = prev })
}

var userColumns = []string{"user_id", "email", "user_type", "first_name", "last_name", "is_active"}

func protectedRouter() *gin.Engine {
	r := gin.New()
	r.GET("/staff", AuthMiddleware(), RequireUserType(models.UserTypeStaff), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": UserID(c)})
	})
	return r
}

func get(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddlewareAcceptsActiveStaff(t *testing.T) {
	useSecret(t)
	mock := useMockDB(t)
	token, expires, err := GenerateToken(&models.User{UserID: 4, Email: "sue@example.com", UserType: models.UserTypeStaff}, time.Now())
	require.NoError(t, err)
	assert.True(t, expires.After(time.Now()))

	mock.ExpectQuery("SELECT \\* FROM `users` WHERE user_id = \\? AND delete_at IS NULL").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow(4, "sue@example.com", "staff", "Sue", "Grant", true))

	w := get(protectedRouter(), "/staff", token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":4}`, w.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthMiddlewareRejections(t *testing.T) {
	useSecret(t)

	t.Run("no header", func(t *testing.T) {
		w := get(protectedRouter(), "/staff", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("bad signature", func(t *testing.T) {
		token, _, err := GenerateToken(&models.User{UserID: 4, UserType: models.UserTypeStaff}, time.Now())
		require.NoError(t, err)
		config.Current.Auth.JWTSecret = "rotated"
		w := get(protectedRouter(), "/staff", token)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		config.Current.Auth.JWTSecret = "test-secret"
	})

	t.Run("expired", func(t *testing.T) {
		token, _, err := GenerateToken(&models.User{UserID: 4, UserType: models.UserTypeStaff}, time.Now().Add(-2*time.Hour))
		require.NoError(t, err)
		w := get(protectedRouter(), "/staff", token)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("disabled account", func(t *testing.T) {
		mock := useMockDB(t)
		token, _, err := GenerateToken(&models.User{UserID: 4, UserType: models.UserTypeStaff}, time.Now())
		require.NoError(t, err)
		mock.ExpectQuery("SELECT \\* FROM `users`").
			WillReturnRows(sqlmock.NewRows(userColumns).AddRow(4, "sue@example.com", "staff", "Sue", "Grant", false))
		w := get(protectedRouter(), "/staff", token)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "disabled")
	})

	t.Run("worker on staff route", func(t *testing.T) {
		mock := useMockDB(t)
		token, _, err := GenerateToken(&models.User{UserID: 9, UserType: models.UserTypeWorker}, time.Now())
		require.NoError(t, err)
		mock.ExpectQuery("SELECT \\* FROM `users`").
			WillReturnRows(sqlmock.NewRows(userColumns).AddRow(9, "pat@example.com", "worker", "Pat", "Doyle", true))
		w := get(protectedRouter(), "/staff", token)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestCORSMiddleware(t *testing.T) {
	prev := config.Current.CORSOrigins
	config.Current.CORSOrigins = []string{"https://app.sitesafe.example"}
	t.Cleanup(func() { config.Current.CORSOrigins = prev })

	r := gin.New()
	r.Use(CORSMiddleware())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set("Origin", "https://app.sitesafe.example")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.sitesafe.example", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), Logging())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(ContextRequestID)) })

	w := get(r, "/ping", "")
	generated := w.Header().Get(HeaderRequestID)
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(HeaderRequestID))
}
