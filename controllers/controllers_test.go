package controllers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"sitesafe-api/config"
	"sitesafe-api/middleware"
	"sitesafe-api/services"
	"sitesafe-api/utils"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
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

type envelope struct {
	Success bool              `json:"success"`
	Error   string            `json:"error"`
	Fields  map[string]string `json:"fields"`
	Data    json.RawMessage   `json:"data"`
	Total   int64             `json:"total"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func serve(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&services.ValidationError{Fields: map[string]string{"email": "Invalid"}}, http.StatusUnprocessableEntity},
		{fmt.Errorf("load: %w", services.ErrNotFound), http.StatusNotFound},
		{services.ErrInvalidCredentials, http.StatusUnauthorized},
		{services.ErrStepLocked, http.StatusConflict},
		{services.ErrAlreadyCheckedIn, http.StatusConflict},
		{services.ErrAlreadySigned, http.StatusConflict},
		{services.ErrHealthCheckRequired, http.StatusPreconditionRequired},
		{fmt.Errorf("%w: %v", services.ErrInvalidQRPayload, utils.ErrUnrecognisedPayload), http.StatusUnprocessableEntity},
		{services.ErrFileTooLarge, http.StatusRequestEntityTooLarge},
		{services.ErrUnsupportedFile, http.StatusUnsupportedMediaType},
		{errors.New("connection refused"), 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusOf(tt.err), tt.err.Error())
	}
}

func TestFailEnvelope(t *testing.T) {
	r := gin.New()
	r.GET("/validation", func(c *gin.Context) {
		fail(c, &services.ValidationError{Fields: map[string]string{"company_name": "Company name is required"}})
	})
	r.GET("/boom", func(c *gin.Context) { fail(c, errors.New("dial tcp 10.0.0.3:3306: i/o timeout")) })

	w := serve(r, http.MethodGet, "/validation", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	env := decode(t, w)
	assert.False(t, env.Success)
	assert.Equal(t, "Company name is required", env.Fields["company_name"])

	w = serve(r, http.MethodGet, "/boom", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "10.0.0.3")
}

var userColumns = []string{"user_id", "email", "password", "user_type", "first_name", "last_name", "is_active"}

func TestLoginIssuesToken(t *testing.T) {
	prev := config.Current.Auth
	config.Current.Auth.JWTSecret = "test-secret"
	config.Current.Auth.JWTExpireHours = 8
	t.Cleanup(func() { config.Current.Auth = prev })

	hash, err := bcrypt.GenerateFromPassword([]byte("Scaffold2026"), bcrypt.MinCost)
	require.NoError(t, err)

	mock := useMockDB(t)
	mock.ExpectQuery("SELECT \\* FROM `users` WHERE delete_at IS NULL AND email = \\?").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow(11, "pat@example.com", string(hash), "worker", "Pat", "Doyle", true))
	mock.ExpectExec("UPDATE `users` SET `last_login_at`").WillReturnResult(sqlmock.NewResult(0, 1))

	r := gin.New()
	r.POST("/login", Login)
	w := serve(r, http.MethodPost, "/login", `{"email":"Pat@Example.com ","password":"Scaffold2026"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp LoginResponse
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &resp))
	assert.Equal(t, "/worker", resp.Dashboard.Home)
	assert.Empty(t, resp.User.Password)

	claims, err := middleware.ParseToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, 11, claims.UserID)
	assert.Equal(t, "worker", claims.UserType)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginRejectsUnknownEmail(t *testing.T) {
	mock := useMockDB(t)
	mock.ExpectQuery("SELECT \\* FROM `users`").WillReturnRows(sqlmock.NewRows(userColumns))

	r := gin.New()
	r.POST("/login", Login)
	w := serve(r, http.MethodPost, "/login", `{"email":"nobody@example.com","password":"whatever1"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, services.ErrInvalidCredentials.Error(), decode(t, w).Error)

	w = serve(r, http.MethodPost, "/login", `{"email":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

var siteColumns = []string{"site_id", "name", "address", "postcode", "is_active"}

func TestPublicSiteCheckin(t *testing.T) {
	r := gin.New()
	r.GET("/site-checkin/:id", PublicSiteCheckin)
	id := "3f2a9c1e-5b7d-4e2a-9c1e-5b7d4e2a9c1e"

	t.Run("active", func(t *testing.T) {
		mock := useMockDB(t)
		mock.ExpectQuery("SELECT \\* FROM `sites` WHERE delete_at IS NULL AND site_id = \\?").
			WillReturnRows(sqlmock.NewRows(siteColumns).AddRow(id, "Wharf Street", "1 Wharf Street", "LS1 4AB", true))
		w := serve(r, http.MethodGet, "/site-checkin/"+strings.ToUpper(id), "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Wharf Street")
	})

	t.Run("closed site", func(t *testing.T) {
		mock := useMockDB(t)
		mock.ExpectQuery("SELECT \\* FROM `sites`").
			WillReturnRows(sqlmock.NewRows(siteColumns).AddRow(id, "Old depot", "", "", false))
		w := serve(r, http.MethodGet, "/site-checkin/"+id, "")
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("unknown", func(t *testing.T) {
		mock := useMockDB(t)
		mock.ExpectQuery("SELECT \\* FROM `sites`").WillReturnRows(sqlmock.NewRows(siteColumns))
		w := serve(r, http.MethodGet, "/site-checkin/"+id, "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestGetRamsWizard(t *testing.T) {
	r := gin.New()
	r.GET("/rams/wizard", GetRamsWizard)
	w := serve(r, http.MethodGet, "/rams/wizard", "")
	require.Equal(t, http.StatusOK, w.Code)

	var def struct {
		Steps []struct {
			Number int    `json:"number"`
			Key    string `json:"key"`
		} `json:"steps"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &def))
	require.Len(t, def.Steps, 22)
	assert.Equal(t, "project_details", def.Steps[0].Key)
	assert.Equal(t, "declaration", def.Steps[21].Key)
}

func TestSiteLogFilter(t *testing.T) {
	var got services.SiteLogFilter
	r := gin.New()
	r.GET("/site-logs", func(c *gin.Context) {
		f, valid := siteLogFilter(c)
		if !valid {
			return
		}
		got = f
		c.Status(http.StatusNoContent)
	})

	w := serve(r, http.MethodGet, "/site-logs?site_id=abc&worker_id=7&from=2026-03-01&to=2026-03-31&open=false", "")
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "abc", got.SiteID)
	assert.Equal(t, 7, got.WorkerID)
	require.NotNil(t, got.From)
	require.NotNil(t, got.To)
	assert.Equal(t, time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC), *got.To)
	require.NotNil(t, got.Open)
	assert.False(t, *got.Open)

	w = serve(r, http.MethodGet, "/site-logs?from=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCheckInRejectsGarbagePayload(t *testing.T) {
	useMockDB(t)
	services.ClearSettingsCache()
	t.Cleanup(services.ClearSettingsCache)

	r := gin.New()
	r.POST("/me/check-in", func(c *gin.Context) {
		c.Set(middleware.ContextUserID, 11)
		CheckIn(c)
	})
	w := serve(r, http.MethodPost, "/me/check-in", `{"qr_payload":"hello world"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.False(t, decode(t, w).Success)
}

func multipartBody(t *testing.T, field, name string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, name)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestUploadOverLimitIsTooLarge(t *testing.T) {
	prev := config.Current.Storage.MaxUploadMB
	config.Current.Storage.MaxUploadMB = 1
	t.Cleanup(func() { config.Current.Storage.MaxUploadMB = prev })

	r := gin.New()
	r.POST("/signage", UploadSignage)

	body, contentType := multipartBody(t, "file", "banner.png", make([]byte, 4<<20))
	req := httptest.NewRequest(http.MethodPost, "/signage", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.False(t, decode(t, w).Success)

	body, contentType = multipartBody(t, "attachment", "banner.png", []byte("small"))
	req = httptest.NewRequest(http.MethodPost, "/signage", body)
	req.Header.Set("Content-Type", contentType)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
