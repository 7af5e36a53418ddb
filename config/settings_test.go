package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("APP_BASE_URL", "https://sitesafe.example.com/")

	s, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", s.Server.Port)
	assert.Equal(t, 24, s.Auth.JWTExpireHours)
	assert.Equal(t, "https://sitesafe.example.com", s.AppBaseURL)
	assert.Equal(t, []string{"https://sitesafe.example.com"}, s.CORSOrigins)
	assert.Equal(t, int64(10*1024*1024), s.MaxUploadBytes())
	assert.Same(t, s, Current)
}

func TestLoadRequiresSecretInProduction(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadSplitsCORSOrigins(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com,")

	s, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, s.CORSOrigins)
}

func TestDSN(t *testing.T) {
	d := DatabaseSettings{Host: "db", Port: "3306", Name: "sitesafe", Username: "app", Password: "pw"}
	assert.Equal(t, "app:pw@tcp(db:3306)/sitesafe?charset=utf8mb4&parseTime=True&loc=UTC", d.DSN())
	assert.Equal(t, "mysql://app:pw@tcp(db:3306)/sitesafe?charset=utf8mb4&parseTime=True&loc=UTC&multiStatements=true", d.MigrateURL())
}
