package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultValues(t *testing.T) {
	t.Setenv("DATABASE_URL", "sqlite:///./test.db")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.App.Port)
	assert.Equal(t, "es", cfg.App.LanguageCode)
	assert.Equal(t, "UTC", cfg.App.TimeZone)
	assert.Equal(t, 30, cfg.Auth.TokenExpiryMinutes)
	assert.Equal(t, 30*time.Minute, cfg.Auth.TokenExpiry())
	assert.True(t, cfg.Auth.HasDefaultSecret())
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "Administración de Contactos Personales", cfg.Admin.SiteHeader)
	assert.Equal(t, "Contactos Personales", cfg.Admin.SiteTitle)
	assert.Equal(t, "Panel de Administración", cfg.Admin.IndexTitle)
	assert.Equal(t, 100, cfg.Admin.ListPerPage)
}

func TestLoad_OverridesFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("LANGUAGE_CODE", "en")
	t.Setenv("TIME_ZONE", "America/Mexico_City")
	t.Setenv("ALLOWED_HOSTS", "https://a.example,https://b.example")
	t.Setenv("ADMIN_SITE_HEADER", "Contacts")
	t.Setenv("SECRET_KEY", "0123456789abcdef0123456789abcdef")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.App.Port)
	assert.Equal(t, "en", cfg.App.LanguageCode)
	assert.Equal(t, "America/Mexico_City", cfg.App.Location().String())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "Contacts", cfg.Admin.SiteHeader)
	assert.False(t, cfg.Auth.HasDefaultSecret())
	assert.Same(t, cfg, Get())
}

func TestLoad_InvalidValues_ReturnError(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"zero token expiry", "ACCESS_TOKEN_EXPIRE_MINUTES", "0"},
		{"zero page size", "LIST_PER_PAGE", "0"},
		{"unknown time zone", "TIME_ZONE", "Mars/Olympus"},
		{"non numeric expiry", "ACCESS_TOKEN_EXPIRE_MINUTES", "soon"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestDatabaseConfig_Dialect(t *testing.T) {
	tests := []struct {
		url        string
		isPostgres bool
		dsn        string
		sqlitePath string
	}{
		{
			url:        "postgresql://user:p:ss@db:6543/contactos?sslmode=require",
			isPostgres: true,
			dsn:        "host=db port=6543 user=user dbname=contactos sslmode=require password=p:ss",
		},
		{
			url:        "postgres://user@db/contactos",
			isPostgres: true,
			dsn:        "host=db port=5432 user=user dbname=contactos sslmode=disable",
		},
		{
			url:        "host=db user=u dbname=c",
			isPostgres: false,
			dsn:        "host=db user=u dbname=c",
		},
		{
			url:        "sqlite:///./contactos.db",
			sqlitePath: "./contactos.db",
		},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			c := DatabaseConfig{URL: tt.url}
			assert.Equal(t, tt.isPostgres, c.IsPostgres())
			if tt.dsn != "" {
				assert.Equal(t, tt.dsn, c.GetPostgresDSN())
			}
			if tt.sqlitePath != "" {
				assert.Equal(t, tt.sqlitePath, c.GetSQLitePath())
			}
		})
	}
}
