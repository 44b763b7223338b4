package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var envKeys = []string{
	"SECRETHOBBY_SESSION_SECRET",
	"SECRETHOBBY_SESSION_EXPIRY",
	"SECRETHOBBY_SERVER_HOST",
	"SECRETHOBBY_SERVER_PORT",
	"SECRETHOBBY_CORS_ALLOWED_ORIGINS",
	"SECRETHOBBY_LOG_LEVEL",
	"SECRETHOBBY_LOG_DEVELOPMENT",
	"SECRETHOBBY_DATABASE_TYPE",
	"SECRETHOBBY_DATABASE_DSN",
	"SECRETHOBBY_REDIS_ENABLED",
	"SECRETHOBBY_IDENTITY_LOGIN_DOMAIN",
	"SECRETHOBBY_IDENTITY_PEPPER",
	"SECRETHOBBY_IDENTITY_BCRYPT_COST",
	"SECRETHOBBY_SESSION_SECURE_COOKIE",
}

// clearEnv 清空相关环境变量，t.Setenv 会在测试结束后恢复原值
func clearEnv(t *testing.T) {
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
}

func TestLoad(t *testing.T) {
	t.Run("加载默认配置成功", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SECRETHOBBY_SESSION_SECRET", "test-secret-key-for-development-32-chars-long-at-least")

		cfg, err := Load()

		assert.NoError(t, err)
		assert.NotNil(t, cfg)

		assert.Equal(t, "0.0.0.0", cfg.Server.Host)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, "0.0.0.0:8080", cfg.Addr())
		assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
		assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
		assert.Equal(t, "info", cfg.Log.Level)
		assert.False(t, cfg.Log.Development)
		assert.Equal(t, "", cfg.Database.Type)
		assert.True(t, cfg.Database.AutoMigrate)
		assert.False(t, cfg.Redis.Enabled)
		assert.Equal(t, "secrethobby", cfg.Session.Issuer)
		assert.Equal(t, 24*time.Hour, cfg.Session.Expiry)
		assert.Equal(t, "secrethobby.local", cfg.Identity.LoginDomain)
		assert.Equal(t, 10*time.Minute, cfg.Identity.CacheTTL)
		assert.Equal(t, 10, cfg.Identity.BcryptCost)
		assert.False(t, cfg.Session.SecureCookie)
	})

	t.Run("加载自定义配置成功", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SECRETHOBBY_SESSION_SECRET", "custom-session-secret-key-32-chars-long-minimum")
		t.Setenv("SECRETHOBBY_SESSION_EXPIRY", "2h")
		t.Setenv("SECRETHOBBY_SERVER_HOST", "127.0.0.1")
		t.Setenv("SECRETHOBBY_SERVER_PORT", "9090")
		t.Setenv("SECRETHOBBY_CORS_ALLOWED_ORIGINS", "http://localhost:3000, http://localhost:5173")
		t.Setenv("SECRETHOBBY_LOG_LEVEL", "debug")
		t.Setenv("SECRETHOBBY_LOG_DEVELOPMENT", "true")
		t.Setenv("SECRETHOBBY_DATABASE_TYPE", "Postgres")
		t.Setenv("SECRETHOBBY_DATABASE_DSN", "postgres://u:p@localhost/db")
		t.Setenv("SECRETHOBBY_REDIS_ENABLED", "true")
		t.Setenv("SECRETHOBBY_IDENTITY_LOGIN_DOMAIN", "Hobby.Test")

		cfg, err := Load()

		assert.NoError(t, err)
		assert.NotNil(t, cfg)
		assert.Equal(t, "127.0.0.1:9090", cfg.Addr())
		assert.Equal(t, []string{"http://localhost:3000", "http://localhost:5173"}, cfg.CORS.AllowedOrigins)
		assert.Equal(t, "debug", cfg.Log.Level)
		assert.True(t, cfg.Log.Development)
		assert.Equal(t, "postgres", cfg.Database.Type)
		assert.True(t, cfg.Redis.Enabled)
		assert.Equal(t, 2*time.Hour, cfg.Session.Expiry)
		assert.Equal(t, "hobby.test", cfg.Identity.LoginDomain)
	})

	t.Run("会话密钥太短失败", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SECRETHOBBY_SESSION_SECRET", "short-key")

		cfg, err := Load()

		assert.Error(t, err)
		assert.Nil(t, cfg)
		assert.Contains(t, err.Error(), "session secret must be at least 32 characters long")
	})

	t.Run("使用默认会话密钥失败", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SECRETHOBBY_SESSION_SECRET", defaultSessionSecret)

		cfg, err := Load()

		assert.Error(t, err)
		assert.Nil(t, cfg)
		assert.Contains(t, err.Error(), "session secret cannot be the default value")
	})

	t.Run("无效的会话有效期失败", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SECRETHOBBY_SESSION_SECRET", "valid-session-secret-key-32-chars-long-minimum")
		t.Setenv("SECRETHOBBY_SESSION_EXPIRY", "forever")

		cfg, err := Load()

		assert.Error(t, err)
		assert.Nil(t, cfg)
		assert.Contains(t, err.Error(), "invalid session.expiry")
	})

	t.Run("数据库类型不支持失败", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SECRETHOBBY_SESSION_SECRET", "valid-session-secret-key-32-chars-long-minimum")
		t.Setenv("SECRETHOBBY_DATABASE_TYPE", "oracle")

		cfg, err := Load()

		assert.Error(t, err)
		assert.Nil(t, cfg)
		assert.Contains(t, err.Error(), "unsupported database.type")
	})

	t.Run("缺少数据库连接串失败", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SECRETHOBBY_SESSION_SECRET", "valid-session-secret-key-32-chars-long-minimum")
		t.Setenv("SECRETHOBBY_DATABASE_TYPE", "mysql")

		cfg, err := Load()

		assert.Error(t, err)
		assert.Nil(t, cfg)
		assert.Contains(t, err.Error(), "database.dsn is required")
	})

	t.Run("哈希成本越界失败", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SECRETHOBBY_SESSION_SECRET", "valid-session-secret-key-32-chars-long-minimum")
		t.Setenv("SECRETHOBBY_IDENTITY_BCRYPT_COST", "2")

		cfg, err := Load()

		assert.Error(t, err)
		assert.Nil(t, cfg)
		assert.Contains(t, err.Error(), "bcrypt_cost")
	})
}

func TestParseList(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected []string
	}{
		{"单个值", "a", []string{"a"}},
		{"多个值带空格", " a , b ,c ", []string{"a", "b", "c"}},
		{"空字符串", "", []string{}},
		{"只有逗号", ",,,", []string{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, parseList(tc.input))
		})
	}
}
