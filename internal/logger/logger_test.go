package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"secrethobby/backend/internal/config"
)

func TestNewLogger(t *testing.T) {
	t.Run("无效级别回退到 info", func(t *testing.T) {
		log, err := NewLogger(Config{Level: "verbose"})
		require.NoError(t, err)
		assert.True(t, log.Core().Enabled(0))
		assert.False(t, log.Core().Enabled(-1))
	})

	t.Run("写入日志文件", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "logs", "app.log")
		log, err := NewLogger(FromAppConfig(config.LogConfig{Level: "debug", File: file}))
		require.NoError(t, err)

		log.Info("hello")
		_ = log.Sync()

		data, err := os.ReadFile(file)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"message":"hello"`)
		assert.Contains(t, string(data), `"service":"secrethobby"`)
	})

	t.Run("nil 日志替换为空日志", func(t *testing.T) {
		assert.NotNil(t, OrNop(nil))
		dev := NewDevelopmentLogger()
		assert.Same(t, dev, OrNop(dev))
	})
}
