package logger_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"gstaudit/internal/config"
	"gstaudit/internal/logger"
)

func TestNewWithWriter(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		log := logger.NewWithWriter(config.LogConfig{Level: "info", Format: "json"}, &buf)
		log.Debug("hidden")
		log.Info("service.Validation: invoice validated", zap.String("invoice_id", "TS/2024/118"))
		require.NoError(t, log.Sync())

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "info", entry["level"])
		assert.Equal(t, "TS/2024/118", entry["invoice_id"])
		assert.Contains(t, entry, "timestamp")
	})

	t.Run("bad_level_defaults_to_info", func(t *testing.T) {
		var buf bytes.Buffer
		log := logger.NewWithWriter(config.LogConfig{Level: "loud", Format: "console"}, &buf)
		log.Debug("hidden")
		assert.Empty(t, buf.String())
		log.Warn("shown")
		assert.Contains(t, buf.String(), "shown")
	})
}
