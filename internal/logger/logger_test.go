package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNew_WritesJSONWithService(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewWithSyncer("marketplace", "info", zapcore.AddSync(buf))

	log.Info("bid accepted", zap.Uint64("listing_id", 3))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "bid accepted", entry["msg"])
	assert.Equal(t, "marketplace", entry["service"])
	assert.Equal(t, float64(3), entry["listing_id"])
}

func TestNew_LevelFilters(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewWithSyncer("marketplace", "warn", zapcore.AddSync(buf))
	log.Info("hidden")
	assert.Zero(t, buf.Len())

	buf.Reset()
	log = NewWithSyncer("marketplace", "bogus", zapcore.AddSync(buf))
	log.Debug("hidden")
	log.Info("shown")
	assert.Contains(t, buf.String(), "shown")
	assert.NotContains(t, buf.String(), "hidden")
}
