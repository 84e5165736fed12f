package observability

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupLogging_Levels(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	logger := setupLogging(&buf, "development")
	logger.Debug("debug line", "k", "v")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "debug line", line["msg"])
	assert.Equal(t, "v", line["k"])
	assert.Same(t, logger, slog.Default())

	buf.Reset()
	logger = setupLogging(&buf, "production")
	logger.Debug("hidden")
	assert.Zero(t, buf.Len())
	logger.Info("shown")
	assert.Contains(t, buf.String(), `"level":"INFO"`)
}

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(BookingTransitions.WithLabelValues("book"))
	BookingTransitions.WithLabelValues("book").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(BookingTransitions.WithLabelValues("book")))
}
