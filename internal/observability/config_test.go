package observability

import (
	"testing"

	"github.com/samatributa/invoicegen/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestNewConfigReadsAppConfig(t *testing.T) {
	cfg := NewConfig(config.Config{
		AppName:     " billing ",
		AppVersion:  "1.2.3",
		Environment: "production",
		Telemetry: config.TelemetryConfig{
			LogLevel: "info",
			Enabled:  true,
			Endpoint: "otel:4317",
			Protocol: "grpc",
		},
	})

	assert.Equal(t, "billing", cfg.ServiceName)
	assert.Equal(t, "1.2.3", cfg.Version)
	assert.Equal(t, "production", cfg.Environment)
	assert.True(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "otel:4317", cfg.Telemetry.Endpoint)
	assert.False(t, cfg.Debug())

	assert.Equal(t, "invoicegen", NewConfig(config.Config{}).ServiceName)
}

func TestDebug(t *testing.T) {
	assert.True(t, Config{Environment: "test"}.Debug())
	assert.True(t, Config{Environment: "production", Telemetry: config.TelemetryConfig{LogLevel: "DEBUG"}}.Debug())
	assert.False(t, Config{Environment: "staging"}.Debug())
}
