package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
)

func TestNewProviderDisabledIsNoop(t *testing.T) {
	provider, err := NewProvider(nil, ProviderConfig{Enabled: true}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, noop.MeterProvider{}, provider)
}

func TestNewProviderBuildsSDKProvider(t *testing.T) {
	provider, err := NewProvider(nil, ProviderConfig{
		Enabled:          true,
		ExporterEndpoint: "localhost:4318",
		ExporterProtocol: "http",
		ServiceName:      "invoicegen",
	}, zap.NewNop())
	require.NoError(t, err)

	sdk, ok := provider.(*sdkmetric.MeterProvider)
	require.True(t, ok)
	require.NoError(t, sdk.Shutdown(context.Background()))
}

func TestNewProviderRejectsUnknownProtocol(t *testing.T) {
	_, err := NewProvider(nil, ProviderConfig{
		Enabled:          true,
		ExporterEndpoint: "localhost:4317",
		ExporterProtocol: "udp",
	}, zap.NewNop())
	assert.Error(t, err)
}
