package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/suteetoe/cloudbook/pkg/config"
	"go.uber.org/zap"
)

func TestNewWithoutEndpointIsNoop(t *testing.T) {
	p, err := New(context.Background(), &config.Config{ServiceName: "cloudbook"}, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, p.Tracer())

	_, span := p.Tracer().Start(context.Background(), "noop")
	require.False(t, span.SpanContext().IsValid())
	span.End()

	require.NoError(t, p.Shutdown(context.Background()))
}

func TestNilProvider(t *testing.T) {
	var p *Provider
	require.NotNil(t, p.Tracer())
	require.NoError(t, p.Shutdown(context.Background()))
}
