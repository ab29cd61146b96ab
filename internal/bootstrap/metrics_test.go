package bootstrap

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/mmk-storefront/config"
)

func TestBuildMetricsSink(t *testing.T) {
	ctx := context.Background()

	assert.Nil(t, BuildMetricsSink(ctx, config.MetricsConfig{}, nil))
	assert.Nil(t, BuildMetricsSink(ctx, config.MetricsConfig{Enabled: true, StatsdAddress: "no-port"}, quietLogger()))

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer pc.Close()

	client := BuildMetricsSink(ctx, config.MetricsConfig{Enabled: true, StatsdAddress: pc.LocalAddr().String(), Prefix: "storefront"}, quietLogger())
	require.NotNil(t, client)
	assert.True(t, client.Enabled())
	require.NoError(t, client.Close())
}
