// FILE: src/internal/limit/net_test.go
package limit

import (
	"testing"

	"logsieve/src/internal/config"

	"github.com/lixenwraith/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *log.Logger {
	return log.NewLogger()
}

func TestNewNetLimiter_Disabled(t *testing.T) {
	assert.Nil(t, NewNetLimiter(nil, newTestLogger()))
	assert.Nil(t, NewNetLimiter(&config.NetLimitConfig{Enabled: false}, newTestLogger()))
}

func TestCheck_RateLimit(t *testing.T) {
	l := NewNetLimiter(&config.NetLimitConfig{
		Enabled:           true,
		RequestsPerSecond: 1,
		BurstSize:         2,
	}, newTestLogger())
	require.NotNil(t, l)

	allowed, _ := l.Check("10.0.0.1:5000")
	assert.True(t, allowed)
	allowed, _ = l.Check("10.0.0.1:5000")
	assert.True(t, allowed)

	// Burst exhausted
	allowed, reason := l.Check("10.0.0.1:5001")
	assert.False(t, allowed)
	assert.Equal(t, "rate limit exceeded", reason)

	// Different IP has its own bucket
	allowed, _ = l.Check("10.0.0.2:5000")
	assert.True(t, allowed)
}

func TestCheck_ZeroRateAllowsAll(t *testing.T) {
	l := NewNetLimiter(&config.NetLimitConfig{
		Enabled:             true,
		MaxConnectionsPerIP: 5,
	}, newTestLogger())

	for i := 0; i < 10; i++ {
		allowed, _ := l.Check("10.0.0.1:5000")
		assert.True(t, allowed)
	}
}

func TestAddConnection_PerIPLimit(t *testing.T) {
	l := NewNetLimiter(&config.NetLimitConfig{
		Enabled:             true,
		MaxConnectionsPerIP: 2,
	}, newTestLogger())

	require.NoError(t, l.AddConnection("10.0.0.1:5000"))
	require.NoError(t, l.AddConnection("10.0.0.1:5001"))

	err := l.AddConnection("10.0.0.1:5002")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection limit exceeded")

	// Other IPs unaffected
	assert.NoError(t, l.AddConnection("10.0.0.2:5000"))

	// Releasing frees a slot
	l.RemoveConnection("10.0.0.1:5000")
	assert.NoError(t, l.AddConnection("10.0.0.1:5003"))
}

func TestAddConnection_TotalLimit(t *testing.T) {
	l := NewNetLimiter(&config.NetLimitConfig{
		Enabled:             true,
		MaxConnectionsTotal: 2,
	}, newTestLogger())

	require.NoError(t, l.AddConnection("10.0.0.1:5000"))
	require.NoError(t, l.AddConnection("10.0.0.2:5000"))
	assert.Error(t, l.AddConnection("10.0.0.3:5000"))
}

func TestGetStats(t *testing.T) {
	l := NewNetLimiter(&config.NetLimitConfig{
		Enabled:             true,
		MaxConnectionsPerIP: 1,
	}, newTestLogger())

	l.Check("10.0.0.1:5000")
	require.NoError(t, l.AddConnection("10.0.0.1:5000"))
	assert.Error(t, l.AddConnection("10.0.0.1:5001"))

	stats := l.GetStats()
	assert.Equal(t, uint64(1), stats["total_requests"])
	assert.Equal(t, uint64(1), stats["blocked_by_conn_limit"])
	assert.Equal(t, int64(1), stats["active_connections"])
	assert.Equal(t, 1, stats["tracked_ips"])
}
