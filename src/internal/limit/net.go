// FILE: src/internal/limit/net.go
package limit

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"logsieve/src/internal/config"

	"github.com/lixenwraith/log"
	"golang.org/x/time/rate"
)

// staleAfter is how long an idle per-IP limiter survives before cleanup.
const staleAfter = 10 * time.Minute

// NetLimiter enforces per-IP request rate and connection-count limits for
// a network surface.
type NetLimiter struct {
	config config.NetLimitConfig
	logger *log.Logger

	ipLimiters map[string]*ipLimiter
	mu         sync.Mutex

	totalConns atomic.Int64

	// Statistics
	totalRequests      atomic.Uint64
	blockedByRateLimit atomic.Uint64
	blockedByConnLimit atomic.Uint64

	lastCleanup time.Time
}

type ipLimiter struct {
	limiter     *rate.Limiter
	connections int64
	lastSeen    time.Time
}

// NewNetLimiter creates a limiter, or nil when the config disables it so
// callers can keep a plain nil check on the hot path.
func NewNetLimiter(cfg *config.NetLimitConfig, logger *log.Logger) *NetLimiter {
	if cfg == nil || !cfg.Enabled {
		return nil
	}

	return &NetLimiter{
		config:      *cfg,
		logger:      logger,
		ipLimiters:  make(map[string]*ipLimiter),
		lastCleanup: time.Now(),
	}
}

// Check reports whether a request from remoteAddr is allowed right now.
func (l *NetLimiter) Check(remoteAddr string) (bool, string) {
	l.totalRequests.Add(1)

	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.cleanupLocked()

	ipl := l.ipLimiters[host]
	if ipl == nil {
		burst := int(l.config.BurstSize)
		if burst < 1 {
			burst = 1
		}
		ipl = &ipLimiter{
			limiter: rate.NewLimiter(rate.Limit(l.config.RequestsPerSecond), burst),
		}
		l.ipLimiters[host] = ipl
	}
	ipl.lastSeen = time.Now()

	if l.config.RequestsPerSecond > 0 && !ipl.limiter.Allow() {
		l.blockedByRateLimit.Add(1)
		l.logger.Warn("msg", "Rate limit exceeded",
			"component", "net_limiter",
			"remote_addr", remoteAddr)
		return false, "rate limit exceeded"
	}

	return true, ""
}

// AddConnection tracks a new connection, rejecting it when a per-IP or
// total cap would be exceeded.
func (l *NetLimiter) AddConnection(remoteAddr string) error {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}

	if max := l.config.MaxConnectionsTotal; max > 0 && l.totalConns.Load() >= max {
		l.blockedByConnLimit.Add(1)
		return fmt.Errorf("connection limit exceeded: %d total", max)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	ipl := l.ipLimiters[host]
	if ipl == nil {
		burst := int(l.config.BurstSize)
		if burst < 1 {
			burst = 1
		}
		ipl = &ipLimiter{
			limiter: rate.NewLimiter(rate.Limit(l.config.RequestsPerSecond), burst),
		}
		l.ipLimiters[host] = ipl
	}
	ipl.lastSeen = time.Now()

	if max := l.config.MaxConnectionsPerIP; max > 0 && ipl.connections >= max {
		l.blockedByConnLimit.Add(1)
		return fmt.Errorf("connection limit exceeded: %d for %s", max, host)
	}

	ipl.connections++
	l.totalConns.Add(1)
	return nil
}

// RemoveConnection releases a tracked connection.
func (l *NetLimiter) RemoveConnection(remoteAddr string) {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if ipl := l.ipLimiters[host]; ipl != nil && ipl.connections > 0 {
		ipl.connections--
		l.totalConns.Add(-1)
	}
}

// GetStats returns limiter statistics.
func (l *NetLimiter) GetStats() map[string]any {
	l.mu.Lock()
	tracked := len(l.ipLimiters)
	l.mu.Unlock()

	return map[string]any{
		"total_requests":        l.totalRequests.Load(),
		"blocked_by_rate_limit": l.blockedByRateLimit.Load(),
		"blocked_by_conn_limit": l.blockedByConnLimit.Load(),
		"active_connections":    l.totalConns.Load(),
		"tracked_ips":           tracked,
	}
}

// cleanupLocked drops idle per-IP state. Caller holds the mutex.
func (l *NetLimiter) cleanupLocked() {
	now := time.Now()
	if now.Sub(l.lastCleanup) < time.Minute {
		return
	}
	l.lastCleanup = now

	for host, ipl := range l.ipLimiters {
		if ipl.connections == 0 && now.Sub(ipl.lastSeen) > staleAfter {
			delete(l.ipLimiters, host)
		}
	}
}
