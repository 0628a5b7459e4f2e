// FILE: src/internal/auth/authenticator.go
package auth

import (
	"bufio"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"logsieve/src/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lixenwraith/log"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"
)

// Bound on per-IP attempt tracking to prevent unbounded map growth.
const maxTrackedIPs = 10000

// Authenticator validates credentials for the HTTP service surface.
// A nil *Authenticator allows everything, so callers skip the nil check.
type Authenticator struct {
	config       *config.AuthConfig
	logger       *log.Logger
	basicUsers   map[string]string
	bearerTokens map[string]bool
	jwtParser    *jwt.Parser
	jwtKeyFunc   jwt.Keyfunc
	mu           sync.RWMutex

	// Brute-force protection
	attempts  map[string]*attemptState
	attemptMu sync.Mutex
}

type attemptState struct {
	limiter      *rate.Limiter
	failCount    int
	lastAttempt  time.Time
	blockedUntil time.Time
}

// Session describes an authenticated request.
type Session struct {
	ID         string
	Username   string
	Method     string // none, basic, bearer, jwt
	RemoteAddr string
	CreatedAt  time.Time
}

// New builds an authenticator from config. Returns nil when auth is
// disabled.
func New(cfg *config.AuthConfig, logger *log.Logger) (*Authenticator, error) {
	if cfg == nil || cfg.Type == "none" || cfg.Type == "" {
		return nil, nil
	}

	a := &Authenticator{
		config:       cfg,
		logger:       logger,
		basicUsers:   make(map[string]string),
		bearerTokens: make(map[string]bool),
		attempts:     make(map[string]*attemptState),
	}

	if cfg.Type == "basic" && cfg.BasicAuth != nil {
		for _, user := range cfg.BasicAuth.Users {
			a.basicUsers[user.Username] = user.PasswordHash
		}
		if cfg.BasicAuth.UsersFile != "" {
			if err := a.loadUsersFile(cfg.BasicAuth.UsersFile); err != nil {
				return nil, fmt.Errorf("failed to load users file: %w", err)
			}
		}
	}

	if cfg.Type == "bearer" && cfg.BearerAuth != nil {
		for _, token := range cfg.BearerAuth.Tokens {
			a.bearerTokens[token] = true
		}

		if cfg.BearerAuth.JWT != nil {
			if cfg.BearerAuth.JWT.SigningKey == "" {
				return nil, fmt.Errorf("jwt configured without signing key")
			}
			a.jwtParser = jwt.NewParser(
				jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
				jwt.WithLeeway(5*time.Second),
				jwt.WithExpirationRequired(),
			)
			key := []byte(cfg.BearerAuth.JWT.SigningKey)
			a.jwtKeyFunc = func(token *jwt.Token) (any, error) {
				return key, nil
			}
		}
	}

	logger.Info("msg", "Authenticator initialized",
		"component", "auth",
		"type", cfg.Type)

	return a, nil
}

// AuthenticateHTTP validates an Authorization header value.
func (a *Authenticator) AuthenticateHTTP(authHeader, remoteAddr string) (*Session, error) {
	if a == nil {
		return &Session{
			ID:         generateSessionID(),
			Method:     "none",
			RemoteAddr: remoteAddr,
			CreatedAt:  time.Now(),
		}, nil
	}

	if err := a.checkRateLimit(remoteAddr); err != nil {
		return nil, err
	}

	var session *Session
	var err error

	switch a.config.Type {
	case "basic":
		session, err = a.authenticateBasic(authHeader, remoteAddr)
	case "bearer":
		session, err = a.authenticateBearer(authHeader, remoteAddr)
	default:
		err = fmt.Errorf("unsupported auth type: %s", a.config.Type)
	}

	if err != nil {
		a.recordFailure(remoteAddr)
		// Slow down credential guessing
		time.Sleep(500 * time.Millisecond)
		return nil, err
	}

	a.recordSuccess(remoteAddr)
	return session, nil
}

func (a *Authenticator) checkRateLimit(remoteAddr string) error {
	ip, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		ip = remoteAddr
	}

	a.attemptMu.Lock()
	defer a.attemptMu.Unlock()

	now := time.Now()
	state, exists := a.attempts[ip]
	if !exists {
		if len(a.attempts) >= maxTrackedIPs {
			a.evictOldestLocked(now)
		}
		// 5 attempts per minute, burst of 3
		state = &attemptState{
			limiter:     rate.NewLimiter(rate.Every(12*time.Second), 3),
			lastAttempt: now,
		}
		a.attempts[ip] = state
	}

	if now.Before(state.blockedUntil) {
		remaining := state.blockedUntil.Sub(now)
		a.logger.Warn("msg", "IP temporarily blocked",
			"component", "auth",
			"ip", ip,
			"remaining", remaining)
		return fmt.Errorf("temporarily blocked, try again in %v", remaining.Round(time.Second))
	}

	if !state.limiter.Allow() {
		state.failCount++
		if state.blockedUntil.IsZero() || now.After(state.blockedUntil) {
			// Progressive blocking, capped at 64 minutes
			blockMinutes := 1 << min(state.failCount, 6)
			state.blockedUntil = now.Add(time.Duration(blockMinutes) * time.Minute)
			a.logger.Warn("msg", "Auth rate limit exceeded, blocking IP",
				"component", "auth",
				"ip", ip,
				"fail_count", state.failCount,
				"block_duration", time.Duration(blockMinutes)*time.Minute)
		}
		return fmt.Errorf("rate limit exceeded")
	}

	state.lastAttempt = now
	return nil
}

// evictOldestLocked samples entries and drops the stalest one. Caller
// holds attemptMu.
func (a *Authenticator) evictOldestLocked(now time.Time) {
	const sampleSize = 20
	var oldestIP string
	oldestTime := now

	sampled := 0
	for ip, state := range a.attempts {
		if state.lastAttempt.Before(oldestTime) {
			oldestIP = ip
			oldestTime = state.lastAttempt
		}
		sampled++
		if sampled >= sampleSize {
			break
		}
	}
	if oldestIP != "" {
		delete(a.attempts, oldestIP)
	}
}

func (a *Authenticator) recordFailure(remoteAddr string) {
	ip, _, _ := net.SplitHostPort(remoteAddr)
	if ip == "" {
		ip = remoteAddr
	}

	a.attemptMu.Lock()
	defer a.attemptMu.Unlock()

	if state, exists := a.attempts[ip]; exists {
		state.failCount++
		state.lastAttempt = time.Now()
	}
}

func (a *Authenticator) recordSuccess(remoteAddr string) {
	ip, _, _ := net.SplitHostPort(remoteAddr)
	if ip == "" {
		ip = remoteAddr
	}

	a.attemptMu.Lock()
	defer a.attemptMu.Unlock()

	if state, exists := a.attempts[ip]; exists {
		state.failCount = 0
		state.blockedUntil = time.Time{}
	}
}

func (a *Authenticator) authenticateBasic(authHeader, remoteAddr string) (*Session, error) {
	if !strings.HasPrefix(authHeader, "Basic ") {
		return nil, fmt.Errorf("invalid basic auth header")
	}

	payload, err := base64.StdEncoding.DecodeString(authHeader[6:])
	if err != nil {
		return nil, fmt.Errorf("invalid base64 encoding")
	}

	parts := strings.SplitN(string(payload), ":", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid credentials format")
	}
	username, password := parts[0], parts[1]

	a.mu.RLock()
	expectedHash, exists := a.basicUsers[username]
	a.mu.RUnlock()

	if !exists {
		// Burn a bcrypt comparison anyway to keep timing uniform
		bcrypt.CompareHashAndPassword([]byte("$2a$10$dummy.hash.to.prevent.timing.attacks"), []byte(password))
		return nil, fmt.Errorf("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(expectedHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("invalid credentials")
	}

	return &Session{
		ID:         generateSessionID(),
		Username:   username,
		Method:     "basic",
		RemoteAddr: remoteAddr,
		CreatedAt:  time.Now(),
	}, nil
}

func (a *Authenticator) authenticateBearer(authHeader, remoteAddr string) (*Session, error) {
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return nil, fmt.Errorf("invalid bearer auth header")
	}
	return a.validateToken(authHeader[7:], remoteAddr)
}

func (a *Authenticator) validateToken(token, remoteAddr string) (*Session, error) {
	a.mu.RLock()
	isStatic := a.bearerTokens[token]
	a.mu.RUnlock()

	if isStatic {
		return &Session{
			ID:         generateSessionID(),
			Method:     "bearer",
			RemoteAddr: remoteAddr,
			CreatedAt:  time.Now(),
		}, nil
	}

	if a.jwtParser == nil || a.jwtKeyFunc == nil {
		return nil, fmt.Errorf("invalid token")
	}

	claims := jwt.MapClaims{}
	parsed, err := a.jwtParser.ParseWithClaims(token, claims, a.jwtKeyFunc)
	if err != nil {
		return nil, fmt.Errorf("JWT validation failed: %w", err)
	}
	if !parsed.Valid {
		return nil, fmt.Errorf("invalid JWT token")
	}

	jwtCfg := a.config.BearerAuth.JWT
	if jwtCfg.Issuer != "" {
		if iss, ok := claims["iss"].(string); !ok || iss != jwtCfg.Issuer {
			return nil, fmt.Errorf("invalid token issuer")
		}
	}
	if jwtCfg.Audience != "" {
		audValid := false
		switch aud := claims["aud"].(type) {
		case string:
			audValid = aud == jwtCfg.Audience
		case []any:
			for _, v := range aud {
				if s, ok := v.(string); ok && s == jwtCfg.Audience {
					audValid = true
					break
				}
			}
		}
		if !audValid {
			return nil, fmt.Errorf("invalid token audience")
		}
	}

	username := ""
	if sub, ok := claims["sub"].(string); ok {
		username = sub
	}

	return &Session{
		ID:         generateSessionID(),
		Username:   username,
		Method:     "jwt",
		RemoteAddr: remoteAddr,
		CreatedAt:  time.Now(),
	}, nil
}

// loadUsersFile reads "username:bcrypt-hash" lines, skipping comments.
func (a *Authenticator) loadUsersFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("could not open users file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			a.logger.Warn("msg", "Skipping malformed line in users file",
				"component", "auth",
				"path", path,
				"line_number", lineNumber)
			continue
		}
		username, hash := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
		if username != "" && hash != "" {
			a.basicUsers[username] = hash
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading users file: %w", err)
	}

	a.logger.Info("msg", "Loaded users from file",
		"component", "auth",
		"path", path,
		"user_count", len(a.basicUsers))

	return nil
}

// GetStats returns authentication statistics.
func (a *Authenticator) GetStats() map[string]any {
	if a == nil {
		return map[string]any{"enabled": false}
	}

	a.attemptMu.Lock()
	tracked := len(a.attempts)
	a.attemptMu.Unlock()

	return map[string]any{
		"enabled":       true,
		"type":          a.config.Type,
		"basic_users":   len(a.basicUsers),
		"static_tokens": len(a.bearerTokens),
		"tracked_ips":   tracked,
	}
}

func generateSessionID() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
	}
	return base64.URLEncoding.EncodeToString(b)
}
