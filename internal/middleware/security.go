package middleware

import (
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"twinconsole/internal/logger"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// Package-level security logger instance
var GlobalSecurityLogger *SecurityLogger

// RateLimiter implements token bucket rate limiting per IP
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	scope    string
}

// NewRateLimiter creates the general API limiter: 100 requests per second
// per IP, burst of 200.
func NewRateLimiter() *RateLimiter {
	return NewScopedRateLimiter("api", rate.Limit(100), 200)
}

// NewControlRateLimiter creates the stricter limiter for playback commands:
// 5 per second per IP, burst of 10.
func NewControlRateLimiter() *RateLimiter {
	return NewScopedRateLimiter("control", rate.Every(200*time.Millisecond), 10)
}

// NewScopedRateLimiter creates a limiter with explicit parameters
func NewScopedRateLimiter(scope string, limit rate.Limit, burst int) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    limit,
		burst:    burst,
		scope:    scope,
	}
}

// GetLimiter gets or creates a limiter for an IP address
func (rl *RateLimiter) GetLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if limiter, exists := rl.limiters[ip]; exists {
		return limiter
	}
	limiter := rate.NewLimiter(rl.limit, rl.burst)
	rl.limiters[ip] = limiter
	return limiter
}

// RateLimitMiddleware enforces rate limiting per IP
func RateLimitMiddleware(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !limiter.GetLimiter(ip).Allow() {
			logger.Warnf("[SECURITY] %s rate limit exceeded for IP: %s", limiter.scope, ip)
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       limiter.scope + " rate limit exceeded",
				"retry_after": 60,
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// SecurityHeadersMiddleware adds security headers to all responses
func SecurityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Content-Security-Policy", "default-src 'self'; connect-src 'self' ws: wss:; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
		c.Next()
	}
}

// OriginAllowed reports whether origin matches the allow-list. An empty list
// allows any origin. Entries are full origins, bare hosts, or "*".
func OriginAllowed(origin string, allowedOrigins []string) bool {
	origin = strings.TrimRight(origin, "/")
	if len(allowedOrigins) == 0 {
		return true
	}
	for _, o := range allowedOrigins {
		trimmed := strings.TrimRight(strings.TrimSpace(o), "/")
		if trimmed == "" {
			continue
		}
		if trimmed == "*" || origin == trimmed {
			return true
		}
		if !strings.Contains(trimmed, "://") {
			if parsed, err := url.Parse(origin); err == nil && parsed.Host == trimmed {
				return true
			}
		}
	}
	return false
}

// CORSMiddleware configures CORS for renderers served from other origins
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := strings.TrimRight(c.GetHeader("Origin"), "/")

		if origin != "" && OriginAllowed(origin, allowedOrigins) {
			c.Header("Vary", "Origin")
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
			c.Header("Access-Control-Max-Age", "86400")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// IPAllowList restricts access to listed addresses and CIDR ranges
type IPAllowList struct {
	ips  map[string]bool
	nets []*net.IPNet
}

// NewIPAllowList parses ips; entries that are neither an address nor a CIDR
// are logged and ignored.
func NewIPAllowList(ips []string) *IPAllowList {
	al := &IPAllowList{ips: make(map[string]bool)}
	for _, entry := range ips {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if _, ipNet, err := net.ParseCIDR(entry); err == nil {
			al.nets = append(al.nets, ipNet)
			continue
		}
		if ip := net.ParseIP(entry); ip != nil {
			al.ips[ip.String()] = true
			continue
		}
		logger.Warnf("[SECURITY] Ignoring invalid allow-list entry %q", entry)
	}
	return al
}

// IsAllowed checks if an IP may connect
func (al *IPAllowList) IsAllowed(ip string) bool {
	// If no allow-list configured, allow all
	if len(al.ips) == 0 && len(al.nets) == 0 {
		return true
	}

	// Strip port from IP if present
	host, _, err := net.SplitHostPort(ip)
	if err != nil {
		host = ip
	}
	parsed := net.ParseIP(host)
	if parsed == nil {
		return false
	}
	if parsed.IsLoopback() {
		return true
	}
	if al.ips[parsed.String()] {
		return true
	}
	for _, n := range al.nets {
		if n.Contains(parsed) {
			return true
		}
	}
	return false
}

// IPAllowListMiddleware enforces the allow-list
func IPAllowListMiddleware(allowList *IPAllowList) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !allowList.IsAllowed(ip) {
			logger.Warnf("[SECURITY] Access denied for IP not on allow-list: %s", ip)
			c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// SecurityLogger logs security events
type SecurityLogger struct {
	mu sync.Mutex
}

// NewSecurityLogger creates a new security logger
func NewSecurityLogger() *SecurityLogger {
	sl := &SecurityLogger{}
	GlobalSecurityLogger = sl
	return sl
}

// LogFailedAuth logs failed authentication attempts
func (sl *SecurityLogger) LogFailedAuth(ip string, reason string) {
	if sl == nil {
		return
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	logger.Warnf("[SECURITY-WARNING] Failed authentication from IP %s: %s", ip, reason)
}

// LogTokenGenerated logs token issuance
func (sl *SecurityLogger) LogTokenGenerated(source string, operator string) {
	if sl == nil {
		return
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	logger.Infof("[SECURITY] Token generated for operator %s from %s", operator, source)
}

// LogControlCommand records who issued a playback command
func (sl *SecurityLogger) LogControlCommand(ip string, operator string, command string) {
	if sl == nil {
		return
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	if operator == "" {
		operator = "anonymous"
	}
	logger.Infof("[SECURITY] Control %s by %s from IP %s", command, operator, ip)
}

// LogWebSocketConnected logs successful WebSocket connections
func (sl *SecurityLogger) LogWebSocketConnected(ip string, clientID string) {
	if sl == nil {
		return
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	logger.Infof("[SECURITY] WebSocket connected: %s from IP %s", clientID, ip)
}

// LogWebSocketDisconnected logs WebSocket disconnections
func (sl *SecurityLogger) LogWebSocketDisconnected(ip string, clientID string) {
	if sl == nil {
		return
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	logger.Infof("[SECURITY] WebSocket disconnected: %s from IP %s", clientID, ip)
}

// InputValidator validates and sanitizes user input
type InputValidator struct{}

// NewInputValidator creates a new input validator
func NewInputValidator() *InputValidator {
	return &InputValidator{}
}

// ValidateToken checks if token format is plausible before parsing
func (iv *InputValidator) ValidateToken(token string) bool {
	// JWT tokens are in format: header.payload.signature
	if len(token) < 20 || len(token) > 4096 {
		return false
	}
	return strings.Count(token, ".") == 2
}

// ValidateOperatorName checks if an operator name is safe to log and sign
func (iv *InputValidator) ValidateOperatorName(name string) bool {
	if len(name) < 1 || len(name) > 64 {
		return false
	}
	for _, c := range name {
		if !((c >= 'a' && c <= 'z') ||
			(c >= 'A' && c <= 'Z') ||
			(c >= '0' && c <= '9') ||
			c == '-' || c == '_' || c == '.' || c == '@') {
			return false
		}
	}
	return true
}
