package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"lights-api/internal/domain"
	"lights-api/internal/logger"
)

// RateLimiter wraps a store into per-route gin middleware. Each mutating
// route builds its own instance with its own limit; the window is shared.
type RateLimiter struct {
	store  domain.RateLimitStore
	logger domain.Logger
	limit  int
	window time.Duration
	reject string // human-readable throttle message for this route
}

// NewRateLimiter returns middleware that admits at most limit requests
// per window per client identifier, responding 429 with retry metadata
// otherwise. A store failure fails open: the request proceeds unlimited.
func NewRateLimiter(store domain.RateLimitStore, log domain.Logger, limit int, window time.Duration, rejectMessage string) gin.HandlerFunc {
	m := &RateLimiter{
		store:  store,
		logger: log,
		limit:  limit,
		window: window,
		reject: rejectMessage,
	}
	return m.Handle
}

// Handle runs the rate limit check before the route handler.
func (m *RateLimiter) Handle(c *gin.Context) {
	requestID := m.getRequestID(c)
	identifier := GetClientIdentifier(c)

	ctx := logger.ContextWithRequestInfo(c.Request.Context(), requestID, identifier, c.Request.URL.Path)
	c.Request = c.Request.WithContext(ctx)
	log := m.logger.WithContext(ctx)

	result, err := m.store.Check(ctx, identifier, m.limit, m.window)
	if err != nil {
		// Fail open: a broken store degrades to no rate limiting rather
		// than rejecting traffic.
		log.Error("Rate limit check failed, allowing request", err, map[string]interface{}{
			"identifier": identifier,
		})
		c.Next()
		return
	}

	setRateLimitHeaders(c, result)

	if !result.Allowed {
		log.Info("Request rate limited", map[string]interface{}{
			"identifier": identifier,
			"limit":      result.Limit,
			"reset_time": result.ResetTime.UnixMilli(),
		})

		retryAfter := result.RetryAfterSeconds(time.Now())
		c.Header("Retry-After", strconv.Itoa(retryAfter))
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":     "Too many requests",
			"message":   m.reject,
			"resetTime": result.ResetTime.UnixMilli(),
		})
		c.Abort()
		return
	}

	log.Debug("Request allowed by rate limiter", map[string]interface{}{
		"identifier": identifier,
		"remaining":  result.Remaining,
	})

	c.Next()
}

// GetClientIdentifier derives a best-effort client identifier from proxy
// headers: first X-Forwarded-For entry, then X-Real-IP, then Cloudflare's
// CF-Connecting-IP, then the literal "unknown". A request with no usable
// identifier is effectively unlimited.
func GetClientIdentifier(c *gin.Context) string {
	ip := ""

	if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		ip = strings.TrimSpace(parts[0])
	}

	if ip == "" {
		ip = strings.TrimSpace(c.GetHeader("X-Real-IP"))
	}

	if ip == "" {
		ip = strings.TrimSpace(c.GetHeader("CF-Connecting-IP"))
	}

	if ip == "" {
		ip = "unknown"
	}

	// Never hand the store an empty key.
	if ip == "" {
		ip = "fallback-" + uuid.New().String()
	}

	return ip
}

func setRateLimitHeaders(c *gin.Context, result *domain.RateLimitResult) {
	c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetTime.UnixMilli(), 10))
}

func (m *RateLimiter) getRequestID(c *gin.Context) string {
	if requestID := c.GetHeader("X-Request-ID"); requestID != "" {
		return requestID
	}

	requestID := uuid.New().String()
	c.Header("X-Request-ID", requestID)
	return requestID
}
