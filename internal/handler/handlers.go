package handler

import (
	"errors"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"lights-api/internal/domain"
	"lights-api/internal/middleware"
)

// RateLimits carries the per-route limits applied by SetupRoutes.
type RateLimits struct {
	ToggleLimit int
	LogLimit    int
	Window      time.Duration
}

// Handlers wires the HTTP surface: light control, the activity log and
// the operational endpoints.
type Handlers struct {
	lights    domain.LightsService
	activity  domain.ActivityLog
	store     domain.RateLimitStore
	limits    RateLimits
	logger    domain.Logger
	startTime time.Time
}

// NewHandlers builds the handler set.
func NewHandlers(lights domain.LightsService, activity domain.ActivityLog, store domain.RateLimitStore, limits RateLimits, logger domain.Logger) *Handlers {
	return &Handlers{
		lights:    lights,
		activity:  activity,
		store:     store,
		limits:    limits,
		logger:    logger,
		startTime: time.Now(),
	}
}

// SetupRoutes registers every route. The two mutating routes each get
// their own rate limit; the read paths are unlimited.
func (h *Handlers) SetupRoutes(router *gin.Engine) {
	router.GET("/health", h.HealthHandler)
	router.GET("/metrics", h.MetricsHandler)

	toggleLimiter := middleware.NewRateLimiter(h.store, h.logger,
		h.limits.ToggleLimit, h.limits.Window, "Please wait before toggling lights again")
	logLimiter := middleware.NewRateLimiter(h.store, h.logger,
		h.limits.LogLimit, h.limits.Window, "Please wait before submitting another log entry")

	router.POST("/lights", toggleLimiter, h.ToggleLightsHandler)
	router.GET("/lights", h.LightStateHandler)
	router.POST("/lights/log", logLimiter, h.AppendLogHandler)
	router.GET("/lights/log", h.RecentLogsHandler)
}

// ToggleRequest is the body of POST /lights.
type ToggleRequest struct {
	Action string `json:"action"`
}

// ToggleLightsHandler forwards a turn_on/turn_off intent upstream.
func (h *Handlers) ToggleLightsHandler(c *gin.Context) {
	ctx := c.Request.Context()
	log := h.logger.WithContext(ctx)

	var req ToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": "Invalid request body: " + err.Error(),
		})
		return
	}

	result, err := h.lights.TogglePower(ctx, domain.LightIntent(req.Action))
	if err != nil {
		h.renderLightsError(c, log, err, "Failed to control lights")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"action":  result.Action,
		"data":    result.Data,
	})
}

// LightStateHandler reports whether the light is currently on.
func (h *Handlers) LightStateHandler(c *gin.Context) {
	ctx := c.Request.Context()
	log := h.logger.WithContext(ctx)

	result, err := h.lights.QueryState(ctx)
	if err != nil {
		h.renderLightsError(c, log, err, "Failed to get light state")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"lightsOn": result.LightsOn,
		"state":    result.State,
	})
}

// LogRequest is the body of POST /lights/log. All fields are required.
type LogRequest struct {
	Action    string `json:"action"`
	Visitor   string `json:"visitor"`
	Timestamp string `json:"timestamp"`
}

// AppendLogHandler records one visitor action. Validation happens before
// any file I/O; the stored timestamp is normalized to UTC.
func (h *Handlers) AppendLogHandler(c *gin.Context) {
	ctx := c.Request.Context()
	log := h.logger.WithContext(ctx)

	var req LogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}

	if req.Action == "" || req.Visitor == "" || req.Timestamp == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}

	timestamp, err := parseTimestamp(req.Timestamp)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid timestamp",
			"message": err.Error(),
		})
		return
	}

	entry := domain.LogEntry{
		Action:    req.Action,
		Visitor:   req.Visitor,
		Timestamp: timestamp.UTC(),
	}

	if err := h.activity.Append(ctx, entry); err != nil {
		log.Error("Failed to save log entry", err, map[string]interface{}{
			"visitor": req.Visitor,
		})
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to save log entry",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Log entry added",
	})
}

// RecentLogsHandler returns the 50 newest entries and the total count.
func (h *Handlers) RecentLogsHandler(c *gin.Context) {
	ctx := c.Request.Context()
	log := h.logger.WithContext(ctx)

	logs, total, err := h.activity.Recent(ctx, 50)
	if err != nil {
		log.Error("Failed to read logs", err, nil)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to read logs",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"logs":    logs,
		"total":   total,
	})
}

// HealthHandler implements the liveness probe, including a store check.
func (h *Handlers) HealthHandler(c *gin.Context) {
	status := "healthy"
	code := http.StatusOK

	if h.store != nil {
		if err := h.store.Health(c.Request.Context()); err != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
	}

	c.JSON(code, gin.H{
		"status":    status,
		"service":   "Lights API",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   "1.0.0",
	})
}

// MetricsHandler reports uptime and runtime statistics.
func (h *Handlers) MetricsHandler(c *gin.Context) {
	uptime := time.Since(h.startTime)

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	c.JSON(http.StatusOK, gin.H{
		"service":        "Lights API",
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
		"uptime":         uptime.String(),
		"uptime_seconds": int64(uptime.Seconds()),
		"system": gin.H{
			"go_version":   runtime.Version(),
			"goroutines":   runtime.NumGoroutine(),
			"memory_alloc": formatBytes(m.Alloc),
			"memory_sys":   formatBytes(m.Sys),
			"gc_runs":      m.NumGC,
		},
		"rate_limits": gin.H{
			"toggle":         h.limits.ToggleLimit,
			"log":            h.limits.LogLimit,
			"window_seconds": int(h.limits.Window.Seconds()),
		},
	})
}

// renderLightsError maps service errors onto the error taxonomy: missing
// token is a configuration error, an upstream failure relays its status
// and body, anything else is a generic internal error.
func (h *Handlers) renderLightsError(c *gin.Context, log domain.Logger, err error, message string) {
	if errors.Is(err, domain.ErrTokenNotConfigured) {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Home Assistant token not configured",
		})
		return
	}

	var upstream *domain.UpstreamError
	if errors.As(err, &upstream) {
		c.JSON(upstream.StatusCode, gin.H{
			"error":   message,
			"details": upstream.Body,
		})
		return
	}

	log.Error(message, err, nil)
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   "Internal server error",
		"details": err.Error(),
	})
}

// parseTimestamp accepts RFC 3339 timestamps with or without fractional
// seconds.
func parseTimestamp(value string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, errors.New("timestamp must be RFC 3339")
}

func formatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return strconv.FormatUint(bytes, 10) + " B"
	}

	div, exp := uint64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	return strconv.FormatFloat(float64(bytes)/float64(div), 'f', 1, 64) + " " + "KMGTPE"[exp:exp+1] + "B"
}
