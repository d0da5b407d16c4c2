package domain

import (
	"context"
	"time"
)

// RateLimitStore holds per-identifier request counters.
// Implemented in memory (default) and on Redis, selected by configuration.
type RateLimitStore interface {
	// Check records one request attempt for key and reports whether it is
	// allowed within the current window. A rejected attempt never mutates
	// the stored counter.
	Check(ctx context.Context, key string, limit int, window time.Duration) (*RateLimitResult, error)

	// Sweep deletes entries whose window has expired and returns how many
	// were removed. Housekeeping only; Check already treats expired
	// entries as absent.
	Sweep(ctx context.Context) (int, error)

	// Health verifies the store is reachable.
	Health(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}

// LightController is the narrow surface of the home-automation service:
// send a named command to a device, or read its current state.
type LightController interface {
	CallService(ctx context.Context, service string, entityID string) ([]byte, error)
	GetState(ctx context.Context, entityID string) (string, []byte, error)
}

// ActivityLog is the persisted record of who toggled the lights and when.
type ActivityLog interface {
	// Append inserts entry at the front and truncates the log to its cap.
	Append(ctx context.Context, entry LogEntry) error

	// Recent returns up to n newest entries plus the true total count.
	// A missing or unreadable log reads as empty, never as an error.
	Recent(ctx context.Context, n int) ([]LogEntry, int, error)
}

// LightsService is the business logic behind the /lights endpoints.
type LightsService interface {
	TogglePower(ctx context.Context, intent LightIntent) (*ToggleResult, error)
	QueryState(ctx context.Context) (*StateResult, error)
}

// Logger is the structured logging surface shared by all components.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, err error, fields map[string]interface{})
	WithContext(ctx context.Context) Logger
}
