package domain

import (
	"encoding/json"
	"time"
)

// LightIntent is the caller's requested light action.
type LightIntent string

const (
	TurnOn  LightIntent = "turn_on"
	TurnOff LightIntent = "turn_off"
)

// RateLimitEntry is the per-identifier counter held by a rate limit store.
// One live entry per identifier; Count never grows past the configured
// limit because rejected checks do not mutate it.
type RateLimitEntry struct {
	Count     int       `json:"count"`
	ResetTime time.Time `json:"resetTime"`
}

// RateLimitResult is the outcome of a single rate limit check.
type RateLimitResult struct {
	Allowed   bool      `json:"allowed"`
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	ResetTime time.Time `json:"resetTime"`
}

// RetryAfterSeconds returns the whole seconds a rejected caller should
// wait before retrying, rounded up, never below zero.
func (r *RateLimitResult) RetryAfterSeconds(now time.Time) int {
	wait := r.ResetTime.Sub(now)
	if wait <= 0 {
		return 0
	}
	secs := int(wait / time.Second)
	if wait%time.Second > 0 {
		secs++
	}
	return secs
}

// LogEntry is one visitor action in the activity log.
type LogEntry struct {
	Action    string    `json:"action"`
	Visitor   string    `json:"visitor"`
	Timestamp time.Time `json:"timestamp"`
}

// ToggleResult is returned by a successful light toggle. Data carries the
// raw upstream response body untouched.
type ToggleResult struct {
	Action LightIntent     `json:"action"`
	Data   json.RawMessage `json:"data"`
}

// StateResult is returned by a light state query.
type StateResult struct {
	LightsOn bool   `json:"lightsOn"`
	State    string `json:"state"`
}
