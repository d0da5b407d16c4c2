package service

import (
	"context"
	"fmt"

	"lights-api/internal/domain"
)

// Lights implements domain.LightsService against a LightController.
// The handler layer stays thin; intent validation, the configuration
// gate and upstream error shaping all live here.
type Lights struct {
	controller domain.LightController
	token      string
	entityID   string
	logger     domain.Logger
}

// NewLights builds the lights service for a single fixed entity.
func NewLights(controller domain.LightController, token, entityID string, logger domain.Logger) *Lights {
	return &Lights{
		controller: controller,
		token:      token,
		entityID:   entityID,
		logger:     logger,
	}
}

// TogglePower issues the turn_on or turn_off service call. Any intent
// other than turn_on is treated as turn_off. A missing token fails fast
// with no outbound call; an upstream failure is relayed, never retried.
func (s *Lights) TogglePower(ctx context.Context, intent domain.LightIntent) (*domain.ToggleResult, error) {
	if s.token == "" {
		return nil, domain.ErrTokenNotConfigured
	}

	action := domain.TurnOff
	if intent == domain.TurnOn {
		action = domain.TurnOn
	}

	body, err := s.controller.CallService(ctx, string(action), s.entityID)
	if err != nil {
		s.logger.WithContext(ctx).Error("Light toggle failed", err, map[string]interface{}{
			"action":    action,
			"entity_id": s.entityID,
		})
		return nil, fmt.Errorf("failed to toggle lights: %w", err)
	}

	s.logger.WithContext(ctx).Info("Light toggled", map[string]interface{}{
		"action":    action,
		"entity_id": s.entityID,
	})

	return &domain.ToggleResult{
		Action: action,
		Data:   body,
	}, nil
}

// QueryState reads the entity state and maps "on" to lightsOn=true;
// anything else ("off", "unavailable", ...) is false.
func (s *Lights) QueryState(ctx context.Context) (*domain.StateResult, error) {
	if s.token == "" {
		return nil, domain.ErrTokenNotConfigured
	}

	state, _, err := s.controller.GetState(ctx, s.entityID)
	if err != nil {
		s.logger.WithContext(ctx).Error("Light state query failed", err, map[string]interface{}{
			"entity_id": s.entityID,
		})
		return nil, fmt.Errorf("failed to get light state: %w", err)
	}

	return &domain.StateResult{
		LightsOn: state == "on",
		State:    state,
	}, nil
}
