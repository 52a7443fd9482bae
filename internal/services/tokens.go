package services

import (
	"context"
	"strings"
	"time"

	"github.com/AnshRaj112/visitor-backend/internal/apperrors"
	"github.com/AnshRaj112/visitor-backend/internal/models"
	"github.com/AnshRaj112/visitor-backend/internal/store"
)

// TokenRegistry keeps the set of devices that receive new-visitor alerts.
type TokenRegistry struct {
	tokens    store.TokenStore
	clock     Clock
	retention time.Duration
}

func NewTokenRegistry(tokens store.TokenStore, clock Clock, retention time.Duration) *TokenRegistry {
	if clock == nil {
		clock = RealClock{}
	}
	if retention <= 0 {
		retention = models.TokenRetention
	}
	return &TokenRegistry{tokens: tokens, clock: clock, retention: retention}
}

// Register adds token, or refreshes it when its normalized form is already known.
// It reports whether a new registration was created.
func (r *TokenRegistry) Register(ctx context.Context, token string) (bool, error) {
	key := models.NormalizeTokenKey(token)
	if key == "" {
		return false, apperrors.Validation("token is required")
	}

	now := r.clock.Now()
	sctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	created, err := r.tokens.Upsert(sctx, models.PushToken{
		Key:       key,
		Token:     strings.TrimSpace(token),
		CreatedAt: now,
	}, now)
	if err != nil {
		return false, apperrors.TransientIO("failed to save token", err)
	}
	return created, nil
}

// Active returns tokens registered within the retention window.
func (r *TokenRegistry) Active(ctx context.Context) ([]models.PushToken, error) {
	return r.tokens.FindActive(ctx, r.clock.Now().Add(-r.retention))
}

// MarkUsed refreshes lastUsedAt after a successful delivery.
func (r *TokenRegistry) MarkUsed(ctx context.Context, t models.PushToken) error {
	return r.tokens.Touch(ctx, t.Key, r.clock.Now())
}
