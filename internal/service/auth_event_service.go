package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/util"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const authEventDedupTTL = 24 * time.Hour

// Outcomes of AuthEventService.Handle
const (
	AuthEventCreated   = "created"
	AuthEventExists    = "exists"
	AuthEventDeleted   = "deleted"
	AuthEventIgnored   = "ignored"
	AuthEventDuplicate = "duplicate"
)

// AuthEvent is a database webhook payload about the auth users table
type AuthEvent struct {
	Type      string          `json:"type"`
	Table     string          `json:"table"`
	Schema    string          `json:"schema"`
	Record    json.RawMessage `json:"record"`
	OldRecord json.RawMessage `json:"old_record"`
}

// IdempotencyStore remembers which deliveries were already handled
type IdempotencyStore interface {
	ClaimIdempotencyKey(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// AuthEventService keeps profiles in step with auth users
type AuthEventService struct {
	profiles ProfileStore
	roles    RoleCache
	dedup    IdempotencyStore
	logger   *zap.Logger
}

// NewAuthEventService creates a new auth event service
func NewAuthEventService(profiles ProfileStore, roles RoleCache, dedup IdempotencyStore) *AuthEventService {
	return &AuthEventService{
		profiles: profiles,
		roles:    roles,
		dedup:    dedup,
		logger:   util.GetLogger(),
	}
}

// Handle applies one event and reports what it did
func (s *AuthEventService) Handle(ctx context.Context, ev AuthEvent) (string, error) {
	outcome, err := s.handle(ctx, ev)
	if err != nil {
		util.AuthEventsTotal.WithLabelValues(ev.Type, "error").Inc()
		return "", err
	}
	util.AuthEventsTotal.WithLabelValues(ev.Type, outcome).Inc()
	return outcome, nil
}

func (s *AuthEventService) handle(ctx context.Context, ev AuthEvent) (string, error) {
	if ev.Table != "users" {
		return AuthEventIgnored, nil
	}

	record := ev.Record
	if strings.EqualFold(ev.Type, "DELETE") {
		record = ev.OldRecord
	}
	userID := gjson.GetBytes(record, "id").String()

	switch strings.ToUpper(ev.Type) {
	case "INSERT", "DELETE":
	default:
		return AuthEventIgnored, nil
	}
	if userID == "" {
		return "", fmt.Errorf("%w: record without id", ErrUnsupportedAuthEvent)
	}

	first, err := s.dedup.ClaimIdempotencyKey(ctx, "auth-event:"+strings.ToUpper(ev.Type)+":"+userID, authEventDedupTTL)
	if err != nil {
		return "", fmt.Errorf("failed to claim auth event: %w", err)
	}
	if !first {
		return AuthEventDuplicate, nil
	}

	if strings.EqualFold(ev.Type, "DELETE") {
		if err := s.profiles.DeleteProfile(ctx, userID); err != nil {
			return "", fmt.Errorf("failed to delete profile: %w", err)
		}
		if err := s.roles.InvalidateRole(ctx, userID); err != nil {
			s.logger.Warn("Failed to invalidate cached role", zap.String("user_id", userID), zap.Error(err))
		}
		s.logger.Info("Profile removed for deleted auth user", zap.String("user_id", userID))
		return AuthEventDeleted, nil
	}

	meta := gjson.GetBytes(record, "raw_user_meta_data")
	profile := &models.Profile{
		ID:       userID,
		Email:    gjson.GetBytes(record, "email").String(),
		FullName: meta.Get("full_name").String(),
		Phone:    optional(gjson.GetBytes(record, "phone").String()),
		CPF:      optional(meta.Get("cpf").String()),
		Role:     models.RoleCustomer,
	}

	created, err := s.profiles.CreateProfile(ctx, profile)
	if err != nil {
		return "", fmt.Errorf("failed to create profile: %w", err)
	}
	if !created {
		return AuthEventExists, nil
	}

	s.logger.Info("Profile created for new auth user", zap.String("user_id", userID))
	return AuthEventCreated, nil
}
