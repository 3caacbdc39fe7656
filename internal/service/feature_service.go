package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront-service/internal/entitlement"
	"storefront-service/internal/models"
	"storefront-service/internal/store"
	"storefront-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FeatureService grants, revokes and evaluates feature entitlements
type FeatureService struct {
	store          FeatureStore
	eventPublisher FeatureEventPublisher
	now            func() time.Time
	logger         *zap.Logger
}

// NewFeatureService creates a new feature service
func NewFeatureService(store FeatureStore, eventPublisher FeatureEventPublisher) *FeatureService {
	return &FeatureService{
		store:          store,
		eventPublisher: eventPublisher,
		now:            time.Now,
		logger:         util.GetLogger(),
	}
}

// AssignRequest is the input of Assign
type AssignRequest struct {
	UserID string
	Slug   string
	Period string
	Reason string
	Actor  string
}

// ListCatalog returns the active features
func (s *FeatureService) ListCatalog(ctx context.Context) ([]models.Feature, error) {
	return s.store.ListActiveFeatures(ctx)
}

// Assign grants a feature to a user, replacing any previous grant of it
func (s *FeatureService) Assign(ctx context.Context, req AssignRequest) (*entitlement.View, error) {
	ctx, span := util.StartSpan(ctx, "FeatureService.Assign")
	defer span.End()

	if !entitlement.IsValidPeriod(req.Period) {
		util.FeatureGrantsRejected.WithLabelValues("invalid_period").Inc()
		return nil, fmt.Errorf("%w: %q", ErrInvalidPeriod, req.Period)
	}

	feature, err := s.store.GetFeatureBySlug(ctx, req.Slug)
	if errors.Is(err, store.ErrNotFound) || (err == nil && !feature.Active) {
		util.FeatureGrantsRejected.WithLabelValues("unknown_feature").Inc()
		return nil, fmt.Errorf("%w: %s", ErrFeatureNotFound, req.Slug)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load feature: %w", err)
	}

	now := s.now()
	if len(feature.Dependencies) > 0 {
		grants, err := s.store.ListUserFeatures(ctx, req.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to load user features: %w", err)
		}
		if missing := entitlement.MissingDependencies(*feature, entitlement.ActiveSlugs(grants, now)); len(missing) > 0 {
			util.FeatureGrantsRejected.WithLabelValues("missing_dependency").Inc()
			return nil, &DependencyError{Feature: feature.Slug, Missing: missing}
		}
	}

	grant := &models.UserFeature{
		UserID:        req.UserID,
		FeatureID:     feature.ID,
		FeatureSlug:   feature.Slug,
		Status:        entitlement.InitialStatus(req.Period),
		TipoPeriodo:   req.Period,
		DataInicio:    now,
		DataExpiracao: entitlement.ExpirationFor(req.Period, now, feature.TrialDays),
		Motivo:        optional(req.Reason),
		AtribuidoPor:  optional(req.Actor),
	}
	if err := s.store.UpsertUserFeature(ctx, grant); err != nil {
		return nil, fmt.Errorf("failed to save grant: %w", err)
	}

	util.FeatureGrantsTotal.WithLabelValues(req.Period).Inc()
	s.logger.Info("Feature granted",
		zap.String("user_id", req.UserID),
		zap.String("feature", feature.Slug),
		zap.String("period", req.Period),
		zap.String("actor", req.Actor))

	event := &models.FeatureGrantedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeFeatureGranted,
			Timestamp: now,
		},
		UserID:        req.UserID,
		FeatureSlug:   feature.Slug,
		TipoPeriodo:   req.Period,
		DataExpiracao: grant.DataExpiracao,
		AtribuidoPor:  req.Actor,
	}
	if err := s.eventPublisher.PublishFeatureGranted(ctx, event); err != nil {
		s.logger.Error("Failed to publish FeatureGranted event", zap.Error(err))
	}

	view := entitlement.Describe(*grant, now)
	return &view, nil
}

// Revoke deactivates a grant immediately. Features depending on it are left as they are.
func (s *FeatureService) Revoke(ctx context.Context, userID, slug, reason, actor string) error {
	ctx, span := util.StartSpan(ctx, "FeatureService.Revoke")
	defer span.End()

	grant, err := s.store.GetUserFeature(ctx, userID, slug)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrGrantNotFound, slug)
	}
	if err != nil {
		return fmt.Errorf("failed to load grant: %w", err)
	}

	err = s.store.DeactivateUserFeature(ctx, userID, grant.FeatureID, entitlement.StatusInactive, optional(reason), optional(actor))
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrGrantNotFound, slug)
	}
	if err != nil {
		return fmt.Errorf("failed to revoke grant: %w", err)
	}

	util.FeatureRevocationsTotal.Inc()
	s.logger.Info("Feature revoked",
		zap.String("user_id", userID),
		zap.String("feature", slug),
		zap.String("actor", actor))

	event := &models.FeatureRevokedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeFeatureRevoked,
			Timestamp: s.now(),
		},
		UserID:      userID,
		FeatureSlug: slug,
		Reason:      reason,
		RevokedBy:   actor,
	}
	if err := s.eventPublisher.PublishFeatureRevoked(ctx, event); err != nil {
		s.logger.Error("Failed to publish FeatureRevoked event", zap.Error(err))
	}
	return nil
}

// ListUserFeatures returns every grant of a user with its derived state
func (s *FeatureService) ListUserFeatures(ctx context.Context, userID string) ([]entitlement.View, error) {
	grants, err := s.store.ListUserFeatures(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user features: %w", err)
	}

	now := s.now()
	views := make([]entitlement.View, 0, len(grants))
	for _, g := range grants {
		views = append(views, entitlement.Describe(g, now))
	}
	return views, nil
}

// HasFeature reports whether the user may use slug right now
func (s *FeatureService) HasFeature(ctx context.Context, userID, slug string) (bool, error) {
	grant, err := s.store.GetUserFeature(ctx, userID, slug)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return entitlement.IsActive(*grant, s.now()), nil
}
