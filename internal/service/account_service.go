package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strings"

	"storefront-service/internal/authadmin"
	"storefront-service/internal/models"
	"storefront-service/internal/util"

	"go.uber.org/zap"
)

var ErrInsufficientRole = errors.New("insufficient role")

const minPasswordLength = 6

// AuthAdmin is the identity provider admin surface
type AuthAdmin interface {
	CreateUser(ctx context.Context, req authadmin.CreateUserRequest) (*authadmin.User, error)
	DeleteUser(ctx context.Context, userID string) error
	UnbanUser(ctx context.Context, userID string) error
	RecoverPassword(ctx context.Context, email, redirectTo string) error
}

// RoleCache drops cached roles when a profile goes away
type RoleCache interface {
	InvalidateRole(ctx context.Context, userID string) error
}

// AccountService performs privileged user management
type AccountService struct {
	auth          AuthAdmin
	profiles      ProfileStore
	roles         RoleCache
	resetRedirect string
	logger        *zap.Logger
}

// NewAccountService creates a new account service
func NewAccountService(auth AuthAdmin, profiles ProfileStore, roles RoleCache, resetRedirect string) *AccountService {
	return &AccountService{
		auth:          auth,
		profiles:      profiles,
		roles:         roles,
		resetRedirect: resetRedirect,
		logger:        util.GetLogger(),
	}
}

// CreateUserRequest is the input of CreateUser
type CreateUserRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	CPF      string `json:"cpf"`
	Role     string `json:"role"`
}

// CreateUser creates a confirmed auth user and its profile
func (s *AccountService) CreateUser(ctx context.Context, actor Actor, req CreateUserRequest) (*models.Profile, error) {
	ctx, span := util.StartSpan(ctx, "AccountService.CreateUser")
	defer span.End()

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: invalid email", ErrInvalidInput)
	}
	if len(req.Password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must have at least %d characters", ErrInvalidInput, minPasswordLength)
	}

	role := req.Role
	if role == "" {
		role = models.RoleCustomer
	}
	if !models.IsValidRole(role) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	if role == models.RoleSuperAdmin && actor.Role != models.RoleSuperAdmin {
		return nil, ErrInsufficientRole
	}

	user, err := s.auth.CreateUser(ctx, authadmin.CreateUserRequest{
		Email:    email,
		Password: req.Password,
		FullName: req.FullName,
		Phone:    req.Phone,
	})
	if err != nil {
		return nil, err
	}

	profile := &models.Profile{
		ID:       user.ID,
		FullName: req.FullName,
		Email:    email,
		Phone:    optional(req.Phone),
		CPF:      optional(req.CPF),
		Role:     role,
	}
	if err := s.saveProfile(ctx, profile); err != nil {
		// compensate so the email can be reused
		if delErr := s.auth.DeleteUser(context.Background(), user.ID); delErr != nil {
			s.logger.Error("Failed to roll back auth user",
				zap.String("user_id", user.ID),
				zap.Error(delErr))
		}
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	s.logger.Info("User created",
		zap.String("user_id", user.ID),
		zap.String("role", role),
		zap.String("created_by", actor.ID))
	return profile, nil
}

// saveProfile inserts the profile, or overwrites the row the auth-events
// webhook may already have created for the same user.
func (s *AccountService) saveProfile(ctx context.Context, profile *models.Profile) error {
	created, err := s.profiles.CreateProfile(ctx, profile)
	if err != nil {
		return err
	}
	if created {
		return nil
	}

	if err := s.profiles.UpdateProfile(ctx, profile); err != nil {
		return err
	}
	if err := s.roles.InvalidateRole(ctx, profile.ID); err != nil {
		s.logger.Warn("Failed to invalidate cached role", zap.String("user_id", profile.ID), zap.Error(err))
	}
	return nil
}

// DeleteUser removes a user from auth and drops the profile
func (s *AccountService) DeleteUser(ctx context.Context, actor Actor, userID string) error {
	ctx, span := util.StartSpan(ctx, "AccountService.DeleteUser")
	defer span.End()

	if userID == actor.ID {
		return ErrSelfDelete
	}

	if err := s.auth.DeleteUser(ctx, userID); err != nil {
		if errors.Is(err, authadmin.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	if err := s.profiles.DeleteProfile(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	if err := s.roles.InvalidateRole(ctx, userID); err != nil {
		s.logger.Warn("Failed to invalidate cached role", zap.String("user_id", userID), zap.Error(err))
	}

	s.logger.Info("User deleted", zap.String("user_id", userID), zap.String("deleted_by", actor.ID))
	return nil
}

// UnbanUser lifts a ban
func (s *AccountService) UnbanUser(ctx context.Context, actor Actor, userID string) error {
	if err := s.auth.UnbanUser(ctx, userID); err != nil {
		if errors.Is(err, authadmin.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	s.logger.Info("User unbanned", zap.String("user_id", userID), zap.String("unbanned_by", actor.ID))
	return nil
}

// RequestPasswordReset sends a reset email. Unknown emails succeed silently.
func (s *AccountService) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("%w: invalid email", ErrInvalidInput)
	}

	err := s.auth.RecoverPassword(ctx, email, s.resetRedirect)
	var apiErr *authadmin.APIError
	if errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusNotFound ||
		strings.Contains(strings.ToLower(apiErr.Message), "user not found")) {
		return nil
	}
	return err
}
