package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrOrderNotFound        = errors.New("order not found")
	ErrOrderLocked          = errors.New("order is being updated by another operator")
	ErrTransitionNotAllowed = errors.New("status transition not allowed")
	ErrInvalidStatus        = errors.New("invalid order status")
	ErrInvalidPaymentStatus = errors.New("invalid payment status")
	ErrFeatureNotFound      = errors.New("feature not found")
	ErrGrantNotFound        = errors.New("feature grant not found")
	ErrInvalidPeriod        = errors.New("invalid period")
	ErrSelfDelete           = errors.New("cannot delete your own account")
	ErrUserNotFound         = errors.New("user not found")
	ErrInvalidRole          = errors.New("invalid role")
	ErrInvalidInput         = errors.New("invalid input")
	ErrInvalidReportDate    = errors.New("invalid report date")
	ErrUnsupportedAuthEvent = errors.New("unsupported auth event")
)

// DependencyError lists the prerequisite features a user lacks
type DependencyError struct {
	Feature string
	Missing []string
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("feature %s requires active features: %s", e.Feature, strings.Join(e.Missing, ", "))
}
