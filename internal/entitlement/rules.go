// Package entitlement derives whether a feature grant is usable at a given
// instant. Nothing here expires grants in storage; callers evaluate on read.
package entitlement

import (
	"math"
	"time"

	"storefront-service/internal/models"
)

// Grant statuses
const (
	StatusActive   = "ativo"
	StatusTrial    = "trial"
	StatusInactive = "inativo"
)

// Period classifications
const (
	PeriodMonthly  = "mensal"
	PeriodAnnual   = "anual"
	PeriodLifetime = "vitalicio"
	PeriodTrial    = "trial"
	PeriodCourtesy = "cortesia"
)

// ExpiringSoonDays is the remaining-days threshold for the expiry warning
const ExpiringSoonDays = 7

// DefaultTrialDays applies when a feature has no trial length configured
const DefaultTrialDays = 7

// IsValidPeriod reports whether p is a known period classification
func IsValidPeriod(p string) bool {
	switch p {
	case PeriodMonthly, PeriodAnnual, PeriodLifetime, PeriodTrial, PeriodCourtesy:
		return true
	}
	return false
}

// neverExpires holds for lifetime and courtesy grants whatever data_expiracao says.
func neverExpires(period string) bool {
	return period == PeriodLifetime || period == PeriodCourtesy
}

// IsActive reports whether g is usable at now. An expiration equal to now is expired.
func IsActive(g models.UserFeature, now time.Time) bool {
	if g.Status != StatusActive && g.Status != StatusTrial {
		return false
	}
	if g.DataExpiracao == nil || neverExpires(g.TipoPeriodo) {
		return true
	}
	return g.DataExpiracao.After(now)
}

// RemainingDays returns ceil((expiration - now) / 1 day). ok is false when the
// grant carries no expiration.
func RemainingDays(g models.UserFeature, now time.Time) (days int, ok bool) {
	if g.DataExpiracao == nil {
		return 0, false
	}
	d := g.DataExpiracao.Sub(now)
	return int(math.Ceil(d.Hours() / 24)), true
}

// ExpiringSoon reports whether an active, expiring grant is within the warning window
func ExpiringSoon(g models.UserFeature, now time.Time) bool {
	if !IsActive(g, now) || neverExpires(g.TipoPeriodo) {
		return false
	}
	days, ok := RemainingDays(g, now)
	return ok && days <= ExpiringSoonDays
}

// ExpirationFor computes data_expiracao for a new grant starting at start
func ExpirationFor(period string, start time.Time, trialDays int) *time.Time {
	var exp time.Time
	switch period {
	case PeriodMonthly:
		exp = start.AddDate(0, 1, 0)
	case PeriodAnnual:
		exp = start.AddDate(1, 0, 0)
	case PeriodTrial:
		if trialDays <= 0 {
			trialDays = DefaultTrialDays
		}
		exp = start.AddDate(0, 0, trialDays)
	default:
		return nil
	}
	return &exp
}

// InitialStatus is the status a grant is written with
func InitialStatus(period string) string {
	if period == PeriodTrial {
		return StatusTrial
	}
	return StatusActive
}

// View is a grant decorated with its derived state
type View struct {
	models.UserFeature
	Active        bool `json:"active"`
	RemainingDays *int `json:"remaining_days,omitempty"`
	ExpiringSoon  bool `json:"expiring_soon"`
}

// Describe derives the View of g at now
func Describe(g models.UserFeature, now time.Time) View {
	v := View{
		UserFeature:  g,
		Active:       IsActive(g, now),
		ExpiringSoon: ExpiringSoon(g, now),
	}
	if days, ok := RemainingDays(g, now); ok {
		v.RemainingDays = &days
	}
	return v
}

// ActiveSlugs returns the set of feature slugs active at now
func ActiveSlugs(grants []models.UserFeature, now time.Time) map[string]bool {
	out := make(map[string]bool, len(grants))
	for _, g := range grants {
		if IsActive(g, now) {
			out[g.FeatureSlug] = true
		}
	}
	return out
}

// MissingDependencies lists the dependencies of f not present in active
func MissingDependencies(f models.Feature, active map[string]bool) []string {
	var missing []string
	for _, dep := range f.Dependencies {
		if !active[dep] {
			missing = append(missing, dep)
		}
	}
	return missing
}
