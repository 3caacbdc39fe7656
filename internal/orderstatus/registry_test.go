package orderstatus

import (
	"testing"

	"storefront-service/internal/models"

	"github.com/stretchr/testify/assert"
)

var roles = []string{
	models.RoleAdmin,
	models.RoleSuperAdmin,
	models.RoleSupplier,
	models.RoleReseller,
	models.RoleCustomer,
	"",
}

func TestLabelForKnownStatuses(t *testing.T) {
	validVariants := map[Variant]bool{
		VariantDefault: true, VariantSecondary: true, VariantSuccess: true,
		VariantWarning: true, VariantDestructive: true, VariantOutline: true,
	}

	for _, s := range All() {
		l := LabelFor(string(s))
		assert.NotEmpty(t, l.Text, "status %s", s)
		assert.True(t, validVariants[l.Variant], "status %s has variant %q", s, l.Variant)
		assert.NotEqual(t, Fallback, l, "status %s should not use the fallback", s)
	}
}

func TestLabelForUnknownFallsBack(t *testing.T) {
	for _, s := range []string{"", "PENDENTE", "shipped", "devolvido", "  pendente"} {
		assert.NotPanics(t, func() {
			assert.Equal(t, Fallback, LabelFor(s))
		})
	}
}

func TestAvailableTransitionsNeverIncludesCurrent(t *testing.T) {
	for _, s := range All() {
		for _, role := range roles {
			for _, next := range AvailableTransitions(string(s), role) {
				assert.NotEqual(t, s, next, "role %q from %s", role, s)
			}
		}
	}
}

func TestTerminalStatesHaveNoTransitions(t *testing.T) {
	for _, s := range []Status{Delivered, Cancelled} {
		assert.True(t, IsTerminal(s))
		for _, role := range roles {
			assert.Empty(t, AvailableTransitions(string(s), role), "role %q from %s", role, s)
		}
	}
}

func TestSupplierIsSubsetOfAdmin(t *testing.T) {
	for _, s := range All() {
		admin := AvailableTransitions(string(s), models.RoleAdmin)
		for _, next := range AvailableTransitions(string(s), models.RoleSupplier) {
			assert.Contains(t, admin, next)
			assert.NotEqual(t, Cancelled, next)
			assert.NotEqual(t, Delivered, next)
		}
	}
}

func TestSupplierCanMarkStock(t *testing.T) {
	next := AvailableTransitions(string(Confirmed), models.RoleSupplier)
	assert.Equal(t, []Status{InRestock, OutOfStock, Shipped}, next)
	assert.False(t, CanTransition(string(Confirmed), string(Cancelled), models.RoleSupplier))
	assert.True(t, CanTransition(string(Confirmed), string(Cancelled), models.RoleAdmin))
}

func TestCustomerAndUnknownStatus(t *testing.T) {
	assert.Empty(t, AvailableTransitions(string(Pending), models.RoleCustomer))
	assert.Empty(t, AvailableTransitions("devolvido", models.RoleAdmin))
	assert.False(t, IsValid("devolvido"))
	assert.True(t, IsValid(string(InRestock)))
}
