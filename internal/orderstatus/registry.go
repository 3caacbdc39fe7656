// Package orderstatus holds the closed set of order statuses, their display
// labels and the per-role transition table used by order management.
package orderstatus

import "storefront-service/internal/models"

// Status is a stored order status value
type Status string

const (
	Pending    Status = "pendente"
	Confirmed  Status = "confirmado"
	InRestock  Status = "em_reposicao"
	OutOfStock Status = "sem_estoque"
	Shipped    Status = "enviado"
	Delivered  Status = "entregue"
	Cancelled  Status = "cancelado"
)

// Initial is assigned when an order is created
const Initial = Pending

// Variant is the visual style a client renders a status badge with
type Variant string

const (
	VariantDefault     Variant = "default"
	VariantSecondary   Variant = "secondary"
	VariantSuccess     Variant = "success"
	VariantWarning     Variant = "warning"
	VariantDestructive Variant = "destructive"
	VariantOutline     Variant = "outline"
)

// Label is the human-readable rendering of a status
type Label struct {
	Text    string  `json:"text"`
	Variant Variant `json:"variant"`
}

// Fallback is returned for any value outside the closed set
var Fallback = Label{Text: "Desconhecido", Variant: VariantOutline}

var all = []Status{Pending, Confirmed, InRestock, OutOfStock, Shipped, Delivered, Cancelled}

var labels = map[Status]Label{
	Pending:    {Text: "Pendente", Variant: VariantSecondary},
	Confirmed:  {Text: "Confirmado", Variant: VariantDefault},
	InRestock:  {Text: "Em reposição", Variant: VariantWarning},
	OutOfStock: {Text: "Sem estoque", Variant: VariantDestructive},
	Shipped:    {Text: "Enviado", Variant: VariantDefault},
	Delivered:  {Text: "Entregue", Variant: VariantSuccess},
	Cancelled:  {Text: "Cancelado", Variant: VariantDestructive},
}

// adminTransitions is the superset every other role is filtered from.
var adminTransitions = map[Status][]Status{
	Pending:    {Confirmed, InRestock, OutOfStock, Cancelled},
	Confirmed:  {InRestock, OutOfStock, Shipped, Cancelled},
	InRestock:  {Confirmed, OutOfStock, Shipped, Cancelled},
	OutOfStock: {InRestock, Confirmed, Cancelled},
	Shipped:    {Delivered, Cancelled},
	Delivered:  {},
	Cancelled:  {},
}

// supplierAllowed are the targets a supplier may pick from the admin list.
var supplierAllowed = map[Status]bool{
	Confirmed:  true,
	InRestock:  true,
	OutOfStock: true,
	Shipped:    true,
}

// All returns every status in display order
func All() []Status {
	out := make([]Status, len(all))
	copy(out, all)
	return out
}

// IsValid reports whether s belongs to the closed set
func IsValid(s string) bool {
	_, ok := labels[Status(s)]
	return ok
}

// IsTerminal reports whether no transition leaves s
func IsTerminal(s Status) bool {
	return s == Delivered || s == Cancelled
}

// LabelFor maps a status to its label, falling back silently for unknown values
func LabelFor(s string) Label {
	if l, ok := labels[Status(s)]; ok {
		return l
	}
	return Fallback
}

// AvailableTransitions lists the statuses role may move an order in current into
func AvailableTransitions(current string, role string) []Status {
	from := Status(current)
	if IsTerminal(from) {
		return []Status{}
	}

	next, ok := adminTransitions[from]
	if !ok {
		return []Status{}
	}

	switch {
	case models.IsAdminRole(role):
		out := make([]Status, 0, len(next))
		for _, s := range next {
			if s != from {
				out = append(out, s)
			}
		}
		return out
	case role == models.RoleSupplier:
		out := make([]Status, 0, len(next))
		for _, s := range next {
			if s != from && supplierAllowed[s] {
				out = append(out, s)
			}
		}
		return out
	default:
		return []Status{}
	}
}

// CanTransition reports whether role may move an order from current to next
func CanTransition(current, next string, role string) bool {
	for _, s := range AvailableTransitions(current, role) {
		if string(s) == next {
			return true
		}
	}
	return false
}
