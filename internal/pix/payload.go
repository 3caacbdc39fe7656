package pix

import (
	"context"
	"time"

	"storefront-service/internal/models"
)

// Payload is the order description sent to the PIX provider
type Payload struct {
	Pedido    Pedido    `json:"pedido"`
	Cliente   Cliente   `json:"cliente"`
	Produtos  []Produto `json:"produtos"`
	Pagamento Pagamento `json:"pagamento"`
}

type Pedido struct {
	ID       string    `json:"id"`
	Total    float64   `json:"total"`
	CriadoEm time.Time `json:"criado_em"`
}

type Cliente struct {
	ID       string `json:"id"`
	Nome     string `json:"nome"`
	Email    string `json:"email"`
	Telefone string `json:"telefone,omitempty"`
	CPF      string `json:"cpf,omitempty"`
}

type Produto struct {
	ID            string  `json:"id"`
	Nome          string  `json:"nome"`
	Quantidade    int     `json:"quantidade"`
	PrecoUnitario float64 `json:"preco_unitario"`
	Subtotal      float64 `json:"subtotal"`
}

type Pagamento struct {
	Metodo string  `json:"metodo"`
	Valor  float64 `json:"valor"`
}

// Charge is what a provider hands back for a created payment
type Charge struct {
	QRCodeBase64 string
	CopyPaste    string
}

// Provider creates PIX charges
type Provider interface {
	Name() string
	CreateCharge(ctx context.Context, payload Payload) (*Charge, error)
}

func reais(cents int64) float64 {
	return float64(cents) / 100
}

// BuildPayload assembles the provider payload for an order
func BuildPayload(order *models.Order, items []models.OrderItem, customer *models.Profile) Payload {
	p := Payload{
		Pedido: Pedido{
			ID:       order.ID,
			Total:    reais(order.TotalCents),
			CriadoEm: order.CreatedAt,
		},
		Produtos: make([]Produto, 0, len(items)),
		Pagamento: Pagamento{
			Metodo: models.PaymentMethodPix,
			Valor:  reais(order.TotalCents),
		},
	}

	if customer != nil {
		p.Cliente = Cliente{ID: customer.ID, Nome: customer.FullName, Email: customer.Email}
		if customer.Phone != nil {
			p.Cliente.Telefone = *customer.Phone
		}
		if customer.CPF != nil {
			p.Cliente.CPF = *customer.CPF
		}
	} else {
		p.Cliente = Cliente{ID: order.CustomerID}
	}

	for _, it := range items {
		p.Produtos = append(p.Produtos, Produto{
			ID:            it.ProductID,
			Nome:          it.ProductName,
			Quantidade:    it.Quantity,
			PrecoUnitario: reais(it.UnitPriceCents),
			Subtotal:      reais(it.UnitPriceCents * int64(it.Quantity)),
		})
	}
	return p
}
