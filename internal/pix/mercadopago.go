package pix

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront-service/internal/util"

	"github.com/mercadopago/sdk-go/pkg/config"
	"github.com/mercadopago/sdk-go/pkg/payment"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

var ErrMissingMercadoPagoAccessToken = errors.New("missing MERCADOPAGO_ACCESS_TOKEN")

type paymentCreator interface {
	Create(ctx context.Context, request payment.Request) (*payment.Response, error)
}

// MercadoPagoProvider creates PIX payments through the Mercado Pago API
type MercadoPagoProvider struct {
	client  paymentCreator
	timeout time.Duration
	logger  *zap.Logger
}

// NewMercadoPagoProvider creates a provider from an access token. timeout
// bounds each API call and defaults to DefaultTimeout.
func NewMercadoPagoProvider(accessToken string, timeout time.Duration) (*MercadoPagoProvider, error) {
	if accessToken == "" {
		return nil, ErrMissingMercadoPagoAccessToken
	}

	cfg, err := config.New(accessToken)
	if err != nil {
		return nil, fmt.Errorf("mercado pago config: %w", err)
	}
	return newMercadoPagoProvider(payment.NewClient(cfg), timeout), nil
}

func newMercadoPagoProvider(client paymentCreator, timeout time.Duration) *MercadoPagoProvider {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &MercadoPagoProvider{client: client, timeout: timeout, logger: util.GetLogger()}
}

func (p *MercadoPagoProvider) Name() string { return "mercadopago" }

// CreateCharge creates a pix payment and reads its QR code
func (p *MercadoPagoProvider) CreateCharge(ctx context.Context, payload Payload) (*Charge, error) {
	ctx, span := util.StartSpan(ctx, "MercadoPagoProvider.CreateCharge")
	defer span.End()

	requestPayload, err := json.Marshal(mercadoPagoRequest(payload))
	if err != nil {
		return nil, err
	}

	var req payment.Request
	if err := json.Unmarshal(requestPayload, &req); err != nil {
		return nil, fmt.Errorf("build mercado pago request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.client.Create(ctx, req)
	if err != nil {
		return nil, classify(ctx, err)
	}

	b, err := json.Marshal(resp)
	if err != nil {
		return nil, err
	}

	tx := gjson.GetBytes(b, "point_of_interaction.transaction_data")
	qr := tx.Get("qr_code_base64").String()
	copyPaste := tx.Get("qr_code").String()
	if qr == "" || copyPaste == "" {
		return nil, ErrInvalidResponse
	}

	p.logger.Info("Mercado Pago payment created",
		zap.String("order_id", payload.Pedido.ID),
		zap.String("provider_payment_id", gjson.GetBytes(b, "id").String()),
		zap.String("provider_status", gjson.GetBytes(b, "status").String()))

	return &Charge{QRCodeBase64: qr, CopyPaste: copyPaste}, nil
}

func mercadoPagoRequest(payload Payload) map[string]any {
	first, last := splitName(payload.Cliente.Nome)
	payer := map[string]any{
		"email":      payload.Cliente.Email,
		"first_name": first,
		"last_name":  last,
	}
	if payload.Cliente.CPF != "" {
		payer["identification"] = map[string]any{"type": "CPF", "number": payload.Cliente.CPF}
	}

	return map[string]any{
		"transaction_amount": payload.Pagamento.Valor,
		"description":        "Pedido " + payload.Pedido.ID,
		"payment_method_id":  "pix",
		"external_reference": payload.Pedido.ID,
		"payer":              payer,
	}
}

func splitName(full string) (string, string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}
