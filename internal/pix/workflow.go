package pix

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"storefront-service/internal/util"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// DefaultTimeout bounds a whole CreateCharge call, fallback included
const DefaultTimeout = 30 * time.Second

// WorkflowProvider posts the payload to an automation webhook that answers
// with the QR code
type WorkflowProvider struct {
	primaryURL  string
	fallbackURL string
	timeout     time.Duration
	client      *http.Client
	logger      *zap.Logger
}

// NewWorkflowProvider creates a webhook provider. fallbackURL may be empty.
func NewWorkflowProvider(primaryURL, fallbackURL string, timeout time.Duration, client *http.Client) *WorkflowProvider {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if client == nil {
		client = &http.Client{}
	}
	return &WorkflowProvider{
		primaryURL:  primaryURL,
		fallbackURL: fallbackURL,
		timeout:     timeout,
		client:      client,
		logger:      util.GetLogger(),
	}
}

func (p *WorkflowProvider) Name() string { return "workflow" }

// CreateCharge calls the primary webhook and, only when it reports itself as
// not registered, the fallback webhook once
func (p *WorkflowProvider) CreateCharge(ctx context.Context, payload Payload) (*Charge, error) {
	if p.primaryURL == "" {
		return nil, ErrProviderNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal pix payload: %w", err)
	}

	status, respBody, err := p.post(ctx, p.primaryURL, body)
	if err != nil {
		return nil, classify(ctx, err)
	}

	if notRegistered(status, respBody) {
		if p.fallbackURL == "" {
			return nil, ErrWebhookNotRegistered
		}

		p.logger.Warn("Primary PIX webhook not registered, calling fallback",
			zap.String("order_id", payload.Pedido.ID))
		util.PixWebhookFallbacksTotal.Inc()

		status, respBody, err = p.post(ctx, p.fallbackURL, body)
		if err != nil {
			return nil, classify(ctx, err)
		}
		if notRegistered(status, respBody) {
			return nil, ErrWebhookNotRegistered
		}
	}

	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("%w: status %d: %s", ErrProviderFailed, status, truncate(respBody, 200))
	}

	return parseCharge(respBody)
}

func (p *WorkflowProvider) post(ctx context.Context, url string, body []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	util.InjectTraceHeaders(ctx, req)

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, respBody, nil
}

func notRegistered(status int, body []byte) bool {
	return status == http.StatusNotFound &&
		strings.Contains(strings.ToLower(string(body)), "not registered")
}

func classify(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrServiceTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return ErrServiceTimeout
	}
	return fmt.Errorf("%w: %v", ErrProviderFailed, err)
}

// parseCharge accepts either an object or an array whose first element is the object
func parseCharge(body []byte) (*Charge, error) {
	if !gjson.ValidBytes(body) {
		return nil, ErrInvalidResponse
	}

	res := gjson.ParseBytes(body)
	if res.IsArray() {
		elems := res.Array()
		if len(elems) == 0 {
			return nil, ErrInvalidResponse
		}
		res = elems[0]
	}

	qr := res.Get("qrCodeBase64").String()
	copyPaste := res.Get("qrCodeCopyPaste").String()
	if qr == "" || copyPaste == "" {
		return nil, ErrInvalidResponse
	}
	return &Charge{QRCodeBase64: qr, CopyPaste: copyPaste}, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
