package pix

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var samplePayload = Payload{
	Pedido:    Pedido{ID: "ord-1", Total: 159.9},
	Cliente:   Cliente{ID: "cust-1", Nome: "Ana Souza", Email: "ana@example.com"},
	Produtos:  []Produto{{ID: "prod-1", Nome: "Camiseta", Quantidade: 1, PrecoUnitario: 159.9, Subtotal: 159.9}},
	Pagamento: Pagamento{Metodo: "pix", Valor: 159.9},
}

const notRegisteredBody = `{"code":404,"message":"The requested webhook \"POST pix\" is not registered."}`

type countingServer struct {
	*httptest.Server
	calls int32
}

func newServer(t *testing.T, handler http.HandlerFunc) *countingServer {
	cs := &countingServer{}
	cs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&cs.calls, 1)
		handler(w, r)
	}))
	t.Cleanup(cs.Close)
	return cs
}

func (cs *countingServer) count() int { return int(atomic.LoadInt32(&cs.calls)) }

func respond(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func TestWorkflowSuccessObject(t *testing.T) {
	primary := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		var got Payload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, "ord-1", got.Pedido.ID)
		assert.Equal(t, "pix", got.Pagamento.Metodo)
		respond(http.StatusOK, `{"qrCodeBase64":"iVBORw0","qrCodeCopyPaste":"00020126"}`)(w, r)
	})

	p := NewWorkflowProvider(primary.URL, "", time.Second, nil)
	charge, err := p.CreateCharge(context.Background(), samplePayload)
	require.NoError(t, err)
	assert.Equal(t, "iVBORw0", charge.QRCodeBase64)
	assert.Equal(t, "00020126", charge.CopyPaste)
}

func TestWorkflowSuccessArray(t *testing.T) {
	primary := newServer(t, respond(http.StatusOK, `[{"qrCodeBase64":"QR","qrCodeCopyPaste":"CP"},{"qrCodeBase64":"other"}]`))

	p := NewWorkflowProvider(primary.URL, "", time.Second, nil)
	charge, err := p.CreateCharge(context.Background(), samplePayload)
	require.NoError(t, err)
	assert.Equal(t, "QR", charge.QRCodeBase64)
	assert.Equal(t, "CP", charge.CopyPaste)
}

func TestWorkflowFallbackCalledExactlyOnce(t *testing.T) {
	primary := newServer(t, respond(http.StatusNotFound, notRegisteredBody))
	fallback := newServer(t, respond(http.StatusOK, `{"qrCodeBase64":"QR","qrCodeCopyPaste":"CP"}`))

	p := NewWorkflowProvider(primary.URL, fallback.URL, time.Second, nil)
	charge, err := p.CreateCharge(context.Background(), samplePayload)
	require.NoError(t, err)
	assert.Equal(t, "QR", charge.QRCodeBase64)
	assert.Equal(t, 1, primary.count())
	assert.Equal(t, 1, fallback.count())
}

func TestWorkflowFallbackAlsoNotRegistered(t *testing.T) {
	primary := newServer(t, respond(http.StatusNotFound, notRegisteredBody))
	fallback := newServer(t, respond(http.StatusNotFound, `webhook NOT REGISTERED`))

	p := NewWorkflowProvider(primary.URL, fallback.URL, time.Second, nil)
	_, err := p.CreateCharge(context.Background(), samplePayload)
	assert.ErrorIs(t, err, ErrWebhookNotRegistered)
	assert.Equal(t, http.StatusBadGateway, HTTPStatus(err))
	assert.Equal(t, "WEBHOOK_NOT_REGISTERED", Code(err))
	assert.Equal(t, 1, primary.count())
	assert.Equal(t, 1, fallback.count())
}

func TestWorkflowNotRegisteredWithoutFallback(t *testing.T) {
	primary := newServer(t, respond(http.StatusNotFound, notRegisteredBody))

	p := NewWorkflowProvider(primary.URL, "", time.Second, nil)
	_, err := p.CreateCharge(context.Background(), samplePayload)
	assert.ErrorIs(t, err, ErrWebhookNotRegistered)
}

func TestWorkflowOtherErrorsSkipFallback(t *testing.T) {
	cases := map[string]*countingServer{
		"server error":   newServer(t, respond(http.StatusInternalServerError, `{"message":"boom"}`)),
		"plain 404":      newServer(t, respond(http.StatusNotFound, `{"message":"no such route"}`)),
		"not registered": newServer(t, respond(http.StatusBadRequest, notRegisteredBody)),
	}

	for name, primary := range cases {
		t.Run(name, func(t *testing.T) {
			fallback := newServer(t, respond(http.StatusOK, `{"qrCodeBase64":"QR","qrCodeCopyPaste":"CP"}`))

			p := NewWorkflowProvider(primary.URL, fallback.URL, time.Second, nil)
			_, err := p.CreateCharge(context.Background(), samplePayload)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrProviderFailed)
			assert.Equal(t, http.StatusInternalServerError, HTTPStatus(err))
			assert.Equal(t, 0, fallback.count())
		})
	}
}

func TestWorkflowTimeout(t *testing.T) {
	primary := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	p := NewWorkflowProvider(primary.URL, "", 50*time.Millisecond, nil)
	_, err := p.CreateCharge(context.Background(), samplePayload)
	assert.ErrorIs(t, err, ErrServiceTimeout)
	assert.Equal(t, http.StatusGatewayTimeout, HTTPStatus(err))
	assert.Equal(t, "PIX_SERVICE_TIMEOUT", Code(err))
}

func TestWorkflowInvalidResponses(t *testing.T) {
	for _, body := range []string{
		`{"qrCodeBase64":"QR"}`,
		`{"qrCodeCopyPaste":"CP"}`,
		`[]`,
		`not json`,
		`{}`,
	} {
		primary := newServer(t, respond(http.StatusOK, body))
		p := NewWorkflowProvider(primary.URL, "", time.Second, nil)
		_, err := p.CreateCharge(context.Background(), samplePayload)
		assert.True(t, errors.Is(err, ErrInvalidResponse), "body %s: %v", body, err)
	}
}

func TestWorkflowNotConfigured(t *testing.T) {
	p := NewWorkflowProvider("", "", time.Second, nil)
	_, err := p.CreateCharge(context.Background(), samplePayload)
	assert.ErrorIs(t, err, ErrProviderNotConfigured)
	assert.Equal(t, http.StatusServiceUnavailable, HTTPStatus(err))
}
