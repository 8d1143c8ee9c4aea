package mercadopago

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(baseURL string) *Client {
	return NewClient(Config{
		BaseURL:       baseURL,
		SubmitTimeout: 2 * time.Second,
		StatusTimeout: 1 * time.Second,
	}, zap.NewNop())
}

func TestCreatePayment_ForwardsIdempotencyKeyAndToken(t *testing.T) {
	var gotIdempotencyKey, gotAuth string
	var gotBody PaymentRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/payments", r.URL.Path)
		gotIdempotencyKey = r.Header.Get("X-Idempotency-Key")
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(Payment{
			ID:                12345,
			Status:            StatusPending,
			TransactionAmount: 197.00,
			ExternalReference: gotBody.ExternalReference,
		})
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	payment, err := client.CreatePayment(context.Background(), "TEST-token", "chk_abc", &PaymentRequest{
		TransactionAmount: 197.00,
		PaymentMethodID:   "pix",
		ExternalReference: "ref_1",
		Payer:             Payer{Email: "comprador@example.com"},
	})

	require.NoError(t, err)
	assert.Equal(t, "chk_abc", gotIdempotencyKey)
	assert.Equal(t, "Bearer TEST-token", gotAuth)
	assert.Equal(t, "ref_1", gotBody.ExternalReference)
	assert.Equal(t, int64(12345), payment.ID)
	assert.Equal(t, StatusPending, payment.Status)
}

func TestCreatePayment_SurfacesGatewayErrorVerbatim(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message": "cc_rejected_insufficient_amount", "status": 400}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	_, err := client.CreatePayment(context.Background(), "TEST-token", "chk_abc", &PaymentRequest{})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "cc_rejected_insufficient_amount", apiErr.Message)
}

func TestGetPayment_FetchesByTransactionID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/v1/payments/98765", r.URL.Path)
		json.NewEncoder(w).Encode(Payment{
			ID:                98765,
			Status:            StatusApproved,
			ExternalReference: "ref_9",
		})
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	payment, err := client.GetPayment(context.Background(), "TEST-token", "98765")

	require.NoError(t, err)
	assert.Equal(t, StatusApproved, payment.Status)
	assert.Equal(t, "ref_9", payment.ExternalReference)
}

func TestGetPayment_TimesOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	client := NewClient(Config{
		BaseURL:       srv.URL,
		StatusTimeout: 50 * time.Millisecond,
	}, zap.NewNop())

	_, err := client.GetPayment(context.Background(), "TEST-token", "1")

	assert.ErrorIs(t, err, ErrTimeout)
}

func TestCreatePayment_MalformedErrorBodyStillUsable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream exploded"))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	_, err := client.CreatePayment(context.Background(), "t", "k", &PaymentRequest{})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "upstream exploded", apiErr.Message)
}

func TestFormatTransactionID(t *testing.T) {
	assert.Equal(t, "12345", FormatTransactionID(12345))
}
