package mercadopago

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// Client errors.
var (
	// ErrTimeout is returned when the gateway did not answer within the
	// per-operation deadline. Callers may retry with the same idempotency key.
	ErrTimeout = errors.New("gateway request timed out")
	// ErrUnavailable is returned while the circuit breaker is open.
	ErrUnavailable = errors.New("gateway temporarily unavailable")
)

// APIError is a non-2xx answer from the gateway. The message is surfaced
// verbatim so the checkout UI can show the gateway's rejection reason.
type APIError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("gateway returned %d: %s", e.StatusCode, e.Message)
}

// Config holds gateway client configuration.
type Config struct {
	BaseURL       string
	SubmitTimeout time.Duration
	StatusTimeout time.Duration
}

// Client talks to the payment gateway's HTTP API. Credentials are passed
// per call because each configured gateway record carries its own tokens.
type Client struct {
	baseURL       string
	submitTimeout time.Duration
	statusTimeout time.Duration
	httpClient    *http.Client
	breaker       *gobreaker.CircuitBreaker[*Payment]
	logger        *zap.Logger
}

// NewClient creates a new gateway client.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.SubmitTimeout == 0 {
		cfg.SubmitTimeout = 10 * time.Second
	}
	if cfg.StatusTimeout == 0 {
		cfg.StatusTimeout = 5 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker[*Payment](gobreaker.Settings{
		Name:    "mercadopago",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// A 4xx means the gateway is reachable and healthy; only transport
		// failures and 5xx answers should trip the breaker.
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var apiErr *APIError
			return errors.As(err, &apiErr) && apiErr.StatusCode < 500
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("gateway circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &Client{
		baseURL:       cfg.BaseURL,
		submitTimeout: cfg.SubmitTimeout,
		statusTimeout: cfg.StatusTimeout,
		httpClient:    &http.Client{},
		breaker:       breaker,
		logger:        logger,
	}
}

// CreatePayment submits a charge to the gateway. The idempotency key is
// forwarded as a gateway-level header so client-side retries of the same
// submission never create duplicate charges.
func (c *Client) CreatePayment(ctx context.Context, accessToken, idempotencyKey string, req *PaymentRequest) (*Payment, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal payment request: %w", err)
	}
	return c.do(ctx, http.MethodPost, "/v1/payments", accessToken, idempotencyKey, body, c.submitTimeout)
}

// GetPayment fetches the authoritative payment resource by transaction id.
func (c *Client) GetPayment(ctx context.Context, accessToken, transactionID string) (*Payment, error) {
	return c.do(ctx, http.MethodGet, "/v1/payments/"+transactionID, accessToken, "", nil, c.statusTimeout)
}

func (c *Client) do(ctx context.Context, method, path, accessToken, idempotencyKey string, body []byte, timeout time.Duration) (*Payment, error) {
	payment, err := c.breaker.Execute(func() (*Payment, error) {
		reqCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(reqCtx, method, c.baseURL+path, reader)
		if err != nil {
			return nil, fmt.Errorf("build gateway request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+accessToken)
		req.Header.Set("Content-Type", "application/json")
		if idempotencyKey != "" {
			req.Header.Set("X-Idempotency-Key", idempotencyKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || reqCtx.Err() == context.DeadlineExceeded {
				return nil, fmt.Errorf("%w: %s %s", ErrTimeout, method, path)
			}
			return nil, fmt.Errorf("gateway request: %w", err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return nil, fmt.Errorf("read gateway response: %w", err)
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, parseAPIError(resp.StatusCode, respBody)
		}

		var payment Payment
		if err := json.Unmarshal(respBody, &payment); err != nil {
			return nil, fmt.Errorf("decode gateway response: %w", err)
		}
		return &payment, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return nil, err
	}
	return payment, nil
}

// parseAPIError extracts the gateway's error message. A malformed error body
// still yields a usable APIError with the raw status code.
func parseAPIError(statusCode int, body []byte) *APIError {
	var parsed apiErrorBody
	message := string(body)
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Message != "" {
			message = parsed.Message
		} else if parsed.Error != "" {
			message = parsed.Error
		}
	}
	return &APIError{StatusCode: statusCode, Message: message}
}

// FormatTransactionID renders a gateway payment id the way it is stored on
// payment rows and received in webhook payloads.
func FormatTransactionID(id int64) string {
	return strconv.FormatInt(id, 10)
}
