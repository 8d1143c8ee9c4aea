package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vendaflow/server/internal/module/checkout"
	"github.com/vendaflow/server/internal/module/gateway"
	"github.com/vendaflow/server/internal/module/order"
	"github.com/vendaflow/server/internal/module/payment/mercadopago"
	"github.com/vendaflow/server/internal/shared/metrics"
)

// GatewayClient is the outbound surface of the payment gateway used by the
// service. Satisfied by *mercadopago.Client.
type GatewayClient interface {
	CreatePayment(ctx context.Context, accessToken, idempotencyKey string, req *mercadopago.PaymentRequest) (*mercadopago.Payment, error)
	GetPayment(ctx context.Context, accessToken, transactionID string) (*mercadopago.Payment, error)
}

// Config holds checkout-flow paths returned in redirect descriptors.
type Config struct {
	NotifyBaseURL string
	SuccessPath   string
	PixPath       string
}

// Service implements payment submission and reconciliation.
type Service struct {
	repo     Repository
	orders   order.Repository
	gateways gateway.Repository
	resolver *gateway.Resolver
	client   GatewayClient
	cfg      Config
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewService creates a new payment service.
func NewService(
	repo Repository,
	orders order.Repository,
	gateways gateway.Repository,
	resolver *gateway.Resolver,
	client GatewayClient,
	cfg Config,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Service {
	return &Service{
		repo:     repo,
		orders:   orders,
		gateways: gateways,
		resolver: resolver,
		client:   client,
		cfg:      cfg,
		metrics:  m,
		logger:   logger,
	}
}

// Submit prices the cart, charges the gateway and persists the resulting
// order/payment pair. The order row is written before the payment row so a
// payment can never reference a missing order.
func (s *Service) Submit(ctx context.Context, req *SubmitRequest) (*SubmitResponse, error) {
	if err := s.validateSubmit(req); err != nil {
		return nil, err
	}

	total := checkout.ComputeOrder(req.Items)
	couponApplied := false
	if req.CouponCode != "" {
		couponApplied = checkout.KnownCoupon(req.CouponCode)
		if !couponApplied {
			s.logger.Info("unknown coupon ignored",
				zap.String("coupon_code", req.CouponCode),
				zap.String("external_reference", req.ExternalReference),
			)
		}
		total = checkout.ApplyCoupon(total, req.CouponCode)
	}

	creds, err := s.resolver.Resolve(ctx, req.GatewayID, gateway.ProviderMercadoPago, req.Environment)
	if err != nil {
		return nil, err
	}

	gwReq := s.buildGatewayRequest(req, total)

	start := time.Now()
	charge, err := s.client.CreatePayment(ctx, creds.AccessToken, req.ExternalReference, gwReq)
	if err != nil {
		s.metrics.RecordGatewayRequest("submit", "error", time.Since(start))
		mapped := mapGatewayError(err)
		if errors.Is(mapped, ErrGatewayUnavailable) {
			// The charge may exist at the gateway. Err toward recording a
			// pending order so a later webhook has something to reconcile.
			return nil, s.anchorAmbiguousCharge(ctx, req, creds, total, mapped)
		}
		return nil, mapped
	}
	s.metrics.RecordGatewayRequest("submit", charge.Status, time.Since(start))

	ord := s.newPendingOrder(req, creds, total)

	if err := s.orders.Create(ctx, ord); err != nil {
		if errors.Is(err, order.ErrDuplicateReference) {
			// Replayed submission that slipped past the HTTP idempotency
			// layer. The gateway deduplicated on its side via the
			// idempotency header, so answer for the existing order.
			existing, lookupErr := s.orders.GetByExternalReference(ctx, req.ExternalReference)
			if lookupErr != nil {
				return nil, lookupErr
			}
			s.logger.Info("submission replayed for existing order",
				zap.String("order_id", existing.ID.String()),
				zap.String("external_reference", req.ExternalReference),
			)
			// A retry after an ambiguous outcome reaches here with an order
			// anchored but no payment row yet; backfill it for this charge.
			s.backfillPayment(ctx, existing, creds, charge)
			resp := s.buildSubmitResponse(existing, charge)
			resp.CouponApplied = couponApplied
			return resp, nil
		}
		// The charge may exist at the gateway without a local order. Loudly
		// flag it: the webhook path will not find the order either.
		s.logger.Error("order insert failed after gateway accepted charge",
			zap.String("external_reference", req.ExternalReference),
			zap.Int64("transaction_id", charge.ID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("create order: %w", err)
	}

	pay := s.newPayment(ord.ID, creds, charge)
	if err := s.repo.Create(ctx, pay); err != nil {
		// Order row exists and stays pending; reconciliation can still find
		// it by external reference once the webhook arrives.
		s.logger.Error("payment insert failed, order left pending",
			zap.String("order_id", ord.ID.String()),
			zap.Error(err),
		)
		return nil, err
	}

	resp := s.buildSubmitResponse(ord, charge)
	resp.CouponApplied = couponApplied
	return resp, nil
}

func (s *Service) validateSubmit(req *SubmitRequest) error {
	if req.ExternalReference == "" {
		return ErrMissingReference
	}
	if !req.PaymentMethod.IsValid() {
		return ErrInvalidMethod
	}
	if req.Customer.Name == "" || req.Customer.Email == "" {
		return ErrMissingCustomer
	}
	if err := checkout.ValidateCart(req.Items); err != nil {
		return err
	}
	if req.PaymentMethod == order.MethodCreditCard {
		if req.CardToken == "" {
			return ErrMissingCardToken
		}
		if req.Installments < 1 {
			return ErrInvalidInstallments
		}
	}
	return nil
}

func (s *Service) newPendingOrder(req *SubmitRequest, creds *gateway.ResolvedCredentials, total checkout.OrderTotal) *order.Order {
	return &order.Order{
		ID:                uuid.New(),
		ExternalReference: req.ExternalReference,
		CheckoutID:        req.CheckoutID,
		GatewayID:         creds.GatewayID,
		Status:            order.StatusPending,
		PaymentMethod:     req.PaymentMethod,
		SubtotalCents:     total.SubtotalCents,
		BumpTotalCents:    total.BumpTotalCents,
		DiscountCents:     total.DiscountCents,
		TotalCents:        total.TotalCents,
		CustomerName:      req.Customer.Name,
		CustomerEmail:     req.Customer.Email,
		CustomerDocument:  req.Customer.Document,
	}
}

// anchorAmbiguousCharge records a pending order for a charge the gateway may
// have accepted. Without the row a later webhook for that charge would find
// nothing to reconcile and the customer's money would be orphaned.
func (s *Service) anchorAmbiguousCharge(ctx context.Context, req *SubmitRequest, creds *gateway.ResolvedCredentials, total checkout.OrderTotal, cause error) error {
	ord := s.newPendingOrder(req, creds, total)
	if err := s.orders.Create(ctx, ord); err != nil {
		if errors.Is(err, order.ErrDuplicateReference) {
			existing, lookupErr := s.orders.GetByExternalReference(ctx, req.ExternalReference)
			if lookupErr == nil {
				return &AmbiguousChargeError{OrderID: existing.ID, Err: cause}
			}
		}
		s.logger.Error("failed to anchor pending order for ambiguous gateway outcome",
			zap.String("external_reference", req.ExternalReference),
			zap.Error(err),
		)
		return cause
	}
	s.logger.Warn("gateway outcome ambiguous, pending order anchored",
		zap.String("order_id", ord.ID.String()),
		zap.String("external_reference", req.ExternalReference),
		zap.Error(cause),
	)
	return &AmbiguousChargeError{OrderID: ord.ID, Err: cause}
}

// backfillPayment links a charge to an order that has no payment row for it
// yet. A plain replay already has the row and is left alone.
func (s *Service) backfillPayment(ctx context.Context, ord *order.Order, creds *gateway.ResolvedCredentials, charge *mercadopago.Payment) {
	transactionID := mercadopago.FormatTransactionID(charge.ID)
	if _, err := s.repo.GetByTransactionID(ctx, transactionID); !errors.Is(err, ErrPaymentNotFound) {
		return
	}
	pay := s.newPayment(ord.ID, creds, charge)
	if err := s.repo.Create(ctx, pay); err != nil {
		s.logger.Warn("failed to backfill payment for replayed charge",
			zap.String("order_id", ord.ID.String()),
			zap.String("transaction_id", transactionID),
			zap.Error(err),
		)
	}
}

func (s *Service) newPayment(orderID uuid.UUID, creds *gateway.ResolvedCredentials, charge *mercadopago.Payment) *Payment {
	return &Payment{
		ID:            uuid.New(),
		OrderID:       orderID,
		GatewayID:     creds.GatewayID,
		Environment:   creds.Environment,
		TransactionID: mercadopago.FormatTransactionID(charge.ID),
		RawStatus:     charge.Status,
		MappedStatus:  MapGatewayStatus(charge.Status),
		StatusDetail:  charge.StatusDetail,
	}
}

func (s *Service) buildGatewayRequest(req *SubmitRequest, total checkout.OrderTotal) *mercadopago.PaymentRequest {
	gwReq := &mercadopago.PaymentRequest{
		TransactionAmount: total.Total(),
		Description:       describeCart(req.Items),
		ExternalReference: req.ExternalReference,
		Payer:             buildPayer(req.Customer),
	}
	if s.cfg.NotifyBaseURL != "" {
		gwReq.NotificationURL = s.cfg.NotifyBaseURL + "/webhooks/mercadopago"
	}

	switch req.PaymentMethod {
	case order.MethodPix:
		gwReq.PaymentMethodID = "pix"
	case order.MethodBoleto:
		gwReq.PaymentMethodID = "bolbradesco"
	case order.MethodCreditCard:
		gwReq.PaymentMethodID = req.CardBrand
		gwReq.Token = req.CardToken
		gwReq.Installments = req.Installments
	}
	return gwReq
}

func (s *Service) buildSubmitResponse(ord *order.Order, charge *mercadopago.Payment) *SubmitResponse {
	resp := &SubmitResponse{
		OrderID:       ord.ID,
		Status:        ord.Status,
		TransactionID: mercadopago.FormatTransactionID(charge.ID),
		Total:         ord.Total(),
	}

	if ord.PaymentMethod == order.MethodPix {
		resp.Redirect = Redirect{Type: "pix", Path: s.cfg.PixPath + "?order=" + ord.ID.String()}
		if poi := charge.PointOfInteraction; poi != nil && poi.TransactionData != nil {
			resp.Redirect.QRCode = poi.TransactionData.QRCode
			resp.Redirect.QRCodeBase64 = poi.TransactionData.QRCodeBase64
			resp.Redirect.TicketURL = poi.TransactionData.TicketURL
		}
		return resp
	}

	resp.Redirect = Redirect{Type: "confirmation", Path: s.cfg.SuccessPath + "?order=" + ord.ID.String()}
	return resp
}

// HandleNotification reconciles one webhook notification. The notification
// body is never trusted: the payment resource is re-fetched from the
// gateway by transaction id before any state is touched.
func (s *Service) HandleNotification(ctx context.Context, transactionID string) (*ReconcileResult, error) {
	pay, err := s.repo.GetByTransactionID(ctx, transactionID)
	if err != nil && !errors.Is(err, ErrPaymentNotFound) {
		return nil, err
	}

	accessToken, err := s.credentialsFor(ctx, pay)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	fetched, err := s.client.GetPayment(ctx, accessToken, transactionID)
	if err != nil {
		s.metrics.RecordGatewayRequest("fetch_status", "error", time.Since(start))
		return nil, mapGatewayError(err)
	}
	s.metrics.RecordGatewayRequest("fetch_status", fetched.Status, time.Since(start))

	result, err := s.reconcile(ctx, pay, fetched)
	if err != nil {
		return nil, err
	}
	s.metrics.WebhooksTotal.WithLabelValues(string(result.Outcome)).Inc()
	return result, nil
}

// Poll re-checks an order's payment directly against the gateway. Same
// re-fetch and transition rule as the webhook path, driven by request
// instead of notification.
func (s *Service) Poll(ctx context.Context, orderID uuid.UUID) (*StatusResponse, error) {
	ord, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	// Pending can still settle and paid can still refund; failed and
	// refunded are dead ends, so skip the gateway round trip.
	if !ord.IsPending() && !ord.IsPaid() {
		return &StatusResponse{OrderID: ord.ID, Status: ord.Status, LastCheckedAt: ord.LastCheckedAt}, nil
	}

	pay, err := s.repo.LatestByOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrPaymentNotFound) {
			// Nothing to reconcile against; report stored state as-is.
			return &StatusResponse{OrderID: ord.ID, Status: ord.Status, LastCheckedAt: ord.LastCheckedAt}, nil
		}
		return nil, err
	}

	accessToken, err := s.credentialsFor(ctx, pay)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	fetched, err := s.client.GetPayment(ctx, accessToken, pay.TransactionID)
	if err != nil {
		s.metrics.RecordGatewayRequest("fetch_status", "error", time.Since(start))
		return nil, mapGatewayError(err)
	}
	s.metrics.RecordGatewayRequest("fetch_status", fetched.Status, time.Since(start))

	if _, err := s.reconcile(ctx, pay, fetched); err != nil {
		return nil, err
	}

	now := time.Now()
	if err := s.orders.TouchLastChecked(ctx, ord.ID, now); err != nil {
		s.logger.Warn("failed to record poll timestamp", zap.Error(err))
	}

	current, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &StatusResponse{
		OrderID:       current.ID,
		Status:        current.Status,
		RawStatus:     fetched.Status,
		LastCheckedAt: &now,
	}, nil
}

// reconcile applies the fetched ground truth to stored state. The write is
// a compare-and-swap on the current status, so duplicated or out-of-order
// deliveries converge on the same final state no matter how they interleave.
func (s *Service) reconcile(ctx context.Context, pay *Payment, fetched *mercadopago.Payment) (*ReconcileResult, error) {
	target := MapGatewayStatus(fetched.Status)

	ord, err := s.locateOrder(ctx, pay, fetched)
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			s.logger.Error("no order for reconciled payment",
				zap.Int64("transaction_id", fetched.ID),
				zap.String("external_reference", fetched.ExternalReference),
			)
			return &ReconcileResult{Outcome: OutcomeOrderNotFound, RawStatus: fetched.Status}, nil
		}
		return nil, err
	}

	// Keep the payment row's status columns in step with ground truth
	if pay != nil {
		if err := s.repo.UpdateStatus(ctx, pay.ID, fetched.Status, fetched.StatusDetail); err != nil {
			s.logger.Warn("failed to update payment status", zap.Error(err))
		}
	}

	result := &ReconcileResult{OrderID: ord.ID, RawStatus: fetched.Status, From: ord.Status, To: target}

	switch {
	case ord.Status == target:
		result.Outcome = OutcomeReplay

	case ord.Status.CanTransitionTo(target):
		applied, err := s.orders.TransitionStatus(ctx, ord.ID, ord.Status, target)
		if err != nil {
			return nil, err
		}
		if applied {
			result.Outcome = OutcomeApplied
			s.metrics.StatusTransitionsTotal.WithLabelValues(ord.Status.String(), target.String()).Inc()
			s.logger.Info("order status transition applied",
				zap.String("order_id", ord.ID.String()),
				zap.String("from", ord.Status.String()),
				zap.String("to", target.String()),
				zap.String("raw_status", fetched.Status),
			)
			break
		}
		// Lost the race to a concurrent delivery; re-read to classify.
		current, err := s.orders.GetByID(ctx, ord.ID)
		if err != nil {
			return nil, err
		}
		result.From = current.Status
		if current.Status == target {
			result.Outcome = OutcomeReplay
		} else {
			result.Outcome = OutcomeAnomaly
			s.recordAnomaly(current.Status, target, ord.ID, fetched.Status)
		}

	case target == order.StatusPending:
		// A stale or uninformative notification for a settled order carries
		// nothing to apply. Not an anomaly, just late news.
		result.Outcome = OutcomeIgnored

	default:
		result.Outcome = OutcomeAnomaly
		s.recordAnomaly(ord.Status, target, ord.ID, fetched.Status)
	}

	return result, nil
}

func (s *Service) recordAnomaly(from, to order.OrderStatus, orderID uuid.UUID, raw string) {
	s.metrics.AnomaliesTotal.WithLabelValues(from.String(), to.String()).Inc()
	s.logger.Warn("disallowed status transition rejected",
		zap.String("order_id", orderID.String()),
		zap.String("from", from.String()),
		zap.String("to", to.String()),
		zap.String("raw_status", raw),
	)
}

// locateOrder finds the order for a reconciliation pass: through the linked
// payment row when one exists, otherwise by the external reference the
// gateway echoes back on the payment resource.
func (s *Service) locateOrder(ctx context.Context, pay *Payment, fetched *mercadopago.Payment) (*order.Order, error) {
	if pay != nil {
		return s.orders.GetByID(ctx, pay.OrderID)
	}
	if fetched.ExternalReference == "" {
		return nil, order.ErrOrderNotFound
	}
	return s.orders.GetByExternalReference(ctx, fetched.ExternalReference)
}

// credentialsFor picks the access token for a reconciliation re-fetch,
// preferring the exact credential set that created the charge.
func (s *Service) credentialsFor(ctx context.Context, pay *Payment) (string, error) {
	if pay != nil && pay.GatewayID != uuid.Nil {
		gw, err := s.gateways.GetByID(ctx, pay.GatewayID)
		if err == nil {
			if pair := gw.Pair(pay.Environment); pair.Complete() {
				return pair.AccessToken, nil
			}
		}
	}
	creds, err := s.resolver.Resolve(ctx, uuid.Nil, gateway.ProviderMercadoPago, "")
	if err != nil {
		return "", err
	}
	return creds.AccessToken, nil
}

// ListPaymentsByOrder returns the charge history for an order, newest first.
func (s *Service) ListPaymentsByOrder(ctx context.Context, orderID uuid.UUID) ([]*Payment, error) {
	return s.repo.ListByOrder(ctx, orderID)
}

// mapGatewayError converts gateway client errors into the module's taxonomy.
// A 4xx is the gateway's definitive verdict; a 5xx says nothing about
// whether the charge was created, so it maps to the ambiguous error.
func mapGatewayError(err error) error {
	if errors.Is(err, mercadopago.ErrTimeout) {
		return fmt.Errorf("%w: %v", ErrGatewayTimeout, err)
	}
	var apiErr *mercadopago.APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode >= 500 {
			return fmt.Errorf("%w: %v", ErrGatewayUnavailable, apiErr)
		}
		return &GatewayRejectedError{StatusCode: apiErr.StatusCode, Message: apiErr.Message}
	}
	return err
}

// describeCart builds the gateway charge description from the main item.
func describeCart(items []checkout.CartItem) string {
	for _, item := range items {
		if item.Role == checkout.ItemRoleMain {
			return item.Name
		}
	}
	return "Pedido"
}

// buildPayer splits the customer name into the gateway's payer shape.
func buildPayer(c Customer) mercadopago.Payer {
	payer := mercadopago.Payer{Email: c.Email}
	parts := strings.SplitN(strings.TrimSpace(c.Name), " ", 2)
	payer.FirstName = parts[0]
	if len(parts) > 1 {
		payer.LastName = parts[1]
	}
	if c.Document != "" {
		payer.Identification = &mercadopago.Identification{Type: documentType(c.Document), Number: c.Document}
	}
	return payer
}

// documentType guesses CPF vs CNPJ from the digit count.
func documentType(document string) string {
	digits := 0
	for _, r := range document {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	if digits > 11 {
		return "CNPJ"
	}
	return "CPF"
}
