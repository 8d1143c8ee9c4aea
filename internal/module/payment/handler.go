package payment

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vendaflow/server/internal/module/checkout"
	"github.com/vendaflow/server/internal/module/gateway"
	"github.com/vendaflow/server/internal/module/order"
	"github.com/vendaflow/server/internal/shared/response"
)

// Handler handles payment HTTP requests.
type Handler struct {
	service *Service
	orders  order.Repository
	logger  *zap.Logger
}

// NewHandler creates a new payment handler.
func NewHandler(service *Service, orders order.Repository, logger *zap.Logger) *Handler {
	return &Handler{service: service, orders: orders, logger: logger}
}

// RegisterRoutes registers the public checkout routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/payments", h.Submit)
	r.GET("/orders/:id/status", h.PollStatus)
}

// RegisterAdminRoutes registers the back-office query routes.
func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.GET("/orders", h.ListOrders)
	r.GET("/orders/:id", h.GetOrder)
}

// Submit creates a charge for a priced cart.
func (h *Handler) Submit(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "INVALID_BODY", "invalid request body")
		return
	}

	resp, err := h.service.Submit(c.Request.Context(), &req)
	if err != nil {
		h.respondSubmitError(c, &req, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (h *Handler) respondSubmitError(c *gin.Context, req *SubmitRequest, err error) {
	var rejected *GatewayRejectedError
	var ambiguous *AmbiguousChargeError
	switch {
	case errors.As(err, &ambiguous):
		// The gateway failed mid-flight but the charge may still settle. A
		// pending order was anchored; hand its id back so the storefront can
		// poll it instead of re-submitting blind.
		h.logger.Warn("ambiguous gateway outcome surfaced to caller",
			zap.String("order_id", ambiguous.OrderID.String()),
			zap.Error(err),
		)
		c.JSON(http.StatusBadGateway, gin.H{
			"error":    "payment gateway error; the charge may have been created",
			"code":     "GATEWAY_ERROR",
			"order_id": ambiguous.OrderID,
		})
	case errors.Is(err, ErrGatewayUnavailable):
		response.Error(c, http.StatusBadGateway, "GATEWAY_ERROR", "payment gateway error")
	case errors.As(err, &rejected):
		// Surface the gateway's verdict verbatim so the storefront can show
		// the buyer why the card was declined.
		response.Error(c, http.StatusUnprocessableEntity, "GATEWAY_REJECTED", rejected.Message)
	case errors.Is(err, ErrGatewayTimeout):
		response.Error(c, http.StatusGatewayTimeout, "GATEWAY_TIMEOUT", "payment gateway timed out")
	case errors.Is(err, gateway.ErrNoGateway), errors.Is(err, gateway.ErrMissingCredentials):
		h.logger.Error("no usable gateway credentials", zap.Error(err))
		response.Error(c, http.StatusServiceUnavailable, "NO_GATEWAY", "payment processing unavailable")
	case errors.Is(err, ErrMissingReference),
		errors.Is(err, ErrInvalidMethod),
		errors.Is(err, ErrMissingCustomer),
		errors.Is(err, ErrMissingCardToken),
		errors.Is(err, ErrInvalidInstallments),
		errors.Is(err, checkout.ErrNoMainItem),
		errors.Is(err, checkout.ErrEmptyItemID),
		errors.Is(err, checkout.ErrEmptyItemName),
		errors.Is(err, checkout.ErrInvalidPrice),
		errors.Is(err, checkout.ErrInvalidRole):
		response.Error(c, http.StatusBadRequest, "VALIDATION_FAILED", err.Error())
	default:
		h.logger.Error("payment submission failed",
			zap.String("external_reference", req.ExternalReference),
			zap.Error(err),
		)
		response.Internal(c, "INTERNAL_ERROR", "failed to process payment")
	}
}

// PollStatus re-checks an order's settlement status against the gateway.
func (h *Handler) PollStatus(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "INVALID_ID", "invalid order id")
		return
	}

	resp, err := h.service.Poll(c.Request.Context(), orderID)
	if err != nil {
		switch {
		case errors.Is(err, order.ErrOrderNotFound):
			response.NotFound(c, "ORDER_NOT_FOUND", "order not found")
		case errors.Is(err, ErrGatewayTimeout):
			response.Error(c, http.StatusGatewayTimeout, "GATEWAY_TIMEOUT", "payment gateway timed out")
		default:
			h.logger.Error("status poll failed", zap.String("order_id", orderID.String()), zap.Error(err))
			response.Internal(c, "INTERNAL_ERROR", "failed to check status")
		}
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ListOrders returns a paginated order listing for the back office.
func (h *Handler) ListOrders(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	filter := &order.Filter{}
	if s := c.Query("status"); s != "" {
		status := order.OrderStatus(s)
		if !status.IsValid() {
			response.BadRequest(c, "INVALID_STATUS", "invalid status filter")
			return
		}
		filter.Status = &status
	}
	if email := c.Query("email"); email != "" {
		filter.CustomerEmail = &email
	}
	if checkoutID := c.Query("checkout_id"); checkoutID != "" {
		filter.CheckoutID = &checkoutID
	}

	orders, total, err := h.orders.List(c.Request.Context(), filter, page, pageSize)
	if err != nil {
		h.logger.Error("failed to list orders", zap.Error(err))
		response.Internal(c, "INTERNAL_ERROR", "failed to list orders")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"orders":    orders,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// GetOrder returns one order with its charge history.
func (h *Handler) GetOrder(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "INVALID_ID", "invalid order id")
		return
	}

	ord, err := h.orders.GetByID(c.Request.Context(), orderID)
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			response.NotFound(c, "ORDER_NOT_FOUND", "order not found")
			return
		}
		h.logger.Error("failed to get order", zap.Error(err))
		response.Internal(c, "INTERNAL_ERROR", "failed to get order")
		return
	}

	payments, err := h.service.ListPaymentsByOrder(c.Request.Context(), orderID)
	if err != nil {
		h.logger.Error("failed to list payments", zap.Error(err))
		response.Internal(c, "INTERNAL_ERROR", "failed to get order")
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": ord, "payments": payments})
}
