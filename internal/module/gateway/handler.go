package gateway

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vendaflow/server/internal/shared/response"
)

// gatewayView is the admin-facing projection of a gateway record. Secrets
// never leave the server; only per-environment completeness is reported.
type gatewayView struct {
	ID          uuid.UUID   `json:"id"`
	Provider    string      `json:"provider"`
	Name        string      `json:"name"`
	Environment Environment `json:"environment"`
	Active      bool        `json:"active"`
	Credentials struct {
		Sandbox    bool `json:"sandbox"`
		Production bool `json:"production"`
		Legacy     bool `json:"legacy"`
	} `json:"credentials"`
}

func newGatewayView(gw *Gateway) gatewayView {
	v := gatewayView{
		ID:          gw.ID,
		Provider:    gw.Provider,
		Name:        gw.Name,
		Environment: gw.Environment,
		Active:      gw.Active,
	}
	v.Credentials.Sandbox = gw.Pair(EnvironmentSandbox).Complete()
	v.Credentials.Production = gw.Pair(EnvironmentProduction).Complete()
	v.Credentials.Legacy = gw.Pair(EnvironmentLegacy).Complete()
	return v
}

// Handler handles gateway admin HTTP requests.
type Handler struct {
	repo   Repository
	logger *zap.Logger
}

// NewHandler creates a new gateway handler.
func NewHandler(repo Repository, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, logger: logger}
}

// RegisterAdminRoutes registers the back-office gateway routes.
func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.GET("/gateways", h.List)
	r.GET("/gateways/:id", h.Get)
}

// List returns all configured gateways without credential material.
func (h *Handler) List(c *gin.Context) {
	gateways, err := h.repo.List(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to list gateways", zap.Error(err))
		response.Internal(c, "INTERNAL_ERROR", "failed to list gateways")
		return
	}

	views := make([]gatewayView, 0, len(gateways))
	for _, gw := range gateways {
		views = append(views, newGatewayView(gw))
	}
	c.JSON(http.StatusOK, gin.H{"gateways": views})
}

// Get returns one gateway without credential material.
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "INVALID_ID", "invalid gateway id")
		return
	}

	gw, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrGatewayNotFound) {
			response.NotFound(c, "GATEWAY_NOT_FOUND", "gateway not found")
			return
		}
		h.logger.Error("failed to get gateway", zap.Error(err))
		response.Internal(c, "INTERNAL_ERROR", "failed to get gateway")
		return
	}

	c.JSON(http.StatusOK, newGatewayView(gw))
}
