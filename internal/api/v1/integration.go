package v1

import (
	"net/http"

	"github.com/complytrack/complytrack/internal/api/dto"
	ierr "github.com/complytrack/complytrack/internal/errors"
	"github.com/complytrack/complytrack/internal/logger"
	"github.com/complytrack/complytrack/internal/service"
	"github.com/complytrack/complytrack/internal/types"
	"github.com/gin-gonic/gin"
)

type IntegrationHandler struct {
	service  service.IntegrationService
	settings service.SettingsService
	log      *logger.Logger
}

func NewIntegrationHandler(
	service service.IntegrationService,
	settings service.SettingsService,
	log *logger.Logger,
) *IntegrationHandler {
	return &IntegrationHandler{
		service:  service,
		settings: settings,
		log:      log,
	}
}

// Connect produces the provider authorization URL for the organization
func (h *IntegrationHandler) Connect(c *gin.Context) {
	ctx := c.Request.Context()

	resp, err := h.service.Connect(ctx, types.GetOrganizationID(ctx))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Callback completes the OAuth flow; the state is validated before anything else
func (h *IntegrationHandler) Callback(c *gin.Context) {
	var req dto.CallbackRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid callback parameters").
			Mark(ierr.ErrValidation))
		return
	}
	if err := req.Validate(); err != nil {
		c.Error(err)
		return
	}

	ctx := c.Request.Context()
	conn, err := h.service.Callback(ctx, types.GetOrganizationID(ctx), req.Code, req.State, req.RealmID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, conn)
}

func (h *IntegrationHandler) Disconnect(c *gin.Context) {
	ctx := c.Request.Context()

	if err := h.service.Disconnect(ctx, types.GetOrganizationID(ctx)); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "disconnected"})
}

// Status serves the stored connection state without calling the provider
func (h *IntegrationHandler) Status(c *gin.Context) {
	ctx := c.Request.Context()

	resp, err := h.service.Status(ctx, types.GetOrganizationID(ctx))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *IntegrationHandler) SearchCustomers(c *gin.Context) {
	ctx := c.Request.Context()

	customers, err := h.service.SearchCustomers(ctx, types.GetOrganizationID(ctx), c.Query("term"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"customers": customers})
}

func (h *IntegrationHandler) MapCustomer(c *gin.Context) {
	var req dto.MapCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}
	if err := req.Validate(); err != nil {
		c.Error(err)
		return
	}

	ctx := c.Request.Context()
	conn, err := h.service.MapCustomer(ctx, types.GetOrganizationID(ctx), req.CustomerID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, conn)
}

// ListInvoices serves the cached invoice copies, never a live provider call
func (h *IntegrationHandler) ListInvoices(c *gin.Context) {
	ctx := c.Request.Context()

	invoices, err := h.service.ListInvoices(ctx, types.GetOrganizationID(ctx))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"invoices": invoices})
}

func (h *IntegrationHandler) Sync(c *gin.Context) {
	ctx := c.Request.Context()

	result, err := h.service.Sync(ctx, types.GetOrganizationID(ctx))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *IntegrationHandler) UpdateSettings(c *gin.Context) {
	var req dto.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}
	if err := req.Validate(); err != nil {
		c.Error(err)
		return
	}

	ctx := c.Request.Context()
	item, err := h.settings.UpdateSettings(ctx, types.GetOrganizationID(ctx), &service.UpdateSettingsRequest{
		ClientID:     req.ClientID,
		ClientSecret: req.ClientSecret,
		RedirectURI:  req.RedirectURI,
		Environment:  req.Environment,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.SettingsResponse{
		OrganizationID: item.OrganizationID,
		ClientID:       item.ClientID,
		RedirectURI:    item.RedirectURI,
		Environment:    item.Environment,
	})
}

func (h *IntegrationHandler) GetSettings(c *gin.Context) {
	ctx := c.Request.Context()

	item, err := h.settings.GetSettings(ctx, types.GetOrganizationID(ctx))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.SettingsResponse{
		OrganizationID: item.OrganizationID,
		ClientID:       item.ClientID,
		RedirectURI:    item.RedirectURI,
		Environment:    item.Environment,
	})
}
