package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/substitute-finder/internal/dto"
	"github.com/noah-isme/substitute-finder/internal/models"
	"github.com/noah-isme/substitute-finder/pkg/response"
)

type organizationService interface {
	List(ctx context.Context) ([]models.Organization, error)
	Get(ctx context.Context, id string) (*models.Organization, error)
	Create(ctx context.Context, req dto.OrganizationRequest) (*models.Organization, error)
	Update(ctx context.Context, id string, req dto.OrganizationRequest) (*models.Organization, error)
	Delete(ctx context.Context, id string) error
}

// OrganizationHandler exposes organization endpoints.
type OrganizationHandler struct {
	service organizationService
}

// NewOrganizationHandler builds a new handler.
func NewOrganizationHandler(service organizationService) *OrganizationHandler {
	return &OrganizationHandler{service: service}
}

// List godoc
// @Summary List organizations
// @Tags Organizations
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /organizations [get]
func (h *OrganizationHandler) List(c *gin.Context) {
	orgs, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, orgs)
}

// Get godoc
// @Summary Get organization
// @Tags Organizations
// @Produce json
// @Param id path string true "Organization ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /organizations/{id} [get]
func (h *OrganizationHandler) Get(c *gin.Context) {
	org, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, org)
}

// Create godoc
// @Summary Create organization
// @Tags Organizations
// @Accept json
// @Produce json
// @Param payload body dto.OrganizationRequest true "Organization payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /organizations [post]
func (h *OrganizationHandler) Create(c *gin.Context) {
	var req dto.OrganizationRequest
	if !bindJSON(c, &req, "invalid organization payload") {
		return
	}
	org, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, org)
}

// Update godoc
// @Summary Update organization
// @Tags Organizations
// @Accept json
// @Produce json
// @Param id path string true "Organization ID"
// @Param payload body dto.OrganizationRequest true "Organization payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /organizations/{id} [put]
func (h *OrganizationHandler) Update(c *gin.Context) {
	var req dto.OrganizationRequest
	if !bindJSON(c, &req, "invalid organization payload") {
		return
	}
	org, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, org)
}

// Delete godoc
// @Summary Delete organization
// @Tags Organizations
// @Param id path string true "Organization ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Router /organizations/{id} [delete]
func (h *OrganizationHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
