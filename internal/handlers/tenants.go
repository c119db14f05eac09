package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/chiayu-lin/camgrid/internal/models"
	"github.com/chiayu-lin/camgrid/internal/services"
	apperrors "github.com/chiayu-lin/camgrid/pkg/errors"
	"github.com/chiayu-lin/camgrid/pkg/response"
)

// TenantHandler exposes tenant provisioning and lifecycle endpoints.
type TenantHandler struct {
	svc *services.TenantService
}

// NewTenantHandler constructs a handler for tenant endpoints.
func NewTenantHandler(svc *services.TenantService) (*TenantHandler, error) {
	if svc == nil {
		return nil, errors.New("tenant handler: tenant service is required")
	}
	return &TenantHandler{svc: svc}, nil
}

type tenantDTO struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Domain    string    `json:"domain"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type createTenantRequest struct {
	ID     string `json:"id"`
	Name   string `json:"name" binding:"required"`
	Domain string `json:"domain" binding:"required"`
}

// POST /api/admin/tenants
func (h *TenantHandler) Create(c *gin.Context) {
	var body createTenantRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, apperrors.ErrBadRequest)
		return
	}

	tenant, err := h.svc.Create(requestContext(c), services.CreateTenantInput{
		ID:     body.ID,
		Name:   body.Name,
		Domain: body.Domain,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, mapTenant(tenant))
}

// GET /api/admin/tenants
func (h *TenantHandler) List(c *gin.Context) {
	tenants, err := h.svc.List(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	dtos := make([]tenantDTO, 0, len(tenants))
	for i := range tenants {
		dtos = append(dtos, mapTenant(&tenants[i]))
	}
	response.Success(c, http.StatusOK, dtos)
}

// POST /api/admin/tenants/:id/suspend
func (h *TenantHandler) Suspend(c *gin.Context) {
	if err := h.svc.Suspend(requestContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"suspended": true})
}

// POST /api/admin/tenants/:id/reactivate
func (h *TenantHandler) Reactivate(c *gin.Context) {
	if err := h.svc.Reactivate(requestContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"reactivated": true})
}

func mapTenant(tenant *models.Tenant) tenantDTO {
	return tenantDTO{
		ID:        tenant.ID,
		Name:      tenant.Name,
		Domain:    tenant.Domain,
		Status:    string(tenant.Status),
		CreatedAt: tenant.CreatedAt,
	}
}
