package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/chiayu-lin/camgrid/internal/models"
	"github.com/chiayu-lin/camgrid/internal/services"
	apperrors "github.com/chiayu-lin/camgrid/pkg/errors"
	"github.com/chiayu-lin/camgrid/pkg/response"
)

// GrantHandler exposes the grant lifecycle to admin callers.
type GrantHandler struct {
	svc *services.GrantService
}

// NewGrantHandler constructs a handler for grant endpoints.
func NewGrantHandler(svc *services.GrantService) (*GrantHandler, error) {
	if svc == nil {
		return nil, errors.New("grant handler: grant service is required")
	}
	return &GrantHandler{svc: svc}, nil
}

type grantDTO struct {
	ID          string     `json:"id"`
	CameraID    string     `json:"camera_id"`
	CameraName  string     `json:"camera_name,omitempty"`
	TenantID    string     `json:"tenant_id"`
	TenantName  string     `json:"tenant_name,omitempty"`
	Permissions []string   `json:"permissions"`
	IsActive    bool       `json:"is_active"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	GrantedAt   time.Time  `json:"granted_at"`
}

type createGrantRequest struct {
	CameraID    string   `json:"camera_id" binding:"required"`
	TenantID    string   `json:"tenant_id" binding:"required"`
	Permissions []string `json:"permissions" binding:"required,min=1,dive,required"`
	ExpiresAt   *string  `json:"expires_at"`
}

// POST /api/admin/grants
func (h *GrantHandler) Create(c *gin.Context) {
	var body createGrantRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, apperrors.ErrBadRequest)
		return
	}

	var expiresAt *time.Time
	if body.ExpiresAt != nil && strings.TrimSpace(*body.ExpiresAt) != "" {
		t, err := time.Parse(time.RFC3339, strings.TrimSpace(*body.ExpiresAt))
		if err != nil {
			response.Error(c, apperrors.NewBadRequest("expires_at must be RFC3339 timestamp"))
			return
		}
		expiresAt = &t
	}

	grant, err := h.svc.Grant(requestContext(c), services.GrantInput{
		CameraID:    body.CameraID,
		TenantID:    body.TenantID,
		Permissions: body.Permissions,
		ExpiresAt:   expiresAt,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, mapGrant(grant))
}

// DELETE /api/admin/grants
//
// Idempotent: revoking a missing or already-revoked grant reports
// revoked=false without an error.
func (h *GrantHandler) Revoke(c *gin.Context) {
	cameraID := strings.TrimSpace(c.Query("camera_id"))
	tenantID := strings.TrimSpace(c.Query("tenant_id"))
	if cameraID == "" || tenantID == "" {
		response.Error(c, apperrors.NewBadRequest("camera_id and tenant_id are required"))
		return
	}

	grant, found, err := h.svc.Revoke(requestContext(c), cameraID, tenantID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !found {
		response.Success(c, http.StatusOK, gin.H{"revoked": false})
		return
	}
	response.Success(c, http.StatusOK, gin.H{"revoked": true, "grant": mapGrant(grant)})
}

// GET /api/admin/grants
//
// Filter by tenant_id (grants made to the tenant) or camera_id (grants on
// the camera); exactly one must be supplied.
func (h *GrantHandler) List(c *gin.Context) {
	tenantID := strings.TrimSpace(c.Query("tenant_id"))
	cameraID := strings.TrimSpace(c.Query("camera_id"))

	var (
		grants []models.AuthorizationGrant
		err    error
	)
	switch {
	case tenantID != "" && cameraID == "":
		grants, err = h.svc.ListGrants(requestContext(c), tenantID)
	case cameraID != "" && tenantID == "":
		grants, err = h.svc.ListGrantsForCamera(requestContext(c), cameraID)
	default:
		response.Error(c, apperrors.NewBadRequest("exactly one of tenant_id or camera_id is required"))
		return
	}
	if err != nil {
		response.Error(c, err)
		return
	}

	dtos := make([]grantDTO, 0, len(grants))
	for i := range grants {
		dtos = append(dtos, mapGrant(&grants[i]))
	}
	response.Success(c, http.StatusOK, dtos)
}

func mapGrant(grant *models.AuthorizationGrant) grantDTO {
	dto := grantDTO{
		ID:          grant.ID,
		CameraID:    grant.CameraID,
		TenantID:    grant.TenantID,
		Permissions: grant.Perms.Strings(),
		IsActive:    grant.Active,
		ExpiresAt:   grant.ExpiresAt,
		GrantedAt:   grant.GrantedAt,
	}
	if grant.Camera != nil {
		dto.CameraName = grant.Camera.Name
	}
	if grant.Tenant != nil {
		dto.TenantName = grant.Tenant.Name
	}
	return dto
}
