package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	"github.com/chiayu-lin/camgrid/internal/models"
	"github.com/chiayu-lin/camgrid/internal/services"
	apperrors "github.com/chiayu-lin/camgrid/pkg/errors"
	"github.com/chiayu-lin/camgrid/pkg/response"
)

// RegistryHandler exposes admin endpoints for the camera registry.
type RegistryHandler struct {
	svc *services.CameraService
}

// NewRegistryHandler constructs a handler for camera registry endpoints.
func NewRegistryHandler(svc *services.CameraService) (*RegistryHandler, error) {
	if svc == nil {
		return nil, errors.New("registry handler: camera service is required")
	}
	return &RegistryHandler{svc: svc}, nil
}

type registerCameraRequest struct {
	OwnerTenantID   string         `json:"owner_tenant_id" binding:"required"`
	Name            string         `json:"name" binding:"required"`
	DeviceID        string         `json:"device_id"`
	Status          string         `json:"status"`
	LocationAddress string         `json:"location_address"`
	LocationZone    string         `json:"location_zone"`
	SourceHost      string         `json:"source_host"`
	SourceCameraID  string         `json:"source_camera_id"`
	Capabilities    datatypes.JSON `json:"capabilities"`
	Specs           datatypes.JSON `json:"specs"`
	StreamURLs      datatypes.JSON `json:"stream_urls"`
}

// POST /api/admin/cameras
func (h *RegistryHandler) Register(c *gin.Context) {
	var body registerCameraRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, apperrors.ErrBadRequest)
		return
	}

	camera, err := h.svc.Register(requestContext(c), services.RegisterCameraInput{
		OwnerTenantID:   body.OwnerTenantID,
		Name:            body.Name,
		DeviceID:        body.DeviceID,
		Status:          models.CameraStatus(body.Status),
		LocationAddress: body.LocationAddress,
		LocationZone:    body.LocationZone,
		SourceHost:      body.SourceHost,
		SourceCameraID:  body.SourceCameraID,
		Capabilities:    body.Capabilities,
		Specs:           body.Specs,
		StreamURLs:      body.StreamURLs,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, camera)
}

// GET /api/admin/cameras?owner_tenant_id=...
func (h *RegistryHandler) ListByOwner(c *gin.Context) {
	ownerID := c.Query("owner_tenant_id")
	if ownerID == "" {
		response.Error(c, apperrors.NewBadRequest("owner_tenant_id is required"))
		return
	}

	cameras, err := h.svc.ListByOwner(requestContext(c), ownerID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, cameras)
}

type syncCameraEntry struct {
	SourceHost     string         `json:"source_host"`
	SourceCameraID string         `json:"source_camera_id" binding:"required"`
	Name           string         `json:"name"`
	Status         string         `json:"status"`
	StreamURLs     datatypes.JSON `json:"stream_urls"`
}

type syncCamerasRequest struct {
	OwnerTenantID string            `json:"owner_tenant_id" binding:"required"`
	Cameras       []syncCameraEntry `json:"cameras" binding:"required"`
}

// POST /api/admin/cameras/sync
//
// Upserts the reported backend inventory into the registry. Cameras not in
// the report are left untouched; removal stays an explicit admin action.
func (h *RegistryHandler) Sync(c *gin.Context) {
	var body syncCamerasRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, apperrors.ErrBadRequest)
		return
	}

	reported := make([]services.SourceCamera, 0, len(body.Cameras))
	for _, entry := range body.Cameras {
		reported = append(reported, services.SourceCamera{
			SourceHost:     entry.SourceHost,
			SourceCameraID: entry.SourceCameraID,
			Name:           entry.Name,
			Status:         models.CameraStatus(entry.Status),
			StreamURLs:     entry.StreamURLs,
		})
	}

	stats, err := h.svc.SyncFromSource(requestContext(c), body.OwnerTenantID, reported)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, stats)
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// PUT /api/admin/cameras/:id/status
func (h *RegistryHandler) UpdateStatus(c *gin.Context) {
	var body updateStatusRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, apperrors.ErrBadRequest)
		return
	}

	if err := h.svc.UpdateStatus(requestContext(c), c.Param("id"), models.CameraStatus(body.Status)); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"updated": true})
}

// DELETE /api/admin/cameras/:id
//
// Retires the camera and revokes all grants on it in one transaction.
func (h *RegistryHandler) Deactivate(c *gin.Context) {
	if err := h.svc.Deactivate(requestContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deactivated": true})
}

type reassignOwnerRequest struct {
	OwnerTenantID string `json:"owner_tenant_id" binding:"required"`
}

// PUT /api/admin/cameras/:id/owner
func (h *RegistryHandler) ReassignOwner(c *gin.Context) {
	var body reassignOwnerRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, apperrors.ErrBadRequest)
		return
	}

	camera, err := h.svc.ReassignOwner(requestContext(c), c.Param("id"), body.OwnerTenantID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, camera)
}
