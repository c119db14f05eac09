package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	"github.com/chiayu-lin/camgrid/internal/models"
	"github.com/chiayu-lin/camgrid/internal/services"
	apperrors "github.com/chiayu-lin/camgrid/pkg/errors"
	"github.com/chiayu-lin/camgrid/pkg/response"
)

// CameraHandler exposes the tenant-facing resolution boundary.
type CameraHandler struct {
	resolver      *services.ResolutionService
	defaultTenant string
}

// NewCameraHandler constructs the resolution handler. defaultTenant backs
// requests that omit the tenant parameter.
func NewCameraHandler(resolver *services.ResolutionService, defaultTenant string) (*CameraHandler, error) {
	if resolver == nil {
		return nil, errors.New("camera handler: resolution service is required")
	}
	return &CameraHandler{resolver: resolver, defaultTenant: strings.TrimSpace(defaultTenant)}, nil
}

type cameraLocationDTO struct {
	Address string `json:"address,omitempty"`
	Zone    string `json:"zone,omitempty"`
}

type cameraSourceDTO struct {
	Host     string `json:"host"`
	CameraID string `json:"camera_id"`
}

type resolvedCameraDTO struct {
	ID            string              `json:"id"`
	Name          string              `json:"name"`
	DeviceID      string              `json:"device_id,omitempty"`
	Status        models.CameraStatus `json:"status"`
	Location      cameraLocationDTO   `json:"location"`
	Source        *cameraSourceDTO    `json:"source,omitempty"`
	StreamURLs    datatypes.JSON      `json:"stream_urls,omitempty"`
	Capabilities  datatypes.JSON      `json:"capabilities,omitempty"`
	Specs         datatypes.JSON      `json:"specs,omitempty"`
	OwnershipType string              `json:"ownership_type"`
	Permissions   []string            `json:"permissions,omitempty"`
	IsActive      bool                `json:"is_active"`
	CreatedAt     time.Time           `json:"created_at"`
}

type resolutionSummaryDTO struct {
	Total      int `json:"total"`
	Owned      int `json:"owned"`
	Authorized int `json:"authorized"`
	Online     int `json:"online"`
}

type authorizedCamerasDTO struct {
	TenantID string               `json:"tenant_id"`
	Summary  resolutionSummaryDTO `json:"summary"`
	Cameras  []resolvedCameraDTO  `json:"cameras"`
}

// GET /api/cameras/authorized
//
// An unknown or suspended tenant yields an empty list rather than an error so
// the endpoint cannot be used to probe tenant existence.
func (h *CameraHandler) Authorized(c *gin.Context) {
	tenantID := strings.TrimSpace(c.Query("tenant_id"))
	if tenantID == "" {
		tenantID = h.defaultTenant
	}

	resolved, err := h.resolver.ResolveVisibleCameras(requestContext(c), tenantID)
	if err != nil {
		if errors.Is(err, apperrors.ErrUnknownTenant) {
			response.Success(c, http.StatusOK, authorizedCamerasDTO{
				TenantID: tenantID,
				Cameras:  []resolvedCameraDTO{},
			})
			return
		}
		response.Error(c, err)
		return
	}

	payload := authorizedCamerasDTO{
		TenantID: tenantID,
		Cameras:  make([]resolvedCameraDTO, 0, len(resolved)),
	}
	for _, entry := range resolved {
		payload.Cameras = append(payload.Cameras, mapResolvedCamera(entry))

		payload.Summary.Total++
		switch entry.OwnershipType {
		case services.OwnershipOwned:
			payload.Summary.Owned++
		case services.OwnershipAuthorized:
			payload.Summary.Authorized++
		}
		if entry.Camera.Status == models.CameraStatusOnline {
			payload.Summary.Online++
		}
	}

	response.Success(c, http.StatusOK, payload)
}

func mapResolvedCamera(entry services.ResolvedCamera) resolvedCameraDTO {
	cam := entry.Camera

	dto := resolvedCameraDTO{
		ID:       cam.ID,
		Name:     cam.Name,
		DeviceID: cam.DeviceID,
		Status:   cam.Status,
		Location: cameraLocationDTO{
			Address: cam.LocationAddress,
			Zone:    cam.LocationZone,
		},
		StreamURLs:    cam.StreamURLs,
		Capabilities:  cam.Capabilities,
		Specs:         cam.Specs,
		OwnershipType: string(entry.OwnershipType),
		IsActive:      cam.Active,
		CreatedAt:     cam.CreatedAt,
	}

	if cam.HasSource() {
		dto.Source = &cameraSourceDTO{
			Host:     cam.SourceHost,
			CameraID: cam.SourceCameraID,
		}
	}

	if entry.OwnershipType == services.OwnershipAuthorized {
		dto.Permissions = entry.Permissions.Strings()
	}

	return dto
}
