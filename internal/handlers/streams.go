package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/chiayu-lin/camgrid/internal/permissions"
	"github.com/chiayu-lin/camgrid/internal/services"
	"github.com/chiayu-lin/camgrid/internal/xcms"
	apperrors "github.com/chiayu-lin/camgrid/pkg/errors"
	"github.com/chiayu-lin/camgrid/pkg/response"
)

// StreamHandler hands out video backend URLs and detection events for a
// camera, after an access check. The backend itself never sees tenants.
type StreamHandler struct {
	access        *services.AccessService
	cameras       *services.CameraService
	backend       *xcms.Client
	defaultTenant string
}

// NewStreamHandler constructs a handler for stream and event endpoints.
func NewStreamHandler(access *services.AccessService, cameras *services.CameraService, backend *xcms.Client, defaultTenant string) (*StreamHandler, error) {
	if access == nil {
		return nil, errors.New("stream handler: access service is required")
	}
	if cameras == nil {
		return nil, errors.New("stream handler: camera service is required")
	}
	if backend == nil {
		return nil, errors.New("stream handler: backend client is required")
	}
	return &StreamHandler{
		access:        access,
		cameras:       cameras,
		backend:       backend,
		defaultTenant: strings.TrimSpace(defaultTenant),
	}, nil
}

// GET /api/cameras/:id/streams
func (h *StreamHandler) StreamURLs(c *gin.Context) {
	ref, ok := h.authorizeSource(c, permissions.PermissionView)
	if !ok {
		return
	}

	response.Success(c, http.StatusOK, h.backend.StreamURLs(ref))
}

// GET /api/cameras/:id/events
func (h *StreamHandler) Events(c *gin.Context) {
	ref, ok := h.authorizeSource(c, permissions.PermissionView)
	if !ok {
		return
	}

	query := xcms.EventQuery{EventType: c.Query("event_type")}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			response.Error(c, apperrors.NewBadRequest("limit must be a positive integer"))
			return
		}
		query.Limit = limit
	}
	if raw := c.Query("start_time"); raw != "" {
		start, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.Error(c, apperrors.NewBadRequest("start_time must be RFC3339 timestamp"))
			return
		}
		query.Start = &start
	}
	if raw := c.Query("end_time"); raw != "" {
		end, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.Error(c, apperrors.NewBadRequest("end_time must be RFC3339 timestamp"))
			return
		}
		query.End = &end
	}

	events, err := h.backend.RecentEvents(requestContext(c), ref, query)
	if err != nil {
		response.Error(c, apperrors.ErrUpstreamUnavailable.WithInternal(err))
		return
	}
	response.Success(c, http.StatusOK, gin.H{"events": events})
}

// authorizeSource checks the caller's permission on the camera and resolves
// its backend reference. It writes the error response itself when ok=false.
func (h *StreamHandler) authorizeSource(c *gin.Context, perm permissions.Permission) (xcms.Ref, bool) {
	cameraID := c.Param("id")
	tenantID := strings.TrimSpace(c.Query("tenant_id"))
	if tenantID == "" {
		tenantID = h.defaultTenant
	}

	allowed, err := h.access.CheckAccess(requestContext(c), tenantID, cameraID, perm)
	if err != nil {
		response.Error(c, err)
		return xcms.Ref{}, false
	}
	if !allowed {
		response.Error(c, apperrors.ErrForbidden)
		return xcms.Ref{}, false
	}

	camera, err := h.cameras.Get(requestContext(c), cameraID)
	if err != nil {
		response.Error(c, err)
		return xcms.Ref{}, false
	}
	if !camera.HasSource() {
		response.Error(c, apperrors.NewBadRequest("camera has no video source attached"))
		return xcms.Ref{}, false
	}

	return xcms.Ref{Host: camera.SourceHost, CameraID: camera.SourceCameraID}, true
}
