package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/chiayu-lin/camgrid/internal/models"
	apperrors "github.com/chiayu-lin/camgrid/pkg/errors"
)

// CameraService maintains the camera registry: registration, source sync,
// status updates, deactivation and ownership transfer.
type CameraService struct {
	db *gorm.DB
}

// NewCameraService constructs a camera registry service.
func NewCameraService(db *gorm.DB) (*CameraService, error) {
	if db == nil {
		return nil, errors.New("camera service: db is required")
	}
	return &CameraService{db: db}, nil
}

// RegisterCameraInput describes a manual camera registration.
type RegisterCameraInput struct {
	OwnerTenantID   string
	Name            string
	DeviceID        string
	Status          models.CameraStatus
	LocationAddress string
	LocationZone    string
	SourceHost      string
	SourceCameraID  string
	Capabilities    datatypes.JSON
	Specs           datatypes.JSON
	StreamURLs      datatypes.JSON
}

// Register adds a camera to the registry under the given owning tenant.
func (s *CameraService) Register(ctx context.Context, input RegisterCameraInput) (*models.Camera, error) {
	ctx = ensureContext(ctx)

	if err := s.ensureActiveTenant(ctx, input.OwnerTenantID); err != nil {
		return nil, err
	}

	status := input.Status
	if status == "" {
		status = models.CameraStatusOffline
	}
	if !models.KnownCameraStatus(status) {
		return nil, apperrors.NewBadRequest("unknown camera status")
	}

	camera := models.Camera{
		OwnerTenantID:   strings.TrimSpace(input.OwnerTenantID),
		Name:            input.Name,
		DeviceID:        strings.TrimSpace(input.DeviceID),
		Status:          status,
		LocationAddress: input.LocationAddress,
		LocationZone:    input.LocationZone,
		SourceHost:      strings.TrimSpace(input.SourceHost),
		SourceCameraID:  strings.TrimSpace(input.SourceCameraID),
		Capabilities:    input.Capabilities,
		Specs:           input.Specs,
		StreamURLs:      input.StreamURLs,
		Active:          true,
	}

	if err := s.db.WithContext(ctx).Create(&camera).Error; err != nil {
		return nil, storeError("camera service: register", err)
	}
	return &camera, nil
}

// Get loads a camera by identifier.
func (s *CameraService) Get(ctx context.Context, cameraID string) (*models.Camera, error) {
	ctx = ensureContext(ctx)

	cameraID = strings.TrimSpace(cameraID)
	if cameraID == "" {
		return nil, apperrors.ErrUnknownCamera
	}

	var camera models.Camera
	if err := s.db.WithContext(ctx).First(&camera, "id = ?", cameraID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUnknownCamera
		}
		return nil, storeError("camera service: get", err)
	}
	return &camera, nil
}

// ListByOwner returns all cameras owned by the tenant, newest first.
func (s *CameraService) ListByOwner(ctx context.Context, tenantID string) ([]models.Camera, error) {
	ctx = ensureContext(ctx)

	var cameras []models.Camera
	err := s.db.WithContext(ctx).
		Where("owner_tenant_id = ?", strings.TrimSpace(tenantID)).
		Order("created_at DESC, id ASC").
		Find(&cameras).Error
	if err != nil {
		return nil, storeError("camera service: list by owner", err)
	}
	return cameras, nil
}

// UpdateStatus records the camera's operational status reported by the source.
func (s *CameraService) UpdateStatus(ctx context.Context, cameraID string, status models.CameraStatus) error {
	ctx = ensureContext(ctx)

	if !models.KnownCameraStatus(status) {
		return apperrors.NewBadRequest("unknown camera status")
	}

	result := s.db.WithContext(ctx).
		Model(&models.Camera{}).
		Where("id = ?", strings.TrimSpace(cameraID)).
		Update("status", status)
	if result.Error != nil {
		return storeError("camera service: update status", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrUnknownCamera
	}
	return nil
}

// SourceCamera is one camera as reported by the video backend during sync.
type SourceCamera struct {
	SourceHost     string
	SourceCameraID string
	Name           string
	Status         models.CameraStatus
	StreamURLs     datatypes.JSON
}

// SyncStats summarises a registry sync run.
type SyncStats struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
}

// SyncFromSource upserts cameras reported by the video backend, keyed by
// their external reference. New cameras are registered under ownerTenantID;
// existing ones refresh name, status and stream URLs but keep their owner.
func (s *CameraService) SyncFromSource(ctx context.Context, ownerTenantID string, reported []SourceCamera) (SyncStats, error) {
	ctx = ensureContext(ctx)

	stats := SyncStats{}
	if err := s.ensureActiveTenant(ctx, ownerTenantID); err != nil {
		return stats, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, src := range reported {
			host := strings.TrimSpace(src.SourceHost)
			remoteID := strings.TrimSpace(src.SourceCameraID)
			if remoteID == "" {
				continue
			}

			status := src.Status
			if !models.KnownCameraStatus(status) {
				status = models.CameraStatusOffline
			}

			var existing models.Camera
			err := tx.
				Where("source_host = ? AND source_camera_id = ?", host, remoteID).
				First(&existing).Error
			switch {
			case err == nil:
				updates := map[string]any{
					"name":   src.Name,
					"status": status,
				}
				if len(src.StreamURLs) > 0 {
					updates["stream_urls"] = src.StreamURLs
				}
				if err := tx.Model(&existing).Updates(updates).Error; err != nil {
					return err
				}
				stats.Updated++
			case errors.Is(err, gorm.ErrRecordNotFound):
				camera := models.Camera{
					OwnerTenantID:  strings.TrimSpace(ownerTenantID),
					Name:           src.Name,
					Status:         status,
					SourceHost:     host,
					SourceCameraID: remoteID,
					StreamURLs:     src.StreamURLs,
					Active:         true,
				}
				if err := tx.Create(&camera).Error; err != nil {
					return err
				}
				stats.Created++
			default:
				return err
			}
		}
		return nil
	})
	if err != nil {
		return SyncStats{}, storeError("camera service: sync", err)
	}
	return stats, nil
}

// Deactivate retires a camera. The record is kept for referential integrity;
// every authorization grant referencing it is revoked in the same transaction
// so no tenant can still resolve the camera through a stale grant.
func (s *CameraService) Deactivate(ctx context.Context, cameraID string) error {
	ctx = ensureContext(ctx)

	cameraID = strings.TrimSpace(cameraID)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Camera{}).
			Where("id = ?", cameraID).
			Update("active", false)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return apperrors.ErrUnknownCamera
		}

		return tx.Model(&models.AuthorizationGrant{}).
			Where("camera_id = ? AND active = ?", cameraID, true).
			Update("active", false).Error
	})
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return appErr
		}
		return storeError("camera service: deactivate", err)
	}
	return nil
}

// ReassignOwner transfers camera ownership to another active tenant. Grants
// to third tenants survive the transfer (they reference the camera, not the
// previous owner); a grant held by the incoming owner becomes redundant and
// is revoked so resolution never sees an owner with a grant row.
func (s *CameraService) ReassignOwner(ctx context.Context, cameraID, newOwnerID string) (*models.Camera, error) {
	ctx = ensureContext(ctx)

	cameraID = strings.TrimSpace(cameraID)
	newOwnerID = strings.TrimSpace(newOwnerID)

	if err := s.ensureActiveTenant(ctx, newOwnerID); err != nil {
		return nil, err
	}

	var camera models.Camera
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&camera, "id = ?", cameraID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrUnknownCamera
			}
			return err
		}

		if camera.OwnerTenantID == newOwnerID {
			return nil
		}

		if err := tx.Model(&camera).Update("owner_tenant_id", newOwnerID).Error; err != nil {
			return err
		}

		return tx.Model(&models.AuthorizationGrant{}).
			Where("camera_id = ? AND tenant_id = ? AND active = ?", cameraID, newOwnerID, true).
			Update("active", false).Error
	})
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, storeError("camera service: reassign owner", err)
	}
	return &camera, nil
}

func (s *CameraService) ensureActiveTenant(ctx context.Context, tenantID string) error {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return apperrors.ErrUnknownTenant
	}

	var tenant models.Tenant
	err := s.db.WithContext(ctx).
		Select("id").
		First(&tenant, "id = ? AND status = ?", tenantID, models.TenantStatusActive).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrUnknownTenant
		}
		return storeError("camera service: load tenant", err)
	}
	return nil
}
