package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/chiayu-lin/camgrid/internal/models"
	"github.com/chiayu-lin/camgrid/internal/permissions"
	apperrors "github.com/chiayu-lin/camgrid/pkg/errors"
)

// AccessService answers point permission checks used to gate access to the
// video backend. Authorization is always resolved here before any backend
// URL is handed to a caller.
type AccessService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewAccessService constructs an access checker.
func NewAccessService(db *gorm.DB) (*AccessService, error) {
	if db == nil {
		return nil, errors.New("access service: db is required")
	}
	return &AccessService{db: db, now: time.Now}, nil
}

// CheckAccess reports whether the tenant holds the permission on the camera.
// Ownership implies every permission; otherwise the single effective grant
// for the pair must contain it. Membership is evaluated on the decoded set,
// never through storage-layer string matching.
func (s *AccessService) CheckAccess(ctx context.Context, tenantID, cameraID string, perm permissions.Permission) (bool, error) {
	ctx = ensureContext(ctx)

	tenantID = strings.TrimSpace(tenantID)
	cameraID = strings.TrimSpace(cameraID)
	if tenantID == "" || cameraID == "" {
		return false, nil
	}

	var tenant models.Tenant
	err := s.db.WithContext(ctx).
		Select("id").
		First(&tenant, "id = ? AND status = ?", tenantID, models.TenantStatusActive).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, storeError("access: load tenant", err)
	}

	var camera models.Camera
	err = s.db.WithContext(ctx).
		Select("id", "owner_tenant_id").
		First(&camera, "id = ?", cameraID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, apperrors.ErrUnknownCamera
		}
		return false, storeError("access: load camera", err)
	}

	if camera.OwnerTenantID == tenantID {
		return true, nil
	}

	var grant models.AuthorizationGrant
	err = s.db.WithContext(ctx).
		First(&grant, "camera_id = ? AND tenant_id = ? AND active = ?", cameraID, tenantID, true).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, storeError("access: load grant", err)
	}

	if !grant.EffectiveAt(s.now()) {
		return false, nil
	}
	return grant.Perms.Has(perm), nil
}
