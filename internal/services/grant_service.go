package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/chiayu-lin/camgrid/internal/models"
	"github.com/chiayu-lin/camgrid/internal/permissions"
	apperrors "github.com/chiayu-lin/camgrid/pkg/errors"
	"github.com/chiayu-lin/camgrid/pkg/metrics"
)

// GrantService manages the authorization grant lifecycle: create/replace,
// revoke, and admin listings. Expiry is never enforced here; effectiveness
// is computed lazily wherever grants are read.
type GrantService struct {
	db  *gorm.DB
	now func() time.Time
}

// GrantServiceOption customises the service.
type GrantServiceOption func(*GrantService)

// WithNow overrides the clock, primarily for tests.
func WithNow(now func() time.Time) GrantServiceOption {
	return func(s *GrantService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewGrantService constructs a grant lifecycle service.
func NewGrantService(db *gorm.DB, opts ...GrantServiceOption) (*GrantService, error) {
	if db == nil {
		return nil, errors.New("grant service: db is required")
	}
	svc := &GrantService{db: db, now: time.Now}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// GrantInput describes a grant creation or replacement request.
type GrantInput struct {
	CameraID    string
	TenantID    string
	Permissions []string
	ExpiresAt   *time.Time
}

// Grant creates or replaces the authorization for (camera, tenant). The write
// is a single conditional insert-or-update against the (camera_id, tenant_id)
// uniqueness constraint, so two racing grants leave exactly one consistent
// row with last-write-wins semantics. A previously revoked grant is
// reactivated with the new permission set and expiry.
func (s *GrantService) Grant(ctx context.Context, input GrantInput) (*models.AuthorizationGrant, error) {
	ctx = ensureContext(ctx)

	grant, err := s.grant(ctx, input)
	if err != nil {
		metrics.GrantMutations.WithLabelValues("grant", "error").Inc()
		return nil, err
	}
	metrics.GrantMutations.WithLabelValues("grant", "ok").Inc()
	return grant, nil
}

func (s *GrantService) grant(ctx context.Context, input GrantInput) (*models.AuthorizationGrant, error) {
	perms, err := permissions.Parse(input.Permissions)
	if err != nil {
		return nil, apperrors.ErrInvalidPermission.WithInternal(err)
	}
	if len(perms) == 0 {
		return nil, apperrors.ErrInvalidPermission
	}

	cameraID := strings.TrimSpace(input.CameraID)
	tenantID := strings.TrimSpace(input.TenantID)

	var camera models.Camera
	if err := s.db.WithContext(ctx).Select("id", "owner_tenant_id").First(&camera, "id = ?", cameraID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUnknownCamera
		}
		return nil, storeError("grant service: load camera", err)
	}

	// Ownership implies unrestricted access; a grant row for the owner would
	// only create a duplicate classification downstream.
	if camera.OwnerTenantID == tenantID {
		return nil, apperrors.ErrRedundantGrant
	}

	var tenant models.Tenant
	if err := s.db.WithContext(ctx).Select("id").First(&tenant, "id = ? AND status = ?", tenantID, models.TenantStatusActive).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUnknownTenant
		}
		return nil, storeError("grant service: load tenant", err)
	}

	var expiresAt *time.Time
	if input.ExpiresAt != nil {
		exp := input.ExpiresAt.UTC()
		expiresAt = &exp
	}

	grant := models.AuthorizationGrant{
		CameraID:  cameraID,
		TenantID:  tenantID,
		Perms:     perms,
		Active:    true,
		ExpiresAt: expiresAt,
		GrantedAt: s.now().UTC(),
	}

	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "camera_id"}, {Name: "tenant_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"permissions": perms,
				"active":      true,
				"expires_at":  expiresAt,
				"granted_at":  grant.GrantedAt,
				"updated_at":  grant.GrantedAt,
			}),
		}).
		Create(&grant).Error
	if err != nil {
		return nil, storeError("grant service: upsert", err)
	}

	// Reload so callers observe the canonical row regardless of which branch
	// of the upsert applied.
	var stored models.AuthorizationGrant
	err = s.db.WithContext(ctx).
		First(&stored, "camera_id = ? AND tenant_id = ?", cameraID, tenantID).Error
	if err != nil {
		return nil, storeError("grant service: reload", err)
	}
	return &stored, nil
}

// Revoke deactivates the grant for (camera, tenant) while keeping the row as
// an audit record. Revoking a nonexistent or already-revoked grant is not an
// error; found reports whether an active grant was actually revoked.
func (s *GrantService) Revoke(ctx context.Context, cameraID, tenantID string) (grant *models.AuthorizationGrant, found bool, err error) {
	ctx = ensureContext(ctx)

	cameraID = strings.TrimSpace(cameraID)
	tenantID = strings.TrimSpace(tenantID)

	result := s.db.WithContext(ctx).
		Model(&models.AuthorizationGrant{}).
		Where("camera_id = ? AND tenant_id = ? AND active = ?", cameraID, tenantID, true).
		Update("active", false)
	if result.Error != nil {
		metrics.GrantMutations.WithLabelValues("revoke", "error").Inc()
		return nil, false, storeError("grant service: revoke", result.Error)
	}
	if result.RowsAffected == 0 {
		metrics.GrantMutations.WithLabelValues("revoke", "not_found").Inc()
		return nil, false, nil
	}

	var stored models.AuthorizationGrant
	if err := s.db.WithContext(ctx).
		First(&stored, "camera_id = ? AND tenant_id = ?", cameraID, tenantID).Error; err != nil {
		return nil, false, storeError("grant service: reload", err)
	}

	metrics.GrantMutations.WithLabelValues("revoke", "ok").Inc()
	return &stored, true, nil
}

// ListGrants returns every grant made to the tenant (the authorized party),
// newest first, including revoked and expired rows for audit views.
func (s *GrantService) ListGrants(ctx context.Context, tenantID string) ([]models.AuthorizationGrant, error) {
	ctx = ensureContext(ctx)

	var grants []models.AuthorizationGrant
	err := s.db.WithContext(ctx).
		Preload("Camera").
		Where("tenant_id = ?", strings.TrimSpace(tenantID)).
		Order("granted_at DESC").
		Find(&grants).Error
	if err != nil {
		return nil, storeError("grant service: list by tenant", err)
	}
	return grants, nil
}

// ListGrantsForCamera returns every grant on the camera, newest first.
func (s *GrantService) ListGrantsForCamera(ctx context.Context, cameraID string) ([]models.AuthorizationGrant, error) {
	ctx = ensureContext(ctx)

	var grants []models.AuthorizationGrant
	err := s.db.WithContext(ctx).
		Preload("Tenant").
		Where("camera_id = ?", strings.TrimSpace(cameraID)).
		Order("granted_at DESC").
		Find(&grants).Error
	if err != nil {
		return nil, storeError("grant service: list by camera", err)
	}
	return grants, nil
}
