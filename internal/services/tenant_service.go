package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/chiayu-lin/camgrid/internal/models"
	apperrors "github.com/chiayu-lin/camgrid/pkg/errors"
)

// TenantService provisions and manages organisational tenants. Tenants are
// never deleted; suspension is the only removal mechanism.
type TenantService struct {
	db *gorm.DB
}

// NewTenantService constructs a tenant service.
func NewTenantService(db *gorm.DB) (*TenantService, error) {
	if db == nil {
		return nil, errors.New("tenant service: db is required")
	}
	return &TenantService{db: db}, nil
}

// CreateTenantInput describes a provisioning request.
type CreateTenantInput struct {
	ID     string
	Name   string
	Domain string
}

// Create provisions a new active tenant.
func (s *TenantService) Create(ctx context.Context, input CreateTenantInput) (*models.Tenant, error) {
	ctx = ensureContext(ctx)

	tenant := models.Tenant{
		BaseModel: models.BaseModel{ID: strings.TrimSpace(input.ID)},
		Name:      input.Name,
		Domain:    input.Domain,
		Status:    models.TenantStatusActive,
	}

	if err := s.db.WithContext(ctx).Create(&tenant).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.NewBadRequest("tenant domain already registered")
		}
		return nil, storeError("tenant service: create", err)
	}
	return &tenant, nil
}

// GetActive returns the tenant when it exists and is active. Suspended and
// missing tenants are indistinguishable to callers.
func (s *TenantService) GetActive(ctx context.Context, tenantID string) (*models.Tenant, error) {
	ctx = ensureContext(ctx)

	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return nil, apperrors.ErrUnknownTenant
	}

	var tenant models.Tenant
	err := s.db.WithContext(ctx).
		First(&tenant, "id = ? AND status = ?", tenantID, models.TenantStatusActive).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUnknownTenant
		}
		return nil, storeError("tenant service: get", err)
	}
	return &tenant, nil
}

// GetActiveByDomain resolves an active tenant through its domain.
func (s *TenantService) GetActiveByDomain(ctx context.Context, domain string) (*models.Tenant, error) {
	ctx = ensureContext(ctx)

	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" {
		return nil, apperrors.ErrUnknownTenant
	}

	var tenant models.Tenant
	err := s.db.WithContext(ctx).
		First(&tenant, "domain = ? AND status = ?", domain, models.TenantStatusActive).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUnknownTenant
		}
		return nil, storeError("tenant service: get by domain", err)
	}
	return &tenant, nil
}

// List returns active tenants, most recently provisioned first.
func (s *TenantService) List(ctx context.Context) ([]models.Tenant, error) {
	ctx = ensureContext(ctx)

	var tenants []models.Tenant
	err := s.db.WithContext(ctx).
		Where("status = ?", models.TenantStatusActive).
		Order("created_at DESC").
		Find(&tenants).Error
	if err != nil {
		return nil, storeError("tenant service: list", err)
	}
	return tenants, nil
}

// Suspend soft-disables a tenant. Its cameras remain registered and its
// grants remain stored; resolution simply stops seeing the tenant.
func (s *TenantService) Suspend(ctx context.Context, tenantID string) error {
	return s.setStatus(ctx, tenantID, models.TenantStatusSuspended)
}

// Reactivate restores a suspended tenant.
func (s *TenantService) Reactivate(ctx context.Context, tenantID string) error {
	return s.setStatus(ctx, tenantID, models.TenantStatusActive)
}

func (s *TenantService) setStatus(ctx context.Context, tenantID string, status models.TenantStatus) error {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).
		Model(&models.Tenant{}).
		Where("id = ?", strings.TrimSpace(tenantID)).
		Update("status", status)
	if result.Error != nil {
		return storeError("tenant service: set status", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrUnknownTenant
	}
	return nil
}
