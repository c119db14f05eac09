package database

import (
	"gorm.io/gorm"

	"github.com/chiayu-lin/camgrid/internal/models"
)

// PlatformTenantDomain is the domain of the seeded platform tenant. Requests
// without an explicit tenant parameter resolve against it by default; this is
// a deployment convenience controlled by configuration, not a security rule.
const PlatformTenantDomain = "platform-system"

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Tenant{},
		&models.Camera{},
		&models.AuthorizationGrant{},
	)
}

// SeedData inserts the platform tenant that owns unassigned cameras.
func SeedData(db *gorm.DB) error {
	platform := models.Tenant{
		BaseModel: models.BaseModel{ID: PlatformTenantDomain},
		Name:      "Platform System",
		Domain:    PlatformTenantDomain,
		Status:    models.TenantStatusActive,
	}

	return db.
		Where(models.Tenant{Domain: platform.Domain}).
		Attrs(platform).
		FirstOrCreate(&models.Tenant{}).Error
}
