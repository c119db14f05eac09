package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/chiayu-lin/camgrid/internal/database/testutil"
	"github.com/chiayu-lin/camgrid/internal/models"
	"github.com/chiayu-lin/camgrid/internal/services"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	return testutil.MustOpenTestDB(t, testutil.WithSeedData())
}

func createTenant(t *testing.T, db *gorm.DB, name, domain string) *models.Tenant {
	t.Helper()
	tenant := models.Tenant{Name: name, Domain: domain, Status: models.TenantStatusActive}
	require.NoError(t, db.Create(&tenant).Error)
	return &tenant
}

func createCamera(t *testing.T, db *gorm.DB, ownerID, name string, createdAt time.Time) *models.Camera {
	t.Helper()
	camera := models.Camera{
		BaseModel:     models.BaseModel{CreatedAt: createdAt},
		OwnerTenantID: ownerID,
		Name:          name,
		Status:        models.CameraStatusOnline,
		Active:        true,
	}
	require.NoError(t, db.Create(&camera).Error)
	return &camera
}

func grantView(t *testing.T, db *gorm.DB, cameraID, tenantID string) *models.AuthorizationGrant {
	t.Helper()
	svc, err := services.NewGrantService(db)
	require.NoError(t, err)

	grant, err := svc.Grant(context.Background(), services.GrantInput{
		CameraID:    cameraID,
		TenantID:    tenantID,
		Permissions: []string{"view"},
	})
	require.NoError(t, err)
	return grant
}
