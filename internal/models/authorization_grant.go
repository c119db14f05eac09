package models

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/chiayu-lin/camgrid/internal/permissions"
)

// AuthorizationGrant authorises a non-owning tenant to access a camera with a
// scoped permission set. At most one row exists per (camera, tenant) pair;
// re-granting replaces the row's contents instead of adding a second one.
// Revocation flips Active rather than deleting, keeping the audit trail.
type AuthorizationGrant struct {
	BaseModel

	CameraID string          `gorm:"type:uuid;not null;uniqueIndex:idx_grant_camera_tenant,priority:0;index" json:"camera_id"`
	TenantID string          `gorm:"type:uuid;not null;uniqueIndex:idx_grant_camera_tenant,priority:1;index" json:"tenant_id"`
	Perms    permissions.Set `gorm:"column:permissions;not null" json:"permissions"`

	Active    bool       `gorm:"not null;default:true" json:"is_active"`
	ExpiresAt *time.Time `json:"expires_at"`
	GrantedAt time.Time  `gorm:"not null;index" json:"granted_at"`

	Camera *Camera `gorm:"foreignKey:CameraID" json:"camera,omitempty"`
	Tenant *Tenant `gorm:"foreignKey:TenantID" json:"tenant,omitempty"`
}

// BeforeCreate validates grant invariants on insert. Updates go through the
// grant service, which only ever writes whole replacement rows or the Active
// flag, so create-time validation covers every persisted shape.
func (g *AuthorizationGrant) BeforeCreate(tx *gorm.DB) error {
	if err := g.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}

	g.CameraID = strings.TrimSpace(g.CameraID)
	if g.CameraID == "" {
		return errors.New("authorization_grant: camera_id is required")
	}

	g.TenantID = strings.TrimSpace(g.TenantID)
	if g.TenantID == "" {
		return errors.New("authorization_grant: tenant_id is required")
	}

	if len(g.Perms) == 0 {
		return errors.New("authorization_grant: permission set must not be empty")
	}

	if g.GrantedAt.IsZero() {
		g.GrantedAt = time.Now().UTC()
	}

	return nil
}

// EffectiveAt reports whether the grant confers access at the given instant:
// active and either unbounded or not yet expired.
func (g *AuthorizationGrant) EffectiveAt(now time.Time) bool {
	if !g.Active {
		return false
	}
	if g.ExpiresAt == nil {
		return true
	}
	return g.ExpiresAt.After(now)
}
