package models

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// TenantStatus enumerates tenant lifecycle states. Tenants are never deleted;
// suspension is the only way to take one out of service.
type TenantStatus string

const (
	// TenantStatusActive marks a tenant that may own and be granted cameras.
	TenantStatusActive TenantStatus = "active"
	// TenantStatusSuspended marks a tenant removed from service; resolution
	// treats it the same as a missing tenant.
	TenantStatusSuspended TenantStatus = "suspended"
)

var validTenantStatuses = map[TenantStatus]struct{}{
	TenantStatusActive:    {},
	TenantStatusSuspended: {},
}

// Tenant is an organisational entity that owns cameras and receives grants.
type Tenant struct {
	BaseModel

	Name   string       `gorm:"type:text;not null" json:"name"`
	Domain string       `gorm:"type:text;not null;uniqueIndex" json:"domain"`
	Status TenantStatus `gorm:"type:text;not null;default:active;index" json:"status"`
}

// BeforeCreate normalises and validates tenant fields.
func (t *Tenant) BeforeCreate(tx *gorm.DB) error {
	if err := t.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}

	t.Name = strings.TrimSpace(t.Name)
	if t.Name == "" {
		return errors.New("tenant: name is required")
	}

	t.Domain = strings.ToLower(strings.TrimSpace(t.Domain))
	if t.Domain == "" {
		return errors.New("tenant: domain is required")
	}

	if t.Status == "" {
		t.Status = TenantStatusActive
	}
	if _, ok := validTenantStatuses[t.Status]; !ok {
		return fmt.Errorf("tenant: invalid status %q", t.Status)
	}

	return nil
}

// IsActive reports whether the tenant may appear in authorization decisions.
func (t *Tenant) IsActive() bool {
	return t.Status == TenantStatusActive
}
