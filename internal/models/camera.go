package models

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CameraStatus enumerates operational states reported by the registry.
type CameraStatus string

const (
	CameraStatusOnline      CameraStatus = "online"
	CameraStatusOffline     CameraStatus = "offline"
	CameraStatusError       CameraStatus = "error"
	CameraStatusMaintenance CameraStatus = "maintenance"
)

var validCameraStatuses = map[CameraStatus]struct{}{
	CameraStatusOnline:      {},
	CameraStatusOffline:     {},
	CameraStatusError:       {},
	CameraStatusMaintenance: {},
}

// KnownCameraStatus reports whether the status belongs to the vocabulary.
func KnownCameraStatus(s CameraStatus) bool {
	_, ok := validCameraStatuses[s]
	return ok
}

// Camera is a registered surveillance camera. Exactly one tenant owns it;
// other tenants reach it only through authorization grants.
type Camera struct {
	BaseModel

	OwnerTenantID string       `gorm:"type:uuid;not null;index" json:"owner_tenant_id"`
	Name          string       `gorm:"type:text;not null" json:"name"`
	DeviceID      string       `gorm:"type:text" json:"device_id"`
	Status        CameraStatus `gorm:"type:text;not null;default:offline" json:"status"`

	LocationAddress string `gorm:"type:text" json:"location_address"`
	LocationZone    string `gorm:"type:text" json:"location_zone"`

	// External video-backend reference. Opaque to the authorization engine;
	// forwarded unchanged once access has been resolved.
	SourceHost     string `gorm:"type:text;index:idx_camera_source,priority:0" json:"source_host"`
	SourceCameraID string `gorm:"type:text;index:idx_camera_source,priority:1" json:"source_camera_id"`

	Capabilities datatypes.JSON `json:"capabilities"`
	Specs        datatypes.JSON `json:"specs"`
	StreamURLs   datatypes.JSON `json:"stream_urls"`

	Active bool `gorm:"not null;default:true" json:"is_active"`

	OwnerTenant *Tenant `gorm:"foreignKey:OwnerTenantID" json:"owner_tenant,omitempty"`
}

// BeforeCreate validates registry fields on first insert.
func (c *Camera) BeforeCreate(tx *gorm.DB) error {
	if err := c.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}

	c.OwnerTenantID = strings.TrimSpace(c.OwnerTenantID)
	if c.OwnerTenantID == "" {
		return errors.New("camera: owner_tenant_id is required")
	}

	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return errors.New("camera: name is required")
	}

	if c.Status == "" {
		c.Status = CameraStatusOffline
	}
	if !KnownCameraStatus(c.Status) {
		return fmt.Errorf("camera: invalid status %q", c.Status)
	}

	return nil
}

// HasSource reports whether the camera carries an external backend reference.
func (c *Camera) HasSource() bool {
	return c.SourceHost != "" && c.SourceCameraID != ""
}
