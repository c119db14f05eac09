package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/chiayu-lin/camgrid/internal/models"
	"github.com/chiayu-lin/camgrid/internal/permissions"
	apperrors "github.com/chiayu-lin/camgrid/pkg/errors"
	"github.com/chiayu-lin/camgrid/pkg/metrics"
)

// OwnershipType classifies how a tenant reaches a camera.
type OwnershipType string

const (
	// OwnershipOwned marks a camera the tenant registered itself.
	OwnershipOwned OwnershipType = "owned"
	// OwnershipAuthorized marks a camera reached through an effective grant.
	OwnershipAuthorized OwnershipType = "authorized"
)

// ResolvedCamera is one entry of a tenant's visible-camera set. Permissions
// is nil for owned cameras: ownership implies unrestricted access and no
// scoped set applies.
type ResolvedCamera struct {
	Camera        models.Camera   `json:"camera"`
	OwnershipType OwnershipType   `json:"ownership_type"`
	Permissions   permissions.Set `json:"permissions,omitempty"`
}

// ResolutionService computes the set of cameras a tenant may see. It is
// read-only and safe for concurrent use; polling dashboards call it
// repeatedly.
type ResolutionService struct {
	db  *gorm.DB
	now func() time.Time
}

// ResolutionOption customises the service.
type ResolutionOption func(*ResolutionService)

// WithResolutionNow overrides the clock used for expiry evaluation.
func WithResolutionNow(now func() time.Time) ResolutionOption {
	return func(s *ResolutionService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewResolutionService constructs a resolution engine.
func NewResolutionService(db *gorm.DB, opts ...ResolutionOption) (*ResolutionService, error) {
	if db == nil {
		return nil, errors.New("resolution service: db is required")
	}
	svc := &ResolutionService{db: db, now: time.Now}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// ResolveVisibleCameras returns every camera the tenant may see: cameras it
// owns plus cameras with an effective grant to it. Owned cameras come first,
// each group ordered by creation time descending with the camera id as a
// deterministic tiebreak. A camera owned by the tenant never surfaces through
// a grant, even if a stale grant row exists for the pair. Results are
// all-or-nothing: any store failure aborts the resolution.
func (s *ResolutionService) ResolveVisibleCameras(ctx context.Context, tenantID string) ([]ResolvedCamera, error) {
	ctx = ensureContext(ctx)

	resolved, err := s.resolve(ctx, tenantID)
	switch {
	case err == nil:
		metrics.CameraResolutions.WithLabelValues("ok").Inc()
	case errors.Is(err, apperrors.ErrUnknownTenant):
		metrics.CameraResolutions.WithLabelValues("unknown_tenant").Inc()
	default:
		metrics.CameraResolutions.WithLabelValues("error").Inc()
	}
	return resolved, err
}

func (s *ResolutionService) resolve(ctx context.Context, tenantID string) ([]ResolvedCamera, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return nil, apperrors.ErrUnknownTenant
	}

	var tenant models.Tenant
	err := s.db.WithContext(ctx).
		Select("id").
		First(&tenant, "id = ? AND status = ?", tenantID, models.TenantStatusActive).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUnknownTenant
		}
		return nil, storeError("resolution: load tenant", err)
	}

	var owned []models.Camera
	err = s.db.WithContext(ctx).
		Where("owner_tenant_id = ?", tenantID).
		Find(&owned).Error
	if err != nil {
		return nil, storeError("resolution: load owned cameras", err)
	}

	ownedIDs := make(map[string]struct{}, len(owned))
	for _, cam := range owned {
		ownedIDs[cam.ID] = struct{}{}
	}

	// Candidate grants are filtered on the active flag in SQL and on expiry
	// here, so an expired-but-still-active row never confers access.
	var grants []models.AuthorizationGrant
	err = s.db.WithContext(ctx).
		Where("tenant_id = ? AND active = ?", tenantID, true).
		Find(&grants).Error
	if err != nil {
		return nil, storeError("resolution: load grants", err)
	}

	now := s.now()
	grantByCamera := make(map[string]permissions.Set, len(grants))
	grantedIDs := make([]string, 0, len(grants))
	for _, g := range grants {
		if !g.EffectiveAt(now) {
			continue
		}
		// Ownership wins: a stale grant left over from an ownership change
		// must not reclassify the tenant's own camera.
		if _, owns := ownedIDs[g.CameraID]; owns {
			continue
		}
		if _, seen := grantByCamera[g.CameraID]; !seen {
			grantedIDs = append(grantedIDs, g.CameraID)
		}
		grantByCamera[g.CameraID] = g.Perms
	}

	var authorized []models.Camera
	if len(grantedIDs) > 0 {
		err = s.db.WithContext(ctx).
			Where("id IN ?", grantedIDs).
			Find(&authorized).Error
		if err != nil {
			return nil, storeError("resolution: load authorized cameras", err)
		}
	}

	sortCamerasNewestFirst(owned)
	sortCamerasNewestFirst(authorized)

	resolved := make([]ResolvedCamera, 0, len(owned)+len(authorized))
	for _, cam := range owned {
		resolved = append(resolved, ResolvedCamera{
			Camera:        cam,
			OwnershipType: OwnershipOwned,
		})
	}
	for _, cam := range authorized {
		resolved = append(resolved, ResolvedCamera{
			Camera:        cam,
			OwnershipType: OwnershipAuthorized,
			Permissions:   grantByCamera[cam.ID],
		})
	}
	return resolved, nil
}

func sortCamerasNewestFirst(cameras []models.Camera) {
	sort.SliceStable(cameras, func(i, j int) bool {
		if cameras[i].CreatedAt.Equal(cameras[j].CreatedAt) {
			return cameras[i].ID < cameras[j].ID
		}
		return cameras[i].CreatedAt.After(cameras[j].CreatedAt)
	})
}
