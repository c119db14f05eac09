package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/chiayu-lin/camgrid/internal/api"
	"github.com/chiayu-lin/camgrid/internal/app"
	"github.com/chiayu-lin/camgrid/internal/database"
	"github.com/chiayu-lin/camgrid/internal/database/testutil"
	"github.com/chiayu-lin/camgrid/internal/models"
	"github.com/chiayu-lin/camgrid/internal/services"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newTestRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())

	cfg := &app.Config{}
	cfg.Tenancy.DefaultTenant = database.PlatformTenantDomain
	cfg.XCMS.Host = "127.0.0.1"
	cfg.Monitoring.Prometheus.Enabled = true
	cfg.Monitoring.Prometheus.Endpoint = "/metrics"
	cfg.Monitoring.Health.Enabled = true

	router, err := api.NewRouter(db, cfg)
	require.NoError(t, err)
	return router, db
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var env envelope
	if len(rec.Body.Bytes()) > 0 && rec.Header().Get("Content-Type") != "" {
		_ = json.Unmarshal(rec.Body.Bytes(), &env)
	}
	return rec, env
}

func seedTenant(t *testing.T, db *gorm.DB, name, domain string) *models.Tenant {
	t.Helper()
	tenant := models.Tenant{Name: name, Domain: domain}
	require.NoError(t, db.Create(&tenant).Error)
	return &tenant
}

func seedCamera(t *testing.T, db *gorm.DB, ownerID, name string) *models.Camera {
	t.Helper()
	camera := models.Camera{
		OwnerTenantID: ownerID,
		Name:          name,
		Status:        models.CameraStatusOnline,
		Active:        true,
	}
	require.NoError(t, db.Create(&camera).Error)
	return &camera
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	rec, _ := doJSON(t, router, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	rec, _ := doJSON(t, router, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestUnknownRouteReturnsJSON404(t *testing.T) {
	router, _ := newTestRouter(t)

	rec, _ := doJSON(t, router, http.MethodGet, "/api/nope", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "application/json")
}

func TestAuthorizedCamerasDefaultTenantEmpty(t *testing.T) {
	router, _ := newTestRouter(t)

	rec, env := doJSON(t, router, http.MethodGet, "/api/cameras/authorized", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, env.Success)

	var payload struct {
		TenantID string `json:"tenant_id"`
		Cameras  []any  `json:"cameras"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	require.Equal(t, database.PlatformTenantDomain, payload.TenantID)
	require.Empty(t, payload.Cameras)
}

func TestAuthorizedCamerasUnknownTenantEmptyList(t *testing.T) {
	router, _ := newTestRouter(t)

	// Unknown tenants get an empty list, not an error, so the endpoint
	// cannot be used to probe which tenants exist.
	rec, env := doJSON(t, router, http.MethodGet, "/api/cameras/authorized?tenant_id=ghost", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, env.Success)

	var payload struct {
		TenantID string `json:"tenant_id"`
		Cameras  []any  `json:"cameras"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	require.Equal(t, "ghost", payload.TenantID)
	require.Empty(t, payload.Cameras)
}

func TestAuthorizedCamerasResolvesOwnershipAndGrants(t *testing.T) {
	router, db := newTestRouter(t)

	owner := seedTenant(t, db, "Owner Corp", "owner-corp")
	bureau := seedTenant(t, db, "Environmental Bureau", "env-bureau")
	seedCamera(t, db, bureau.ID, "bureau-cam")
	shared := seedCamera(t, db, owner.ID, "cam-001")

	grants, err := services.NewGrantService(db)
	require.NoError(t, err)
	_, err = grants.Grant(context.Background(), services.GrantInput{
		CameraID: shared.ID, TenantID: bureau.ID, Permissions: []string{"view"},
	})
	require.NoError(t, err)

	rec, env := doJSON(t, router, http.MethodGet, "/api/cameras/authorized?tenant_id="+bureau.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, env.Success)

	var payload struct {
		Summary struct {
			Total      int `json:"total"`
			Owned      int `json:"owned"`
			Authorized int `json:"authorized"`
			Online     int `json:"online"`
		} `json:"summary"`
		Cameras []struct {
			ID            string   `json:"id"`
			OwnershipType string   `json:"ownership_type"`
			Permissions   []string `json:"permissions"`
		} `json:"cameras"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	require.Equal(t, 2, payload.Summary.Total)
	require.Equal(t, 1, payload.Summary.Owned)
	require.Equal(t, 1, payload.Summary.Authorized)
	require.Equal(t, 2, payload.Summary.Online)

	require.Equal(t, "owned", payload.Cameras[0].OwnershipType)
	require.Empty(t, payload.Cameras[0].Permissions)
	require.Equal(t, "authorized", payload.Cameras[1].OwnershipType)
	require.Equal(t, []string{"view"}, payload.Cameras[1].Permissions)
}

func TestGrantLifecycleOverHTTP(t *testing.T) {
	router, db := newTestRouter(t)

	owner := seedTenant(t, db, "Owner Corp", "owner-corp")
	bureau := seedTenant(t, db, "Environmental Bureau", "env-bureau")
	camera := seedCamera(t, db, owner.ID, "cam-001")

	rec, env := doJSON(t, router, http.MethodPost, "/api/admin/grants", gin.H{
		"camera_id":   camera.ID,
		"tenant_id":   bureau.ID,
		"permissions": []string{"view", "manage"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	require.True(t, env.Success)

	var created struct {
		ID          string   `json:"id"`
		Permissions []string `json:"permissions"`
		IsActive    bool     `json:"is_active"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	require.True(t, created.IsActive)
	require.Equal(t, []string{"view", "manage"}, created.Permissions)

	// Listing by tenant shows the grant with the camera preloaded.
	rec, env = doJSON(t, router, http.MethodGet, "/api/admin/grants?tenant_id="+bureau.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []struct {
		CameraName string `json:"camera_name"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &listed))
	require.Len(t, listed, 1)
	require.Equal(t, "cam-001", listed[0].CameraName)

	// Revoke, then revoke again: both succeed, second reports nothing found.
	revokePath := fmt.Sprintf("/api/admin/grants?camera_id=%s&tenant_id=%s", camera.ID, bureau.ID)
	rec, env = doJSON(t, router, http.MethodDelete, revokePath, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var revoked struct {
		Revoked bool `json:"revoked"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &revoked))
	require.True(t, revoked.Revoked)

	rec, env = doJSON(t, router, http.MethodDelete, revokePath, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &revoked))
	require.False(t, revoked.Revoked)
}

func TestGrantEndpointErrors(t *testing.T) {
	router, db := newTestRouter(t)

	owner := seedTenant(t, db, "Owner Corp", "owner-corp")
	camera := seedCamera(t, db, owner.ID, "cam-001")

	// Granting the owner its own camera conflicts.
	rec, env := doJSON(t, router, http.MethodPost, "/api/admin/grants", gin.H{
		"camera_id":   camera.ID,
		"tenant_id":   owner.ID,
		"permissions": []string{"view"},
	})
	require.Equal(t, http.StatusConflict, rec.Code)
	require.False(t, env.Success)
	require.Equal(t, "REDUNDANT_GRANT", env.Error.Code)

	// Unknown permission value.
	rec, env = doJSON(t, router, http.MethodPost, "/api/admin/grants", gin.H{
		"camera_id":   camera.ID,
		"tenant_id":   owner.ID,
		"permissions": []string{"fly"},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "INVALID_PERMISSION", env.Error.Code)

	// Unknown camera.
	rec, env = doJSON(t, router, http.MethodPost, "/api/admin/grants", gin.H{
		"camera_id":   "ghost",
		"tenant_id":   owner.ID,
		"permissions": []string{"view"},
	})
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "UNKNOWN_CAMERA", env.Error.Code)

	// Malformed expiry.
	rec, env = doJSON(t, router, http.MethodPost, "/api/admin/grants", gin.H{
		"camera_id":   camera.ID,
		"tenant_id":   owner.ID,
		"permissions": []string{"view"},
		"expires_at":  "next tuesday",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// Listing needs exactly one filter.
	rec, _ = doJSON(t, router, http.MethodGet, "/api/admin/grants", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	rec, _ = doJSON(t, router, http.MethodGet, "/api/admin/grants?tenant_id=a&camera_id=b", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGrantWithExpiryOverHTTP(t *testing.T) {
	router, db := newTestRouter(t)

	owner := seedTenant(t, db, "Owner Corp", "owner-corp")
	bureau := seedTenant(t, db, "Environmental Bureau", "env-bureau")
	camera := seedCamera(t, db, owner.ID, "cam-001")

	expiry := time.Now().UTC().Add(24 * time.Hour).Format(time.RFC3339)
	rec, env := doJSON(t, router, http.MethodPost, "/api/admin/grants", gin.H{
		"camera_id":   camera.ID,
		"tenant_id":   bureau.ID,
		"permissions": []string{"view"},
		"expires_at":  expiry,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		ExpiresAt *time.Time `json:"expires_at"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	require.NotNil(t, created.ExpiresAt)
}

func TestTenantEndpoints(t *testing.T) {
	router, _ := newTestRouter(t)

	rec, env := doJSON(t, router, http.MethodPost, "/api/admin/tenants", gin.H{
		"id":     "env-bureau",
		"name":   "Environmental Bureau",
		"domain": "env-bureau",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	require.Equal(t, "env-bureau", created.ID)
	require.Equal(t, "active", created.Status)

	rec, env = doJSON(t, router, http.MethodGet, "/api/admin/tenants", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &listed))
	require.Len(t, listed, 2) // platform seed + created

	rec, _ = doJSON(t, router, http.MethodPost, "/api/admin/tenants/env-bureau/suspend", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env = doJSON(t, router, http.MethodGet, "/api/admin/tenants", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &listed))
	require.Len(t, listed, 1)

	rec, _ = doJSON(t, router, http.MethodPost, "/api/admin/tenants/ghost/suspend", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCameraRegistryEndpoints(t *testing.T) {
	router, db := newTestRouter(t)

	owner := seedTenant(t, db, "Owner Corp", "owner-corp")

	rec, env := doJSON(t, router, http.MethodPost, "/api/admin/cameras", gin.H{
		"owner_tenant_id": owner.ID,
		"name":            "cam-001",
		"status":          "online",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	require.NotEmpty(t, created.ID)

	rec, env = doJSON(t, router, http.MethodGet, "/api/admin/cameras?owner_tenant_id="+owner.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var cameras []struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &cameras))
	require.Len(t, cameras, 1)

	rec, _ = doJSON(t, router, http.MethodPut, "/api/admin/cameras/"+created.ID+"/status", gin.H{
		"status": "maintenance",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = doJSON(t, router, http.MethodDelete, "/api/admin/cameras/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var stored models.Camera
	require.NoError(t, db.First(&stored, "id = ?", created.ID).Error)
	require.False(t, stored.Active)
	require.Equal(t, models.CameraStatusMaintenance, stored.Status)
}

func TestCameraSyncEndpoint(t *testing.T) {
	router, db := newTestRouter(t)

	owner := seedTenant(t, db, "Owner Corp", "owner-corp")

	rec, env := doJSON(t, router, http.MethodPost, "/api/admin/cameras/sync", gin.H{
		"owner_tenant_id": owner.ID,
		"cameras": []gin.H{
			{"source_host": "10.0.0.5", "source_camera_id": "1", "name": "Gate", "status": "online"},
			{"source_host": "10.0.0.5", "source_camera_id": "2", "name": "Lobby", "status": "offline"},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var stats struct {
		Created int `json:"created"`
		Updated int `json:"updated"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	require.Equal(t, 2, stats.Created)
	require.Equal(t, 0, stats.Updated)
}

func TestReassignOwnerEndpoint(t *testing.T) {
	router, db := newTestRouter(t)

	owner := seedTenant(t, db, "Owner Corp", "owner-corp")
	bureau := seedTenant(t, db, "Environmental Bureau", "env-bureau")
	camera := seedCamera(t, db, owner.ID, "cam-001")

	rec, env := doJSON(t, router, http.MethodPut, "/api/admin/cameras/"+camera.ID+"/owner", gin.H{
		"owner_tenant_id": bureau.ID,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var updated struct {
		OwnerTenantID string `json:"owner_tenant_id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &updated))
	require.Equal(t, bureau.ID, updated.OwnerTenantID)
}

func TestStreamURLsEndpointRequiresAccess(t *testing.T) {
	router, db := newTestRouter(t)

	owner := seedTenant(t, db, "Owner Corp", "owner-corp")
	stranger := seedTenant(t, db, "Stranger", "stranger")
	camera := models.Camera{
		OwnerTenantID:  owner.ID,
		Name:           "cam-001",
		Status:         models.CameraStatusOnline,
		SourceHost:     "10.0.0.5",
		SourceCameraID: "7",
		Active:         true,
	}
	require.NoError(t, db.Create(&camera).Error)

	rec, env := doJSON(t, router, http.MethodGet,
		"/api/cameras/"+camera.ID+"/streams?tenant_id="+stranger.ID, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, "FORBIDDEN", env.Error.Code)

	rec, env = doJSON(t, router, http.MethodGet,
		"/api/cameras/"+camera.ID+"/streams?tenant_id="+owner.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var urls struct {
		RTSP string `json:"rtsp"`
		HLS  string `json:"hls"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &urls))
	require.Equal(t, "rtsp://10.0.0.5:9554/stream/7", urls.RTSP)
	require.Equal(t, "http://10.0.0.5:9002/stream/7.m3u8", urls.HLS)
}

func TestStreamURLsEndpointWithoutSource(t *testing.T) {
	router, db := newTestRouter(t)

	owner := seedTenant(t, db, "Owner Corp", "owner-corp")
	camera := seedCamera(t, db, owner.ID, "cam-001")

	rec, _ := doJSON(t, router, http.MethodGet,
		"/api/cameras/"+camera.ID+"/streams?tenant_id="+owner.ID, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/cameras/authorized", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
