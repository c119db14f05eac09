package app

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 8000, cfg.Server.Port)
	require.Equal(t, "info", cfg.Server.LogLevel)
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, "platform-system", cfg.Tenancy.DefaultTenant)
	require.Equal(t, "127.0.0.1", cfg.XCMS.Host)
	require.Equal(t, 9001, cfg.XCMS.APIPort)
	require.Equal(t, 9002, cfg.XCMS.MediaPort)
	require.Equal(t, 9554, cfg.XCMS.RTSPPort)
	require.True(t, cfg.Maintenance.ExpirySweep.Enabled)
	require.Equal(t, "@hourly", cfg.Maintenance.ExpirySweep.Schedule)
	require.True(t, cfg.Monitoring.Prometheus.Enabled)
	require.Equal(t, "/metrics", cfg.Monitoring.Prometheus.Endpoint)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("CAMGRID_SERVER_PORT", "9100")
	t.Setenv("CAMGRID_TENANCY_DEFAULT_TENANT", "acme")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	require.Equal(t, 9100, cfg.Server.Port)
	require.Equal(t, "acme", cfg.Tenancy.DefaultTenant)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	t.Setenv("CAMGRID_SERVER_PORT", "99999")

	_, err := LoadConfig(t.TempDir())
	require.Error(t, err)
}

func TestDatabaseClientConfigMapping(t *testing.T) {
	cfg := &Config{}
	cfg.Database.Driver = "PostgreSQL"
	cfg.Database.Postgres.Host = "db.internal"
	cfg.Database.Postgres.Port = 5433
	cfg.Database.Postgres.Database = "camgrid"
	cfg.Database.Postgres.Username = "svc"
	cfg.Database.Postgres.Password = "secret"

	dbCfg := cfg.DatabaseClientConfig()
	require.Equal(t, "postgres", dbCfg.Driver)
	require.Equal(t, "db.internal", dbCfg.Host)
	require.Equal(t, 5433, dbCfg.Port)
	require.Equal(t, "camgrid", dbCfg.Name)
	require.Equal(t, "svc", dbCfg.User)

	empty := &Config{}
	require.Equal(t, "sqlite", empty.DatabaseClientConfig().Driver)
}

func TestXCMSClientConfigMapping(t *testing.T) {
	cfg := &Config{}
	cfg.XCMS.Host = " 10.0.0.5 "
	cfg.XCMS.APIPort = 9001
	cfg.XCMS.APIKey = " key "

	clientCfg := cfg.XCMSClientConfig()
	require.Equal(t, "10.0.0.5", clientCfg.DefaultHost)
	require.Equal(t, 9001, clientCfg.APIPort)
	require.Equal(t, "key", clientCfg.APIKey)
}

func TestConfigureLoggingAcceptsEmptyLevel(t *testing.T) {
	require.NoError(t, ConfigureLogging(""))
	require.NoError(t, ConfigureLogging("debug"))
}
