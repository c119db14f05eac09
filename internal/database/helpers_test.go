package database_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chiayu-lin/camgrid/internal/permissions"
)

func mustViewSet(t *testing.T) permissions.Set {
	t.Helper()
	set, err := permissions.NewSet(permissions.PermissionView)
	require.NoError(t, err)
	return set
}
