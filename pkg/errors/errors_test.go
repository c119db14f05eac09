package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAppErrorMessageIncludesInternal(t *testing.T) {
	base := ErrStoreUnavailable.WithInternal(errors.New("connection refused"))
	require.Contains(t, base.Error(), "connection refused")
	require.Contains(t, base.Error(), ErrStoreUnavailable.Message)

	// The shared sentinel stays untouched.
	require.Nil(t, ErrStoreUnavailable.Internal)
}

func TestErrorsIsMatchesSentinelThroughWrap(t *testing.T) {
	wrapped := fmt.Errorf("resolving: %w", ErrUnknownTenant)
	require.ErrorIs(t, wrapped, ErrUnknownTenant)

	// Copies made by WithInternal still match their sentinel by code.
	withInternal := ErrUnknownCamera.WithInternal(errors.New("gone"))
	require.ErrorIs(t, withInternal, ErrUnknownCamera)
	require.NotErrorIs(t, withInternal, ErrUnknownTenant)
}

func TestFromError(t *testing.T) {
	require.Nil(t, FromError(nil))

	appErr := FromError(ErrRedundantGrant)
	require.Equal(t, "REDUNDANT_GRANT", appErr.Code)
	require.Equal(t, http.StatusConflict, appErr.StatusCode)

	generic := FromError(errors.New("boom"))
	require.Equal(t, ErrInternalServer.Code, generic.Code)
	require.EqualError(t, generic.Internal, "boom")

	wrapped := FromError(fmt.Errorf("outer: %w", ErrInvalidPermission))
	require.Equal(t, ErrInvalidPermission.Code, wrapped.Code)
}

func TestDomainErrorStatusCodes(t *testing.T) {
	require.Equal(t, http.StatusNotFound, ErrUnknownTenant.StatusCode)
	require.Equal(t, http.StatusNotFound, ErrUnknownCamera.StatusCode)
	require.Equal(t, http.StatusConflict, ErrRedundantGrant.StatusCode)
	require.Equal(t, http.StatusBadRequest, ErrInvalidPermission.StatusCode)
	require.Equal(t, http.StatusServiceUnavailable, ErrStoreUnavailable.StatusCode)
	require.Equal(t, http.StatusBadGateway, ErrUpstreamUnavailable.StatusCode)
}

func TestNewBadRequestKeepsCode(t *testing.T) {
	err := NewBadRequest("expires_at must be RFC3339 timestamp")
	require.Equal(t, ErrBadRequest.Code, err.Code)
	require.Equal(t, http.StatusBadRequest, err.StatusCode)
	require.Equal(t, "expires_at must be RFC3339 timestamp", err.Message)
}
