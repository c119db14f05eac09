package validator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `json:"name" validate:"required"`
	Count int    `json:"count" validate:"gte=1,lte=10"`
}

func TestValidateStruct(t *testing.T) {
	require.NoError(t, ValidateStruct(sample{Name: "ok", Count: 5}))

	err := ValidateStruct(sample{Count: 99})
	require.Error(t, err)

	var failures ValidationErrors
	require.ErrorAs(t, err, &failures)
	require.Len(t, failures, 2)

	// Field names come from json tags.
	require.Equal(t, "name", failures[0].Field)
	require.Equal(t, "required", failures[0].Tag)
	require.Equal(t, "count", failures[1].Field)
	require.Equal(t, "lte", failures[1].Tag)
	require.Equal(t, "10", failures[1].Param)

	require.Contains(t, failures.Error(), "name failed on required")
}
