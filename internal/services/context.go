package services

import (
	"context"
	"fmt"

	apperrors "github.com/chiayu-lin/camgrid/pkg/errors"
)

func ensureContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

// storeError classifies an unexpected gorm failure as a retryable
// infrastructure error while preserving the cause for logging.
func storeError(op string, err error) error {
	return apperrors.ErrStoreUnavailable.WithInternal(fmt.Errorf("%s: %w", op, err))
}
