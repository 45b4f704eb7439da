package service

import (
	"context"
	"fmt"
	"log/slog"

	"linkbox-backend/internal/logging"
	"linkbox-backend/internal/repository"
)

// classify passes domain errors through untouched and turns everything
// else into ErrStoreUnavailable after logging the underlying cause.
func classify(ctx context.Context, log *slog.Logger, op string, err error) error {
	if err == nil || repository.IsDomainError(err) {
		return err
	}
	logging.FromContext(ctx, log).ErrorContext(ctx, "store operation failed", "op", op, "error", err)
	return fmt.Errorf("%w: %s: %v", repository.ErrStoreUnavailable, op, err)
}
