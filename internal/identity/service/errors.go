package service

import (
	"context"
	"errors"

	"snowflake/internal/identity/store"
	dErrors "snowflake/pkg/domain-errors"
)

// translate maps store facts onto domain errors. Coded errors pass through.
func translate(err error, notFound string, action string) error {
	if err == nil {
		return nil
	}
	var coded *dErrors.Error
	if errors.As(err, &coded) {
		return err
	}
	switch {
	case errors.Is(err, store.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, notFound)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return dErrors.Wrap(err, dErrors.CodeTimeout, action+": deadline exceeded")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, action)
	}
}
