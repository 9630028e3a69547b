package service

import (
	"errors"
	"fmt"

	"github.com/daveharmswebdev/property-manager-sub002/internal/cache"
	"github.com/daveharmswebdev/property-manager-sub002/internal/repository"
	"github.com/daveharmswebdev/property-manager-sub002/internal/storage"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrConflict        = errors.New("conflict")
)

func invalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// translate maps collaborator errors onto the service error taxonomy.
// Unrecognised errors pass through unchanged.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrPhotoNotFound), errors.Is(err, storage.ErrObjectNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, repository.ErrPrimaryConflict),
		errors.Is(err, repository.ErrDuplicateStorageKey),
		errors.Is(err, repository.ErrPhotoSetChanged),
		errors.Is(err, cache.ErrLockNotAcquired):
		return fmt.Errorf("%w: %w", ErrConflict, err)
	case errors.Is(err, storage.ErrMalformedKey), errors.Is(err, repository.ErrUnknownOwnerKind):
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	return err
}
