package service

import (
    "errors"
    "fmt"

    "github.com/iliyamo/cafe-ordering/internal/repository"
)

// Error kinds returned by the services.  Handlers map them to HTTP status
// codes with errors.Is; the wrapped message carries the detail.
var (
    ErrValidation        = errors.New("validation failed")
    ErrUnauthenticated   = errors.New("authentication required")
    ErrForbidden         = errors.New("forbidden")
    ErrNotFound          = errors.New("not found")
    ErrConflict          = errors.New("conflict")
    ErrInvalidTransition = errors.New("invalid status transition")
    ErrDependency        = errors.New("dependency unavailable")
)

func invalidf(format string, args ...interface{}) error {
    return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// storeErr translates a repository error into a service error kind.
// Anything the repository did not classify is a dependency failure.
func storeErr(op string, err error) error {
    switch {
    case err == nil:
        return nil
    case errors.Is(err, repository.ErrNotFound):
        return fmt.Errorf("%s: %w", op, ErrNotFound)
    case errors.Is(err, repository.ErrQuantityLimit):
        return fmt.Errorf("%s: %w: %v", op, ErrValidation, err)
    case errors.Is(err, repository.ErrSeatTaken):
        return fmt.Errorf("%s: %w: %v", op, ErrConflict, err)
    case errors.Is(err, repository.ErrConflict), errors.Is(err, repository.ErrEmailExists):
        return fmt.Errorf("%s: %w: %v", op, ErrConflict, err)
    default:
        return fmt.Errorf("%s: %w: %v", op, ErrDependency, err)
    }
}
