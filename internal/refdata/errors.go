package refdata

import (
	"fmt"

	"gstaudit/internal/domain"
)

// NotFoundError is returned when a lookup key has no record at all.
type NotFoundError struct {
	Dataset string
	Key     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: %q not found", e.Dataset, e.Key)
}

// Unwrap lets errors.Is(err, domain.ErrNotFound) match.
func (e *NotFoundError) Unwrap() error {
	return domain.ErrNotFound
}
