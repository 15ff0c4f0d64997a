package repository

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// ErrDuplicate reports a unique constraint violation.
var ErrDuplicate = errors.New("duplicate record")

// LimitReachedError is returned when a capped insert finds the cap already met.
type LimitReachedError struct {
	Limit int
	Count int
}

func (e *LimitReachedError) Error() string {
	return fmt.Sprintf("limit reached: %d of %d", e.Count, e.Limit)
}

const pqUniqueViolation = "23505"

// wrap annotates err with op and maps unique violations to ErrDuplicate.
func wrap(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
		return fmt.Errorf("%s: %w (%s)", op, ErrDuplicate, pqErr.Constraint)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}
