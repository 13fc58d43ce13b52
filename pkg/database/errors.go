package database

import (
	"strings"

	"github.com/boxscan/scan-service/pkg/errors"
	"github.com/lib/pq"
)

// MapPQError converts a PostgreSQL error to an AppError with meaningful messages.
// Returns nil if the error is not a pq.Error or has no dedicated mapping.
func MapPQError(err error) *errors.AppError {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return nil
	}

	switch pqErr.Code {
	// Unique constraint violation
	case "23505":
		if strings.Contains(pqErr.Constraint, "scan_sessions_pkey") {
			return errors.Conflict("a scan session with this id already exists")
		}
		return errors.Conflict("a record with these values already exists")

	// Check constraint violation
	case "23514":
		if strings.Contains(pqErr.Constraint, "store_id_positive") {
			return errors.Validation(map[string]string{
				"store_id": "must be a positive store id",
			})
		}
		return errors.BadRequest("data validation failed: " + pqErr.Constraint)

	// Not null violation
	case "23502":
		col := pqErr.Column
		if col == "" {
			col = "required field"
		}
		return errors.Validation(map[string]string{
			col: "must not be empty",
		})

	default:
		return nil
	}
}
