package database

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapPQError(t *testing.T) {
	t.Run("non pq error", func(t *testing.T) {
		assert.Nil(t, MapPQError(fmt.Errorf("boom")))
	})

	t.Run("duplicate session id", func(t *testing.T) {
		appErr := MapPQError(&pq.Error{Code: "23505", Constraint: "scan_sessions_pkey"})
		require.NotNil(t, appErr)
		assert.Equal(t, http.StatusConflict, appErr.StatusCode)
	})

	t.Run("wrapped check violation", func(t *testing.T) {
		err := fmt.Errorf("insert: %w", &pq.Error{Code: "23514", Constraint: "scan_sessions_store_id_positive"})
		appErr := MapPQError(err)
		require.NotNil(t, appErr)
		assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
		assert.Contains(t, appErr.Details, "store_id")
	})

	t.Run("not null", func(t *testing.T) {
		appErr := MapPQError(&pq.Error{Code: "23502", Column: "tenant_id"})
		require.NotNil(t, appErr)
		assert.Equal(t, "must not be empty", appErr.Details["tenant_id"])
	})

	t.Run("unmapped code", func(t *testing.T) {
		assert.Nil(t, MapPQError(&pq.Error{Code: "40001"}))
	})
}
