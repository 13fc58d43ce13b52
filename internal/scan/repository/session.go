package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/boxscan/scan-service/internal/scan/domain"
	"github.com/boxscan/scan-service/pkg/database"
	"github.com/boxscan/scan-service/pkg/errors"
	"github.com/boxscan/scan-service/pkg/tenant"
)

// sessionRow is the scan_sessions row layout
type sessionRow struct {
	ID              string     `db:"id"`
	SelectedStoreID *int64     `db:"selected_store_id"`
	TransferMode    bool       `db:"transfer_mode"`
	Pending         []byte     `db:"pending"`
	LastScanAt      *time.Time `db:"last_scan_at"`
	CreatedAt       time.Time  `db:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"`
}

func (r sessionRow) toDomain() (*domain.ScanSession, error) {
	pending, err := decodePending(r.Pending)
	if err != nil {
		return nil, err
	}
	return &domain.ScanSession{
		ID: r.ID,
		Selection: domain.StoreSelection{
			SelectedStoreID: r.SelectedStoreID,
			TransferMode:    r.TransferMode,
		},
		Pending:    pending,
		LastScanAt: r.LastScanAt,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}, nil
}

// encodePending returns the JSONB parameter, or nil for SQL NULL
func encodePending(p *domain.PendingStockOut) (interface{}, error) {
	if p == nil {
		return nil, nil
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to encode pending stock-out: %w", err)
	}
	return string(raw), nil
}

func decodePending(raw []byte) (*domain.PendingStockOut, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var p domain.PendingStockOut
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("failed to decode pending stock-out: %w", err)
	}
	return &p, nil
}

// SessionRepository stores scan sessions, isolated per tenant
type SessionRepository struct {
	db *database.DB
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *database.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a new session
func (r *SessionRepository) Create(ctx context.Context, sess *domain.ScanSession) error {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}

	pending, err := encodePending(sess.Pending)
	if err != nil {
		return err
	}

	err = r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		query := `
			INSERT INTO scan_sessions (id, tenant_id, selected_store_id, transfer_mode, pending, last_scan_at, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`
		_, err := r.db.ExecContext(ctx, query,
			sess.ID, tenantID, sess.Selection.SelectedStoreID, sess.Selection.TransferMode,
			pending, sess.LastScanAt, sess.CreatedAt, sess.UpdatedAt,
		)
		return err
	})
	if appErr := database.MapPQError(err); appErr != nil {
		return appErr
	}
	return err
}

// Get returns a session by ID
func (r *SessionRepository) Get(ctx context.Context, id string) (*domain.ScanSession, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	var row sessionRow
	err = r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		query := `
			SELECT id, selected_store_id, transfer_mode, pending, last_scan_at, created_at, updated_at
			FROM scan_sessions WHERE id = $1 AND tenant_id = $2
		`
		return r.db.GetContext(ctx, &row, query, id, tenantID)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	return row.toDomain()
}

// Update writes the session's selection, pending stock-out and timestamps
func (r *SessionRepository) Update(ctx context.Context, sess *domain.ScanSession) error {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}

	pending, err := encodePending(sess.Pending)
	if err != nil {
		return err
	}

	return r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		query := `
			UPDATE scan_sessions
			SET selected_store_id = $2, transfer_mode = $3, pending = $4, last_scan_at = $5, updated_at = $6
			WHERE id = $1 AND tenant_id = $7
		`
		result, err := r.db.ExecContext(ctx, query,
			sess.ID, sess.Selection.SelectedStoreID, sess.Selection.TransferMode,
			pending, sess.LastScanAt, sess.UpdatedAt, tenantID,
		)
		if err != nil {
			if appErr := database.MapPQError(err); appErr != nil {
				return appErr
			}
			return err
		}

		rows, _ := result.RowsAffected()
		if rows == 0 {
			return domain.ErrSessionNotFound
		}
		return nil
	})
}

// ClaimPending clears the pending stock-out and returns what was there.
// Two concurrent claims cannot both receive the same stock-out.
func (r *SessionRepository) ClaimPending(ctx context.Context, id string) (*domain.PendingStockOut, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	var raw []byte
	err = r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		query := `
			WITH claimed AS (
				SELECT id, pending FROM scan_sessions
				WHERE id = $1 AND tenant_id = $2 AND pending IS NOT NULL
				FOR UPDATE
			)
			UPDATE scan_sessions s SET pending = NULL, updated_at = NOW()
			FROM claimed WHERE s.id = claimed.id
			RETURNING claimed.pending
		`
		return r.db.GetContext(ctx, &raw, query, id, tenantID)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return decodePending(raw)
}

// Delete removes a session
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}

	return r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		result, err := r.db.ExecContext(ctx, `DELETE FROM scan_sessions WHERE id = $1 AND tenant_id = $2`, id, tenantID)
		if err != nil {
			return err
		}
		rows, _ := result.RowsAffected()
		if rows == 0 {
			return domain.ErrSessionNotFound
		}
		return nil
	})
}
