package repository

import (
	"context"
	"time"

	"github.com/boxscan/scan-service/internal/scan/domain"
	"github.com/boxscan/scan-service/pkg/database"
	"github.com/boxscan/scan-service/pkg/tenant"
)

// AuditEntry is one scan_audit_log row
type AuditEntry struct {
	ID            int64     `db:"id" json:"id"`
	SessionID     string    `db:"session_id" json:"session_id"`
	Kind          string    `db:"kind" json:"kind"`
	BoxCode       *string   `db:"box_code" json:"box_code,omitempty"`
	StoreID       *int64    `db:"store_id" json:"store_id,omitempty"`
	SuccessCount  int       `db:"success_count" json:"success_count"`
	FailureCount  int       `db:"failure_count" json:"failure_count"`
	MovedQuantity int       `db:"moved_quantity" json:"moved_quantity"`
	Reason        *string   `db:"reason" json:"reason,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// NewAuditEntry flattens a scan result into an audit row
func NewAuditEntry(sessionID string, result domain.ScanResult) AuditEntry {
	entry := AuditEntry{
		SessionID: sessionID,
		Kind:      string(result.Kind),
		BoxCode:   nonEmpty(result.BoxCode),
		StoreID:   result.StoreID,
		Reason:    nonEmpty(result.Reason),
	}
	if result.Outcome != nil {
		entry.SuccessCount = result.Outcome.SuccessCount
		entry.FailureCount = result.Outcome.FailureCount
		entry.MovedQuantity = result.Outcome.MovedQuantity()
	}
	return entry
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

const (
	defaultAuditLimit = 100
	maxAuditLimit     = 500
)

// AuditRepository appends scan outcomes to scan_audit_log
type AuditRepository struct {
	db *database.DB
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *database.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Record appends one entry for the result
func (r *AuditRepository) Record(ctx context.Context, sessionID string, result domain.ScanResult) error {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}

	entry := NewAuditEntry(sessionID, result)
	return r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		query := `
			INSERT INTO scan_audit_log (tenant_id, session_id, kind, box_code, store_id, success_count, failure_count, moved_quantity, reason)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`
		_, err := r.db.ExecContext(ctx, query,
			tenantID, entry.SessionID, entry.Kind, entry.BoxCode, entry.StoreID,
			entry.SuccessCount, entry.FailureCount, entry.MovedQuantity, entry.Reason,
		)
		return err
	})
}

// ListBySession returns a session's audit trail, oldest first
func (r *AuditRepository) ListBySession(ctx context.Context, sessionID string, limit int) ([]AuditEntry, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}
	switch {
	case limit <= 0:
		limit = defaultAuditLimit
	case limit > maxAuditLimit:
		limit = maxAuditLimit
	}

	entries := []AuditEntry{}
	err = r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		query := `
			SELECT id, session_id, kind, box_code, store_id, success_count, failure_count, moved_quantity, reason, created_at
			FROM scan_audit_log WHERE session_id = $1 AND tenant_id = $2
			ORDER BY created_at, id
			LIMIT $3
		`
		return r.db.SelectContext(ctx, &entries, query, sessionID, tenantID, limit)
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}
