package service

import (
	"context"

	"github.com/boxscan/scan-service/internal/scan/domain"
)

// BoxDirectory resolves and mutates boxes
type BoxDirectory interface {
	SearchBoxes(ctx context.Context, code string) ([]domain.Box, error)
	ListContents(ctx context.Context, boxID string) ([]domain.BoxLineItem, error)
	CheckIn(ctx context.Context, boxID string, storeID int64) error
}

// InventoryLedger reads (item, store) stock. A nil snapshot with a nil
// error means the ledger has no row for the pair.
type InventoryLedger interface {
	ReadInventory(ctx context.Context, itemID, storeID int64) (*domain.InventorySnapshot, error)
}

// TransactionLog appends stock movements
type TransactionLog interface {
	AppendStockOut(ctx context.Context, itemID, storeID int64, quantity int, reference string) error
}

// StoreDirectory lists the stores an operator can select
type StoreDirectory interface {
	ListActiveStores(ctx context.Context) ([]domain.Store, error)
}

// SessionStore persists scan sessions between requests
type SessionStore interface {
	Create(ctx context.Context, sess *domain.ScanSession) error
	Get(ctx context.Context, id string) (*domain.ScanSession, error)
	Update(ctx context.Context, sess *domain.ScanSession) error
	// ClaimPending atomically removes and returns the pending stock-out,
	// or nil if there is none. A stock-out can be claimed only once.
	ClaimPending(ctx context.Context, id string) (*domain.PendingStockOut, error)
	Delete(ctx context.Context, id string) error
}

// AuditRecorder keeps a trail of scan outcomes
type AuditRecorder interface {
	Record(ctx context.Context, sessionID string, result domain.ScanResult) error
}

// EventPublisher announces scan outcomes to the rest of the platform
type EventPublisher interface {
	PublishScanResult(ctx context.Context, sessionID string, result domain.ScanResult)
}
