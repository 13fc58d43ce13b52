package service

import (
	"context"
	"fmt"

	"github.com/boxscan/scan-service/internal/scan/domain"
	"github.com/boxscan/scan-service/pkg/logger"
)

// SnapshotReader reads inventory snapshots. It never caches and never
// retries: the ledger is the source of truth and may change between scans.
type SnapshotReader struct {
	ledger InventoryLedger
	logger *logger.Logger
}

// NewSnapshotReader creates a new snapshot reader
func NewSnapshotReader(ledger InventoryLedger, log *logger.Logger) *SnapshotReader {
	return &SnapshotReader{
		ledger: ledger,
		logger: log.WithComponent("snapshot-reader"),
	}
}

// Read returns the current stock of (item, store). A missing ledger row
// reads as zero stock.
func (r *SnapshotReader) Read(ctx context.Context, itemID, storeID int64) (domain.InventorySnapshot, error) {
	snap, err := r.ledger.ReadInventory(ctx, itemID, storeID)
	if err != nil {
		return domain.InventorySnapshot{}, domain.LookupError(fmt.Sprintf("inventory of item %d in store %d", itemID, storeID), err)
	}
	if snap == nil {
		r.logger.Debug().Int64("item_id", itemID).Int64("store_id", storeID).Msg("no ledger row, reading as zero stock")
		return domain.InventorySnapshot{ItemID: itemID, StoreID: storeID}, nil
	}

	out := *snap
	out.ItemID = itemID
	out.StoreID = storeID
	return out, nil
}

// ReadAll reads one snapshot per line, in order, stopping at the first failure
func (r *SnapshotReader) ReadAll(ctx context.Context, lines []domain.BoxLineItem, storeID int64) ([]domain.InventorySnapshot, error) {
	snaps := make([]domain.InventorySnapshot, 0, len(lines))
	for _, line := range lines {
		snap, err := r.Read(ctx, line.ItemID, storeID)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	return snaps, nil
}
