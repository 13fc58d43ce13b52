package service

import (
	"context"

	"github.com/boxscan/scan-service/internal/scan/domain"
	"github.com/boxscan/scan-service/pkg/logger"
)

// StockOutExecutor moves a box's remaining quantities out of a store.
//
// Lines are processed one at a time: each move is computed from the
// availability read immediately before its write, and the next line is not
// started until that write returns. Running lines concurrently would read
// stale availability and overshoot the ledger.
type StockOutExecutor struct {
	snapshots *SnapshotReader
	txlog     TransactionLog
	logger    *logger.Logger
}

// NewStockOutExecutor creates a new stock-out executor
func NewStockOutExecutor(snapshots *SnapshotReader, txlog TransactionLog, log *logger.Logger) *StockOutExecutor {
	return &StockOutExecutor{
		snapshots: snapshots,
		txlog:     txlog,
		logger:    log.WithComponent("stock-out-executor"),
	}
}

// Execute runs the batch to completion. A failing line never aborts its
// siblings, and cancelling ctx does not stop a batch already started.
func (e *StockOutExecutor) Execute(ctx context.Context, boxCode string, lines []domain.BoxLineItem, storeID int64) domain.BatchOutcome {
	ctx = context.WithoutCancel(ctx)

	outcome := domain.BatchOutcome{Lines: make([]domain.LineResult, 0, len(lines))}
	for _, line := range lines {
		outcome.Record(e.executeLine(ctx, boxCode, line, storeID))
	}

	e.logger.Info().
		Str("box_code", boxCode).
		Int64("store_id", storeID).
		Int("success_count", outcome.SuccessCount).
		Int("failure_count", outcome.FailureCount).
		Int("moved_quantity", outcome.MovedQuantity()).
		Msg("stock-out batch finished")

	return outcome
}

func (e *StockOutExecutor) executeLine(ctx context.Context, boxCode string, line domain.BoxLineItem, storeID int64) domain.LineResult {
	result := domain.LineResult{ItemID: line.ItemID}

	snap, err := e.snapshots.Read(ctx, line.ItemID, storeID)
	if err != nil {
		e.logger.Warn().Err(err).Str("box_code", boxCode).Int64("item_id", line.ItemID).Msg("stock-out line failed: inventory read")
		result.Outcome = domain.LineFailed
		result.Error = err.Error()
		return result
	}

	move := min(line.RemainingQuantity, snap.Available)
	if move <= 0 {
		result.Outcome = domain.LineSkipped
		return result
	}

	if err := e.txlog.AppendStockOut(ctx, line.ItemID, storeID, move, boxCode); err != nil {
		werr := domain.RemoteWriteError("stock-out transaction", err)
		e.logger.Warn().Err(err).Str("box_code", boxCode).Int64("item_id", line.ItemID).Int("quantity", move).Msg("stock-out line failed: transaction append")
		result.Outcome = domain.LineFailed
		result.Error = werr.Error()
		return result
	}

	result.Outcome = domain.LineMoved
	result.MovedQuantity = move
	return result
}
