package service

import (
	"context"
	"fmt"

	"github.com/boxscan/scan-service/internal/scan/domain"
	"github.com/boxscan/scan-service/pkg/logger"
)

// Decision is the engine's verdict for one resolved box. Pending is set only
// when the result asks the operator to confirm a stock-out.
type Decision struct {
	Result  domain.ScanResult
	Pending *domain.PendingStockOut
}

// Engine maps a resolved box and the operator's selection to exactly one action
type Engine struct {
	boxes     BoxDirectory
	snapshots *SnapshotReader
	stores    StoreDirectory
	logger    *logger.Logger
}

// NewEngine creates a new lifecycle decision engine
func NewEngine(boxes BoxDirectory, snapshots *SnapshotReader, stores StoreDirectory, log *logger.Logger) *Engine {
	return &Engine{
		boxes:     boxes,
		snapshots: snapshots,
		stores:    stores,
		logger:    log.WithComponent("decision-engine"),
	}
}

// RequireStore fails with a missing context error when no store is selected
func RequireStore(sel domain.StoreSelection) (int64, error) {
	if !sel.HasStore() {
		return 0, domain.MissingContextError()
	}
	return *sel.SelectedStoreID, nil
}

// Decide evaluates the lifecycle table top to bottom, first match wins.
// At most one remote mutation (the check-in) is attempted.
func (e *Engine) Decide(ctx context.Context, box *domain.Box, sel domain.StoreSelection) (Decision, error) {
	selected, err := RequireStore(sel)
	if err != nil {
		return Decision{}, err
	}

	switch box.Status {
	case domain.StatusPendingCheckIn:
		return e.checkIn(ctx, box, selected), nil

	case domain.StatusCheckedIn:
		if box.AssignedStoreID == nil {
			return Decision{Result: domain.ScanResult{
				Kind:    domain.ResultNotActionable,
				BoxCode: box.Code,
				Status:  box.Status,
				Reason:  "checked in without an assigned store",
			}}, nil
		}

		assigned := *box.AssignedStoreID
		switch {
		case sel.TransferMode:
			return e.offerTransfer(ctx, box, selected, "")
		case assigned != selected:
			return e.offerTransfer(ctx, box, selected, e.mismatchAdvisory(ctx, box.Code, assigned, selected))
		default:
			return e.requestStockOut(box, selected)
		}

	default:
		return Decision{Result: domain.ScanResult{
			Kind:    domain.ResultNotActionable,
			BoxCode: box.Code,
			Status:  box.Status,
			Reason:  fmt.Sprintf("box status %q cannot be acted on", box.Status),
		}}, nil
	}
}

func (e *Engine) checkIn(ctx context.Context, box *domain.Box, storeID int64) Decision {
	result := domain.ScanResult{
		BoxCode: box.Code,
		Status:  box.Status,
		StoreID: &storeID,
	}

	if err := e.boxes.CheckIn(ctx, box.ID, storeID); err != nil {
		werr := domain.RemoteWriteError("check-in", err)
		e.logger.Warn().Err(err).Str("box_code", box.Code).Int64("store_id", storeID).Msg("auto check-in failed, falling back to manual form")
		result.Kind = domain.ResultAutoCheckInFallback
		result.Reason = werr.Error()
		return Decision{Result: result}
	}

	result.Kind = domain.ResultAutoCheckInSucceeded
	result.Status = domain.StatusCheckedIn
	e.logger.Info().Str("box_code", box.Code).Int64("store_id", storeID).Msg("box checked in")
	return Decision{Result: result}
}

// offerTransfer is the single transfer path; transfer mode and a store
// mismatch both land here and differ only in the advisory.
func (e *Engine) offerTransfer(ctx context.Context, box *domain.Box, selected int64, advisory string) (Decision, error) {
	from := *box.AssignedStoreID

	snaps, err := e.snapshots.ReadAll(ctx, box.Contents, from)
	if err != nil {
		return Decision{}, err
	}

	return Decision{Result: domain.ScanResult{
		Kind:        domain.ResultTransferOffered,
		BoxCode:     box.Code,
		Status:      box.Status,
		StoreID:     &selected,
		FromStoreID: &from,
		Advisory:    advisory,
		Snapshots:   snaps,
		LineItems:   box.Contents,
	}}, nil
}

func (e *Engine) requestStockOut(box *domain.Box, storeID int64) (Decision, error) {
	if len(box.Contents) == 0 {
		return Decision{}, domain.EmptyBoxError(box.Code)
	}

	lines := make([]domain.BoxLineItem, len(box.Contents))
	copy(lines, box.Contents)

	return Decision{
		Result: domain.ScanResult{
			Kind:      domain.ResultStockOutConfirmationRequired,
			BoxCode:   box.Code,
			Status:    box.Status,
			StoreID:   &storeID,
			LineItems: lines,
		},
		Pending: &domain.PendingStockOut{
			BoxID:   box.ID,
			BoxCode: box.Code,
			StoreID: storeID,
			Lines:   lines,
		},
	}, nil
}

func (e *Engine) mismatchAdvisory(ctx context.Context, code string, assigned, selected int64) string {
	names := e.storeNames(ctx)
	return fmt.Sprintf("Box %s is checked in at %s, not at the selected %s. Transfer it instead of stocking out.",
		code, storeLabel(names, assigned), storeLabel(names, selected))
}

// storeNames is best effort; advisory text falls back to store IDs
func (e *Engine) storeNames(ctx context.Context) map[int64]string {
	if e.stores == nil {
		return nil
	}
	stores, err := e.stores.ListActiveStores(ctx)
	if err != nil {
		e.logger.Debug().Err(err).Msg("store names unavailable for advisory")
		return nil
	}
	names := make(map[int64]string, len(stores))
	for _, s := range stores {
		names[s.ID] = s.Name
	}
	return names
}

func storeLabel(names map[int64]string, id int64) string {
	if name := names[id]; name != "" {
		return fmt.Sprintf("store %s (%d)", name, id)
	}
	return fmt.Sprintf("store %d", id)
}
