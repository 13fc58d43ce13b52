package domain

// ResultKind enumerates every terminal (or confirmation-pending) scan outcome.
// The caller never receives anything outside this set for a scan.
type ResultKind string

const (
	ResultAutoCheckInSucceeded         ResultKind = "auto_check_in_succeeded"
	ResultAutoCheckInFallback          ResultKind = "auto_check_in_fallback"
	ResultTransferOffered              ResultKind = "transfer_offered"
	ResultStockOutConfirmationRequired ResultKind = "stock_out_confirmation_required"
	ResultStockOutCompleted            ResultKind = "stock_out_completed"
	ResultNotActionable                ResultKind = "not_actionable"
	ResultValidationFailed             ResultKind = "validation_failed"
	ResultNotFound                     ResultKind = "not_found"
	ResultLookupFailed                 ResultKind = "lookup_failed"
	ResultMissingContext               ResultKind = "missing_context"
	ResultEmptyBox                     ResultKind = "empty_box"
	ResultCancelled                    ResultKind = "cancelled"
)

// Retryable reports whether re-invoking the scan may succeed without operator changes
func (k ResultKind) Retryable() bool {
	return k == ResultLookupFailed
}

// ScanResult is what a scan, confirmation or cancellation reports back
type ScanResult struct {
	Kind    ResultKind `json:"kind"`
	BoxCode string     `json:"box_code,omitempty"`
	Status  BoxStatus  `json:"status,omitempty"`
	Reason  string     `json:"reason,omitempty"`

	// Check-in and stock-out target, or the pre-filled store of a fallback form
	StoreID *int64 `json:"store_id,omitempty"`

	// Transfer hand-off
	FromStoreID *int64              `json:"from_store_id,omitempty"`
	Advisory    string              `json:"advisory,omitempty"`
	Snapshots   []InventorySnapshot `json:"snapshots,omitempty"`

	// Stock-out
	LineItems      []BoxLineItem `json:"line_items,omitempty"`
	Outcome        *BatchOutcome `json:"outcome,omitempty"`
	ManualFallback bool          `json:"manual_fallback,omitempty"`
}

// Succeeded reports whether the scan reached its intended end state
func (r ScanResult) Succeeded() bool {
	switch r.Kind {
	case ResultAutoCheckInSucceeded, ResultTransferOffered, ResultStockOutConfirmationRequired:
		return true
	case ResultStockOutCompleted:
		return r.Outcome != nil && !r.Outcome.RequiresManualFallback()
	default:
		return false
	}
}
