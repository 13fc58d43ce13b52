package domain

// LineOutcome is what happened to a single line of a stock-out batch
type LineOutcome string

const (
	// LineMoved means a stock-out transaction was appended for the line
	LineMoved LineOutcome = "moved"
	// LineSkipped means nothing was available to move, no write was attempted
	LineSkipped LineOutcome = "skipped"
	// LineFailed means the ledger read or the transaction append errored
	LineFailed LineOutcome = "failed"
)

// LineResult is the per-line record of a batch
type LineResult struct {
	ItemID        int64       `json:"item_id"`
	MovedQuantity int         `json:"moved_quantity"`
	Outcome       LineOutcome `json:"outcome"`
	Error         string      `json:"error,omitempty"`
}

// BatchOutcome aggregates a stock-out batch. Skipped lines count as failures.
type BatchOutcome struct {
	Lines        []LineResult `json:"lines"`
	SuccessCount int          `json:"success_count"`
	FailureCount int          `json:"failure_count"`
}

// Record appends a line and updates the counters
func (o *BatchOutcome) Record(r LineResult) {
	o.Lines = append(o.Lines, r)
	if r.Outcome == LineMoved {
		o.SuccessCount++
	} else {
		o.FailureCount++
	}
}

// RequiresManualFallback is true when no line moved at all
func (o *BatchOutcome) RequiresManualFallback() bool {
	return o.SuccessCount == 0
}

// MovedQuantity sums the quantity moved across all lines
func (o *BatchOutcome) MovedQuantity() int {
	total := 0
	for _, l := range o.Lines {
		total += l.MovedQuantity
	}
	return total
}
