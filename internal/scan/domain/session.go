package domain

import "time"

// StoreSelection is the operator context a scan is evaluated against
type StoreSelection struct {
	SelectedStoreID *int64 `json:"selected_store_id,omitempty"`
	TransferMode    bool   `json:"transfer_mode"`
}

// HasStore reports whether a store was selected
func (s StoreSelection) HasStore() bool {
	return s.SelectedStoreID != nil
}

// PendingStockOut is a stock-out waiting for operator confirmation
type PendingStockOut struct {
	BoxID   string        `json:"box_id"`
	BoxCode string        `json:"box_code"`
	StoreID int64         `json:"store_id"`
	Lines   []BoxLineItem `json:"lines"`
}

// ScanSession is the state of one scanning device/operator.
// It is passed into the controller and returned updated, never shared.
type ScanSession struct {
	ID         string           `json:"id"`
	Selection  StoreSelection   `json:"selection"`
	Pending    *PendingStockOut `json:"pending,omitempty"`
	LastScanAt *time.Time       `json:"last_scan_at,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// ClearScanState drops the scan-scoped state so the next scan starts clean.
// The selected store persists; the transfer toggle is one-shot.
func (s ScanSession) ClearScanState() ScanSession {
	s.Pending = nil
	s.Selection.TransferMode = false
	return s
}
