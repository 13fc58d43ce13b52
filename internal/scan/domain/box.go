package domain

import (
	"regexp"
	"strings"
)

// BoxStatus is the lifecycle state of a box as reported by the box directory
type BoxStatus string

const (
	StatusPendingCheckIn BoxStatus = "pending_checkin"
	StatusCheckedIn      BoxStatus = "checked_in"
	StatusInUse          BoxStatus = "in_use"
	StatusEmpty          BoxStatus = "empty"
	StatusDamaged        BoxStatus = "damaged"
	StatusReturned       BoxStatus = "returned"
	StatusStockedOut     BoxStatus = "stocked_out"
)

// Actionable reports whether the scan workflow can act on a box in this status.
// Every status other than pending_checkin and checked_in is informational only.
func (s BoxStatus) Actionable() bool {
	return s == StatusPendingCheckIn || s == StatusCheckedIn
}

var boxCodePattern = regexp.MustCompile(`^BOX-[0-9]{4}-[0-9]{4}$`)

// NormalizeBoxCode trims surrounding whitespace and reports whether the
// result has the BOX-YYYY-NNNN shape. Nothing else is rewritten.
func NormalizeBoxCode(raw string) (string, bool) {
	code := strings.TrimSpace(raw)
	return code, boxCodePattern.MatchString(code)
}

// Box is a physical container tracked by its external code
type Box struct {
	ID              string        `json:"id"`
	Code            string        `json:"box_code"`
	Status          BoxStatus     `json:"status"`
	AssignedStoreID *int64        `json:"assigned_store_id,omitempty"`
	Contents        []BoxLineItem `json:"contents"`
}

// AssignedTo reports whether the box is assigned to the given store
func (b *Box) AssignedTo(storeID int64) bool {
	return b.AssignedStoreID != nil && *b.AssignedStoreID == storeID
}

// BoxLineItem is one (item, quantity) line inside a box
type BoxLineItem struct {
	ItemID            int64 `json:"item_id"`
	RequestedQuantity int   `json:"requested_quantity"`
	RemainingQuantity int   `json:"remaining_quantity"`
}

// Valid checks 0 <= remaining <= requested
func (l BoxLineItem) Valid() bool {
	return l.RemainingQuantity >= 0 && l.RemainingQuantity <= l.RequestedQuantity
}

// InventorySnapshot is a fresh read of one (item, store) ledger row
type InventorySnapshot struct {
	ItemID    int64 `json:"item_id"`
	StoreID   int64 `json:"store_id"`
	OnHand    int   `json:"on_hand"`
	Available int   `json:"available"`
}

// Store is an entry of the store directory
type Store struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

// StoreStatusActive is the directory status of stores offered to operators
const StoreStatusActive = "active"
