package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	// Scan events
	EventBoxCheckedIn      = "scan.box.checked_in"
	EventBoxCheckInFailed  = "scan.box.check_in_failed"
	EventStockOutCompleted = "scan.stock_out.completed"
	EventTransferOffered   = "scan.transfer.offered"

	// Store directory events
	EventStoreCreated     = "store.created"
	EventStoreUpdated     = "store.updated"
	EventStoreDeactivated = "store.deactivated"
)

// Exchange names
const (
	ExchangeScanEvents  = "scan.events"
	ExchangeStoreEvents = "store.events"
	ExchangeDeadLetter  = "dlx.events"
)

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            GenerateEventID(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// Scan Events

// BoxCheckedInEvent is published when a scan checked a box into a store
type BoxCheckedInEvent struct {
	SessionID string `json:"session_id"`
	BoxCode   string `json:"box_code"`
	StoreID   int64  `json:"store_id"`
	TenantID  string `json:"tenant_id"`
}

// BoxCheckInFailedEvent is published when an automatic check-in failed and
// the operator was sent to the manual form
type BoxCheckInFailedEvent struct {
	SessionID string `json:"session_id"`
	BoxCode   string `json:"box_code"`
	StoreID   int64  `json:"store_id"`
	Reason    string `json:"reason"`
	TenantID  string `json:"tenant_id"`
}

// StockOutCompletedEvent is published after a confirmed stock-out batch ran
type StockOutCompletedEvent struct {
	SessionID      string `json:"session_id"`
	BoxCode        string `json:"box_code"`
	StoreID        int64  `json:"store_id"`
	SuccessCount   int    `json:"success_count"`
	FailureCount   int    `json:"failure_count"`
	MovedQuantity  int    `json:"moved_quantity"`
	ManualFallback bool   `json:"manual_fallback"`
	TenantID       string `json:"tenant_id"`
}

// TransferOfferedEvent is published when a scan handed a box to the transfer flow
type TransferOfferedEvent struct {
	SessionID   string `json:"session_id"`
	BoxCode     string `json:"box_code"`
	FromStoreID int64  `json:"from_store_id"`
	ToStoreID   int64  `json:"to_store_id"`
	Mismatch    bool   `json:"mismatch"`
	TenantID    string `json:"tenant_id"`
}

// Store Events

// StoreChangedEvent is consumed from the store directory for any change to a store
type StoreChangedEvent struct {
	StoreID  int64  `json:"store_id"`
	Name     string `json:"name,omitempty"`
	Status   string `json:"status,omitempty"`
	TenantID string `json:"tenant_id"`
}

// GenerateEventID generates a unique event ID
func GenerateEventID() string {
	return uuid.New().String()
}
