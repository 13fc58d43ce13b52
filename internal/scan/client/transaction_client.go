package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/boxscan/scan-service/pkg/logger"
)

// Transaction types understood by the transaction log
const (
	TransactionStockIn  = "stock_in"
	TransactionStockOut = "stock_out"
	TransactionTransfer = "transfer"
)

// TransactionClient appends stock movements to the transaction log
type TransactionClient struct {
	backend
}

// NewTransactionClient creates a new transaction log client
func NewTransactionClient(baseURL string, timeout time.Duration, log *logger.Logger) *TransactionClient {
	return &TransactionClient{backend: newBackend(baseURL, timeout, log.WithComponent("transaction-log"))}
}

type transactionRequest struct {
	Type      string `json:"type"`
	ItemID    int64  `json:"item_id"`
	StoreID   int64  `json:"store_id"`
	Quantity  int    `json:"quantity"`
	Reference string `json:"reference"`
}

// AppendStockOut records a stock-out of quantity units, referencing the box code
func (c *TransactionClient) AppendStockOut(ctx context.Context, itemID, storeID int64, quantity int, reference string) error {
	req := transactionRequest{
		Type:      TransactionStockOut,
		ItemID:    itemID,
		StoreID:   storeID,
		Quantity:  quantity,
		Reference: reference,
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/transactions", req, nil); err != nil {
		return fmt.Errorf("append stock-out for item %d: %w", itemID, err)
	}
	return nil
}
