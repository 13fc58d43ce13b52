package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/boxscan/scan-service/internal/scan/domain"
	"github.com/boxscan/scan-service/pkg/logger"
)

// InventoryClient reads the inventory ledger
type InventoryClient struct {
	backend
}

// NewInventoryClient creates a new inventory ledger client
func NewInventoryClient(baseURL string, timeout time.Duration, log *logger.Logger) *InventoryClient {
	return &InventoryClient{backend: newBackend(baseURL, timeout, log.WithComponent("inventory-ledger"))}
}

type inventoryRow struct {
	OnHand    int `json:"on_hand"`
	Available int `json:"available"`
}

// ReadInventory returns the ledger row for (item, store), or nil when the
// ledger has no row for the pair.
func (c *InventoryClient) ReadInventory(ctx context.Context, itemID, storeID int64) (*domain.InventorySnapshot, error) {
	path := fmt.Sprintf("/api/v1/inventory?item_id=%d&store_id=%d", itemID, storeID)

	var row *inventoryRow
	if err := c.do(ctx, http.MethodGet, path, nil, &row); err != nil {
		if IsStatus(err, http.StatusNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if row == nil {
		return nil, nil
	}

	return &domain.InventorySnapshot{
		ItemID:    itemID,
		StoreID:   storeID,
		OnHand:    row.OnHand,
		Available: row.Available,
	}, nil
}
