package client

import (
	"context"
	"net/http"
	"time"

	"github.com/boxscan/scan-service/internal/scan/domain"
	"github.com/boxscan/scan-service/pkg/logger"
)

// StoreClient reads the store directory
type StoreClient struct {
	backend
}

// NewStoreClient creates a new store directory client
func NewStoreClient(baseURL string, timeout time.Duration, log *logger.Logger) *StoreClient {
	return &StoreClient{backend: newBackend(baseURL, timeout, log.WithComponent("store-directory"))}
}

// ListActiveStores returns the stores an operator may select
func (c *StoreClient) ListActiveStores(ctx context.Context) ([]domain.Store, error) {
	var stores []domain.Store
	if err := c.do(ctx, http.MethodGet, "/api/v1/stores?status="+domain.StoreStatusActive, nil, &stores); err != nil {
		return nil, err
	}
	return stores, nil
}
