package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/boxscan/scan-service/internal/scan/domain"
	"github.com/boxscan/scan-service/pkg/logger"
)

// BoxClient calls the box directory
type BoxClient struct {
	backend
}

// NewBoxClient creates a new box directory client
func NewBoxClient(baseURL string, timeout time.Duration, log *logger.Logger) *BoxClient {
	return &BoxClient{backend: newBackend(baseURL, timeout, log.WithComponent("box-directory"))}
}

// SearchBoxes returns the directory candidates for a code. The directory
// search is not guaranteed to be exact; callers pick the exact match.
func (c *BoxClient) SearchBoxes(ctx context.Context, code string) ([]domain.Box, error) {
	var boxes []domain.Box
	if err := c.do(ctx, http.MethodGet, "/api/v1/boxes?code="+url.QueryEscape(code), nil, &boxes); err != nil {
		return nil, err
	}
	return boxes, nil
}

// ListContents returns the line items of a box
func (c *BoxClient) ListContents(ctx context.Context, boxID string) ([]domain.BoxLineItem, error) {
	var lines []domain.BoxLineItem
	if err := c.do(ctx, http.MethodGet, "/api/v1/boxes/"+url.PathEscape(boxID)+"/contents", nil, &lines); err != nil {
		return nil, err
	}
	return lines, nil
}

type checkInRequest struct {
	StoreID int64 `json:"store_id"`
}

// CheckIn assigns a pending box to a store
func (c *BoxClient) CheckIn(ctx context.Context, boxID string, storeID int64) error {
	c.logger.Info().
		Str("box_id", boxID).
		Int64("store_id", storeID).
		Msg("checking in box")

	if err := c.do(ctx, http.MethodPost, "/api/v1/boxes/"+url.PathEscape(boxID)+"/check-in", checkInRequest{StoreID: storeID}, nil); err != nil {
		return fmt.Errorf("check-in of box %s: %w", boxID, err)
	}
	return nil
}
