package service

import (
	"context"

	"github.com/boxscan/scan-service/internal/scan/domain"
	"github.com/boxscan/scan-service/pkg/logger"
)

// BoxResolver turns a scanned code into a box with its contents
type BoxResolver struct {
	directory BoxDirectory
	logger    *logger.Logger
}

// NewBoxResolver creates a new box resolver
func NewBoxResolver(directory BoxDirectory, log *logger.Logger) *BoxResolver {
	return &BoxResolver{
		directory: directory,
		logger:    log.WithComponent("box-resolver"),
	}
}

// Validate performs the local format check only. No remote call is made.
func (r *BoxResolver) Validate(raw string) (string, error) {
	code, ok := domain.NormalizeBoxCode(raw)
	if !ok {
		return "", domain.ValidationError(raw)
	}
	return code, nil
}

// Resolve validates the code, finds the exact directory match and loads its contents
func (r *BoxResolver) Resolve(ctx context.Context, raw string) (*domain.Box, error) {
	code, err := r.Validate(raw)
	if err != nil {
		return nil, err
	}

	candidates, err := r.directory.SearchBoxes(ctx, code)
	if err != nil {
		return nil, domain.LookupError("box "+code, err)
	}

	var box *domain.Box
	for i := range candidates {
		// search may be fuzzy; only an exact code match counts
		if candidates[i].Code == code {
			b := candidates[i]
			box = &b
			break
		}
	}
	if box == nil {
		return nil, domain.NotFoundError(code)
	}

	lines, err := r.directory.ListContents(ctx, box.ID)
	if err != nil {
		return nil, domain.LookupError("contents of box "+code, err)
	}

	box.Contents = make([]domain.BoxLineItem, 0, len(lines))
	for _, line := range lines {
		if !line.Valid() {
			r.logger.Warn().
				Str("box_code", code).
				Int64("item_id", line.ItemID).
				Int("requested", line.RequestedQuantity).
				Int("remaining", line.RemainingQuantity).
				Msg("clamping inconsistent line quantities")
			line.RemainingQuantity = clamp(line.RemainingQuantity, 0, max(line.RequestedQuantity, 0))
		}
		box.Contents = append(box.Contents, line)
	}

	return box, nil
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
