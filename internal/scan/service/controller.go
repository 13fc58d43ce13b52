package service

import (
	"context"
	"time"

	"github.com/boxscan/scan-service/internal/scan/domain"
	"github.com/boxscan/scan-service/pkg/errors"
	"github.com/boxscan/scan-service/pkg/logger"
)

// Controller runs one scan end to end: resolve, decide, execute, report.
// It takes a session value and returns the updated value; it holds no
// per-session state of its own.
type Controller struct {
	resolver *BoxResolver
	engine   *Engine
	executor *StockOutExecutor
	logger   *logger.Logger
	now      func() time.Time
}

// NewController creates a new scan session controller
func NewController(resolver *BoxResolver, engine *Engine, executor *StockOutExecutor, log *logger.Logger) *Controller {
	return &Controller{
		resolver: resolver,
		engine:   engine,
		executor: executor,
		logger:   log.WithComponent("scan-controller"),
		now:      time.Now,
	}
}

// HandleScan processes a raw scanned code against the session's selection.
// Any stock-out still awaiting confirmation is discarded. Failures before a
// decision is reached keep the transfer toggle so the operator can rescan;
// once the engine has decided, the toggle is consumed.
func (c *Controller) HandleScan(ctx context.Context, sess domain.ScanSession, raw string) (domain.ScanSession, domain.ScanResult) {
	sel := sess.Selection
	sess.Pending = nil
	now := c.now()
	sess.LastScanAt = &now

	log := c.logger.WithSessionID(sess.ID)

	code, err := c.resolver.Validate(raw)
	if err != nil {
		return sess, failureResult(raw, err)
	}
	if _, err := RequireStore(sel); err != nil {
		return sess, failureResult(code, err)
	}

	box, err := c.resolver.Resolve(ctx, code)
	if err != nil {
		log.Debug().Err(err).Str("box_code", code).Msg("box not resolved")
		return sess, failureResult(code, err)
	}

	decision, err := c.engine.Decide(ctx, box, sel)
	sess = sess.ClearScanState()
	if err != nil {
		return sess, failureResult(code, err)
	}
	sess.Pending = decision.Pending

	log.Info().
		Str("box_code", code).
		Str("status", string(box.Status)).
		Str("result", string(decision.Result.Kind)).
		Msg("scan decided")

	return sess, decision.Result
}

// Confirm executes the pending stock-out. Once started the batch runs to
// completion for all lines.
func (c *Controller) Confirm(ctx context.Context, sess domain.ScanSession) (domain.ScanSession, domain.ScanResult, error) {
	pending := sess.Pending
	if pending == nil {
		return sess, domain.ScanResult{}, domain.ErrNothingPending
	}

	outcome := c.executor.Execute(ctx, pending.BoxCode, pending.Lines, pending.StoreID)

	storeID := pending.StoreID
	result := domain.ScanResult{
		Kind:           domain.ResultStockOutCompleted,
		BoxCode:        pending.BoxCode,
		Status:         domain.StatusCheckedIn,
		StoreID:        &storeID,
		LineItems:      pending.Lines,
		Outcome:        &outcome,
		ManualFallback: outcome.RequiresManualFallback(),
	}
	if result.ManualFallback {
		result.Reason = "no line could be stocked out; use the manual stock-out form"
		c.logger.WithSessionID(sess.ID).Warn().Str("box_code", pending.BoxCode).Msg("stock-out moved nothing, manual fallback required")
	}

	sess = sess.ClearScanState()
	now := c.now()
	sess.LastScanAt = &now
	return sess, result, nil
}

// Cancel drops the pending stock-out (if any) without any remote call
func (c *Controller) Cancel(ctx context.Context, sess domain.ScanSession) (domain.ScanSession, domain.ScanResult) {
	result := domain.ScanResult{Kind: domain.ResultCancelled}
	if sess.Pending != nil {
		storeID := sess.Pending.StoreID
		result.BoxCode = sess.Pending.BoxCode
		result.StoreID = &storeID
		result.LineItems = sess.Pending.Lines
	}
	return sess.ClearScanState(), result
}

// failureResult turns a scan error into one of the typed result kinds.
// Callers never see an opaque error for a scan.
func failureResult(code string, err error) domain.ScanResult {
	result := domain.ScanResult{BoxCode: code, Reason: err.Error()}

	var appErr *errors.AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		result.Reason = appErr.Message
	}

	switch {
	case errors.Is(err, domain.ErrInvalidBoxCode):
		result.Kind = domain.ResultValidationFailed
	case errors.Is(err, domain.ErrBoxNotFound):
		result.Kind = domain.ResultNotFound
	case errors.Is(err, domain.ErrMissingContext):
		result.Kind = domain.ResultMissingContext
	case errors.Is(err, domain.ErrEmptyBox):
		result.Kind = domain.ResultEmptyBox
	default:
		result.Kind = domain.ResultLookupFailed
	}
	return result
}
