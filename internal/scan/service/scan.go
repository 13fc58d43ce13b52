package service

import (
	"context"
	"time"

	"github.com/boxscan/scan-service/internal/scan/domain"
	"github.com/boxscan/scan-service/pkg/logger"
	"github.com/google/uuid"
)

// ScanService owns scan sessions and drives the controller for them
type ScanService struct {
	sessions   SessionStore
	controller *Controller
	stores     StoreDirectory
	guard      *SessionGuard
	audit      AuditRecorder
	publisher  EventPublisher
	logger     *logger.Logger
	now        func() time.Time
}

// NewScanService creates a new scan service. audit and publisher may be nil.
func NewScanService(
	sessions SessionStore,
	controller *Controller,
	stores StoreDirectory,
	audit AuditRecorder,
	publisher EventPublisher,
	log *logger.Logger,
) *ScanService {
	return &ScanService{
		sessions:   sessions,
		controller: controller,
		stores:     stores,
		guard:      NewSessionGuard(),
		audit:      audit,
		publisher:  publisher,
		logger:     log,
		now:        time.Now,
	}
}

// CreateSession opens a new session for a scanning device
func (s *ScanService) CreateSession(ctx context.Context, sel domain.StoreSelection) (*domain.ScanSession, error) {
	now := s.now().UTC()
	sess := &domain.ScanSession{
		ID:        uuid.New().String(),
		Selection: sel,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, err
	}

	s.logger.WithSessionID(sess.ID).Info().Msg("scan session opened")
	return sess, nil
}

// GetSession returns a session by ID
func (s *ScanService) GetSession(ctx context.Context, id string) (*domain.ScanSession, error) {
	return s.sessions.Get(ctx, id)
}

// UpdateSelection replaces the operator's store selection. A stock-out
// awaiting confirmation targets the old store and is discarded.
func (s *ScanService) UpdateSelection(ctx context.Context, id string, sel domain.StoreSelection) (*domain.ScanSession, error) {
	release, err := s.guard.Acquire(id)
	if err != nil {
		return nil, err
	}
	defer release()

	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	sess.Selection = sel
	sess.Pending = nil
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Scan handles one scanned code for the session
func (s *ScanService) Scan(ctx context.Context, id, rawCode string) (*domain.ScanResult, error) {
	release, err := s.guard.Acquire(id)
	if err != nil {
		return nil, err
	}
	defer release()

	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updated, result := s.controller.HandleScan(ctx, *sess, rawCode)

	// a successful check-in already changed the box; it is reported either way
	if result.Kind == domain.ResultAutoCheckInSucceeded {
		bg := context.WithoutCancel(ctx)
		if err := s.save(bg, &updated); err != nil {
			s.logger.WithSessionID(id).Error().Err(err).Str("box_code", result.BoxCode).Msg("failed to save session after check-in")
		}
		s.report(bg, id, result)
		return &result, nil
	}

	if err := s.save(ctx, &updated); err != nil {
		return nil, err
	}

	s.report(ctx, id, result)
	return &result, nil
}

// Confirm runs the session's pending stock-out. The pending stock-out is
// claimed in the store before execution, so a repeated confirm cannot run
// the same batch twice.
func (s *ScanService) Confirm(ctx context.Context, id string) (*domain.ScanResult, error) {
	release, err := s.guard.Acquire(id)
	if err != nil {
		return nil, err
	}
	defer release()

	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	pending, err := s.sessions.ClaimPending(ctx, id)
	if err != nil {
		return nil, err
	}
	if pending == nil {
		return nil, domain.ErrNothingPending
	}
	sess.Pending = pending

	updated, result, err := s.controller.Confirm(ctx, *sess)
	if err != nil {
		return nil, err
	}

	// the batch has run; stock has moved whether or not the session saves
	bg := context.WithoutCancel(ctx)
	if err := s.save(bg, &updated); err != nil {
		s.logger.WithSessionID(id).Error().Err(err).Msg("failed to save session after stock-out")
	}

	s.report(bg, id, result)
	return &result, nil
}

// Cancel declines the pending stock-out, if any
func (s *ScanService) Cancel(ctx context.Context, id string) (*domain.ScanResult, error) {
	release, err := s.guard.Acquire(id)
	if err != nil {
		return nil, err
	}
	defer release()

	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	pending, err := s.sessions.ClaimPending(ctx, id)
	if err != nil {
		return nil, err
	}
	sess.Pending = pending

	updated, result := s.controller.Cancel(ctx, *sess)
	if err := s.save(ctx, &updated); err != nil {
		return nil, err
	}

	s.report(ctx, id, result)
	return &result, nil
}

// DeleteSession closes a session
func (s *ScanService) DeleteSession(ctx context.Context, id string) error {
	release, err := s.guard.Acquire(id)
	if err != nil {
		return err
	}
	defer release()

	if err := s.sessions.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.WithSessionID(id).Info().Msg("scan session closed")
	return nil
}

// ListStores returns the stores an operator can select
func (s *ScanService) ListStores(ctx context.Context) ([]domain.Store, error) {
	stores, err := s.stores.ListActiveStores(ctx)
	if err != nil {
		return nil, domain.LookupError("active stores", err)
	}
	return stores, nil
}

func (s *ScanService) save(ctx context.Context, sess *domain.ScanSession) error {
	sess.UpdatedAt = s.now().UTC()
	return s.sessions.Update(ctx, sess)
}

// report audits and announces a result. Neither may fail the scan.
func (s *ScanService) report(ctx context.Context, sessionID string, result domain.ScanResult) {
	if result.Kind == domain.ResultStockOutConfirmationRequired {
		return
	}

	if s.audit != nil {
		if err := s.audit.Record(ctx, sessionID, result); err != nil {
			s.logger.WithSessionID(sessionID).Warn().Err(err).Str("result", string(result.Kind)).Msg("failed to record scan audit entry")
		}
	}
	if s.publisher != nil {
		s.publisher.PublishScanResult(ctx, sessionID, result)
	}
}
