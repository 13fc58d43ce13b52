package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/boxscan/scan-service/internal/scan/domain"
	"github.com/boxscan/scan-service/pkg/logger"
)

type checkInCall struct {
	boxID   string
	storeID int64
}

type fakeDirectory struct {
	boxes       []domain.Box
	contents    map[string][]domain.BoxLineItem
	searchErr   error
	contentsErr error
	checkInErr  error

	searchCalls   int
	contentsCalls int
	checkIns      []checkInCall
}

func (d *fakeDirectory) SearchBoxes(ctx context.Context, code string) ([]domain.Box, error) {
	d.searchCalls++
	if d.searchErr != nil {
		return nil, d.searchErr
	}
	out := make([]domain.Box, len(d.boxes))
	copy(out, d.boxes)
	return out, nil
}

func (d *fakeDirectory) ListContents(ctx context.Context, boxID string) ([]domain.BoxLineItem, error) {
	d.contentsCalls++
	if d.contentsErr != nil {
		return nil, d.contentsErr
	}
	out := make([]domain.BoxLineItem, len(d.contents[boxID]))
	copy(out, d.contents[boxID])
	return out, nil
}

func (d *fakeDirectory) CheckIn(ctx context.Context, boxID string, storeID int64) error {
	d.checkIns = append(d.checkIns, checkInCall{boxID, storeID})
	return d.checkInErr
}

type stockKey struct{ item, store int64 }

type fakeLedger struct {
	available map[stockKey]int
	errs      map[int64]error
	reads     []stockKey
}

func (l *fakeLedger) ReadInventory(ctx context.Context, itemID, storeID int64) (*domain.InventorySnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.reads = append(l.reads, stockKey{itemID, storeID})
	if err := l.errs[itemID]; err != nil {
		return nil, err
	}
	avail, ok := l.available[stockKey{itemID, storeID}]
	if !ok {
		return nil, nil
	}
	return &domain.InventorySnapshot{ItemID: itemID, StoreID: storeID, OnHand: avail + 1, Available: avail}, nil
}

type appendCall struct {
	itemID, storeID int64
	quantity        int
	reference       string
}

type fakeTxLog struct {
	errs     map[int64]error
	attempts []appendCall
}

func (t *fakeTxLog) AppendStockOut(ctx context.Context, itemID, storeID int64, quantity int, reference string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.attempts = append(t.attempts, appendCall{itemID, storeID, quantity, reference})
	return t.errs[itemID]
}

type fakeStores struct {
	stores []domain.Store
	err    error
	calls  int
}

func (s *fakeStores) ListActiveStores(ctx context.Context) ([]domain.Store, error) {
	s.calls++
	return s.stores, s.err
}

type harness struct {
	dir    *fakeDirectory
	ledger *fakeLedger
	txlog  *fakeTxLog
	stores *fakeStores
}

func newHarness() *harness {
	return &harness{
		dir:    &fakeDirectory{contents: map[string][]domain.BoxLineItem{}},
		ledger: &fakeLedger{available: map[stockKey]int{}, errs: map[int64]error{}},
		txlog:  &fakeTxLog{errs: map[int64]error{}},
		stores: &fakeStores{stores: []domain.Store{
			{ID: 5, Name: "Central", Status: domain.StoreStatusActive},
			{ID: 7, Name: "North", Status: domain.StoreStatusActive},
		}},
	}
}

func (h *harness) remoteCalls() int {
	return h.dir.searchCalls + h.dir.contentsCalls + len(h.dir.checkIns) +
		len(h.ledger.reads) + len(h.txlog.attempts) + h.stores.calls
}

func (h *harness) writes() int {
	return len(h.dir.checkIns) + len(h.txlog.attempts)
}

func (h *harness) addBox(box domain.Box, lines ...domain.BoxLineItem) {
	h.dir.boxes = append(h.dir.boxes, box)
	h.dir.contents[box.ID] = lines
}

func (h *harness) controller() *Controller {
	log := logger.Nop()
	snaps := NewSnapshotReader(h.ledger, log)
	return NewController(
		NewBoxResolver(h.dir, log),
		NewEngine(h.dir, snaps, h.stores, log),
		NewStockOutExecutor(snaps, h.txlog, log),
		log,
	)
}

func storeID(id int64) *int64 { return &id }

func selection(store int64, transfer bool) domain.StoreSelection {
	return domain.StoreSelection{SelectedStoreID: storeID(store), TransferMode: transfer}
}

func line(item int64, remaining int) domain.BoxLineItem {
	return domain.BoxLineItem{ItemID: item, RequestedQuantity: remaining, RemainingQuantity: remaining}
}

// memSessions is an in-memory SessionStore
type memSessions struct {
	mu        sync.Mutex
	sessions  map[string]domain.ScanSession
	updateErr error
}

func newMemSessions() *memSessions {
	return &memSessions{sessions: map[string]domain.ScanSession{}}
}

func (m *memSessions) Create(ctx context.Context, sess *domain.ScanSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.ID] = *sess
	return nil
}

func (m *memSessions) Get(ctx context.Context, id string) (*domain.ScanSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return &sess, nil
}

func (m *memSessions) Update(ctx context.Context, sess *domain.ScanSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	if _, ok := m.sessions[sess.ID]; !ok {
		return domain.ErrSessionNotFound
	}
	m.sessions[sess.ID] = *sess
	return nil
}

func (m *memSessions) ClaimPending(ctx context.Context, id string) (*domain.PendingStockOut, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	pending := sess.Pending
	sess.Pending = nil
	m.sessions[id] = sess
	return pending, nil
}

func (m *memSessions) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return domain.ErrSessionNotFound
	}
	delete(m.sessions, id)
	return nil
}

type recordingAudit struct {
	kinds []domain.ResultKind
	err   error
}

func (a *recordingAudit) Record(ctx context.Context, sessionID string, result domain.ScanResult) error {
	a.kinds = append(a.kinds, result.Kind)
	return a.err
}

type recordingPublisher struct {
	kinds []domain.ResultKind
}

func (p *recordingPublisher) PublishScanResult(ctx context.Context, sessionID string, result domain.ScanResult) {
	p.kinds = append(p.kinds, result.Kind)
}

var errBackend = fmt.Errorf("backend unavailable")

func nopLog() *logger.Logger { return logger.Nop() }
