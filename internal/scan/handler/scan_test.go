package handler_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/boxscan/scan-service/internal/scan/domain"
	"github.com/boxscan/scan-service/internal/scan/handler"
	"github.com/boxscan/scan-service/internal/scan/repository"
	"github.com/boxscan/scan-service/pkg/httputil"
	"github.com/boxscan/scan-service/pkg/logger"
	"github.com/boxscan/scan-service/pkg/testutil"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sessID = "0b8f5a3e-6f7c-4c1e-9d55-2d7b9e6a1f00"

type fakeService struct {
	sessions map[string]*domain.ScanSession
	scans    []string
	result   domain.ScanResult
	err      error
}

func newFakeService() *fakeService {
	return &fakeService{sessions: map[string]*domain.ScanSession{}}
}

func (f *fakeService) CreateSession(ctx context.Context, sel domain.StoreSelection) (*domain.ScanSession, error) {
	sess := &domain.ScanSession{ID: sessID, Selection: sel}
	f.sessions[sessID] = sess
	return sess, nil
}

func (f *fakeService) GetSession(ctx context.Context, id string) (*domain.ScanSession, error) {
	sess, ok := f.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return sess, nil
}

func (f *fakeService) UpdateSelection(ctx context.Context, id string, sel domain.StoreSelection) (*domain.ScanSession, error) {
	sess, err := f.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	sess.Selection = sel
	return sess, nil
}

func (f *fakeService) Scan(ctx context.Context, id, rawCode string) (*domain.ScanResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.scans = append(f.scans, rawCode)
	return &f.result, nil
}

func (f *fakeService) Confirm(ctx context.Context, id string) (*domain.ScanResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &f.result, nil
}

func (f *fakeService) Cancel(ctx context.Context, id string) (*domain.ScanResult, error) {
	return &domain.ScanResult{Kind: domain.ResultCancelled}, nil
}

func (f *fakeService) DeleteSession(ctx context.Context, id string) error {
	if _, ok := f.sessions[id]; !ok {
		return domain.ErrSessionNotFound
	}
	delete(f.sessions, id)
	return nil
}

func (f *fakeService) ListStores(ctx context.Context) ([]domain.Store, error) {
	if f.err != nil {
		return nil, domain.LookupError("active stores", f.err)
	}
	return []domain.Store{{ID: 5, Name: "Central", Status: "active"}}, nil
}

type fakeHistory struct {
	gotLimit int
}

func (f *fakeHistory) ListBySession(ctx context.Context, sessionID string, limit int) ([]repository.AuditEntry, error) {
	f.gotLimit = limit
	return []repository.AuditEntry{{ID: 1, SessionID: sessionID, Kind: "cancelled"}}, nil
}

func newRouter(svc handler.ScanService, history handler.AuditHistory) http.Handler {
	h := handler.NewScanHandler(svc, history, logger.Nop())
	r := chi.NewRouter()
	r.Use(httputil.TenantMiddleware)
	r.Route("/api/v1/scan", h.Routes)
	return r
}

type envelope struct {
	Success bool `json:"success"`
	Data    struct {
		ID        string                `json:"id"`
		Selection domain.StoreSelection `json:"selection"`
		Kind      domain.ResultKind     `json:"kind"`
	} `json:"data"`
	Error *httputil.ErrorBody `json:"error"`
}

func TestSessionLifecycle(t *testing.T) {
	svc := newFakeService()
	router := newRouter(svc, nil)

	req := testutil.NewHTTPRequest(http.MethodPost, "/api/v1/scan/sessions", map[string]interface{}{"store_id": 7, "transfer_mode": true})
	testutil.WithTenantHeaders(req, testutil.TestTenantID, "north-depot", "tenant_north_depot")
	rr := testutil.ExecuteRequest(router, req)
	testutil.AssertStatus(t, rr, http.StatusCreated)

	var created envelope
	testutil.ParseJSONBody(t, rr, &created)
	assert.Equal(t, sessID, created.Data.ID)
	require.NotNil(t, created.Data.Selection.SelectedStoreID)
	assert.Equal(t, int64(7), *created.Data.Selection.SelectedStoreID)
	assert.True(t, created.Data.Selection.TransferMode)

	req = testutil.NewHTTPRequest(http.MethodPut, "/api/v1/scan/sessions/"+sessID+"/selection", map[string]interface{}{"store_id": 5})
	testutil.WithTenantHeaders(req, testutil.TestTenantID, "north-depot", "tenant_north_depot")
	rr = testutil.ExecuteRequest(router, req)
	testutil.AssertStatus(t, rr, http.StatusOK)
	assert.Equal(t, int64(5), *svc.sessions[sessID].Selection.SelectedStoreID)
	assert.False(t, svc.sessions[sessID].Selection.TransferMode)

	req = testutil.NewHTTPRequest(http.MethodGet, "/api/v1/scan/sessions/"+sessID, nil)
	testutil.WithTenantHeaders(req, testutil.TestTenantID, "north-depot", "tenant_north_depot")
	testutil.AssertStatus(t, testutil.ExecuteRequest(router, req), http.StatusOK)

	req = testutil.NewHTTPRequest(http.MethodDelete, "/api/v1/scan/sessions/"+sessID, nil)
	testutil.WithTenantHeaders(req, testutil.TestTenantID, "north-depot", "tenant_north_depot")
	testutil.AssertStatus(t, testutil.ExecuteRequest(router, req), http.StatusNoContent)

	req = testutil.NewHTTPRequest(http.MethodGet, "/api/v1/scan/sessions/"+sessID, nil)
	testutil.WithTenantHeaders(req, testutil.TestTenantID, "north-depot", "tenant_north_depot")
	rr = testutil.ExecuteRequest(router, req)
	testutil.AssertStatus(t, rr, http.StatusNotFound)
	testutil.AssertBodyContains(t, rr, "SESSION_NOT_FOUND")
}

func TestCreateSession_EmptyBody(t *testing.T) {
	svc := newFakeService()
	router := newRouter(svc, nil)

	req := testutil.NewHTTPRequest(http.MethodPost, "/api/v1/scan/sessions", nil)
	testutil.WithTenantHeaders(req, testutil.TestTenantID, "north-depot", "tenant_north_depot")
	rr := testutil.ExecuteRequest(router, req)
	testutil.AssertStatus(t, rr, http.StatusCreated)
	assert.False(t, svc.sessions[sessID].Selection.HasStore())
}

func TestCreateSession_RejectsNonPositiveStore(t *testing.T) {
	router := newRouter(newFakeService(), nil)

	req := testutil.NewHTTPRequest(http.MethodPost, "/api/v1/scan/sessions", map[string]interface{}{"store_id": 0})
	testutil.WithTenantHeaders(req, testutil.TestTenantID, "north-depot", "tenant_north_depot")
	rr := testutil.ExecuteRequest(router, req)
	testutil.AssertStatus(t, rr, http.StatusBadRequest)

	var body envelope
	testutil.ParseJSONBody(t, rr, &body)
	require.NotNil(t, body.Error)
	assert.Equal(t, "VALIDATION_ERROR", body.Error.Code)
	assert.Contains(t, body.Error.Details, "StoreID")
}

func TestScan(t *testing.T) {
	svc := newFakeService()
	svc.result = domain.ScanResult{Kind: domain.ResultValidationFailed, Reason: "bad code"}
	router := newRouter(svc, nil)

	req := testutil.NewHTTPRequest(http.MethodPost, "/api/v1/scan/sessions/"+sessID+"/scans", map[string]string{"code": "junk"})
	testutil.WithTenantHeaders(req, testutil.TestTenantID, "north-depot", "tenant_north_depot")
	rr := testutil.ExecuteRequest(router, req)

	// a failed scan is still a successful request
	testutil.AssertStatus(t, rr, http.StatusOK)
	var body envelope
	testutil.ParseJSONBody(t, rr, &body)
	assert.Equal(t, domain.ResultValidationFailed, body.Data.Kind)
	assert.Equal(t, []string{"junk"}, svc.scans)
}

func TestScan_RequestErrors(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		body   interface{}
		err    error
		status int
	}{
		{"missing code", "/api/v1/scan/sessions/" + sessID + "/scans", map[string]string{}, nil, http.StatusBadRequest},
		{"malformed session id", "/api/v1/scan/sessions/not-a-uuid/scans", map[string]string{"code": "BOX-2024-0001"}, nil, http.StatusNotFound},
		{"busy session", "/api/v1/scan/sessions/" + sessID + "/scans", map[string]string{"code": "BOX-2024-0001"}, domain.ErrSessionBusy, http.StatusConflict},
		{"unexpected error", "/api/v1/scan/sessions/" + sessID + "/scans", map[string]string{"code": "BOX-2024-0001"}, fmt.Errorf("db gone"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newFakeService()
			svc.err = tt.err
			router := newRouter(svc, nil)

			req := testutil.NewHTTPRequest(http.MethodPost, tt.path, tt.body)
			testutil.WithTenantHeaders(req, testutil.TestTenantID, "north-depot", "tenant_north_depot")
			testutil.AssertStatus(t, testutil.ExecuteRequest(router, req), tt.status)
			assert.Empty(t, svc.scans)
		})
	}
}

func TestConfirmAndCancel(t *testing.T) {
	svc := newFakeService()
	svc.result = domain.ScanResult{Kind: domain.ResultStockOutCompleted}
	router := newRouter(svc, nil)

	req := testutil.NewHTTPRequest(http.MethodPost, "/api/v1/scan/sessions/"+sessID+"/confirm", nil)
	testutil.WithTenantHeaders(req, testutil.TestTenantID, "north-depot", "tenant_north_depot")
	rr := testutil.ExecuteRequest(router, req)
	testutil.AssertStatus(t, rr, http.StatusOK)
	testutil.AssertBodyContains(t, rr, string(domain.ResultStockOutCompleted))

	req = testutil.NewHTTPRequest(http.MethodPost, "/api/v1/scan/sessions/"+sessID+"/cancel", nil)
	testutil.WithTenantHeaders(req, testutil.TestTenantID, "north-depot", "tenant_north_depot")
	rr = testutil.ExecuteRequest(router, req)
	testutil.AssertStatus(t, rr, http.StatusOK)
	testutil.AssertBodyContains(t, rr, string(domain.ResultCancelled))

	svc.err = domain.ErrNothingPending
	req = testutil.NewHTTPRequest(http.MethodPost, "/api/v1/scan/sessions/"+sessID+"/confirm", nil)
	testutil.WithTenantHeaders(req, testutil.TestTenantID, "north-depot", "tenant_north_depot")
	rr = testutil.ExecuteRequest(router, req)
	testutil.AssertStatus(t, rr, http.StatusConflict)
	testutil.AssertBodyContains(t, rr, "NOTHING_PENDING")
}

func TestListStores(t *testing.T) {
	svc := newFakeService()
	router := newRouter(svc, nil)

	req := testutil.NewHTTPRequest(http.MethodGet, "/api/v1/scan/stores", nil)
	testutil.WithTenantHeaders(req, testutil.TestTenantID, "north-depot", "tenant_north_depot")
	rr := testutil.ExecuteRequest(router, req)
	testutil.AssertStatus(t, rr, http.StatusOK)
	testutil.AssertBodyContains(t, rr, "Central")

	svc.err = fmt.Errorf("connection refused")
	req = testutil.NewHTTPRequest(http.MethodGet, "/api/v1/scan/stores", nil)
	testutil.WithTenantHeaders(req, testutil.TestTenantID, "north-depot", "tenant_north_depot")
	testutil.AssertStatus(t, testutil.ExecuteRequest(router, req), http.StatusBadGateway)
}

func TestHistory(t *testing.T) {
	history := &fakeHistory{}
	router := newRouter(newFakeService(), history)

	req := testutil.NewHTTPRequest(http.MethodGet, "/api/v1/scan/sessions/"+sessID+"/history?limit=20", nil)
	testutil.WithTenantHeaders(req, testutil.TestTenantID, "north-depot", "tenant_north_depot")
	rr := testutil.ExecuteRequest(router, req)
	testutil.AssertStatus(t, rr, http.StatusOK)
	testutil.AssertBodyContains(t, rr, `"total":1`)
	assert.Equal(t, 20, history.gotLimit)

	req = testutil.NewHTTPRequest(http.MethodGet, "/api/v1/scan/sessions/"+sessID+"/history?limit=abc", nil)
	testutil.WithTenantHeaders(req, testutil.TestTenantID, "north-depot", "tenant_north_depot")
	testutil.AssertStatus(t, testutil.ExecuteRequest(router, req), http.StatusBadRequest)

	noHistory := newRouter(newFakeService(), nil)
	req = testutil.NewHTTPRequest(http.MethodGet, "/api/v1/scan/sessions/"+sessID+"/history", nil)
	testutil.WithTenantHeaders(req, testutil.TestTenantID, "north-depot", "tenant_north_depot")
	testutil.AssertStatus(t, testutil.ExecuteRequest(noHistory, req), http.StatusNotFound)
}

func TestMissingTenant(t *testing.T) {
	router := newRouter(newFakeService(), nil)

	rr := testutil.ExecuteRequest(router, testutil.NewHTTPRequest(http.MethodGet, "/api/v1/scan/stores", nil))
	testutil.AssertStatus(t, rr, http.StatusForbidden)
}
