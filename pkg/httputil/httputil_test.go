package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/boxscan/scan-service/pkg/errors"
	"github.com/boxscan/scan-service/pkg/tenant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, rr *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp
}

func TestError_RendersAppError(t *testing.T) {
	rr := httptest.NewRecorder()
	Error(rr, fmt.Errorf("handler: %w", errors.Conflict("scan session is busy")))

	assert.Equal(t, http.StatusConflict, rr.Code)
	resp := decode(t, rr)
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "CONFLICT", resp.Error.Code)
}

func TestError_HidesUnknownErrors(t *testing.T) {
	rr := httptest.NewRecorder()
	Error(rr, fmt.Errorf("pq: password authentication failed"))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	resp := decode(t, rr)
	assert.Equal(t, "INTERNAL_ERROR", resp.Error.Code)
	assert.NotContains(t, rr.Body.String(), "password")
}

func TestValidate(t *testing.T) {
	type request struct {
		Code    string `validate:"required"`
		StoreID *int64 `validate:"omitempty,gt=0"`
	}

	zero := int64(0)
	err := Validate(request{StoreID: &zero})
	var appErr *errors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "this field is required", appErr.Details["Code"])
	assert.Equal(t, "must be greater than 0", appErr.Details["StoreID"])

	assert.NoError(t, Validate(request{Code: "BOX-2024-0001"}))
}

func TestTenantMiddleware(t *testing.T) {
	var gotTenant string
	h := TenantMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTenant, _ = tenant.TenantID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/scan/stores", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	req.Header.Set("X-Tenant-ID", "tenant-1")
	req.Header.Set("X-Tenant-Schema", "tenant_north_depot")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "tenant-1", gotTenant)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRequestIDAndOperator(t *testing.T) {
	var gotID, gotOperator string
	h := RequestID(Operator(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = GetRequestID(r.Context())
		gotOperator = GetOperator(r.Context())
	})))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-User-ID", "op-7")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.NotEmpty(t, gotID)
	assert.Equal(t, gotID, rr.Header().Get("X-Request-ID"))
	assert.Equal(t, "op-7", gotOperator)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-1")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "req-1", gotID)
	assert.Empty(t, gotOperator)
}
