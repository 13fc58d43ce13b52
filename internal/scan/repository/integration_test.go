//go:build integration

package repository_test

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"github.com/boxscan/scan-service/internal/scan/domain"
	"github.com/boxscan/scan-service/internal/scan/repository"
	"github.com/boxscan/scan-service/pkg/errors"
	"github.com/boxscan/scan-service/pkg/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var suite *testutil.IntegrationSuite

func TestMain(m *testing.M) {
	ctx := context.Background()

	var err error
	suite, err = testutil.NewIntegrationSuite(ctx)
	if err != nil {
		log.Fatalf("failed to start integration suite: %v", err)
	}

	code := m.Run()
	suite.Cleanup()
	testutil.TerminateContainer(ctx)
	os.Exit(code)
}

func newSession(store int64) *domain.ScanSession {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.ScanSession{
		ID:        uuid.New().String(),
		Selection: domain.StoreSelection{SelectedStoreID: &store},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestIntegration_SessionLifecycle(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx, _ := testutil.NewTenantContext("lifecycle")
	repo := repository.NewSessionRepository(suite.DB)

	sess := newSession(7)
	require.NoError(t, repo.Create(ctx, sess))

	sess.Pending = &domain.PendingStockOut{
		BoxID: "b-1", BoxCode: "BOX-2024-0001", StoreID: 7,
		Lines: []domain.BoxLineItem{{ItemID: 1, RequestedQuantity: 10, RemainingQuantity: 10}},
	}
	require.NoError(t, repo.Update(ctx, sess))

	got, err := repo.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.Pending, got.Pending)

	claimed, err := repo.ClaimPending(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.Pending, claimed)

	again, err := repo.ClaimPending(ctx, sess.ID)
	require.NoError(t, err)
	assert.Nil(t, again, "a pending stock-out is claimed only once")

	require.NoError(t, repo.Delete(ctx, sess.ID))
	_, err = repo.Get(ctx, sess.ID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestIntegration_TenantIsolation(t *testing.T) {
	testutil.SkipIfShort(t)
	ctxA, _ := testutil.NewTenantContext("tenant_a")
	ctxB, _ := testutil.NewTenantContext("tenant_b")
	repo := repository.NewSessionRepository(suite.DB)

	sess := newSession(5)
	require.NoError(t, repo.Create(ctxA, sess))

	_, err := repo.Get(ctxB, sess.ID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.ErrorIs(t, repo.Delete(ctxB, sess.ID), domain.ErrSessionNotFound)

	_, err = repo.Get(ctxA, sess.ID)
	assert.NoError(t, err)
}

func TestIntegration_StoreIDMustBePositive(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx, _ := testutil.NewTenantContext("constraints")
	repo := repository.NewSessionRepository(suite.DB)

	err := repo.Create(ctx, newSession(0))

	var appErr *errors.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %v", err)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
}

func TestIntegration_AuditTrail(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx, _ := testutil.NewTenantContext("audit")
	sessions := repository.NewSessionRepository(suite.DB)
	audit := repository.NewAuditRepository(suite.DB)

	sess := newSession(7)
	require.NoError(t, sessions.Create(ctx, sess))

	outcome := domain.BatchOutcome{}
	outcome.Record(domain.LineResult{ItemID: 1, MovedQuantity: 4, Outcome: domain.LineMoved})

	require.NoError(t, audit.Record(ctx, sess.ID, domain.ScanResult{Kind: domain.ResultValidationFailed, Reason: "bad code"}))
	require.NoError(t, audit.Record(ctx, sess.ID, domain.ScanResult{Kind: domain.ResultStockOutCompleted, BoxCode: "BOX-2024-0001", Outcome: &outcome}))

	entries, err := audit.ListBySession(ctx, sess.ID, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "validation_failed", entries[0].Kind)
	assert.Equal(t, 4, entries[1].MovedQuantity)
}

func TestIntegration_TenantIsolationAsTableOwner(t *testing.T) {
	testutil.SkipIfShort(t)
	ctxA, _ := testutil.NewTenantContext("owner_a")
	ctxB, _ := testutil.NewTenantContext("owner_b")
	sessions := repository.NewSessionRepository(suite.OwnerDB)
	audit := repository.NewAuditRepository(suite.OwnerDB)

	sess := newSession(3)
	sess.Pending = &domain.PendingStockOut{
		BoxID: "b-9", BoxCode: "BOX-2024-0009", StoreID: 3,
		Lines: []domain.BoxLineItem{{ItemID: 1, RequestedQuantity: 2, RemainingQuantity: 2}},
	}
	require.NoError(t, sessions.Create(ctxA, sess))
	require.NoError(t, sessions.Update(ctxA, sess))
	require.NoError(t, audit.Record(ctxA, sess.ID, domain.ScanResult{Kind: domain.ResultValidationFailed, Reason: "bad code"}))

	_, err := sessions.Get(ctxB, sess.ID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	claimed, err := sessions.ClaimPending(ctxB, sess.ID)
	require.NoError(t, err)
	assert.Nil(t, claimed)

	entries, err := audit.ListBySession(ctxB, sess.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, entries)

	assert.ErrorIs(t, sessions.Delete(ctxB, sess.ID), domain.ErrSessionNotFound)

	got, err := sessions.Get(ctxA, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.Pending, got.Pending)
}
