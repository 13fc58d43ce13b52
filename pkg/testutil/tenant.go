package testutil

import (
	"context"
	"fmt"

	"github.com/boxscan/scan-service/pkg/tenant"
	"github.com/google/uuid"
)

// TestTenantID is the tenant of TestTenantContext
const TestTenantID = "test-tenant-id"

// TestTenantContext creates a context with a fake tenant for unit tests
// that don't need actual database isolation.
func TestTenantContext() context.Context {
	return tenant.WithTenantContext(
		context.Background(),
		TestTenantID,
		"test-tenant",
		"tenant_test",
	)
}

// WithTestTenantValues creates a context with custom tenant values.
// Useful for testing error cases or edge conditions.
func WithTestTenantValues(ctx context.Context, id, slug, schema string) context.Context {
	return tenant.WithTenantContext(ctx, id, slug, schema)
}

// NewTenantContext creates a context for a fresh random tenant, so each
// integration test sees only its own rows.
func NewTenantContext(name string) (context.Context, string) {
	id := uuid.New().String()
	return tenant.WithTenantContext(context.Background(), id, name, fmt.Sprintf("tenant_%s", name)), id
}
