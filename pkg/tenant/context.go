package tenant

import (
	"context"
	"errors"
	"net/http"
)

// contextKey is a private type for context keys to prevent collisions
type contextKey string

const (
	tenantIDKey     contextKey = "tenant_id"
	tenantSlugKey   contextKey = "tenant_slug"
	tenantSchemaKey contextKey = "tenant_schema"
)

// Header names set by the platform gateway and forwarded to backend calls
const (
	HeaderTenantID     = "X-Tenant-ID"
	HeaderTenantSlug   = "X-Tenant-Slug"
	HeaderTenantSchema = "X-Tenant-Schema"
)

var (
	// ErrNoTenantInContext is returned when tenant context is missing
	ErrNoTenantInContext = errors.New("no tenant in context")
)

// WithTenantContext adds all tenant information to the context
func WithTenantContext(ctx context.Context, id, slug, schema string) context.Context {
	ctx = context.WithValue(ctx, tenantIDKey, id)
	ctx = context.WithValue(ctx, tenantSlugKey, slug)
	ctx = context.WithValue(ctx, tenantSchemaKey, schema)
	return ctx
}

// TenantID extracts tenant ID from context
// Returns ErrNoTenantInContext if tenant ID is not found
func TenantID(ctx context.Context) (string, error) {
	id, ok := ctx.Value(tenantIDKey).(string)
	if !ok || id == "" {
		return "", ErrNoTenantInContext
	}
	return id, nil
}

// TenantSlug extracts tenant slug from context
func TenantSlug(ctx context.Context) (string, error) {
	slug, ok := ctx.Value(tenantSlugKey).(string)
	if !ok || slug == "" {
		return "", ErrNoTenantInContext
	}
	return slug, nil
}

// TenantSchema extracts tenant schema name from context
func TenantSchema(ctx context.Context) (string, error) {
	schema, ok := ctx.Value(tenantSchemaKey).(string)
	if !ok || schema == "" {
		return "", ErrNoTenantInContext
	}
	return schema, nil
}

// ForwardHeaders copies whatever tenant context is present onto an outgoing request.
// Backend services scope every read and write by these headers.
func ForwardHeaders(ctx context.Context, h http.Header) {
	if id, err := TenantID(ctx); err == nil {
		h.Set(HeaderTenantID, id)
	}
	if slug, err := TenantSlug(ctx); err == nil {
		h.Set(HeaderTenantSlug, slug)
	}
	if schema, err := TenantSchema(ctx); err == nil {
		h.Set(HeaderTenantSchema, schema)
	}
}
