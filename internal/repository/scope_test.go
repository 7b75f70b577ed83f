package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/waranyu/saas-admin-platform/internal/authz"
)

func TestTenantScope(t *testing.T) {
	t.Run("returns tenant from context", func(t *testing.T) {
		ctx := authz.WithTenant(context.Background(), "tenant-123")
		tenantID, err := tenantScope(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if tenantID != "tenant-123" {
			t.Errorf("expected tenant-123, got %s", tenantID)
		}
	})

	t.Run("errors when tenant missing", func(t *testing.T) {
		_, err := tenantScope(context.Background())
		if !errors.Is(err, ErrTenantScopeMissing) {
			t.Errorf("expected ErrTenantScopeMissing, got %v", err)
		}
	})

	t.Run("errors when tenant empty", func(t *testing.T) {
		ctx := authz.WithTenant(context.Background(), "")
		_, err := tenantScope(ctx)
		if !errors.Is(err, ErrTenantScopeMissing) {
			t.Errorf("expected ErrTenantScopeMissing, got %v", err)
		}
	})
}
