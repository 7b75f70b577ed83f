package service

import (
	"context"
	"errors"
	"testing"

	"github.com/waranyu/saas-admin-platform/internal/authz"
	"github.com/waranyu/saas-admin-platform/internal/dto"
	"github.com/waranyu/saas-admin-platform/internal/repository"
)

func tenantCtx(tenantID string) context.Context {
	return authz.WithTenant(context.Background(), tenantID)
}

func TestUserService_Create(t *testing.T) {
	t.Run("creates user in caller's tenant", func(t *testing.T) {
		repo := newFakeUserRepo()
		svc := NewUserService(repo, newCapturingPublisher())

		resp, err := svc.Create(tenantCtx("tenant-a"), &dto.CreateUserRequest{
			Email:    "alice@example.com",
			Password: "secret-password",
			Name:     "Alice",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.TenantID != "tenant-a" {
			t.Errorf("expected tenant stamped from context, got %q", resp.TenantID)
		}
		if resp.Role != string(authz.RoleUser) {
			t.Errorf("expected default role user, got %s", resp.Role)
		}
	})

	t.Run("rejects duplicate email within tenant", func(t *testing.T) {
		repo := newFakeUserRepo()
		svc := NewUserService(repo, newCapturingPublisher())

		req := &dto.CreateUserRequest{Email: "alice@example.com", Password: "secret-password"}
		if _, err := svc.Create(tenantCtx("tenant-a"), req); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		_, err := svc.Create(tenantCtx("tenant-a"), req)
		if !errors.Is(err, ErrEmailExists) {
			t.Errorf("expected ErrEmailExists, got %v", err)
		}
	})

	t.Run("same email allowed in different tenants", func(t *testing.T) {
		repo := newFakeUserRepo()
		svc := NewUserService(repo, newCapturingPublisher())

		req := &dto.CreateUserRequest{Email: "alice@example.com", Password: "secret-password"}
		if _, err := svc.Create(tenantCtx("tenant-a"), req); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := svc.Create(tenantCtx("tenant-b"), req); err != nil {
			t.Errorf("expected creation in second tenant to succeed, got %v", err)
		}
	})

	t.Run("fails without tenant context", func(t *testing.T) {
		svc := NewUserService(newFakeUserRepo(), newCapturingPublisher())
		_, err := svc.Create(context.Background(), &dto.CreateUserRequest{
			Email:    "alice@example.com",
			Password: "secret-password",
		})
		if !errors.Is(err, repository.ErrTenantScopeMissing) {
			t.Errorf("expected ErrTenantScopeMissing, got %v", err)
		}
	})
}

func TestUserService_TenantIsolation(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewUserService(repo, newCapturingPublisher())

	created, err := svc.Create(tenantCtx("tenant-a"), &dto.CreateUserRequest{
		Email:    "alice@example.com",
		Password: "secret-password",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Run("cross-tenant read reports not found", func(t *testing.T) {
		_, err := svc.GetByID(tenantCtx("tenant-b"), created.ID)
		if !errors.Is(err, ErrUserNotFound) {
			t.Errorf("expected ErrUserNotFound for cross-tenant read, got %v", err)
		}
	})

	t.Run("cross-tenant update reports not found", func(t *testing.T) {
		name := "Mallory"
		_, err := svc.Update(tenantCtx("tenant-b"), created.ID, &dto.UpdateUserRequest{Name: &name})
		if !errors.Is(err, ErrUserNotFound) {
			t.Errorf("expected ErrUserNotFound for cross-tenant update, got %v", err)
		}
	})

	t.Run("cross-tenant delete reports not found", func(t *testing.T) {
		err := svc.Delete(tenantCtx("tenant-b"), created.ID)
		if !errors.Is(err, ErrUserNotFound) {
			t.Errorf("expected ErrUserNotFound for cross-tenant delete, got %v", err)
		}
	})

	t.Run("cross-tenant list excludes other tenants", func(t *testing.T) {
		resp, err := svc.List(tenantCtx("tenant-b"), &dto.ListUsersQuery{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.TotalCount != 0 {
			t.Errorf("expected 0 users visible to tenant-b, got %d", resp.TotalCount)
		}
	})
}

func TestUserService_Update(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewUserService(repo, newCapturingPublisher())

	created, err := svc.Create(tenantCtx("tenant-a"), &dto.CreateUserRequest{
		Email:    "alice@example.com",
		Password: "secret-password",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Run("updates provided fields", func(t *testing.T) {
		name := "Alice Updated"
		resp, err := svc.Update(tenantCtx("tenant-a"), created.ID, &dto.UpdateUserRequest{Name: &name})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.Name != "Alice Updated" {
			t.Errorf("expected updated name, got %s", resp.Name)
		}
	})

	t.Run("rejects empty update", func(t *testing.T) {
		_, err := svc.Update(tenantCtx("tenant-a"), created.ID, &dto.UpdateUserRequest{})
		if err == nil {
			t.Error("expected error for empty update")
		}
	})

	t.Run("non-admin cannot grant admin role", func(t *testing.T) {
		ctx := authz.WithPrincipal(tenantCtx("tenant-a"), authz.Principal{
			ID:       "caller-1",
			Role:     authz.RoleUser,
			TenantID: "tenant-a",
		})
		adminRole := string(authz.RoleAdmin)
		_, err := svc.Update(ctx, created.ID, &dto.UpdateUserRequest{Role: &adminRole})
		if !errors.Is(err, ErrRoleEscalation) {
			t.Errorf("expected ErrRoleEscalation, got %v", err)
		}
	})
}

func TestUserService_Delete(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewUserService(repo, newCapturingPublisher())

	created, err := svc.Create(tenantCtx("tenant-a"), &dto.CreateUserRequest{
		Email:    "alice@example.com",
		Password: "secret-password",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Run("cannot delete own account", func(t *testing.T) {
		ctx := authz.WithPrincipal(tenantCtx("tenant-a"), authz.Principal{
			ID:       created.ID,
			Role:     authz.RoleAdmin,
			TenantID: "tenant-a",
		})
		if err := svc.Delete(ctx, created.ID); !errors.Is(err, ErrSelfDeletion) {
			t.Errorf("expected ErrSelfDeletion, got %v", err)
		}
	})

	t.Run("deletes other user", func(t *testing.T) {
		ctx := authz.WithPrincipal(tenantCtx("tenant-a"), authz.Principal{
			ID:       "someone-else",
			Role:     authz.RoleAdmin,
			TenantID: "tenant-a",
		})
		if err := svc.Delete(ctx, created.ID); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		_, err := svc.GetByID(tenantCtx("tenant-a"), created.ID)
		if !errors.Is(err, ErrUserNotFound) {
			t.Errorf("expected ErrUserNotFound after delete, got %v", err)
		}
	})
}
