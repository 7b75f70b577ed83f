package repository

import (
	"context"

	"github.com/waranyu/saas-admin-platform/internal/domain"
)

// TemplateRepository defines the interface for product template operations.
// All methods are scoped to the tenant on the context.
type TemplateRepository interface {
	Create(ctx context.Context, template *domain.ProductTemplate) error
	GetByID(ctx context.Context, id string) (*domain.ProductTemplate, error)
	List(ctx context.Context, page, limit int, isArchived *bool, search string) ([]*domain.ProductTemplate, int, error)
	Update(ctx context.Context, template *domain.ProductTemplate) error
	Delete(ctx context.Context, id string) error

	// GetByIDs resolves a batch of template IDs within the current tenant.
	// IDs that do not exist, or belong to another tenant, are simply
	// absent from the result.
	GetByIDs(ctx context.Context, ids []string) ([]*domain.ProductTemplate, error)

	// ArchiveBatch marks the given templates archived within the current
	// tenant and returns how many rows were updated.
	ArchiveBatch(ctx context.Context, ids []string) (int, error)
}
