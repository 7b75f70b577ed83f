package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/waranyu/saas-admin-platform/internal/domain"
)

// PostgresTemplateRepository implements TemplateRepository using PostgreSQL.
// All queries conjoin tenant_id from the context.
type PostgresTemplateRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresTemplateRepository creates a new PostgresTemplateRepository
func NewPostgresTemplateRepository(pool *pgxpool.Pool) *PostgresTemplateRepository {
	return &PostgresTemplateRepository{pool: pool}
}

// Create creates a new product template under the tenant on the context
func (r *PostgresTemplateRepository) Create(ctx context.Context, template *domain.ProductTemplate) error {
	tenantID, err := tenantScope(ctx)
	if err != nil {
		return err
	}
	template.TenantID = tenantID

	query := `
		INSERT INTO product_templates (id, tenant_id, name, description, attributes, is_archived, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = r.pool.Exec(ctx, query,
		template.ID,
		template.TenantID,
		template.Name,
		nullStringOrValue(template.Description),
		template.Attributes,
		template.IsArchived,
		template.CreatedAt,
		template.UpdatedAt,
	)
	return err
}

// GetByID retrieves a product template by ID within the current tenant
func (r *PostgresTemplateRepository) GetByID(ctx context.Context, id string) (*domain.ProductTemplate, error) {
	tenantID, err := tenantScope(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, tenant_id, name, COALESCE(description, '') as description,
		       COALESCE(attributes, '{}'::jsonb) as attributes, is_archived, created_at, updated_at
		FROM product_templates
		WHERE id = $1 AND tenant_id = $2
	`
	template := &domain.ProductTemplate{}
	err = r.pool.QueryRow(ctx, query, id, tenantID).Scan(
		&template.ID,
		&template.TenantID,
		&template.Name,
		&template.Description,
		&template.Attributes,
		&template.IsArchived,
		&template.CreatedAt,
		&template.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return template, nil
}

// GetByIDs retrieves a batch of templates by ID within the current tenant
func (r *PostgresTemplateRepository) GetByIDs(ctx context.Context, ids []string) ([]*domain.ProductTemplate, error) {
	tenantID, err := tenantScope(ctx)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*domain.ProductTemplate{}, nil
	}

	query := `
		SELECT id, tenant_id, name, COALESCE(description, '') as description,
		       COALESCE(attributes, '{}'::jsonb) as attributes, is_archived, created_at, updated_at
		FROM product_templates
		WHERE id = ANY($1) AND tenant_id = $2
	`
	rows, err := r.pool.Query(ctx, query, ids, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	templates := make([]*domain.ProductTemplate, 0, len(ids))
	for rows.Next() {
		template := &domain.ProductTemplate{}
		err := rows.Scan(
			&template.ID,
			&template.TenantID,
			&template.Name,
			&template.Description,
			&template.Attributes,
			&template.IsArchived,
			&template.CreatedAt,
			&template.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		templates = append(templates, template)
	}

	return templates, nil
}

// List retrieves templates within the current tenant with pagination and filters
func (r *PostgresTemplateRepository) List(ctx context.Context, page, limit int, isArchived *bool, search string) ([]*domain.ProductTemplate, int, error) {
	tenantID, err := tenantScope(ctx)
	if err != nil {
		return nil, 0, err
	}

	// Build WHERE clause
	whereClause := "WHERE tenant_id = $1"
	args := []interface{}{tenantID}
	argIndex := 2

	if isArchived != nil {
		whereClause += fmt.Sprintf(" AND is_archived = $%d", argIndex)
		args = append(args, *isArchived)
		argIndex++
	}

	if search != "" {
		whereClause += fmt.Sprintf(" AND name ILIKE $%d", argIndex)
		args = append(args, "%"+search+"%")
		argIndex++
	}

	// Count total records
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM product_templates %s", whereClause)
	var totalCount int
	err = r.pool.QueryRow(ctx, countQuery, args...).Scan(&totalCount)
	if err != nil {
		return nil, 0, err
	}

	// Get paginated records
	offset := (page - 1) * limit
	query := fmt.Sprintf(`
		SELECT id, tenant_id, name, COALESCE(description, '') as description,
		       COALESCE(attributes, '{}'::jsonb) as attributes, is_archived, created_at, updated_at
		FROM product_templates
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, whereClause, argIndex, argIndex+1)

	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	templates := make([]*domain.ProductTemplate, 0)
	for rows.Next() {
		template := &domain.ProductTemplate{}
		err := rows.Scan(
			&template.ID,
			&template.TenantID,
			&template.Name,
			&template.Description,
			&template.Attributes,
			&template.IsArchived,
			&template.CreatedAt,
			&template.UpdatedAt,
		)
		if err != nil {
			return nil, 0, err
		}
		templates = append(templates, template)
	}

	return templates, totalCount, nil
}

// Update updates a product template within the current tenant
func (r *PostgresTemplateRepository) Update(ctx context.Context, template *domain.ProductTemplate) error {
	tenantID, err := tenantScope(ctx)
	if err != nil {
		return err
	}

	query := `
		UPDATE product_templates
		SET name = $3, description = $4, attributes = $5, updated_at = $6
		WHERE id = $1 AND tenant_id = $2
	`
	template.UpdatedAt = time.Now()
	result, err := r.pool.Exec(ctx, query,
		template.ID,
		tenantID,
		template.Name,
		nullStringOrValue(template.Description),
		template.Attributes,
		template.UpdatedAt,
	)
	if err != nil {
		return err
	}

	rowsAffected := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("template not found")
	}

	return nil
}

// Delete removes a product template within the current tenant
func (r *PostgresTemplateRepository) Delete(ctx context.Context, id string) error {
	tenantID, err := tenantScope(ctx)
	if err != nil {
		return err
	}

	query := `DELETE FROM product_templates WHERE id = $1 AND tenant_id = $2`
	result, err := r.pool.Exec(ctx, query, id, tenantID)
	if err != nil {
		return err
	}

	rowsAffected := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("template not found")
	}

	return nil
}

// ArchiveBatch marks the given templates archived within the current tenant.
// Rows belonging to other tenants are untouched and uncounted.
func (r *PostgresTemplateRepository) ArchiveBatch(ctx context.Context, ids []string) (int, error) {
	tenantID, err := tenantScope(ctx)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	query := `
		UPDATE product_templates
		SET is_archived = TRUE, updated_at = $3
		WHERE id = ANY($1) AND tenant_id = $2 AND is_archived = FALSE
	`
	result, err := r.pool.Exec(ctx, query, ids, tenantID, time.Now())
	if err != nil {
		return 0, err
	}

	return int(result.RowsAffected()), nil
}
