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

// PostgresUserRepository implements UserRepository using PostgreSQL.
// Every query except GetByEmailAnyTenant conjoins tenant_id from the
// context, so rows from other tenants are indistinguishable from
// missing rows.
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresUserRepository creates a new PostgresUserRepository
func NewPostgresUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// Create creates a new user under the tenant on the context. The tenant
// ID on the record is always replaced with the context's tenant, so a
// caller cannot create users into another tenant.
func (r *PostgresUserRepository) Create(ctx context.Context, user *domain.User) error {
	tenantID, err := tenantScope(ctx)
	if err != nil {
		return err
	}
	user.TenantID = tenantID

	query := `
		INSERT INTO users (id, tenant_id, email, password_hash, name, role, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = r.pool.Exec(ctx, query,
		user.ID,
		user.TenantID,
		user.Email,
		user.PasswordHash,
		nullStringOrValue(user.Name),
		user.Role,
		user.IsActive,
		user.CreatedAt,
		user.UpdatedAt,
	)
	return err
}

// GetByID retrieves a user by ID within the current tenant
func (r *PostgresUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	tenantID, err := tenantScope(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, tenant_id, email, password_hash, COALESCE(name, '') as name, role, is_active, created_at, updated_at
		FROM users
		WHERE id = $1 AND tenant_id = $2
	`
	user := &domain.User{}
	err = r.pool.QueryRow(ctx, query, id, tenantID).Scan(
		&user.ID,
		&user.TenantID,
		&user.Email,
		&user.PasswordHash,
		&user.Name,
		&user.Role,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// GetByEmail retrieves a user by email within the current tenant
func (r *PostgresUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	tenantID, err := tenantScope(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, tenant_id, email, password_hash, COALESCE(name, '') as name, role, is_active, created_at, updated_at
		FROM users
		WHERE email = $1 AND tenant_id = $2
	`
	user := &domain.User{}
	err = r.pool.QueryRow(ctx, query, email, tenantID).Scan(
		&user.ID,
		&user.TenantID,
		&user.Email,
		&user.PasswordHash,
		&user.Name,
		&user.Role,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// GetByEmailAnyTenant retrieves a user by email across all tenants.
// Used only by credential verification, before a tenant is resolved.
func (r *PostgresUserRepository) GetByEmailAnyTenant(ctx context.Context, email string) (*domain.User, error) {
	query := `
		SELECT id, COALESCE(tenant_id, '') as tenant_id, email, password_hash, COALESCE(name, '') as name, role, is_active, created_at, updated_at
		FROM users
		WHERE email = $1
	`
	user := &domain.User{}
	err := r.pool.QueryRow(ctx, query, email).Scan(
		&user.ID,
		&user.TenantID,
		&user.Email,
		&user.PasswordHash,
		&user.Name,
		&user.Role,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// GetByIDAnyTenant retrieves a user by ID across all tenants.
// Used only by session refresh for root principals, which carry no tenant.
func (r *PostgresUserRepository) GetByIDAnyTenant(ctx context.Context, id string) (*domain.User, error) {
	query := `
		SELECT id, COALESCE(tenant_id, '') as tenant_id, email, password_hash, COALESCE(name, '') as name, role, is_active, created_at, updated_at
		FROM users
		WHERE id = $1
	`
	user := &domain.User{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.TenantID,
		&user.Email,
		&user.PasswordHash,
		&user.Name,
		&user.Role,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// List retrieves users within the current tenant with pagination and filters
func (r *PostgresUserRepository) List(ctx context.Context, page, limit int, role string, isActive *bool, search string) ([]*domain.User, int, error) {
	tenantID, err := tenantScope(ctx)
	if err != nil {
		return nil, 0, err
	}

	// Build WHERE clause
	whereClause := "WHERE tenant_id = $1"
	args := []interface{}{tenantID}
	argIndex := 2

	if role != "" {
		whereClause += fmt.Sprintf(" AND role = $%d", argIndex)
		args = append(args, role)
		argIndex++
	}

	if isActive != nil {
		whereClause += fmt.Sprintf(" AND is_active = $%d", argIndex)
		args = append(args, *isActive)
		argIndex++
	}

	if search != "" {
		whereClause += fmt.Sprintf(" AND (email ILIKE $%d OR name ILIKE $%d)", argIndex, argIndex)
		args = append(args, "%"+search+"%")
		argIndex++
	}

	// Count total records
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM users %s", whereClause)
	var totalCount int
	err = r.pool.QueryRow(ctx, countQuery, args...).Scan(&totalCount)
	if err != nil {
		return nil, 0, err
	}

	// Get paginated records
	offset := (page - 1) * limit
	query := fmt.Sprintf(`
		SELECT id, tenant_id, email, password_hash, COALESCE(name, '') as name, role, is_active, created_at, updated_at
		FROM users
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

	users := make([]*domain.User, 0)
	for rows.Next() {
		user := &domain.User{}
		err := rows.Scan(
			&user.ID,
			&user.TenantID,
			&user.Email,
			&user.PasswordHash,
			&user.Name,
			&user.Role,
			&user.IsActive,
			&user.CreatedAt,
			&user.UpdatedAt,
		)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, user)
	}

	return users, totalCount, nil
}

// Update updates a user within the current tenant
func (r *PostgresUserRepository) Update(ctx context.Context, user *domain.User) error {
	tenantID, err := tenantScope(ctx)
	if err != nil {
		return err
	}

	query := `
		UPDATE users
		SET name = $3, role = $4, is_active = $5, updated_at = $6
		WHERE id = $1 AND tenant_id = $2
	`
	user.UpdatedAt = time.Now()
	result, err := r.pool.Exec(ctx, query,
		user.ID,
		tenantID,
		nullStringOrValue(user.Name),
		user.Role,
		user.IsActive,
		user.UpdatedAt,
	)
	if err != nil {
		return err
	}

	rowsAffected := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("user not found")
	}

	return nil
}

// Delete removes a user within the current tenant
func (r *PostgresUserRepository) Delete(ctx context.Context, id string) error {
	tenantID, err := tenantScope(ctx)
	if err != nil {
		return err
	}

	query := `DELETE FROM users WHERE id = $1 AND tenant_id = $2`
	result, err := r.pool.Exec(ctx, query, id, tenantID)
	if err != nil {
		return err
	}

	rowsAffected := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("user not found")
	}

	return nil
}

// ExistsByEmail checks if a user exists with the given email within the current tenant
func (r *PostgresUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	tenantID, err := tenantScope(ctx)
	if err != nil {
		return false, err
	}

	query := `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1 AND tenant_id = $2)`
	var exists bool
	err = r.pool.QueryRow(ctx, query, email, tenantID).Scan(&exists)
	return exists, err
}
