package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/waranyu/saas-admin-platform/internal/authz"
	"github.com/waranyu/saas-admin-platform/internal/domain"
	"github.com/waranyu/saas-admin-platform/internal/events"
	"github.com/waranyu/saas-admin-platform/internal/repository"
)

// fakeTenantRepo is an in-memory TenantRepository for service tests.
type fakeTenantRepo struct {
	mu      sync.Mutex
	tenants map[string]*domain.Tenant
}

func newFakeTenantRepo() *fakeTenantRepo {
	return &fakeTenantRepo{tenants: make(map[string]*domain.Tenant)}
}

func (f *fakeTenantRepo) Create(ctx context.Context, tenant *domain.Tenant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *tenant
	f.tenants[tenant.ID] = &copied
	return nil
}

func (f *fakeTenantRepo) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tenants[id]
	if !ok || t.DeletedAt != nil {
		return nil, nil
	}
	copied := *t
	return &copied, nil
}

func (f *fakeTenantRepo) GetBySlug(ctx context.Context, slug string) (*domain.Tenant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tenants {
		if t.Slug == slug && t.DeletedAt == nil {
			copied := *t
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeTenantRepo) List(ctx context.Context, page, limit int, isActive *bool, search string) ([]*domain.Tenant, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	matched := make([]*domain.Tenant, 0)
	for _, t := range f.tenants {
		if t.DeletedAt != nil {
			continue
		}
		if isActive != nil && t.IsActive != *isActive {
			continue
		}
		if search != "" && !strings.Contains(t.Name, search) && !strings.Contains(t.Slug, search) {
			continue
		}
		copied := *t
		matched = append(matched, &copied)
	}
	total := len(matched)
	start := (page - 1) * limit
	if start >= total {
		return []*domain.Tenant{}, total, nil
	}
	end := start + limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (f *fakeTenantRepo) Update(ctx context.Context, tenant *domain.Tenant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.tenants[tenant.ID]
	if !ok || existing.DeletedAt != nil {
		return errors.New("tenant not found or already deleted")
	}
	copied := *tenant
	f.tenants[tenant.ID] = &copied
	return nil
}

func (f *fakeTenantRepo) SoftDelete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tenants[id]
	if !ok || t.DeletedAt != nil {
		return nil
	}
	now := time.Now()
	t.DeletedAt = &now
	return nil
}

func (f *fakeTenantRepo) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	t, err := f.GetBySlug(ctx, slug)
	return t != nil, err
}

// fakeUserRepo is an in-memory UserRepository. It enforces the same
// tenant scoping contract as the Postgres implementation.
type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*domain.User)}
}

func (f *fakeUserRepo) scope(ctx context.Context) (string, error) {
	tenantID, ok := authz.TenantFromContext(ctx)
	if !ok {
		return "", repository.ErrTenantScopeMissing
	}
	return tenantID, nil
}

func (f *fakeUserRepo) Create(ctx context.Context, user *domain.User) error {
	tenantID, err := f.scope(ctx)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	user.TenantID = tenantID
	copied := *user
	f.users[user.ID] = &copied
	return nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	tenantID, err := f.scope(ctx)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok || u.TenantID != tenantID {
		return nil, nil
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	tenantID, err := f.scope(ctx)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email && u.TenantID == tenantID {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) GetByEmailAnyTenant(ctx context.Context, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) GetByIDAnyTenant(ctx context.Context, id string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) List(ctx context.Context, page, limit int, role string, isActive *bool, search string) ([]*domain.User, int, error) {
	tenantID, err := f.scope(ctx)
	if err != nil {
		return nil, 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	matched := make([]*domain.User, 0)
	for _, u := range f.users {
		if u.TenantID != tenantID {
			continue
		}
		if role != "" && u.Role != role {
			continue
		}
		if isActive != nil && u.IsActive != *isActive {
			continue
		}
		if search != "" && !strings.Contains(u.Email, search) && !strings.Contains(u.Name, search) {
			continue
		}
		copied := *u
		matched = append(matched, &copied)
	}
	total := len(matched)
	start := (page - 1) * limit
	if start >= total {
		return []*domain.User{}, total, nil
	}
	end := start + limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (f *fakeUserRepo) Update(ctx context.Context, user *domain.User) error {
	tenantID, err := f.scope(ctx)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.users[user.ID]
	if !ok || existing.TenantID != tenantID {
		return ErrUserNotFound
	}
	copied := *user
	copied.TenantID = tenantID
	f.users[user.ID] = &copied
	return nil
}

func (f *fakeUserRepo) Delete(ctx context.Context, id string) error {
	tenantID, err := f.scope(ctx)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.users[id]
	if !ok || existing.TenantID != tenantID {
		return ErrUserNotFound
	}
	delete(f.users, id)
	return nil
}

func (f *fakeUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	u, err := f.GetByEmail(ctx, email)
	if err != nil {
		return false, err
	}
	return u != nil, nil
}

// fakeTemplateRepo is an in-memory TemplateRepository with tenant scoping.
type fakeTemplateRepo struct {
	mu        sync.Mutex
	templates map[string]*domain.ProductTemplate
}

func newFakeTemplateRepo() *fakeTemplateRepo {
	return &fakeTemplateRepo{templates: make(map[string]*domain.ProductTemplate)}
}

func (f *fakeTemplateRepo) scope(ctx context.Context) (string, error) {
	tenantID, ok := authz.TenantFromContext(ctx)
	if !ok {
		return "", repository.ErrTenantScopeMissing
	}
	return tenantID, nil
}

func (f *fakeTemplateRepo) Create(ctx context.Context, template *domain.ProductTemplate) error {
	tenantID, err := f.scope(ctx)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	template.TenantID = tenantID
	copied := *template
	f.templates[template.ID] = &copied
	return nil
}

func (f *fakeTemplateRepo) GetByID(ctx context.Context, id string) (*domain.ProductTemplate, error) {
	tenantID, err := f.scope(ctx)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.templates[id]
	if !ok || t.TenantID != tenantID {
		return nil, nil
	}
	copied := *t
	return &copied, nil
}

func (f *fakeTemplateRepo) GetByIDs(ctx context.Context, ids []string) ([]*domain.ProductTemplate, error) {
	tenantID, err := f.scope(ctx)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	found := make([]*domain.ProductTemplate, 0, len(ids))
	for _, id := range ids {
		if t, ok := f.templates[id]; ok && t.TenantID == tenantID {
			copied := *t
			found = append(found, &copied)
		}
	}
	return found, nil
}

func (f *fakeTemplateRepo) List(ctx context.Context, page, limit int, isArchived *bool, search string) ([]*domain.ProductTemplate, int, error) {
	tenantID, err := f.scope(ctx)
	if err != nil {
		return nil, 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	matched := make([]*domain.ProductTemplate, 0)
	for _, t := range f.templates {
		if t.TenantID != tenantID {
			continue
		}
		if isArchived != nil && t.IsArchived != *isArchived {
			continue
		}
		if search != "" && !strings.Contains(t.Name, search) {
			continue
		}
		copied := *t
		matched = append(matched, &copied)
	}
	total := len(matched)
	start := (page - 1) * limit
	if start >= total {
		return []*domain.ProductTemplate{}, total, nil
	}
	end := start + limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (f *fakeTemplateRepo) Update(ctx context.Context, template *domain.ProductTemplate) error {
	tenantID, err := f.scope(ctx)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.templates[template.ID]
	if !ok || existing.TenantID != tenantID {
		return ErrTemplateNotFound
	}
	copied := *template
	copied.TenantID = tenantID
	f.templates[template.ID] = &copied
	return nil
}

func (f *fakeTemplateRepo) Delete(ctx context.Context, id string) error {
	tenantID, err := f.scope(ctx)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.templates[id]
	if !ok || existing.TenantID != tenantID {
		return ErrTemplateNotFound
	}
	delete(f.templates, id)
	return nil
}

func (f *fakeTemplateRepo) ArchiveBatch(ctx context.Context, ids []string) (int, error) {
	tenantID, err := f.scope(ctx)
	if err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, id := range ids {
		if t, ok := f.templates[id]; ok && t.TenantID == tenantID && !t.IsArchived {
			t.IsArchived = true
			count++
		}
	}
	return count, nil
}

// fakeSessionRepo is an in-memory SessionRepository.
type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]*domain.Session)}
}

func (f *fakeSessionRepo) Store(ctx context.Context, session *domain.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *session
	f.sessions[session.RefreshToken] = &copied
	return nil
}

func (f *fakeSessionRepo) GetByRefreshToken(ctx context.Context, refreshToken string) (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[refreshToken]
	if !ok || time.Now().After(s.ExpiresAt) {
		return nil, nil
	}
	copied := *s
	return &copied, nil
}

func (f *fakeSessionRepo) Delete(ctx context.Context, refreshToken string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, refreshToken)
	return nil
}

// capturingPublisher records published events for assertions.
type capturingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	topics []string
}

func newCapturingPublisher() *capturingPublisher {
	return &capturingPublisher{}
}

func (p *capturingPublisher) Publish(ctx context.Context, topic string, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.events = append(p.events, event)
	return nil
}

func (p *capturingPublisher) Close() {}

func (p *capturingPublisher) published() []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.Event(nil), p.events...)
}
