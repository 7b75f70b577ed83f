package service

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/waranyu/saas-admin-platform/internal/authz"
	"github.com/waranyu/saas-admin-platform/internal/domain"
	"github.com/waranyu/saas-admin-platform/internal/dto"
	"github.com/waranyu/saas-admin-platform/internal/events"
	"github.com/waranyu/saas-admin-platform/internal/repository"
)

var (
	ErrTemplateNotFound = errors.New("template not found")
	ErrTemplateArchived = errors.New("template is archived")
)

// TemplateService defines the interface for product template management
// within a tenant
type TemplateService interface {
	Create(ctx context.Context, req *dto.CreateTemplateRequest) (*dto.TemplateResponse, error)
	GetByID(ctx context.Context, id string) (*dto.TemplateResponse, error)
	List(ctx context.Context, query *dto.ListTemplatesQuery) (*dto.ListTemplatesResponse, error)
	Update(ctx context.Context, id string, req *dto.UpdateTemplateRequest) (*dto.TemplateResponse, error)
	Delete(ctx context.Context, id string) error
	// Archive marks a batch of templates archived. Every requested ID must
	// resolve within the caller's tenant or the whole batch is rejected.
	Archive(ctx context.Context, req *dto.ArchiveTemplatesRequest) (*dto.ArchiveTemplatesResponse, error)
}

// templateService implements TemplateService
type templateService struct {
	templateRepo repository.TemplateRepository
	publisher    events.Publisher
}

// NewTemplateService creates a new TemplateService
func NewTemplateService(templateRepo repository.TemplateRepository, publisher events.Publisher) TemplateService {
	return &templateService{
		templateRepo: templateRepo,
		publisher:    publisher,
	}
}

// Create creates a new product template in the caller's tenant
func (s *templateService) Create(ctx context.Context, req *dto.CreateTemplateRequest) (*dto.TemplateResponse, error) {
	now := time.Now()
	template := &domain.ProductTemplate{
		ID:          uuid.New().String(),
		Name:        req.Name,
		Description: req.Description,
		Attributes:  req.Attributes,
		IsArchived:  false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if template.Attributes == nil {
		template.Attributes = make(map[string]interface{})
	}

	if err := s.templateRepo.Create(ctx, template); err != nil {
		return nil, err
	}

	return s.toTemplateResponse(template), nil
}

// GetByID retrieves a product template by ID within the caller's tenant
func (s *templateService) GetByID(ctx context.Context, id string) (*dto.TemplateResponse, error) {
	template, err := s.templateRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if template == nil {
		return nil, ErrTemplateNotFound
	}
	return s.toTemplateResponse(template), nil
}

// List retrieves templates within the caller's tenant with pagination and filters
func (s *templateService) List(ctx context.Context, query *dto.ListTemplatesQuery) (*dto.ListTemplatesResponse, error) {
	// Set defaults
	query.SetDefaults()

	templates, totalCount, err := s.templateRepo.List(ctx, query.Page, query.Limit, query.IsArchived, query.Search)
	if err != nil {
		return nil, err
	}

	templateResponses := make([]dto.TemplateResponse, 0, len(templates))
	for _, template := range templates {
		templateResponses = append(templateResponses, *s.toTemplateResponse(template))
	}

	totalPages := int(math.Ceil(float64(totalCount) / float64(query.Limit)))

	return &dto.ListTemplatesResponse{
		Templates:  templateResponses,
		TotalCount: totalCount,
		Page:       query.Page,
		Limit:      query.Limit,
		TotalPages: totalPages,
	}, nil
}

// Update updates a product template within the caller's tenant.
// Archived templates are read-only until unarchived.
func (s *templateService) Update(ctx context.Context, id string, req *dto.UpdateTemplateRequest) (*dto.TemplateResponse, error) {
	// Validate that at least one field is provided
	if valid, errMsg := req.Validate(); !valid {
		return nil, errors.New(errMsg)
	}

	template, err := s.templateRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if template == nil {
		return nil, ErrTemplateNotFound
	}
	if template.IsArchived {
		return nil, ErrTemplateArchived
	}

	if req.Name != nil {
		template.Name = *req.Name
	}
	if req.Description != nil {
		template.Description = *req.Description
	}
	if req.Attributes != nil {
		template.Attributes = *req.Attributes
	}

	if err := s.templateRepo.Update(ctx, template); err != nil {
		return nil, err
	}

	return s.toTemplateResponse(template), nil
}

// Delete removes a product template within the caller's tenant
func (s *templateService) Delete(ctx context.Context, id string) error {
	template, err := s.templateRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if template == nil {
		return ErrTemplateNotFound
	}
	return s.templateRepo.Delete(ctx, id)
}

// Archive marks a batch of templates archived. IDs outside the caller's
// tenant resolve as missing, so the batch fails closed with not-found
// rather than leaking another tenant's data.
func (s *templateService) Archive(ctx context.Context, req *dto.ArchiveTemplatesRequest) (*dto.ArchiveTemplatesResponse, error) {
	found, err := s.templateRepo.GetByIDs(ctx, req.TemplateIDs)
	if err != nil {
		return nil, err
	}
	if len(found) != len(req.TemplateIDs) {
		return nil, ErrTemplateNotFound
	}

	count, err := s.templateRepo.ArchiveBatch(ctx, req.TemplateIDs)
	if err != nil {
		return nil, err
	}

	s.publishArchived(ctx, req.TemplateIDs)

	return &dto.ArchiveTemplatesResponse{
		ArchivedCount: count,
		TemplateIDs:   req.TemplateIDs,
	}, nil
}

// publishArchived emits one archive event for the batch
func (s *templateService) publishArchived(ctx context.Context, ids []string) {
	actorID := ""
	if p, ok := authz.PrincipalFromContext(ctx); ok {
		actorID = p.ID
	}
	tenantID, _ := authz.TenantFromContext(ctx)
	_ = s.publisher.Publish(ctx, events.TopicTemplateEvents, events.Event{
		ID:       uuid.New().String(),
		Type:     events.TypeTemplatesArchived,
		TenantID: tenantID,
		ActorID:  actorID,
		Payload: map[string]interface{}{
			"template_ids": ids,
		},
		OccurredAt: time.Now(),
	})
}

// toTemplateResponse converts domain.ProductTemplate to dto.TemplateResponse
func (s *templateService) toTemplateResponse(template *domain.ProductTemplate) *dto.TemplateResponse {
	return &dto.TemplateResponse{
		ID:          template.ID,
		TenantID:    template.TenantID,
		Name:        template.Name,
		Description: template.Description,
		Attributes:  template.Attributes,
		IsArchived:  template.IsArchived,
		CreatedAt:   template.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   template.UpdatedAt.Format(time.RFC3339),
	}
}
