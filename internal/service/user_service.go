package service

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/waranyu/saas-admin-platform/internal/authz"
	"github.com/waranyu/saas-admin-platform/internal/domain"
	"github.com/waranyu/saas-admin-platform/internal/dto"
	"github.com/waranyu/saas-admin-platform/internal/events"
	"github.com/waranyu/saas-admin-platform/internal/repository"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrEmailExists    = errors.New("user with this email already exists")
	ErrSelfDeletion   = errors.New("cannot delete own account")
	ErrRoleEscalation = errors.New("cannot assign a role above caller's role")
)

// UserService defines the interface for user management within a tenant.
// Tenant scoping lives in the repository layer; cross-tenant lookups come
// back as ErrUserNotFound, never as a permission error.
type UserService interface {
	Create(ctx context.Context, req *dto.CreateUserRequest) (*dto.UserResponse, error)
	GetByID(ctx context.Context, id string) (*dto.UserResponse, error)
	List(ctx context.Context, query *dto.ListUsersQuery) (*dto.ListUsersResponse, error)
	Update(ctx context.Context, id string, req *dto.UpdateUserRequest) (*dto.UserResponse, error)
	Delete(ctx context.Context, id string) error
}

// userService implements UserService
type userService struct {
	userRepo  repository.UserRepository
	publisher events.Publisher
}

// NewUserService creates a new UserService
func NewUserService(userRepo repository.UserRepository, publisher events.Publisher) UserService {
	return &userService{
		userRepo:  userRepo,
		publisher: publisher,
	}
}

// Create creates a new user in the caller's tenant. The tenant is stamped
// from the request context in the repository, never taken from the payload.
func (s *userService) Create(ctx context.Context, req *dto.CreateUserRequest) (*dto.UserResponse, error) {
	// Check if email is taken within the tenant
	exists, err := s.userRepo.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	role := req.Role
	if role == "" {
		role = string(authz.RoleUser)
	}

	now := time.Now()
	user := &domain.User{
		ID:           uuid.New().String(),
		Email:        req.Email,
		PasswordHash: string(hash),
		Name:         req.Name,
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.publish(ctx, events.TypeUserCreated, user, map[string]interface{}{
		"email": user.Email,
		"role":  user.Role,
	})

	return toUserResponse(user), nil
}

// GetByID retrieves a user by ID within the caller's tenant
func (s *userService) GetByID(ctx context.Context, id string) (*dto.UserResponse, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return toUserResponse(user), nil
}

// List retrieves users within the caller's tenant with pagination and filters
func (s *userService) List(ctx context.Context, query *dto.ListUsersQuery) (*dto.ListUsersResponse, error) {
	// Set defaults
	query.SetDefaults()

	users, totalCount, err := s.userRepo.List(ctx, query.Page, query.Limit, query.Role, query.IsActive, query.Search)
	if err != nil {
		return nil, err
	}

	userResponses := make([]dto.UserResponse, 0, len(users))
	for _, user := range users {
		userResponses = append(userResponses, *toUserResponse(user))
	}

	totalPages := int(math.Ceil(float64(totalCount) / float64(query.Limit)))

	return &dto.ListUsersResponse{
		Users:      userResponses,
		TotalCount: totalCount,
		Page:       query.Page,
		Limit:      query.Limit,
		TotalPages: totalPages,
	}, nil
}

// Update updates a user within the caller's tenant
func (s *userService) Update(ctx context.Context, id string, req *dto.UpdateUserRequest) (*dto.UserResponse, error) {
	// Validate that at least one field is provided
	if valid, errMsg := req.Validate(); !valid {
		return nil, errors.New(errMsg)
	}

	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	// Role changes cannot exceed the caller's own role
	if req.Role != nil && *req.Role != user.Role {
		if p, ok := authz.PrincipalFromContext(ctx); ok && !p.IsRoot() {
			if authz.Role(*req.Role) == authz.RoleAdmin && p.Role != authz.RoleAdmin {
				return nil, ErrRoleEscalation
			}
		}
		user.Role = *req.Role
	}
	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	s.publish(ctx, events.TypeUserUpdated, user, nil)

	return toUserResponse(user), nil
}

// Delete removes a user within the caller's tenant. Principals cannot
// delete themselves.
func (s *userService) Delete(ctx context.Context, id string) error {
	if p, ok := authz.PrincipalFromContext(ctx); ok && p.ID == id {
		return ErrSelfDeletion
	}

	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}

	if err := s.userRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.publish(ctx, events.TypeUserDeleted, user, nil)
	return nil
}

// publish emits a user lifecycle event
func (s *userService) publish(ctx context.Context, eventType string, user *domain.User, payload map[string]interface{}) {
	actorID := ""
	if p, ok := authz.PrincipalFromContext(ctx); ok {
		actorID = p.ID
	}
	_ = s.publisher.Publish(ctx, events.TopicUserEvents, events.Event{
		ID:         uuid.New().String(),
		Type:       eventType,
		TenantID:   user.TenantID,
		ActorID:    actorID,
		ResourceID: user.ID,
		Payload:    payload,
		OccurredAt: time.Now(),
	})
}
