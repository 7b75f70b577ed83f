package service

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/waranyu/saas-admin-platform/internal/authz"
	"github.com/waranyu/saas-admin-platform/internal/domain"
	"github.com/waranyu/saas-admin-platform/internal/dto"
	"github.com/waranyu/saas-admin-platform/internal/repository"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrSessionNotFound    = errors.New("session not found or expired")
	ErrUserInactive       = errors.New("user account is inactive")
)

// AuthConfig holds token issuance settings
type AuthConfig struct {
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// LoginMeta carries request metadata recorded on the session
type LoginMeta struct {
	UserAgent string
	IPAddress string
}

// AuthService defines the interface for authentication operations.
// These run before authorization; they are the only paths that look
// users up without a tenant scope.
type AuthService interface {
	Login(ctx context.Context, req *dto.LoginRequest, meta LoginMeta) (*dto.LoginResponse, error)
	Refresh(ctx context.Context, req *dto.RefreshRequest, meta LoginMeta) (*dto.LoginResponse, error)
	Logout(ctx context.Context, req *dto.LogoutRequest) error
	Me(ctx context.Context) (*dto.MeResponse, error)
}

// authService implements AuthService
type authService struct {
	userRepo    repository.UserRepository
	tenantRepo  repository.TenantRepository
	sessionRepo repository.SessionRepository
	cfg         AuthConfig
}

// NewAuthService creates a new AuthService
func NewAuthService(userRepo repository.UserRepository, tenantRepo repository.TenantRepository, sessionRepo repository.SessionRepository, cfg AuthConfig) AuthService {
	return &authService{
		userRepo:    userRepo,
		tenantRepo:  tenantRepo,
		sessionRepo: sessionRepo,
		cfg:         cfg,
	}
}

// Login verifies credentials and issues an access/refresh token pair.
// Unknown email, wrong password and inactive account all collapse into
// ErrInvalidCredentials so the response does not reveal which failed.
func (s *authService) Login(ctx context.Context, req *dto.LoginRequest, meta LoginMeta) (*dto.LoginResponse, error) {
	user, err := s.userRepo.GetByEmailAnyTenant(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}

	return s.issueTokens(ctx, user, meta)
}

// Refresh exchanges a refresh token for a new token pair. The old session
// is revoked; refresh tokens are single use.
func (s *authService) Refresh(ctx context.Context, req *dto.RefreshRequest, meta LoginMeta) (*dto.LoginResponse, error) {
	session, err := s.sessionRepo.GetByRefreshToken(ctx, req.RefreshToken)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	// Re-resolve the user so revoked or deactivated accounts cannot refresh
	lookupCtx := ctx
	if session.TenantID != "" {
		lookupCtx = authz.WithTenant(ctx, session.TenantID)
	}
	user, err := s.getSessionUser(lookupCtx, session)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive {
		return nil, ErrSessionNotFound
	}

	if err := s.sessionRepo.Delete(ctx, req.RefreshToken); err != nil {
		return nil, err
	}

	return s.issueTokens(ctx, user, meta)
}

// Logout revokes a refresh token
func (s *authService) Logout(ctx context.Context, req *dto.LogoutRequest) error {
	return s.sessionRepo.Delete(ctx, req.RefreshToken)
}

// Me returns the authenticated principal's own profile and tenant
func (s *authService) Me(ctx context.Context) (*dto.MeResponse, error) {
	principal, err := authz.RequirePrincipal(ctx)
	if err != nil {
		return nil, err
	}

	var user *domain.User
	if principal.TenantID != "" {
		user, err = s.userRepo.GetByID(authz.WithTenant(ctx, principal.TenantID), principal.ID)
	} else {
		user, err = s.userRepo.GetByEmailAnyTenant(ctx, principal.Email)
	}
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	resp := &dto.MeResponse{User: *toUserResponse(user)}

	if user.TenantID != "" {
		tenant, err := s.tenantRepo.GetByID(ctx, user.TenantID)
		if err != nil {
			return nil, err
		}
		if tenant != nil {
			resp.Tenant = &dto.TenantResponse{
				ID:        tenant.ID,
				Name:      tenant.Name,
				Slug:      tenant.Slug,
				Domain:    tenant.Domain,
				Settings:  tenant.Settings,
				IsActive:  tenant.IsActive,
				CreatedAt: tenant.CreatedAt.Format(time.RFC3339),
				UpdatedAt: tenant.UpdatedAt.Format(time.RFC3339),
			}
		}
	}

	return resp, nil
}

// getSessionUser resolves the session's user, tenant-scoped when possible
func (s *authService) getSessionUser(ctx context.Context, session *domain.Session) (*domain.User, error) {
	if session.TenantID != "" {
		return s.userRepo.GetByID(ctx, session.UserID)
	}
	// Root sessions carry no tenant; the lookup must go unscoped
	return s.userRepo.GetByIDAnyTenant(ctx, session.UserID)
}

// issueTokens creates the access token and a fresh refresh session
func (s *authService) issueTokens(ctx context.Context, user *domain.User, meta LoginMeta) (*dto.LoginResponse, error) {
	now := time.Now()
	expiresAt := now.Add(s.cfg.AccessTokenTTL)

	claims := jwt.MapClaims{
		"user_id":   user.ID,
		"email":     user.Email,
		"role":      user.Role,
		"tenant_id": user.TenantID,
		"iat":       now.Unix(),
		"exp":       expiresAt.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	accessToken, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return nil, err
	}

	refreshToken := uuid.New().String()
	session := &domain.Session{
		ID:           uuid.New().String(),
		UserID:       user.ID,
		TenantID:     user.TenantID,
		RefreshToken: refreshToken,
		UserAgent:    meta.UserAgent,
		IPAddress:    meta.IPAddress,
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.cfg.RefreshTokenTTL),
	}
	if err := s.sessionRepo.Store(ctx, session); err != nil {
		return nil, err
	}

	return &dto.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.cfg.AccessTokenTTL.Seconds()),
		User:         *toUserResponse(user),
	}, nil
}

// toUserResponse converts domain.User to dto.UserResponse
func toUserResponse(user *domain.User) *dto.UserResponse {
	return &dto.UserResponse{
		ID:        user.ID,
		TenantID:  user.TenantID,
		Email:     user.Email,
		Name:      user.Name,
		Role:      user.Role,
		IsActive:  user.IsActive,
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
		UpdatedAt: user.UpdatedAt.Format(time.RFC3339),
	}
}
