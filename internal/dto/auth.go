package dto

// LoginRequest represents request to authenticate a user
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

// LoginResponse represents a successful authentication result
type LoginResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int64        `json:"expires_in"`
	User         UserResponse `json:"user"`
}

// RefreshRequest represents request to exchange a refresh token
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// LogoutRequest represents request to revoke a refresh token
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// MeResponse represents the authenticated principal's own profile
type MeResponse struct {
	User   UserResponse    `json:"user"`
	Tenant *TenantResponse `json:"tenant,omitempty"`
}
