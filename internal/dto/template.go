package dto

// CreateTemplateRequest represents request to create a product template
type CreateTemplateRequest struct {
	Name        string                 `json:"name" binding:"required,min=2,max=255"`
	Description string                 `json:"description" binding:"omitempty,max=2000"`
	Attributes  map[string]interface{} `json:"attributes" binding:"omitempty"`
}

// UpdateTemplateRequest represents request to update a product template
type UpdateTemplateRequest struct {
	Name        *string                 `json:"name" binding:"omitempty,min=2,max=255"`
	Description *string                 `json:"description" binding:"omitempty,max=2000"`
	Attributes  *map[string]interface{} `json:"attributes" binding:"omitempty"`
}

// Validate validates that at least one field is provided for update
func (r *UpdateTemplateRequest) Validate() (bool, string) {
	if r.Name == nil && r.Description == nil && r.Attributes == nil {
		return false, "At least one field must be provided for update"
	}
	return true, ""
}

// ArchiveTemplatesRequest represents request to archive a batch of templates
type ArchiveTemplatesRequest struct {
	TemplateIDs []string `json:"template_ids" binding:"required,min=1,max=100,dive,required"`
}

// TemplateResponse represents product template data in response
type TemplateResponse struct {
	ID          string                 `json:"id"`
	TenantID    string                 `json:"tenant_id"`
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Attributes  map[string]interface{} `json:"attributes,omitempty"`
	IsArchived  bool                   `json:"is_archived"`
	CreatedAt   string                 `json:"created_at"`
	UpdatedAt   string                 `json:"updated_at"`
}

// ListTemplatesQuery represents query parameters for listing templates
type ListTemplatesQuery struct {
	Page       int    `form:"page" binding:"omitempty,min=1"`
	Limit      int    `form:"limit" binding:"omitempty,min=1,max=100"`
	IsArchived *bool  `form:"is_archived" binding:"omitempty"`
	Search     string `form:"search" binding:"omitempty,max=255"`
}

// SetDefaults sets default values for query parameters
func (q *ListTemplatesQuery) SetDefaults() {
	if q.Page == 0 {
		q.Page = 1
	}
	if q.Limit == 0 {
		q.Limit = 20
	}
}

// ListTemplatesResponse represents paginated list of templates
type ListTemplatesResponse struct {
	Templates  []TemplateResponse `json:"templates"`
	TotalCount int                `json:"total_count"`
	Page       int                `json:"page"`
	Limit      int                `json:"limit"`
	TotalPages int                `json:"total_pages"`
}

// ArchiveTemplatesResponse reports how many templates were archived
type ArchiveTemplatesResponse struct {
	ArchivedCount int      `json:"archived_count"`
	TemplateIDs   []string `json:"template_ids"`
}
