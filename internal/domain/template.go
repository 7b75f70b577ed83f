package domain

import (
	"time"
)

// ProductTemplate represents a tenant-owned product blueprint that admins
// manage and archive in bulk.
type ProductTemplate struct {
	ID          string                 `json:"id"`
	TenantID    string                 `json:"tenant_id"`
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Attributes  map[string]interface{} `json:"attributes,omitempty"`
	IsArchived  bool                   `json:"is_archived"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}
