package transport

import "github.com/google/uuid"

// CreatePartRequest contains data for creating a new inventory part.
type CreatePartRequest struct {
	Name           string `json:"name" validate:"required,min=1,max=200"`
	SKU            string `json:"sku" validate:"required,min=1,max=64"`
	Stock          int    `json:"stock" validate:"min=0"`
	MinStock       int    `json:"minStock" validate:"min=0"`
	UnitPriceCents int64  `json:"unitPriceCents" validate:"min=0"`
}

// UpdatePartRequest contains data for updating a part's catalog fields.
// Stock cannot be set here; use the restock endpoint.
type UpdatePartRequest struct {
	Name           *string `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	SKU            *string `json:"sku,omitempty" validate:"omitempty,min=1,max=64"`
	MinStock       *int    `json:"minStock,omitempty" validate:"omitempty,min=0"`
	UnitPriceCents *int64  `json:"unitPriceCents,omitempty" validate:"omitempty,min=0"`
}

// RestockRequest adds received goods to a part's stock.
type RestockRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1"`
}

// ListPartsRequest contains query filters for listing parts.
type ListPartsRequest struct {
	Search   string `form:"search"`
	LowStock bool   `form:"lowStock"`
	Page     int    `form:"page"`
	PageSize int    `form:"pageSize"`
}

// PartResponse represents a part in API responses.
type PartResponse struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	SKU            string    `json:"sku"`
	Stock          int       `json:"stock"`
	MinStock       int       `json:"minStock"`
	LowStock       bool      `json:"lowStock"`
	UnitPriceCents int64     `json:"unitPriceCents"`
	CreatedAt      string    `json:"createdAt"`
	UpdatedAt      string    `json:"updatedAt"`
}

// PartListResponse wraps a paginated list of parts.
type PartListResponse struct {
	Items      []PartResponse `json:"items"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"pageSize"`
	TotalPages int            `json:"totalPages"`
}
