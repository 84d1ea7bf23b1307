package domain

// Category represents a catalog category as returned by the marketplace API.
// ParentID is nil for root categories; a ParentID that does not resolve to a
// known category also makes the category a root.
type Category struct {
	ID       string  `json:"_id"`
	Name     string  `json:"name"`
	ParentID *string `json:"parentId,omitempty"`
	Slug     string  `json:"slug,omitempty"`
	Image    string  `json:"image,omitempty"`
}

// CategoryInput is the payload for creating or updating a category.
type CategoryInput struct {
	Name     string  `json:"name" validate:"required,max=255"`
	ParentID *string `json:"parentId,omitempty" validate:"omitempty"`
	Slug     string  `json:"slug,omitempty" validate:"omitempty,max=255"`
	Image    string  `json:"image,omitempty" validate:"omitempty"`
}
