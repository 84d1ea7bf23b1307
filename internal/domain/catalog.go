package domain

// AttributeDefinition is an entry of the attribute catalog used by the
// dashboard product form.
type AttributeDefinition struct {
	ID     string   `json:"_id"`
	Name   string   `json:"name"`
	Values []string `json:"values,omitempty"`
}

// AttributeDefinitionInput is the payload for POST /attribute.
type AttributeDefinitionInput struct {
	Name   string   `json:"name" validate:"required,max=255"`
	Values []string `json:"values,omitempty"`
}

// Banner is a promotional banner shown on the home page.
type Banner struct {
	ID       string `json:"_id"`
	Title    string `json:"title"`
	Image    string `json:"image"`
	Link     string `json:"link,omitempty"`
	Position int    `json:"position"`
	IsActive bool   `json:"isActive"`
}

// BannerInput is the payload for creating or updating a banner.
type BannerInput struct {
	Title    string `json:"title" validate:"required,max=255"`
	Image    string `json:"image" validate:"required"`
	Link     string `json:"link,omitempty"`
	Position int    `json:"position" validate:"gte=0"`
	IsActive bool   `json:"isActive"`
}

// Brand is a vendor storefront. The marketplace API calls vendors "brands".
type Brand struct {
	ID          string `json:"_id"`
	Name        string `json:"name"`
	Slug        string `json:"slug,omitempty"`
	Logo        string `json:"logo,omitempty"`
	Description string `json:"description,omitempty"`
}

// BrandInput is the JSON payload for creating or updating a brand.
type BrandInput struct {
	Name        string `json:"name" validate:"required,max=255"`
	Slug        string `json:"slug,omitempty"`
	Logo        string `json:"logo,omitempty"`
	Description string `json:"description,omitempty"`
}
