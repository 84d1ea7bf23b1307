package domain

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a product in the marketplace catalog.
// Price uses decimal.Decimal so that filtering and sorting by price stay exact.
type Product struct {
	ID         string           `json:"_id"`
	Title      string           `json:"title"`
	Price      decimal.Decimal  `json:"price"`
	MRP        *decimal.Decimal `json:"mrp,omitempty"`
	InStock    bool             `json:"inStock"`
	CategoryID string           `json:"category,omitempty"`
	VendorID   string           `json:"vendor,omitempty"`
	Images     []string         `json:"images,omitempty"`
	SKU        string           `json:"sku,omitempty"`
	Slug       string           `json:"slug,omitempty"`
	CreatedAt  time.Time        `json:"createdAt"`
	Attributes AttributeSource  `json:"attributes,omitempty"`
}

// UnmarshalJSON decodes a product, classifying the attributes field into
// RawAttributes or EncodedAttributes depending on its JSON shape.
func (p *Product) UnmarshalJSON(data []byte) error {
	type alias Product
	aux := struct {
		*alias
		Attributes json.RawMessage `json:"attributes"`
	}{alias: (*alias)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	src, err := ClassifyAttributes(aux.Attributes)
	if err != nil {
		return err
	}
	p.Attributes = src
	return nil
}

// ProductDetail is the payload of the product detail endpoint: the product
// plus the parent and child categories it is filed under.
type ProductDetail struct {
	Product        Product   `json:"data"`
	ParentCategory *Category `json:"parentcategory,omitempty"`
	ChildCategory  *Category `json:"childcategory,omitempty"`
}

// ProductInput is the payload for creating or updating a product from the dashboard.
type ProductInput struct {
	Title      string          `json:"title" validate:"required,max=255"`
	Price      decimal.Decimal `json:"price"`
	InStock    bool            `json:"inStock"`
	CategoryID string          `json:"category" validate:"required"`
	VendorID   string          `json:"vendor,omitempty"`
	Images     []string        `json:"images,omitempty"`
	SKU        string          `json:"sku,omitempty" validate:"omitempty,max=64"`
	Slug       string          `json:"slug,omitempty"`
	Attributes []Attribute     `json:"attributes,omitempty" validate:"dive"`
}

// --- Dynamic attributes ---

// Attribute is one decoded name/value pair of a product's dynamic attributes.
type Attribute struct {
	Name  string `json:"name" validate:"required"`
	Value string `json:"value"`
}

// AttributeSource is the stored form of a product's dynamic attributes.
// It is a closed union: RawAttributes carries already structured JSON,
// EncodedAttributes carries the same document serialized as text.
type AttributeSource interface {
	attributeSource()
}

// RawAttributes holds structured attribute JSON (an array or an object).
type RawAttributes json.RawMessage

// EncodedAttributes holds attribute JSON that the backend stored as a string.
type EncodedAttributes string

func (RawAttributes) attributeSource()     {}
func (EncodedAttributes) attributeSource() {}

// MarshalJSON emits the raw document unchanged.
func (r RawAttributes) MarshalJSON() ([]byte, error) {
	if len(r) == 0 {
		return []byte("null"), nil
	}
	return []byte(r), nil
}

// ClassifyAttributes turns the raw JSON value of an attributes field into its
// AttributeSource variant. Absent and null values yield nil.
func ClassifyAttributes(raw json.RawMessage) (AttributeSource, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	if trimmed[0] == '"' {
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return nil, err
		}
		return EncodedAttributes(text), nil
	}
	cp := make([]byte, len(trimmed))
	copy(cp, trimmed)
	return RawAttributes(cp), nil
}
