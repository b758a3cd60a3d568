package model

import "time"

// SEO soft limits. Exceeding them is reported, never rejected.
const (
	MetaTitleMaxLength       = 80
	MetaDescriptionMaxLength = 250
)

// DescriptionMinLength applies to the visible text of a non-empty description.
const DescriptionMinLength = 10

// UnknownManufacturerName is displayed when a product's manufacturer ID does
// not resolve.
const UnknownManufacturerName = "Unknown Manufacturer"

// Gender values accepted by the shop's custom field.
var Genders = []string{"", "Damen", "Herren", "Unisex"}

// Product is a catalog record as held by the remote shop API.
type Product struct {
	ID                   string     `json:"id"`
	Name                 string     `json:"name"`
	Active               bool       `json:"active"`
	Description          string     `json:"description"`
	ShortText            string     `json:"short_text"`
	MetaTitle            string     `json:"meta_title"`
	MetaDescription      string     `json:"meta_description"`
	Keywords             string     `json:"keywords"`
	CustomSearchKeywords string     `json:"custom_search_keywords"`
	EAN                  string     `json:"ean"`
	CategoryIDs          []string   `json:"category_ids"`
	ManufacturerID       string     `json:"manufacturer_id,omitempty"`
	Manufacturer         string     `json:"manufacturer,omitempty"`
	ProductNumber        string     `json:"product_number"`
	Stock                int        `json:"stock"`
	Gender               string     `json:"gender"`
	Color                string     `json:"color,omitempty"`
	UpdatedAt            *time.Time `json:"updated_at,omitempty"`
}

// HasContent reports whether any descriptive or SEO field is filled.
func (p Product) HasContent() bool {
	return p.Description != "" || p.MetaDescription != "" || p.MetaTitle != "" ||
		p.Keywords != "" || p.ShortText != ""
}

// Manufacturer is a product manufacturer known to the shop.
type Manufacturer struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Category is a shop category node.
type Category struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ParentID string `json:"parent_id,omitempty"`
}
