package dto

import (
	"time"

	"catalogdesk/internal/model"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

// ProductListQuery is bound from the query string of GET /v1/products and
// GET /v1/products/search.
type ProductListQuery struct {
	Query          string `form:"q"`
	Page           int    `form:"page"            validate:"omitempty,min=1"`
	Limit          int    `form:"limit"           validate:"omitempty,oneof=10 25 50 100"`
	Sort           string `form:"sort"            validate:"omitempty,oneof=name stock updatedAt productNumber"`
	Direction      string `form:"direction"       validate:"omitempty,oneof=asc desc"`
	ManufacturerID string `form:"manufacturer_id"`
}

// SaveProductRequest is the edited product. With RelatedIDs set the content is
// written to those sibling products instead of the product itself.
type SaveProductRequest struct {
	ID                   string   `json:"id"`
	Name                 string   `json:"name"                   validate:"required"`
	ProductNumber        string   `json:"product_number"         validate:"required"`
	Active               bool     `json:"active"`
	Description          string   `json:"description"`
	ShortText            string   `json:"short_text"`
	MetaTitle            string   `json:"meta_title"`
	MetaDescription      string   `json:"meta_description"`
	Keywords             string   `json:"keywords"`
	CustomSearchKeywords string   `json:"custom_search_keywords"`
	EAN                  string   `json:"ean"`
	CategoryIDs          []string `json:"category_ids"`
	Gender               string   `json:"gender"                 validate:"omitempty,oneof=Damen Herren Unisex"`
	RelatedIDs           []string `json:"related_ids"`
}

type SanitizeRequest struct {
	HTML                 string `json:"html"`
	FormatTables         *bool  `json:"format_tables"`
	UnwrapListParagraphs *bool  `json:"unwrap_list_paragraphs"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ProductPageResponse struct {
	Products []model.Product `json:"products"`
	Total    int             `json:"total"`
	Page     int             `json:"page"`
	Limit    int             `json:"limit"`
}

type ProductDetailResponse struct {
	Product      model.Product   `json:"product"`
	Related      []model.Product `json:"related"`
	Manufacturer string          `json:"manufacturer"`
}

// SEOField reports one length-limited field. Color is what the editor shows.
type SEOField struct {
	Length int    `json:"length"`
	Max    int    `json:"max"`
	OK     bool   `json:"ok"`
	Color  string `json:"color"` // green | red
}

type SEOReport struct {
	MetaTitle       SEOField `json:"meta_title"`
	MetaDescription SEOField `json:"meta_description"`
	Warnings        []string `json:"warnings"`
}

type SaveProductResponse struct {
	Product      *model.Product `json:"product,omitempty"`
	Target       string         `json:"target"` // main | related
	RelatedCount int            `json:"related_count"`
	SEO          SEOReport      `json:"seo"`
	RevisionID   string         `json:"revision_id,omitempty"`
}

type SanitizeResponse struct {
	HTML string `json:"html"`
}

type RevisionResponse struct {
	ID              string    `json:"id"`
	ProductID       string    `json:"product_id"`
	UserID          *string   `json:"user_id"`
	Target          string    `json:"target"`
	RelatedCount    int       `json:"related_count"`
	Description     string    `json:"description"`
	MetaTitle       string    `json:"meta_title"`
	MetaDescription string    `json:"meta_description"`
	Keywords        string    `json:"keywords"`
	CreatedAt       time.Time `json:"created_at"`
}
