package shopapi

import (
	"time"

	"catalogdesk/internal/model"
)

// Custom fields the shop stores product data in.
const (
	fieldModelCode = "custom_add_product_attributes_oomodellcode"
	fieldShortText = "custom_add_product_attributes_short_text"
	fieldGender    = "custom_add_product_attributes_gender"
)

// rawAttributes is the shop's attribute bag. Every field is optional.
type rawAttributes struct {
	Name                 string            `json:"name"`
	Active               bool              `json:"active"`
	Description          *string           `json:"description"`
	CustomSearchKeywords *string           `json:"customSearchKeywords"`
	EAN                  *string           `json:"ean"`
	MetaDescription      *string           `json:"metaDescription"`
	MetaTitle            *string           `json:"metaTitle"`
	Keywords             *string           `json:"keywords"`
	CategoryIDs          []string          `json:"categoryIds"`
	ManufacturerID       string            `json:"manufacturerId"`
	ManufacturerNumber   string            `json:"manufacturerNumber"`
	Stock                int               `json:"stock"`
	Gender               string            `json:"gender"`
	ShortText            string            `json:"shortText"`
	Color                *string           `json:"color"`
	UpdatedAt            *time.Time        `json:"updatedAt"`
	CustomFields         map[string]string `json:"customFields"`
}

// rawProduct covers the three shapes the shop answers with: JSON:API
// ({data:{id,attributes}}), flat resources ({id,attributes}) and plain
// objects with the attributes inlined.
type rawProduct struct {
	ID         string         `json:"id"`
	Data       *rawResource   `json:"data"`
	Attributes *rawAttributes `json:"attributes"`
	rawAttributes
	ProductNumber string `json:"productNumber"`
}

type rawResource struct {
	ID         string         `json:"id"`
	Attributes *rawAttributes `json:"attributes"`
}

type rawNamed struct {
	ID         string `json:"id"`
	Attributes struct {
		Name     string `json:"name"`
		ParentID string `json:"parentId"`
	} `json:"attributes"`
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// toModel maps any of the shapes onto model.Product. Nested attributes win
// over inlined ones.
func (r rawProduct) toModel() model.Product {
	attrs := &r.rawAttributes
	id := r.ID
	switch {
	case r.Data != nil && r.Data.Attributes != nil:
		attrs = r.Data.Attributes
		id = firstNonEmpty(r.Data.ID, r.ID)
	case r.Attributes != nil:
		attrs = r.Attributes
	}
	custom := attrs.CustomFields
	if custom == nil {
		custom = r.CustomFields
	}

	p := model.Product{
		ID:                   id,
		Name:                 firstNonEmpty(attrs.Name, r.Name),
		Active:               attrs.Active || r.Active,
		Description:          firstNonEmpty(str(attrs.Description), str(r.Description)),
		ShortText:            firstNonEmpty(custom[fieldShortText], attrs.ShortText, r.ShortText),
		MetaTitle:            firstNonEmpty(str(attrs.MetaTitle), str(r.MetaTitle)),
		MetaDescription:      firstNonEmpty(str(attrs.MetaDescription), str(r.MetaDescription)),
		Keywords:             firstNonEmpty(str(attrs.Keywords), str(r.Keywords)),
		CustomSearchKeywords: firstNonEmpty(str(attrs.CustomSearchKeywords), str(r.CustomSearchKeywords)),
		EAN:                  firstNonEmpty(str(attrs.EAN), str(r.EAN)),
		CategoryIDs:          attrs.CategoryIDs,
		ManufacturerID:       attrs.ManufacturerID,
		ProductNumber:        firstNonEmpty(custom[fieldModelCode], r.ProductNumber, attrs.ManufacturerNumber),
		Stock:                attrs.Stock,
		Gender:               firstNonEmpty(r.Gender, attrs.Gender, custom[fieldGender]),
		Color:                firstNonEmpty(str(attrs.Color), str(r.Color)),
		UpdatedAt:            attrs.UpdatedAt,
	}
	if p.CategoryIDs == nil {
		p.CategoryIDs = r.CategoryIDs
	}
	if p.CategoryIDs == nil {
		p.CategoryIDs = []string{}
	}
	if p.Stock == 0 {
		p.Stock = r.Stock
	}
	return p
}

func toModels(raws []rawProduct) []model.Product {
	out := make([]model.Product, 0, len(raws))
	for _, r := range raws {
		out = append(out, r.toModel())
	}
	return out
}
