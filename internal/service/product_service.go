package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"catalogdesk/internal/dto"
	"catalogdesk/internal/model"
	"catalogdesk/internal/repository"
	"catalogdesk/internal/richtext"
	"catalogdesk/internal/shopapi"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Save targets recorded on revisions and returned to the editor.
const (
	TargetMain    = "main"
	TargetRelated = "related"
)

const (
	defaultPageSize     = 10
	defaultSortField    = "name"
	defaultSortDir      = "asc"
	revisionListLimit   = 50
	defaultLookupTTLMin = 10
)

// ProductService defines the business logic contract for catalog products.
type ProductService interface {
	Get(ctx context.Context, id string) (*model.Product, error)
	Detail(ctx context.Context, id string) (*dto.ProductDetailResponse, error)
	List(ctx context.Context, q dto.ProductListQuery) (*dto.ProductPageResponse, error)
	Search(ctx context.Context, q dto.ProductListQuery) (*dto.ProductPageResponse, error)
	Related(ctx context.Context, id string) ([]model.Product, error)
	Manufacturers(ctx context.Context) ([]model.Manufacturer, error)
	Categories(ctx context.Context) ([]model.Category, error)
	AdoptContent(ctx context.Context, id string) (*model.Product, error)
	Save(ctx context.Context, userID *uuid.UUID, req dto.SaveProductRequest) (*dto.SaveProductResponse, error)
	Revisions(ctx context.Context, productID string) ([]dto.RevisionResponse, error)
	Sanitize(req dto.SanitizeRequest) dto.SanitizeResponse
}

type productService struct {
	shop      ShopClient
	lookups   repository.LookupCache
	revisions repository.RevisionRepository
	lookupTTL time.Duration
}

func NewProductService(shop ShopClient, lookups repository.LookupCache, revisions repository.RevisionRepository, lookupTTL time.Duration) ProductService {
	if lookupTTL <= 0 {
		lookupTTL = defaultLookupTTLMin * time.Minute
	}
	return &productService{shop: shop, lookups: lookups, revisions: revisions, lookupTTL: lookupTTL}
}

// ── Reads ─────────────────────────────────────────────────────────────────────

func (s *productService) Get(ctx context.Context, id string) (*model.Product, error) {
	p, err := s.shop.GetProduct(ctx, id)
	if shopapi.IsNotFound(err) {
		return nil, fmt.Errorf("product %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Detail loads the product, then its siblings and manufacturer name in parallel.
func (s *productService) Detail(ctx context.Context, id string) (*dto.ProductDetailResponse, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	var related []model.Product
	manufacturer := p.Manufacturer
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		related, err = s.relatedTo(gctx, p)
		return err
	})
	g.Go(func() error {
		names, err := s.manufacturerNames(gctx)
		if err != nil {
			log.Warn().Err(err).Str("product_id", id).Msg("manufacturer lookup failed")
			return nil
		}
		manufacturer = resolveManufacturer(p, names)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	p.Manufacturer = manufacturer
	return &dto.ProductDetailResponse{Product: *p, Related: related, Manufacturer: manufacturer}, nil
}

func (s *productService) List(ctx context.Context, q dto.ProductListQuery) (*dto.ProductPageResponse, error) {
	return s.page(ctx, q, s.shop.ListProducts)
}

// Search falls back to List for an empty search term.
func (s *productService) Search(ctx context.Context, q dto.ProductListQuery) (*dto.ProductPageResponse, error) {
	if strings.TrimSpace(q.Query) == "" {
		return s.List(ctx, q)
	}
	return s.page(ctx, q, s.shop.SearchProducts)
}

type pageFunc func(ctx context.Context, q shopapi.ListQuery) (*shopapi.ProductPage, error)

func (s *productService) page(ctx context.Context, q dto.ProductListQuery, fetch pageFunc) (*dto.ProductPageResponse, error) {
	lq := shopapi.ListQuery{
		SearchTerm:     strings.TrimSpace(q.Query),
		Page:           q.Page,
		Limit:          q.Limit,
		SortField:      q.Sort,
		SortDirection:  q.Direction,
		ManufacturerID: q.ManufacturerID,
	}
	if lq.Page < 1 {
		lq.Page = 1
	}
	if lq.Limit == 0 {
		lq.Limit = defaultPageSize
	}
	if lq.SortField == "" {
		lq.SortField = defaultSortField
	}
	if lq.SortDirection == "" {
		lq.SortDirection = defaultSortDir
	}

	page, err := fetch(ctx, lq)
	if err != nil {
		return nil, err
	}

	products := page.Products
	if products == nil {
		products = []model.Product{}
	}
	if names, err := s.manufacturerNames(ctx); err != nil {
		log.Warn().Err(err).Msg("manufacturer lookup failed, names left unresolved")
	} else {
		for i := range products {
			products[i].Manufacturer = resolveManufacturer(&products[i], names)
		}
	}

	return &dto.ProductPageResponse{Products: products, Total: page.Total, Page: lq.Page, Limit: lq.Limit}, nil
}

func (s *productService) Related(ctx context.Context, id string) ([]model.Product, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.relatedTo(ctx, p)
}

// relatedTo lists the products sharing p's name, without p itself.
func (s *productService) relatedTo(ctx context.Context, p *model.Product) ([]model.Product, error) {
	if strings.TrimSpace(p.Name) == "" {
		return []model.Product{}, nil
	}
	all, err := s.shop.RelatedProducts(ctx, p.Name)
	if err != nil {
		return nil, err
	}
	out := make([]model.Product, 0, len(all))
	for _, r := range all {
		if r.ID != p.ID {
			out = append(out, r)
		}
	}
	return out, nil
}

// ── Lookups ───────────────────────────────────────────────────────────────────

// Manufacturers are returned in German collation order so umlauts sort next
// to their base letter.
func (s *productService) Manufacturers(ctx context.Context) ([]model.Manufacturer, error) {
	return cachedLookup(ctx, s.lookups, repository.KeyManufacturers, s.lookupTTL, func(ctx context.Context) ([]model.Manufacturer, error) {
		list, err := s.shop.Manufacturers(ctx)
		if err != nil {
			return nil, err
		}
		sortCollated(list, func(m model.Manufacturer) string { return m.Name })
		return list, nil
	})
}

func (s *productService) Categories(ctx context.Context) ([]model.Category, error) {
	return cachedLookup(ctx, s.lookups, repository.KeyCategories, s.lookupTTL, func(ctx context.Context) ([]model.Category, error) {
		list, err := s.shop.Categories(ctx)
		if err != nil {
			return nil, err
		}
		sortCollated(list, func(c model.Category) string { return c.Name })
		return list, nil
	})
}

func (s *productService) manufacturerNames(ctx context.Context) (map[string]string, error) {
	list, err := s.Manufacturers(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(list))
	for _, m := range list {
		names[m.ID] = m.Name
	}
	return names, nil
}

func resolveManufacturer(p *model.Product, names map[string]string) string {
	if p.ManufacturerID == "" {
		return p.Manufacturer
	}
	if name, ok := names[p.ManufacturerID]; ok {
		return name
	}
	return model.UnknownManufacturerName
}

// cachedLookup serves key from the lookup cache and fills it on a miss. Cache
// failures are logged and bypassed.
func cachedLookup[T any](ctx context.Context, cache repository.LookupCache, key string, ttl time.Duration, fetch func(context.Context) ([]T, error)) ([]T, error) {
	var out []T
	hit, err := cache.Get(ctx, key, &out)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("lookup cache read failed")
	}
	if hit {
		return out, nil
	}

	out, err = fetch(ctx)
	if err != nil {
		return nil, err
	}
	if err := cache.Set(ctx, key, out, ttl); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("lookup cache write failed")
	}
	return out, nil
}

func sortCollated[T any](items []T, name func(T) string) {
	col := collate.New(language.German, collate.IgnoreCase)
	slices.SortStableFunc(items, func(a, b T) int {
		return col.CompareString(name(a), name(b))
	})
}

// ── Editing ───────────────────────────────────────────────────────────────────

// AdoptContent returns p with the descriptive and SEO fields of the first
// related product that has a description. Nothing is written.
func (s *productService) AdoptContent(ctx context.Context, id string) (*model.Product, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	related, err := s.relatedTo(ctx, p)
	if err != nil {
		return nil, err
	}
	for _, r := range related {
		if r.Description == "" {
			continue
		}
		p.Description = r.Description
		p.ShortText = r.ShortText
		p.MetaTitle = r.MetaTitle
		p.MetaDescription = r.MetaDescription
		p.Keywords = r.Keywords
		return p, nil
	}
	return nil, fmt.Errorf("product %s: %w", id, ErrNoSiblingContent)
}

// Save validates req before anything goes over the network. Without related
// IDs the product itself is updated; with them the content is copied to the
// listed siblings and the name is left alone.
func (s *productService) Save(ctx context.Context, userID *uuid.UUID, req dto.SaveProductRequest) (*dto.SaveProductResponse, error) {
	req.ID = strings.TrimSpace(req.ID)
	req.Name = strings.TrimSpace(req.Name)
	req.ProductNumber = strings.TrimSpace(req.ProductNumber)
	description := richtext.Sanitize(req.Description, richtext.DefaultOptions())
	if err := validateSave(req, description); err != nil {
		return nil, err
	}

	form := shopapi.ProductForm{
		ID:                   req.ID,
		Name:                 req.Name,
		Active:               req.Active,
		Description:          description,
		ShortText:            req.ShortText,
		MetaTitle:            req.MetaTitle,
		MetaDescription:      req.MetaDescription,
		Keywords:             req.Keywords,
		CustomSearchKeywords: req.CustomSearchKeywords,
		EAN:                  req.EAN,
		CategoryIDs:          req.CategoryIDs,
		ProductNumber:        req.ProductNumber,
		Gender:               req.Gender,
	}

	resp := &dto.SaveProductResponse{SEO: seoReport(form.MetaTitle, form.MetaDescription)}
	if len(req.RelatedIDs) == 0 {
		updated, err := s.shop.UpdateMainProduct(ctx, form)
		if err != nil {
			return nil, err
		}
		resp.Target = TargetMain
		resp.Product = updated
	} else {
		updates := make([]shopapi.RelatedUpdate, len(req.RelatedIDs))
		for i, id := range req.RelatedIDs {
			updates[i] = shopapi.RelatedUpdate{ID: id}
		}
		if err := s.shop.UpdateRelatedProducts(ctx, updates, form); err != nil {
			return nil, err
		}
		resp.Target = TargetRelated
		resp.RelatedCount = len(updates)
	}

	rev := &model.ProductRevision{
		ProductID:       form.ID,
		UserID:          userID,
		Target:          resp.Target,
		RelatedCount:    resp.RelatedCount,
		Description:     form.Description,
		MetaTitle:       form.MetaTitle,
		MetaDescription: form.MetaDescription,
		Keywords:        form.Keywords,
	}
	// The shop already accepted the write; a lost revision is only logged.
	if err := s.revisions.Create(ctx, rev); err != nil {
		log.Error().Err(err).Str("product_id", form.ID).Msg("failed to record product revision")
	} else {
		resp.RevisionID = rev.ID.String()
	}

	log.Info().Str("product_id", form.ID).Str("target", resp.Target).
		Int("related", resp.RelatedCount).Msg("product saved")
	return resp, nil
}

// validateSave checks the request and the sanitized description, so markup
// that sanitizes away cannot satisfy the minimum length.
func validateSave(req dto.SaveProductRequest, description string) error {
	err := validateStruct(req)
	var ve *ValidationError
	if err != nil && !errors.As(err, &ve) {
		return err
	}
	if ve == nil {
		ve = &ValidationError{Fields: map[string]string{}}
	}
	if req.ID == "" {
		ve.Fields["id"] = "required"
	}
	if strings.TrimSpace(req.Description) != "" &&
		utf8.RuneCountInString(richtext.PlainText(description)) < model.DescriptionMinLength {
		ve.Fields["description"] = "min"
	}
	if len(ve.Fields) > 0 {
		return ve
	}
	return nil
}

func seoReport(metaTitle, metaDescription string) dto.SEOReport {
	r := dto.SEOReport{
		MetaTitle:       seoField(metaTitle, model.MetaTitleMaxLength),
		MetaDescription: seoField(metaDescription, model.MetaDescriptionMaxLength),
		Warnings:        []string{},
	}
	if !r.MetaTitle.OK {
		r.Warnings = append(r.Warnings, fmt.Sprintf("meta title exceeds maximum length of %d characters", model.MetaTitleMaxLength))
	}
	if !r.MetaDescription.OK {
		r.Warnings = append(r.Warnings, fmt.Sprintf("meta description exceeds maximum length of %d characters", model.MetaDescriptionMaxLength))
	}
	return r
}

func seoField(v string, max int) dto.SEOField {
	n := utf8.RuneCountInString(v)
	f := dto.SEOField{Length: n, Max: max, OK: n <= max, Color: "green"}
	if !f.OK {
		f.Color = "red"
	}
	return f
}

func (s *productService) Revisions(ctx context.Context, productID string) ([]dto.RevisionResponse, error) {
	revs, err := s.revisions.ListByProduct(ctx, productID, revisionListLimit)
	if err != nil {
		return nil, err
	}
	out := make([]dto.RevisionResponse, len(revs))
	for i, r := range revs {
		var uid *string
		if r.UserID != nil {
			v := r.UserID.String()
			uid = &v
		}
		out[i] = dto.RevisionResponse{
			ID:              r.ID.String(),
			ProductID:       r.ProductID,
			UserID:          uid,
			Target:          r.Target,
			RelatedCount:    r.RelatedCount,
			Description:     r.Description,
			MetaTitle:       r.MetaTitle,
			MetaDescription: r.MetaDescription,
			Keywords:        r.Keywords,
			CreatedAt:       r.CreatedAt,
		}
	}
	return out, nil
}

func (s *productService) Sanitize(req dto.SanitizeRequest) dto.SanitizeResponse {
	opts := richtext.DefaultOptions()
	if req.FormatTables != nil {
		opts.FormatTables = *req.FormatTables
	}
	if req.UnwrapListParagraphs != nil {
		opts.UnwrapListParagraphs = *req.UnwrapListParagraphs
	}
	return dto.SanitizeResponse{HTML: richtext.Sanitize(req.HTML, opts)}
}
