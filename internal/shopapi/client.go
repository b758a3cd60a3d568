// Package shopapi is the client for the shop's product administration API.
package shopapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"catalogdesk/internal/infra"
	"catalogdesk/internal/model"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// Config holds connection settings; see config.Config for the env names.
type Config struct {
	BaseURL    string
	TokenURL   string // empty disables OAuth2 (local mock shop)
	ClientID   string
	Username   string
	Password   string
	RatePerSec float64
	Timeout    time.Duration
}

// Client talks to the shop API. It is safe for concurrent use.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	limiter *rate.Limiter
	breaker *infra.CircuitBreaker
}

// BreakerConfig is the breaker setup for the shop API: only transport errors
// and 5xx answers count as failures. Requests the caller abandoned are not
// recorded at all.
func BreakerConfig() infra.CircuitBreakerConfig {
	bc := infra.DefaultCBConfig("shopapi")
	bc.IsFailure = countsAgainstBreaker
	bc.IsIgnored = abandonedByCaller
	return bc
}

// New builds a client. ctx scopes token fetches and must outlive the client.
func New(ctx context.Context, cfg Config, breaker *infra.CircuitBreaker) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("shopapi: invalid base url %q", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 10
	}
	if breaker == nil {
		breaker = infra.NewCircuitBreaker(BreakerConfig())
	}

	httpClient := &http.Client{Timeout: cfg.Timeout}
	if cfg.TokenURL != "" {
		ts := newPasswordTokenSource(ctx, cfg, httpClient)
		httpClient = oauth2.NewClient(ctx, ts)
		httpClient.Timeout = cfg.Timeout
	}

	burst := int(cfg.RatePerSec)
	if burst < 1 {
		burst = 1
	}
	return &Client{
		baseURL: base,
		http:    httpClient,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), burst),
		breaker: breaker,
	}, nil
}

// Breaker exposes the breaker for health reporting.
func (c *Client) Breaker() *infra.CircuitBreaker { return c.breaker }

// ── Token ─────────────────────────────────────────────────────────────────────

// passwordTokenSource performs the password grant again whenever the cached
// token is about to expire; the shop does not issue refresh tokens.
type passwordTokenSource struct {
	ctx      context.Context
	conf     *oauth2.Config
	username string
	password string
}

func newPasswordTokenSource(ctx context.Context, cfg Config, httpClient *http.Client) oauth2.TokenSource {
	conf := &oauth2.Config{
		ClientID: firstNonEmpty(cfg.ClientID, "administration"),
		Endpoint: oauth2.Endpoint{TokenURL: cfg.TokenURL, AuthStyle: oauth2.AuthStyleInParams},
		Scopes:   []string{"read"},
	}
	src := &passwordTokenSource{
		ctx:      context.WithValue(ctx, oauth2.HTTPClient, httpClient),
		conf:     conf,
		username: cfg.Username,
		password: cfg.Password,
	}
	// Renew a minute before expiry.
	return oauth2.ReuseTokenSourceWithExpiry(nil, src, time.Minute)
}

func (s *passwordTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.conf.PasswordCredentialsToken(s.ctx, s.username, s.password)
	if err != nil {
		log.Error().Err(err).Msg("shopapi: token request failed")
		return nil, err
	}
	log.Debug().Time("expiry", tok.Expiry).Msg("shopapi: token acquired")
	return tok, nil
}

// ── Operations ────────────────────────────────────────────────────────────────

// ListQuery is the paging and filter payload of the list and search endpoints.
type ListQuery struct {
	SearchTerm     string `json:"searchTerm"`
	Page           int    `json:"page"`
	Limit          int    `json:"limit"`
	SortField      string `json:"sortField"`
	SortDirection  string `json:"sortDirection"`
	ManufacturerID string `json:"manufacturerId,omitempty"`
}

// ProductPage is one page of products plus the total count.
type ProductPage struct {
	Products []model.Product
	Total    int
}

// ProductForm is the editable subset written back to the shop.
type ProductForm struct {
	ID                   string   `json:"id"`
	Name                 string   `json:"name,omitempty"`
	Active               bool     `json:"active"`
	Description          string   `json:"description"`
	ShortText            string   `json:"shortText"`
	MetaTitle            string   `json:"metaTitle"`
	MetaDescription      string   `json:"metaDescription"`
	Keywords             string   `json:"keywords"`
	CustomSearchKeywords string   `json:"customSearchKeywords"`
	EAN                  string   `json:"ean"`
	CategoryIDs          []string `json:"categoryIds"`
	ProductNumber        string   `json:"productNumber"`
	Gender               string   `json:"gender"`
}

// RelatedUpdate names a sibling product to receive the form data.
type RelatedUpdate struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

func (c *Client) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	var resp struct {
		Product rawProduct `json:"product"`
	}
	if err := c.do(ctx, http.MethodGet, "/single-product/"+url.PathEscape(id), nil, &resp); err != nil {
		return nil, err
	}
	p := resp.Product.toModel()
	if p.ID == "" {
		p.ID = id
	}
	return &p, nil
}

func (c *Client) ListProducts(ctx context.Context, q ListQuery) (*ProductPage, error) {
	return c.page(ctx, "/products", q)
}

func (c *Client) SearchProducts(ctx context.Context, q ListQuery) (*ProductPage, error) {
	return c.page(ctx, "/search-products", q)
}

func (c *Client) page(ctx context.Context, path string, q ListQuery) (*ProductPage, error) {
	var resp struct {
		Products      []rawProduct    `json:"products"`
		TotalProducts json.RawMessage `json:"totalProducts"`
	}
	if err := c.do(ctx, http.MethodPost, path, q, &resp); err != nil {
		return nil, err
	}
	return &ProductPage{Products: toModels(resp.Products), Total: parseTotal(resp.TotalProducts)}, nil
}

// RelatedProducts returns the products sharing the given name (colour variants).
func (c *Client) RelatedProducts(ctx context.Context, productName string) ([]model.Product, error) {
	var resp struct {
		RelatedProducts []rawProduct `json:"relatedProducts"`
	}
	body := map[string]string{"productName": productName}
	if err := c.do(ctx, http.MethodPost, "/related-products", body, &resp); err != nil {
		return nil, err
	}
	return toModels(resp.RelatedProducts), nil
}

// UpdateMainProduct writes form to the product it identifies and returns the
// stored product, loading it when the answer does not carry it. The product is
// nil only when that load fails after a successful write.
func (c *Client) UpdateMainProduct(ctx context.Context, form ProductForm) (*model.Product, error) {
	var resp struct {
		Success        bool        `json:"success"`
		UpdatedProduct *rawProduct `json:"updatedProduct"`
		Message        string      `json:"message"`
	}
	if err := c.do(ctx, http.MethodPost, "/update-main-product", form, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, &RemoteError{Status: http.StatusOK, Message: firstNonEmpty(resp.Message, "Error updating product")}
	}
	if resp.UpdatedProduct == nil {
		p, err := c.GetProduct(ctx, form.ID)
		if err != nil {
			log.Warn().Err(err).Str("product_id", form.ID).Msg("shopapi: product updated but reload failed")
			return nil, nil
		}
		return p, nil
	}
	p := resp.UpdatedProduct.toModel()
	return &p, nil
}

// UpdateRelatedProducts writes form to every listed product. The name is never
// sent so siblings keep their own names.
func (c *Client) UpdateRelatedProducts(ctx context.Context, updates []RelatedUpdate, form ProductForm) error {
	form.Name = ""
	body := struct {
		Updates  []RelatedUpdate `json:"updates"`
		FormData ProductForm     `json:"formData"`
	}{updates, form}
	return c.do(ctx, http.MethodPost, "/update-related-products", body, nil)
}

func (c *Client) Manufacturers(ctx context.Context) ([]model.Manufacturer, error) {
	var resp struct {
		Data []rawNamed `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/product-manufacturer", nil, &resp); err != nil {
		return nil, err
	}
	out := make([]model.Manufacturer, 0, len(resp.Data))
	for _, m := range resp.Data {
		out = append(out, model.Manufacturer{ID: m.ID, Name: m.Attributes.Name})
	}
	return out, nil
}

func (c *Client) Categories(ctx context.Context) ([]model.Category, error) {
	var resp struct {
		Data []rawNamed `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/categories", nil, &resp); err != nil {
		return nil, err
	}
	out := make([]model.Category, 0, len(resp.Data))
	for _, cat := range resp.Data {
		out = append(out, model.Category{ID: cat.ID, Name: cat.Attributes.Name, ParentID: cat.Attributes.ParentID})
	}
	return out, nil
}

// ── Transport ─────────────────────────────────────────────────────────────────

// do sends one request through the limiter and the breaker and decodes a 2xx
// body into out (if non-nil).
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var payload []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("shopapi: encode %s: %w", path, err)
		}
		payload = b
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return transportError(ctx, err)
	}

	start := time.Now()
	var status int
	err := c.breaker.Execute(func() error {
		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, body)
		if err != nil {
			return fmt.Errorf("shopapi: create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return transportError(ctx, err)
		}
		defer resp.Body.Close()
		status = resp.StatusCode

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return transportError(ctx, fmt.Errorf("read body: %w", err))
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return remoteError(resp.StatusCode, data)
		}
		if out == nil || len(bytes.TrimSpace(data)) == 0 {
			return nil
		}
		if err := json.Unmarshal(data, out); err != nil {
			return &RemoteError{Status: resp.StatusCode, Message: "malformed response: " + err.Error()}
		}
		return nil
	})
	if errors.Is(err, infra.ErrCircuitOpen) {
		err = fmt.Errorf("%w: %w", ErrTransport, err)
	}

	log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", status).
		Dur("latency", time.Since(start)).
		Err(err).
		Msg("shopapi request")
	return err
}

func remoteError(status int, body []byte) *RemoteError {
	var e struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	}
	_ = json.Unmarshal(body, &e)
	if e.Message == "" {
		e.Message = "Server error occurred"
	}
	return &RemoteError{Status: status, Message: e.Message, Code: e.Code}
}

// parseTotal accepts totalProducts as number or numeric string.
func parseTotal(raw json.RawMessage) int {
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if _, err := fmt.Sscan(s, &n); err == nil {
			return n
		}
	}
	return 0
}
