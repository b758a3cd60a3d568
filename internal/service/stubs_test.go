package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"catalogdesk/internal/infra"
	"catalogdesk/internal/model"
	"catalogdesk/internal/repository"
	"catalogdesk/internal/shopapi"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ── Shop API stub ─────────────────────────────────────────────────────────────

type stubShop struct {
	mu            sync.Mutex
	calls         []string
	products      map[string]model.Product
	manufacturers []model.Manufacturer
	categories    []model.Category
	page          *shopapi.ProductPage
	lastQuery     shopapi.ListQuery
	mainForm      *shopapi.ProductForm
	relatedForm   *shopapi.ProductForm
	relatedIDs    []string
	err           error
}

func newStubShop(products ...model.Product) *stubShop {
	s := &stubShop{products: map[string]model.Product{}}
	for _, p := range products {
		s.products[p.ID] = p
	}
	return s
}

func (s *stubShop) record(call string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
	return s.err
}

func (s *stubShop) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func (s *stubShop) countOf(call string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (s *stubShop) GetProduct(_ context.Context, id string) (*model.Product, error) {
	if err := s.record("get"); err != nil {
		return nil, err
	}
	p, ok := s.products[id]
	if !ok {
		return nil, &shopapi.RemoteError{Status: 404, Message: "Product not found"}
	}
	return &p, nil
}

func (s *stubShop) ListProducts(_ context.Context, q shopapi.ListQuery) (*shopapi.ProductPage, error) {
	if err := s.record("list"); err != nil {
		return nil, err
	}
	s.lastQuery = q
	return s.page, nil
}

func (s *stubShop) SearchProducts(_ context.Context, q shopapi.ListQuery) (*shopapi.ProductPage, error) {
	if err := s.record("search"); err != nil {
		return nil, err
	}
	s.lastQuery = q
	return s.page, nil
}

func (s *stubShop) RelatedProducts(_ context.Context, name string) ([]model.Product, error) {
	if err := s.record("related"); err != nil {
		return nil, err
	}
	var out []model.Product
	for _, p := range s.products {
		if p.Name == name {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *stubShop) UpdateMainProduct(_ context.Context, form shopapi.ProductForm) (*model.Product, error) {
	if err := s.record("update-main"); err != nil {
		return nil, err
	}
	s.mainForm = &form
	return &model.Product{ID: form.ID, Name: form.Name, Description: form.Description}, nil
}

func (s *stubShop) UpdateRelatedProducts(_ context.Context, updates []shopapi.RelatedUpdate, form shopapi.ProductForm) error {
	if err := s.record("update-related"); err != nil {
		return err
	}
	form.Name = ""
	s.relatedForm = &form
	for _, u := range updates {
		s.relatedIDs = append(s.relatedIDs, u.ID)
	}
	return nil
}

func (s *stubShop) Manufacturers(_ context.Context) ([]model.Manufacturer, error) {
	if err := s.record("manufacturers"); err != nil {
		return nil, err
	}
	return append([]model.Manufacturer(nil), s.manufacturers...), nil
}

func (s *stubShop) Categories(_ context.Context) ([]model.Category, error) {
	if err := s.record("categories"); err != nil {
		return nil, err
	}
	return append([]model.Category(nil), s.categories...), nil
}

// ── Lookup cache stub ─────────────────────────────────────────────────────────

type stubLookupCache struct {
	mu   sync.Mutex
	data map[string][]byte
	err  error
}

func newStubLookupCache() *stubLookupCache {
	return &stubLookupCache{data: map[string][]byte{}}
}

func (c *stubLookupCache) Get(_ context.Context, key string, dest any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return false, c.err
	}
	raw, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (c *stubLookupCache) Set(_ context.Context, key string, v any, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.data[key] = raw
	return nil
}

func (c *stubLookupCache) Invalidate(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

// ── Revision repository stub ──────────────────────────────────────────────────

type stubRevisionRepo struct {
	revs []model.ProductRevision
	err  error
}

func (r *stubRevisionRepo) Create(_ context.Context, rev *model.ProductRevision) error {
	if r.err != nil {
		return r.err
	}
	rev.ID = uuid.New()
	rev.CreatedAt = time.Now()
	r.revs = append(r.revs, *rev)
	return nil
}

func (r *stubRevisionRepo) ListByProduct(_ context.Context, productID string, limit int) ([]model.ProductRevision, error) {
	var out []model.ProductRevision
	for i := len(r.revs) - 1; i >= 0 && len(out) < limit; i-- {
		if r.revs[i].ProductID == productID {
			out = append(out, r.revs[i])
		}
	}
	return out, nil
}

// ── Order cache stub ──────────────────────────────────────────────────────────

type stubOrderCache struct {
	mu      sync.Mutex
	ticket  int64
	current repository.OrderSnapshot
	stores  int
}

func (c *stubOrderCache) Begin(context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticket++
	return c.ticket, nil
}

func (c *stubOrderCache) Store(_ context.Context, snap repository.OrderSnapshot) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if snap.Generation <= c.current.Generation {
		return false, nil
	}
	c.current = snap
	c.stores++
	return true, nil
}

func (c *stubOrderCache) Load(context.Context) (*repository.OrderSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := c.current
	if snap.Orders == nil {
		snap.Orders = []model.Order{}
	}
	return &snap, nil
}

func (c *stubOrderCache) Status(context.Context) (*repository.OrderStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := &repository.OrderStatus{
		Count:      int64(len(c.current.Orders)),
		Dropped:    c.current.Dropped,
		Generation: c.current.Generation,
	}
	if !c.current.RefreshedAt.IsZero() {
		at := c.current.RefreshedAt
		st.RefreshedAt = &at
	}
	return st, nil
}

// ── Feed stub ─────────────────────────────────────────────────────────────────

type stubFeed struct {
	mu    sync.Mutex
	body  map[string]string
	err   error
	calls int
	// gate, when set, blocks Fetch until closed.
	gate chan struct{}
}

func (f *stubFeed) Fetch(ctx context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	f.calls++
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return []byte(f.body[url]), nil
}

func (f *stubFeed) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// ── Supplier repository stub ──────────────────────────────────────────────────

type stubSupplierRepo struct {
	suppliers map[string]model.Supplier
	replaced  int
}

func newStubSupplierRepo(sups ...model.Supplier) *stubSupplierRepo {
	r := &stubSupplierRepo{suppliers: map[string]model.Supplier{}}
	for _, s := range sups {
		s.Active = true
		r.suppliers[s.ID] = s
	}
	return r
}

func (r *stubSupplierRepo) ReplaceAll(_ context.Context, sups []model.Supplier) error {
	r.replaced++
	for id, s := range r.suppliers {
		s.Active = false
		r.suppliers[id] = s
	}
	for _, s := range sups {
		s.Active = true
		r.suppliers[s.ID] = s
	}
	return nil
}

func (r *stubSupplierRepo) FindByID(_ context.Context, id string) (*model.Supplier, error) {
	s, ok := r.suppliers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &s, nil
}

func (r *stubSupplierRepo) List(_ context.Context) ([]model.Supplier, error) {
	var out []model.Supplier
	for _, s := range r.suppliers {
		if s.Active {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ── User repository stub ──────────────────────────────────────────────────────

type stubUserRepo struct {
	users map[string]*model.User
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: map[string]*model.User{}}
}

func (r *stubUserRepo) Create(_ context.Context, u *model.User) error {
	key := strings.ToLower(u.Username)
	if _, ok := r.users[key]; ok {
		return errors.New("duplicate username")
	}
	u.ID = uuid.New()
	r.users[key] = u
	return nil
}

func (r *stubUserRepo) FindByUsername(_ context.Context, username string) (*model.User, error) {
	u, ok := r.users[strings.ToLower(username)]
	if !ok || !u.Active {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (r *stubUserRepo) FindByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	for _, u := range r.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// ── Mail queue stub ───────────────────────────────────────────────────────────

type stubMailQueue struct {
	sent []infra.Message
	err  error
}

func (q *stubMailQueue) EnqueueEmail(_ context.Context, msg infra.Message) error {
	if q.err != nil {
		return q.err
	}
	q.sent = append(q.sent, msg)
	return nil
}
