package shopapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"catalogdesk/internal/infra"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeShop struct {
	srv        *httptest.Server
	tokenCalls atomic.Int32
	apiCalls   atomic.Int32
	lastBody   atomic.Value // []byte
	lastAuth   atomic.Value // string
	handleAPI  func(w http.ResponseWriter, r *http.Request)
}

func newFakeShop(t *testing.T, handle func(w http.ResponseWriter, r *http.Request)) *fakeShop {
	t.Helper()
	fs := &fakeShop{handleAPI: handle}
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		fs.tokenCalls.Add(1)
		_ = r.ParseForm()
		if r.Form.Get("grant_type") != "password" || r.Form.Get("username") != "admin" || r.Form.Get("client_id") != "administration" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok-1","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		fs.apiCalls.Add(1)
		body, _ := io.ReadAll(r.Body)
		fs.lastBody.Store(body)
		fs.lastAuth.Store(r.Header.Get("Authorization"))
		fs.handleAPI(w, r)
	})
	fs.srv = httptest.NewServer(mux)
	t.Cleanup(fs.srv.Close)
	return fs
}

func (fs *fakeShop) client(t *testing.T, breaker *infra.CircuitBreaker) *Client {
	t.Helper()
	c, err := New(context.Background(), Config{
		BaseURL:    fs.srv.URL + "/api",
		TokenURL:   fs.srv.URL + "/oauth/token",
		ClientID:   "administration",
		Username:   "admin",
		Password:   "secret",
		RatePerSec: 1000,
		Timeout:    2 * time.Second,
	}, breaker)
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func TestGetProduct_MapsJSONAPIShapeAndReusesToken(t *testing.T) {
	fs := newFakeShop(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/single-product/p1", r.URL.Path)
		writeJSON(w, http.StatusOK, `{"product":{"data":{"id":"p1","attributes":{
			"name":"Sneaker Low","active":true,"description":"<p>Leder</p>","metaTitle":null,
			"categoryIds":["c1","c2"],"stock":4,"manufacturerId":"m1",
			"customFields":{"custom_add_product_attributes_oomodellcode":"SL-100","custom_add_product_attributes_short_text":"Kurz"}}}}}`)
	})
	c := fs.client(t, nil)

	p, err := c.GetProduct(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "p1", p.ID)
	assert.Equal(t, "Sneaker Low", p.Name)
	assert.True(t, p.Active)
	assert.Equal(t, "<p>Leder</p>", p.Description)
	assert.Equal(t, "", p.MetaTitle)
	assert.Equal(t, []string{"c1", "c2"}, p.CategoryIDs)
	assert.Equal(t, "SL-100", p.ProductNumber)
	assert.Equal(t, "Kurz", p.ShortText)
	assert.Equal(t, 4, p.Stock)
	assert.Equal(t, "Bearer tok-1", fs.lastAuth.Load())

	_, err = c.GetProduct(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, int32(1), fs.tokenCalls.Load())
}

func TestListProducts_TotalAsString(t *testing.T) {
	fs := newFakeShop(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"products":[
			{"id":"a","attributes":{"name":"A","manufacturerNumber":"A-1","manufacturerId":"m1"}},
			{"id":"b","attributes":{"name":"B","description":"x"}}],"totalProducts":"42"}`)
	})
	c := fs.client(t, nil)

	page, err := c.ListProducts(context.Background(), ListQuery{Page: 1, Limit: 10, SortField: "name", SortDirection: "asc"})
	require.NoError(t, err)
	assert.Equal(t, 42, page.Total)
	require.Len(t, page.Products, 2)
	assert.Equal(t, "A-1", page.Products[0].ProductNumber)
	assert.False(t, page.Products[0].HasContent())
	assert.True(t, page.Products[1].HasContent())

	var sent map[string]any
	require.NoError(t, json.Unmarshal(fs.lastBody.Load().([]byte), &sent))
	assert.Equal(t, float64(10), sent["limit"])
	assert.NotContains(t, sent, "manufacturerId")
}

func TestRelatedProducts_FlatShape(t *testing.T) {
	fs := newFakeShop(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"relatedProducts":[{"id":"r1","name":"Sneaker Low","productNumber":"SL-100","color":"rot","description":"<p>x</p>"}]}`)
	})
	c := fs.client(t, nil)

	related, err := c.RelatedProducts(context.Background(), "Sneaker Low")
	require.NoError(t, err)
	require.Len(t, related, 1)
	assert.Equal(t, "r1", related[0].ID)
	assert.Equal(t, "SL-100", related[0].ProductNumber)
	assert.Equal(t, "rot", related[0].Color)
	assert.Equal(t, "<p>x</p>", related[0].Description)
	assert.JSONEq(t, `{"productName":"Sneaker Low"}`, string(fs.lastBody.Load().([]byte)))
}

func TestUpdateRelatedProducts_OmitsName(t *testing.T) {
	fs := newFakeShop(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"success":true}`)
	})
	c := fs.client(t, nil)

	err := c.UpdateRelatedProducts(context.Background(),
		[]RelatedUpdate{{ID: "r1"}, {ID: "r2"}},
		ProductForm{ID: "p1", Name: "Sneaker Low", Description: "<p>neu</p>"})
	require.NoError(t, err)

	var sent struct {
		Updates  []map[string]any `json:"updates"`
		FormData map[string]any   `json:"formData"`
	}
	require.NoError(t, json.Unmarshal(fs.lastBody.Load().([]byte), &sent))
	assert.Len(t, sent.Updates, 2)
	assert.NotContains(t, sent.FormData, "name")
	assert.Equal(t, "<p>neu</p>", sent.FormData["description"])
}

func TestUpdateMainProduct_UnsuccessfulIsRemoteError(t *testing.T) {
	fs := newFakeShop(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"success":false}`)
	})
	c := fs.client(t, nil)

	_, err := c.UpdateMainProduct(context.Background(), ProductForm{ID: "p1", Name: "x"})
	var re *RemoteError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, "Error updating product", re.Message)
}

func TestUpdateMainProduct_LoadsProductWhenAnswerOmitsIt(t *testing.T) {
	fs := newFakeShop(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/update-main-product":
			writeJSON(w, http.StatusOK, `{"success":true}`)
		case "/api/single-product/p1":
			writeJSON(w, http.StatusOK, `{"product":{"data":{"id":"p1","attributes":{"name":"Sneaker Low","description":"<p>neu</p>"}}}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	c := fs.client(t, nil)

	p, err := c.UpdateMainProduct(context.Background(), ProductForm{ID: "p1", Name: "Sneaker Low"})
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "p1", p.ID)
	assert.Equal(t, "<p>neu</p>", p.Description)
	assert.EqualValues(t, 2, fs.apiCalls.Load())
}

func TestRemoteErrorClassification(t *testing.T) {
	fs := newFakeShop(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnprocessableEntity, `{"message":"EAN already used","code":"DUPLICATE_EAN"}`)
	})
	c := fs.client(t, nil)

	_, err := c.GetProduct(context.Background(), "p1")
	var re *RemoteError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, http.StatusUnprocessableEntity, re.Status)
	assert.Equal(t, "EAN already used", re.Message)
	assert.Equal(t, "DUPLICATE_EAN", re.Code)
	assert.False(t, errors.Is(err, ErrTransport))
}

func TestNotFound(t *testing.T) {
	fs := newFakeShop(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	_, err := fs.client(t, nil).GetProduct(context.Background(), "missing")
	assert.True(t, IsNotFound(err))
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c, err := New(context.Background(), Config{BaseURL: base + "/api", Timeout: time.Second}, nil)
	require.NoError(t, err)

	_, err = c.Manufacturers(context.Background())
	assert.ErrorIs(t, err, ErrTransport)
}

func TestBreakerOpensOnServerErrorsOnly(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusBadRequest)
	fs := newFakeShop(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, int(status.Load()), `{"message":"nope"}`)
	})
	cfg := infra.DefaultCBConfig("shopapi-test")
	cfg.FailureThreshold = 2
	cfg.OpenTimeout = time.Hour
	cfg.IsFailure = countsAgainstBreaker
	breaker := infra.NewCircuitBreaker(cfg)
	c := fs.client(t, breaker)

	for i := 0; i < 3; i++ {
		_, err := c.Categories(context.Background())
		require.Error(t, err)
	}
	assert.Equal(t, infra.CBClosed, breaker.State())

	status.Store(http.StatusBadGateway)
	for i := 0; i < 2; i++ {
		_, _ = c.Categories(context.Background())
	}
	assert.Equal(t, infra.CBOpen, breaker.State())

	calls := fs.apiCalls.Load()
	_, err := c.Categories(context.Background())
	assert.ErrorIs(t, err, ErrTransport)
	assert.Equal(t, calls, fs.apiCalls.Load())
}

func TestAbandonedRequestsDoNotTripBreaker(t *testing.T) {
	fs := newFakeShop(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(100 * time.Millisecond):
		case <-r.Context().Done():
			return
		}
		writeJSON(w, http.StatusOK, `{"data":[{"id":"m1","attributes":{"name":"Adidas"}}]}`)
	})
	breaker := infra.NewCircuitBreaker(BreakerConfig())
	c := fs.client(t, breaker)

	for i := 0; i < 6; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		_, err := c.Manufacturers(ctx)
		cancel()
		require.Error(t, err)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.ErrorIs(t, err, ErrTransport)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Manufacturers(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, infra.CBClosed, breaker.State())

	ms, err := c.Manufacturers(context.Background())
	require.NoError(t, err)
	assert.Len(t, ms, 1)
}

func TestTransportErrorKeepsCause(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	cfg := BreakerConfig()
	cfg.FailureThreshold = 1
	breaker := infra.NewCircuitBreaker(cfg)
	c, err := New(context.Background(), Config{BaseURL: base + "/api", Timeout: time.Second}, breaker)
	require.NoError(t, err)

	_, err = c.Manufacturers(context.Background())
	assert.ErrorIs(t, err, ErrTransport)
	assert.Equal(t, infra.CBOpen, breaker.State(), "a dead shop still trips the breaker")

	_, err = c.Manufacturers(context.Background())
	assert.ErrorIs(t, err, ErrTransport)
	assert.ErrorIs(t, err, infra.ErrCircuitOpen)
}

func TestManufacturersAndCategories(t *testing.T) {
	fs := newFakeShop(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/product-manufacturer":
			writeJSON(w, http.StatusOK, `{"data":[{"id":"m2","attributes":{"name":"Öko"}},{"id":"m1","attributes":{"name":"Adidas"}}]}`)
		case "/api/categories":
			writeJSON(w, http.StatusOK, `{"data":[{"id":"c1","attributes":{"name":"Schuhe","parentId":"root"}}]}`)
		}
	})
	c := fs.client(t, nil)

	ms, err := c.Manufacturers(context.Background())
	require.NoError(t, err)
	assert.Len(t, ms, 2)
	assert.Equal(t, "Öko", ms[0].Name)

	cats, err := c.Categories(context.Background())
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, "root", cats[0].ParentID)
}

func TestNew_RejectsBadBaseURL(t *testing.T) {
	_, err := New(context.Background(), Config{BaseURL: "not a url"}, nil)
	assert.Error(t, err)
}
