package service

import (
	"context"

	"catalogdesk/internal/infra"
	"catalogdesk/internal/model"
	"catalogdesk/internal/shopapi"
)

// ShopClient is the subset of the shop API the services use. *shopapi.Client
// implements it.
type ShopClient interface {
	GetProduct(ctx context.Context, id string) (*model.Product, error)
	ListProducts(ctx context.Context, q shopapi.ListQuery) (*shopapi.ProductPage, error)
	SearchProducts(ctx context.Context, q shopapi.ListQuery) (*shopapi.ProductPage, error)
	RelatedProducts(ctx context.Context, productName string) ([]model.Product, error)
	UpdateMainProduct(ctx context.Context, form shopapi.ProductForm) (*model.Product, error)
	UpdateRelatedProducts(ctx context.Context, updates []shopapi.RelatedUpdate, form shopapi.ProductForm) error
	Manufacturers(ctx context.Context) ([]model.Manufacturer, error)
	Categories(ctx context.Context) ([]model.Category, error)
}

// FeedFetcher downloads a feed document. *infra.FeedClient implements it.
type FeedFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// MailQueue hands an outgoing message to the background email worker.
type MailQueue interface {
	EnqueueEmail(ctx context.Context, msg infra.Message) error
}

var (
	_ ShopClient  = (*shopapi.Client)(nil)
	_ FeedFetcher = (*infra.FeedClient)(nil)
)
