package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"catalogdesk/internal/dto"
	"catalogdesk/internal/model"
	"catalogdesk/internal/orderfeed"
	"catalogdesk/internal/repository"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// SupplierService keeps the local supplier table in line with the supplier
// feed and resolves supplier names for order lines.
type SupplierService interface {
	Refresh(ctx context.Context) (int, error)
	List(ctx context.Context) ([]dto.SupplierResponse, error)
	Name(ctx context.Context, id string) string
	Names(ctx context.Context) (map[string]string, error)
}

type supplierService struct {
	repo    repository.SupplierRepository
	feed    FeedFetcher
	feedURL string
	charset string
}

func NewSupplierService(repo repository.SupplierRepository, feed FeedFetcher, feedURL, charset string) SupplierService {
	return &supplierService{repo: repo, feed: feed, feedURL: feedURL, charset: charset}
}

// Refresh replaces the supplier table with the feed content. An empty feed is
// rejected so a broken export cannot deactivate every supplier.
func (s *supplierService) Refresh(ctx context.Context) (int, error) {
	body, err := s.feed.Fetch(ctx, s.feedURL)
	if err != nil {
		return 0, err
	}
	suppliers, err := orderfeed.ParseSuppliers(bytes.NewReader(body), s.charset)
	if err != nil {
		return 0, fmt.Errorf("supplier feed: %w", err)
	}
	if len(suppliers) == 0 {
		return 0, errors.New("supplier feed: no suppliers")
	}
	if err := s.repo.ReplaceAll(ctx, suppliers); err != nil {
		return 0, err
	}
	log.Info().Int("count", len(suppliers)).Msg("suppliers refreshed")
	return len(suppliers), nil
}

func (s *supplierService) List(ctx context.Context) ([]dto.SupplierResponse, error) {
	suppliers, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.SupplierResponse, len(suppliers))
	for i, sup := range suppliers {
		out[i] = dto.SupplierResponse{ID: sup.ID, Name: sup.Name}
	}
	return out, nil
}

// Name never fails. Unknown, deactivated or unreadable suppliers show as
// UnknownSupplierName, matching Names.
func (s *supplierService) Name(ctx context.Context, id string) string {
	sup, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn().Err(err).Str("supplier_id", id).Msg("supplier lookup failed")
		}
		return model.UnknownSupplierName
	}
	if !sup.Active {
		return model.UnknownSupplierName
	}
	return sup.Name
}

func (s *supplierService) Names(ctx context.Context) (map[string]string, error) {
	suppliers, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(suppliers))
	for _, sup := range suppliers {
		names[sup.ID] = sup.Name
	}
	return names, nil
}

func supplierName(names map[string]string, id string) string {
	if name, ok := names[id]; ok {
		return name
	}
	return model.UnknownSupplierName
}
