package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"catalogdesk/internal/clock"
	"catalogdesk/internal/dto"
	"catalogdesk/internal/infra"
	"catalogdesk/internal/metrics"
	"catalogdesk/internal/model"
	"catalogdesk/internal/orderfeed"
	"catalogdesk/internal/repository"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

const refreshTimeout = 2 * time.Minute

// OrderServiceConfig configures where orders come from and how overdue
// orders are selected.
type OrderServiceConfig struct {
	FeedURL        string
	Charset        string
	Policy         orderfeed.Policy
	DefaultVariant orderfeed.Variant
}

// OrderService serves the cached order feed.
type OrderService interface {
	Refresh(ctx context.Context) (*dto.RefreshResponse, error)
	List(ctx context.Context, q dto.OrderListQuery) (*dto.OrderListResponse, error)
	Status(ctx context.Context) (*dto.OrderStatusResponse, error)
	SupplierReportPDF(ctx context.Context, supplierID string, q dto.SupplierReportQuery) ([]byte, string, error)
	MailSupplierReport(ctx context.Context, supplierID string, req dto.MailReportRequest) error
}

type orderService struct {
	cache     repository.OrderCache
	feed      FeedFetcher
	suppliers SupplierService
	mail      MailQueue
	clock     clock.Clock
	cfg       OrderServiceConfig
	group     singleflight.Group
}

func NewOrderService(cache repository.OrderCache, feed FeedFetcher, suppliers SupplierService, mail MailQueue, clk clock.Clock, cfg OrderServiceConfig) OrderService {
	if cfg.DefaultVariant == "" {
		cfg.DefaultVariant = orderfeed.VariantStandard
	}
	return &orderService{cache: cache, feed: feed, suppliers: suppliers, mail: mail, clock: clk, cfg: cfg}
}

// ── Refresh ───────────────────────────────────────────────────────────────────

// Refresh reloads the order feed. Callers arriving while a refresh runs share
// its result; the refresh itself ignores the caller's cancellation.
func (s *orderService) Refresh(ctx context.Context) (*dto.RefreshResponse, error) {
	v, err, shared := s.group.Do("orders", func() (any, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()
		return s.refresh(rctx)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		log.Debug().Msg("order refresh coalesced")
	}
	return v.(*dto.RefreshResponse), nil
}

// refresh takes a generation ticket before fetching. A parse failure stores
// an empty set; a fetch failure leaves the previous snapshot untouched.
func (s *orderService) refresh(ctx context.Context) (*dto.RefreshResponse, error) {
	gen, err := s.cache.Begin(ctx)
	if err != nil {
		metrics.RecordFeedRefresh(metrics.FeedOrders, metrics.ResultError)
		return nil, err
	}

	body, err := s.feed.Fetch(ctx, s.cfg.FeedURL)
	if err != nil {
		metrics.RecordFeedRefresh(metrics.FeedOrders, metrics.ResultError)
		log.Error().Err(err).Int64("generation", gen).Msg("order feed fetch failed, keeping cached orders")
		return nil, err
	}

	result := metrics.ResultOK
	res, err := orderfeed.Parse(bytes.NewReader(body), orderfeed.ParseOptions{Charset: s.cfg.Charset})
	if err != nil {
		result = metrics.ResultParseError
		log.Warn().Err(err).Int64("generation", gen).Msg("order feed unparseable, storing empty set")
		res = &orderfeed.Result{Orders: []model.Order{}}
	}

	snap := repository.OrderSnapshot{
		Orders:      res.Orders,
		RefreshedAt: s.clock.Now().UTC(),
		Dropped:     res.Dropped,
		Generation:  gen,
	}
	stored, err := s.cache.Store(ctx, snap)
	if err != nil {
		metrics.RecordFeedRefresh(metrics.FeedOrders, metrics.ResultError)
		return nil, err
	}
	if !stored {
		result = metrics.ResultSuperseded
		log.Info().Int64("generation", gen).Msg("order refresh superseded by a newer one")
	} else {
		metrics.SetOrderSnapshot(len(snap.Orders), snap.Dropped, snap.RefreshedAt)
		log.Info().Int("count", len(snap.Orders)).Int("dropped", snap.Dropped).
			Int64("generation", gen).Msg("orders refreshed")
	}
	metrics.RecordFeedRefresh(metrics.FeedOrders, result)

	return &dto.RefreshResponse{
		Stored:      stored,
		Count:       len(snap.Orders),
		Dropped:     snap.Dropped,
		Generation:  gen,
		RefreshedAt: snap.RefreshedAt,
	}, nil
}

// ── Queries ───────────────────────────────────────────────────────────────────

func (s *orderService) List(ctx context.Context, q dto.OrderListQuery) (*dto.OrderListResponse, error) {
	variant, err := s.variant(q.Variant)
	if err != nil {
		return nil, err
	}
	snap, err := s.cache.Load(ctx)
	if err != nil {
		return nil, err
	}
	names, err := s.suppliers.Names(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("supplier names unavailable")
		names = map[string]string{}
	}

	today := clock.Today(s.clock)
	orders := filterOrders(snap.Orders, strings.TrimSpace(q.SupplierID), q.OpenOnly)
	if q.Relevant {
		orders = orderfeed.Relevant(orders, today, s.cfg.Policy, variant)
	}

	out := make([]dto.OrderResponse, len(orders))
	for i, o := range orders {
		out[i] = dto.OrderResponse{
			Order:        o,
			SupplierName: supplierName(names, o.SupplierID),
			Overdue:      orderfeed.IsOverdue(o, today, s.cfg.Policy),
			Open:         o.IsOpen(),
		}
	}

	resp := &dto.OrderListResponse{Orders: out, Count: len(out)}
	if !snap.RefreshedAt.IsZero() {
		at := snap.RefreshedAt
		resp.RefreshedAt = &at
	}
	return resp, nil
}

func (s *orderService) Status(ctx context.Context) (*dto.OrderStatusResponse, error) {
	st, err := s.cache.Status(ctx)
	if err != nil {
		return nil, err
	}
	return &dto.OrderStatusResponse{
		RefreshedAt: st.RefreshedAt,
		Count:       st.Count,
		Dropped:     st.Dropped,
		Generation:  st.Generation,
	}, nil
}

func filterOrders(orders []model.Order, supplierID string, openOnly bool) []model.Order {
	if supplierID == "" && !openOnly {
		return orders
	}
	out := make([]model.Order, 0, len(orders))
	for _, o := range orders {
		if supplierID != "" && o.SupplierID != supplierID {
			continue
		}
		if openOnly && !o.IsOpen() {
			continue
		}
		out = append(out, o)
	}
	return out
}

func (s *orderService) variant(v string) (orderfeed.Variant, error) {
	if v == "" {
		return s.cfg.DefaultVariant, nil
	}
	variant, err := orderfeed.ParseVariant(v)
	if err != nil {
		return "", &ValidationError{Fields: map[string]string{"variant": "oneof"}}
	}
	return variant, nil
}

// ── Supplier reports ──────────────────────────────────────────────────────────

// SupplierReportPDF renders the supplier's orders, or only its overdue ones,
// and returns the PDF with a download file name.
func (s *orderService) SupplierReportPDF(ctx context.Context, supplierID string, q dto.SupplierReportQuery) ([]byte, string, error) {
	report, err := s.supplierReport(ctx, supplierID, q.OverdueOnly, q.Variant)
	if err != nil {
		return nil, "", err
	}
	pdf, err := infra.GenerateSupplierOrdersPDF(*report)
	if err != nil {
		return nil, "", fmt.Errorf("supplier report %s: %w", supplierID, err)
	}
	return pdf, reportFilename(supplierID, report.GeneratedAt), nil
}

// MailSupplierReport renders the report now and queues the email; delivery
// happens on the email worker.
func (s *orderService) MailSupplierReport(ctx context.Context, supplierID string, req dto.MailReportRequest) error {
	report, err := s.supplierReport(ctx, supplierID, req.OverdueOnly, req.Variant)
	if err != nil {
		return err
	}
	if len(report.Orders) == 0 {
		return fmt.Errorf("supplier %s: %w", supplierID, ErrNoOrders)
	}
	pdf, err := infra.GenerateSupplierOrdersPDF(*report)
	if err != nil {
		return fmt.Errorf("supplier report %s: %w", supplierID, err)
	}

	body := strings.TrimSpace(req.Message)
	if body == "" {
		body = fmt.Sprintf("Anbei die %sBestellungen für %s (Stand %s).",
			reportKind(report.OverdueOnly), report.SupplierName, model.DateOf(report.GeneratedAt))
	}
	msg := infra.Message{
		To:      req.To,
		Subject: fmt.Sprintf("Bestellungen %s", report.SupplierName),
		Body:    body,
		Attachments: []infra.Attachment{{
			Filename:    reportFilename(supplierID, report.GeneratedAt),
			ContentType: "application/pdf",
			Data:        pdf,
		}},
	}
	if err := s.mail.EnqueueEmail(ctx, msg); err != nil {
		return err
	}
	log.Info().Str("supplier_id", supplierID).Int("orders", len(report.Orders)).
		Int("recipients", len(req.To)).Msg("supplier report queued for mail")
	return nil
}

func (s *orderService) supplierReport(ctx context.Context, supplierID string, overdueOnly bool, variant string) (*infra.SupplierReport, error) {
	list, err := s.List(ctx, dto.OrderListQuery{SupplierID: supplierID, Relevant: overdueOnly, Variant: variant})
	if err != nil {
		return nil, err
	}
	orders := make([]model.Order, len(list.Orders))
	for i, o := range list.Orders {
		orders[i] = o.Order
	}
	return &infra.SupplierReport{
		SupplierID:   supplierID,
		SupplierName: s.suppliers.Name(ctx, supplierID),
		OverdueOnly:  overdueOnly,
		GeneratedAt:  s.clock.Now(),
		Orders:       orders,
	}, nil
}

func reportKind(overdueOnly bool) string {
	if overdueOnly {
		return "überfälligen "
	}
	return ""
}

func reportFilename(supplierID string, at time.Time) string {
	return fmt.Sprintf("Bestellungen_%s_%s.pdf", supplierID, at.Format("2006-01-02"))
}
