package worker

import (
	"context"
	"encoding/json"

	"catalogdesk/internal/service"

	"github.com/rs/zerolog/log"
)

// RefreshWorker runs feed refresh jobs.
type RefreshWorker struct {
	orders    service.OrderService
	suppliers service.SupplierService
}

func NewRefreshWorker(orders service.OrderService, suppliers service.SupplierService) *RefreshWorker {
	return &RefreshWorker{orders: orders, suppliers: suppliers}
}

func (w *RefreshWorker) Orders(ctx context.Context, _ json.RawMessage) error {
	resp, err := w.orders.Refresh(ctx)
	if err != nil {
		return err
	}
	log.Debug().Int("count", resp.Count).Bool("stored", resp.Stored).Msg("refresh_worker: orders done")
	return nil
}

func (w *RefreshWorker) Suppliers(ctx context.Context, _ json.RawMessage) error {
	n, err := w.suppliers.Refresh(ctx)
	if err != nil {
		return err
	}
	log.Debug().Int("count", n).Msg("refresh_worker: suppliers done")
	return nil
}

// Register wires every job type this package knows onto p.
func Register(p *Pool, refresh *RefreshWorker, email *EmailWorker) {
	p.Handle(JobOrdersRefresh, refresh.Orders)
	p.Handle(JobSuppliersRefresh, refresh.Suppliers)
	p.Handle(JobEmail, email.Process)
}
