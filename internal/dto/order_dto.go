package dto

import (
	"time"

	"catalogdesk/internal/model"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

type OrderListQuery struct {
	SupplierID string `form:"supplier"`
	// Relevant limits the list to orders that need a follow-up.
	Relevant bool   `form:"relevant"`
	Variant  string `form:"variant" validate:"omitempty,oneof=standard recent"`
	OpenOnly bool   `form:"open"`
}

type SupplierReportQuery struct {
	OverdueOnly bool   `form:"overdue"`
	Variant     string `form:"variant" validate:"omitempty,oneof=standard recent"`
}

type MailReportRequest struct {
	To          []string `json:"to"           validate:"required,min=1,dive,email"`
	OverdueOnly bool     `json:"overdue_only"`
	Variant     string   `json:"variant"      validate:"omitempty,oneof=standard recent"`
	Message     string   `json:"message"      validate:"max=2000"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type OrderResponse struct {
	model.Order
	SupplierName string `json:"supplier_name"`
	Overdue      bool   `json:"overdue"`
	Open         bool   `json:"open"`
}

type OrderListResponse struct {
	Orders      []OrderResponse `json:"orders"`
	Count       int             `json:"count"`
	RefreshedAt *time.Time      `json:"refreshed_at"`
}

type OrderStatusResponse struct {
	RefreshedAt *time.Time `json:"refreshed_at"`
	Count       int64      `json:"count"`
	Dropped     int        `json:"dropped"`
	Generation  int64      `json:"generation"`
}

type RefreshResponse struct {
	Stored      bool      `json:"stored"`
	Count       int       `json:"count"`
	Dropped     int       `json:"dropped"`
	Generation  int64     `json:"generation"`
	RefreshedAt time.Time `json:"refreshed_at"`
}

type JobAcceptedResponse struct {
	Queued bool   `json:"queued"`
	Queue  string `json:"queue"`
}
