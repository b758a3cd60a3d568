package orderfeed

import (
	"fmt"

	"catalogdesk/internal/model"
)

// Policy holds the windows used to decide whether an order needs chasing.
type Policy struct {
	// GraceDays is added to today before comparing the promised delivery date.
	GraceDays int
	// PendingDays is how long an order without a delivery date stays relevant.
	PendingDays int
	// HorizonMonths bounds VariantRecent to orders placed in this many months.
	HorizonMonths int
}

func DefaultPolicy() Policy {
	return Policy{GraceDays: 7, PendingDays: 10, HorizonMonths: 24}
}

// Variant selects the relevance rule.
type Variant string

const (
	VariantStandard Variant = "standard"
	VariantRecent   Variant = "recent"
)

func ParseVariant(s string) (Variant, error) {
	switch Variant(s) {
	case "", VariantStandard:
		return VariantStandard, nil
	case VariantRecent:
		return VariantRecent, nil
	default:
		return "", fmt.Errorf("unknown order variant %q", s)
	}
}

// IsOverdue: a promised delivery date strictly before today+grace, or no
// delivery date yet and the order was placed within the pending window.
func IsOverdue(o model.Order, today model.Date, p Policy) bool {
	if o.PromisedDelivery != nil {
		return deliveryBeforeGrace(o, today, p)
	}
	return placedWithinDays(o, today, p.PendingDays)
}

// Relevant returns the orders to follow up, keeping feed order.
func Relevant(orders []model.Order, today model.Date, p Policy, v Variant) []model.Order {
	out := make([]model.Order, 0, len(orders))
	for _, o := range orders {
		if isRelevant(o, today, p, v) {
			out = append(out, o)
		}
	}
	return out
}

func isRelevant(o model.Order, today model.Date, p Policy, v Variant) bool {
	if o.PlacedAt == nil {
		return false
	}
	if v != VariantRecent {
		return IsOverdue(o, today, p)
	}
	withinHorizon := !o.PlacedAt.Before(today.AddMonths(-p.HorizonMonths))
	noDelivery := o.PromisedDelivery == nil
	withinPending := placedWithinDays(o, today, p.PendingDays)
	// Kept exactly as the ERP screen evaluates it: && binds tighter than ||,
	// so the horizon does not apply to the no-delivery branch.
	return withinHorizon && deliveryBeforeGrace(o, today, p) || noDelivery && withinPending
}

func deliveryBeforeGrace(o model.Order, today model.Date, p Policy) bool {
	return o.PromisedDelivery != nil && o.PromisedDelivery.Before(today.AddDays(p.GraceDays))
}

func placedWithinDays(o model.Order, today model.Date, days int) bool {
	return o.PlacedAt != nil && !o.PlacedAt.Before(today.AddDays(-days))
}
