package model

import "github.com/shopspring/decimal"

// Order is one supplier purchase line from the order feed. Orders are never
// edited by this service; each feed refresh replaces the whole set.
type Order struct {
	// Row is the 0-based position of the line in the feed after the header,
	// used as a stable identifier within one refresh.
	Row              int             `json:"row"`
	OrderNumber      string          `json:"order_number"`
	LogNumber        string          `json:"log_number"`
	SourceDate       string          `json:"source_date"`
	SupplierID       string          `json:"supplier_id"`
	Article          string          `json:"article"`
	Reference        string          `json:"reference"`
	ModelCode        string          `json:"model_code"`
	ModelName        string          `json:"model_name"`
	Color            string          `json:"color"`
	Size             string          `json:"size"`
	PromisedDelivery *Date           `json:"promised_delivery"`
	PlacedAt         *Date           `json:"placed_at"`
	Quantity         decimal.Decimal `json:"quantity"`
	Customer         string          `json:"customer"`
	Remark           string          `json:"remark"`
	Salesperson      string          `json:"salesperson"`
}

// IsOpen reports whether the supplier has not assigned a log number yet.
func (o Order) IsOpen() bool {
	return o.LogNumber == "" || o.LogNumber == "0"
}
