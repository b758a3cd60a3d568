package orderfeed

import (
	"fmt"
	"strings"

	"catalogdesk/internal/model"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Column maps one header of the order feed onto an Order field.
type Column struct {
	Name     string
	Aliases  []string
	Required bool
	Set      func(o *model.Order, v string)
}

// Schema is the explicit column-to-field mapping of the order feed.
// Positions are resolved from the header row at parse time.
type Schema struct {
	Columns []Column
}

// HeaderError lists required columns the header row did not provide.
type HeaderError struct {
	Missing []string
}

func (e *HeaderError) Error() string {
	return fmt.Sprintf("order feed header: missing required columns %s", strings.Join(e.Missing, ", "))
}

// DefaultSchema is the layout of the ERP "Bestellungen" export.
func DefaultSchema() Schema {
	return Schema{Columns: []Column{
		{Name: "BestellNr", Required: true, Set: func(o *model.Order, v string) { o.OrderNumber = v }},
		{Name: "BestellprotokollNr", Set: func(o *model.Order, v string) { o.LogNumber = v }},
		{Name: "Datum", Set: func(o *model.Order, v string) { o.SourceDate = v }},
		{Name: "Lieferant", Required: true, Set: func(o *model.Order, v string) { o.SupplierID = v }},
		{Name: "Artikel", Set: func(o *model.Order, v string) { o.Article = v }},
		{Name: "ReferenzNr", Set: func(o *model.Order, v string) { o.Reference = v }},
		{Name: "ModellCode", Set: func(o *model.Order, v string) { o.ModelCode = v }},
		{Name: "Modell", Set: func(o *model.Order, v string) { o.ModelName = v }},
		{Name: "Farbe", Set: func(o *model.Order, v string) { o.Color = v }},
		{Name: "Size", Aliases: []string{"Größe", "Groesse"}, Set: func(o *model.Order, v string) { o.Size = v }},
		{Name: "Liefertermin", Required: true, Set: func(o *model.Order, v string) { o.PromisedDelivery = parseOptionalDate(v) }},
		{Name: "Bestellt", Required: true, Set: func(o *model.Order, v string) { o.PlacedAt = parseOptionalDate(v) }},
		{Name: "Bestellmenge", Set: func(o *model.Order, v string) { o.Quantity = parseQuantity(v) }},
		{Name: "Kunde", Set: func(o *model.Order, v string) { o.Customer = v }},
		{Name: "Bemerkung", Set: func(o *model.Order, v string) { o.Remark = v }},
		{Name: "Verkäufer", Aliases: []string{"Verkaeufer"}, Set: func(o *model.Order, v string) { o.Salesperson = v }},
	}}
}

// binding is a resolved column: field setter plus position in the row.
type binding struct {
	index int
	set   func(o *model.Order, v string)
}

// bind resolves column positions against a header row.
func (s Schema) bind(header []string) ([]binding, error) {
	positions := make(map[string]int, len(header))
	for i, h := range header {
		key := normalizeHeader(h)
		if _, dup := positions[key]; !dup {
			positions[key] = i
		}
	}

	var (
		bindings []binding
		missing  []string
	)
	for _, col := range s.Columns {
		idx, ok := lookup(positions, col)
		if !ok {
			if col.Required {
				missing = append(missing, col.Name)
			}
			continue
		}
		bindings = append(bindings, binding{index: idx, set: col.Set})
	}
	if len(missing) > 0 {
		return nil, &HeaderError{Missing: missing}
	}
	return bindings, nil
}

func lookup(positions map[string]int, col Column) (int, bool) {
	if idx, ok := positions[normalizeHeader(col.Name)]; ok {
		return idx, true
	}
	for _, alias := range col.Aliases {
		if idx, ok := positions[normalizeHeader(alias)]; ok {
			return idx, true
		}
	}
	return 0, false
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
}

// parseQuantity accepts "10", "10.00", the German "10,00" and grouped forms
// such as "1.234,56" or "1,234.56". Garbage yields zero.
func parseQuantity(v string) decimal.Decimal {
	v = strings.ReplaceAll(strings.TrimSpace(v), " ", "")
	if v == "" {
		return decimal.Zero
	}
	dot, comma := strings.LastIndex(v, "."), strings.LastIndex(v, ",")
	switch {
	case dot >= 0 && comma >= 0 && comma > dot:
		v = strings.Replace(strings.ReplaceAll(v, ".", ""), ",", ".", 1)
	case dot >= 0 && comma >= 0:
		v = strings.ReplaceAll(v, ",", "")
	case comma >= 0 && strings.Count(v, ",") == 1:
		v = strings.Replace(v, ",", ".", 1)
	case dot >= 0 && strings.Count(v, ".") > 1:
		v = strings.ReplaceAll(v, ".", "")
	}
	q, err := decimal.NewFromString(v)
	if err != nil {
		log.Debug().Str("value", v).Msg("orderfeed: unreadable quantity, using 0")
		return decimal.Zero
	}
	return q
}
