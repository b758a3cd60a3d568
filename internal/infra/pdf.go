package infra

// pdf.go — supplier order list as a landscape A4 table using go-pdf/fpdf.
// Sent to suppliers as a reminder and printed for the weekly call, so it
// carries the same columns as the supplier order screen.

import (
	"bytes"
	"fmt"
	"time"

	"catalogdesk/internal/model"

	"github.com/go-pdf/fpdf"
)

// SupplierReport is the input of GenerateSupplierOrdersPDF.
type SupplierReport struct {
	SupplierID   string
	SupplierName string
	OverdueOnly  bool
	GeneratedAt  time.Time
	Orders       []model.Order
}

type reportColumn struct {
	title string
	width float64
	align string
	value func(o model.Order, supplierName string) string
}

var reportColumns = []reportColumn{
	{"BestellNr", 22, "L", func(o model.Order, _ string) string { return o.OrderNumber }},
	{"Lieferant", 40, "L", func(_ model.Order, name string) string { return name }},
	{"ArtNr.", 30, "L", func(o model.Order, _ string) string { return o.ModelCode }},
	{"Name", 62, "L", func(o model.Order, _ string) string { return o.ModelName }},
	{"Farbe", 30, "L", func(o model.Order, _ string) string { return o.Color }},
	{"Size", 16, "C", func(o model.Order, _ string) string { return o.Size }},
	{"Bestellt", 24, "C", func(o model.Order, _ string) string { return formatDate(o.PlacedAt) }},
	{"LT", 24, "C", func(o model.Order, _ string) string {
		if o.IsOpen() && o.PromisedDelivery == nil {
			return "offen"
		}
		return formatDate(o.PromisedDelivery)
	}},
	{"Menge", 19, "R", func(o model.Order, _ string) string { return o.Quantity.String() }},
}

func formatDate(d *model.Date) string {
	if d == nil {
		return ""
	}
	return d.String()
}

// GenerateSupplierOrdersPDF renders the report and returns the PDF bytes.
func GenerateSupplierOrdersPDF(r SupplierReport) ([]byte, error) {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	// Core fonts are cp1252; umlauts need the translator.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	title := "Bestellungen " + r.SupplierName
	if r.OverdueOnly {
		title = "Überfällige " + title
	}

	pdf.SetHeaderFunc(func() {
		pdf.SetFont("Helvetica", "B", 13)
		pdf.CellFormat(0, 8, tr(title), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 8)
		pdf.CellFormat(0, 5, tr(fmt.Sprintf("Lieferant %s · Stand %s", r.SupplierID, r.GeneratedAt.Format("02.01.2006 15:04"))), "", 1, "L", false, 0, "")
		pdf.Ln(2)

		pdf.SetFont("Helvetica", "B", 8)
		pdf.SetFillColor(235, 235, 235)
		for _, c := range reportColumns {
			pdf.CellFormat(c.width, 6, tr(c.title), "1", 0, c.align, true, 0, "")
		}
		pdf.Ln(-1)
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", 7)
		pdf.CellFormat(0, 5, fmt.Sprintf("Seite %d/{nb}", pdf.PageNo()), "", 0, "R", false, 0, "")
	})
	pdf.AliasNbPages("")
	pdf.AddPage()

	// ── Rows ──────────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "", 8)
	for _, o := range r.Orders {
		for _, c := range reportColumns {
			pdf.CellFormat(c.width, 5, tr(truncate(c.value(o, r.SupplierName), c.width)), "1", 0, c.align, false, 0, "")
		}
		pdf.Ln(-1)
	}
	if len(r.Orders) == 0 {
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 6, "Keine Bestellungen", "", 1, "L", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf: render: %w", err)
	}
	return buf.Bytes(), nil
}

// truncate keeps a value inside its cell at the 8pt body font (about 2mm per rune).
func truncate(s string, width float64) string {
	limit := int(width / 1.9)
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}
