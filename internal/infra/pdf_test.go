package infra

import (
	"bytes"
	"testing"
	"time"

	"catalogdesk/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSupplierOrdersPDF(t *testing.T) {
	placed := model.Date{Year: 2023, Month: time.November, Day: 1}
	due := model.Date{Year: 2023, Month: time.December, Day: 1}
	report := SupplierReport{
		SupplierID:   "1",
		SupplierName: "Müller Schuhe",
		OverdueOnly:  true,
		GeneratedAt:  time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC),
		Orders: []model.Order{
			{OrderNumber: "1001", ModelCode: "M1", ModelName: "Modell 1 mit einem sehr langen Namen, der abgeschnitten wird", Color: "Rot", Size: "M", PlacedAt: &placed, PromisedDelivery: &due, Quantity: decimal.NewFromInt(10)},
			{OrderNumber: "1002", LogNumber: "0", ModelName: "Größe offen", PlacedAt: &placed, Quantity: decimal.RequireFromString("2.5")},
		},
	}

	out, err := GenerateSupplierOrdersPDF(report)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}

func TestGenerateSupplierOrdersPDF_Empty(t *testing.T) {
	out, err := GenerateSupplierOrdersPDF(SupplierReport{SupplierID: "9", SupplierName: "Unknown Supplier"})
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "kurz", truncate("kurz", 30))
	assert.Equal(t, 10, len([]rune(truncate("ein sehr langer Modellname", 20))))
}
