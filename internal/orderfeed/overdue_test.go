package orderfeed

import (
	"testing"
	"time"

	"catalogdesk/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) *model.Date {
	return &model.Date{Year: y, Month: m, Day: d}
}

func TestScenario_OverdueOrderIncluded(t *testing.T) {
	res, err := ParseRecords([][]string{feedHeader, scenarioRow()})
	require.NoError(t, err)
	require.Len(t, res.Orders, 1)

	today := *date(2024, time.January, 15)
	assert.True(t, IsOverdue(res.Orders[0], today, DefaultPolicy()))
	assert.Len(t, Relevant(res.Orders, today, DefaultPolicy(), VariantStandard), 1)
	assert.Len(t, Relevant(res.Orders, today, DefaultPolicy(), VariantRecent), 1)
}

func TestIsOverdue_GraceWindow(t *testing.T) {
	p := DefaultPolicy()
	today := *date(2024, time.March, 1)

	// today+7 = 08.03.2024; strictly before counts.
	due := model.Order{PlacedAt: date(2024, time.January, 1), PromisedDelivery: date(2024, time.March, 7)}
	assert.True(t, IsOverdue(due, today, p))

	boundary := model.Order{PlacedAt: date(2024, time.January, 1), PromisedDelivery: date(2024, time.March, 8)}
	assert.False(t, IsOverdue(boundary, today, p))

	later := model.Order{PlacedAt: date(2024, time.January, 1), PromisedDelivery: date(2024, time.April, 1)}
	assert.False(t, IsOverdue(later, today, p))
}

func TestIsOverdue_NoDeliveryDateUsesPendingWindow(t *testing.T) {
	p := DefaultPolicy()
	today := *date(2024, time.March, 20)

	recent := model.Order{PlacedAt: date(2024, time.March, 10)}
	assert.True(t, IsOverdue(recent, today, p))

	old := model.Order{PlacedAt: date(2024, time.March, 9)}
	assert.False(t, IsOverdue(old, today, p))
}

func TestRelevant_PreservesFeedOrder(t *testing.T) {
	today := *date(2024, time.June, 1)
	orders := []model.Order{
		{Row: 0, OrderNumber: "c", PlacedAt: date(2024, time.May, 1), PromisedDelivery: date(2024, time.May, 20)},
		{Row: 1, OrderNumber: "x", PlacedAt: date(2024, time.May, 1), PromisedDelivery: date(2024, time.July, 20)},
		{Row: 2, OrderNumber: "a", PlacedAt: date(2024, time.May, 30)},
		{Row: 3, OrderNumber: "b", PlacedAt: date(2024, time.April, 2), PromisedDelivery: date(2024, time.April, 30)},
	}

	got := Relevant(orders, today, DefaultPolicy(), VariantStandard)
	require.Len(t, got, 3)
	assert.Equal(t, "c", got[0].OrderNumber)
	assert.Equal(t, "a", got[1].OrderNumber)
	assert.Equal(t, "b", got[2].OrderNumber)
}

func TestRelevant_RecentVariantAppliesHorizon(t *testing.T) {
	today := *date(2026, time.October, 15)
	orders := []model.Order{
		{OrderNumber: "old", PlacedAt: date(2023, time.November, 1), PromisedDelivery: date(2023, time.December, 1)},
		{OrderNumber: "edge", PlacedAt: date(2024, time.October, 15), PromisedDelivery: date(2024, time.November, 1)},
		{OrderNumber: "fresh", PlacedAt: date(2026, time.October, 10)},
	}

	std := Relevant(orders, today, DefaultPolicy(), VariantStandard)
	assert.Len(t, std, 3)

	recent := Relevant(orders, today, DefaultPolicy(), VariantRecent)
	require.Len(t, recent, 2)
	assert.Equal(t, "edge", recent[0].OrderNumber)
	assert.Equal(t, "fresh", recent[1].OrderNumber)
}

// The recent rule is evaluated with && binding tighter than ||. As long as the
// pending window is shorter than the horizon this equals horizon && overdue.
func TestRelevant_RecentPrecedenceMatchesHorizonAndOverdue(t *testing.T) {
	p := DefaultPolicy()
	today := *date(2025, time.January, 31)
	start := date(2022, time.June, 1)

	for i := 0; i < 1000; i += 3 {
		placed := start.AddDays(i)
		withDelivery := model.Order{PlacedAt: &placed, PromisedDelivery: ptr(placed.AddDays(i % 40))}
		without := model.Order{PlacedAt: &placed}
		for _, o := range []model.Order{withDelivery, without} {
			horizon := !o.PlacedAt.Before(today.AddMonths(-p.HorizonMonths))
			want := horizon && IsOverdue(o, today, p)
			assert.Equal(t, want, isRelevant(o, today, p, VariantRecent), "placed %s", placed)
		}
	}
}

func TestRelevant_NeverIncludesOrdersWithoutPlacedDate(t *testing.T) {
	today := *date(2024, time.January, 1)
	o := model.Order{PromisedDelivery: date(2023, time.January, 1)}
	assert.Empty(t, Relevant([]model.Order{o}, today, DefaultPolicy(), VariantStandard))
	assert.Empty(t, Relevant([]model.Order{o}, today, DefaultPolicy(), VariantRecent))
}

func TestParseVariant(t *testing.T) {
	v, err := ParseVariant("")
	require.NoError(t, err)
	assert.Equal(t, VariantStandard, v)

	v, err = ParseVariant("recent")
	require.NoError(t, err)
	assert.Equal(t, VariantRecent, v)

	_, err = ParseVariant("weekly")
	assert.Error(t, err)
}

func ptr(d model.Date) *model.Date { return &d }
