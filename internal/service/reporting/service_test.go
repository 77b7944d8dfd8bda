package reporting_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poultrypro/backend/internal/domain/models"
	"github.com/poultrypro/backend/internal/repository/memory"
	"github.com/poultrypro/backend/internal/service/reporting"
)

const ownerID = "owner-1"

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func meta(batchID string, on time.Time) models.EventMeta {
	return models.EventMeta{
		BatchID:   batchID,
		Date:      on,
		DateKey:   models.DateKey(on),
		CreatedAt: on,
		UpdatedAt: on,
	}
}

func addBatch(t *testing.T, store *memory.Store, name string, price float64, placed time.Time) models.Batch {
	t.Helper()
	b, err := store.Batches().Create(context.Background(), models.Batch{
		OwnerID:       ownerID,
		Name:          name,
		InitialCount:  100,
		CurrentCount:  100,
		Price:         price,
		PlacementDate: placed,
		CreatedAt:     placed,
	})
	require.NoError(t, err)
	return b
}

func newReporting(store *memory.Store, unitPrice string, avgEggs int) *reporting.Service {
	return reporting.NewService(
		store.Batches(), store.Feed(), store.Mortality(), store.Eggs(), store.Vaccinations(),
		reporting.Config{
			UnitEggPrice:           decimal.RequireFromString(unitPrice),
			AvgEggsPerBirdLifetime: avgEggs,
		},
		nil,
	)
}

func TestComputeFinancialReport_SingleBatch(t *testing.T) {
	// One batch of 100 birds bought for 50, one feed purchase of 2, one
	// egg day of 80 laid with 5 broken, 5 deaths. Egg price 1, average
	// lifetime lay 25 eggs.
	store := memory.New()
	ctx := context.Background()
	placed := date(2025, time.March, 1)
	b := addBatch(t, store, "Layers A", 50, placed)

	_, err := store.Feed().Insert(ctx, models.FeedEvent{
		EventMeta: meta(b.ID, date(2025, time.March, 3)),
		FeedType:  "starter", Grams: 5000, Price: 2,
	})
	require.NoError(t, err)

	_, err = store.Eggs().Insert(ctx, models.EggProductionEvent{
		EventMeta: meta(b.ID, date(2025, time.March, 4)),
		Total:     80, Broken: 5, Remaining: 75,
	})
	require.NoError(t, err)

	_, _, err = store.Batches().ApplyMortality(ctx, models.MortalityEvent{
		EventMeta:      meta(b.ID, date(2025, time.March, 5)),
		Deaths:         5,
		RemainingAfter: 95,
		CauseOfDeath:   "coccidiosis",
	}, 100)
	require.NoError(t, err)

	svc := newReporting(store, "1", 25)
	report, err := svc.ComputeFinancialReport(ctx, ownerID)
	require.NoError(t, err)

	assert.Equal(t, "50", report.BatchCosts.String())
	assert.Equal(t, "2", report.FeedCosts.String())
	assert.Equal(t, "0", report.VaccinationCosts.String())
	assert.Equal(t, "52", report.TotalInvestment.String())
	assert.Equal(t, "75", report.EggRevenue.String())
	assert.Equal(t, "5", report.EggLoss.String())
	assert.Equal(t, "125", report.MortalityLoss.String(), "5 deaths x 25 eggs x 1")
	assert.Equal(t, "130", report.TotalLoss.String())
	assert.Equal(t, "-107", report.NetProfit.String())

	wantROI := decimal.RequireFromString("-107").
		Div(decimal.RequireFromString("52")).
		Mul(decimal.NewFromInt(100))
	assert.True(t, report.ROI.Equal(wantROI), "got %s want %s", report.ROI, wantROI)
}

func TestComputeFinancialReport_NetProfitIdentity(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	b := addBatch(t, store, "Layers A", 120.50, date(2025, time.January, 10))

	_, err := store.Feed().Insert(ctx, models.FeedEvent{
		EventMeta: meta(b.ID, date(2025, time.January, 12)),
		FeedType:  "grower", Grams: 2000, Price: 7.25,
	})
	require.NoError(t, err)
	_, err = store.Vaccinations().Insert(ctx, models.VaccinationEvent{
		EventMeta: meta(b.ID, date(2025, time.January, 15)),
		Type:      "Newcastle", Price: 4.80, Done: true,
	})
	require.NoError(t, err)
	_, err = store.Eggs().Insert(ctx, models.EggProductionEvent{
		EventMeta: meta(b.ID, date(2025, time.February, 1)),
		Total:     60, Broken: 3, Remaining: 57,
	})
	require.NoError(t, err)

	svc := newReporting(store, "0.15", 25)
	report, err := svc.ComputeFinancialReport(ctx, ownerID)
	require.NoError(t, err)

	want := report.TotalRevenue.Sub(report.TotalInvestment).Sub(report.TotalLoss)
	assert.True(t, report.NetProfit.Equal(want),
		"net profit %s != revenue - investment - loss %s", report.NetProfit, want)
}

func TestComputeFinancialReport_PendingVaccinationNotCosted(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	b := addBatch(t, store, "Layers A", 50, date(2025, time.March, 1))

	_, err := store.Vaccinations().Insert(ctx, models.VaccinationEvent{
		EventMeta: meta(b.ID, date(2025, time.March, 3)),
		Type:      "Newcastle", Price: 10, Done: false,
	})
	require.NoError(t, err)
	_, err = store.Vaccinations().Insert(ctx, models.VaccinationEvent{
		EventMeta: meta(b.ID, date(2025, time.March, 4)),
		Type:      "Gumboro", Price: 8, Done: true,
	})
	require.NoError(t, err)

	svc := newReporting(store, "1", 25)
	report, err := svc.ComputeFinancialReport(ctx, ownerID)
	require.NoError(t, err)

	assert.Equal(t, "8", report.VaccinationCosts.String(), "only completed vaccinations count")
}

func TestComputeFinancialReport_ZeroInvestmentROI(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	b := addBatch(t, store, "Gifted", 0, date(2025, time.March, 1))

	_, err := store.Eggs().Insert(ctx, models.EggProductionEvent{
		EventMeta: meta(b.ID, date(2025, time.March, 4)),
		Total:     10, Broken: 0, Remaining: 10,
	})
	require.NoError(t, err)

	svc := newReporting(store, "1", 25)
	report, err := svc.ComputeFinancialReport(ctx, ownerID)
	require.NoError(t, err)

	assert.True(t, report.ROI.IsZero(), "ROI must stay zero when nothing was invested")
	assert.Equal(t, "10", report.NetProfit.String())
}

func TestComputeFinancialReport_MonthlyWindow(t *testing.T) {
	// Eight placement months; only the last six survive, ascending.
	store := memory.New()
	ctx := context.Background()

	for m := time.January; m <= time.August; m++ {
		addBatch(t, store, fmt.Sprintf("batch-%d", m), 10, date(2025, m, 1))
	}

	b, err := store.Batches().ListByOwner(ctx, ownerID)
	require.NoError(t, err)
	require.Len(t, b, 8)

	_, err = store.Eggs().Insert(ctx, models.EggProductionEvent{
		EventMeta: meta(b[7].ID, date(2025, time.August, 10)),
		Total:     40, Broken: 0, Remaining: 40,
	})
	require.NoError(t, err)

	svc := newReporting(store, "1", 25)
	report, err := svc.ComputeFinancialReport(ctx, ownerID)
	require.NoError(t, err)

	require.Len(t, report.Monthly, 6)
	assert.Equal(t, "2025-03", report.Monthly[0].Month)
	assert.Equal(t, "2025-08", report.Monthly[5].Month)
	for i := 1; i < len(report.Monthly); i++ {
		assert.Less(t, report.Monthly[i-1].Month, report.Monthly[i].Month)
	}

	august := report.Monthly[5]
	assert.Equal(t, "10", august.Investment.String())
	assert.Equal(t, "40", august.Revenue.String())
	assert.Equal(t, "30", august.Profit.String())
}

func TestComputeFinancialReport_PerformanceTruncated(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		addBatch(t, store, fmt.Sprintf("batch-%d", i), 10, date(2025, time.March, 1))
	}

	svc := newReporting(store, "1", 25)
	report, err := svc.ComputeFinancialReport(ctx, ownerID)
	require.NoError(t, err)

	assert.Len(t, report.Performance, 5)
}

func TestComputeFinancialReport_EmptyOwner(t *testing.T) {
	store := memory.New()
	svc := newReporting(store, "1", 25)

	report, err := svc.ComputeFinancialReport(context.Background(), "nobody")
	require.NoError(t, err)
	assert.True(t, report.NetProfit.IsZero())
	assert.True(t, report.ROI.IsZero())
	assert.Empty(t, report.Monthly)
	assert.Empty(t, report.Performance)
}
