// Package reporting rolls the batch and event streams up into costs,
// revenue, losses and ROI. The computation is a pure function of the
// fetched data and the configured pricing assumptions; nothing here
// writes to the store.
package reporting

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/poultrypro/backend/internal/domain/models"
	"github.com/poultrypro/backend/internal/repository"
)

const (
	monthLayout  = "2006-01"
	monthWindow  = 6
	maxPerfRows  = 5
	percentScale = 100
)

// Config carries the pricing assumptions the report is computed under.
type Config struct {
	// UnitEggPrice is the sale price assumed for one egg.
	UnitEggPrice decimal.Decimal
	// AvgEggsPerBirdLifetime drives the mortality opportunity-cost
	// estimate: each death is priced as this many eggs never laid.
	AvgEggsPerBirdLifetime int
}

// Service is the financial aggregation engine.
type Service struct {
	batches      repository.BatchRepository
	feed         repository.FeedRepository
	mortality    repository.MortalityRepository
	eggs         repository.EggRepository
	vaccinations repository.VaccinationRepository
	cfg          Config
	logger       *zap.Logger
}

func NewService(
	batches repository.BatchRepository,
	feed repository.FeedRepository,
	mortality repository.MortalityRepository,
	eggs repository.EggRepository,
	vaccinations repository.VaccinationRepository,
	cfg Config,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		batches:      batches,
		feed:         feed,
		mortality:    mortality,
		eggs:         eggs,
		vaccinations: vaccinations,
		cfg:          cfg,
		logger:       logger,
	}
}

type monthTotals struct {
	investment decimal.Decimal
	revenue    decimal.Decimal
}

// ComputeFinancialReport reads every batch owned by ownerID together with
// its four event streams and computes the cost/revenue/ROI roll-up. The
// full history is re-read on every call; there is no incremental cache.
func (s *Service) ComputeFinancialReport(ctx context.Context, ownerID string) (models.FinancialReport, error) {
	batches, err := s.batches.ListByOwner(ctx, ownerID)
	if err != nil {
		return models.FinancialReport{}, fmt.Errorf("load batches: %w", err)
	}

	var (
		batchCosts       = decimal.Zero
		feedCosts        = decimal.Zero
		vaccinationCosts = decimal.Zero
		eggRevenue       = decimal.Zero
		eggLoss          = decimal.Zero
		totalDeaths      int64
	)
	months := make(map[string]*monthTotals)
	var performance []models.BatchPerformance

	for _, b := range batches {
		batchCost := decimal.NewFromFloat(b.Price)
		batchCosts = batchCosts.Add(batchCost)
		mb := s.bucket(months, b.PlacementDate.Format(monthLayout))
		mb.investment = mb.investment.Add(batchCost)

		batchInvestment := batchCost
		batchRevenue := decimal.Zero

		feedEvents, err := s.feed.ListByBatch(ctx, b.ID)
		if err != nil {
			return models.FinancialReport{}, fmt.Errorf("load feed events for %s: %w", b.ID, err)
		}
		for _, ev := range feedEvents {
			price := decimal.NewFromFloat(ev.Price)
			feedCosts = feedCosts.Add(price)
			batchInvestment = batchInvestment.Add(price)
		}

		vaccinations, err := s.vaccinations.ListByBatch(ctx, b.ID)
		if err != nil {
			return models.FinancialReport{}, fmt.Errorf("load vaccinations for %s: %w", b.ID, err)
		}
		for _, ev := range vaccinations {
			if !ev.Done {
				continue // scheduled but unpaid, not yet a cost
			}
			price := decimal.NewFromFloat(ev.Price)
			vaccinationCosts = vaccinationCosts.Add(price)
			batchInvestment = batchInvestment.Add(price)
		}

		eggEvents, err := s.eggs.ListByBatch(ctx, b.ID)
		if err != nil {
			return models.FinancialReport{}, fmt.Errorf("load egg events for %s: %w", b.ID, err)
		}
		for _, ev := range eggEvents {
			revenue := s.cfg.UnitEggPrice.Mul(decimal.NewFromInt(int64(ev.Remaining)))
			loss := s.cfg.UnitEggPrice.Mul(decimal.NewFromInt(int64(ev.Broken)))
			eggRevenue = eggRevenue.Add(revenue)
			eggLoss = eggLoss.Add(loss)
			batchRevenue = batchRevenue.Add(revenue)

			mb := s.bucket(months, ev.Date.Format(monthLayout))
			mb.revenue = mb.revenue.Add(revenue)
		}

		mortalityEvents, err := s.mortality.ListByBatch(ctx, b.ID)
		if err != nil {
			return models.FinancialReport{}, fmt.Errorf("load mortality events for %s: %w", b.ID, err)
		}
		for _, ev := range mortalityEvents {
			totalDeaths += int64(ev.Deaths)
		}

		performance = append(performance, models.BatchPerformance{
			BatchID:   b.ID,
			BatchName: b.Name,
			Profit:    batchRevenue.Sub(batchInvestment),
		})
	}

	// Opportunity cost, not cash: deaths priced as eggs never laid.
	mortalityLoss := decimal.NewFromInt(totalDeaths).
		Mul(decimal.NewFromInt(int64(s.cfg.AvgEggsPerBirdLifetime))).
		Mul(s.cfg.UnitEggPrice)

	totalInvestment := batchCosts.Add(feedCosts).Add(vaccinationCosts)
	totalRevenue := eggRevenue
	totalLoss := eggLoss.Add(mortalityLoss)
	netProfit := totalRevenue.Sub(totalInvestment).Sub(totalLoss)

	roi := decimal.Zero
	if totalInvestment.IsPositive() {
		roi = netProfit.Div(totalInvestment).Mul(decimal.NewFromInt(percentScale))
	}

	// TODO: rank performance by profit before truncating once product
	// confirms whether "top 5" means most profitable or first registered.
	if len(performance) > maxPerfRows {
		performance = performance[:maxPerfRows]
	}

	report := models.FinancialReport{
		BatchCosts:       batchCosts,
		FeedCosts:        feedCosts,
		VaccinationCosts: vaccinationCosts,
		EggRevenue:       eggRevenue,
		EggLoss:          eggLoss,
		MortalityLoss:    mortalityLoss,
		TotalInvestment:  totalInvestment,
		TotalRevenue:     totalRevenue,
		TotalLoss:        totalLoss,
		NetProfit:        netProfit,
		ROI:              roi,
		Monthly:          s.recentMonths(months),
		Performance:      performance,
	}

	s.logger.Debug("financial report computed",
		zap.String("owner_id", ownerID),
		zap.Int("batches", len(batches)),
		zap.String("net_profit", netProfit.String()))
	return report, nil
}

func (s *Service) bucket(months map[string]*monthTotals, key string) *monthTotals {
	b, ok := months[key]
	if !ok {
		b = &monthTotals{investment: decimal.Zero, revenue: decimal.Zero}
		months[key] = b
	}
	return b
}

// recentMonths keeps the most recent six month buckets, ascending by
// month key.
func (s *Service) recentMonths(months map[string]*monthTotals) []models.MonthlyBucket {
	keys := make([]string, 0, len(months))
	for k := range months {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) > monthWindow {
		keys = keys[len(keys)-monthWindow:]
	}

	out := make([]models.MonthlyBucket, 0, len(keys))
	for _, k := range keys {
		b := months[k]
		out = append(out, models.MonthlyBucket{
			Month:      k,
			Investment: b.investment,
			Revenue:    b.revenue,
			Profit:     b.revenue.Sub(b.investment),
		})
	}
	return out
}
