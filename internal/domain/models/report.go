package models

import "github.com/shopspring/decimal"

// FinancialReport is the owner-level roll-up of costs, revenue and losses
// across all batches and their event streams.
//
// MortalityLoss is an opportunity-cost estimate (lost future egg production
// priced at the configured unit egg price), not money actually spent.
type FinancialReport struct {
	BatchCosts       decimal.Decimal `json:"batchCosts"`
	FeedCosts        decimal.Decimal `json:"feedCosts"`
	VaccinationCosts decimal.Decimal `json:"vaccinationCosts"`

	EggRevenue    decimal.Decimal `json:"eggRevenue"`
	EggLoss       decimal.Decimal `json:"eggLoss"`
	MortalityLoss decimal.Decimal `json:"mortalityLoss"`

	TotalInvestment decimal.Decimal `json:"totalInvestment"`
	TotalRevenue    decimal.Decimal `json:"totalRevenue"`
	TotalLoss       decimal.Decimal `json:"totalLoss"`
	NetProfit       decimal.Decimal `json:"netProfit"`
	// ROI in percent. Zero when TotalInvestment is zero.
	ROI decimal.Decimal `json:"roi"`

	Monthly     []MonthlyBucket    `json:"monthly"`
	Performance []BatchPerformance `json:"performance"`
}

// MonthlyBucket is one calendar month of investment vs revenue.
type MonthlyBucket struct {
	Month      string          `json:"month"` // "2006-01"
	Investment decimal.Decimal `json:"investment"`
	Revenue    decimal.Decimal `json:"revenue"`
	Profit     decimal.Decimal `json:"profit"`
}

// BatchPerformance is one batch's revenue minus investment.
type BatchPerformance struct {
	BatchID   string          `json:"batchId"`
	BatchName string          `json:"batchName"`
	Profit    decimal.Decimal `json:"profit"`
}
