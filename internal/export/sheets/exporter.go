// Package sheets appends financial report snapshots to a Google
// spreadsheet, one row per owner per export run.
package sheets

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/poultrypro/backend/internal/config"
	"github.com/poultrypro/backend/internal/domain/models"
)

const snapshotRange = "Reports!A:L"

// Exporter writes snapshot rows using the official Google Sheets API.
type Exporter struct {
	service       *sheetsapi.Service
	spreadsheetID string
	logger        *zap.Logger
}

// NewExporter builds a sheets-backed exporter from service account
// credentials.
func NewExporter(ctx context.Context, cfg config.SheetsConfig, logger *zap.Logger) (*Exporter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	service, err := sheetsapi.NewService(ctx,
		option.WithCredentialsFile(cfg.CredentialsPath),
		option.WithScopes(sheetsapi.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sheets client: %w", err)
	}

	return &Exporter{
		service:       service,
		spreadsheetID: cfg.SpreadsheetID,
		logger:        logger,
	}, nil
}

// AppendReportSnapshot appends one row with the report totals.
func (e *Exporter) AppendReportSnapshot(ctx context.Context, ownerID string, report models.FinancialReport) error {
	values := []interface{}{
		time.Now().UTC().Format("2006-01-02"),
		ownerID,
		report.BatchCosts.String(),
		report.FeedCosts.String(),
		report.VaccinationCosts.String(),
		report.EggRevenue.String(),
		report.EggLoss.String(),
		report.MortalityLoss.String(),
		report.TotalInvestment.String(),
		report.TotalLoss.String(),
		report.NetProfit.String(),
		report.ROI.String(),
	}
	payload := &sheetsapi.ValueRange{Values: [][]interface{}{values}}

	call := e.service.Spreadsheets.Values.Append(e.spreadsheetID, snapshotRange, payload).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx)

	if _, err := call.Do(); err != nil {
		return fmt.Errorf("append report snapshot: %w", err)
	}

	e.logger.Debug("report snapshot appended", zap.String("owner_id", ownerID))
	return nil
}
