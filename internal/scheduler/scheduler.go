// Package scheduler runs the two background sweeps: vaccination reminders
// and the weekly financial report export.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/poultrypro/backend/internal/config"
	"github.com/poultrypro/backend/internal/domain/models"
	"github.com/poultrypro/backend/internal/repository"
	"github.com/poultrypro/backend/internal/service/reporting"
)

// ReportExporter receives one report snapshot per owner per export run.
type ReportExporter interface {
	AppendReportSnapshot(ctx context.Context, ownerID string, report models.FinancialReport) error
}

// Scheduler manages the cron jobs.
type Scheduler struct {
	cron         *cron.Cron
	batches      repository.BatchRepository
	vaccinations repository.VaccinationRepository
	reportingSvc *reporting.Service
	exporter     ReportExporter // nil disables the export job
	cfg          config.SchedulerConfig
	logger       *zap.Logger
}

// NewScheduler creates a scheduler in the configured timezone. exporter
// may be nil when the sheets export is not configured.
func NewScheduler(cfg config.SchedulerConfig, batches repository.BatchRepository, vaccinations repository.VaccinationRepository, reportingSvc *reporting.Service, exporter ReportExporter, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, err
	}

	return &Scheduler{
		cron:         cron.New(cron.WithLocation(loc)),
		batches:      batches,
		vaccinations: vaccinations,
		reportingSvc: reportingSvc,
		exporter:     exporter,
		cfg:          cfg,
		logger:       logger,
	}, nil
}

// Start registers and starts the jobs.
func (s *Scheduler) Start() {
	s.logger.Info("starting scheduler")

	if _, err := s.cron.AddFunc(s.cfg.ReminderCron, s.sweepVaccinationReminders); err != nil {
		s.logger.Error("failed to schedule reminder sweep", zap.Error(err))
	}

	if s.exporter != nil {
		if _, err := s.cron.AddFunc(s.cfg.ExportCron, s.exportReports); err != nil {
			s.logger.Error("failed to schedule report export", zap.Error(err))
		}
	}

	s.cron.Start()
}

// Stop stops the scheduler.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	s.cron.Stop()
}

// sweepVaccinationReminders bumps the reminder count of pending
// vaccinations falling due within the configured window. The count is
// capped per record, so a vaccination generates at most
// MaxVaccinationReminders reminders over its lifetime.
func (s *Scheduler) sweepVaccinationReminders() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	dueBy := time.Now().UTC().AddDate(0, 0, s.cfg.ReminderWindowDays)
	pending, err := s.vaccinations.ListPendingDue(ctx, dueBy)
	if err != nil {
		s.logger.Error("failed to list pending vaccinations", zap.Error(err))
		return
	}

	for _, ev := range pending {
		count, err := s.vaccinations.IncrementReminder(ctx, ev.ID)
		if err != nil {
			s.logger.Error("failed to increment reminder",
				zap.String("vaccination_id", ev.ID), zap.Error(err))
			continue
		}
		s.logger.Info("vaccination reminder issued",
			zap.String("vaccination_id", ev.ID),
			zap.String("batch_id", ev.BatchID),
			zap.String("type", ev.Type),
			zap.String("due", models.DateKey(ev.Date)),
			zap.Int("reminder_count", count))
	}

	s.logger.Info("vaccination reminder sweep completed", zap.Int("pending", len(pending)))
}

// exportReports computes and exports one financial report snapshot per
// owner.
func (s *Scheduler) exportReports() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	owners, err := s.batches.DistinctOwners(ctx)
	if err != nil {
		s.logger.Error("failed to list owners for export", zap.Error(err))
		return
	}

	for _, owner := range owners {
		report, err := s.reportingSvc.ComputeFinancialReport(ctx, owner)
		if err != nil {
			s.logger.Error("failed to compute report for export",
				zap.String("owner_id", owner), zap.Error(err))
			continue
		}
		if err := s.exporter.AppendReportSnapshot(ctx, owner, report); err != nil {
			s.logger.Error("failed to export report snapshot",
				zap.String("owner_id", owner), zap.Error(err))
			continue
		}
	}

	s.logger.Info("report export completed", zap.Int("owners", len(owners)))
}
