package worker

import (
	"context"
	"fmt"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/util"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const reportRunTimeout = 5 * time.Minute

// ReportGenerator builds the report for the day before now
type ReportGenerator interface {
	GeneratePreviousDay(ctx context.Context) (*models.DailySalesReport, error)
}

// ReportScheduler runs the daily report on a cron schedule
type ReportScheduler struct {
	cron      *cron.Cron
	generator ReportGenerator
	logger    *zap.Logger
}

// NewReportScheduler creates a scheduler firing on spec (standard five-field cron) in timezone
func NewReportScheduler(spec, timezone string, generator ReportGenerator) (*ReportScheduler, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid report timezone %q: %w", timezone, err)
	}

	s := &ReportScheduler{
		cron:      cron.New(cron.WithLocation(loc)),
		generator: generator,
		logger:    util.GetLogger().With(zap.String("worker", "report-scheduler")),
	}
	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return nil, fmt.Errorf("invalid report schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *ReportScheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), reportRunTimeout)
	defer cancel()

	report, err := s.generator.GeneratePreviousDay(ctx)
	if err != nil {
		s.logger.Error("Scheduled daily report failed", zap.Error(err))
		return
	}
	s.logger.Info("Scheduled daily report stored",
		zap.Time("report_date", report.ReportDate),
		zap.Int("total_orders", report.TotalOrders))
}

// Start runs the schedule until ctx is cancelled, then waits for a running job
func (s *ReportScheduler) Start(ctx context.Context) error {
	s.logger.Info("Starting report scheduler")
	s.cron.Start()
	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.logger.Info("Report scheduler stopped")
	return nil
}
