package service

import (
	"context"
	"fmt"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/util"

	"go.uber.org/zap"
)

const reportDateLayout = "2006-01-02"

// ReportService builds the daily sales report
type ReportService struct {
	store  ReportStore
	loc    *time.Location
	now    func() time.Time
	logger *zap.Logger
}

// NewReportService creates a report service that cuts days in timezone
func NewReportService(store ReportStore, timezone string) (*ReportService, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid report timezone %q: %w", timezone, err)
	}
	return &ReportService{
		store:  store,
		loc:    loc,
		now:    time.Now,
		logger: util.GetLogger(),
	}, nil
}

// GenerateDaily aggregates the orders created on day (YYYY-MM-DD) and stores the
// report. An empty day means yesterday in the report timezone.
func (s *ReportService) GenerateDaily(ctx context.Context, day, trigger string) (*models.DailySalesReport, error) {
	ctx, span := util.StartSpan(ctx, "ReportService.GenerateDaily")
	defer span.End()

	if day == "" {
		day = s.now().In(s.loc).AddDate(0, 0, -1).Format(reportDateLayout)
	}

	start, err := time.ParseInLocation(reportDateLayout, day, s.loc)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidReportDate, day)
	}
	if start.After(s.now().In(s.loc)) {
		return nil, fmt.Errorf("%w: %s is in the future", ErrInvalidReportDate, day)
	}
	end := start.AddDate(0, 0, 1)

	totals, err := s.store.AggregateSales(ctx, start, end)
	if err != nil {
		util.DailyReportsGeneratedTotal.WithLabelValues(trigger, "error").Inc()
		return nil, fmt.Errorf("failed to aggregate sales: %w", err)
	}

	report := &models.DailySalesReport{
		ReportDate:      start,
		TotalOrders:     totals.TotalOrders,
		PaidOrders:      totals.PaidOrders,
		CancelledOrders: totals.CancelledOrders,
		RevenueCents:    totals.RevenueCents,
	}
	if totals.PaidOrders > 0 {
		report.AverageTicketCents = totals.RevenueCents / int64(totals.PaidOrders)
	}

	if err := s.store.UpsertDailyReport(ctx, report); err != nil {
		util.DailyReportsGeneratedTotal.WithLabelValues(trigger, "error").Inc()
		return nil, fmt.Errorf("failed to save report: %w", err)
	}

	util.DailyReportsGeneratedTotal.WithLabelValues(trigger, "ok").Inc()
	s.logger.Info("Daily report generated",
		zap.String("date", day),
		zap.String("trigger", trigger),
		zap.Int("total_orders", report.TotalOrders),
		zap.Int64("revenue_cents", report.RevenueCents))
	return report, nil
}

// GeneratePreviousDay reports on yesterday in the report timezone
func (s *ReportService) GeneratePreviousDay(ctx context.Context) (*models.DailySalesReport, error) {
	return s.GenerateDaily(ctx, "", "cron")
}
