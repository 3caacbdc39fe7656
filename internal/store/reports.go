package store

import (
	"context"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/orderstatus"
)

// SalesTotals is the raw aggregate of orders in a time window
type SalesTotals struct {
	TotalOrders     int   `db:"total_orders"`
	PaidOrders      int   `db:"paid_orders"`
	CancelledOrders int   `db:"cancelled_orders"`
	RevenueCents    int64 `db:"revenue_cents"`
}

// AggregateSales sums orders created in [from, to)
func (s *Store) AggregateSales(ctx context.Context, from, to time.Time) (*SalesTotals, error) {
	var totals SalesTotals
	err := s.db.GetContext(ctx, &totals,
		`SELECT
			COUNT(*) AS total_orders,
			COUNT(*) FILTER (WHERE payment_status = $1) AS paid_orders,
			COUNT(*) FILTER (WHERE status = $2) AS cancelled_orders,
			COALESCE(SUM(total_cents) FILTER (WHERE payment_status = $1), 0) AS revenue_cents
		FROM orders
		WHERE created_at >= $3 AND created_at < $4`,
		models.PaymentStatusPaid, string(orderstatus.Cancelled), from, to)
	if err != nil {
		return nil, err
	}
	return &totals, nil
}

// UpsertDailyReport writes the report for its date, replacing a previous run
func (s *Store) UpsertDailyReport(ctx context.Context, r *models.DailySalesReport) error {
	return s.db.GetContext(ctx, &r.GeneratedAt,
		`INSERT INTO daily_sales_reports
			(report_date, total_orders, paid_orders, cancelled_orders, revenue_cents, average_ticket_cents)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (report_date) DO UPDATE SET
			total_orders = EXCLUDED.total_orders,
			paid_orders = EXCLUDED.paid_orders,
			cancelled_orders = EXCLUDED.cancelled_orders,
			revenue_cents = EXCLUDED.revenue_cents,
			average_ticket_cents = EXCLUDED.average_ticket_cents,
			generated_at = NOW()
		RETURNING generated_at`,
		r.ReportDate, r.TotalOrders, r.PaidOrders, r.CancelledOrders, r.RevenueCents, r.AverageTicketCents)
}
