package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ogulcanaydogan/ad-spend-guardian/pkg/model"
	_ "modernc.org/sqlite"
)

// SQLite implements Storage using an SQLite database. It also serves as
// the snapshot, budget and daily spend source of recorded metrics.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// pragmas apply to every pooled connection.
var pragmas = []string{
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"busy_timeout(5000)",
	"temp_store(MEMORY)",
}

// NewSQLite opens or creates an SQLite database at the given path.
func NewSQLite(dbPath string) (*SQLite, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	params := make([]string, 0, len(pragmas))
	for _, p := range pragmas {
		params = append(params, "_pragma="+p)
	}
	db, err := sql.Open("sqlite", dbPath+"?"+strings.Join(params, "&"))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := runMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db, now: time.Now}, nil
}

// SetClock replaces the clock that decides which days are complete.
func (s *SQLite) SetClock(now func() time.Time) {
	s.now = now
}

func (s *SQLite) RecordDailyMetrics(ctx context.Context, m *model.DailyMetrics) error {
	if m.Channel == "" {
		return fmt.Errorf("record daily metrics: empty channel")
	}
	if m.Spend < 0 || m.Conversions < 0 || m.Revenue < 0 {
		return fmt.Errorf("record daily metrics: negative values for %s", m.Channel)
	}
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.Date.IsZero() {
		m.Date = s.now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO daily_metrics (id, date, channel, spend, conversions, revenue)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(date, channel) DO UPDATE SET
		   spend = excluded.spend,
		   conversions = excluded.conversions,
		   revenue = excluded.revenue`,
		m.ID, m.Date.Format(model.DateLayout), m.Channel, m.Spend, m.Conversions, m.Revenue,
	)
	if err != nil {
		return fmt.Errorf("insert daily metrics: %w", err)
	}
	return nil
}

func (s *SQLite) QueryDailyMetrics(ctx context.Context, filter model.MetricsFilter) ([]model.DailyMetrics, error) {
	query := "SELECT id, date, channel, spend, conversions, revenue FROM daily_metrics"
	where, args := buildWhereClause(filter)
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY date, channel"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query daily metrics: %w", err)
	}
	defer rows.Close()

	var out []model.DailyMetrics
	for rows.Next() {
		var (
			m    model.DailyMetrics
			date string
		)
		if err := rows.Scan(&m.ID, &date, &m.Channel, &m.Spend, &m.Conversions, &m.Revenue); err != nil {
			return nil, fmt.Errorf("scan daily metrics row: %w", err)
		}
		if m.Date, err = time.Parse(model.DateLayout, date); err != nil {
			return nil, fmt.Errorf("parse metrics date %q: %w", date, err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// FetchChannelSnapshot sums the completed days of the current period
// recorded for a channel.
func (s *SQLite) FetchChannelSnapshot(ctx context.Context, channelID string) (model.ChannelSnapshot, error) {
	start, end, err := s.completedDays(model.PeriodOf(s.now()))
	if err != nil {
		return model.ChannelSnapshot{}, err
	}

	var (
		spend, revenue float64
		conversions    int64
	)
	err = s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(spend), 0), COALESCE(SUM(conversions), 0), COALESCE(SUM(revenue), 0)
		 FROM daily_metrics WHERE channel = ? AND date >= ? AND date < ?`,
		channelID, start.Format(model.DateLayout), end.Format(model.DateLayout),
	).Scan(&spend, &conversions, &revenue)
	if err != nil {
		return model.ChannelSnapshot{}, fmt.Errorf("sum channel %q: %w", channelID, err)
	}
	return model.NewChannelSnapshot(channelID, spend, conversions, revenue), nil
}

// DailySpendSeries returns total spend per completed day of the period.
func (s *SQLite) DailySpendSeries(ctx context.Context, period string) ([]model.DailySpend, error) {
	start, end, err := s.completedDays(period)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT date, SUM(spend) FROM daily_metrics
		 WHERE date >= ? AND date < ?
		 GROUP BY date ORDER BY date`,
		start.Format(model.DateLayout), end.Format(model.DateLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("query daily spend: %w", err)
	}
	defer rows.Close()

	var out []model.DailySpend
	for rows.Next() {
		var (
			date string
			d    model.DailySpend
		)
		if err := rows.Scan(&date, &d.Amount); err != nil {
			return nil, fmt.Errorf("scan daily spend row: %w", err)
		}
		if d.Date, err = time.Parse(model.DateLayout, date); err != nil {
			return nil, fmt.Errorf("parse spend date %q: %w", date, err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// completedDays bounds period to the days before today.
func (s *SQLite) completedDays(period string) (start, end time.Time, err error) {
	start, end, err = model.PeriodBounds(period)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	y, m, d := s.now().Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	if today.Before(end) {
		end = today
	}
	return start, end, nil
}

// MonthlyBudget implements the budget source over the budgets table.
func (s *SQLite) MonthlyBudget(ctx context.Context, period string) (float64, error) {
	b, err := s.GetBudget(ctx, period)
	if err != nil {
		return 0, err
	}
	return b.AmountUSD, nil
}

func (s *SQLite) SetBudget(ctx context.Context, budget *model.Budget) error {
	if _, _, err := model.PeriodBounds(budget.Period); err != nil {
		return fmt.Errorf("set budget: %w", err)
	}
	if budget.AmountUSD < 0 {
		return fmt.Errorf("set budget: negative amount %.2f", budget.AmountUSD)
	}
	now := s.now().UTC()
	if budget.CreatedAt.IsZero() {
		budget.CreatedAt = now
	}
	budget.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO budgets (period, amount_usd, created_at, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(period) DO UPDATE SET
		   amount_usd = excluded.amount_usd,
		   updated_at = excluded.updated_at`,
		budget.Period, budget.AmountUSD, budget.CreatedAt, budget.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("set budget: %w", err)
	}
	return nil
}

func (s *SQLite) GetBudget(ctx context.Context, period string) (*model.Budget, error) {
	var b model.Budget
	err := s.db.QueryRowContext(ctx,
		`SELECT period, amount_usd, created_at, updated_at FROM budgets WHERE period = ?`, period,
	).Scan(&b.Period, &b.AmountUSD, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("budget for %s: %w", period, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get budget: %w", err)
	}
	return &b, nil
}

func (s *SQLite) ListBudgets(ctx context.Context) ([]model.Budget, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT period, amount_usd, created_at, updated_at FROM budgets ORDER BY period DESC`)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var budgets []model.Budget
	for rows.Next() {
		var b model.Budget
		if err := rows.Scan(&b.Period, &b.AmountUSD, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan budget row: %w", err)
		}
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

func (s *SQLite) SaveReport(ctx context.Context, report *model.Report) error {
	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO reports (id, period, date, overall_status, partial_data, body)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		report.ID, report.Period, report.Date.UTC(), string(report.OverallStatus), report.PartialData, string(body),
	)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

func (s *SQLite) LatestReport(ctx context.Context) (*model.Report, error) {
	reports, err := s.ListReports(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(reports) == 0 {
		return nil, fmt.Errorf("latest report: %w", ErrNotFound)
	}
	return &reports[0], nil
}

func (s *SQLite) ListReports(ctx context.Context, limit int) ([]model.Report, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT body FROM reports ORDER BY date DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var reports []model.Report
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan report row: %w", err)
		}
		var r model.Report
		if err := json.Unmarshal([]byte(body), &r); err != nil {
			return nil, fmt.Errorf("decode report: %w", err)
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

func (s *SQLite) GetAlertHistory(ctx context.Context, key model.HistoryKey) (*model.AlertHistoryEntry, error) {
	var (
		e    model.AlertHistoryEntry
		nano int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT last_sent_at, sent_count, last_level FROM alert_history WHERE dimension = ? AND level = ?`,
		string(key.Dimension), string(key.Level),
	).Scan(&nano, &e.SentCount, &e.LastLevel)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get alert history: %w", err)
	}
	e.LastSentAt = time.Unix(0, nano).UTC()
	return &e, nil
}

func (s *SQLite) PutAlertHistory(ctx context.Context, key model.HistoryKey, entry model.AlertHistoryEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO alert_history (dimension, level, last_sent_at, sent_count, last_level)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(dimension, level) DO UPDATE SET
		   last_sent_at = excluded.last_sent_at,
		   sent_count = excluded.sent_count,
		   last_level = excluded.last_level`,
		string(key.Dimension), string(key.Level), entry.LastSentAt.UnixNano(), entry.SentCount, string(entry.LastLevel),
	)
	if err != nil {
		return fmt.Errorf("put alert history: %w", err)
	}
	return nil
}

// SwapAlertHistory is a compare-and-swap on the (last_sent_at,
// sent_count) pair of the stored entry.
func (s *SQLite) SwapAlertHistory(ctx context.Context, key model.HistoryKey, old *model.AlertHistoryEntry, next model.AlertHistoryEntry) (bool, error) {
	var (
		result sql.Result
		err    error
	)
	if old == nil {
		result, err = s.db.ExecContext(ctx,
			`INSERT INTO alert_history (dimension, level, last_sent_at, sent_count, last_level)
			 VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT(dimension, level) DO NOTHING`,
			string(key.Dimension), string(key.Level), next.LastSentAt.UnixNano(), next.SentCount, string(next.LastLevel),
		)
	} else {
		result, err = s.db.ExecContext(ctx,
			`UPDATE alert_history SET last_sent_at = ?, sent_count = ?, last_level = ?
			 WHERE dimension = ? AND level = ? AND last_sent_at = ? AND sent_count = ?`,
			next.LastSentAt.UnixNano(), next.SentCount, string(next.LastLevel),
			string(key.Dimension), string(key.Level), old.LastSentAt.UnixNano(), old.SentCount,
		)
	}
	if err != nil {
		return false, fmt.Errorf("swap alert history: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check rows affected: %w", err)
	}
	return n == 1, nil
}

func (s *SQLite) ListAlertHistory(ctx context.Context) ([]model.AlertHistoryRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT dimension, level, last_sent_at, sent_count, last_level FROM alert_history ORDER BY dimension, level`)
	if err != nil {
		return nil, fmt.Errorf("list alert history: %w", err)
	}
	defer rows.Close()

	var out []model.AlertHistoryRecord
	for rows.Next() {
		var (
			r    model.AlertHistoryRecord
			nano int64
		)
		if err := rows.Scan(&r.Key.Dimension, &r.Key.Level, &nano, &r.Entry.SentCount, &r.Entry.LastLevel); err != nil {
			return nil, fmt.Errorf("scan alert history row: %w", err)
		}
		r.Entry.LastSentAt = time.Unix(0, nano).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLite) ResetAlertHistory(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM alert_history`); err != nil {
		return fmt.Errorf("reset alert history: %w", err)
	}
	return nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

// buildWhereClause constructs a SQL WHERE clause from a MetricsFilter.
func buildWhereClause(filter model.MetricsFilter) (string, []any) {
	var conditions []string
	var args []any

	if filter.Channel != "" {
		conditions = append(conditions, "channel = ?")
		args = append(args, filter.Channel)
	}
	if !filter.Start.IsZero() {
		conditions = append(conditions, "date >= ?")
		args = append(args, filter.Start.Format(model.DateLayout))
	}
	if !filter.End.IsZero() {
		conditions = append(conditions, "date < ?")
		args = append(args, filter.End.Format(model.DateLayout))
	}

	return strings.Join(conditions, " AND "), args
}
