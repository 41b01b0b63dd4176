package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"AlphaChart/internal/domain/models"
	domrepo "AlphaChart/internal/domain/repository"
	pkgch "AlphaChart/pkg/clickhouse"
	applogger "AlphaChart/pkg/logger"
)

// CHBarSource implements BarSource backed by ClickHouse bar tables.
type CHBarSource struct {
	db       *sql.DB
	database string
	limits   map[models.Resolution]int
	l        *applogger.Logger
}

func NewCHBarSource(ch *pkgch.Client) *CHBarSource {
	return &CHBarSource{
		db:       ch.DB(),
		database: ch.Database(),
		limits: map[models.Resolution]int{
			models.Intraday: domrepo.DefaultLimit(models.Intraday),
			models.EndOfDay: domrepo.DefaultLimit(models.EndOfDay),
		},
	}
}

// SetLogger injects a structured logger.
func (s *CHBarSource) SetLogger(l *applogger.Logger) { s.l = l }

// SetLimit overrides the number of bars read for res.
func (s *CHBarSource) SetLimit(res models.Resolution, n int) {
	if n > 0 {
		s.limits[res] = n
	}
}

// FetchBars reads the latest bars for symbol and returns them oldest first.
func (s *CHBarSource) FetchBars(ctx context.Context, symbol string, res models.Resolution) ([]models.Bar, error) {
	start := time.Now()
	table, err := BarTable(s.database, res)
	if err != nil {
		return nil, err
	}
	n := s.limits[res]
	q := latestBarsQuery(table)

	rows, err := s.db.QueryContext(ctx, q, symbol, n)
	if err != nil {
		s.logError("clickhouse latest_bars query error", table, symbol, n, err)
		return nil, fmt.Errorf("get latest bars: %w", err)
	}
	defer rows.Close()

	out := make([]models.Bar, 0, n)
	for rows.Next() {
		var b models.Bar
		if err := rows.Scan(&b.Time, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			s.logError("clickhouse latest_bars scan error", table, symbol, n, err)
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		s.logError("clickhouse latest_bars rows error", table, symbol, n, err)
		return nil, fmt.Errorf("rows: %w", err)
	}
	reverseBars(out)

	if s.l != nil {
		s.l.Debug("clickhouse latest_bars ok",
			applogger.String("table", table),
			applogger.String("symbol", symbol),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration", time.Since(start)),
		)
	}
	return out, nil
}

func (s *CHBarSource) logError(msg, table, symbol string, limit int, err error) {
	if s.l == nil {
		return
	}
	s.l.Error(msg,
		applogger.String("table", table),
		applogger.String("symbol", symbol),
		applogger.Int("limit", limit),
		applogger.Error(err),
	)
}

// BarTable returns the qualified table holding bars of res.
func BarTable(database string, res models.Resolution) (string, error) {
	if database == "" {
		database = "default"
	}
	switch res {
	case models.Intraday:
		return database + ".bars_5min", nil
	case models.EndOfDay:
		return database + ".bars_1day", nil
	default:
		return "", fmt.Errorf("unsupported resolution: %s", res)
	}
}

// BarSchema returns idempotent DDL for the bar tables.
func BarSchema(database string) []string {
	if database == "" {
		database = "default"
	}
	const tpl = `
        CREATE TABLE IF NOT EXISTS %s (
            symbol LowCardinality(String),
            time   DateTime64(3, 'UTC'),
            open   Float64,
            high   Float64,
            low    Float64,
            close  Float64,
            volume Float64
        ) ENGINE = ReplacingMergeTree
        ORDER BY (symbol, time)
    `
	stmts := []string{fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database)}
	for _, res := range models.Resolutions {
		table, _ := BarTable(database, res)
		stmts = append(stmts, fmt.Sprintf(tpl, table))
	}
	return stmts
}

func latestBarsQuery(table string) string {
	const qtpl = `
        SELECT time, open, high, low, close, volume
        FROM %s FINAL
        WHERE symbol = ?
        ORDER BY time DESC
        LIMIT ?
    `
	return fmt.Sprintf(qtpl, table)
}

func reverseBars(bars []models.Bar) {
	for i, j := 0, len(bars)-1; i < j; i, j = i+1, j-1 {
		bars[i], bars[j] = bars[j], bars[i]
	}
}

var _ domrepo.BarSource = (*CHBarSource)(nil)
