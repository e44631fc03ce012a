package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"CoinScope/internal/domain/models"
	domrepo "CoinScope/internal/domain/repository"
	pkgch "CoinScope/pkg/clickhouse"
	applogger "CoinScope/pkg/logger"
)

// barColumns is the column list shared by the bar tables and every query
// against them. Scan order in queryBars must match.
const barColumns = "bucket, symbol, open, high, low, close, vol"

// ClickHouseBarStore implements BarStore backed by ClickHouse.
type ClickHouseBarStore struct {
	db       *sql.DB
	ch       *pkgch.Client
	database string
	l        *applogger.Logger
}

func NewClickHouseBarStore(ch *pkgch.Client, database string) *ClickHouseBarStore {
	return &ClickHouseBarStore{db: ch.DB(), ch: ch, database: database}
}

// SetLogger injects a structured logger.
func (s *ClickHouseBarStore) SetLogger(l *applogger.Logger) { s.l = l }

// Init ensures the per-timeframe bar tables exist. ReplacingMergeTree keyed
// by (symbol, bucket) lets the builder re-emit a bucket after late ticks
// without duplicate rows surviving merges.
func (s *ClickHouseBarStore) Init(ctx context.Context) error {
	const tpl = `CREATE TABLE IF NOT EXISTS %s (
        bucket DateTime,
        symbol String,
        open Float64,
        high Float64,
        low Float64,
        close Float64,
        vol Float64
    ) ENGINE = ReplacingMergeTree ORDER BY (symbol, bucket)`
	stmts := make([]string, 0, 2)
	for _, tf := range []domrepo.Timeframe{domrepo.TF1m, domrepo.TF30m} {
		table, err := s.tableForTF(tf)
		if err != nil {
			return err
		}
		stmts = append(stmts, fmt.Sprintf(tpl, table))
	}
	return s.ch.InitSchema(ctx, stmts)
}

func (s *ClickHouseBarStore) WriteBars(ctx context.Context, bars []models.Bar, tf domrepo.Timeframe) error {
	if len(bars) == 0 {
		return nil
	}
	start := time.Now()
	table, err := s.tableForTF(tf)
	if err != nil {
		return err
	}

	values := make([]string, 0, len(bars))
	args := make([]interface{}, 0, len(bars)*7)
	for _, b := range bars {
		if b.Symbol == "" || b.Bucket.IsZero() {
			continue
		}
		values = append(values, "(?, ?, ?, ?, ?, ?, ?)")
		args = append(args, b.Bucket, b.Symbol, b.Open, b.High, b.Low, b.Close, b.Volume)
	}
	if len(values) == 0 {
		return nil
	}

	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s", table, barColumns, strings.Join(values, ","))
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		s.logQueryErr("write_bars", table, "", err)
		return fmt.Errorf("write bars: %w", err)
	}
	if s.l != nil {
		s.l.Debug("clickhouse write_bars ok",
			applogger.String("table", table),
			applogger.String("tf", string(tf)),
			applogger.Int("bars", len(values)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return nil
}

// Bars returns the bars for symbol in [from, to], oldest first. FINAL folds
// ReplacingMergeTree versions so re-emitted buckets read back deduplicated.
func (s *ClickHouseBarStore) Bars(ctx context.Context, symbol string, from, to time.Time, tf domrepo.Timeframe) ([]models.Bar, error) {
	start := time.Now()
	table, err := s.tableForTF(tf)
	if err != nil {
		return nil, err
	}
	q := fmt.Sprintf(
		"SELECT %s FROM %s FINAL WHERE symbol = ? AND bucket >= ? AND bucket <= ? ORDER BY bucket ASC",
		barColumns, table,
	)
	out, err := s.queryBars(ctx, "get_bars", table, symbol, q, 256, symbol, from, to)
	if err != nil {
		return nil, err
	}
	if s.l != nil {
		s.l.Info("clickhouse get_bars ok",
			applogger.String("table", table),
			applogger.String("symbol", symbol),
			applogger.String("tf", string(tf)),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

// LatestBars returns the n most recent bars for symbol, oldest first.
func (s *ClickHouseBarStore) LatestBars(ctx context.Context, symbol string, n int, tf domrepo.Timeframe) ([]models.Bar, error) {
	start := time.Now()
	table, err := s.tableForTF(tf)
	if err != nil {
		return nil, err
	}
	q := fmt.Sprintf(
		"SELECT %s FROM %s FINAL WHERE symbol = ? ORDER BY bucket DESC LIMIT ?",
		barColumns, table,
	)
	out, err := s.queryBars(ctx, "latest_bars", table, symbol, q, n, symbol, n)
	if err != nil {
		return nil, err
	}
	// the query reads newest first; callers expect ascending buckets
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	if s.l != nil {
		s.l.Info("clickhouse latest_bars ok",
			applogger.String("table", table),
			applogger.String("symbol", symbol),
			applogger.String("tf", string(tf)),
			applogger.Int("limit", n),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

// queryBars runs a SELECT over barColumns and scans the rows in query order.
// hint pre-sizes the result slice.
func (s *ClickHouseBarStore) queryBars(ctx context.Context, op, table, symbol, query string, hint int, args ...interface{}) ([]models.Bar, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		s.logQueryErr(op, table, symbol, err)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	if hint < 0 {
		hint = 0
	}
	out := make([]models.Bar, 0, hint)
	for rows.Next() {
		var b models.Bar
		if err := rows.Scan(&b.Bucket, &b.Symbol, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			s.logQueryErr(op, table, symbol, err)
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		s.logQueryErr(op, table, symbol, err)
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (s *ClickHouseBarStore) logQueryErr(op, table, symbol string, err error) {
	if s.l == nil {
		return
	}
	fields := []applogger.Field{
		applogger.String("table", table),
		applogger.Error(err),
	}
	if symbol != "" {
		fields = append(fields, applogger.String("symbol", symbol))
	}
	s.l.Error("clickhouse "+op+" error", fields...)
}

func (s *ClickHouseBarStore) tableForTF(tf domrepo.Timeframe) (string, error) {
	switch tf {
	case domrepo.TF1m, domrepo.TF5m:
		// 5m folds to the 1m table; aggregate in memory when needed
		return s.database + ".bars_1m", nil
	case domrepo.TF30m:
		return s.database + ".bars_30m", nil
	default:
		return "", fmt.Errorf("unsupported timeframe: %s", tf)
	}
}
