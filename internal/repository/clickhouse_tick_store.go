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
)

// ClickHouseTickStore implements TickStore backed by ClickHouse.
type ClickHouseTickStore struct {
	db    *sql.DB
	ch    *pkgch.Client
	table string
}

// NewClickHouseTickStore creates ClickHouse tick storage.
func NewClickHouseTickStore(ch *pkgch.Client, table string) domrepo.TickStore {
	return &ClickHouseTickStore{db: ch.DB(), ch: ch, table: table}
}

func (s *ClickHouseTickStore) Init(ctx context.Context) error {
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
        symbol String,
        ts DateTime,
        price Float64,
        volume Float64,
        side LowCardinality(String),
        source LowCardinality(String),
        event_id String,
        seq UInt64
    ) ENGINE = MergeTree ORDER BY (symbol, ts)`, s.table)
	return s.ch.InitSchema(ctx, []string{stmt})
}

func (s *ClickHouseTickStore) Store(ctx context.Context, t *models.Tick) error {
	q := fmt.Sprintf("INSERT INTO %s (symbol, ts, price, volume, side, source, event_id, seq) VALUES (?, ?, ?, ?, ?, ?, ?, ?)", s.table)
	// Idempotency keys derived from symbol+timestamp, matching the dedup key
	// the bar builder uses downstream.
	eventID := fmt.Sprintf("%s-%d", t.Symbol, t.Timestamp)
	seq := uint64(t.Timestamp)
	_, err := s.db.ExecContext(ctx, q,
		t.Symbol,
		time.Unix(t.Timestamp, 0),
		t.Price,
		t.Volume,
		t.Side,
		t.Source,
		eventID,
		seq,
	)
	return err
}

func (s *ClickHouseTickStore) StoreBatch(ctx context.Context, ticks []*models.Tick) error {
	if len(ticks) == 0 {
		return nil
	}
	// Multi-row VALUES keeps round-trips down; 2000 rows per chunk.
	const chunkSize = 2000
	for start := 0; start < len(ticks); start += chunkSize {
		end := start + chunkSize
		if end > len(ticks) {
			end = len(ticks)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*8)
		for _, t := range ticks[start:end] {
			if t == nil || t.Symbol == "" || t.Timestamp == 0 {
				continue
			}
			eventID := fmt.Sprintf("%s-%d", t.Symbol, t.Timestamp)
			seq := uint64(t.Timestamp)
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				t.Symbol,
				time.Unix(t.Timestamp, 0),
				t.Price,
				t.Volume,
				t.Side,
				t.Source,
				eventID,
				seq,
			)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (symbol, ts, price, volume, side, source, event_id, seq) VALUES %s", s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}
	return nil
}

func (s *ClickHouseTickStore) Health(ctx context.Context) error {
	return s.ch.Health(ctx)
}

func (s *ClickHouseTickStore) Close() error {
	return nil // pool owned by pkg client
}
