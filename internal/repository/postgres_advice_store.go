package repository

import (
	"context"
	"fmt"
	"time"

	"CoinScope/internal/domain/models"
	domrepo "CoinScope/internal/domain/repository"
	applogger "CoinScope/pkg/logger"
	pkgpg "CoinScope/pkg/postgres"
)

// PostgresAdviceStore implements AdviceStore on top of a pgx pool.
type PostgresAdviceStore struct {
	pg    *pkgpg.Client
	table string
	l     *applogger.Logger
}

func NewPostgresAdviceStore(pg *pkgpg.Client) domrepo.AdviceStore {
	return &PostgresAdviceStore{pg: pg, table: "advises"}
}

// SetLogger injects a structured logger.
func (s *PostgresAdviceStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *PostgresAdviceStore) Init(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
            id BIGSERIAL PRIMARY KEY,
            symbol TEXT NOT NULL,
            advice_action TEXT NOT NULL,
            advice_strength TEXT NOT NULL,
            reason TEXT NOT NULL DEFAULT '',
            predicted_at BIGINT NOT NULL,
            created_at BIGINT NOT NULL,
            price DOUBLE PRECISION
        )`, s.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_created
            ON %s (created_at DESC, id DESC)`, s.table, s.table),
	}
	return s.pg.InitSchema(ctx, stmts)
}

func (s *PostgresAdviceStore) Insert(ctx context.Context, a *models.Advice) (int64, error) {
	if a == nil {
		return 0, fmt.Errorf("nil advice")
	}
	start := time.Now()
	createdAt := a.CreatedAt
	if createdAt == 0 {
		createdAt = time.Now().Unix()
	}
	q := fmt.Sprintf(`INSERT INTO %s
        (symbol, advice_action, advice_strength, reason, predicted_at, created_at, price)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id`, s.table)

	var id int64
	err := s.pg.Pool().QueryRow(ctx, q,
		a.Symbol, a.Action, a.Strength, a.Reason, a.PredictedAt, createdAt, a.Price,
	).Scan(&id)
	if err != nil {
		if s.l != nil {
			s.l.Error("postgres insert advice error",
				applogger.String("symbol", a.Symbol),
				applogger.Error(err),
			)
		}
		return 0, fmt.Errorf("insert advice: %w", err)
	}
	if s.l != nil {
		s.l.Info("postgres insert advice ok",
			applogger.String("symbol", a.Symbol),
			applogger.String("action", a.Action),
			applogger.Int64("id", id),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return id, nil
}

func (s *PostgresAdviceStore) LastN(ctx context.Context, n int) ([]models.Advice, error) {
	if n <= 0 {
		n = 10
	}
	q := fmt.Sprintf(`SELECT id, symbol, advice_action, advice_strength, reason, predicted_at, created_at, price
        FROM %s
        ORDER BY created_at DESC, id DESC
        LIMIT $1`, s.table)

	rows, err := s.pg.Pool().Query(ctx, q, n)
	if err != nil {
		if s.l != nil {
			s.l.Error("postgres last advices query error",
				applogger.Int("limit", n),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("query advices: %w", err)
	}
	defer rows.Close()

	out := make([]models.Advice, 0, n)
	for rows.Next() {
		var a models.Advice
		if err := rows.Scan(&a.ID, &a.Symbol, &a.Action, &a.Strength, &a.Reason, &a.PredictedAt, &a.CreatedAt, &a.Price); err != nil {
			return nil, fmt.Errorf("scan advice: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (s *PostgresAdviceStore) Health(ctx context.Context) error { return s.pg.Health(ctx) }

// Close is a no-op; the pool is owned by the pkg client.
func (s *PostgresAdviceStore) Close() error { return nil }
