package scores

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists score records in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initScoreSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

func initScoreSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS health_scores (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			recorded_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			score TEXT NOT NULL,
			content TEXT NOT NULL,
			total_guess TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_health_scores_user_recorded ON health_scores (user_id, recorded_at);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init scores schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) Append(ctx context.Context, record Record) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.RecordedAt.IsZero() {
		record.RecordedAt = time.Now().UTC()
	}
	record.RecordedAt = record.RecordedAt.Truncate(time.Second)

	_, err := s.pool.Exec(ctx,
		`INSERT INTO health_scores (id, user_id, recorded_at, score, content, total_guess)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		record.ID,
		record.UserID,
		record.RecordedAt,
		record.Score,
		record.Content,
		record.TotalGuess,
	)
	if err != nil {
		return fmt.Errorf("append score: %w", err)
	}
	return nil
}

func (s *PostgresStore) QueryByUser(ctx context.Context, userID string) ([]Record, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, recorded_at, score, content, total_guess
		 FROM health_scores WHERE user_id=$1`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query scores: %w", err)
	}
	defer rows.Close()

	records := make([]Record, 0)
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.UserID, &r.RecordedAt, &r.Score, &r.Content, &r.TotalGuess); err != nil {
			return nil, fmt.Errorf("scan score row: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate score rows: %w", err)
	}
	return records, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
