package transaction

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/FACorreiaa/finance-ingest/internal/domain/common"
)

// PgxPool abstracts the subset of pgxpool.Pool used by the repository to allow mocking in tests.
type PgxPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ PgxPool = (*pgxpool.Pool)(nil)

// PostgresStore implements Store using PostgreSQL.
type PostgresStore struct {
	pgpool PgxPool
}

// NewPostgresStore creates a new PostgreSQL-backed transaction store.
func NewPostgresStore(pgpool PgxPool) *PostgresStore {
	return &PostgresStore{pgpool: pgpool}
}

var _ Store = (*PostgresStore)(nil)

// The keyed upsert refreshes identifying and descriptive fields but never
// touches user_category or ai_category: categorization state survives
// re-ingestion. xmax = 0 distinguishes a fresh insert from a conflict
// update.
const upsertByNaturalKeyQuery = `
	INSERT INTO transactions
		(id, date, merchant, category, ai_category, user_category, amount,
		 currency, source, natural_key, subject, from_address, raw_snippet, updated_at)
	VALUES ($1, $2, $3, $4, NULL, NULL, $5, $6, $7, $8, $9, $10, $11, $12)
	ON CONFLICT (natural_key) DO UPDATE SET
		date = EXCLUDED.date,
		merchant = EXCLUDED.merchant,
		category = COALESCE(EXCLUDED.category, transactions.category),
		amount = EXCLUDED.amount,
		source = EXCLUDED.source,
		subject = COALESCE(EXCLUDED.subject, transactions.subject),
		from_address = COALESCE(EXCLUDED.from_address, transactions.from_address),
		raw_snippet = COALESCE(EXCLUDED.raw_snippet, transactions.raw_snippet),
		updated_at = EXCLUDED.updated_at
	RETURNING id, (xmax = 0) AS inserted
`

const insertQuery = `
	INSERT INTO transactions
		(id, date, merchant, category, ai_category, user_category, amount,
		 currency, source, natural_key, subject, from_address, raw_snippet, updated_at)
	VALUES ($1, $2, $3, $4, NULL, NULL, $5, $6, $7, NULL, $8, $9, $10, $11)
	RETURNING id
`

// Upsert applies the record atomically. A single INSERT ... ON CONFLICT
// statement keeps the insert-or-update decision race-free under
// concurrent writers with the same natural key.
func (s *PostgresStore) Upsert(ctx context.Context, rec *Record) (bool, error) {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}

	if rec.NaturalKey == nil || *rec.NaturalKey == "" {
		err := s.pgpool.QueryRow(ctx, insertQuery,
			rec.ID, rec.Date, rec.Merchant, rec.Category, rec.Amount,
			rec.Currency, rec.Source, rec.Subject, rec.FromAddress,
			rec.RawSnippet, rec.UpdatedAt,
		).Scan(&rec.ID)
		if err != nil {
			return false, fmt.Errorf("failed to insert transaction: %w", err)
		}
		return true, nil
	}

	var inserted bool
	err := s.pgpool.QueryRow(ctx, upsertByNaturalKeyQuery,
		rec.ID, rec.Date, rec.Merchant, rec.Category, rec.Amount,
		rec.Currency, rec.Source, rec.NaturalKey, rec.Subject,
		rec.FromAddress, rec.RawSnippet, rec.UpdatedAt,
	).Scan(&rec.ID, &inserted)
	if err != nil {
		return false, fmt.Errorf("failed to upsert transaction: %w", err)
	}

	return inserted, nil
}

const setUserCategoryQuery = `
	UPDATE transactions SET user_category = $2, updated_at = NOW() WHERE id = $1
`

// SetUserCategory overwrites the user override. The override always wins
// on reads, so no blank check applies here.
func (s *PostgresStore) SetUserCategory(ctx context.Context, id uuid.UUID, category string) error {
	tag, err := s.pgpool.Exec(ctx, setUserCategoryQuery, id, category)
	if err != nil {
		return fmt.Errorf("failed to set user category: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrNotFound
	}
	return nil
}

const ruleTargetsQuery = `
	SELECT id, merchant FROM transactions
	WHERE category IS NULL OR btrim(category) = ''
`

func (s *PostgresStore) RuleTargets(ctx context.Context) ([]RuleTarget, error) {
	rows, err := s.pgpool.Query(ctx, ruleTargetsQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to list rule targets: %w", err)
	}
	targets, err := pgx.CollectRows(rows, pgx.RowToStructByName[RuleTarget])
	if err != nil {
		return nil, fmt.Errorf("failed to scan rule targets: %w", err)
	}
	return targets, nil
}

const setCategoryIfBlankQuery = `
	UPDATE transactions SET category = $2, updated_at = NOW()
	WHERE id = $1 AND (category IS NULL OR btrim(category) = '')
`

// SetCategoryIfBlank fills the rule category. The WHERE clause enforces
// the fill-only law in the store itself.
func (s *PostgresStore) SetCategoryIfBlank(ctx context.Context, id uuid.UUID, category string) (bool, error) {
	tag, err := s.pgpool.Exec(ctx, setCategoryIfBlankQuery, id, category)
	if err != nil {
		return false, fmt.Errorf("failed to set rule category: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

const trainingSetQuery = `
	SELECT id, COALESCE(NULLIF(btrim(user_category), ''), category) AS label,
	       merchant || ' ' || COALESCE(subject, '') || ' ' || COALESCE(raw_snippet, '') AS text
	FROM transactions
	WHERE COALESCE(NULLIF(btrim(user_category), ''), NULLIF(btrim(category), '')) IS NOT NULL
`

// TrainingSet returns every record with an effective prior label. User
// overrides mix with rule assignments so corrections influence future
// predictions.
func (s *PostgresStore) TrainingSet(ctx context.Context) ([]TrainingRow, error) {
	rows, err := s.pgpool.Query(ctx, trainingSetQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to list training rows: %w", err)
	}
	training, err := pgx.CollectRows(rows, pgx.RowToStructByName[TrainingRow])
	if err != nil {
		return nil, fmt.Errorf("failed to scan training rows: %w", err)
	}
	return training, nil
}

const predictTargetsQuery = `
	SELECT id, merchant || ' ' || COALESCE(subject, '') || ' ' || COALESCE(raw_snippet, '') AS text
	FROM transactions
	WHERE (ai_category IS NULL OR btrim(ai_category) = '')
	  AND (user_category IS NULL OR btrim(user_category) = '')
`

func (s *PostgresStore) PredictTargets(ctx context.Context) ([]PredictTarget, error) {
	rows, err := s.pgpool.Query(ctx, predictTargetsQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to list predict targets: %w", err)
	}
	targets, err := pgx.CollectRows(rows, pgx.RowToStructByName[PredictTarget])
	if err != nil {
		return nil, fmt.Errorf("failed to scan predict targets: %w", err)
	}
	return targets, nil
}

const setAICategoryIfBlankQuery = `
	UPDATE transactions SET ai_category = $2, updated_at = NOW()
	WHERE id = $1 AND (ai_category IS NULL OR btrim(ai_category) = '')
	  AND (user_category IS NULL OR btrim(user_category) = '')
`

func (s *PostgresStore) SetAICategoryIfBlank(ctx context.Context, id uuid.UUID, category string) (bool, error) {
	tag, err := s.pgpool.Exec(ctx, setAICategoryIfBlankQuery, id, category)
	if err != nil {
		return false, fmt.Errorf("failed to set ai category: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

const categoryTotalsQuery = `
	SELECT COALESCE(NULLIF(btrim(user_category), ''), NULLIF(btrim(ai_category), ''),
	                NULLIF(btrim(category), ''), 'Uncategorized') AS category,
	       SUM(amount) AS total
	FROM transactions
	GROUP BY 1
	ORDER BY total DESC
`

// CategoryTotals aggregates spend per effective category, honoring the
// user > ai > rule precedence on the read path.
func (s *PostgresStore) CategoryTotals(ctx context.Context) ([]CategoryTotal, error) {
	rows, err := s.pgpool.Query(ctx, categoryTotalsQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate category totals: %w", err)
	}
	totals, err := pgx.CollectRows(rows, pgx.RowToStructByName[CategoryTotal])
	if err != nil {
		return nil, fmt.Errorf("failed to scan category totals: %w", err)
	}
	return totals, nil
}

const dailyTrendQuery = `
	SELECT date, SUM(amount) AS total
	FROM transactions
	GROUP BY date
	ORDER BY date
`

func (s *PostgresStore) DailyTrend(ctx context.Context) ([]TrendPoint, error) {
	rows, err := s.pgpool.Query(ctx, dailyTrendQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate daily trend: %w", err)
	}
	trend, err := pgx.CollectRows(rows, pgx.RowToStructByName[TrendPoint])
	if err != nil {
		return nil, fmt.Errorf("failed to scan daily trend: %w", err)
	}
	return trend, nil
}

const recentQuery = `
	SELECT id, date, merchant, category, ai_category, user_category, amount,
	       currency, source, natural_key, subject, from_address, raw_snippet, updated_at
	FROM transactions
	ORDER BY date DESC, id DESC
	LIMIT $1
`

func (s *PostgresStore) Recent(ctx context.Context, limit int) ([]Record, error) {
	rows, err := s.pgpool.Query(ctx, recentQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent transactions: %w", err)
	}
	records, err := pgx.CollectRows(rows, pgx.RowToStructByName[Record])
	if err != nil {
		return nil, fmt.Errorf("failed to scan recent transactions: %w", err)
	}
	return records, nil
}

const countQuery = `SELECT COUNT(*) FROM transactions`

func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pgpool.QueryRow(ctx, countQuery).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return n, nil
}
