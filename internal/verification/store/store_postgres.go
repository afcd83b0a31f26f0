package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"trialgate/internal/verification/models"
	"trialgate/migrations"
)

// PostgresStore persists verification records in PostgreSQL. It is a
// deployment alternative to FileStore for installations that already run a
// database; the upsert keeps the same last-write-wins semantics.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed verification store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Schema applies the embedded migrations. Called at startup; idempotent.
func (s *PostgresStore) Schema(ctx context.Context) error {
	return migrations.Apply(ctx, s.db)
}

func (s *PostgresStore) Find(ctx context.Context, userID int64) (*models.Record, error) {
	query := `
		SELECT user_id, name, country, email, source_ip, user_agent,
		       marketing_opt_in, step1_ok, status, created_at
		FROM verification_records
		WHERE user_id = $1
	`

	var record models.Record
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&record.UserID,
		&record.Name,
		&record.Country,
		&record.Email,
		&record.SourceIP,
		&record.UserAgent,
		&record.MarketingOptIn,
		&record.Step1OK,
		&record.Status,
		&record.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find verification record: %w", err)
	}
	return &record, nil
}

func (s *PostgresStore) Save(ctx context.Context, record *models.Record) error {
	if record == nil {
		return fmt.Errorf("record is required")
	}

	query := `
		INSERT INTO verification_records (
			user_id, name, country, email, source_ip, user_agent,
			marketing_opt_in, step1_ok, status, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (user_id) DO UPDATE SET
			name = EXCLUDED.name,
			country = EXCLUDED.country,
			email = EXCLUDED.email,
			source_ip = EXCLUDED.source_ip,
			user_agent = EXCLUDED.user_agent,
			marketing_opt_in = EXCLUDED.marketing_opt_in,
			step1_ok = EXCLUDED.step1_ok,
			status = EXCLUDED.status,
			created_at = EXCLUDED.created_at
	`

	_, err := s.db.ExecContext(ctx, query,
		record.UserID,
		record.Name,
		record.Country,
		record.Email,
		record.SourceIP,
		record.UserAgent,
		record.MarketingOptIn,
		record.Step1OK,
		record.Status,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save verification record: %w", err)
	}
	return nil
}

func (s *PostgresStore) Clear(ctx context.Context, userID int64) error {
	query := `DELETE FROM verification_records WHERE user_id = $1`
	if _, err := s.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("clear verification record: %w", err)
	}
	return nil
}
