package leads

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type dbExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository writes leads to the web_phonenumbers table.
type PostgresRepository struct {
	db dbExecutor
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("leads: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

func newPostgresRepositoryWithExec(db dbExecutor) *PostgresRepository {
	if db == nil {
		panic("leads: exec required")
	}
	return &PostgresRepository{db: db}
}

// Insert adds a row. The lead id is generated when empty.
func (r *PostgresRepository) Insert(ctx context.Context, lead *Lead) error {
	if lead == nil {
		return errors.New("leads: nil lead")
	}
	if lead.ID == "" {
		lead.ID = uuid.NewString()
	}
	query := `
		INSERT INTO web_phonenumbers (id, phone_number, source, notes, device_type, user_agent, page_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	if _, err := r.db.Exec(ctx, query,
		lead.ID,
		lead.PhoneNumber,
		string(lead.Source),
		lead.Notes,
		string(lead.DeviceType),
		lead.UserAgent,
		lead.PageURL,
		lead.Timestamp,
	); err != nil {
		return fmt.Errorf("leads: insert failed: %w", err)
	}
	return nil
}

// ExistsByPhone reports whether any row carries the canonical number.
func (r *PostgresRepository) ExistsByPhone(ctx context.Context, phone string) (bool, error) {
	query := `SELECT 1 FROM web_phonenumbers WHERE phone_number = $1 LIMIT 1`
	var one int
	if err := r.db.QueryRow(ctx, query, phone).Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("leads: exists query failed: %w", err)
	}
	return true, nil
}
