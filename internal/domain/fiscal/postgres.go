package fiscal

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier is the slice of pgxpool.Pool the repository uses. Tests
// substitute a pgxmock pool through it.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	pool querier
}

// NewPostgresRepository creates a new PostgreSQL fiscal repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const recordColumns = "id, company_id, period, rbt12, entrada, saida, imposto, created_at, updated_at"

// Insert creates a new fiscal record
func (r *PostgresRepository) Insert(ctx context.Context, rec *Record) error {
	query := `
		INSERT INTO fiscal_data (id, company_id, period, rbt12, entrada, saida, imposto)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`

	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}

	err := r.pool.QueryRow(ctx, query,
		rec.ID, rec.CompanyID, rec.Period, rec.RBT12, rec.Entrada, rec.Saida, rec.Imposto,
	).Scan(&rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert fiscal record: %w", err)
	}
	return nil
}

// Update overwrites a record's period and figures, keyed by ID
func (r *PostgresRepository) Update(ctx context.Context, rec *Record) error {
	query := `
		UPDATE fiscal_data
		SET period = $2, rbt12 = $3, entrada = $4, saida = $5, imposto = $6, updated_at = now()
		WHERE id = $1
		RETURNING company_id, updated_at`

	err := r.pool.QueryRow(ctx, query,
		rec.ID, rec.Period, rec.RBT12, rec.Entrada, rec.Saida, rec.Imposto,
	).Scan(&rec.CompanyID, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update fiscal record: %w", err)
	}
	return nil
}

// Delete removes a single fiscal record
func (r *PostgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM fiscal_data WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete fiscal record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByCompany removes all fiscal records of a company
func (r *PostgresRepository) DeleteByCompany(ctx context.Context, companyID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM fiscal_data WHERE company_id = $1", companyID)
	if err != nil {
		return fmt.Errorf("failed to delete company fiscal records: %w", err)
	}
	return nil
}

// ListByCompany returns all fiscal records of a company
func (r *PostgresRepository) ListByCompany(ctx context.Context, companyID uuid.UUID) ([]Record, error) {
	query := fmt.Sprintf("SELECT %s FROM fiscal_data WHERE company_id = $1", recordColumns)
	rows, err := r.pool.Query(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list fiscal records: %w", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

// ListAll returns every fiscal record in the store
func (r *PostgresRepository) ListAll(ctx context.Context) ([]Record, error) {
	query := fmt.Sprintf("SELECT %s FROM fiscal_data", recordColumns)
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list fiscal records: %w", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

// UpsertBatch persists records in one round trip, last write winning on
// (company_id, period) conflicts.
func (r *PostgresRepository) UpsertBatch(ctx context.Context, recs []Record) error {
	if len(recs) == 0 {
		return nil
	}

	query := `
		INSERT INTO fiscal_data (id, company_id, period, rbt12, entrada, saida, imposto)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (company_id, period)
		DO UPDATE SET rbt12 = EXCLUDED.rbt12, entrada = EXCLUDED.entrada,
		              saida = EXCLUDED.saida, imposto = EXCLUDED.imposto,
		              updated_at = now()`

	batch := &pgx.Batch{}
	for i := range recs {
		rec := &recs[i]
		if rec.ID == uuid.Nil {
			rec.ID = uuid.New()
		}
		batch.Queue(query, rec.ID, rec.CompanyID, rec.Period, rec.RBT12, rec.Entrada, rec.Saida, rec.Imposto)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range recs {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to upsert fiscal records: %w", err)
		}
	}
	return nil
}

func collectRecords(rows pgx.Rows) ([]Record, error) {
	var recs []Record
	for rows.Next() {
		var rec Record
		err := rows.Scan(&rec.ID, &rec.CompanyID, &rec.Period, &rec.RBT12,
			&rec.Entrada, &rec.Saida, &rec.Imposto, &rec.CreatedAt, &rec.UpdatedAt)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}
