package company

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
}

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	pool querier
}

// NewPostgresRepository creates a new PostgreSQL company repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const companyColumns = "id, name, cnpj, sem_movimento, segmento, created_at, updated_at"

func scanCompany(row pgx.Row) (*Company, error) {
	c := &Company{}
	err := row.Scan(&c.ID, &c.Name, &c.CNPJ, &c.SemMovimento, &c.Segmento, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// List returns all companies ordered by name
func (r *PostgresRepository) List(ctx context.Context) ([]Company, error) {
	query := fmt.Sprintf("SELECT %s FROM companies ORDER BY name", companyColumns)

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	defer rows.Close()

	var companies []Company
	for rows.Next() {
		var c Company
		if err := rows.Scan(&c.ID, &c.Name, &c.CNPJ, &c.SemMovimento, &c.Segmento, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		companies = append(companies, c)
	}
	return companies, rows.Err()
}

// GetByID retrieves a company by ID
func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Company, error) {
	query := fmt.Sprintf("SELECT %s FROM companies WHERE id = $1", companyColumns)
	return scanCompany(r.pool.QueryRow(ctx, query, id))
}

// FindByCNPJ retrieves a company by its digits-only CNPJ
func (r *PostgresRepository) FindByCNPJ(ctx context.Context, cnpj string) (*Company, error) {
	query := fmt.Sprintf("SELECT %s FROM companies WHERE cnpj = $1 LIMIT 1", companyColumns)
	return scanCompany(r.pool.QueryRow(ctx, query, cnpj))
}

// FindByNameWithoutCNPJ retrieves a company by name among those with no CNPJ
func (r *PostgresRepository) FindByNameWithoutCNPJ(ctx context.Context, name string) (*Company, error) {
	query := fmt.Sprintf("SELECT %s FROM companies WHERE name = $1 AND cnpj IS NULL LIMIT 1", companyColumns)
	return scanCompany(r.pool.QueryRow(ctx, query, name))
}

// Create inserts a new company
func (r *PostgresRepository) Create(ctx context.Context, c *Company) error {
	query := `
		INSERT INTO companies (id, name, cnpj, sem_movimento, segmento)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`

	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}

	err := r.pool.QueryRow(ctx, query, c.ID, c.Name, c.CNPJ, c.SemMovimento, c.Segmento).
		Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create company: %w", err)
	}
	return nil
}

// Update overwrites a company's mutable fields
func (r *PostgresRepository) Update(ctx context.Context, c *Company) error {
	query := `
		UPDATE companies
		SET name = $2, cnpj = $3, sem_movimento = $4, segmento = $5, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`

	err := r.pool.QueryRow(ctx, query, c.ID, c.Name, c.CNPJ, c.SemMovimento, c.Segmento).
		Scan(&c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update company: %w", err)
	}
	return nil
}

// UpdateStatus flips the sem_movimento flag
func (r *PostgresRepository) UpdateStatus(ctx context.Context, id uuid.UUID, semMovimento bool) error {
	tag, err := r.pool.Exec(ctx,
		"UPDATE companies SET sem_movimento = $2, updated_at = now() WHERE id = $1",
		id, semMovimento)
	if err != nil {
		return fmt.Errorf("failed to update company status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a company row. Fiscal records must be deleted first;
// there is no cascading delete on the foreign key.
func (r *PostgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM companies WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete company: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpsertPassword creates or replaces the company's password record
func (r *PostgresRepository) UpsertPassword(ctx context.Context, companyID uuid.UUID, passwordHash string) error {
	query := `
		INSERT INTO company_passwords (id, company_id, password_hash)
		VALUES ($1, $2, $3)
		ON CONFLICT (company_id)
		DO UPDATE SET password_hash = EXCLUDED.password_hash, updated_at = now()`

	_, err := r.pool.Exec(ctx, query, uuid.New(), companyID, passwordHash)
	if err != nil {
		return fmt.Errorf("failed to upsert company password: %w", err)
	}
	return nil
}

// DeletePassword removes the company's password record unconditionally
func (r *PostgresRepository) DeletePassword(ctx context.Context, companyID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM company_passwords WHERE company_id = $1", companyID)
	if err != nil {
		return fmt.Errorf("failed to delete company password: %w", err)
	}
	return nil
}

// GetPassword retrieves the company's password record
func (r *PostgresRepository) GetPassword(ctx context.Context, companyID uuid.UUID) (*PasswordRecord, error) {
	query := `
		SELECT id, company_id, password_hash, created_at, updated_at
		FROM company_passwords
		WHERE company_id = $1`

	p := &PasswordRecord{}
	err := r.pool.QueryRow(ctx, query, companyID).
		Scan(&p.ID, &p.CompanyID, &p.PasswordHash, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListProtectedIDs returns the IDs of all password-gated companies
func (r *PostgresRepository) ListProtectedIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, "SELECT company_id FROM company_passwords")
	if err != nil {
		return nil, fmt.Errorf("failed to list protected companies: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
