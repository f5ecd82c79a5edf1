// Package company provides registration, lookup and password gating for
// the companies tracked by the dashboard.
package company

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a company or password record does not exist.
var ErrNotFound = errors.New("company not found")

// Company is a registered company. CNPJ is optional; when present it is
// stored digits-only and used as the natural dedup key during imports.
type Company struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	CNPJ         *string   `json:"cnpj"`
	SemMovimento bool      `json:"sem_movimento"`
	Segmento     *string   `json:"segmento"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// PasswordRecord gates access to a company's fiscal data. At most one
// exists per company; absence means open access.
type PasswordRecord struct {
	ID           uuid.UUID
	CompanyID    uuid.UUID
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Repository defines persistence operations for companies and their
// password records.
type Repository interface {
	List(ctx context.Context) ([]Company, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Company, error)
	// FindByCNPJ matches the digits-only CNPJ exactly.
	FindByCNPJ(ctx context.Context, cnpj string) (*Company, error)
	// FindByNameWithoutCNPJ matches companies that have no CNPJ on record,
	// the fallback dedup key for imports.
	FindByNameWithoutCNPJ(ctx context.Context, name string) (*Company, error)
	Create(ctx context.Context, c *Company) error
	Update(ctx context.Context, c *Company) error
	UpdateStatus(ctx context.Context, id uuid.UUID, semMovimento bool) error
	Delete(ctx context.Context, id uuid.UUID) error

	UpsertPassword(ctx context.Context, companyID uuid.UUID, passwordHash string) error
	DeletePassword(ctx context.Context, companyID uuid.UUID) error
	GetPassword(ctx context.Context, companyID uuid.UUID) (*PasswordRecord, error)
	// ListProtectedIDs returns the IDs of every company that has a
	// password record, used to filter aggregate views.
	ListProtectedIDs(ctx context.Context) ([]uuid.UUID, error)
}
