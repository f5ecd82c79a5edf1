// Package fiscal manages the periodic fiscal figures recorded per
// company and the read-optimized views derived from them.
package fiscal

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a fiscal record does not exist.
var ErrNotFound = errors.New("fiscal record not found")

// Record holds one fiscal period's figures for a company. The pair
// (CompanyID, Period) is unique in the store; re-importing the same
// pair overwrites. Numeric fields are never null once persisted.
type Record struct {
	ID        uuid.UUID `json:"id"`
	CompanyID uuid.UUID `json:"company_id"`
	Period    string    `json:"period"`
	RBT12     float64   `json:"rbt12"`
	Entrada   float64   `json:"entrada"`
	Saida     float64   `json:"saida"`
	Imposto   float64   `json:"imposto"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Repository defines persistence operations for fiscal records.
type Repository interface {
	Insert(ctx context.Context, rec *Record) error
	// Update overwrites the full row keyed by ID.
	Update(ctx context.Context, rec *Record) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByCompany(ctx context.Context, companyID uuid.UUID) error
	ListByCompany(ctx context.Context, companyID uuid.UUID) ([]Record, error)
	ListAll(ctx context.Context) ([]Record, error)
	// UpsertBatch inserts records, overwriting on (company_id, period)
	// conflicts. Used by imports to stay idempotent.
	UpsertBatch(ctx context.Context, recs []Record) error
}
