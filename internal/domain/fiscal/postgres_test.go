package fiscal

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (*PostgresRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return &PostgresRepository{pool: mock}, mock
}

func TestPostgresInsert(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()
	companyID := uuid.New()

	mock.ExpectQuery(`INSERT INTO fiscal_data`).
		WithArgs(pgxmock.AnyArg(), companyID, "Janeiro/2024", 12000.0, 1000.0, 400.0, 60.0).
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	rec := &Record{CompanyID: companyID, Period: "Janeiro/2024", RBT12: 12000, Entrada: 1000, Saida: 400, Imposto: 60}
	require.NoError(t, repo.Insert(context.Background(), rec))
	assert.NotEqual(t, uuid.Nil, rec.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	mock.ExpectQuery(`UPDATE fiscal_data`).
		WithArgs(id, "Janeiro/2024", 0.0, 0.0, 0.0, 0.0).
		WillReturnRows(pgxmock.NewRows([]string{"company_id", "updated_at"}))

	err := repo.Update(context.Background(), &Record{ID: id, Period: "Janeiro/2024"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresDeleteNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	mock.ExpectExec(`DELETE FROM fiscal_data WHERE id = \$1`).
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	assert.ErrorIs(t, repo.Delete(context.Background(), id), ErrNotFound)
}

func TestPostgresUpsertBatch(t *testing.T) {
	repo, mock := newMockRepo(t)
	companyID := uuid.New()

	batch := mock.ExpectBatch()
	batch.ExpectExec(`INSERT INTO fiscal_data`).
		WithArgs(pgxmock.AnyArg(), companyID, "Janeiro/2024", 0.0, 100.0, 40.0, 5.0).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	batch.ExpectExec(`INSERT INTO fiscal_data`).
		WithArgs(pgxmock.AnyArg(), companyID, "Fevereiro/2024", 0.0, 200.0, 80.0, 10.0).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.UpsertBatch(context.Background(), []Record{
		{CompanyID: companyID, Period: "Janeiro/2024", Entrada: 100, Saida: 40, Imposto: 5},
		{CompanyID: companyID, Period: "Fevereiro/2024", Entrada: 200, Saida: 80, Imposto: 10},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpsertBatchEmpty(t *testing.T) {
	repo, mock := newMockRepo(t)
	require.NoError(t, repo.UpsertBatch(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListByCompany(t *testing.T) {
	repo, mock := newMockRepo(t)
	companyID := uuid.New()
	now := time.Now()

	mock.ExpectQuery(`SELECT (.+) FROM fiscal_data WHERE company_id = \$1`).
		WithArgs(companyID).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "company_id", "period", "rbt12", "entrada", "saida", "imposto", "created_at", "updated_at",
		}).AddRow(uuid.New(), companyID, "Janeiro/2024", 0.0, 100.0, 40.0, 5.0, now, now))

	recs, err := repo.ListByCompany(context.Background(), companyID)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Janeiro/2024", recs[0].Period)
}
