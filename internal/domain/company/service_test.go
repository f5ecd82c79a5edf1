package company

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/adonai404/imperial-fiscal/internal/access"
)

// MockCompanyRepository implements Repository for testing
type MockCompanyRepository struct {
	companies        []Company
	passwords        map[uuid.UUID]string
	deleted          []uuid.UUID
	passwordsDeleted []uuid.UUID
	err              error
}

func (m *MockCompanyRepository) List(ctx context.Context) ([]Company, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.companies, nil
}

func (m *MockCompanyRepository) GetByID(ctx context.Context, id uuid.UUID) (*Company, error) {
	for i := range m.companies {
		if m.companies[i].ID == id {
			return &m.companies[i], nil
		}
	}
	return nil, ErrNotFound
}

func (m *MockCompanyRepository) FindByCNPJ(ctx context.Context, cnpj string) (*Company, error) {
	for i := range m.companies {
		if m.companies[i].CNPJ != nil && *m.companies[i].CNPJ == cnpj {
			return &m.companies[i], nil
		}
	}
	return nil, ErrNotFound
}

func (m *MockCompanyRepository) FindByNameWithoutCNPJ(ctx context.Context, name string) (*Company, error) {
	for i := range m.companies {
		if m.companies[i].Name == name && m.companies[i].CNPJ == nil {
			return &m.companies[i], nil
		}
	}
	return nil, ErrNotFound
}

func (m *MockCompanyRepository) Create(ctx context.Context, c *Company) error {
	if m.err != nil {
		return m.err
	}
	c.ID = uuid.New()
	m.companies = append(m.companies, *c)
	return nil
}

func (m *MockCompanyRepository) Update(ctx context.Context, c *Company) error {
	for i := range m.companies {
		if m.companies[i].ID == c.ID {
			m.companies[i] = *c
			return nil
		}
	}
	return ErrNotFound
}

func (m *MockCompanyRepository) UpdateStatus(ctx context.Context, id uuid.UUID, semMovimento bool) error {
	for i := range m.companies {
		if m.companies[i].ID == id {
			m.companies[i].SemMovimento = semMovimento
			return nil
		}
	}
	return ErrNotFound
}

func (m *MockCompanyRepository) Delete(ctx context.Context, id uuid.UUID) error {
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *MockCompanyRepository) UpsertPassword(ctx context.Context, companyID uuid.UUID, passwordHash string) error {
	if m.passwords == nil {
		m.passwords = make(map[uuid.UUID]string)
	}
	m.passwords[companyID] = passwordHash
	return nil
}

func (m *MockCompanyRepository) DeletePassword(ctx context.Context, companyID uuid.UUID) error {
	m.passwordsDeleted = append(m.passwordsDeleted, companyID)
	delete(m.passwords, companyID)
	return nil
}

func (m *MockCompanyRepository) GetPassword(ctx context.Context, companyID uuid.UUID) (*PasswordRecord, error) {
	hash, ok := m.passwords[companyID]
	if !ok {
		return nil, ErrNotFound
	}
	return &PasswordRecord{ID: uuid.New(), CompanyID: companyID, PasswordHash: hash}, nil
}

func (m *MockCompanyRepository) ListProtectedIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for id := range m.passwords {
		ids = append(ids, id)
	}
	return ids, nil
}

// MockFiscalDeleter implements FiscalDeleter for testing
type MockFiscalDeleter struct {
	deleted []uuid.UUID
	err     error
}

func (m *MockFiscalDeleter) DeleteByCompany(ctx context.Context, companyID uuid.UUID) error {
	if m.err != nil {
		return m.err
	}
	m.deleted = append(m.deleted, companyID)
	return nil
}

func newTestService(repo *MockCompanyRepository, deleter *MockFiscalDeleter) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokens := access.NewTokenManager([]byte("test-secret"), time.Hour)
	return NewService(repo, deleter, tokens, logger)
}

func TestNormalizeCNPJ(t *testing.T) {
	assert.Equal(t, "12345678000190", NormalizeCNPJ("12.345.678/0001-90"))
	assert.Equal(t, "12345678000190", NormalizeCNPJ("12345678000190"))
	assert.Equal(t, "", NormalizeCNPJ(""))
	assert.Equal(t, "", NormalizeCNPJ("abc./-"))
}

func TestCreateRequiresName(t *testing.T) {
	svc := newTestService(&MockCompanyRepository{}, &MockFiscalDeleter{})

	_, err := svc.Create(context.Background(), CreateParams{Name: "   "})
	assert.ErrorIs(t, err, ErrNameRequired)
}

func TestCreateNormalizesFields(t *testing.T) {
	repo := &MockCompanyRepository{}
	svc := newTestService(repo, &MockFiscalDeleter{})

	c, err := svc.Create(context.Background(), CreateParams{
		Name:     "  Acme LTDA  ",
		CNPJ:     "12.345.678/0001-90",
		Segmento: " Comércio ",
	})
	require.NoError(t, err)
	assert.Equal(t, "Acme LTDA", c.Name)
	require.NotNil(t, c.CNPJ)
	assert.Equal(t, "12345678000190", *c.CNPJ)
	require.NotNil(t, c.Segmento)
	assert.Equal(t, "Comércio", *c.Segmento)
}

func TestCreateWithoutCNPJStoresNil(t *testing.T) {
	repo := &MockCompanyRepository{}
	svc := newTestService(repo, &MockFiscalDeleter{})

	c, err := svc.Create(context.Background(), CreateParams{Name: "Beta ME"})
	require.NoError(t, err)
	assert.Nil(t, c.CNPJ)
	assert.Nil(t, c.Segmento)
}

func TestUpdateClearsRemovedFields(t *testing.T) {
	cnpj := "12345678000190"
	existing := Company{ID: uuid.New(), Name: "Acme", CNPJ: &cnpj}
	repo := &MockCompanyRepository{companies: []Company{existing}}
	svc := newTestService(repo, &MockFiscalDeleter{})

	updated, err := svc.Update(context.Background(), existing.ID, UpdateParams{Name: "Acme Nova"})
	require.NoError(t, err)
	assert.Equal(t, "Acme Nova", updated.Name)
	assert.Nil(t, updated.CNPJ)
}

func TestListFuzzyFilter(t *testing.T) {
	repo := &MockCompanyRepository{companies: []Company{
		{ID: uuid.New(), Name: "Açougue Central"},
		{ID: uuid.New(), Name: "Padaria Estrela"},
		{ID: uuid.New(), Name: "Acougue do Bairro"},
	}}
	svc := newTestService(repo, &MockFiscalDeleter{})

	all, err := svc.List(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	// accent-insensitive match
	filtered, err := svc.List(context.Background(), "acougue")
	require.NoError(t, err)
	require.Len(t, filtered, 2)
	for _, c := range filtered {
		assert.NotEqual(t, "Padaria Estrela", c.Name)
	}
}

func TestDeleteRemovesFiscalThenPasswordThenCompany(t *testing.T) {
	existing := Company{ID: uuid.New(), Name: "Acme"}
	repo := &MockCompanyRepository{companies: []Company{existing}}
	deleter := &MockFiscalDeleter{}
	svc := newTestService(repo, deleter)

	require.NoError(t, svc.Delete(context.Background(), existing.ID))
	assert.Equal(t, []uuid.UUID{existing.ID}, deleter.deleted)
	assert.Equal(t, []uuid.UUID{existing.ID}, repo.passwordsDeleted)
	assert.Equal(t, []uuid.UUID{existing.ID}, repo.deleted)
}

func TestDeleteUnknownCompany(t *testing.T) {
	svc := newTestService(&MockCompanyRepository{}, &MockFiscalDeleter{})
	assert.ErrorIs(t, svc.Delete(context.Background(), uuid.New()), ErrNotFound)
}

func TestDeleteStopsWhenFiscalDeleteFails(t *testing.T) {
	existing := Company{ID: uuid.New(), Name: "Acme"}
	repo := &MockCompanyRepository{companies: []Company{existing}}
	deleter := &MockFiscalDeleter{err: assert.AnError}
	svc := newTestService(repo, deleter)

	err := svc.Delete(context.Background(), existing.ID)
	require.Error(t, err)
	assert.Empty(t, repo.deleted)
}

func TestSetAndVerifyPassword(t *testing.T) {
	existing := Company{ID: uuid.New(), Name: "Acme"}
	repo := &MockCompanyRepository{companies: []Company{existing}}
	svc := newTestService(repo, &MockFiscalDeleter{})

	require.NoError(t, svc.SetPassword(context.Background(), existing.ID, "segredo"))

	// hash stored, never the plain text
	hash := repo.passwords[existing.ID]
	assert.NotEqual(t, "segredo", hash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("segredo")))

	token, err := svc.VerifyPassword(context.Background(), existing.ID, "segredo")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	_, err = svc.VerifyPassword(context.Background(), existing.ID, "errado")
	assert.ErrorIs(t, err, ErrWrongPassword)
}

func TestVerifyPasswordUngatedCompany(t *testing.T) {
	existing := Company{ID: uuid.New(), Name: "Acme"}
	repo := &MockCompanyRepository{companies: []Company{existing}}
	svc := newTestService(repo, &MockFiscalDeleter{})

	_, err := svc.VerifyPassword(context.Background(), existing.ID, "qualquer")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRemovePassword(t *testing.T) {
	existing := Company{ID: uuid.New(), Name: "Acme"}
	repo := &MockCompanyRepository{companies: []Company{existing}}
	svc := newTestService(repo, &MockFiscalDeleter{})

	require.NoError(t, svc.SetPassword(context.Background(), existing.ID, "segredo"))
	require.NoError(t, svc.RemovePassword(context.Background(), existing.ID))

	protected, err := svc.ProtectedIDs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, protected)
}
