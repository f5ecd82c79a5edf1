package company

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"golang.org/x/crypto/bcrypt"

	"github.com/adonai404/imperial-fiscal/internal/access"
)

// ErrWrongPassword is returned when a password check fails. There is no
// lockout or rate limiting on attempts.
var ErrWrongPassword = errors.New("wrong company password")

// ErrNameRequired is returned when a company is created or updated
// without a name.
var ErrNameRequired = errors.New("company name is required")

// FiscalDeleter removes all fiscal records of a company. It is the first
// step of the two-step company delete; the fiscal domain provides it.
type FiscalDeleter interface {
	DeleteByCompany(ctx context.Context, companyID uuid.UUID) error
}

// Service coordinates company business logic
type Service struct {
	repo          Repository
	fiscalDeleter FiscalDeleter
	tokens        *access.TokenManager
	logger        *slog.Logger
}

// NewService constructs a company service
func NewService(repo Repository, fiscalDeleter FiscalDeleter, tokens *access.TokenManager, logger *slog.Logger) *Service {
	return &Service{
		repo:          repo,
		fiscalDeleter: fiscalDeleter,
		tokens:        tokens,
		logger:        logger,
	}
}

// NormalizeCNPJ strips every non-digit character. An empty result means
// no CNPJ.
func NormalizeCNPJ(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// CreateParams holds the add-company form fields
type CreateParams struct {
	Name         string
	CNPJ         string
	SemMovimento bool
	Segmento     string
}

// Create registers a new company
func (s *Service) Create(ctx context.Context, params CreateParams) (*Company, error) {
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, ErrNameRequired
	}

	c := &Company{
		Name:         name,
		SemMovimento: params.SemMovimento,
	}
	if cnpj := NormalizeCNPJ(params.CNPJ); cnpj != "" {
		c.CNPJ = &cnpj
	}
	if seg := strings.TrimSpace(params.Segmento); seg != "" {
		c.Segmento = &seg
	}

	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}

	s.logger.Info("company created", slog.String("company_id", c.ID.String()), slog.String("name", c.Name))
	return c, nil
}

// UpdateParams holds the edit-company form fields
type UpdateParams struct {
	Name     string
	CNPJ     string
	Segmento string
}

// Update overwrites a company's name, CNPJ and segment
func (s *Service) Update(ctx context.Context, id uuid.UUID, params UpdateParams) (*Company, error) {
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, ErrNameRequired
	}

	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	c.Name = name
	c.CNPJ = nil
	if cnpj := NormalizeCNPJ(params.CNPJ); cnpj != "" {
		c.CNPJ = &cnpj
	}
	c.Segmento = nil
	if seg := strings.TrimSpace(params.Segmento); seg != "" {
		c.Segmento = &seg
	}

	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateStatus flips the sem_movimento flag
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, semMovimento bool) error {
	return s.repo.UpdateStatus(ctx, id, semMovimento)
}

// Get retrieves a single company
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Company, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns companies ordered by name. A non-empty query filters by
// fuzzy name match, ranked by closeness.
func (s *Service) List(ctx context.Context, query string) ([]Company, error) {
	companies, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return companies, nil
	}

	type ranked struct {
		company Company
		rank    int
	}
	var matches []ranked
	for _, c := range companies {
		r := fuzzy.RankMatchNormalizedFold(query, c.Name)
		if r < 0 {
			continue
		}
		matches = append(matches, ranked{company: c, rank: r})
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].rank < matches[j].rank })

	filtered := make([]Company, 0, len(matches))
	for _, m := range matches {
		filtered = append(filtered, m.company)
	}
	return filtered, nil
}

// Delete removes a company and everything it owns. The store has no
// cascading delete, so fiscal records go first, then the password
// record, then the company row. The steps are separate calls; a failure
// partway leaves earlier deletions in place.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}

	if err := s.fiscalDeleter.DeleteByCompany(ctx, id); err != nil {
		return fmt.Errorf("failed to delete fiscal records: %w", err)
	}
	if err := s.repo.DeletePassword(ctx, id); err != nil {
		return fmt.Errorf("failed to delete password record: %w", err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("company deleted", slog.String("company_id", id.String()))
	return nil
}

// SetPassword gates the company's fiscal data behind a password,
// replacing any previous one.
func (s *Service) SetPassword(ctx context.Context, companyID uuid.UUID, password string) error {
	if _, err := s.repo.GetByID(ctx, companyID); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	return s.repo.UpsertPassword(ctx, companyID, string(hash))
}

// RemovePassword removes the gate unconditionally. There is no recovery
// flow; removal is the recovery flow.
func (s *Service) RemovePassword(ctx context.Context, companyID uuid.UUID) error {
	return s.repo.DeletePassword(ctx, companyID)
}

// VerifyPassword checks a password attempt and, on success, issues a
// company-access token the client presents on later reads.
func (s *Service) VerifyPassword(ctx context.Context, companyID uuid.UUID, password string) (string, error) {
	record, err := s.repo.GetPassword(ctx, companyID)
	if err != nil {
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(record.PasswordHash), []byte(password)); err != nil {
		return "", ErrWrongPassword
	}

	token, err := s.tokens.Issue(companyID)
	if err != nil {
		return "", err
	}
	return token, nil
}

// ProtectedIDs returns the set of password-gated companies
func (s *Service) ProtectedIDs(ctx context.Context) (map[uuid.UUID]bool, error) {
	ids, err := s.repo.ListProtectedIDs(ctx)
	if err != nil {
		return nil, err
	}
	protected := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		protected[id] = true
	}
	return protected, nil
}
