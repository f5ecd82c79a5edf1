package fiscal

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/adonai404/imperial-fiscal/internal/access"
	"github.com/adonai404/imperial-fiscal/internal/domain/company"
	"github.com/adonai404/imperial-fiscal/internal/domain/period"
	"github.com/adonai404/imperial-fiscal/pkg/money"
)

// ErrPeriodRequired is returned when a record is written without a period label.
var ErrPeriodRequired = errors.New("period is required")

// ErrAccessDenied is returned when a company-scoped read targets a
// password-gated company the caller holds no access token for.
var ErrAccessDenied = errors.New("company data is password protected")

// CompanyDirectory is the slice of the company domain the fiscal views
// need. company.Repository satisfies it.
type CompanyDirectory interface {
	List(ctx context.Context) ([]company.Company, error)
	GetByID(ctx context.Context, id uuid.UUID) (*company.Company, error)
	ListProtectedIDs(ctx context.Context) ([]uuid.UUID, error)
}

// Service computes the derived fiscal views. These are plain projections
// recomputed per call; the store stays the single source of truth.
type Service struct {
	repo      Repository
	companies CompanyDirectory
	logger    *slog.Logger
}

// NewService constructs a fiscal service
func NewService(repo Repository, companies CompanyDirectory, logger *slog.Logger) *Service {
	return &Service{repo: repo, companies: companies, logger: logger}
}

// RecordParams holds the add/edit fiscal data form fields. Absent
// numerics arrive as zero.
type RecordParams struct {
	Period  string
	RBT12   float64
	Entrada float64
	Saida   float64
	Imposto float64
}

// Add creates a fiscal record for a company
func (s *Service) Add(ctx context.Context, companyID uuid.UUID, params RecordParams) (*Record, error) {
	p := strings.TrimSpace(params.Period)
	if p == "" {
		return nil, ErrPeriodRequired
	}
	if _, err := s.companies.GetByID(ctx, companyID); err != nil {
		return nil, err
	}

	rec := &Record{
		CompanyID: companyID,
		Period:    p,
		RBT12:     params.RBT12,
		Entrada:   params.Entrada,
		Saida:     params.Saida,
		Imposto:   params.Imposto,
	}
	if err := s.repo.Insert(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Update overwrites a record's period and figures
func (s *Service) Update(ctx context.Context, id uuid.UUID, params RecordParams) (*Record, error) {
	p := strings.TrimSpace(params.Period)
	if p == "" {
		return nil, ErrPeriodRequired
	}

	rec := &Record{
		ID:      id,
		Period:  p,
		RBT12:   params.RBT12,
		Entrada: params.Entrada,
		Saida:   params.Saida,
		Imposto: params.Imposto,
	}
	if err := s.repo.Update(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Delete removes a fiscal record
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

// DeleteByCompany removes all of a company's fiscal records. It is also
// the first step of a company delete.
func (s *Service) DeleteByCompany(ctx context.Context, companyID uuid.UUID) error {
	return s.repo.DeleteByCompany(ctx, companyID)
}

// CompanyData is a company with its fiscal records, newest period first.
// Records are withheld when the company is gated and the caller holds
// no access for it.
type CompanyData struct {
	Company    company.Company `json:"company"`
	Protected  bool            `json:"protected"`
	Authorized bool            `json:"authorized"`
	Records    []Record        `json:"records"`
}

// CompanyData returns a company's full fiscal history for the detail view.
func (s *Service) CompanyData(ctx context.Context, companyID uuid.UUID, set access.Set) (*CompanyData, error) {
	c, err := s.companies.GetByID(ctx, companyID)
	if err != nil {
		return nil, err
	}

	protected, err := s.companies.ListProtectedIDs(ctx)
	if err != nil {
		return nil, err
	}
	isProtected := containsID(protected, companyID)

	data := &CompanyData{
		Company:    *c,
		Protected:  isProtected,
		Authorized: !isProtected || set.Has(companyID),
	}
	if !data.Authorized {
		return data, nil
	}

	recs, err := s.repo.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	sortRecordsByPeriod(recs, true)
	data.Records = recs
	return data, nil
}

// LatestFigures is the most recent period's figures for one company.
type LatestFigures struct {
	Period  string  `json:"period"`
	RBT12   float64 `json:"rbt12"`
	Entrada float64 `json:"entrada"`
	Saida   float64 `json:"saida"`
	Imposto float64 `json:"imposto"`
}

// CompanyWithLatest pairs a company with its latest fiscal figures.
// Latest is nil when the company has no records or the caller is not
// authorized to see them.
type CompanyWithLatest struct {
	Company   company.Company `json:"company"`
	Protected bool            `json:"protected"`
	Latest    *LatestFigures  `json:"latest"`
}

// LatestPerCompany returns every company with its most recent period,
// ordering each company's records by parsed period descending.
func (s *Service) LatestPerCompany(ctx context.Context, set access.Set) ([]CompanyWithLatest, error) {
	companies, err := s.companies.List(ctx)
	if err != nil {
		return nil, err
	}
	recs, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	protected, err := s.companies.ListProtectedIDs(ctx)
	if err != nil {
		return nil, err
	}
	protectedSet := make(map[uuid.UUID]bool, len(protected))
	for _, id := range protected {
		protectedSet[id] = true
	}

	latestByCompany := make(map[uuid.UUID]*Record, len(companies))
	latestKeys := make(map[uuid.UUID]time.Time, len(companies))
	for i := range recs {
		rec := &recs[i]
		key := period.Parse(rec.Period)
		if prev, ok := latestKeys[rec.CompanyID]; !ok || key.After(prev) {
			latestByCompany[rec.CompanyID] = rec
			latestKeys[rec.CompanyID] = key
		}
	}

	result := make([]CompanyWithLatest, 0, len(companies))
	for _, c := range companies {
		item := CompanyWithLatest{Company: c, Protected: protectedSet[c.ID]}
		if item.Protected && !set.Has(c.ID) {
			result = append(result, item)
			continue
		}
		if rec, ok := latestByCompany[c.ID]; ok {
			item.Latest = &LatestFigures{
				Period:  rec.Period,
				RBT12:   rec.RBT12,
				Entrada: rec.Entrada,
				Saida:   rec.Saida,
				Imposto: rec.Imposto,
			}
		}
		result = append(result, item)
	}
	return result, nil
}

// EvolutionPoint is one period's totals across companies.
type EvolutionPoint struct {
	Period         string  `json:"period"`
	Entrada        float64 `json:"entrada"`
	Saida          float64 `json:"saida"`
	Imposto        float64 `json:"imposto"`
	CompaniesCount int     `json:"companies_count"`
}

// Evolution groups all visible fiscal records by period label and sums
// inflow, outflow and tax per group, oldest period first. Records of
// gated companies are excluded unless the caller is authorized.
func (s *Service) Evolution(ctx context.Context, set access.Set) ([]EvolutionPoint, error) {
	recs, err := s.visibleRecords(ctx, set)
	if err != nil {
		return nil, err
	}

	type group struct {
		point     EvolutionPoint
		companies map[uuid.UUID]struct{}
	}
	groups := make(map[string]*group)
	for _, rec := range recs {
		g, ok := groups[rec.Period]
		if !ok {
			g = &group{
				point:     EvolutionPoint{Period: rec.Period},
				companies: make(map[uuid.UUID]struct{}),
			}
			groups[rec.Period] = g
		}
		g.point.Entrada += rec.Entrada
		g.point.Saida += rec.Saida
		g.point.Imposto += rec.Imposto
		g.companies[rec.CompanyID] = struct{}{}
	}

	points := make([]EvolutionPoint, 0, len(groups))
	for _, g := range groups {
		g.point.CompaniesCount = len(g.companies)
		points = append(points, g.point)
	}
	sort.SliceStable(points, func(i, j int) bool {
		return period.Parse(points[i].Period).Before(period.Parse(points[j].Period))
	})
	return points, nil
}

// CompanyEvolutionPoint is one period of a single company's series.
type CompanyEvolutionPoint struct {
	Period  string  `json:"period"`
	Entrada float64 `json:"entrada"`
	Saida   float64 `json:"saida"`
	Imposto float64 `json:"imposto"`
	RBT12   float64 `json:"rbt12"`
	Saldo   float64 `json:"saldo"`
}

// CompanyEvolution returns one company's series sorted oldest first,
// with the per-period balance (entrada - saida).
func (s *Service) CompanyEvolution(ctx context.Context, companyID uuid.UUID, set access.Set) ([]CompanyEvolutionPoint, error) {
	protected, err := s.companies.ListProtectedIDs(ctx)
	if err != nil {
		return nil, err
	}
	if containsID(protected, companyID) && !set.Has(companyID) {
		return nil, ErrAccessDenied
	}

	recs, err := s.repo.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	sortRecordsByPeriod(recs, false)

	points := make([]CompanyEvolutionPoint, 0, len(recs))
	for _, rec := range recs {
		points = append(points, CompanyEvolutionPoint{
			Period:  rec.Period,
			Entrada: rec.Entrada,
			Saida:   rec.Saida,
			Imposto: rec.Imposto,
			RBT12:   rec.RBT12,
			Saldo:   rec.Entrada - rec.Saida,
		})
	}
	return points, nil
}

// Stats are the dashboard aggregates over the access-filtered record set.
type Stats struct {
	TotalCompanies       int     `json:"total_companies"`
	TotalRecords         int     `json:"total_records"`
	EmpresasAtivas       int     `json:"empresas_ativas"`
	EmpresasSemMovimento int     `json:"empresas_sem_movimento"`
	Entrada              float64 `json:"entrada"`
	Saida                float64 `json:"saida"`
	Imposto              float64 `json:"imposto"`
	EntradaDisplay       string  `json:"entrada_display"`
	SaidaDisplay         string  `json:"saida_display"`
	ImpostoDisplay       string  `json:"imposto_display"`
}

// Stats sums inflow/outflow/tax over all visible records and counts
// companies by status.
func (s *Service) Stats(ctx context.Context, set access.Set) (*Stats, error) {
	companies, err := s.companies.List(ctx)
	if err != nil {
		return nil, err
	}
	recs, err := s.visibleRecords(ctx, set)
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		TotalCompanies: len(companies),
		TotalRecords:   len(recs),
	}
	for _, c := range companies {
		if c.SemMovimento {
			stats.EmpresasSemMovimento++
		} else {
			stats.EmpresasAtivas++
		}
	}
	for _, rec := range recs {
		stats.Entrada += rec.Entrada
		stats.Saida += rec.Saida
		stats.Imposto += rec.Imposto
	}

	stats.EntradaDisplay = money.FormatBRL(stats.Entrada)
	stats.SaidaDisplay = money.FormatBRL(stats.Saida)
	stats.ImpostoDisplay = money.FormatBRL(stats.Imposto)
	return stats, nil
}

// visibleRecords fetches all records and drops those belonging to gated
// companies the caller is not authorized for.
func (s *Service) visibleRecords(ctx context.Context, set access.Set) ([]Record, error) {
	recs, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	protected, err := s.companies.ListProtectedIDs(ctx)
	if err != nil {
		return nil, err
	}
	if len(protected) == 0 {
		return recs, nil
	}

	protectedSet := make(map[uuid.UUID]bool, len(protected))
	for _, id := range protected {
		protectedSet[id] = true
	}

	visible := recs[:0]
	for _, rec := range recs {
		if protectedSet[rec.CompanyID] && !set.Has(rec.CompanyID) {
			continue
		}
		visible = append(visible, rec)
	}
	return visible, nil
}

func sortRecordsByPeriod(recs []Record, descending bool) {
	sort.SliceStable(recs, func(i, j int) bool {
		a, b := period.Parse(recs[i].Period), period.Parse(recs[j].Period)
		if descending {
			return b.Before(a)
		}
		return a.Before(b)
	})
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
