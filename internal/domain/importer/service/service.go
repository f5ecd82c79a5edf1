// Package service orchestrates spreadsheet imports: matching rows to
// companies, creating the missing ones and upserting fiscal records.
package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/adonai404/imperial-fiscal/internal/domain/company"
	"github.com/adonai404/imperial-fiscal/internal/domain/fiscal"
	"github.com/adonai404/imperial-fiscal/internal/domain/importer/parser"
	"github.com/adonai404/imperial-fiscal/pkg/metrics"
)

var tracer = otel.Tracer("importer")

// ErrNoValidRows is returned when a file parsed but no row carried a
// usable company identifier. Nothing is written in that case.
var ErrNoValidRows = errors.New("nenhuma linha válida encontrada no arquivo")

// CompanyStore is the slice of the company domain the importer needs
type CompanyStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*company.Company, error)
	FindByCNPJ(ctx context.Context, cnpj string) (*company.Company, error)
	FindByNameWithoutCNPJ(ctx context.Context, name string) (*company.Company, error)
	Create(ctx context.Context, c *company.Company) error
	Update(ctx context.Context, c *company.Company) error
	UpdateStatus(ctx context.Context, id uuid.UUID, semMovimento bool) error
}

// FiscalStore is the slice of the fiscal domain the importer needs
type FiscalStore interface {
	UpsertBatch(ctx context.Context, recs []fiscal.Record) error
}

// Result summarizes one import run
type Result struct {
	Companies int `json:"companies"`
	Imported  int `json:"imported"`
	Skipped   int `json:"skipped"`
}

// Service runs imports as two phases: resolve every company first, then
// upsert all fiscal records in one batch keyed on (company, period).
type Service struct {
	companies CompanyStore
	fiscal    FiscalStore
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func NewService(companies CompanyStore, fiscalStore FiscalStore, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{companies: companies, fiscal: fiscalStore, metrics: m, logger: logger}
}

// ImportFile parses an uploaded spreadsheet and imports its rows
func (s *Service) ImportFile(ctx context.Context, r io.Reader, filename string) (*Result, error) {
	ctx, span := tracer.Start(ctx, "importer.ImportFile")
	defer span.End()
	span.SetAttributes(attribute.String("file.name", filename))

	start := time.Now()
	parsed, err := parser.Parse(r, filename)
	if err != nil {
		s.observe("parse_error", nil, start)
		return nil, err
	}

	result, err := s.ImportRows(ctx, parsed.Rows)
	if err != nil {
		s.observe("rejected", nil, start)
		return nil, err
	}
	s.observe("ok", result, start)

	s.logger.Info("spreadsheet imported",
		slog.String("file", filename),
		slog.Int("companies", result.Companies),
		slog.Int("imported", result.Imported),
		slog.Int("skipped", result.Skipped))
	return result, nil
}

// defaultPeriod labels records whose rows carried no period cell.
const defaultPeriod = "Não informado"

// companyKey identifies a company within one file: CNPJ digits when
// present, otherwise the lowercased name with whitespace collapsed to
// underscores. The name is the only required field, so a nameless row
// has no key even when it carries a CNPJ.
func companyKey(row parser.RawRow) string {
	if strings.TrimSpace(row.Empresa) == "" {
		return ""
	}
	if digits := company.NormalizeCNPJ(row.CNPJ); digits != "" {
		return "cnpj_" + digits
	}
	return "company_" + strings.Join(strings.Fields(strings.ToLower(row.Empresa)), "_")
}

// ImportRows imports already-parsed rows. Rows without a company
// identifier are skipped; the whole import fails before any write when
// no row survives.
func (s *Service) ImportRows(ctx context.Context, rows []parser.RawRow) (*Result, error) {
	ctx, span := tracer.Start(ctx, "importer.ImportRows")
	defer span.End()
	span.SetAttributes(attribute.Int("rows.total", len(rows)))

	result := &Result{}

	type pending struct {
		row parser.RawRow
		key string
	}
	var valid []pending
	seen := make(map[string]parser.RawRow)
	for _, row := range rows {
		key := companyKey(row)
		if key == "" {
			result.Skipped++
			continue
		}
		valid = append(valid, pending{row: row, key: key})
		if first, ok := seen[key]; !ok {
			seen[key] = row
		} else if row.SemMovimento && !first.SemMovimento {
			first.SemMovimento = true
			seen[key] = first
		}
	}
	if len(valid) == 0 {
		return nil, ErrNoValidRows
	}

	// phase one: resolve or create every distinct company
	ids := make(map[string]uuid.UUID, len(seen))
	for key, row := range seen {
		c, err := s.resolveCompany(ctx, row)
		if err != nil {
			return nil, err
		}
		ids[key] = c.ID
	}
	result.Companies = len(ids)

	// phase two: one batched upsert keyed on (company, period). A row
	// without a period is still importable under a placeholder label.
	recs := make([]fiscal.Record, 0, len(valid))
	for _, p := range valid {
		periodLabel := strings.TrimSpace(p.row.Periodo)
		if periodLabel == "" {
			periodLabel = defaultPeriod
		}
		recs = append(recs, fiscal.Record{
			CompanyID: ids[p.key],
			Period:    periodLabel,
			RBT12:     deref(p.row.RBT12),
			Entrada:   deref(p.row.Entrada),
			Saida:     deref(p.row.Saida),
			Imposto:   deref(p.row.Imposto),
		})
	}
	if err := s.fiscal.UpsertBatch(ctx, recs); err != nil {
		return nil, err
	}
	result.Imported = len(recs)
	return result, nil
}

// ImportCompanyFile imports a single-company spreadsheet: rows carry
// only periods and figures, and every row lands on the given company.
func (s *Service) ImportCompanyFile(ctx context.Context, companyID uuid.UUID, r io.Reader, filename string) (*Result, error) {
	ctx, span := tracer.Start(ctx, "importer.ImportCompanyFile")
	defer span.End()
	span.SetAttributes(attribute.String("company.id", companyID.String()))

	start := time.Now()
	if _, err := s.companies.GetByID(ctx, companyID); err != nil {
		return nil, err
	}

	parsed, err := parser.Parse(r, filename)
	if err != nil {
		s.observe("parse_error", nil, start)
		return nil, err
	}

	result := &Result{Companies: 1}
	var recs []fiscal.Record
	for _, row := range parsed.Rows {
		if strings.TrimSpace(row.Periodo) == "" {
			result.Skipped++
			continue
		}
		recs = append(recs, fiscal.Record{
			CompanyID: companyID,
			Period:    strings.TrimSpace(row.Periodo),
			RBT12:     deref(row.RBT12),
			Entrada:   deref(row.Entrada),
			Saida:     deref(row.Saida),
			Imposto:   deref(row.Imposto),
		})
	}
	if len(recs) == 0 {
		s.observe("rejected", nil, start)
		return nil, ErrNoValidRows
	}
	if err := s.fiscal.UpsertBatch(ctx, recs); err != nil {
		return nil, err
	}
	result.Imported = len(recs)
	s.observe("ok", result, start)
	return result, nil
}

// resolveCompany finds the row's company by CNPJ, then by bare name,
// creating it when neither matches. A match is refreshed in place with
// the file's name, and flipped to sem movimento when the file says so,
// never the other way.
func (s *Service) resolveCompany(ctx context.Context, row parser.RawRow) (*company.Company, error) {
	digits := company.NormalizeCNPJ(row.CNPJ)
	name := strings.TrimSpace(row.Empresa)

	if digits != "" {
		c, err := s.companies.FindByCNPJ(ctx, digits)
		if err == nil {
			if c.Name != name {
				c.Name = name
				if err := s.companies.Update(ctx, c); err != nil {
					return nil, err
				}
			}
			return s.applyStatus(ctx, c, row.SemMovimento)
		}
		if !errors.Is(err, company.ErrNotFound) {
			return nil, err
		}
	} else {
		c, err := s.companies.FindByNameWithoutCNPJ(ctx, name)
		if err == nil {
			return s.applyStatus(ctx, c, row.SemMovimento)
		}
		if !errors.Is(err, company.ErrNotFound) {
			return nil, err
		}
	}

	c := &company.Company{Name: name, SemMovimento: row.SemMovimento}
	if digits != "" {
		c.CNPJ = &digits
	}
	if err := s.companies.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) applyStatus(ctx context.Context, c *company.Company, semMovimento bool) (*company.Company, error) {
	if semMovimento && !c.SemMovimento {
		if err := s.companies.UpdateStatus(ctx, c.ID, true); err != nil {
			return nil, err
		}
		c.SemMovimento = true
	}
	return c, nil
}

func (s *Service) observe(outcome string, result *Result, start time.Time) {
	if s.metrics == nil {
		return
	}
	imported, skipped := 0, 0
	if result != nil {
		imported, skipped = result.Imported, result.Skipped
	}
	s.metrics.ObserveImport(outcome, imported, skipped, time.Since(start))
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
