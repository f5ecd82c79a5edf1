package fiscal

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/adonai404/imperial-fiscal/internal/access"
)

const exportSheet = "Dados Fiscais"

var companyExportHeader = []interface{}{"Período", "RBT12", "Entrada", "Saída", "Imposto"}
var bulkExportHeader = []interface{}{"Empresa", "CNPJ", "Período", "RBT12", "Entrada", "Saída", "Imposto"}

// Exporter writes fiscal data back out as xlsx workbooks in the same
// column layout the importer accepts, so an exported file can be
// re-imported as-is.
type Exporter struct {
	service *Service
}

func NewExporter(service *Service) *Exporter {
	return &Exporter{service: service}
}

// ExportCompany writes one company's records, oldest period first, with
// a synthetic TOTAL row summing the numeric columns.
func (e *Exporter) ExportCompany(ctx context.Context, companyID uuid.UUID, set access.Set) ([]byte, string, error) {
	data, err := e.service.CompanyData(ctx, companyID, set)
	if err != nil {
		return nil, "", err
	}
	if !data.Authorized {
		return nil, "", ErrAccessDenied
	}

	recs := append([]Record(nil), data.Records...)
	sortRecordsByPeriod(recs, false)

	f := excelize.NewFile()
	defer f.Close()
	index, err := f.NewSheet(exportSheet)
	if err != nil {
		return nil, "", err
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	if err := f.SetSheetRow(exportSheet, "A1", &companyExportHeader); err != nil {
		return nil, "", err
	}

	var totalRBT12, totalEntrada, totalSaida, totalImposto float64
	for i, rec := range recs {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []interface{}{rec.Period, rec.RBT12, rec.Entrada, rec.Saida, rec.Imposto}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return nil, "", err
		}
		totalRBT12 += rec.RBT12
		totalEntrada += rec.Entrada
		totalSaida += rec.Saida
		totalImposto += rec.Imposto
	}

	totalCell, _ := excelize.CoordinatesToCellName(1, len(recs)+2)
	totalRow := []interface{}{"TOTAL", totalRBT12, totalEntrada, totalSaida, totalImposto}
	if err := f.SetSheetRow(exportSheet, totalCell, &totalRow); err != nil {
		return nil, "", err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", err
	}
	filename := fmt.Sprintf("dados_fiscais_%s.xlsx", sanitizeFilename(data.Company.Name))
	return buf.Bytes(), filename, nil
}

// ExportAll writes every visible record across companies, one row per
// record with the owning company's name and CNPJ, plus a TOTAL row.
func (e *Exporter) ExportAll(ctx context.Context, set access.Set) ([]byte, string, error) {
	companies, err := e.service.companies.List(ctx)
	if err != nil {
		return nil, "", err
	}
	recs, err := e.service.visibleRecords(ctx, set)
	if err != nil {
		return nil, "", err
	}

	names := make(map[uuid.UUID]string, len(companies))
	cnpjs := make(map[uuid.UUID]string, len(companies))
	for _, c := range companies {
		names[c.ID] = c.Name
		if c.CNPJ != nil {
			cnpjs[c.ID] = *c.CNPJ
		}
	}

	// stable order: company name, then period ascending
	sortRecordsByPeriod(recs, false)
	sortRecordsByOwner(recs, names)

	f := excelize.NewFile()
	defer f.Close()
	index, err := f.NewSheet(exportSheet)
	if err != nil {
		return nil, "", err
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	if err := f.SetSheetRow(exportSheet, "A1", &bulkExportHeader); err != nil {
		return nil, "", err
	}

	var totalRBT12, totalEntrada, totalSaida, totalImposto float64
	for i, rec := range recs {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []interface{}{
			names[rec.CompanyID], cnpjs[rec.CompanyID],
			rec.Period, rec.RBT12, rec.Entrada, rec.Saida, rec.Imposto,
		}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return nil, "", err
		}
		totalRBT12 += rec.RBT12
		totalEntrada += rec.Entrada
		totalSaida += rec.Saida
		totalImposto += rec.Imposto
	}

	totalCell, _ := excelize.CoordinatesToCellName(1, len(recs)+2)
	totalRow := []interface{}{"TOTAL", "", "", totalRBT12, totalEntrada, totalSaida, totalImposto}
	if err := f.SetSheetRow(exportSheet, totalCell, &totalRow); err != nil {
		return nil, "", err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", err
	}
	return buf.Bytes(), "dados_fiscais.xlsx", nil
}

// Template writes an empty workbook with the bulk import header and one
// illustrative row, for users filling data by hand.
func (e *Exporter) Template() ([]byte, string, error) {
	f := excelize.NewFile()
	defer f.Close()
	index, err := f.NewSheet(exportSheet)
	if err != nil {
		return nil, "", err
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	if err := f.SetSheetRow(exportSheet, "A1", &bulkExportHeader); err != nil {
		return nil, "", err
	}
	sample := []interface{}{"Empresa Exemplo LTDA", "12345678000190", "Janeiro/2024", 120000.00, 10000.00, 7500.00, 612.50}
	if err := f.SetSheetRow(exportSheet, "A2", &sample); err != nil {
		return nil, "", err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", err
	}
	return buf.Bytes(), "modelo_importacao.xlsx", nil
}

// sortRecordsByOwner sorts by company name while keeping the prior
// per-company period ordering intact.
func sortRecordsByOwner(recs []Record, names map[uuid.UUID]string) {
	sort.SliceStable(recs, func(i, j int) bool {
		return names[recs[i].CompanyID] < names[recs[j].CompanyID]
	})
}

func sanitizeFilename(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			out = append(out, r)
		case r == ' ', r == '-', r == '_':
			out = append(out, '_')
		}
	}
	if len(out) == 0 {
		return "empresa"
	}
	return string(out)
}
