package fiscal

import (
	"bytes"
	"context"
	"strconv"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/adonai404/imperial-fiscal/internal/domain/company"
)

func readSheet(t *testing.T, data []byte) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(exportSheet)
	require.NoError(t, err)
	return rows
}

func TestExportCompanySortedWithTotal(t *testing.T) {
	companyID := uuid.New()
	recs := []Record{
		record(companyID, "Fevereiro/2024", 200, 80, 10),
		record(companyID, "Janeiro/2024", 100, 40, 5),
	}
	recs[0].RBT12 = 24000
	recs[1].RBT12 = 12000
	repo := &MockRepository{records: recs}
	dir := &MockDirectory{companies: []company.Company{{ID: companyID, Name: "Acme LTDA"}}}
	exporter := NewExporter(NewService(repo, dir, testLogger()))

	data, filename, err := exporter.ExportCompany(context.Background(), companyID, nil)
	require.NoError(t, err)
	assert.Equal(t, "dados_fiscais_Acme_LTDA.xlsx", filename)

	rows := readSheet(t, data)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"Período", "RBT12", "Entrada", "Saída", "Imposto"}, rows[0])
	assert.Equal(t, "Janeiro/2024", rows[1][0])
	assert.Equal(t, "Fevereiro/2024", rows[2][0])

	total := rows[3]
	assert.Equal(t, "TOTAL", total[0])
	rbt12, err := strconv.ParseFloat(total[1], 64)
	require.NoError(t, err)
	assert.InDelta(t, 36000.0, rbt12, 0.001)
	entrada, err := strconv.ParseFloat(total[2], 64)
	require.NoError(t, err)
	assert.InDelta(t, 300.0, entrada, 0.001)
}

func TestExportCompanyDeniedWhenGated(t *testing.T) {
	companyID := uuid.New()
	dir := &MockDirectory{
		companies: []company.Company{{ID: companyID, Name: "Gated"}},
		protected: []uuid.UUID{companyID},
	}
	exporter := NewExporter(NewService(&MockRepository{}, dir, testLogger()))

	_, _, err := exporter.ExportCompany(context.Background(), companyID, nil)
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestExportAllIncludesCompanyColumns(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	cnpj := "12345678000190"
	repo := &MockRepository{records: []Record{
		record(b, "Janeiro/2024", 50, 20, 2),
		record(a, "Janeiro/2024", 100, 40, 4),
	}}
	dir := &MockDirectory{companies: []company.Company{
		{ID: a, Name: "Alfa", CNPJ: &cnpj},
		{ID: b, Name: "Beta"},
	}}
	exporter := NewExporter(NewService(repo, dir, testLogger()))

	data, filename, err := exporter.ExportAll(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "dados_fiscais.xlsx", filename)

	rows := readSheet(t, data)
	require.Len(t, rows, 4)
	assert.Equal(t, "Empresa", rows[0][0])
	assert.Equal(t, "Alfa", rows[1][0])
	assert.Equal(t, cnpj, rows[1][1])
	assert.Equal(t, "Beta", rows[2][0])
	assert.Equal(t, "TOTAL", rows[3][0])
}

func TestTemplateHeader(t *testing.T) {
	exporter := NewExporter(nil)
	data, filename, err := exporter.Template()
	require.NoError(t, err)
	assert.Equal(t, "modelo_importacao.xlsx", filename)

	rows := readSheet(t, data)
	require.NotEmpty(t, rows)
	assert.Equal(t, []string{"Empresa", "CNPJ", "Período", "RBT12", "Entrada", "Saída", "Imposto"}, rows[0])
}
