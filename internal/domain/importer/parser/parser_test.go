package parser

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func workbook(t *testing.T, rows [][]interface{}) *bytes.Reader {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return bytes.NewReader(buf.Bytes())
}

func TestParseXLSXAccentedHeaders(t *testing.T) {
	r := workbook(t, [][]interface{}{
		{"Empresa", "CNPJ", "Período", "RBT12", "Entrada", "Saída", "Imposto"},
		{"Acme LTDA", "12.345.678/0001-90", "Janeiro/2024", 120000, 10000, 7500, 612.5},
	})

	result, err := ParseXLSX(r)
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)

	row := result.Rows[0]
	assert.Equal(t, "Acme LTDA", row.Empresa)
	assert.Equal(t, "12.345.678/0001-90", row.CNPJ)
	assert.Equal(t, "Janeiro/2024", row.Periodo)
	require.NotNil(t, row.Entrada)
	assert.InDelta(t, 10000.0, *row.Entrada, 0.001)
	require.NotNil(t, row.Imposto)
	assert.InDelta(t, 612.5, *row.Imposto, 0.001)
}

func TestParseXLSXCurrencyText(t *testing.T) {
	r := workbook(t, [][]interface{}{
		{"Empresa", "Período", "Entrada"},
		{"Acme", "Janeiro/2024", "R$ 1.234,56"},
	})

	result, err := ParseXLSX(r)
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	require.NotNil(t, result.Rows[0].Entrada)
	assert.InDelta(t, 1234.56, *result.Rows[0].Entrada, 0.001)
}

func TestParseXLSXSkipsBlankRows(t *testing.T) {
	r := workbook(t, [][]interface{}{
		{"Empresa", "Período", "Entrada"},
		{"Acme", "Janeiro/2024", 10},
		{"", "", ""},
		{"Beta", "Janeiro/2024", 20},
	})

	result, err := ParseXLSX(r)
	require.NoError(t, err)
	assert.Len(t, result.Rows, 2)
	assert.Equal(t, 2, result.ParsedRows)
}

func TestParseXLSXMissingValueIsNil(t *testing.T) {
	r := workbook(t, [][]interface{}{
		{"Empresa", "Período", "Entrada", "Saída"},
		{"Acme", "Janeiro/2024", "", 50},
	})

	result, err := ParseXLSX(r)
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	assert.Nil(t, result.Rows[0].Entrada)
	require.NotNil(t, result.Rows[0].Saida)
}

func TestParseXLSXUnknownHeaders(t *testing.T) {
	r := workbook(t, [][]interface{}{
		{"Foo", "Bar"},
		{"1", "2"},
	})

	_, err := ParseXLSX(r)
	assert.Error(t, err)
}

func TestPausedTokens(t *testing.T) {
	assert.True(t, IsPaused("Acme LTDA - PARALISADA"))
	assert.True(t, IsPaused("paralizada"))
	assert.True(t, IsPaused("Sem Movimento"))
	assert.True(t, IsPaused("sem movimentação"))
	assert.False(t, IsPaused("Acme LTDA"))
	assert.False(t, IsPaused(""))
}

func TestParseCSVSemicolonDelimiter(t *testing.T) {
	data := "Empresa;Período;Entrada;Situação\nAcme;Janeiro/2024;1.234,56;ativa\nBeta;Janeiro/2024;100;sem movimento\n"

	result, err := ParseCSV(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, result.Rows, 2)

	require.NotNil(t, result.Rows[0].Entrada)
	assert.InDelta(t, 1234.56, *result.Rows[0].Entrada, 0.001)
	assert.False(t, result.Rows[0].SemMovimento)
	assert.True(t, result.Rows[1].SemMovimento)
}

func TestParseNumberForms(t *testing.T) {
	cases := map[string]float64{
		"1234.56":      1234.56,
		"1234,56":      1234.56,
		"1.234,56":     1234.56,
		"R$ 1.234,56":  1234.56,
		"-500,50":      -500.50,
		"R$ 12.000,00": 12000,
		"0":            0,
	}
	for in, want := range cases {
		got := ParseNumber(in)
		require.NotNil(t, got, in)
		assert.InDelta(t, want, *got, 0.001, in)
	}

	assert.Nil(t, ParseNumber(""))
	assert.Nil(t, ParseNumber("n/a"))
	assert.Nil(t, ParseNumber("-"))
}

func TestParseDispatch(t *testing.T) {
	_, err := Parse(strings.NewReader(""), "dados.pdf")
	assert.ErrorContains(t, err, "formato não suportado")
}
