package parser

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/gocarina/gocsv"
)

// fiscalCSVRow mirrors the accepted header aliases for gocsv. Tags are
// matched after normalization, so accented and capitalized variants of
// these headers bind to the same field.
type fiscalCSVRow struct {
	Empresa     string `csv:"empresa"`
	RazaoSocial string `csv:"razao social"`
	CNPJ        string `csv:"cnpj"`
	Periodo     string `csv:"periodo"`
	Competencia string `csv:"competencia"`
	RBT12       string `csv:"rbt12"`
	Entrada     string `csv:"entrada"`
	Entradas    string `csv:"entradas"`
	Saida       string `csv:"saida"`
	Saidas      string `csv:"saidas"`
	Imposto     string `csv:"imposto"`
	Impostos    string `csv:"impostos"`
	Situacao    string `csv:"situacao"`
	Status      string `csv:"status"`
}

func init() {
	gocsv.SetHeaderNormalizer(Normalize)
}

// ParseCSV reads a delimiter-sniffed csv file
func ParseCSV(r io.Reader) (*ParseResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("falha ao ler o arquivo .csv: %w", err)
	}

	comma := detectDelimiter(data)
	gocsv.SetCSVReader(func(in io.Reader) gocsv.CSVReader {
		cr := csv.NewReader(in)
		cr.Comma = comma
		cr.LazyQuotes = true
		cr.TrimLeadingSpace = true
		return cr
	})

	var rows []fiscalCSVRow
	if err := gocsv.UnmarshalBytes(data, &rows); err != nil {
		return nil, fmt.Errorf("falha ao interpretar o arquivo .csv: %w", err)
	}

	result := &ParseResult{}
	for i, cr := range rows {
		result.TotalRows++
		row := RawRow{
			Row:     i + 2,
			Empresa: strings.TrimSpace(coalesce(cr.Empresa, cr.RazaoSocial)),
			CNPJ:    strings.TrimSpace(cr.CNPJ),
			Periodo: strings.TrimSpace(coalesce(cr.Periodo, cr.Competencia)),
			RBT12:   ParseNumber(cr.RBT12),
			Entrada: ParseNumber(coalesce(cr.Entrada, cr.Entradas)),
			Saida:   ParseNumber(coalesce(cr.Saida, cr.Saidas)),
			Imposto: ParseNumber(coalesce(cr.Imposto, cr.Impostos)),
		}
		if IsPaused(row.Empresa) || IsPaused(coalesce(cr.Situacao, cr.Status)) {
			row.SemMovimento = true
		}
		if row.Empresa == "" && row.CNPJ == "" && row.Periodo == "" &&
			row.RBT12 == nil && row.Entrada == nil && row.Saida == nil && row.Imposto == nil {
			result.SkippedRows++
			continue
		}
		result.Rows = append(result.Rows, row)
		result.ParsedRows++
	}
	return result, nil
}

// detectDelimiter sniffs the header line for a semicolon, the common
// Brazilian export delimiter, falling back to comma.
func detectDelimiter(data []byte) rune {
	line := data
	if idx := bytes.IndexByte(data, '\n'); idx >= 0 {
		line = data[:idx]
	}
	if bytes.Count(line, []byte{';'}) > bytes.Count(line, []byte{','}) {
		return ';'
	}
	return ','
}

func coalesce(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
