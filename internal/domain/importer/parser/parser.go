// Package parser turns uploaded spreadsheets (xlsx, xls, csv) into raw
// fiscal rows. Header matching is accent and case insensitive so the
// files accountants actually produce parse without manual cleanup.
package parser

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/cloudflare/ahocorasick"
	"github.com/shopspring/decimal"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// RawRow is one spreadsheet row after header resolution, before any
// company matching. Numeric fields are nil when the cell was empty or
// not a number, which is distinct from an explicit zero.
type RawRow struct {
	Row          int
	Empresa      string
	CNPJ         string
	Periodo      string
	RBT12        *float64
	Entrada      *float64
	Saida        *float64
	Imposto      *float64
	SemMovimento bool
}

// ParseError describes why a single row was rejected
type ParseError struct {
	Row     int
	Message string
}

func (e ParseError) Error() string {
	return fmt.Sprintf("linha %d: %s", e.Row, e.Message)
}

// ParseResult carries the parsed rows plus per-row rejections
type ParseResult struct {
	Rows        []RawRow
	Errors      []ParseError
	TotalRows   int
	ParsedRows  int
	SkippedRows int
}

// column keys after header normalization
const (
	colEmpresa  = "empresa"
	colCNPJ     = "cnpj"
	colPeriodo  = "periodo"
	colRBT12    = "rbt12"
	colEntrada  = "entrada"
	colSaida    = "saida"
	colImposto  = "imposto"
	colSituacao = "situacao"
)

// headerAliases maps normalized header names to column keys
var headerAliases = map[string]string{
	"empresa":      colEmpresa,
	"razao social": colEmpresa,
	"cnpj":         colCNPJ,
	"periodo":      colPeriodo,
	"competencia":  colPeriodo,
	"rbt12":        colRBT12,
	"entrada":      colEntrada,
	"entradas":     colEntrada,
	"saida":        colSaida,
	"saidas":       colSaida,
	"imposto":      colImposto,
	"impostos":     colImposto,
	"situacao":     colSituacao,
	"status":       colSituacao,
}

// pausedTokens are the markers accountants write into the company or
// status cell for companies with no movement in the period. Matched on
// normalized text so "Paralisada" and "paralizada" both hit.
var pausedTokens = []string{
	"paralisada",
	"paralizada",
	"sem movimento",
	"sem movimentacao",
	"inativa",
}

var pausedMatcher = ahocorasick.NewStringMatcher(pausedTokens)

// accentStripper removes combining marks so "Período" and "Periodo"
// normalize to the same key.
var accentStripper = transform.Chain(norm.NFD, transform.RemoveFunc(func(r rune) bool {
	return unicode.Is(unicode.Mn, r)
}), norm.NFC)

// Normalize lowercases and strips accents and surrounding space
func Normalize(s string) string {
	out, _, err := transform.String(accentStripper, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}

// ResolveHeader maps a raw header cell to a column key. The second
// return is false for unrecognized headers, which are ignored.
func ResolveHeader(cell string) (string, bool) {
	key, ok := headerAliases[Normalize(cell)]
	return key, ok
}

// IsPaused reports whether a cell carries a no-movement marker
func IsPaused(cell string) bool {
	if cell == "" {
		return false
	}
	return pausedMatcher.Contains([]byte(Normalize(cell)))
}

// ParseNumber coerces a spreadsheet cell to a float. It accepts plain
// numbers and Brazilian currency text ("R$ 1.234,56"), returning nil
// for empty or non-numeric cells.
func ParseNumber(cell string) *float64 {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' || r == '-' {
			return r
		}
		return -1
	}, cell)
	if cleaned == "" || cleaned == "-" {
		return nil
	}

	// with both separators present the dot is a thousands mark
	if strings.Contains(cleaned, ".") && strings.Contains(cleaned, ",") {
		cleaned = strings.ReplaceAll(cleaned, ".", "")
	}
	cleaned = strings.ReplaceAll(cleaned, ",", ".")

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return nil
	}
	f, _ := d.Float64()
	return &f
}

// buildRows converts a cell grid (header row first) into RawRows.
// Rows whose recognized cells are all blank are skipped silently.
func buildRows(grid [][]string) (*ParseResult, error) {
	result := &ParseResult{}
	if len(grid) == 0 {
		return result, nil
	}

	columns := make(map[int]string)
	for idx, cell := range grid[0] {
		if key, ok := ResolveHeader(cell); ok {
			columns[idx] = key
		}
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("nenhuma coluna reconhecida no cabeçalho")
	}

	for i, cells := range grid[1:] {
		result.TotalRows++
		row := RawRow{Row: i + 2}
		blank := true
		for idx, key := range columns {
			if idx >= len(cells) {
				continue
			}
			cell := strings.TrimSpace(cells[idx])
			if cell == "" {
				continue
			}
			blank = false
			switch key {
			case colEmpresa:
				row.Empresa = cell
				if IsPaused(cell) {
					row.SemMovimento = true
				}
			case colCNPJ:
				row.CNPJ = cell
			case colPeriodo:
				row.Periodo = cell
			case colRBT12:
				row.RBT12 = ParseNumber(cell)
			case colEntrada:
				row.Entrada = ParseNumber(cell)
			case colSaida:
				row.Saida = ParseNumber(cell)
			case colImposto:
				row.Imposto = ParseNumber(cell)
			case colSituacao:
				if IsPaused(cell) {
					row.SemMovimento = true
				}
			}
		}
		if blank {
			result.SkippedRows++
			continue
		}
		result.Rows = append(result.Rows, row)
		result.ParsedRows++
	}
	return result, nil
}

// Parse dispatches on the uploaded filename's extension
func Parse(r io.Reader, filename string) (*ParseResult, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		return ParseXLSX(r)
	case ".xls":
		return ParseXLS(r)
	case ".csv":
		return ParseCSV(r)
	default:
		return nil, fmt.Errorf("formato não suportado: %s", filepath.Ext(filename))
	}
}
