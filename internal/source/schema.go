package source

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Table names one of the four input tables.
type Table string

const (
	TableBirths      Table = "births"
	TablePopulation  Table = "population"
	TableRates       Table = "fertility_rates"
	TableOfficialTFR Table = "official_tfr"
)

// Canonical column names.
const (
	colYear        = "year"
	colNationality = "nationality"
	colAgeBand     = "age_band"
	colBirths      = "births"
	colPopulation  = "population"
	colRate        = "rate"
	colTFR         = "tfr"
)

// columnAliases lists the accepted header spellings after folding (lower
// case, accents removed, spaces as underscores).
var columnAliases = map[string][]string{
	colYear:        {"anio", "ano", "year", "periodo", "period", "fecha"},
	colNationality: {"nacionalidad", "nationality", "nationality_label"},
	colAgeBand:     {"grupo_edad", "edad", "grupo_de_edad", "age_band", "age_band_raw", "age_group"},
	colBirths:      {"nacimientos", "births"},
	colPopulation:  {"poblacion", "population", "total"},
	colRate:        {"tasa", "rate", "tasa_fecundidad", "asfr"},
	colTFR:         {"tfr", "isf", "indicador_coyuntural_de_fecundidad"},
}

var tableColumns = map[Table][]string{
	TableBirths:      {colYear, colNationality, colBirths},
	TablePopulation:  {colAgeBand, colNationality, colYear, colPopulation},
	TableRates:       {colAgeBand, colNationality, colYear, colRate},
	TableOfficialTFR: {colYear, colNationality, colTFR},
}

// SchemaError reports required columns that a table header does not carry.
type SchemaError struct {
	Table   Table
	File    string
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s (%s): missing required columns: %s", e.Table, e.File, strings.Join(e.Missing, ", "))
}

// IsTransient returns false; the file has to be fixed.
func (e *SchemaError) IsTransient() bool {
	return false
}

var headerFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func foldHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	folded, _, err := transform.String(headerFolder, h)
	if err != nil {
		folded = h
	}
	folded = strings.ToLower(strings.TrimSpace(folded))
	return strings.Join(strings.Fields(folded), "_")
}

// resolveHeader maps each required column of table to its index in header.
// The first matching cell wins.
func resolveHeader(table Table, header []string) (map[string]int, []string) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		f := foldHeader(h)
		if _, seen := index[f]; !seen && f != "" {
			index[f] = i
		}
	}

	cols := make(map[string]int)
	var missing []string
	for _, col := range tableColumns[table] {
		found := false
		for _, alias := range columnAliases[col] {
			if i, ok := index[alias]; ok {
				cols[col] = i
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, col)
		}
	}
	sort.Strings(missing)
	return cols, missing
}

// headerSearchRows bounds how many leading title rows are skipped while
// looking for the header.
const headerSearchRows = 20

// findHeader returns the index of the first row resolving every required
// column. When none does, the missing columns of the first non-empty row are
// reported.
func findHeader(table Table, file string, rows [][]string) (int, map[string]int, error) {
	var firstMissing []string
	firstSeen := false
	for i := 0; i < len(rows) && i < headerSearchRows; i++ {
		if blankRow(rows[i]) {
			continue
		}
		cols, missing := resolveHeader(table, rows[i])
		if len(missing) == 0 {
			return i, cols, nil
		}
		if !firstSeen {
			firstSeen = true
			firstMissing = missing
		}
	}
	if !firstSeen {
		firstMissing = append([]string(nil), tableColumns[table]...)
		sort.Strings(firstMissing)
	}
	return 0, nil, &SchemaError{Table: table, File: file, Missing: firstMissing}
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// cell returns the trimmed value of column col, or "" when the row is short.
func cell(row []string, cols map[string]int, col string) string {
	i, ok := cols[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
