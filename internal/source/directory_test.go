package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	xlsx "github.com/360EntSecGroup-Skylar/excelize/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fertility-platform/internal/models"
	"fertility-platform/pkg/logging"
	"fertility-platform/pkg/metrics"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func newTestDirectory(t *testing.T, dir string) *Directory {
	t.Helper()
	return NewDirectory(Options{
		Dir:              dir,
		BirthsFile:       "births_by_nationality.csv",
		PopulationFile:   "women_15_49_by_nationality.csv",
		RatesFile:        "fertility_rates_by_age_and_nationality.csv",
		OfficialTFRFile:  "tfr_by_nationality.csv",
		PopulationFormat: models.SpanishNumbers,
		NumberFormat:     models.PlainNumbers,
	}, logging.Discard(), metrics.NewCollectorWith("source_test", prometheus.NewRegistry()))
}

func TestDirectoryBirths(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "births_by_nationality.csv", "anio,nacionalidad,nacimientos\n"+
		"2001,Española,350000\n"+
		"2020,Española,300000\n"+
		"2020,Extranjera,41000\n"+
		"2020,Extranjera,..\n"+
		",,\n")

	d := newTestDirectory(t, dir)
	births, err := d.Births(context.Background(), models.YearRange{From: 2002, To: 2024})
	require.NoError(t, err)
	require.Len(t, births, 2)
	assert.Equal(t, models.Birth{Year: 2020, NationalityLabel: "Española", Births: 300000}, births[0])
	assert.Equal(t, 41000.0, births[1].Births)
}

func TestDirectoryPopulationSpanishFormat(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "women_15_49_by_nationality.csv",
		"Mujeres de 15 a 49 años por nacionalidad\n"+
			"\n"+
			"Grupo de edad;Nacionalidad;Periodo;Total\n"+
			"De 25 a 29 años;Española;1 de enero de 2020;1.034.567\n"+
			"De 25 a 29 años;Extranjera;1 de julio de 2020;231.004\n")

	d := newTestDirectory(t, dir)
	pop, err := d.Population(context.Background(), models.YearRange{})
	require.NoError(t, err)
	require.Len(t, pop, 2)
	assert.Equal(t, 1034567.0, pop[0].Population)
	assert.Equal(t, 2020, pop[0].Year)
	assert.Equal(t, "1 de enero de 2020", pop[0].Period)
	assert.Equal(t, "De 25 a 29 años", pop[0].AgeBandRaw)
	assert.Equal(t, 231004.0, pop[1].Population)
}

func TestDirectorySchemaError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "fertility_rates_by_age_and_nationality.csv", "anio,Nacionalidad,valor\n2020,Española,30\n")

	d := newTestDirectory(t, dir)
	_, err := d.FertilityRates(context.Background(), models.YearRange{})
	require.Error(t, err)

	var se *SchemaError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, TableRates, se.Table)
	assert.Equal(t, []string{"age_band", "rate"}, se.Missing)
	assert.False(t, se.IsTransient())
	assert.Contains(t, err.Error(), "missing required columns: age_band, rate")
}

func TestDirectoryEmptyFileIsSchemaError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "births_by_nationality.csv", "")

	_, err := newTestDirectory(t, dir).Births(context.Background(), models.YearRange{})
	var se *SchemaError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, []string{"births", "nationality", "year"}, se.Missing)
}

func TestDirectoryRatesFromXLSX(t *testing.T) {
	dir := t.TempDir()

	f := xlsx.NewFile()
	rows := [][]interface{}{
		{"grupo_edad", "Nacionalidad", "anio", "tasa"},
		{"De 30 a 34 años", "Española", 2021, 71.25},
		{"De 30 a 34 años", "Extranjera", 2021, 80.5},
	}
	for i, r := range rows {
		row := r
		require.NoError(t, f.SetSheetRow("Sheet1", fmt.Sprintf("A%d", i+1), &row))
	}
	require.NoError(t, f.SaveAs(filepath.Join(dir, "rates.xlsx")))

	d := newTestDirectory(t, dir)
	d.opts.RatesFile = "rates.xlsx"

	rates, err := d.FertilityRates(context.Background(), models.YearRange{})
	require.NoError(t, err)
	require.Len(t, rates, 2)
	assert.Equal(t, 2021, rates[0].Year)
	assert.InDelta(t, 71.25, rates[0].Rate, 1e-9)
	assert.Equal(t, "Extranjera", rates[1].NationalityLabel)
}

func TestDirectoryOfficialTFROptional(t *testing.T) {
	d := newTestDirectory(t, t.TempDir())

	tfr, err := d.OfficialTFR(context.Background(), models.YearRange{})
	require.NoError(t, err)
	assert.Nil(t, tfr)

	d.opts.OfficialTFRFile = ""
	tfr, err = d.OfficialTFR(context.Background(), models.YearRange{})
	require.NoError(t, err)
	assert.Nil(t, tfr)
}

func TestDirectoryUnsupportedFormat(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "births.json", "[]")

	d := newTestDirectory(t, dir)
	d.opts.BirthsFile = "births.json"
	_, err := d.Births(context.Background(), models.YearRange{})
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))
}

func TestDirectoryMissingXLS(t *testing.T) {
	d := newTestDirectory(t, t.TempDir())
	d.opts.BirthsFile = "births.xls"
	_, err := d.Births(context.Background(), models.YearRange{})
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestDirectoryValidate(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "births_by_nationality.csv", "anio,nacionalidad,nacimientos\n2020,Española,300000\n2020,Extranjera,abc\n")
	writeFile(t, dir, "women_15_49_by_nationality.csv", "grupo_edad,nacionalidad,anio,poblacion\nDe 15 a 19 años,Española,2020,\"1.000\"\n")
	writeFile(t, dir, "fertility_rates_by_age_and_nationality.csv", "grupo_edad,Nacionalidad,anio,tasa\n15-19,Española,2020,5.5\n")
	writeFile(t, dir, "tfr_by_nationality.csv", "anio,nacionalidad,tfr\n2020,Española,1190\n")

	reports, err := newTestDirectory(t, dir).Validate(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 4)

	assert.Equal(t, TableBirths, reports[0].Table)
	assert.Equal(t, 2, reports[0].Rows)
	assert.Equal(t, 1, reports[0].Loaded)
	assert.Equal(t, 1, reports[0].Skipped)
	require.Len(t, reports[0].Errors, 1)
	assert.Contains(t, reports[0].Errors[0], "line 3")

	for _, r := range reports[1:] {
		assert.Zero(t, r.Skipped, r.Table)
	}
}

func TestDirectoryCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestDirectory(t, t.TempDir()).Births(ctx, models.YearRange{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFoldHeader(t *testing.T) {
	assert.Equal(t, "poblacion", foldHeader(" Población "))
	assert.Equal(t, "grupo_de_edad", foldHeader("Grupo  de edad"))
	assert.Equal(t, "ano", foldHeader("\ufeffAño"))
}

func TestSniffDelimiter(t *testing.T) {
	assert.Equal(t, ';', sniffDelimiter("a;b;c\n1,5;2;3"))
	assert.Equal(t, ',', sniffDelimiter("a,b,c\n"))
	assert.Equal(t, '\t', sniffDelimiter("a\tb\tc"))
}
