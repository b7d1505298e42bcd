package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/henrybloomingdale/scapis-dashboard/internal/pubs"
)

func sampleRecords() []pubs.DashboardRecord {
	return []pubs.DashboardRecord{
		{Title: "A", Year: "2023", Journal: "Eur Heart J", Topics: []string{"Cardiovascular", "Imaging"}, DOI: "10.1/a", PMID: "1", Abstract: "x"},
		{Title: "B", Year: "2019", Journal: "Eur Respir J", Topics: []string{"Respiratory"}, PMID: "2"},
		{Title: "C", Year: "", Journal: "Eur Heart J", Topics: []string{"Cardiovascular"}, Abstract: "y"},
		{Title: "D", Year: "2021", Topics: []string{"Other"}},
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(sampleRecords())

	assert.Equal(t, 4, s.Total)
	assert.Equal(t, "2019", s.MinYear)
	assert.Equal(t, "2023", s.MaxYear)
	assert.Equal(t, 2, s.WithAbstract)
	assert.Equal(t, 1, s.WithDOI)
	assert.Equal(t, 2, s.WithPMID)
	assert.Equal(t, []Count{
		{"Cardiovascular", 2},
		{"Imaging", 1},
		{"Respiratory", 1},
		{"Other", 1},
	}, s.Topics)
	assert.Equal(t, []Count{{"Eur Heart J", 2}, {"Eur Respir J", 1}}, s.Journals)
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)
	assert.Equal(t, 0, s.Total)
	assert.Equal(t, "?", s.yearRange())
	assert.Empty(t, s.Topics)
}

func TestFormatStats_Plain(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, FormatStats(&buf, Summarize(sampleRecords()), OutputConfig{}))

	out := buf.String()
	assert.Contains(t, out, "Publications: 4")
	assert.Contains(t, out, "Year range: 2019 - 2023")
	assert.Contains(t, out, "Publications with abstracts: 2/4")
	assert.Contains(t, out, "1. Eur Heart J (2)")
}

func TestFormatStats_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, FormatStats(&buf, Summarize(sampleRecords()), OutputConfig{JSON: true}))

	var got Stats
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, 4, got.Total)
	assert.Equal(t, "Cardiovascular", got.Topics[0].Label)
}

func TestFormatStats_Human(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, FormatStats(&buf, Summarize(sampleRecords()), OutputConfig{Human: true}))

	out := buf.String()
	assert.Contains(t, out, "4 SCAPIS publications")
	assert.Contains(t, out, "Topic")
	assert.Contains(t, out, "Respiratory")
	assert.Contains(t, out, "Eur Respir J")

	buf.Reset()
	require.NoError(t, FormatStats(&buf, Summarize(nil), OutputConfig{Human: true}))
	assert.Contains(t, buf.String(), "No publications collected.")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "Bergstr…", truncate("Bergströmska", 8))
}

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "publications.csv")
	records := sampleRecords()
	records[0].Abstract = "Quoted \"text\", with comma\nand newline"

	require.NoError(t, WriteCSV(path, records))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, rows, 5)
	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, "Cardiovascular; Imaging", rows[1][6])
	assert.Equal(t, records[0].Abstract, rows[1][9])
	assert.Equal(t, "0", rows[2][4])
}

func TestExport(t *testing.T) {
	dir := t.TempDir()
	cfg := ExportConfig{
		RISFile: filepath.Join(dir, "out.ris"),
		CSVFile: filepath.Join(dir, "out.csv"),
	}
	require.NoError(t, Export(sampleRecords(), cfg))

	ris, err := os.ReadFile(cfg.RISFile)
	require.NoError(t, err)
	assert.Equal(t, 4, strings.Count(string(ris), "ER  -"))

	_, err = os.Stat(cfg.CSVFile)
	assert.NoError(t, err)

	err = Export(nil, ExportConfig{RISFile: filepath.Join(dir, "missing", "out.ris")})
	assert.ErrorContains(t, err, "RIS export failed")
}
