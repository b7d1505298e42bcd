package output

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/henrybloomingdale/scapis-dashboard/internal/pubs"
)

var csvHeader = []string{
	"title", "year", "journal", "firstAuthor", "authorCount", "authors",
	"topics", "doi", "pmid", "abstract",
}

// WriteCSV exports dashboard records with one row per record. Topics are
// joined with "; ".
func WriteCSV(path string, records []pubs.DashboardRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating CSV file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}
	for _, r := range records {
		row := []string{
			r.Title,
			r.Year,
			r.Journal,
			r.FirstAuthor,
			strconv.Itoa(r.AuthorCount),
			r.Authors,
			strings.Join(r.Topics, "; "),
			r.DOI,
			r.PMID,
			r.Abstract,
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("writing CSV row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("writing CSV file: %w", err)
	}
	return nil
}

// ExportConfig names the export targets; empty paths are skipped.
type ExportConfig struct {
	RISFile string
	CSVFile string
}

// Export writes records to every configured target.
func Export(records []pubs.DashboardRecord, cfg ExportConfig) error {
	if cfg.RISFile != "" {
		if err := WriteRIS(cfg.RISFile, records); err != nil {
			return fmt.Errorf("RIS export failed: %w", err)
		}
	}
	if cfg.CSVFile != "" {
		if err := WriteCSV(cfg.CSVFile, records); err != nil {
			return fmt.Errorf("CSV export failed: %w", err)
		}
	}
	return nil
}
