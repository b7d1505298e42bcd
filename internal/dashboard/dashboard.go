// Package dashboard renders the publications document into a single static
// HTML page.
//
// The page is produced by literal placeholder substitution into an embedded
// template; all interactivity runs in the browser against the embedded JSON.
// Substitution is a single left-to-right pass: a record whose text contains a
// token such as "%%DATA%%" is embedded verbatim and never expanded. A token
// placed in the template where it was not meant to be is not detected.
package dashboard

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/henrybloomingdale/scapis-dashboard/internal/dataset"
	"github.com/henrybloomingdale/scapis-dashboard/internal/pubs"
)

// Placeholder tokens recognized in the template.
const (
	PlaceholderData       = "%%DATA%%"
	PlaceholderCount      = "%%PUB_COUNT%%"
	PlaceholderYearRange  = "%%YEAR_RANGE%%"
	PlaceholderUpdateDate = "%%UPDATE_DATE%%"
)

// DefaultOutput is where render writes the page by default.
const DefaultOutput = "index.html"

// UpdateDateLayout formats the last-updated date, e.g. "07 Mar 2025".
const UpdateDateLayout = "02 Jan 2006"

// Template is the built-in page.
//
//go:embed template.html
var Template string

// Summary holds the figures shown in the page header and footer.
type Summary struct {
	Count   int
	MinYear string
	MaxYear string
}

// ComputeSummary counts records and finds the year bounds over non-empty
// years. Years compare as strings.
func ComputeSummary(records []pubs.DashboardRecord) Summary {
	s := Summary{Count: len(records)}
	for _, r := range records {
		if r.Year == "" {
			continue
		}
		if s.MinYear == "" || r.Year < s.MinYear {
			s.MinYear = r.Year
		}
		if r.Year > s.MaxYear {
			s.MaxYear = r.Year
		}
	}
	return s
}

// YearRange formats the bounds as "min–max", or "N/A" without any year.
func (s Summary) YearRange() string {
	if s.MinYear == "" {
		return "N/A"
	}
	return s.MinYear + "–" + s.MaxYear
}

// Render substitutes doc and s into tmpl. The payload is JSON with <, >, &
// and the JavaScript line separators escaped, so it is safe inside an inline
// script. now is rendered in UTC.
func Render(tmpl string, doc dataset.Document, s Summary, now time.Time) (string, error) {
	if doc.Publications == nil {
		doc.Publications = []pubs.DashboardRecord{}
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encoding payload: %w", err)
	}

	r := strings.NewReplacer(
		PlaceholderData, string(payload),
		PlaceholderCount, strconv.Itoa(s.Count),
		PlaceholderYearRange, s.YearRange(),
		PlaceholderUpdateDate, now.UTC().Format(UpdateDateLayout),
	)
	return r.Replace(tmpl), nil
}

// Page renders doc into the built-in template.
func Page(doc dataset.Document, now time.Time) (string, Summary, error) {
	s := ComputeSummary(doc.Publications)
	html, err := Render(Template, doc, s, now)
	return html, s, err
}
