// Package output formats collection statistics for the terminal and exports
// dashboard records to citation formats.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/henrybloomingdale/scapis-dashboard/internal/pubs"
)

// OutputConfig controls which output mode is active.
type OutputConfig struct {
	JSON  bool // Structured JSON
	Human bool // Rich terminal output with color
}

// Count is one labelled tally.
type Count struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Stats summarizes a publications document.
type Stats struct {
	Total        int     `json:"total"`
	MinYear      string  `json:"minYear"`
	MaxYear      string  `json:"maxYear"`
	WithAbstract int     `json:"withAbstract"`
	WithDOI      int     `json:"withDoi"`
	WithPMID     int     `json:"withPmid"`
	Topics       []Count `json:"topics"`
	Journals     []Count `json:"journals"`
}

// topJournals bounds the journal list in Stats.
const topJournals = 10

// Summarize computes Stats over records. Topics are listed by descending
// count; ties keep first-seen order so the classifier's table order shows.
func Summarize(records []pubs.DashboardRecord) Stats {
	s := Stats{Total: len(records)}
	topics := newTally()
	journals := newTally()

	for _, r := range records {
		if r.Year != "" {
			if s.MinYear == "" || r.Year < s.MinYear {
				s.MinYear = r.Year
			}
			if r.Year > s.MaxYear {
				s.MaxYear = r.Year
			}
		}
		if r.Abstract != "" {
			s.WithAbstract++
		}
		if r.DOI != "" {
			s.WithDOI++
		}
		if r.PMID != "" {
			s.WithPMID++
		}
		for _, t := range r.Topics {
			topics.add(t)
		}
		if j := strings.TrimSpace(r.Journal); j != "" {
			journals.add(j)
		}
	}

	s.Topics = topics.sorted(0)
	s.Journals = journals.sorted(topJournals)
	return s
}

type tally struct {
	order  []string
	counts map[string]int
}

func newTally() *tally { return &tally{counts: map[string]int{}} }

func (t *tally) add(label string) {
	if _, ok := t.counts[label]; !ok {
		t.order = append(t.order, label)
	}
	t.counts[label]++
}

func (t *tally) sorted(limit int) []Count {
	out := make([]Count, 0, len(t.order))
	for _, l := range t.order {
		out = append(out, Count{Label: l, Count: t.counts[l]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// yearRange formats the bounds the way the collector reports them.
func (s Stats) yearRange() string {
	if s.MinYear == "" {
		return "?"
	}
	return s.MinYear + " - " + s.MaxYear
}

// FormatStats writes s in the selected mode.
func FormatStats(w io.Writer, s Stats, cfg OutputConfig) error {
	if cfg.JSON {
		return writeJSON(w, s)
	}
	if cfg.Human {
		return formatStatsHuman(w, s)
	}
	return formatStatsPlain(w, s)
}

func formatStatsPlain(w io.Writer, s Stats) error {
	fmt.Fprintf(w, "Publications: %d\n", s.Total)
	fmt.Fprintf(w, "Year range: %s\n", s.yearRange())
	fmt.Fprintf(w, "Publications with abstracts: %d/%d\n", s.WithAbstract, s.Total)
	fmt.Fprintf(w, "With DOI: %d, with PMID: %d\n", s.WithDOI, s.WithPMID)

	if len(s.Topics) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Topics:")
		for _, c := range s.Topics {
			fmt.Fprintf(w, "  %-16s %d\n", c.Label, c.Count)
		}
	}
	if len(s.Journals) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Top journals:")
		for i, c := range s.Journals {
			fmt.Fprintf(w, "  %d. %s (%d)\n", i+1, c.Label, c.Count)
		}
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
