package pubs

import (
	"sort"
	"strings"
)

// DashboardRecord is the public output shape consumed by the renderer and
// the browser. Field names and order are part of the output contract.
type DashboardRecord struct {
	Title       string   `json:"title"`
	Year        string   `json:"year"`
	Journal     string   `json:"journal"`
	FirstAuthor string   `json:"firstAuthor"`
	AuthorCount int      `json:"authorCount"`
	Authors     string   `json:"authors"`
	Topics      []string `json:"topics"`
	DOI         string   `json:"doi"`
	PMID        string   `json:"pmid"`
	Abstract    string   `json:"abstract"`
}

// Classifier assigns topic labels from a record's title and abstract.
// Implementations must return at least one label.
type Classifier interface {
	Classify(title, abstract string) []string
}

// Build converts merged records into dashboard records sorted by
// (year, title) descending. Years compare as strings, so an empty year sorts
// after every non-empty one.
func Build(records []Record, c Classifier) []DashboardRecord {
	out := make([]DashboardRecord, 0, len(records))
	for _, r := range records {
		out = append(out, toDashboard(r, c))
	}
	SortDashboard(out)
	return out
}

// SortDashboard orders records by (year, title) descending.
func SortDashboard(recs []DashboardRecord) {
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].Year != recs[j].Year {
			return recs[i].Year > recs[j].Year
		}
		return recs[i].Title > recs[j].Title
	})
}

func toDashboard(r Record, c Classifier) DashboardRecord {
	d := DashboardRecord{
		Title:       r.Title,
		Year:        r.Year,
		Journal:     r.Journal,
		FirstAuthor: r.FirstAuthor,
		AuthorCount: r.AuthorCount,
		DOI:         r.DOI,
		PMID:        r.PMID,
		Abstract:    r.Abstract,
		Topics:      c.Classify(r.Title, r.Abstract),
	}
	if len(r.Authors) > 0 {
		d.Authors = strings.Join(r.Authors, ", ")
		d.FirstAuthor = r.Authors[0]
		d.AuthorCount = len(r.Authors)
	}
	return d
}
