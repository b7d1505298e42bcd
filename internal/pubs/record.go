// Package pubs holds the publication model shared by the collector stages:
// the raw per-source record, the merge that deduplicates the sources, and the
// dashboard shape written to disk.
package pubs

import "strings"

// Source names the provider a record came from.
type Source string

const (
	SourcePubMed Source = "pubmed"
	SourceSCAPIS Source = "scapis"
)

// Record is one publication as a single source describes it.
type Record struct {
	PMID          string
	Title         string
	Journal       string
	JournalAbbrev string
	Year          string
	Authors       []string // "LastName Initials"
	DOI           string
	Keywords      []string
	MeSHTerms     []string
	Abstract      string
	Source        Source

	// FirstAuthor and AuthorCount are used only when Authors is empty.
	// The secondary source lists a first author but no author list.
	FirstAuthor string
	AuthorCount int
}

// IdentityKey returns the deduplication key: the normalized DOI when present,
// otherwise the normalized title. Empty when the record has neither.
func IdentityKey(r Record) string {
	if k := normalize(r.DOI); k != "" {
		return k
	}
	return normalize(r.Title)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
