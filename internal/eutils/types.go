// Package eutils provides the PubMed side of the collector: ESearch for
// identifiers and batched EFetch parsed into publication records.
package eutils

// SearchResult represents the result of an ESearch query.
type SearchResult struct {
	Count            int      `json:"count"`
	IDs              []string `json:"ids"`
	QueryTranslation string   `json:"query_translation"`
}
