package output

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/henrybloomingdale/scapis-dashboard/internal/pubs"
)

// WriteRIS exports dashboard records to RIS format for citation managers.
// Topic labels become KW tags.
func WriteRIS(path string, records []pubs.DashboardRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating RIS file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for i, r := range records {
		writeRISTag(w, "TY", "JOUR")
		writeRISTag(w, "TI", r.Title)

		authors := splitAuthors(r.Authors)
		if len(authors) == 0 && r.FirstAuthor != "" {
			authors = []string{r.FirstAuthor}
		}
		for _, au := range authors {
			writeRISTag(w, "AU", risAuthor(au))
		}

		writeRISTag(w, "PY", r.Year)
		writeRISTag(w, "JO", r.Journal)
		writeRISTag(w, "DO", r.DOI)
		writeRISTag(w, "AB", r.Abstract)
		for _, t := range r.Topics {
			writeRISTag(w, "KW", t)
		}
		if r.PMID != "" {
			writeRISTag(w, "ID", "PMID:"+r.PMID)
			writeRISTag(w, "UR", "https://pubmed.ncbi.nlm.nih.gov/"+r.PMID+"/")
		} else if strings.HasPrefix(r.DOI, "http") {
			writeRISTag(w, "UR", r.DOI)
		}
		writeRISTag(w, "ER", "")

		if i < len(records)-1 {
			if _, err := w.WriteString("\n"); err != nil {
				return fmt.Errorf("writing RIS separator: %w", err)
			}
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("writing RIS file: %w", err)
	}
	return nil
}

func writeRISTag(w *bufio.Writer, tag, value string) {
	if tag == "" {
		return
	}
	if tag == "ER" {
		_, _ = w.WriteString("ER  -\n")
		return
	}
	if strings.TrimSpace(value) == "" {
		return
	}
	_, _ = w.WriteString(tag + "  - " + sanitizeRISValue(value) + "\n")
}

func sanitizeRISValue(v string) string {
	v = strings.ReplaceAll(v, "\r\n", " ")
	v = strings.ReplaceAll(v, "\n", " ")
	v = strings.ReplaceAll(v, "\r", " ")
	return strings.TrimSpace(v)
}

// splitAuthors undoes the ", " join of the dashboard author string.
func splitAuthors(s string) []string {
	var out []string
	for _, a := range strings.Split(s, ", ") {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

// risAuthor turns "Bergström G" into "Bergström, G". Names without initials
// are kept as they are.
func risAuthor(name string) string {
	name = strings.TrimSpace(name)
	i := strings.LastIndex(name, " ")
	if i <= 0 {
		return name
	}
	last, initials := name[:i], name[i+1:]
	if strings.ToUpper(initials) != initials {
		return name
	}
	return last + ", " + initials
}
