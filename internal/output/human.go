package output

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// --- Styles ---

var (
	cyan       = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	bold       = lipgloss.NewStyle().Bold(true)
	dim        = lipgloss.NewStyle().Faint(true)
	green      = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	labelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("4"))
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("6")).
			Padding(0, 1)
)

// truncate cuts a string to maxLen characters, appending "…" if truncated.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-1]) + "…"
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Headers(headers...).
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("8"))).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("4"))
			}
			return lipgloss.NewStyle()
		})
}

func percent(n, total int) string {
	if total == 0 {
		return "0%"
	}
	return strconv.Itoa(n*100/total) + "%"
}

func formatStatsHuman(w io.Writer, s Stats) error {
	if s.Total == 0 {
		fmt.Fprintln(w, "📚 No publications collected.")
		return nil
	}

	card := bold.Render(fmt.Sprintf("📚 %d SCAPIS publications", s.Total)) + "\n" +
		cyan.Render(s.yearRange())
	fmt.Fprintln(w, boxStyle.Render(card))
	fmt.Fprintln(w)

	fmt.Fprintf(w, "  %s %d/%d %s\n", labelStyle.Render("Abstracts:"),
		s.WithAbstract, s.Total, dim.Render("("+percent(s.WithAbstract, s.Total)+")"))
	fmt.Fprintf(w, "  %s %d/%d\n", labelStyle.Render("DOI:"), s.WithDOI, s.Total)
	fmt.Fprintf(w, "  %s %d/%d\n", labelStyle.Render("PMID:"), s.WithPMID, s.Total)
	fmt.Fprintln(w)

	if len(s.Topics) > 0 {
		t := newTable("Topic", "Publications", "Share")
		for _, c := range s.Topics {
			t.Row(green.Render(c.Label), strconv.Itoa(c.Count), percent(c.Count, s.Total))
		}
		fmt.Fprintln(w, t.Render())
		fmt.Fprintln(w)
	}

	if len(s.Journals) > 0 {
		t := newTable("#", "Journal", "Publications")
		for i, c := range s.Journals {
			t.Row(strconv.Itoa(i+1), truncate(c.Label, 50), strconv.Itoa(c.Count))
		}
		fmt.Fprintln(w, t.Render())
	}
	return nil
}
