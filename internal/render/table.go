package render

import (
	"fmt"
	"io"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/gitsleuth/gitsleuth/internal/attribution"
	"github.com/gitsleuth/gitsleuth/internal/identity"
	"github.com/gitsleuth/gitsleuth/internal/stats"
)

// shortHeadLen truncates the head hash in the summary line.
const shortHeadLen = 8

var headingColor = color.New(color.Bold, color.FgCyan)

var warningColor = color.New(color.FgYellow)

// WriteTable renders the full report as per-contributor language tables,
// followed by the excluded-file list when any file was skipped.
func WriteTable(w io.Writer, r *Report) error {
	if err := writeSummaryLine(w, r); err != nil {
		return err
	}

	for i := range r.Contributors {
		if err := writeContributorSection(w, &r.Contributors[i]); err != nil {
			return err
		}
	}

	return writeDiagnostics(w, r.Diagnostics)
}

// WriteContributorsTable renders the contributor ranking with line shares.
func WriteContributorsTable(w io.Writer, r *Report) error {
	tbl := newTable(4)
	tbl.AppendHeader(table.Row{"#", "Contributor", "Key", "Lines", "Share"})

	for i, c := range r.Contributors {
		tbl.AppendRow(table.Row{
			i + 1, c.Name, string(c.Key),
			humanize.Comma(c.TotalLines),
			sharePercent(c.TotalLines, r.TotalLines),
		})
	}

	tbl.AppendFooter(table.Row{"", "Total", "", humanize.Comma(r.TotalLines), ""})

	_, err := fmt.Fprintln(w, tbl.Render())

	return err
}

// WriteChurnTable renders per-contributor insertions and deletions,
// alphabetical by display name.
func WriteChurnTable(w io.Writer, r *Report) error {
	rows := make([]Contributor, len(r.Contributors))
	copy(rows, r.Contributors)
	sort.Slice(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })

	tbl := newTable(2, 3)
	tbl.AppendHeader(table.Row{"Contributor", "Insertions", "Deletions"})

	var ins, del int64

	for _, c := range rows {
		ins += c.Churn.Insertions
		del += c.Churn.Deletions

		tbl.AppendRow(table.Row{
			c.Name,
			humanize.Comma(c.Churn.Insertions),
			humanize.Comma(c.Churn.Deletions),
		})
	}

	tbl.AppendFooter(table.Row{"Total", humanize.Comma(ins), humanize.Comma(del)})

	_, err := fmt.Fprintln(w, tbl.Render())

	return err
}

// WriteBlameTable renders one file's per-line attribution. names maps
// contributor keys to display names; unknown keys print as-is.
func WriteBlameTable(w io.Writer, attr *attribution.FileAttribution, names map[identity.Key]string) error {
	if _, err := headingColor.Fprintf(w, "%s (%s, %d lines)\n", attr.Path, attr.Language, len(attr.Lines)); err != nil {
		return err
	}

	tbl := newTable(1)
	tbl.AppendHeader(table.Row{"Line", "Commit", "Contributor", "Class"})

	for i, line := range attr.Lines {
		name := names[line.Contributor]
		if name == "" {
			name = string(line.Contributor)
		}

		tbl.AppendRow(table.Row{i + 1, line.Commit.Short(), name, line.Class.String()})
	}

	_, err := fmt.Fprintln(w, tbl.Render())

	return err
}

func writeSummaryLine(w io.Writer, r *Report) error {
	_, err := fmt.Fprintf(w, "Head %s   Files %s   Lines %s   Contributors %d\n\n",
		shortHead(r.Head),
		humanize.Comma(int64(r.Files)),
		humanize.Comma(r.TotalLines),
		len(r.Contributors))

	return err
}

func writeContributorSection(w io.Writer, c *Contributor) error {
	heading := c.Name
	if heading != string(c.Key) {
		heading = fmt.Sprintf("%s <%s>", c.Name, c.Key)
	}

	if _, err := headingColor.Fprintln(w, heading); err != nil {
		return err
	}

	tbl := newTable(2, 3, 4, 5)
	tbl.AppendHeader(table.Row{"Language", "Lines", "Code", "Comments", "Blanks"})

	var total stats.ClassCounts

	for _, lang := range languagesByName(c.Languages) {
		counts := c.Languages[lang]
		total.Merge(counts)

		tbl.AppendRow(table.Row{
			string(lang),
			humanize.Comma(counts.Total()),
			humanize.Comma(counts.Code),
			humanize.Comma(counts.Comment),
			humanize.Comma(counts.Blank),
		})
	}

	tbl.AppendFooter(table.Row{
		"Total",
		humanize.Comma(total.Total()),
		humanize.Comma(total.Code),
		humanize.Comma(total.Comment),
		humanize.Comma(total.Blank),
	})

	if _, err := fmt.Fprintln(w, tbl.Render()); err != nil {
		return err
	}

	_, err := fmt.Fprintln(w)

	return err
}

func writeDiagnostics(w io.Writer, diags []attribution.Diagnostic) error {
	if len(diags) == 0 {
		return nil
	}

	if _, err := warningColor.Fprintf(w, "Excluded files: %d\n", len(diags)); err != nil {
		return err
	}

	tbl := newTable()
	tbl.AppendHeader(table.Row{"Path", "Reason", "Detail"})

	for _, d := range diags {
		tbl.AppendRow(table.Row{d.Path, d.Reason, d.Detail})
	}

	_, err := fmt.Fprintln(w, tbl.Render())

	return err
}

// newTable builds a light-style table with the given columns right-aligned.
func newTable(rightCols ...int) table.Writer {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)

	if len(rightCols) > 0 {
		cfgs := make([]table.ColumnConfig, len(rightCols))
		for i, col := range rightCols {
			cfgs[i] = table.ColumnConfig{
				Number:      col,
				Align:       text.AlignRight,
				AlignFooter: text.AlignRight,
			}
		}

		tbl.SetColumnConfigs(cfgs)
	}

	return tbl
}

func sharePercent(lines, total int64) string {
	if total <= 0 {
		return "0.0%"
	}

	return fmt.Sprintf("%.1f%%", float64(lines)*100/float64(total))
}

func shortHead(head string) string {
	if len(head) <= shortHeadLen {
		return head
	}

	return head[:shortHeadLen]
}
