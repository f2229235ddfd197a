package rhscache

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// Format selects the encoding used by [StatsRegistry.Export] and
// [Snapshot.Export].
type Format string

const (
	FormatText Format = "text"
	FormatHTML Format = "html"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Formats lists the supported export formats.
var Formats = []Format{FormatText, FormatHTML, FormatJSON, FormatYAML}

// ParseFormat returns the Format named s, case-insensitively.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(s))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}

	return "", fmt.Errorf("unknown format %q", s)
}

var tableHeaders = []string{
	"System", "Eq Hits", "Neg Hits", "Parallel Hits", "Zero Hits", "Misses", "Resets",
}

// Export writes the current stats of r to w.
func (r *StatsRegistry) Export(w io.Writer, f Format) error {
	return r.Snapshot().Export(w, f)
}

// Export writes s to w in format f.
func (s Snapshot) Export(w io.Writer, f Format) error {
	switch f {
	case FormatText:
		return writeText(w, s)
	case FormatHTML:
		return writeHTML(w, s)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q", f)
	}
}

func row(sys SystemStats, format func(uint64) string) []string {
	st := sys.Stats
	return []string{
		sys.Path,
		format(st.EqHits),
		format(st.NegHits),
		format(st.ParHits),
		format(st.ZeroHits),
		format(st.Misses),
		format(st.Resets),
	}
}

func writeText(w io.Writer, s Snapshot) error {
	comma := func(n uint64) string { return humanize.Comma(int64(n)) }

	var (
		headerStyle = lipgloss.NewStyle().Bold(true).Align(lipgloss.Left)
		cellStyle   = lipgloss.NewStyle().Align(lipgloss.Right)
		pathStyle   = lipgloss.NewStyle().Align(lipgloss.Left)
	)

	for i, rep := range s.Reports {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}

		var rows [][]string
		for _, sys := range rep.Systems {
			rows = append(rows, row(sys, comma))
		}

		t := table.New().
			Border(lipgloss.NormalBorder()).
			StyleFunc(func(r, c int) lipgloss.Style {
				switch {
				case r == table.HeaderRow:
					return headerStyle.PaddingLeft(1).PaddingRight(1)
				case c == 0:
					return pathStyle.PaddingLeft(1).PaddingRight(1)
				default:
					return cellStyle.PaddingLeft(1).PaddingRight(1)
				}
			}).
			Headers(tableHeaders...).
			Rows(rows...)

		if _, err := fmt.Fprintf(w, "%s\n%s\n", rep.Dir, t.Render()); err != nil {
			return err
		}
	}

	return nil
}

var htmlReport = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Linear RHS cache stats</title></head>
<body>
{{- range .Reports}}
<h2>{{.Dir}}</h2>
<table border="1">
<thead><tr>{{range $.Headers}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>
{{- range .Systems}}
<tr><td>{{.Path}}</td><td>{{.Stats.EqHits}}</td><td>{{.Stats.NegHits}}</td><td>{{.Stats.ParHits}}</td><td>{{.Stats.ZeroHits}}</td><td>{{.Stats.Misses}}</td><td>{{.Stats.Resets}}</td></tr>
{{- end}}
</tbody>
</table>
{{- end}}
</body>
</html>
`))

func writeHTML(w io.Writer, s Snapshot) error {
	return htmlReport.Execute(w, struct {
		Headers []string
		Reports []Report
	}{tableHeaders, s.Reports})
}
