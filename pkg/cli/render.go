package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jinzhu/inflection"
	"gopkg.in/yaml.v3"

	"github.com/ekaya-inc/ekaya-dbproxy/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-dbproxy/pkg/logging"
	"github.com/ekaya-inc/ekaya-dbproxy/pkg/models"
)

// Output formats accepted by -o.
const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

var outputFormats = []string{formatTable, formatJSON, formatYAML}

func validateFormat(format string) error {
	for _, f := range outputFormats {
		if f == format {
			return nil
		}
	}
	return fmt.Errorf("unknown output format %q (want one of %v)", format, outputFormats)
}

// renderStructured writes v as indented JSON or YAML. YAML output goes
// through the JSON encoding so both formats share field names and order.
func renderStructured(w io.Writer, format string, v any) error {
	if format != formatYAML {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return err
	}
	blockStyle(&doc)

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return err
	}
	return enc.Close()
}

// blockStyle clears the flow style a JSON document parses with. The encoder
// re-quotes strings that would otherwise read back as another type.
func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		blockStyle(c)
	}
}

// countNoun returns "1 row", "2 rows".
func countNoun(n int, noun string) string {
	if n != 1 {
		noun = inflection.Plural(noun)
	}
	return fmt.Sprintf("%s %s", humanize.Comma(int64(n)), noun)
}

// recordColumns returns the union of keys across records. Identifier
// columns lead; the rest are alphabetical.
func recordColumns(records []datasource.Record) []string {
	seen := make(map[string]struct{})
	for _, rec := range records {
		for k := range rec {
			seen[k] = struct{}{}
		}
	}

	cols := make([]string, 0, len(seen))
	for k := range seen {
		cols = append(cols, k)
	}
	sort.Slice(cols, func(i, j int) bool {
		ri, rj := columnRank(cols[i]), columnRank(cols[j])
		if ri != rj {
			return ri < rj
		}
		return cols[i] < cols[j]
	})
	return cols
}

func columnRank(col string) int {
	switch col {
	case "_id":
		return 0
	case "id":
		return 1
	default:
		return 2
	}
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case time.Time:
		return val.Format(time.RFC3339)
	case []byte:
		return string(val)
	case map[string]any, []any:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(b)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// renderRecords writes query results in format.
func renderRecords(w io.Writer, format string, records []datasource.Record) error {
	if format != formatTable {
		return renderStructured(w, format, records)
	}

	if len(records) == 0 {
		_, _ = fmt.Fprintf(w, "(%s)\n", countNoun(0, "row"))
		return nil
	}

	cols := recordColumns(records)
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	header := make(table.Row, len(cols))
	for i, col := range cols {
		header[i] = col
	}
	t.AppendHeader(header)

	for _, rec := range records {
		row := make(table.Row, len(cols))
		for i, col := range cols {
			v, ok := rec[col]
			if !ok {
				row[i] = ""
				continue
			}
			row[i] = formatValue(v)
		}
		t.AppendRow(row)
	}

	t.Render()
	_, _ = fmt.Fprintf(w, "(%s)\n", countNoun(len(records), "row"))
	return nil
}

// renderProfiles writes the profile list. Connection URLs have their
// passwords redacted in table output.
func renderProfiles(w io.Writer, format string, profiles []models.DatabaseProfile, activeID string) error {
	if format != formatTable {
		return renderStructured(w, format, map[string]any{
			"profiles":        profiles,
			"activeProfileId": activeID,
		})
	}

	if len(profiles) == 0 {
		_, _ = fmt.Fprintln(w, "No profiles saved. Add one with: ekaya-dbproxy profiles add NAME URL")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"", "ID", "Name", "Type", "URL", "Last tested", "Status"})

	for _, p := range profiles {
		marker := ""
		if p.ID == activeID {
			marker = "*"
		}
		t.AppendRow(table.Row{
			marker,
			p.ID,
			p.Name,
			p.Type,
			logging.SanitizeConnectionString(p.DatabaseURL),
			lastTested(p.LastTested),
			connectionStatus(p.IsConnected),
		})
	}

	t.Render()
	_, _ = fmt.Fprintf(w, "(%s)\n", countNoun(len(profiles), "profile"))
	return nil
}

func lastTested(at *time.Time) string {
	if at == nil {
		return "never"
	}
	return humanize.Time(*at)
}

func connectionStatus(connected *bool) string {
	switch {
	case connected == nil:
		return "-"
	case *connected:
		return "connected"
	default:
		return "failed"
	}
}
