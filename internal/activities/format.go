package activities

import (
	"fmt"
	"sort"
	"strings"

	"github.com/querypilot/query-core/internal/message"
)

// FormatResults renders rows for the evaluation and NL-response prompts.
// A single row with a single column becomes a bare value; everything else a
// Markdown table. The second return is the format kind ("value", "table" or
// "empty").
func FormatResults(rows []message.Row) (string, string) {
	if len(rows) == 0 {
		return "(no rows)", "empty"
	}

	cols := columnOrder(rows[0])
	if len(rows) == 1 && len(cols) == 1 {
		return formatValue(rows[0][cols[0]]), "value"
	}

	var b strings.Builder
	b.WriteString("| " + strings.Join(cols, " | ") + " |\n")
	b.WriteString("|" + strings.Repeat(" --- |", len(cols)) + "\n")
	for _, row := range rows {
		cells := make([]string, len(cols))
		for i, c := range cols {
			cells[i] = formatValue(row[c])
		}
		b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
	return strings.TrimRight(b.String(), "\n"), "table"
}

// columnOrder returns the row's keys sorted for a stable rendering; the
// driver-level column order is not preserved in the map representation.
func columnOrder(row message.Row) []string {
	cols := make([]string, 0, len(row))
	for c := range row {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case string:
		return x
	case float64:
		if x == float64(int64(x)) {
			return fmt.Sprintf("%d", int64(x))
		}
		return fmt.Sprintf("%g", x)
	default:
		return fmt.Sprintf("%v", x)
	}
}
