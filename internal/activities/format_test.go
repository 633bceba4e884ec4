package activities

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/querypilot/query-core/internal/message"
)

func TestFormatResultsEmpty(t *testing.T) {
	out, kind := FormatResults(nil)
	assert.Equal(t, "(no rows)", out)
	assert.Equal(t, "empty", kind)
}

func TestFormatResultsSingleValue(t *testing.T) {
	out, kind := FormatResults([]message.Row{{"COUNT(*)": float64(5)}})
	assert.Equal(t, "5", out)
	assert.Equal(t, "value", kind)
}

func TestFormatResultsTable(t *testing.T) {
	rows := []message.Row{
		{"name": "John", "age": float64(30)},
		{"name": "Mary", "age": float64(25)},
	}
	out, kind := FormatResults(rows)
	assert.Equal(t, "table", kind)
	assert.Contains(t, out, "| age | name |")
	assert.Contains(t, out, "| 30 | John |")
	assert.Contains(t, out, "| 25 | Mary |")
}

func TestFormatValueVariants(t *testing.T) {
	out, _ := FormatResults([]message.Row{{"v": nil}})
	assert.Equal(t, "NULL", out)

	out, _ = FormatResults([]message.Row{{"v": 2.5}})
	assert.Equal(t, "2.5", out)

	out, _ = FormatResults([]message.Row{{"v": "text"}})
	assert.Equal(t, "text", out)
}
