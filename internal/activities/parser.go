package activities

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/querypilot/query-core/internal/schemastore"
)

var (
	codeFenceRe = regexp.MustCompile("(?s)```(?:json|sql)?\\s*(.*?)```")
	jsonObjRe   = regexp.MustCompile(`(?s)\{.*\}`)
	selectRe    = regexp.MustCompile(`(?is)\b(SELECT|WITH)\b.*`)
)

// parseJSON parses a model response into out: strict first, then with code
// fences stripped, then the first {...} block found anywhere in the text.
func parseJSON(raw string, out any) error {
	raw = strings.TrimSpace(raw)
	if err := json.Unmarshal([]byte(raw), out); err == nil {
		return nil
	}
	if m := codeFenceRe.FindStringSubmatch(raw); m != nil {
		if err := json.Unmarshal([]byte(strings.TrimSpace(m[1])), out); err == nil {
			return nil
		}
	}
	if obj := jsonObjRe.FindString(raw); obj != "" {
		if err := json.Unmarshal([]byte(obj), out); err == nil {
			return nil
		}
	}
	return fmt.Errorf("no valid JSON object in response")
}

// extractSQL pulls a bare SQL statement out of a non-JSON response.
func extractSQL(raw string) string {
	raw = strings.TrimSpace(raw)
	if m := codeFenceRe.FindStringSubmatch(raw); m != nil {
		raw = strings.TrimSpace(m[1])
	}
	stmt := selectRe.FindString(raw)
	return strings.TrimSpace(strings.TrimSuffix(stmt, ";"))
}

// renderCatalog serializes the overview blob for the selection prompt. Map
// keys marshal sorted, so the rendering is stable across calls.
func renderCatalog(c schemastore.Catalog) (string, error) {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
