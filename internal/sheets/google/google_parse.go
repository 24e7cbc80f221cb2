package google

import (
	"fmt"
	"strings"
)

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

// normalizeValues converts the API matrix to strings and drops rows whose
// cells are all blank.
func normalizeValues(values [][]interface{}) [][]string {
	out := make([][]string, 0, len(values))
	for _, row := range values {
		cols := toStrings(row)
		if isBlank(cols) {
			continue
		}
		out = append(out, cols)
	}
	return out
}

func isBlank(row []string) bool {
	for _, c := range row {
		if c != "" {
			return false
		}
	}
	return true
}
