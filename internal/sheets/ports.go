// Package sheets defines the spreadsheet ports used by the ETL.
package sheets

import (
	"context"
	"strings"
)

// RangeReader returns the cell values of an A1 range, one string slice per
// row. Rows may be shorter than the header when trailing cells are empty.
type RangeReader interface {
	ReadRange(ctx context.Context, rng string) ([][]string, error)
}

// SheetName returns the tab part of an A1 range ("unidades_gestoras!A:B"
// gives "unidades_gestoras"). Quotes around the tab name are removed.
func SheetName(rng string) string {
	name := rng
	if i := strings.LastIndex(rng, "!"); i >= 0 {
		name = rng[:i]
	}
	return strings.Trim(strings.TrimSpace(name), "'")
}
