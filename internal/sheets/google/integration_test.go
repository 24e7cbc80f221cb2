//go:build integration

package google

import (
	"context"
	"os"
	"testing"
	"time"

	"orcamento/internal/sheets"
)

// Run with: go test -tags=integration ./internal/sheets/google
func TestIntegration_ReadRange(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	spreadsheetID := os.Getenv("GOOGLE_SPREADSHEET_ID")
	rng := os.Getenv("GOOGLE_SHEET_RANGE")
	if spreadsheetID == "" || rng == "" {
		t.Skip("GOOGLE_SPREADSHEET_ID or GOOGLE_SHEET_RANGE not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := NewFromEnv(ctx, spreadsheetID)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	rows, err := client.ReadRange(ctx, rng)
	if err != nil {
		t.Fatalf("ReadRange() error = %v", err)
	}
	if len(rows) == 0 {
		t.Fatal("expected at least a header row")
	}
	t.Logf("Read %d rows from %s, header %v", len(rows), sheets.SheetName(rng), rows[0])
}
