package google

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func clearCredentials(t *testing.T) {
	t.Helper()
	for _, k := range []string{"GOOGLE_SERVICE_ACCOUNT_JSON", "GOOGLE_SERVICE_ACCOUNT_FILE", "GOOGLE_APPLICATION_CREDENTIALS"} {
		t.Setenv(k, "")
	}
}

func TestNewFromEnv_MissingSpreadsheetID(t *testing.T) {
	_, err := NewFromEnv(context.Background(), "  ")
	if !errors.Is(err, ErrMissingSpreadsheetID) {
		t.Fatalf("NewFromEnv() error = %v, want ErrMissingSpreadsheetID", err)
	}
}

func TestNewFromEnv_MissingCredentials(t *testing.T) {
	clearCredentials(t)
	_, err := NewFromEnv(context.Background(), "sheet-id")
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("NewFromEnv() error = %v", err)
	}
}

func TestNewFromEnv_UnreadableCredentialsFile(t *testing.T) {
	clearCredentials(t)
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", filepath.Join(t.TempDir(), "nope.json"))
	_, err := NewFromEnv(context.Background(), "sheet-id")
	if err == nil || !strings.Contains(err.Error(), "read service account file") {
		t.Fatalf("NewFromEnv() error = %v", err)
	}
}

func TestServiceAccountCredentialsPrecedence(t *testing.T) {
	clearCredentials(t)
	file := filepath.Join(t.TempDir(), "sa.json")
	if err := os.WriteFile(file, []byte(`{"from":"file"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", file)

	got, err := serviceAccountCredentials()
	if err != nil || string(got) != `{"from":"file"}` {
		t.Fatalf("serviceAccountCredentials() = %s, %v", got, err)
	}

	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", `{"from":"env"}`)
	got, err = serviceAccountCredentials()
	if err != nil || string(got) != `{"from":"env"}` {
		t.Fatalf("serviceAccountCredentials() = %s, %v", got, err)
	}
}

func TestReadRangeWithoutService(t *testing.T) {
	c := &Client{spreadsheetID: "x"}
	if _, err := c.ReadRange(context.Background(), "a!A:B"); err == nil {
		t.Fatal("expected error without service")
	}
}
