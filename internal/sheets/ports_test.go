package sheets

import "testing"

func TestSheetName(t *testing.T) {
	tests := []struct {
		rng  string
		want string
	}{
		{"unidades_gestoras!A:B", "unidades_gestoras"},
		{"'fontes'!A1:B200", "fontes"},
		{"alineas", "alineas"},
		{" contas !A:Z", "contas"},
	}
	for _, tt := range tests {
		if got := SheetName(tt.rng); got != tt.want {
			t.Errorf("SheetName(%q) = %q, want %q", tt.rng, got, tt.want)
		}
	}
}
