package format

import "testing"

func TestMoeda(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{-1234.5, "(R$ 1.234,50)"},
		{0, "R$ 0,00"},
		{1234567.891, "R$ 1.234.567,89"},
		{999.999, "R$ 1.000,00"},
		{12, "R$ 12,00"},
		{-0.001, "R$ 0,00"},
	}
	for _, tc := range cases {
		if got := Moeda(tc.in); got != tc.want {
			t.Errorf("Moeda(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
	if got := MoedaPtr(nil); got != "R$ 0,00" {
		t.Fatalf("MoedaPtr(nil) = %q", got)
	}
}

func TestMoedaCor(t *testing.T) {
	if got := MoedaCor(-10, HTMLColor); got != `<span style="color: red;">(R$ 10,00)</span>` {
		t.Fatalf("negative html = %q", got)
	}
	if got := MoedaCor(10, HTMLColor); got != `<span style="color: green;">R$ 10,00</span>` {
		t.Fatalf("positive html = %q", got)
	}
	if got := MoedaCor(0, HTMLColor); got != "R$ 0,00" {
		t.Fatalf("zero html = %q", got)
	}
	if got := MoedaCor(-1, TerminalColor); got != "\033[91m(R$ 1,00)\033[0m" {
		t.Fatalf("negative terminal = %q", got)
	}
	v := 5.0
	if got := MoedaComPrefixo(&v, "", NoColor); got != "5,00" {
		t.Fatalf("no prefix = %q", got)
	}
}

func TestPercentual(t *testing.T) {
	cases := []struct {
		in    float64
		casas int
		want  string
	}{
		{0.25, 2, "+25,00%"},
		{-0.1234, 2, "-12,34%"},
		{0, 2, "0,00%"},
		{0.5, 0, "+50%"},
		{12.5, 1, "+1.250,0%"},
	}
	for _, tc := range cases {
		if got := Percentual(tc.in, tc.casas); got != tc.want {
			t.Errorf("Percentual(%v, %d) = %q, want %q", tc.in, tc.casas, got, tc.want)
		}
	}
	if got := PercentualCor(nil, 2, HTMLColor); got != "0,00%" {
		t.Fatalf("nil percent = %q", got)
	}
	if got := PercentualPontos(25, 1); got != "+25,0%" {
		t.Fatalf("PercentualPontos = %q", got)
	}
}

func TestNumero(t *testing.T) {
	if got := Numero(1234567, 0); got != "1.234.567" {
		t.Fatalf("Numero = %q", got)
	}
	if got := Numero(-1234.567, 2); got != "-1.234,57" {
		t.Fatalf("Numero negative = %q", got)
	}
}

func TestNumeroTruncatesWithoutDecimals(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{1234.9, "1.234"},
		{0.99, "0"},
		{-1234.9, "-1.234"},
		{-0.7, "0"},
	}
	for _, tt := range tests {
		if got := Numero(tt.in, 0); got != tt.want {
			t.Errorf("Numero(%v, 0) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if got := Percentual(0.129, 0); got != "+13%" {
		t.Errorf("Percentual still rounds: got %q", got)
	}
}

func TestMoedaOuTraco(t *testing.T) {
	if MoedaOuTraco(0) != "-" || MoedaOuTraco(1) != "R$ 1,00" {
		t.Fatalf("MoedaOuTraco mismatch")
	}
}

func TestResumoFinanceiro(t *testing.T) {
	got := ResumoFinanceiro(map[string]any{
		"receita_total":       1000.0,
		"percentual_execucao": 0.5,
		"crescimento":         -0.1,
		"nome":                "UG 1",
		"ignorado":            []int{1},
	})
	want := map[string]string{
		"receita_total":       "R$ 1.000,00",
		"percentual_execucao": "+50,00%",
		"crescimento":         "-10,00%",
		"nome":                "UG 1",
	}
	if len(got) != len(want) {
		t.Fatalf("unexpected keys: %v", got)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %q, want %q", k, got[k], v)
		}
	}
}
