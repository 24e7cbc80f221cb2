package http

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"orcamento/internal/core"
)

func TestParsePeriodParams(t *testing.T) {
	ref := core.NewPeriodo(2025, 6)
	tests := []struct {
		name    string
		query   url.Values
		wantAno int
		wantMes int
	}{
		{"defaults", url.Values{}, 2025, 6},
		{"explicit", url.Values{"ano": {"2024"}, "mes": {"12"}}, 2024, 12},
		{"malformed falls back", url.Values{"ano": {"dois mil"}, "mes": {"x"}}, 2025, 6},
		{"out of range month", url.Values{"mes": {"13"}}, 2025, 6},
		{"whitespace", url.Values{"ano": {" 2023 "}}, 2023, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParsePeriodParams(tt.query, ref)
			if got.Ano != tt.wantAno || got.Mes != tt.wantMes {
				t.Errorf("ParsePeriodParams() = %+v, want %d/%d", got, tt.wantAno, tt.wantMes)
			}
		})
	}
}

func TestParseBimestreParams(t *testing.T) {
	now := time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name         string
		query        url.Values
		wantAno      int
		wantBimestre core.Bimestre
	}{
		{"defaults to current bimestre", url.Values{}, 2025, 4},
		{"explicit", url.Values{"ano": {"2024"}, "bimestre": {"6"}}, 2024, 6},
		{"invalid bimestre", url.Values{"bimestre": {"7"}}, 2025, 4},
		{"malformed bimestre", url.Values{"bimestre": {"x"}}, 2025, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseBimestreParams(tt.query, now)
			if got.Ano != tt.wantAno || got.Bimestre != tt.wantBimestre {
				t.Errorf("ParseBimestreParams() = %+v", got)
			}
		})
	}
}

func TestParseCOUGAndFiltro(t *testing.T) {
	q := url.Values{"coug": {"13-01 01"}, "filtro": {"tributarias"}}
	if got := ParseCOUG(q); got != "130101" {
		t.Errorf("ParseCOUG() = %q", got)
	}
	if f := ParseFiltro(q); f.Chave != "tributarias" || f.Campo != "cofontereceita" {
		t.Errorf("ParseFiltro() = %+v", f)
	}
	if f := ParseFiltro(url.Values{"filtro": {"inexistente"}}); f.Chave != "" {
		t.Errorf("unknown filter should be ignored, got %+v", f)
	}
}

func TestAnosDisponiveis(t *testing.T) {
	got := AnosDisponiveis(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	if len(got) != 5 || got[0] != 2025 || got[4] != 2021 {
		t.Errorf("AnosDisponiveis() = %v", got)
	}
}

func TestRequestBodyParser(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		contentType string
		key         string
		want        string
		wantJSON    bool
	}{
		{"form", "query=SELECT+1", "application/x-www-form-urlencoded", "query", "SELECT 1", false},
		{"json", `{"query":"SELECT 2"}`, "application/json", "query", "SELECT 2", true},
		{"json number", `{"limite":10}`, "application/json", "limite", "10", true},
		{"control chars removed", "query=SELECT%001", "application/x-www-form-urlencoded", "query", "SELECT1", false},
		{"empty", "", "", "query", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			p := NewRequestBodyParser(req)
			if err := p.Parse(); err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if got := p.Get(tt.key); got != tt.want {
				t.Errorf("Get(%q) = %q, want %q", tt.key, got, tt.want)
			}
			if p.IsJSON() != tt.wantJSON {
				t.Errorf("IsJSON() = %v", p.IsJSON())
			}
		})
	}
}

func TestRequestBodyParserInvalidJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"query":`))
	p := NewRequestBodyParser(req)
	if err := p.Parse(); err == nil {
		t.Error("expected error for truncated JSON")
	}
	if err := p.Parse(); err == nil {
		t.Error("second Parse() should return the same error")
	}
}

func TestRequireMethod(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if RequireMethod(req, http.MethodGet) != nil {
		t.Error("GET should be allowed")
	}
	resp := RequireMethod(req, http.MethodPost)
	if resp == nil {
		t.Fatal("GET should be rejected for POST-only handler")
	}
	w := httptest.NewRecorder()
	resp.Write(w)
	if w.Code != http.StatusMethodNotAllowed || w.Header().Get("Allow") != http.MethodPost {
		t.Errorf("got %d Allow=%q", w.Code, w.Header().Get("Allow"))
	}
}

func TestSanitizeInput(t *testing.T) {
	if got := sanitizeInput("  a\x00b\tc\n "); got != "ab\tc" {
		t.Errorf("sanitizeInput() = %q", got)
	}
}
