package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"orcamento/internal/export"
	"orcamento/internal/metrics"
	"orcamento/internal/reports"
	"orcamento/internal/storage"
	"orcamento/internal/storage/storagetest"
	"orcamento/internal/visualizador"
)

const contaCorrente = "11125001000000500"

func newTestServer(t *testing.T, rows ...storagetest.Row) *Server {
	t.Helper()
	repo := storagetest.NewSQLite(t)
	storagetest.Insert(t, repo, storage.SchemaSaldos, "fato_saldos", rows...)
	srv := NewServer(":0", Deps{
		Reports:            reports.NewService(repo, nil, time.Minute),
		Browser:            visualizador.New(repo, nil),
		Metrics:            metrics.New(),
		RateLimitPerMinute: 1000,
	})
	t.Cleanup(func() { srv.Shutdown(context.Background()) })
	return srv
}

func serve(srv *Server, method, target string, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", rr.Body.String(), err)
	}
	return out
}

func TestRootRedirects(t *testing.T) {
	srv := newTestServer(t)
	rr := serve(srv, http.MethodGet, "/", "")
	if rr.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rr.Code)
	}
	if loc := rr.Header().Get("Location"); loc != "/relatorios/" {
		t.Errorf("Location = %q", loc)
	}
}

func TestIndexHealthAndReady(t *testing.T) {
	srv := newTestServer(t)
	if srv.templates == nil {
		t.Fatal("templates not loaded")
	}

	rr := serve(srv, http.MethodGet, "/relatorios/", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("index status = %d: %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), "Relatórios Orçamentários") {
		t.Error("index body missing heading")
	}
	if rr.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("security headers not applied")
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("request id header missing")
	}

	for _, path := range []string{"/health", "/ready"} {
		rr := serve(srv, http.MethodGet, path, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status = %d: %s", path, rr.Code, rr.Body.String())
		}
		body := decodeJSON(t, rr)
		if _, ok := body["status"]; !ok {
			t.Errorf("%s body missing status: %v", path, body)
		}
	}
}

func TestBalancoPage(t *testing.T) {
	srv := newTestServer(t,
		storagetest.Saldo(2025, 6, "621200000", "130101", contaCorrente, 1000),
		storagetest.Saldo(2024, 6, "621200000", "130101", contaCorrente, 800),
	)

	rr := serve(srv, http.MethodGet, "/relatorios/balanco-orcamentario-receita?ano=2025&mes=6", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}
	body := rr.Body.String()
	for _, want := range []string{"Balanço Orçamentário da Receita", "TOTAL GERAL", "botao-lancamentos", "data-grafico"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
}

func TestBalancoEmptyShowsNoData(t *testing.T) {
	srv := newTestServer(t)
	rr := serve(srv, http.MethodGet, "/relatorios/balanco-orcamentario-receita?ano=2025&mes=6", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "NENHUM DADO ENCONTRADO") {
		t.Error("expected empty-state message")
	}
}

func TestBalancoExcel(t *testing.T) {
	srv := newTestServer(t,
		storagetest.Saldo(2025, 6, "621200000", "130101", contaCorrente, 1000),
	)
	rr := serve(srv, http.MethodGet, "/relatorios/balanco-orcamentario-receita?ano=2025&mes=6&formato=excel", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != export.ContentTypeXLSX {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, "attachment") || !strings.Contains(cd, ".xlsx") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if !strings.HasPrefix(rr.Body.String(), "PK") {
		t.Error("body is not a zip container")
	}
}

func TestBalancoHTMLDownload(t *testing.T) {
	srv := newTestServer(t,
		storagetest.Saldo(2025, 6, "621200000", "130101", contaCorrente, 1000),
	)
	rr := serve(srv, http.MethodGet, "/relatorios/download-html/balanco_orcamentario?ano=2025&mes=6", "")
	if rr.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rr.Code)
	}
	loc, err := url.Parse(rr.Header().Get("Location"))
	if err != nil {
		t.Fatal(err)
	}
	if loc.Path != "/relatorios/balanco-orcamentario-receita" || loc.Query().Get("formato") != "html_download" {
		t.Fatalf("Location = %s", loc)
	}

	rr = serve(srv, http.MethodGet, loc.String(), "")
	if rr.Code != http.StatusOK {
		t.Fatalf("download status = %d: %s", rr.Code, rr.Body.String())
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, ".html") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if strings.Contains(rr.Body.String(), "<script") {
		t.Error("static download should not carry scripts")
	}
}

func TestDownloadHTMLRejectsUnknownTipo(t *testing.T) {
	srv := newTestServer(t)
	rr := serve(srv, http.MethodGet, "/relatorios/download-html/qualquer", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	if got := decodeJSON(t, rr)["erro"]; got != "Tipo de relatório inválido" {
		t.Errorf("erro = %v", got)
	}
}

func TestAPILancamentos(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name   string
		target string
		status int
	}{
		{"missing period", "/relatorios/api/lancamentos", http.StatusBadRequest},
		{"missing alinea", "/relatorios/api/lancamentos-receita-fonte?ano=2025&mes=6&coug=130101", http.StatusBadRequest},
		{"valid empty", "/relatorios/api/lancamentos?ano=2025&mes=6&valor_relatorio=10.5", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serve(srv, http.MethodGet, tt.target, "")
			if rr.Code != tt.status {
				t.Fatalf("status = %d, want %d: %s", rr.Code, tt.status, rr.Body.String())
			}
			if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
				t.Errorf("Content-Type = %q", ct)
			}
			body := decodeJSON(t, rr)
			if tt.status != http.StatusOK {
				if body["erro"] == nil {
					t.Errorf("missing erro field: %v", body)
				}
				return
			}
			if body["valor_relatorio"] != 10.5 {
				t.Errorf("valor_relatorio = %v", body["valor_relatorio"])
			}
		})
	}
}

func TestReceitaFonteInvalidTipo(t *testing.T) {
	srv := newTestServer(t)

	rr := serve(srv, http.MethodGet, "/relatorios/api/relatorio-receita-fonte?tipo=outro", "")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("api status = %d, want 400", rr.Code)
	}
	rr = serve(srv, http.MethodGet, "/relatorios/receita-fonte?tipo=outro", "")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("page status = %d, want 400", rr.Code)
	}
}

func TestReceitaFontePage(t *testing.T) {
	srv := newTestServer(t,
		storagetest.Saldo(2025, 6, "621200000", "130101", contaCorrente, 1000),
	)
	rr := serve(srv, http.MethodGet, "/relatorios/receita-fonte?tipo=fonte&ano=2025&mes=6", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), "tabela-expansivel") {
		t.Error("expected the expandable table")
	}
}

func TestRREOPages(t *testing.T) {
	srv := newTestServer(t)
	for _, path := range []string{"/rreo/anexo2", "/rreo/balanco-intra", "/rreo/despesa-funcional-intra"} {
		t.Run(path, func(t *testing.T) {
			rr := serve(srv, http.MethodGet, path+"?ano=2025&bimestre=3", "")
			if rr.Code != http.StatusOK {
				t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
			}
			rr = serve(srv, http.MethodGet, path+"?ano=2025&bimestre=3&formato=json", "")
			if rr.Code != http.StatusOK {
				t.Fatalf("json status = %d", rr.Code)
			}
			if body := decodeJSON(t, rr); body["bimestre"] != float64(3) {
				t.Errorf("bimestre = %v", body["bimestre"])
			}
		})
	}
}

func TestInconsistenciasJSON(t *testing.T) {
	srv := newTestServer(t)
	rr := serve(srv, http.MethodGet, "/inconsistencias/relatorio?exercicio=2025&formato=json", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}
	if body := decodeJSON(t, rr); body["exercicio"] != float64(2025) {
		t.Errorf("exercicio = %v", body["exercicio"])
	}
}

func TestVisualizador(t *testing.T) {
	srv := newTestServer(t,
		storagetest.Saldo(2025, 6, "621200000", "130101", contaCorrente, 1000),
	)

	tests := []struct {
		name   string
		method string
		target string
		body   string
		status int
	}{
		{"index", http.MethodGet, "/visualizador/", "", http.StatusOK},
		{"estrutura", http.MethodGet, "/visualizador/estrutura/saldos", "", http.StatusOK},
		{"unknown database", http.MethodGet, "/visualizador/estrutura/nope", "", http.StatusNotFound},
		{"unknown table", http.MethodGet, "/visualizador/dados/saldos/nope", "", http.StatusNotFound},
		{"dados", http.MethodGet, "/visualizador/dados/saldos/fato_saldos", "", http.StatusOK},
		{"query form", http.MethodGet, "/visualizador/query", "", http.StatusOK},
		{"rejected query", http.MethodPost, "/visualizador/query", "query=DROP+TABLE+fato_saldos", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serve(srv, tt.method, tt.target, tt.body)
			if rr.Code != tt.status {
				t.Fatalf("status = %d, want %d: %s", rr.Code, tt.status, rr.Body.String())
			}
		})
	}
}

func TestVisualizadorExportCSV(t *testing.T) {
	srv := newTestServer(t,
		storagetest.Saldo(2025, 6, "621200000", "130101", contaCorrente, 1000),
	)
	rr := serve(srv, http.MethodGet, "/visualizador/exportar/saldos/fato_saldos?formato=csv", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != contentTypeCSV {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(rr.Body.String(), "coexercicio") {
		t.Error("csv missing header row")
	}
}

func TestThreatsAreBlocked(t *testing.T) {
	srv := newTestServer(t)
	for _, path := range []string{"/.env", "/wp-admin/", "/relatorios/?q=union+select+1"} {
		rr := serve(srv, http.MethodGet, path, "")
		if rr.Code != http.StatusForbidden {
			t.Errorf("%s status = %d, want 403", path, rr.Code)
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	serve(srv, http.MethodGet, "/relatorios/", "")
	rr := serve(srv, http.MethodGet, "/metrics", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "orcamento_") {
		t.Error("metrics output missing orcamento_ series")
	}
}
