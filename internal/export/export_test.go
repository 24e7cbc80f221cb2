package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"orcamento/internal/core"
	"orcamento/internal/reports"
)

func TestNomeArquivoBalanco(t *testing.T) {
	tests := []struct {
		name string
		p    ParamsExcel
		want string
	}{
		{"consolidado", ParamsExcel{Ano: 2025, Mes: 6}, "balanco_orcamentario_receita_consolidado_2025_06.xlsx"},
		{"coug", ParamsExcel{Ano: 2025, Mes: 12, COUG: "130101"}, "balanco_orcamentario_receita_coug_130101_2025_12.xlsx"},
		{"filtro", ParamsExcel{Ano: 2024, Mes: 3, Filtro: "rpps"}, "balanco_orcamentario_receita_consolidado_rpps_2024_03.xlsx"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NomeArquivoBalanco(tt.p); got != tt.want {
				t.Errorf("NomeArquivoBalanco() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBalancoExcel(t *testing.T) {
	linhas := []reports.Linha{
		{Codigo: "1", Descricao: "RECEITAS CORRENTES", Nivel: 0, Medidas: core.Medidas{PrevisaoInicial: 900, ReceitaAtual: 1000, ReceitaAnterior: 800}, VariacaoAbsoluta: 200, VariacaoPercentual: 25},
		{Codigo: "11", Descricao: "Impostos", Nivel: 1, Medidas: core.Medidas{ReceitaAtual: 1000, ReceitaAnterior: 800}, VariacaoAbsoluta: 200, VariacaoPercentual: 25},
	}

	var buf bytes.Buffer
	if err := BalancoExcel(&buf, ParamsExcel{Ano: 2025, Mes: 6}, linhas); err != nil {
		t.Fatalf("BalancoExcel() error = %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	if got := f.GetSheetName(0); got != SheetBalanco {
		t.Fatalf("sheet = %q, want %q", got, SheetBalanco)
	}

	cells := map[string]string{
		"A1": "Código",
		"E1": "Receita Realizada 06/2025",
		"F1": "Receita Realizada 06/2024",
		"A2": "1",
		"B2": "RECEITAS CORRENTES",
		"B3": "    Impostos",
	}
	for cell, want := range cells {
		got, err := f.GetCellValue(SheetBalanco, cell)
		if err != nil {
			t.Fatalf("GetCellValue(%s): %v", cell, err)
		}
		if got != want {
			t.Errorf("%s = %q, want %q", cell, got, want)
		}
	}

	raw, err := f.GetCellValue(SheetBalanco, "H2", excelize.Options{RawCellValue: true})
	if err != nil {
		t.Fatal(err)
	}
	if raw != "0.25" {
		t.Errorf("H2 raw = %q, want 0.25", raw)
	}

	width, err := f.GetColWidth(SheetBalanco, "B")
	if err != nil {
		t.Fatal(err)
	}
	if width != 60 {
		t.Errorf("column B width = %v, want 60", width)
	}
}

func TestHTMLEstatico(t *testing.T) {
	page := `<html><head><title>Balanço</title><script>alert(1)</script></head>
<body><nav><button onclick="x()">Exportar</button></nav>
<main>
<div class="loading">carregando</div>
<form><input name="ano"></form>
<table><tr class="nivel-0" onclick="toggle()"><td><a href="/relatorios/x">1</a></td><td class="valor">R$ 1.000,00</td></tr></table>
<div class="modal">modal</div>
</main></body></html>`

	var out bytes.Buffer
	em := time.Date(2025, 7, 1, 10, 30, 0, 0, time.UTC)
	if err := HTMLEstatico(&out, strings.NewReader(page), Snapshot{Subtitulo: "Junho/2025", GeradoEm: em}); err != nil {
		t.Fatalf("HTMLEstatico() error = %v", err)
	}
	got := out.String()

	for _, banned := range []string{"<script", "<button", "<form", "<input", "onclick", "carregando", ">modal<", "<a "} {
		if strings.Contains(got, banned) {
			t.Errorf("snapshot contains %q", banned)
		}
	}
	for _, want := range []string{"<title>Balanço</title>", `<span class="link-exportado">1</span>`, "R$ 1.000,00", "Junho/2025", "01/07/2025 10:30:00", "<footer"} {
		if !strings.Contains(got, want) {
			t.Errorf("snapshot missing %q", want)
		}
	}
}

func TestNomeArquivoHTML(t *testing.T) {
	em := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	if got := NomeArquivoHTML("balanco_receita.html", em); got != "balanco_receita_20250102_030405.html" {
		t.Errorf("NomeArquivoHTML() = %q", got)
	}
	if got := NomeArquivoHTML("", em); got != "relatorio_20250102_030405.html" {
		t.Errorf("NomeArquivoHTML(empty) = %q", got)
	}
}
