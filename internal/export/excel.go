// Package export renders reports as downloadable files: an Excel workbook of
// the balanço orçamentário and static HTML snapshots of any report page.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"orcamento/internal/reports"
)

const (
	SheetBalanco = "Balanço Orçamentário"

	formatoMoeda      = `"R$" #,##0.00`
	formatoPercentual = "0.00%"

	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ParamsExcel identifies the report being exported.
type ParamsExcel struct {
	Ano    int
	Mes    int
	COUG   string
	Filtro string
}

// NomeArquivoBalanco is the download name of a balanço workbook.
func NomeArquivoBalanco(p ParamsExcel) string {
	sufixo := reports.SufixoArquivoCOUG(p.COUG)
	if p.Filtro != "" {
		sufixo += "_" + p.Filtro
	}
	return fmt.Sprintf("balanco_orcamentario_receita%s_%d_%02d.xlsx", sufixo, p.Ano, p.Mes)
}

// BalancoExcel writes the balanço rows as a single-sheet workbook.
func BalancoExcel(w io.Writer, p ParamsExcel, linhas []reports.Linha) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetBalanco); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	styles, err := newEstilos(f)
	if err != nil {
		return err
	}

	headers := []string{
		"Código",
		"Descrição",
		fmt.Sprintf("Previsão Inicial %d", p.Ano),
		fmt.Sprintf("Previsão Atualizada %d", p.Ano),
		fmt.Sprintf("Receita Realizada %02d/%d", p.Mes, p.Ano),
		fmt.Sprintf("Receita Realizada %02d/%d", p.Mes, p.Ano-1),
		"Variação Absoluta",
		"Variação %",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(SheetBalanco, cell, h); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	if err := f.SetCellStyle(SheetBalanco, "A1", "H1", styles.header); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i, l := range linhas {
		row := i + 2
		nivel := l.Nivel
		if nivel < 0 {
			nivel = 0
		}
		values := []any{
			l.Codigo,
			strings.Repeat("    ", nivel) + l.Descricao,
			l.PrevisaoInicial,
			l.PrevisaoAtualizada,
			l.ReceitaAtual,
			l.ReceitaAnterior,
			l.VariacaoAbsoluta,
			l.VariacaoPercentual / 100,
		}
		start, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(SheetBalanco, start, &values); err != nil {
			return fmt.Errorf("write row %d: %w", row, err)
		}

		moeda, pct, texto := styles.moeda, styles.percentual, styles.texto
		if l.Nivel <= 0 {
			moeda, pct, texto = styles.moedaNegrito, styles.percentualNegrito, styles.textoNegrito
		}
		cells := []struct {
			from, to string
			style    int
		}{
			{"A", "B", texto},
			{"C", "G", moeda},
			{"H", "H", pct},
		}
		for _, c := range cells {
			if err := f.SetCellStyle(SheetBalanco, fmt.Sprintf("%s%d", c.from, row), fmt.Sprintf("%s%d", c.to, row), c.style); err != nil {
				return fmt.Errorf("style row %d: %w", row, err)
			}
		}
	}

	for col, width := range map[string]float64{"A": 15, "B": 60, "H": 15} {
		if err := f.SetColWidth(SheetBalanco, col, col, width); err != nil {
			return fmt.Errorf("set width: %w", err)
		}
	}
	if err := f.SetColWidth(SheetBalanco, "C", "G", 22); err != nil {
		return fmt.Errorf("set width: %w", err)
	}
	if err := f.SetPanes(SheetBalanco, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

type estilos struct {
	header            int
	texto             int
	textoNegrito      int
	moeda             int
	moedaNegrito      int
	percentual        int
	percentualNegrito int
}

func newEstilos(f *excelize.File) (estilos, error) {
	var e estilos
	moeda := formatoMoeda
	pct := formatoPercentual
	defs := []struct {
		dst   *int
		style *excelize.Style
	}{
		{&e.header, &excelize.Style{
			Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
			Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"1E3C72"}},
			Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
		}},
		{&e.texto, &excelize.Style{}},
		{&e.textoNegrito, &excelize.Style{Font: &excelize.Font{Bold: true}}},
		{&e.moeda, &excelize.Style{CustomNumFmt: &moeda}},
		{&e.moedaNegrito, &excelize.Style{CustomNumFmt: &moeda, Font: &excelize.Font{Bold: true}}},
		{&e.percentual, &excelize.Style{CustomNumFmt: &pct}},
		{&e.percentualNegrito, &excelize.Style{CustomNumFmt: &pct, Font: &excelize.Font{Bold: true}}},
	}
	for _, d := range defs {
		id, err := f.NewStyle(d.style)
		if err != nil {
			return estilos{}, fmt.Errorf("create style: %w", err)
		}
		*d.dst = id
	}
	return e, nil
}
