package etl

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/xuri/excelize/v2"
)

func lerTudo(t *testing.T, l Leitor) [][]string {
	t.Helper()
	var out [][]string
	for {
		row, err := l.Proximo()
		if errors.Is(err, io.EOF) {
			return out
		}
		if err != nil {
			t.Fatalf("Proximo() error = %v", err)
		}
		out = append(out, row)
	}
}

func escrever(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestAbrirCSV_Latin1Semicolon(t *testing.T) {
	path := escrever(t, t.TempDir(), "ug.csv", []byte("COUG;NOUG\n130101;Secretaria de Sa\xfade\n"))

	l, err := AbrirArquivo(path)
	if err != nil {
		t.Fatalf("AbrirArquivo() error = %v", err)
	}
	defer l.Close()

	if got := l.Cabecalho(); !reflect.DeepEqual(got, []string{"COUG", "NOUG"}) {
		t.Errorf("Cabecalho() = %v", got)
	}
	rows := lerTudo(t, l)
	if len(rows) != 1 || rows[0][1] != "Secretaria de Saúde" {
		t.Errorf("rows = %q", rows)
	}
}

func TestAbrirCSV_UTF8BOMComma(t *testing.T) {
	path := escrever(t, t.TempDir(), "f.csv", []byte("\xef\xbb\xbfcofonte,nofonte\n150000000,\"Recursos, ordinários\"\n"))

	l, err := AbrirCSV(path)
	if err != nil {
		t.Fatalf("AbrirCSV() error = %v", err)
	}
	defer l.Close()

	idx := novoIndice(l.Cabecalho())
	rows := lerTudo(t, l)
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	r := Registro{indice: idx, valores: rows[0]}
	if r.Get("cofonte") != "150000000" || r.Get("nofonte") != "Recursos, ordinários" {
		t.Errorf("registro = %q", rows[0])
	}
}

func TestAbrirCSV_Empty(t *testing.T) {
	path := escrever(t, t.TempDir(), "vazio.csv", nil)
	if _, err := AbrirCSV(path); err == nil {
		t.Error("expected error for empty file")
	}
}

func TestAbrirArquivo_UnsupportedFormat(t *testing.T) {
	path := escrever(t, t.TempDir(), "dados.txt", []byte("x"))
	if _, err := AbrirArquivo(path); !errors.Is(err, ErrFormatoNaoSuportado) {
		t.Errorf("error = %v, want ErrFormatoNaoSuportado", err)
	}
}

func TestAbrirXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ReceitaSaldo.xlsx")
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]any{
		{"COEXERCICIO", "INMES", "COUG"},
		{2025, 3, "130101"},
		{2025, 4, "130201"},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatal(err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	f.Close()

	l, err := AbrirArquivo(path)
	if err != nil {
		t.Fatalf("AbrirArquivo() error = %v", err)
	}
	defer l.Close()

	if got := l.Cabecalho(); !reflect.DeepEqual(got, []string{"COEXERCICIO", "INMES", "COUG"}) {
		t.Errorf("Cabecalho() = %v", got)
	}
	got := lerTudo(t, l)
	if len(got) != 2 || got[0][0] != "2025" || got[1][2] != "130201" {
		t.Errorf("rows = %q", got)
	}
}

func TestRegistro(t *testing.T) {
	r := Registro{indice: novoIndice([]string{" COUG ", "NOUG"}), valores: []string{" 1 "}}
	if !r.Has("coug") || r.Has("COUG") {
		t.Error("header lookup should be lowercase")
	}
	if r.Get("coug") != "1" || r.Get("noug") != "" || r.Coluna(5) != "" {
		t.Errorf("Get/Coluna mismatch")
	}
	if r.Vazio() {
		t.Error("row is not empty")
	}
}
