package etl

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"orcamento/internal/sheets"
)

// ErrFormatoNaoSuportado is returned for files that are neither CSV nor XLSX.
var ErrFormatoNaoSuportado = errors.New("formato de arquivo não suportado")

// Leitor streams the rows of one tabular source. Proximo returns io.EOF
// after the last row.
type Leitor interface {
	Cabecalho() []string
	Proximo() ([]string, error)
	Close() error
}

// Registro is one source row addressed by lowercase header name.
type Registro struct {
	indice  map[string]int
	valores []string
}

func novoIndice(cabecalho []string) map[string]int {
	idx := make(map[string]int, len(cabecalho))
	for i, c := range cabecalho {
		c = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(c, "\ufeff")))
		if _, dup := idx[c]; !dup {
			idx[c] = i
		}
	}
	return idx
}

// Get returns the trimmed value of col, or "" when the column is absent.
func (r Registro) Get(col string) string {
	i, ok := r.indice[col]
	if !ok || i >= len(r.valores) {
		return ""
	}
	return strings.TrimSpace(r.valores[i])
}

// Has reports whether the source carries col.
func (r Registro) Has(col string) bool {
	_, ok := r.indice[col]
	return ok
}

// Vazio reports whether every cell is blank.
func (r Registro) Vazio() bool {
	for _, v := range r.valores {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// AbrirArquivo opens a CSV or XLSX file by extension.
func AbrirArquivo(path string) (Leitor, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return AbrirCSV(path)
	case ".xlsx":
		return AbrirXLSX(path)
	}
	return nil, fmt.Errorf("%w: %s", ErrFormatoNaoSuportado, filepath.Base(path))
}

type csvLeitor struct {
	f         *os.File
	r         *csv.Reader
	cabecalho []string
}

const amostraCSV = 64 * 1024

// AbrirCSV opens a delimited file. UTF-8 (with or without BOM) is kept as
// is and anything else is decoded as Windows-1252; the separator is ';'
// unless the header line has more commas.
func AbrirCSV(path string) (Leitor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	br := bufio.NewReaderSize(f, amostraCSV)
	amostra, err := br.Peek(amostraCSV)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		f.Close()
		return nil, err
	}

	var src io.Reader = br
	if utf8Valido(amostra, len(amostra) < amostraCSV) {
		if bytes.HasPrefix(amostra, []byte("\xef\xbb\xbf")) {
			br.Discard(3)
			amostra = amostra[3:]
		}
	} else {
		src = transform.NewReader(br, charmap.Windows1252.NewDecoder())
	}

	r := csv.NewReader(src)
	r.Comma = separador(amostra)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.ReuseRecord = true

	cab, err := r.Read()
	if err != nil {
		f.Close()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s: arquivo vazio", filepath.Base(path))
		}
		return nil, err
	}
	return &csvLeitor{f: f, r: r, cabecalho: append([]string(nil), cab...)}, nil
}

// utf8Valido checks a sample that may end in the middle of a rune.
func utf8Valido(b []byte, completo bool) bool {
	if utf8.Valid(b) {
		return true
	}
	if completo {
		return false
	}
	for i := 1; i < utf8.UTFMax && i < len(b); i++ {
		if utf8.Valid(b[:len(b)-i]) {
			return true
		}
	}
	return false
}

func separador(amostra []byte) rune {
	linha := amostra
	if i := bytes.IndexByte(linha, '\n'); i >= 0 {
		linha = linha[:i]
	}
	if bytes.Count(linha, []byte(",")) > bytes.Count(linha, []byte(";")) {
		return ','
	}
	return ';'
}

func (l *csvLeitor) Cabecalho() []string { return l.cabecalho }

func (l *csvLeitor) Proximo() ([]string, error) {
	rec, err := l.r.Read()
	if err != nil {
		return nil, err
	}
	return append([]string(nil), rec...), nil
}

func (l *csvLeitor) Close() error { return l.f.Close() }

type xlsxLeitor struct {
	f         *excelize.File
	rows      *excelize.Rows
	cabecalho []string
}

// AbrirXLSX streams the first sheet of a workbook with raw cell values.
func AbrirXLSX(path string) (Leitor, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	rows, err := f.Rows(f.GetSheetName(0))
	if err != nil {
		f.Close()
		return nil, err
	}
	l := &xlsxLeitor{f: f, rows: rows}
	cab, err := l.Proximo()
	if err != nil {
		l.Close()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s: planilha vazia", filepath.Base(path))
		}
		return nil, err
	}
	l.cabecalho = cab
	return l, nil
}

func (l *xlsxLeitor) Cabecalho() []string { return l.cabecalho }

func (l *xlsxLeitor) Proximo() ([]string, error) {
	if !l.rows.Next() {
		if err := l.rows.Error(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	return l.rows.Columns(excelize.Options{RawCellValue: true})
}

func (l *xlsxLeitor) Close() error {
	err := l.rows.Close()
	if cerr := l.f.Close(); err == nil {
		err = cerr
	}
	return err
}

type matrizLeitor struct {
	linhas [][]string
	pos    int
}

// NovoLeitorMatriz reads rows already in memory; the first row is the
// header.
func NovoLeitorMatriz(linhas [][]string) Leitor {
	return &matrizLeitor{linhas: linhas, pos: 1}
}

// LerPlanilha fetches a Google Sheets range and exposes it as a Leitor.
func LerPlanilha(ctx context.Context, src sheets.RangeReader, rng string) (Leitor, error) {
	linhas, err := src.ReadRange(ctx, rng)
	if err != nil {
		return nil, fmt.Errorf("read range %s: %w", rng, err)
	}
	if len(linhas) == 0 {
		return nil, fmt.Errorf("intervalo %s vazio", rng)
	}
	return NovoLeitorMatriz(linhas), nil
}

func (l *matrizLeitor) Cabecalho() []string {
	if len(l.linhas) == 0 {
		return nil
	}
	return l.linhas[0]
}

func (l *matrizLeitor) Proximo() ([]string, error) {
	if l.pos >= len(l.linhas) {
		return nil, io.EOF
	}
	l.pos++
	return l.linhas[l.pos-1], nil
}

func (l *matrizLeitor) Close() error { return nil }

// Coluna returns the trimmed value at position i.
func (r Registro) Coluna(i int) string {
	if i < 0 || i >= len(r.valores) {
		return ""
	}
	return strings.TrimSpace(r.valores[i])
}
