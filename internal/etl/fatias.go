// Package etl loads spreadsheet extracts into the fact and dimension
// tables. Every load truncates its table and reloads it; a failed run is
// restarted from scratch.
package etl

import "strings"

// FatiasReceita are the revenue classification codes embedded in a
// 17-character conta corrente.
type FatiasReceita struct {
	Categoria string
	Fonte     string
	Subfonte  string
	Rubrica   string
	Alinea    string
	Cofonte   string
}

// FatiarReceita slices a revenue conta corrente. Short codes yield the
// prefixes that fit; the remaining fields stay empty.
func FatiarReceita(cc string) FatiasReceita {
	cc = strings.TrimSpace(cc)
	return FatiasReceita{
		Categoria: fatia(cc, 0, 1),
		Fonte:     fatia(cc, 0, 2),
		Subfonte:  fatia(cc, 0, 3),
		Rubrica:   fatia(cc, 0, 4),
		Alinea:    fatia(cc, 0, 6),
		Cofonte:   fatia(cc, 8, 17),
	}
}

// FatiasDespesa are the budget classification codes of a 38 or 40
// character expense conta corrente.
type FatiasDespesa struct {
	Esfera      string
	UO          string
	Funcao      string
	Subfuncao   string
	Programa    string
	Projeto     string
	Subtitulo   string
	Fonte       string
	Natureza    string
	Categoria   string
	Grupo       string
	Modalidade  string
	Elemento    string
	Subelemento string
	ClasseOrc   string
}

// FatiarDespesa slices an expense conta corrente. Any length other than 38
// or 40 yields no fields, ok is false.
func FatiarDespesa(cc string) (f FatiasDespesa, ok bool) {
	cc = strings.TrimSpace(cc)
	if len(cc) != 38 && len(cc) != 40 {
		return FatiasDespesa{}, false
	}
	f = FatiasDespesa{
		Esfera:     cc[0:1],
		UO:         cc[1:6],
		Funcao:     cc[6:8],
		Subfuncao:  cc[8:11],
		Programa:   cc[11:15],
		Projeto:    cc[15:19],
		Subtitulo:  cc[19:23],
		Fonte:      cc[23:32],
		Natureza:   cc[32:38],
		Categoria:  cc[32:33],
		Grupo:      cc[33:34],
		Modalidade: cc[34:36],
		Elemento:   cc[36:38],
	}
	if len(cc) == 40 {
		f.Subelemento = cc[38:40]
		f.ClasseOrc = cc[32:40]
	}
	return f, true
}

func fatia(s string, i, j int) string {
	if i >= len(s) {
		return ""
	}
	if j > len(s) {
		j = len(s)
	}
	return s[i:j]
}
