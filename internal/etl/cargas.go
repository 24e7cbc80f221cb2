package etl

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"

	"orcamento/internal/core"
)

var errDescartada = errors.New("linha descartada")

// Carga describes how a source is mapped onto one table.
type Carga struct {
	Tabela  string
	Colunas []string
	Indices [][]string
	// nova returns a fresh row converter; converters may keep state such
	// as the keys already seen.
	nova func() func(Registro) ([]any, error)
}

// Converter returns the row converter of one load run.
func (c Carga) Converter() func(Registro) ([]any, error) { return c.nova() }

var colunasReceita = []string{
	"categoriareceita", "cofontereceita", "cosubfontereceita", "corubrica", "coalinea", "cofonte",
}

var colunasDespesa = []string{
	"inesfera", "couo", "cofuncao", "cosubfuncao", "coprograma", "coprojeto", "cosubtitulo",
	"cofonte", "conatureza", "incategoria", "cogrupo", "comodalidade", "coelemento",
	"subelemento", "coclasseorc",
}

var indicesDespesa = [][]string{{"coexercicio"}, {"coug"}, {"cocontacontabil"}, {"cofonte"}, {"conatureza"}}

// CargaSaldosReceita loads ReceitaSaldo into fato_saldos.
func CargaSaldosReceita() Carga {
	cols := append([]string{
		"coexercicio", "inmes", "coug", "cocontacontabil", "cocontacorrente", "intipoadm",
		"vadebito", "vacredito", "saldo_contabil",
	}, colunasReceita...)
	return Carga{
		Tabela:  "fato_saldos",
		Colunas: cols,
		Indices: [][]string{
			{"categoriareceita"}, {"cofontereceita"}, {"cosubfontereceita"}, {"corubrica"},
			{"coalinea"}, {"cofonte"}, {"cocontacontabil"}, {"coug"}, {"coexercicio"}, {"inmes"},
			{"coexercicio", "inmes"}, {"saldo_contabil"},
		},
		nova: func() func(Registro) ([]any, error) {
			return func(r Registro) ([]any, error) {
				ano, mes, err := anoMes(r)
				if err != nil {
					return nil, err
				}
				conta := Texto(r.Get("cocontacontabil"))
				d, c := valorOuZero(r.Get("vadebito")), valorOuZero(r.Get("vacredito"))
				cc := Texto(r.Get("cocontacorrente"))
				f := FatiarReceita(cc)
				return []any{
					ano, mes, Texto(r.Get("coug")), conta, cc, inteiroOuNulo(r.Get("intipoadm")),
					d.InexactFloat64(), c.InexactFloat64(), core.SaldoContabil(conta, d, c).InexactFloat64(),
					f.Categoria, f.Fonte, f.Subfonte, f.Rubrica, f.Alinea, f.Cofonte,
				}, nil
			}
		},
	}
}

// CargaLancamentosReceita loads ReceitaLancamento into lancamentos.
func CargaLancamentosReceita() Carga {
	cols := append(colunasLancamento(), colunasReceita...)
	return Carga{
		Tabela:  "lancamentos",
		Colunas: cols,
		Indices: [][]string{{"coalinea"}, {"cofonte"}, {"cocontacontabil"}, {"coug"}, {"coexercicio"}, {"inmes"}},
		nova: func() func(Registro) ([]any, error) {
			return func(r Registro) ([]any, error) {
				base, cc, err := linhaLancamento(r)
				if err != nil {
					return nil, err
				}
				f := FatiarReceita(cc)
				return append(base, f.Categoria, f.Fonte, f.Subfonte, f.Rubrica, f.Alinea, f.Cofonte), nil
			}
		},
	}
}

// CargaSaldosDespesa loads DespesaSaldo into fato_saldo_despesa.
func CargaSaldosDespesa() Carga {
	cols := append([]string{
		"coexercicio", "inmes", "coug", "cocontacontabil", "cocontacorrente",
		"vadebito", "vacredito", "saldo_contabil_despesa",
	}, colunasDespesa...)
	return Carga{
		Tabela:  "fato_saldo_despesa",
		Colunas: cols,
		Indices: indicesDespesa,
		nova: func() func(Registro) ([]any, error) {
			return func(r Registro) ([]any, error) {
				ano, mes, err := anoMes(r)
				if err != nil {
					return nil, err
				}
				conta := Texto(r.Get("cocontacontabil"))
				d, c := valorOuZero(r.Get("vadebito")), valorOuZero(r.Get("vacredito"))
				cc := Texto(r.Get("cocontacorrente"))
				linha := []any{
					ano, mes, Texto(r.Get("coug")), conta, cc,
					d.InexactFloat64(), c.InexactFloat64(), core.SaldoContabil(conta, d, c).InexactFloat64(),
				}
				return append(linha, camposDespesa(r, cc)...), nil
			}
		},
	}
}

// CargaLancamentosDespesa loads DespesaLancamento into fato_lancamento_despesa.
func CargaLancamentosDespesa() Carga {
	cols := append(colunasLancamento(), colunasDespesa...)
	return Carga{
		Tabela:  "fato_lancamento_despesa",
		Colunas: cols,
		Indices: append(append([][]string{}, indicesDespesa...), []string{"coevento"}),
		nova: func() func(Registro) ([]any, error) {
			return func(r Registro) ([]any, error) {
				base, cc, err := linhaLancamento(r)
				if err != nil {
					return nil, err
				}
				return append(base, camposDespesa(r, cc)...), nil
			}
		},
	}
}

type colunasDimensao struct{ codigo, nome string }

var dimensoes = map[string]colunasDimensao{
	"categorias":        {"cocategoriareceita", "nocategoriareceita"},
	"origens":           {"cofontereceita", "nofontereceita"},
	"especies":          {"cosubfontereceita", "nosubfontereceita"},
	"especificacoes":    {"corubrica", "norubrica"},
	"alineas":           {"coalinea", "noalinea"},
	"fontes":            {"cofonte", "nofonte"},
	"funcoes":           {"cofuncao", "nofuncao"},
	"subfuncoes":        {"cosubfuncao", "nosubfuncao"},
	"contas":            {"cocontacontabil", "nocontacontabil"},
	"unidades_gestoras": {"coug", "noug"},
}

var arquivosDimensao = map[string]string{
	"receita_categoria":     "categorias",
	"receita_origem":        "origens",
	"receita_especie":       "especies",
	"receita_especificacao": "especificacoes",
	"receita_alinea":        "alineas",
	"despesa_funcao":        "funcoes",
	"despesa_subfuncao":     "subfuncoes",
	"fonte":                 "fontes",
	"contacontabil":         "contas",
	"unidadegestora":        "unidades_gestoras",
}

// TabelaDimensao maps a dimension file name to its table.
func TabelaDimensao(arquivo string) (string, bool) {
	s := Slug(strings.TrimSuffix(filepath.Base(arquivo), filepath.Ext(arquivo)))
	if t, ok := arquivosDimensao[s]; ok {
		return t, true
	}
	if _, ok := dimensoes[s]; ok {
		return s, true
	}
	return "", false
}

// CargaDimensao loads a code and name table. Sources lacking the expected
// headers are read positionally; repeated codes keep the first name.
func CargaDimensao(tabela string) (Carga, bool) {
	cd, ok := dimensoes[tabela]
	if !ok {
		return Carga{}, false
	}
	return Carga{
		Tabela:  tabela,
		Colunas: []string{cd.codigo, cd.nome},
		Indices: nil,
		nova: func() func(Registro) ([]any, error) {
			vistos := make(map[string]struct{})
			return func(r Registro) ([]any, error) {
				codigo, nome := Texto(r.Get(cd.codigo)), r.Get(cd.nome)
				if !r.Has(cd.codigo) {
					codigo, nome = Texto(r.Coluna(0)), r.Coluna(1)
				}
				if codigo == "" {
					return nil, errDescartada
				}
				if _, dup := vistos[codigo]; dup {
					return nil, errDescartada
				}
				vistos[codigo] = struct{}{}
				return []any{codigo, nome}, nil
			}
		},
	}, true
}

// CargaPorNome resolves a source name, a table or a fact file stem such
// as ReceitaSaldo, to its load.
func CargaPorNome(nome string) (Carga, bool) {
	s := Slug(nome)
	switch s {
	case "fato_saldos", "receitasaldo":
		return CargaSaldosReceita(), true
	case "lancamentos", "receitalancamento":
		return CargaLancamentosReceita(), true
	case "fato_saldo_despesa", "despesasaldo":
		return CargaSaldosDespesa(), true
	case "fato_lancamento_despesa", "despesalancamento":
		return CargaLancamentosDespesa(), true
	}
	if t, ok := TabelaDimensao(nome); ok {
		return CargaDimensao(t)
	}
	return Carga{}, false
}

func colunasLancamento() []string {
	return []string{
		"coexercicio", "inmes", "coug", "cougcontab", "nudocumento", "coevento",
		"cocontacontabil", "cocontacorrente", "valancamento", "indebitocredito",
	}
}

func linhaLancamento(r Registro) ([]any, string, error) {
	ano, mes, err := anoMes(r)
	if err != nil {
		return nil, "", err
	}
	cc := Texto(r.Get("cocontacorrente"))
	return []any{
		ano, mes, Texto(r.Get("coug")), Texto(r.Get("cougcontab")), Texto(r.Get("nudocumento")),
		Texto(r.Get("coevento")), Texto(r.Get("cocontacontabil")), cc,
		valorOuZero(r.Get("valancamento")).InexactFloat64(), strings.ToUpper(r.Get("indebitocredito")),
	}, cc, nil
}

// camposDespesa fills the expense classification, preferring explicit
// source columns over the conta corrente slices.
func camposDespesa(r Registro, cc string) []any {
	f, _ := FatiarDespesa(cc)
	fatias := []string{
		f.Esfera, f.UO, f.Funcao, f.Subfuncao, f.Programa, f.Projeto, f.Subtitulo,
		f.Fonte, f.Natureza, f.Categoria, f.Grupo, f.Modalidade, f.Elemento,
		f.Subelemento, f.ClasseOrc,
	}
	out := make([]any, len(colunasDespesa))
	for i, col := range colunasDespesa {
		v := Texto(r.Get(col))
		if v == "" {
			v = fatias[i]
		}
		if v == "" {
			out[i] = nil
			continue
		}
		out[i] = v
	}
	return out
}

func anoMes(r Registro) (int64, int64, error) {
	ano, err := ParseInteiro(r.Get("coexercicio"))
	if err != nil || ano == 0 {
		return 0, 0, errDescartada
	}
	mes, err := ParseInteiro(r.Get("inmes"))
	if err != nil || mes < 1 || mes > 12 {
		return 0, 0, errDescartada
	}
	return ano, mes, nil
}

func valorOuZero(s string) decimal.Decimal {
	d, err := core.ParseValor(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func inteiroOuNulo(s string) any {
	n, err := ParseInteiro(s)
	if err != nil || strings.TrimSpace(s) == "" {
		return nil
	}
	return n
}
