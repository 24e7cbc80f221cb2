package core

import "sort"

// Faixa is an inclusive range of accounting account codes.
type Faixa struct {
	Inicio string
	Fim    string
}

// RegraConta names a set of account ranges summed together by the reports.
type RegraConta string

const (
	PrevisaoInicial           RegraConta = "PREVISAO_INICIAL"
	DeducoesPrevisaoInicial   RegraConta = "DEDUCOES_PREVISAO_INICIAL"
	PrevisaoInicialLiquida    RegraConta = "PREVISAO_INICIAL_LIQUIDA"
	PrevisaoAtualizada        RegraConta = "PREVISAO_ATUALIZADA"
	PrevisaoAtualizadaLiquida RegraConta = "PREVISAO_ATUALIZADA_LIQUIDA"
	ReceitaBruta              RegraConta = "RECEITA_BRUTA"
	DeducoesReceitaBruta      RegraConta = "DEDUCOES_RECEITA_BRUTA"
	ReceitaLiquida            RegraConta = "RECEITA_LIQUIDA"
)

var regrasContas = map[RegraConta]Faixa{
	PrevisaoInicial:           {"521110000", "521119999"},
	DeducoesPrevisaoInicial:   {"521120000", "521129999"},
	PrevisaoInicialLiquida:    {"521110000", "521129999"},
	PrevisaoAtualizada:        {"521100000", "521299999"},
	PrevisaoAtualizadaLiquida: {"521110000", "521299999"},
	ReceitaBruta:              {"621200000", "621200000"},
	DeducoesReceitaBruta:      {"621300000", "621399999"},
	ReceitaLiquida:            {"621200000", "621399999"},
}

// FaixaDaRegra returns the account range of a rule.
func FaixaDaRegra(r RegraConta) (Faixa, bool) {
	f, ok := regrasContas[r]
	return f, ok
}

// Account ranges used by the RREO annexes.
var (
	FaixaPrevisaoInicialRREO    = Faixa{"521100000", "521199999"}
	FaixaPrevisaoAtualizadaRREO = Faixa{"521100000", "521299999"}
	FaixaReceitaRealizada       = Faixa{"621200000", "621399999"}
	FaixaSuperavitFinanceiro    = Faixa{"522130100", "522130199"}
	FaixaDotacaoInicial         = Faixa{"522110000", "522119999"}
	FaixaEmpenhado              = Faixa{"622130000", "622139999"}

	// FaixasDotacaoAutorizada are OR-ed together.
	FaixasDotacaoAutorizada = []Faixa{
		{"522110000", "522129999"},
		{"522150000", "522159999"},
		{"522190000", "522199999"},
	}
)

// Single accounts used by expense and audit reports.
var (
	ContasLiquidado          = []string{"622130300", "622130400", "622130700"}
	ContaPago                = "622920104"
	ContaReceitaRealizada    = "621200000"
	CougTesouro              = "130101"
	PrefixosFontesSuperavit  = []string{"3", "4", "8"}
	PrefixoContaCorrenteRPPS = "99"
)

// Filtro restricts a report to a set of values of one fact column.
type Filtro struct {
	Chave     string
	Campo     string
	Valores   []string
	Descricao string
}

var filtrosRelatorio = map[string]Filtro{
	"tributarias":      {Campo: "cofontereceita", Valores: []string{"11", "71"}, Descricao: "Receitas Tributárias"},
	"contribuicoes":    {Campo: "cofontereceita", Valores: []string{"12", "72"}, Descricao: "Receitas de Contribuições"},
	"patrimonial":      {Campo: "cofontereceita", Valores: []string{"13", "73"}, Descricao: "Receita Patrimonial"},
	"agropecuaria":     {Campo: "cofontereceita", Valores: []string{"14", "74"}, Descricao: "Receita Agropecuária"},
	"industrial":       {Campo: "cofontereceita", Valores: []string{"15", "75"}, Descricao: "Receita Industrial"},
	"servicos":         {Campo: "cofontereceita", Valores: []string{"16", "76"}, Descricao: "Receita de Serviços"},
	"transf_correntes": {Campo: "cofontereceita", Valores: []string{"17", "77"}, Descricao: "Transferências Correntes"},
	"outras_correntes": {Campo: "cofontereceita", Valores: []string{"19", "79"}, Descricao: "Outras Receitas Correntes"},
	"op_credito":       {Campo: "cofontereceita", Valores: []string{"21"}, Descricao: "Operações de Crédito"},
	"alienacao_bens":   {Campo: "cofontereceita", Valores: []string{"22"}, Descricao: "Alienação de Bens"},
	"amortizacao":      {Campo: "cofontereceita", Valores: []string{"23"}, Descricao: "Amortização de Empréstimos"},
	"transf_capital":   {Campo: "cofontereceita", Valores: []string{"24"}, Descricao: "Transferências de Capital"},
}

// FiltroPorChave looks up a named filter. Empty or unknown keys return false.
func FiltroPorChave(chave string) (Filtro, bool) {
	f, ok := filtrosRelatorio[chave]
	if !ok {
		return Filtro{}, false
	}
	f.Chave = chave
	return f, true
}

// Filtros lists the named filters ordered by key.
func Filtros() []Filtro {
	out := make([]Filtro, 0, len(filtrosRelatorio))
	for k := range filtrosRelatorio {
		f, _ := FiltroPorChave(k)
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Chave < out[j].Chave })
	return out
}
