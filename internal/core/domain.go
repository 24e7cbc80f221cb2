package core

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

const (
	TipoReceita TipoRelatorio = "receita"
	TipoFonte   TipoRelatorio = "fonte"
)

type (
	// TipoRelatorio selects which code drives the receita×fonte hierarchy.
	TipoRelatorio string

	// Periodo is the reference period shown on report headers.
	Periodo struct {
		Mes             int    `json:"mes"`
		Ano             int    `json:"ano"`
		MesNome         string `json:"mes_nome"`
		PeriodoCompleto string `json:"periodo_completo"`
	}

	// Bimestre is an RREO reporting period (1..6).
	Bimestre int

	// Variacao holds the period-over-period comparison of two values.
	Variacao struct {
		Absoluta   float64
		Percentual float64
	}
)

var (
	ErrInvalidMonth    = errors.New("invalid month")
	ErrInvalidYear     = errors.New("invalid year")
	ErrInvalidBimestre = errors.New("invalid bimestre")
	ErrInvalidTipo     = errors.New("tipo inválido. Use 'receita' ou 'fonte'")
	ErrInvalidAmount   = errors.New("invalid amount")
)

var nomesMeses = [...]string{
	"Janeiro", "Fevereiro", "Março", "Abril", "Maio", "Junho",
	"Julho", "Agosto", "Setembro", "Outubro", "Novembro", "Dezembro",
}

// NomeMes returns the Portuguese month name, or "Mês Inválido".
func NomeMes(mes int) string {
	if mes < 1 || mes > 12 {
		return "Mês Inválido"
	}
	return nomesMeses[mes-1]
}

// NewPeriodo builds a Periodo for the given year and month.
func NewPeriodo(ano, mes int) Periodo {
	nome := NomeMes(mes)
	return Periodo{
		Mes:             mes,
		Ano:             ano,
		MesNome:         nome,
		PeriodoCompleto: fmt.Sprintf("%s/%d", nome, ano),
	}
}

// PeriodoAtual is the fallback period when the database has no facts.
func PeriodoAtual(now time.Time) Periodo {
	return NewPeriodo(now.Year(), int(now.Month()))
}

// ParseTipo validates a receita×fonte report type.
func ParseTipo(s string) (TipoRelatorio, error) {
	switch TipoRelatorio(strings.TrimSpace(s)) {
	case TipoReceita:
		return TipoReceita, nil
	case TipoFonte:
		return TipoFonte, nil
	}
	return "", ErrInvalidTipo
}

func (b Bimestre) Validate() error {
	if b < 1 || b > 6 {
		return ErrInvalidBimestre
	}
	return nil
}

// BimestreDoMes returns the bimestre containing the month.
func BimestreDoMes(mes int) Bimestre {
	return Bimestre((mes + 1) / 2)
}

// Meses returns the two calendar months of the bimestre.
func (b Bimestre) Meses() []int {
	return []int{int(b)*2 - 1, int(b) * 2}
}

// MesesAte returns every month from January through the end of the bimestre.
func (b Bimestre) MesesAte() []int {
	out := make([]int, 0, int(b)*2)
	for m := 1; m <= int(b)*2; m++ {
		out = append(out, m)
	}
	return out
}

// NewVariacao compares current against prior. A zero prior yields 100%
// when the current value is non-zero and 0% otherwise.
func NewVariacao(atual, anterior float64) Variacao {
	abs := atual - anterior
	var pct float64
	switch {
	case anterior != 0:
		pct = abs / math.Abs(anterior) * 100
	case abs != 0:
		pct = 100
	}
	return Variacao{Absoluta: abs, Percentual: pct}
}

// SanitizeCOUG keeps only the digits of a cost-center code.
func SanitizeCOUG(coug string) string {
	var b strings.Builder
	for _, r := range coug {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
