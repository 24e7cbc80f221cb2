package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"orcamento/internal/core"
	"orcamento/internal/export"
	"orcamento/internal/log"
	"orcamento/internal/reports"
)

type paginaRREO struct {
	Pagina
	Ano       int
	Bimestre  int
	Anos      []int
	Bimestres []int
	Dados     any
}

// rreo renders one of the bimonthly annexes with the shared year and
// bimestre selector.
func (s *Server) rreo(w http.ResponseWriter, r *http.Request, relatorio, titulo, tmpl string, gerar func(ctx context.Context, ano int, b core.Bimestre) (any, error)) {
	start := time.Now()
	ctx, cancel := s.withTimeout(r)
	defer cancel()

	p := ParseBimestreParams(r.URL.Query(), s.now())
	dados, err := gerar(ctx, p.Ano, p.Bimestre)
	s.observe(ctx, relatorio, formatoHTML, p.Ano, int(p.Bimestre)*2, "", "", 0, start, err)
	if err != nil {
		s.renderErro(w, r, http.StatusInternalServerError, "Erro ao gerar o relatório "+titulo+": "+err.Error())
		return
	}
	if wantsJSON(r) {
		NewResponse().JSON(dados).Write(w)
		return
	}
	s.render(w, r, http.StatusOK, tmpl, paginaRREO{
		Pagina:    s.pagina(titulo),
		Ano:       p.Ano,
		Bimestre:  int(p.Bimestre),
		Anos:      AnosDisponiveis(s.now()),
		Bimestres: []int{1, 2, 3, 4, 5, 6},
		Dados:     dados,
	})
}

func (s *Server) handleAnexo2(w http.ResponseWriter, r *http.Request) {
	s.rreo(w, r, "rreo_anexo2", "RREO Anexo 2", "rreo_anexo2.html", func(ctx context.Context, ano int, b core.Bimestre) (any, error) {
		return s.reports.Anexo2(ctx, ano, b)
	})
}

func (s *Server) handleBalancoIntra(w http.ResponseWriter, r *http.Request) {
	s.rreo(w, r, "rreo_balanco_intra", "Balanço Intraorçamentário", "balanco_intra.html", func(ctx context.Context, ano int, b core.Bimestre) (any, error) {
		return s.reports.BalancoIntra(ctx, ano, b)
	})
}

func (s *Server) handleDespesaFuncionalIntra(w http.ResponseWriter, r *http.Request) {
	s.rreo(w, r, "rreo_despesa_funcional_intra", "Despesa por Função Intraorçamentária", "despesa_funcional_intra.html", func(ctx context.Context, ano int, b core.Bimestre) (any, error) {
		return s.reports.DespesaFuncionalIntra(ctx, ano, b)
	})
}

type paginaInconsistencias struct {
	Pagina
	Exercicios []int
	Exercicio  int
	Dados      reports.Inconsistencias
}

func (s *Server) handleInconsistencias(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, cancel := s.withTimeout(r)
	defer cancel()

	exercicios, err := s.reports.ExerciciosDisponiveis(ctx)
	if err != nil {
		log.FromContext(ctx).WarnContext(ctx, "Available years unavailable", log.FieldError, err)
	}
	padrao := s.now().Year()
	if len(exercicios) > 0 {
		padrao = exercicios[0]
	}
	exercicio := intParam(r.URL.Query(), "exercicio", padrao)

	dados := s.reports.AnalisarInconsistencias(ctx, exercicio)
	total := dados.Total()
	formato := r.URL.Query().Get("formato")
	if formato == "" {
		formato = formatoHTML
	}
	s.observe(ctx, "inconsistencias", formato, exercicio, 0, "", "", total, start, nil)

	if formato == formatoJSON {
		NewResponse().JSON(dados).Write(w)
		return
	}
	pg := paginaInconsistencias{
		Pagina:     s.pagina("Relatório de Inconsistências"),
		Exercicios: exercicios,
		Exercicio:  exercicio,
		Dados:      dados,
	}
	if formato == formatoHTMLDownload {
		pg.Exportacao = true
		s.download(w, r, "inconsistencias.html", pg, export.Snapshot{
			Titulo:    "Relatório de Inconsistências",
			Subtitulo: "Exercício " + strconv.Itoa(exercicio),
		}, "relatorio_inconsistencias")
		return
	}
	s.render(w, r, http.StatusOK, "inconsistencias.html", pg)
}
