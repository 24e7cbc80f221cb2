package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"orcamento/internal/core"
	"orcamento/internal/log"
)

var errTemplatesNotLoaded = errors.New("templates not loaded")

// Pagina carries what every page header shows.
type Pagina struct {
	Titulo   string
	GeradoEm string
	// Exportacao is set while rendering a static download.
	Exportacao bool
}

func (s *Server) pagina(titulo string) Pagina {
	return Pagina{Titulo: titulo, GeradoEm: s.now().Format("02/01/2006 15:04")}
}

type paginaErro struct {
	Pagina
	Mensagem string
}

type relatorioLink struct {
	Titulo    string
	Descricao string
	URL       string
}

type paginaIndex struct {
	Pagina
	Periodo    core.Periodo
	Relatorios []relatorioLink
	Filtros    []core.Filtro
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(map[string]any{
		"status":    "ok",
		"timestamp": s.now().Format(time.RFC3339),
		"uptime":    time.Since(s.startedAt).Round(time.Second).String(),
	}).Write(w)
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if s.reports == nil {
		checks["database"] = "not_configured"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else if err := s.reports.Repository().Ping(ctx); err != nil {
		checks["database"] = "failed: " + err.Error()
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["database"] = map[string]any{
			"status":  "ok",
			"dialect": s.reports.Repository().Dialect().Name(),
		}
	}

	checks["rate_limiter"] = map[string]any{
		"active_clients": s.limiter.ActiveClients(),
		"status":         "ok",
	}
	sec := s.detector.GetMetrics()
	checks["security"] = map[string]any{
		"suspicious_requests": sec.SuspiciousRequests,
		"blocked_requests":    sec.BlockedRequests,
	}

	NewResponse().Status(httpStatus).JSON(map[string]any{
		"status":    status,
		"timestamp": s.now().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.withTimeout(r)
	defer cancel()

	s.render(w, r, http.StatusOK, "index.html", paginaIndex{
		Pagina:  s.pagina("Relatórios Orçamentários"),
		Periodo: s.reports.PeriodoReferencia(ctx),
		Relatorios: []relatorioLink{
			{"Balanço Orçamentário da Receita", "Previsão e realização por categoria, fonte, subfonte e alínea", "/relatorios/balanco-orcamentario-receita"},
			{"Receita por Fonte", "Realização agrupada por alínea ou por fonte de recursos", "/relatorios/receita-fonte"},
			{"RREO Anexo 2", "Demonstrativo da execução orçamentária da receita por bimestre", "/rreo/anexo2"},
			{"Balanço Intraorçamentário", "Receitas e despesas intraorçamentárias", "/rreo/balanco-intra"},
			{"Despesa por Função (Intra)", "Despesas intraorçamentárias por função e subfunção", "/rreo/despesa-funcional-intra"},
			{"Inconsistências", "Fontes de superávit, UGs inválidas e saldos negativos", "/inconsistencias/relatorio"},
			{"Visualizador", "Estrutura e dados das bases carregadas", "/visualizador/"},
		},
		Filtros: core.Filtros(),
	})
}

// observe records a finished report in metrics and logs.
func (s *Server) observe(ctx context.Context, relatorio, formato string, ano, mes int, coug, filtro string, linhas int, start time.Time, err error) {
	elapsed := time.Since(start)
	s.metrics.ObserveReport(relatorio, formato, linhas, elapsed, err)
	if err != nil {
		s.structured.LogError(ctx, "Report failed", err, log.OpAggregate,
			log.NewFields().WithReport(relatorio, ano, mes, coug, filtro))
		return
	}
	s.structured.LogReport(ctx, relatorio, ano, mes, coug, filtro, formato, linhas, elapsed)
}

// cougOuConsolidado validates the requested unit. Unknown units fall back to
// the consolidated view.
func (s *Server) cougOuConsolidado(ctx context.Context, coug string) string {
	if coug == "" {
		return ""
	}
	ok, err := s.reports.ValidarCOUG(ctx, coug)
	if err != nil {
		log.FromContext(ctx).WarnContext(ctx, "COUG validation failed", log.FieldCOUG, coug, log.FieldError, err)
		return ""
	}
	if !ok {
		log.FromContext(ctx).WarnContext(ctx, "Unknown COUG ignored", log.FieldCOUG, coug)
		return ""
	}
	return coug
}
