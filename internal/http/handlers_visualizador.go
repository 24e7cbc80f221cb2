package http

import (
	"bytes"
	"errors"
	"html/template"
	"net/http"

	"orcamento/internal/export"
	"orcamento/internal/log"
	"orcamento/internal/storage"
	"orcamento/internal/visualizador"
)

const contentTypeCSV = "text/csv; charset=utf-8"

type paginaVisualizador struct {
	Pagina
	Bancos []visualizador.StatusBanco
}

type paginaEstrutura struct {
	Pagina
	Banco   string
	Tabelas []visualizador.Tabela
}

type paginaDados struct {
	Pagina
	Dados        visualizador.Pagina
	QueryFiltros template.URL
}

type paginaQuery struct {
	Pagina
	Query     string
	Tabelas   []string
	Resultado *visualizador.ResultadoQuery
	Erro      string
}

// visualizadorErro maps catalog lookups to 404 and everything else to 500.
func (s *Server) visualizadorErro(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, storage.ErrUnknownDatabase) || errors.Is(err, storage.ErrUnknownTable) {
		status = http.StatusNotFound
	} else {
		log.FromContext(r.Context()).WithComponent(log.ComponentVisualizador).ErrorContext(r.Context(), "Browser query failed",
			log.FieldError, err,
			log.FieldBanco, r.PathValue("db"),
			log.FieldTabela, r.PathValue("table"))
	}
	s.renderErro(w, r, status, err.Error())
}

func (s *Server) handleVisualizadorIndex(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.withTimeout(r)
	defer cancel()
	s.render(w, r, http.StatusOK, "visualizador_index.html", paginaVisualizador{
		Pagina: s.pagina("Visualizador de Bases"),
		Bancos: s.browser.Status(ctx),
	})
}

func (s *Server) handleVisualizadorEstrutura(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.withTimeout(r)
	defer cancel()
	banco := r.PathValue("db")
	tabelas, err := s.browser.Estrutura(ctx, banco)
	if err != nil {
		s.visualizadorErro(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "visualizador_estrutura.html", paginaEstrutura{
		Pagina:  s.pagina("Estrutura - " + banco),
		Banco:   banco,
		Tabelas: tabelas,
	})
}

// filtrosDaQuery keeps every non-empty query parameter except the reserved
// ones as a column filter.
func filtrosDaQuery(r *http.Request, reservados ...string) map[string]string {
	out := make(map[string]string)
	q := r.URL.Query()
next:
	for k := range q {
		for _, res := range reservados {
			if k == res {
				continue next
			}
		}
		if v := sanitizeInput(q.Get(k)); v != "" {
			out[k] = v
		}
	}
	return out
}

func (s *Server) handleVisualizadorDados(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.withTimeout(r)
	defer cancel()
	q := r.URL.Query()
	pagina, err := s.browser.Dados(ctx, visualizador.ParamsDados{
		Banco:   r.PathValue("db"),
		Tabela:  r.PathValue("table"),
		Page:    intParam(q, "page", 1),
		PerPage: intParam(q, "per_page", visualizador.DefaultPerPage),
		Filtros: filtrosDaQuery(r, "page", "per_page", "formato"),
	})
	if err != nil {
		s.visualizadorErro(w, r, err)
		return
	}
	if wantsJSON(r) {
		NewResponse().JSON(pagina).Write(w)
		return
	}
	filtros := r.URL.Query()
	filtros.Del("page")
	s.render(w, r, http.StatusOK, "visualizador_dados.html", paginaDados{
		Pagina:       s.pagina(pagina.Banco + "." + pagina.Tabela),
		Dados:        pagina,
		QueryFiltros: template.URL(filtros.Encode()),
	})
}

func (s *Server) handleVisualizadorExportar(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.withTimeout(r)
	defer cancel()
	exp, err := s.browser.Exportar(ctx, r.PathValue("db"), r.PathValue("table"), filtrosDaQuery(r, "page", "per_page", "formato"))
	if err != nil {
		s.visualizadorErro(w, r, err)
		return
	}

	var buf bytes.Buffer
	resp := NewResponse()
	if r.URL.Query().Get("formato") == "csv" {
		err = exp.WriteCSV(&buf)
		resp.Attachment(exp.NomeArquivo("csv", s.now()), contentTypeCSV)
	} else {
		err = exp.WriteXLSX(&buf)
		resp.Attachment(exp.NomeArquivo("xlsx", s.now()), export.ContentTypeXLSX)
	}
	if err != nil {
		s.visualizadorErro(w, r, err)
		return
	}
	log.FromContext(ctx).WithComponent(log.ComponentExport).InfoContext(ctx, "Table exported",
		log.FieldBanco, exp.Banco,
		log.FieldTabela, exp.Tabela,
		log.FieldLinhas, len(exp.Dados))
	resp.Body(buf.Bytes()).Write(w)
}

func (s *Server) handleVisualizadorQueryForm(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.withTimeout(r)
	defer cancel()
	s.render(w, r, http.StatusOK, "visualizador_query.html", paginaQuery{
		Pagina:  s.pagina("Consulta SQL"),
		Tabelas: s.browser.TabelasDisponiveis(ctx),
	})
}

// handleVisualizadorQuery runs a read-only query. JSON bodies get JSON
// answers; form posts get the query page with the result.
func (s *Server) handleVisualizadorQuery(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.withTimeout(r)
	defer cancel()

	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("Formato de requisição inválido").Write(w)
		return
	}
	query := p.Get("query")
	asJSON := p.IsJSON() || wantsJSON(r)

	if _, err := visualizador.ValidarQuery(query); err != nil {
		if asJSON {
			BadRequestError(err.Error()).Write(w)
			return
		}
		s.render(w, r, http.StatusBadRequest, "visualizador_query.html", paginaQuery{
			Pagina:  s.pagina("Consulta SQL"),
			Query:   query,
			Tabelas: s.browser.TabelasDisponiveis(ctx),
			Erro:    err.Error(),
		})
		return
	}

	res, err := s.browser.Query(ctx, query)
	if err != nil {
		log.FromContext(ctx).WithComponent(log.ComponentVisualizador).WarnContext(ctx, "Ad-hoc query failed", log.FieldError, err)
		if asJSON {
			BadRequestError(err.Error()).Write(w)
			return
		}
		s.render(w, r, http.StatusBadRequest, "visualizador_query.html", paginaQuery{
			Pagina:  s.pagina("Consulta SQL"),
			Query:   query,
			Tabelas: s.browser.TabelasDisponiveis(ctx),
			Erro:    err.Error(),
		})
		return
	}
	if asJSON {
		NewResponse().JSON(res).Write(w)
		return
	}
	s.render(w, r, http.StatusOK, "visualizador_query.html", paginaQuery{
		Pagina:    s.pagina("Consulta SQL"),
		Query:     query,
		Tabelas:   s.browser.TabelasDisponiveis(ctx),
		Resultado: &res,
	})
}
