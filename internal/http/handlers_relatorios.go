package http

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"orcamento/internal/core"
	"orcamento/internal/export"
	"orcamento/internal/log"
	"orcamento/internal/reports"
)

const (
	formatoHTML         = "html"
	formatoExcel        = "excel"
	formatoHTMLDownload = "html_download"
	formatoJSON         = "json"

	tituloBalanco = "Balanço Orçamentário da Receita"
)

type paginaBalanco struct {
	Pagina
	Periodo           core.Periodo
	Linhas            []reports.Linha
	SemDados          bool
	Resumo            *reports.ResumoExecutivo
	Comparativo       reports.Comparativo
	TituloComparativo string
	Cards             reports.Cards
	Opcoes            []reports.OpcaoCOUG
	COUG              string
	NomeCOUG          string
	Subtitulo         string
	Filtro            string
	FiltroDescricao   string
	Filtros           []core.Filtro
	GraficoCategorias []pontoGrafico
	GraficoOrigens    []pontoGrafico
}

// handleBalanco serves the balanço orçamentário da receita as a page, an
// xlsx workbook or a static HTML download.
func (s *Server) handleBalanco(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, cancel := s.withTimeout(r)
	defer cancel()

	q := r.URL.Query()
	formato := q.Get("formato")
	if formato == "" {
		formato = formatoHTML
	}
	periodo := ParsePeriodParams(q, s.reports.PeriodoReferencia(ctx))
	filtro := ParseFiltro(q)
	coug := s.cougOuConsolidado(ctx, ParseCOUG(q))
	params := reports.ParamsBalanco{Ano: periodo.Ano, Mes: periodo.Mes, COUG: coug, Filtro: filtro.Chave}

	if formato == formatoExcel {
		linhas := s.reports.BalancoReceita(ctx, params)
		p := export.ParamsExcel{Ano: periodo.Ano, Mes: periodo.Mes, COUG: coug, Filtro: filtro.Chave}
		resp := NewResponse().Attachment(export.NomeArquivoBalanco(p), export.ContentTypeXLSX)
		var buf bytes.Buffer
		err := export.BalancoExcel(&buf, p, linhas)
		s.observe(ctx, "balanco_receita", formato, periodo.Ano, periodo.Mes, coug, filtro.Chave, len(linhas), start, err)
		if err != nil {
			s.renderErro(w, r, http.StatusInternalServerError, "Erro ao gerar Excel: "+err.Error())
			return
		}
		resp.Body(buf.Bytes()).Write(w)
		return
	}

	pg := paginaBalanco{
		Pagina:            s.pagina(tituloBalanco),
		Periodo:           core.NewPeriodo(periodo.Ano, periodo.Mes),
		COUG:              coug,
		Filtro:            filtro.Chave,
		FiltroDescricao:   "Todas as Receitas",
		TituloComparativo: "Comparativo Mensal Acumulado - Todas as Receitas",
		Filtros:           core.Filtros(),
	}
	if filtro.Chave != "" {
		pg.FiltroDescricao = filtro.Descricao
		pg.TituloComparativo = "Comparativo Mensal Acumulado - " + filtro.Descricao
	}

	var cougs []reports.COUG
	err := carregarSecoes(
		func() error {
			pg.Linhas = s.reports.BalancoReceita(ctx, params)
			return nil
		},
		func() error {
			c, err := s.reports.ComparativoMensal(ctx, periodo.Ano, coug, filtro.Chave)
			if err != nil {
				return fmt.Errorf("comparativo mensal: %w", err)
			}
			pg.Comparativo = c
			return nil
		},
		func() error {
			c, err := s.reports.CardsUnidades(ctx, periodo.Ano, periodo.Mes, filtro.Chave)
			if err != nil {
				return fmt.Errorf("cards por unidade: %w", err)
			}
			pg.Cards = c
			return nil
		},
		func() error {
			c, err := s.reports.ListarCOUGs(ctx, core.ReceitaLiquida)
			if err != nil {
				return fmt.Errorf("lista de COUGs: %w", err)
			}
			cougs = c
			return nil
		},
	)
	if err != nil {
		log.FromContext(ctx).WarnContext(ctx, "Optional report sections unavailable", log.FieldError, err)
	}
	if err := ctx.Err(); err != nil {
		s.observe(ctx, "balanco_receita", formato, periodo.Ano, periodo.Mes, coug, filtro.Chave, 0, start, err)
		s.renderErro(w, r, http.StatusGatewayTimeout, "Erro ao gerar relatório: tempo esgotado")
		return
	}

	pg.SemDados = reports.SemDados(pg.Linhas)
	pg.Resumo = reports.GerarResumoExecutivo(pg.Linhas)
	pg.Opcoes = reports.OpcoesCOUG(cougs, coug)
	pg.NomeCOUG = reports.DescricaoCOUG(cougs, coug)
	if coug != "" && pg.NomeCOUG == "" {
		pg.NomeCOUG = s.reports.NomeCOUG(ctx, coug)
	}
	pg.Subtitulo = reports.TituloCOUG(coug, pg.NomeCOUG)
	for _, l := range pg.Linhas {
		if l.ReceitaAtual <= 0 {
			continue
		}
		switch l.Nivel {
		case 0:
			pg.GraficoCategorias = append(pg.GraficoCategorias, pontoGrafico{l.Descricao, l.ReceitaAtual})
		case 1:
			pg.GraficoOrigens = append(pg.GraficoOrigens, pontoGrafico{l.Descricao, l.ReceitaAtual})
		}
	}
	s.observe(ctx, "balanco_receita", formato, periodo.Ano, periodo.Mes, coug, filtro.Chave, len(pg.Linhas), start, nil)

	if formato == formatoHTMLDownload {
		nome := "Consolidado"
		if coug != "" {
			nome = pg.NomeCOUG
		}
		pg.Exportacao = true
		s.download(w, r, "balanco_orcamentario.html", pg, export.Snapshot{
			Titulo:    tituloBalanco + " - " + nome,
			Subtitulo: pg.Periodo.PeriodoCompleto + " · " + pg.FiltroDescricao,
		}, "balanco_orcamentario_receita")
		return
	}
	s.render(w, r, http.StatusOK, "balanco_orcamentario.html", pg)
}

// download renders a page and sends it as a static snapshot. The caller
// sets Pagina.Exportacao on data beforehand.
func (s *Server) download(w http.ResponseWriter, r *http.Request, tmpl string, data any, snap export.Snapshot, base string) {
	buf, err := s.renderTo(tmpl, data)
	if err != nil {
		s.renderErro(w, r, http.StatusInternalServerError, "Erro ao gerar HTML: "+err.Error())
		return
	}
	em := s.now()
	snap.GeradoEm = em
	var out bytes.Buffer
	if err := export.HTMLEstatico(&out, buf, snap); err != nil {
		log.FromContext(r.Context()).WithComponent(log.ComponentExport).ErrorContext(r.Context(), "HTML export failed",
			log.FieldError, err, log.FieldOperation, log.OpExport)
		s.renderErro(w, r, http.StatusInternalServerError, "Erro ao exportar HTML: "+err.Error())
		return
	}
	NewResponse().
		Attachment(export.NomeArquivoHTML(base, em), export.ContentTypeHTML).
		Body(out.Bytes()).
		Write(w)
}

type paginaReceitaFonte struct {
	Pagina
	Periodo   core.Periodo
	Tipo      core.TipoRelatorio
	Relatorio reports.RelatorioReceitaFonte
	Opcoes    []reports.OpcaoCOUG
	COUG      string
	Subtitulo string
	Filtro    string
	Filtros   []core.Filtro
	Anos      []int
	MesesAno  []int
}

func (s *Server) receitaFonte(r *http.Request) (reports.ParamsReceitaFonte, error) {
	q := r.URL.Query()
	tipo := q.Get("tipo")
	if tipo == "" {
		tipo = string(core.TipoReceita)
	}
	t, err := core.ParseTipo(tipo)
	if err != nil {
		return reports.ParamsReceitaFonte{}, err
	}
	periodo := ParsePeriodParams(q, s.reports.PeriodoReferencia(r.Context()))
	return reports.ParamsReceitaFonte{
		Tipo:   t,
		Ano:    periodo.Ano,
		Mes:    periodo.Mes,
		COUG:   ParseCOUG(q),
		Filtro: ParseFiltro(q).Chave,
	}, nil
}

func (s *Server) handleReceitaFonte(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, cancel := s.withTimeout(r)
	defer cancel()

	p, err := s.receitaFonte(r.WithContext(ctx))
	if err != nil {
		s.renderErro(w, r, http.StatusBadRequest, err.Error())
		return
	}
	rel, err := s.reports.ReceitaFonte(ctx, p)
	s.observe(ctx, "receita_fonte", formatoHTML, p.Ano, p.Mes, p.COUG, p.Filtro, len(rel.Dados), start, err)
	if err != nil {
		s.renderErro(w, r, http.StatusInternalServerError, "Erro ao gerar relatório: "+err.Error())
		return
	}
	cougs, err := s.reports.ListarCOUGs(ctx)
	if err != nil {
		log.FromContext(ctx).WarnContext(ctx, "COUG list unavailable", log.FieldError, err)
	}
	nome := reports.DescricaoCOUG(cougs, p.COUG)
	if p.COUG != "" && nome == "" {
		nome = s.reports.NomeCOUG(ctx, p.COUG)
	}
	s.render(w, r, http.StatusOK, "receita_fonte.html", paginaReceitaFonte{
		Pagina:    s.pagina("Receita por Fonte"),
		Periodo:   core.NewPeriodo(p.Ano, p.Mes),
		Tipo:      p.Tipo,
		Relatorio: rel,
		Opcoes:    reports.OpcoesCOUG(cougs, p.COUG),
		COUG:      p.COUG,
		Subtitulo: reports.TituloCOUG(p.COUG, nome),
		Filtro:    p.Filtro,
		Filtros:   core.Filtros(),
		Anos:      AnosDisponiveis(s.now()),
		MesesAno:  []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12},
	})
}

func (s *Server) handleAPIReceitaFonte(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, cancel := s.withTimeout(r)
	defer cancel()

	p, err := s.receitaFonte(r.WithContext(ctx))
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	rel, err := s.reports.ReceitaFonte(ctx, p)
	s.observe(ctx, "receita_fonte", formatoJSON, p.Ano, p.Mes, p.COUG, p.Filtro, len(rel.Dados), start, err)
	if err != nil {
		InternalServerError(err.Error()).Write(w)
		return
	}
	NewResponse().JSON(rel).Write(w)
}

// respostaLancamentos adds the rendered modal table to the entries.
type respostaLancamentos struct {
	reports.ResultadoLancamentos
	HTML string `json:"html"`
}

func filtroLancamentos(q url.Values) reports.FiltroLancamentos {
	return reports.FiltroLancamentos{
		Ano:        intParam(q, "ano", 0),
		Mes:        intParam(q, "mes", 0),
		COUG:       core.SanitizeCOUG(q.Get("coug")),
		CatID:      sanitizeInput(q.Get("cat_id")),
		FonteID:    sanitizeInput(q.Get("fonte_id")),
		SubfonteID: sanitizeInput(q.Get("subfonte_id")),
		AlineaID:   sanitizeInput(q.Get("alinea_id")),
		Coalinea:   sanitizeInput(q.Get("coalinea")),
		Cofonte:    sanitizeInput(q.Get("cofonte")),
	}
}

func valorRelatorio(q url.Values) *float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(q.Get("valor_relatorio")), 64)
	if err != nil {
		return nil
	}
	return &v
}

func (s *Server) handleAPILancamentos(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.withTimeout(r)
	defer cancel()
	q := r.URL.Query()
	s.respondLancamentos(w, r, q, func() (reports.ResultadoLancamentos, error) {
		return s.reports.Lancamentos(ctx, filtroLancamentos(q))
	})
}

func (s *Server) handleAPILancamentosReceitaFonte(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.withTimeout(r)
	defer cancel()
	q := r.URL.Query()
	s.respondLancamentos(w, r, q, func() (reports.ResultadoLancamentos, error) {
		return s.reports.LancamentosReceitaFonte(ctx, filtroLancamentos(q))
	})
}

func (s *Server) respondLancamentos(w http.ResponseWriter, r *http.Request, q url.Values, load func() (reports.ResultadoLancamentos, error)) {
	res, err := load()
	if errors.Is(err, reports.ErrParametrosLancamentos) {
		BadRequestError(err.Error()).Write(w)
		return
	}
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Ledger query failed", log.FieldError, err)
		InternalServerError(err.Error()).Write(w)
		return
	}
	res.ValorRelatorio = valorRelatorio(q)

	out := respostaLancamentos{ResultadoLancamentos: res}
	if buf, err := s.renderTo("lancamentos_tabela", res); err == nil {
		out.HTML = buf.String()
	} else {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Ledger table render failed", log.FieldError, err)
	}
	NewResponse().JSON(out).Write(w)
}

// downloadsHTML maps download names to the pages that support html_download.
var downloadsHTML = map[string]string{
	"balanco_orcamentario": "/relatorios/balanco-orcamentario-receita",
	"inconsistencias":      "/inconsistencias/relatorio",
}

func (s *Server) handleDownloadHTML(w http.ResponseWriter, r *http.Request) {
	destino, ok := downloadsHTML[r.PathValue("tipo")]
	if !ok {
		BadRequestError("Tipo de relatório inválido").Write(w)
		return
	}
	q := r.URL.Query()
	q.Set("formato", formatoHTMLDownload)
	http.Redirect(w, r, destino+"?"+q.Encode(), http.StatusFound)
}

// carregarSecoes runs the optional sections of a page concurrently and
// joins the errors of the ones that failed. A failed section leaves the
// page field it fills untouched.
func carregarSecoes(secoes ...func() error) error {
	errs := make([]error, len(secoes))
	var wg sync.WaitGroup
	for i, secao := range secoes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = secao()
		}()
	}
	wg.Wait()
	return errors.Join(errs...)
}
