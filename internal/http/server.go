package http

import (
	"bytes"
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"sync"
	"time"

	"orcamento/internal/cache"
	"orcamento/internal/log"
	"orcamento/internal/metrics"
	"orcamento/internal/middleware/ratelimit"
	"orcamento/internal/middleware/security"
	"orcamento/internal/middleware/trace"
	"orcamento/internal/reports"
	"orcamento/internal/visualizador"
	appweb "orcamento/web"
)

const defaultQueryTimeout = 30 * time.Second

// Deps are the collaborators of the HTTP server. Metrics, CacheManager and
// Logger may be nil.
type Deps struct {
	Reports      *reports.Service
	Browser      *visualizador.Browser
	Metrics      *metrics.Metrics
	CacheManager *cache.Manager
	Logger       *log.Logger

	QueryTimeout       time.Duration
	RateLimitPerMinute int
}

type Server struct {
	http.Server
	templates    *template.Template
	reports      *reports.Service
	browser      *visualizador.Browser
	metrics      *metrics.Metrics
	cacheManager *cache.Manager

	limiter  *ratelimit.Limiter
	detector *security.Detector
	trace    *trace.Middleware
	headers  *security.HeadersMiddleware

	logger       *log.Logger
	structured   *log.StructuredLogger
	queryTimeout time.Duration
	startedAt    time.Time
	now          func() time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, d Deps) *Server {
	logger := d.Logger
	if logger == nil {
		logger = log.Discard()
	}
	httpLogger := logger.WithComponent(log.ComponentHTTP)

	rlConfig := ratelimit.DefaultConfig()
	if d.RateLimitPerMinute > 0 {
		rlConfig.RequestsPerMinute = d.RateLimitPerMinute
	}

	s := &Server{
		reports:      d.Reports,
		browser:      d.Browser,
		metrics:      d.Metrics,
		cacheManager: d.CacheManager,
		limiter:      ratelimit.NewLimiter(rlConfig),
		detector:     security.NewDetector(),
		headers:      security.NewHeadersMiddleware(security.DefaultHeadersConfig()),
		logger:       httpLogger,
		structured:   log.NewStructuredLogger(logger.WithComponent(log.ComponentReports)),
		queryTimeout: d.QueryTimeout,
		startedAt:    time.Now(),
		now:          time.Now,
	}
	if s.queryTimeout <= 0 {
		s.queryTimeout = defaultQueryTimeout
	}
	s.trace = trace.NewMiddleware(s.detector.ExtractClientIP, logger)

	t, err := template.New("").Funcs(templateFuncs()).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.WithComponent(log.ComponentTemplate).Error("Failed parsing templates", log.FieldError, err)
		t = nil
	}
	s.templates = t

	mux := http.NewServeMux()
	s.routes(mux)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.middleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.queryTimeout + 30*time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	s.handle(mux, "GET /{$}", "index", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/relatorios/", http.StatusFound)
	})

	s.handle(mux, "GET /relatorios/{$}", "relatorios_index", s.handleIndex)
	s.handle(mux, "GET /relatorios/balanco-orcamentario-receita", "balanco", s.handleBalanco)
	s.handle(mux, "GET /relatorios/api/lancamentos", "api_lancamentos", s.handleAPILancamentos)
	s.handle(mux, "GET /relatorios/balanco-orcamentario-receita/lancamentos", "api_lancamentos", s.handleAPILancamentos)
	s.handle(mux, "GET /relatorios/api/lancamentos-receita-fonte", "api_lancamentos_receita_fonte", s.handleAPILancamentosReceitaFonte)
	s.handle(mux, "GET /relatorios/api/relatorio-receita-fonte", "api_receita_fonte", s.handleAPIReceitaFonte)
	s.handle(mux, "GET /relatorios/receita-fonte", "receita_fonte", s.handleReceitaFonte)
	s.handle(mux, "GET /relatorios/download-html/{tipo}", "download_html", s.handleDownloadHTML)

	s.handle(mux, "GET /rreo/anexo2", "rreo_anexo2", s.handleAnexo2)
	s.handle(mux, "GET /rreo/balanco-intra", "rreo_balanco_intra", s.handleBalancoIntra)
	s.handle(mux, "GET /rreo/despesa-funcional-intra", "rreo_despesa_funcional_intra", s.handleDespesaFuncionalIntra)

	s.handle(mux, "GET /inconsistencias/relatorio", "inconsistencias", s.handleInconsistencias)

	s.handle(mux, "GET /visualizador/{$}", "visualizador_index", s.handleVisualizadorIndex)
	s.handle(mux, "GET /visualizador/estrutura/{db}", "visualizador_estrutura", s.handleVisualizadorEstrutura)
	s.handle(mux, "GET /visualizador/dados/{db}/{table}", "visualizador_dados", s.handleVisualizadorDados)
	s.handle(mux, "GET /visualizador/exportar/{db}/{table}", "visualizador_exportar", s.handleVisualizadorExportar)
	s.handle(mux, "GET /visualizador/query", "visualizador_query", s.handleVisualizadorQueryForm)
	s.handle(mux, "POST /visualizador/query", "visualizador_query", s.handleVisualizadorQuery)

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}
}

func (s *Server) handle(mux *http.ServeMux, pattern, route string, h http.HandlerFunc) {
	mux.Handle(pattern, s.metrics.Middleware(route, h))
}

// middleware wraps the mux. Outermost first: tracing, request logger,
// security headers, threat blocking, rate limiting.
func (s *Server) middleware(next http.Handler) http.Handler {
	limited := s.limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimited)(next)
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if exemptFromRateLimit(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		limited.ServeHTTP(w, r)
	})
	return s.trace.Middleware(
		log.Middleware(s.logger, trace.RequestIDFromRequest)(
			s.headers.Middleware(
				s.blockThreats(h))))
}

func exemptFromRateLimit(path string) bool {
	switch path {
	case "/health", "/ready", "/metrics":
		return true
	}
	return strings.HasPrefix(path, "/static/")
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	s.metrics.RateLimited()
	log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldPath, r.URL.Path)
}

func (s *Server) blockThreats(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		threat := s.detector.Detect(r)
		if threat == security.ThreatNone {
			next.ServeHTTP(w, r)
			return
		}
		logger := log.FromContext(r.Context()).WithComponent(log.ComponentSecurity)
		if !threat.Blocking() {
			logger.WarnContext(r.Context(), "Suspicious request",
				log.FieldThreat, string(threat),
				log.FieldClientIP, s.detector.ExtractClientIP(r),
				log.FieldUserAgent, r.Header.Get("User-Agent"))
			next.ServeHTTP(w, r)
			return
		}
		s.metrics.Blocked(string(threat))
		logger.WarnContext(r.Context(), "Request blocked",
			log.FieldThreat, string(threat),
			log.FieldClientIP, s.detector.ExtractClientIP(r),
			log.FieldPath, r.URL.Path)
		http.Error(w, "Requisição bloqueada", http.StatusForbidden)
	})
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// withTimeout bounds report queries by the configured query timeout.
func (s *Server) withTimeout(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.queryTimeout)
}

// renderTo executes a template into a buffer so a failure never leaves a
// half-written page.
func (s *Server) renderTo(name string, data any) (*bytes.Buffer, error) {
	if s.templates == nil {
		return nil, errTemplatesNotLoaded
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, err
	}
	return &buf, nil
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	buf, err := s.renderTo(name, data)
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			log.FieldError, err,
			log.FieldTemplate, name,
			log.FieldOperation, log.OpRender,
			log.FieldErrorType, log.ErrorTypeInternal)
		http.Error(w, "Erro ao renderizar página", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentTypeHTML)
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// renderErro shows erro.html with the message.
func (s *Server) renderErro(w http.ResponseWriter, r *http.Request, status int, mensagem string) {
	s.render(w, r, status, "erro.html", paginaErro{
		Pagina:   s.pagina("Erro"),
		Mensagem: mensagem,
	})
}
