package etl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"orcamento/internal/amqp"
	"orcamento/internal/core"
	"orcamento/internal/log"
	"orcamento/internal/sheets"
	"orcamento/internal/storage"
)

// DefaultBatchSize is the number of rows per insert transaction.
const DefaultBatchSize = 10000

// Publisher announces finished loads.
type Publisher interface {
	PublishCargaConcluida(ctx context.Context, msg *amqp.CargaConcluidaMessage) error
}

// Entrada pairs a load with the source that feeds it.
type Entrada struct {
	Carga  Carga
	Origem string
	Abrir  func(ctx context.Context) (Leitor, error)
}

// Resultado summarizes one run.
type Resultado struct {
	RunID   string
	Tabelas []string
	Linhas  int64
	Inicio  time.Time
	Fim     time.Time
}

// Runner executes loads against one repository.
type Runner struct {
	repo      storage.Repository
	destino   Destino
	batch     int
	logger    *log.Logger
	events    *log.StructuredLogger
	publisher Publisher
}

// Option configures a Runner.
type Option func(*Runner)

// WithDestino overrides the default repository sink.
func WithDestino(d Destino) Option { return func(r *Runner) { r.destino = d } }

// WithBatchSize sets the rows per insert transaction.
func WithBatchSize(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.batch = n
		}
	}
}

// WithPublisher announces every successful run.
func WithPublisher(p Publisher) Option { return func(r *Runner) { r.publisher = p } }

func NewRunner(repo storage.Repository, logger *log.Logger, opts ...Option) *Runner {
	if logger == nil {
		logger = log.Discard()
	}
	r := &Runner{
		repo:    repo,
		destino: NovoDestinoRepositorio(repo),
		batch:   DefaultBatchSize,
		logger:  logger.WithComponent(log.ComponentETL),
	}
	for _, o := range opts {
		o(r)
	}
	r.events = log.NewStructuredLogger(r.logger)
	return r
}

// Executar runs every entry in order. dim_tempo is rebuilt whenever
// fato_saldos was reloaded. The first failure aborts the run.
func (r *Runner) Executar(ctx context.Context, entradas []Entrada) (*Resultado, error) {
	res := &Resultado{RunID: uuid.NewString(), Inicio: time.Now()}
	logger := r.logger.With(log.FieldRunID, res.RunID)
	logger.InfoContext(ctx, "ETL run started", "entradas", len(entradas))

	saldos := false
	for _, e := range entradas {
		l, err := e.Abrir(ctx)
		if err != nil {
			return res, fmt.Errorf("abrir %s: %w", e.Origem, err)
		}
		inicio := time.Now()
		n, descartadas, err := r.carregar(ctx, e.Carga, l)
		l.Close()
		if err != nil {
			r.events.LogError(ctx, "Load failed", err, log.OpLoad,
				log.NewFields().WithLoad(res.RunID, e.Carga.Tabela, n))
			return res, fmt.Errorf("carregar %s: %w", e.Origem, err)
		}
		r.events.LogLoad(ctx, res.RunID, e.Carga.Tabela, e.Origem, n, descartadas, time.Since(inicio))
		res.Tabelas = append(res.Tabelas, e.Carga.Tabela)
		res.Linhas += n
		if e.Carga.Tabela == "fato_saldos" {
			saldos = true
		}
	}

	if saldos {
		n, err := r.GerarDimTempo(ctx)
		if err != nil {
			return res, err
		}
		res.Tabelas = append(res.Tabelas, "dim_tempo")
		res.Linhas += n
	}

	res.Fim = time.Now()
	logger.InfoContext(ctx, "ETL run finished",
		"tabelas", strings.Join(res.Tabelas, ","),
		log.FieldLinhas, res.Linhas,
		log.FieldDuration, res.Fim.Sub(res.Inicio).Milliseconds())

	if r.publisher != nil && len(res.Tabelas) > 0 {
		msg := amqp.NewCargaConcluidaMessage(res.RunID, r.repo.Dialect().Name(), res.Tabelas, res.Linhas, res.Inicio)
		if err := r.publisher.PublishCargaConcluida(ctx, msg); err != nil {
			logger.WarnContext(ctx, "Failed to publish load notification", "error", err)
		}
	}
	return res, nil
}

// Carregar truncates the table of c and reloads it from l in batches,
// then creates the table indexes. Rows without a valid period or key are
// dropped.
func (r *Runner) Carregar(ctx context.Context, c Carga, l Leitor) (int64, error) {
	n, _, err := r.carregar(ctx, c, l)
	return n, err
}

func (r *Runner) carregar(ctx context.Context, c Carga, l Leitor) (linhas, descartadas int64, err error) {
	logger := r.logger.With(log.FieldTabela, c.Tabela)
	if err := r.destino.Truncar(ctx, c.Tabela); err != nil {
		return 0, 0, err
	}

	converter := c.Converter()
	idx := novoIndice(l.Cabecalho())
	lote := make([][]any, 0, r.batch)

	flush := func() error {
		if len(lote) == 0 {
			return nil
		}
		if err := r.destino.Inserir(ctx, c.Tabela, c.Colunas, lote); err != nil {
			return err
		}
		linhas += int64(len(lote))
		lote = lote[:0]
		logger.DebugContext(ctx, "Batch written", log.FieldLinhas, linhas)
		return nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return linhas, descartadas, err
		}
		valores, err := l.Proximo()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return linhas, descartadas, err
		}
		reg := Registro{indice: idx, valores: valores}
		if reg.Vazio() {
			continue
		}
		linha, err := converter(reg)
		if errors.Is(err, errDescartada) {
			descartadas++
			continue
		}
		if err != nil {
			return linhas, descartadas, err
		}
		lote = append(lote, linha)
		if len(lote) >= r.batch {
			if err := flush(); err != nil {
				return linhas, descartadas, err
			}
		}
	}
	if err := flush(); err != nil {
		return linhas, descartadas, err
	}

	if err := criarIndices(ctx, r.repo, c.Tabela, c.Indices); err != nil {
		return linhas, descartadas, err
	}
	return linhas, descartadas, nil
}

// GerarDimTempo rebuilds dim_tempo from the periods present in fato_saldos.
func (r *Runner) GerarDimTempo(ctx context.Context) (int64, error) {
	q := "SELECT DISTINCT coexercicio, inmes FROM " + r.repo.SchemaQualify(storage.SchemaSaldos, "fato_saldos") +
		" ORDER BY coexercicio, inmes"
	rows, err := r.repo.QueryRows(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("query periods: %w", err)
	}
	var linhas [][]any
	for rows.Next() {
		var ano, mes int64
		if err := rows.Scan(&ano, &mes); err != nil {
			rows.Close()
			return 0, err
		}
		linhas = append(linhas, []any{ano, mes, ano*100 + mes, core.NomeMes(int(mes))})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	if err := r.destino.Truncar(ctx, "dim_tempo"); err != nil {
		return 0, err
	}
	if err := r.destino.Inserir(ctx, "dim_tempo", []string{"coexercicio", "inmes", "periodo", "nome_mes"}, linhas); err != nil {
		return 0, err
	}
	r.logger.InfoContext(ctx, "dim_tempo rebuilt", log.FieldLinhas, len(linhas))
	return int64(len(linhas)), nil
}

var arquivosFato = []string{"ReceitaSaldo", "ReceitaLancamento", "DespesaSaldo", "DespesaLancamento"}

// PlanejarDiretorio lists the loads found in dir: the four fact extracts
// (xlsx preferred over csv) and every known file under dimensao/.
// Missing facts and unknown dimension files are logged and skipped.
func PlanejarDiretorio(dir string, logger *log.Logger) ([]Entrada, error) {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentETL)

	arquivos, err := listarPlanilhas(dir)
	if err != nil {
		return nil, err
	}
	var entradas []Entrada

	if dims, err := listarPlanilhas(filepath.Join(dir, "dimensao")); err == nil {
		nomes := make([]string, 0, len(dims))
		for n := range dims {
			nomes = append(nomes, n)
		}
		sort.Strings(nomes)
		for _, n := range nomes {
			path := dims[n]
			tabela, ok := TabelaDimensao(path)
			if !ok {
				logger.Warn("Unknown dimension file skipped", log.FieldArquivo, filepath.Base(path))
				continue
			}
			c, _ := CargaDimensao(tabela)
			entradas = append(entradas, entradaArquivo(c, path))
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	for _, nome := range arquivosFato {
		path, ok := arquivos[Slug(nome)]
		if !ok {
			logger.Warn("Source file not found", log.FieldArquivo, nome)
			continue
		}
		c, _ := CargaPorNome(nome)
		entradas = append(entradas, entradaArquivo(c, path))
	}
	return entradas, nil
}

// EntradaPlanilha feeds the load named after the sheet of rng.
func EntradaPlanilha(src sheets.RangeReader, rng string) (Entrada, error) {
	nome := sheets.SheetName(rng)
	c, ok := CargaPorNome(nome)
	if !ok {
		return Entrada{}, fmt.Errorf("nenhuma carga para a aba %q", nome)
	}
	return Entrada{
		Carga:  c,
		Origem: "sheets:" + rng,
		Abrir: func(ctx context.Context) (Leitor, error) {
			return LerPlanilha(ctx, src, rng)
		},
	}, nil
}

func entradaArquivo(c Carga, path string) Entrada {
	return Entrada{
		Carga:  c,
		Origem: filepath.Base(path),
		Abrir:  func(context.Context) (Leitor, error) { return AbrirArquivo(path) },
	}
}

// listarPlanilhas maps the slug of each csv/xlsx stem in dir to its path.
func listarPlanilhas(dir string) (map[string]string, error) {
	des, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string)
	for _, de := range des {
		if de.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(de.Name()))
		if ext != ".xlsx" && ext != ".csv" {
			continue
		}
		slug := Slug(strings.TrimSuffix(de.Name(), filepath.Ext(de.Name())))
		if prev, ok := out[slug]; ok && strings.EqualFold(filepath.Ext(prev), ".xlsx") {
			continue
		}
		out[slug] = filepath.Join(dir, de.Name())
	}
	return out, nil
}
