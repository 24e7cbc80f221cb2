// Package reports builds the budget demonstratives: revenue by alínea and
// fonte, the balanço orçamentário, the RREO annexes and the inconsistency
// audit. Every aggregator runs parameterized queries through a
// storage.Repository and reshapes flat rows into hierarchies.
package reports

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"orcamento/internal/cache"
	"orcamento/internal/core"
	"orcamento/internal/dialect"
	"orcamento/internal/log"
	"orcamento/internal/storage"
)

const (
	keyPeriodo = "periodo_referencia"
	keyCOUGs   = "cougs_com_movimento"
)

// Service owns the repository and the process-wide lookup caches.
type Service struct {
	repo     storage.Repository
	logger   *log.Logger
	periodos *cache.LRUCache[core.Periodo]
	cougs    *cache.LRUCache[[]COUG]
	now      func() time.Time
}

// NewService creates a report service whose cached lookups expire after ttl.
func NewService(repo storage.Repository, logger *log.Logger, ttl time.Duration) *Service {
	if logger == nil {
		logger = log.Discard()
	}
	return &Service{
		repo:     repo,
		logger:   logger.WithComponent(log.ComponentReports),
		periodos: cache.NewLRUCache[core.Periodo](1, ttl),
		cougs:    cache.NewLRUCache[[]COUG](1, ttl),
		now:      time.Now,
	}
}

// Caches exposes the lookup caches for lifecycle management.
func (s *Service) Caches() []cache.Managed {
	return []cache.Managed{s.periodos, s.cougs}
}

// Refresh reloads the cached lookups, typically after an ETL load.
func (s *Service) Refresh(ctx context.Context) error {
	if _, err := s.periodos.Refresh(ctx, keyPeriodo, s.loadPeriodo); err != nil {
		return err
	}
	_, err := s.cougs.Refresh(ctx, keyCOUGs, func(ctx context.Context) ([]COUG, error) {
		return s.queryCOUGs(ctx, nil)
	})
	return err
}

// Repository returns the underlying repository.
func (s *Service) Repository() storage.Repository {
	return s.repo
}

func (s *Service) args() *dialect.Args {
	return dialect.NewArgs(s.repo.Dialect())
}

func (s *Service) table(schema, name string) string {
	return s.repo.SchemaQualify(schema, name)
}

// sumWhen sums col over the rows matching cond.
func sumWhen(cond, col string) string {
	return "COALESCE(SUM(CASE WHEN " + cond + " THEN " + col + " ELSE 0 END), 0)"
}

// regra returns the account range predicate of a rule; unknown rules
// match nothing.
func regra(a *dialect.Args, r core.RegraConta, col string) string {
	f, ok := core.FaixaDaRegra(r)
	if !ok {
		return "1=0"
	}
	return a.Between(col, f.Inicio, f.Fim)
}

func faixa(a *dialect.Args, f core.Faixa, col string) string {
	return a.Between(col, f.Inicio, f.Fim)
}

// filtroCond restricts a fact alias to the values of a named filter.
func filtroCond(a *dialect.Args, f core.Filtro, alias string) string {
	col := f.Campo
	if alias != "" {
		col = alias + "." + col
	}
	return col + " IN (" + a.InStrings(f.Valores) + ")"
}

func and(conds ...string) string {
	out := make([]string, 0, len(conds))
	for _, c := range conds {
		if c != "" {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return "1=1"
	}
	return strings.Join(out, " AND ")
}

func nullString(ns sql.NullString, fallback string) string {
	if ns.Valid && strings.TrimSpace(ns.String) != "" {
		return ns.String
	}
	return fallback
}
