package reports

import (
	"context"
	"database/sql"
	"fmt"

	"orcamento/internal/core"
	"orcamento/internal/storage"
)

// PeriodoReferencia returns the latest year/month present in the balances,
// falling back to the ledger and then to the current month.
func (s *Service) PeriodoReferencia(ctx context.Context) core.Periodo {
	p, err := s.periodos.GetOrLoad(ctx, keyPeriodo, s.loadPeriodo)
	if err != nil {
		s.logger.WarnContext(ctx, "Reference period unavailable, using current month", "error", err)
		return core.PeriodoAtual(s.now())
	}
	return p
}

func (s *Service) loadPeriodo(ctx context.Context) (core.Periodo, error) {
	sources := []string{
		s.table(storage.SchemaSaldos, "fato_saldos"),
		s.table(storage.SchemaLancamentos, "lancamentos"),
	}
	for _, src := range sources {
		var max sql.NullInt64
		q := "SELECT MAX(coexercicio * 100 + inmes) FROM " + src
		if err := s.repo.QueryRow(ctx, q).Scan(&max); err != nil {
			return core.Periodo{}, fmt.Errorf("query reference period from %s: %w", src, err)
		}
		if max.Valid && max.Int64 > 0 {
			return core.NewPeriodo(int(max.Int64/100), int(max.Int64%100)), nil
		}
	}
	return core.PeriodoAtual(s.now()), nil
}
