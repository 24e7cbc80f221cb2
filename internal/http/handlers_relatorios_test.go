package http

import (
	"errors"
	"testing"
)

func TestCarregarSecoes(t *testing.T) {
	errComparativo := errors.New("comparativo mensal: db down")
	errCOUGs := errors.New("lista de COUGs: timeout")

	var linhas, cards int
	err := carregarSecoes(
		func() error { linhas = 3; return nil },
		func() error { return errComparativo },
		func() error { cards = 2; return nil },
		func() error { return errCOUGs },
	)

	if linhas != 3 || cards != 2 {
		t.Errorf("sections that succeeded were not applied: linhas=%d cards=%d", linhas, cards)
	}
	if !errors.Is(err, errComparativo) || !errors.Is(err, errCOUGs) {
		t.Fatalf("err = %v, want both section errors", err)
	}
}

func TestCarregarSecoesAllOK(t *testing.T) {
	if err := carregarSecoes(func() error { return nil }, func() error { return nil }); err != nil {
		t.Fatalf("err = %v", err)
	}
	if err := carregarSecoes(); err != nil {
		t.Fatalf("no sections: err = %v", err)
	}
}
