package dialect

import (
	"reflect"
	"testing"
)

func TestPlaceholders(t *testing.T) {
	cases := []struct {
		d    Dialect
		want string
	}{
		{SQLite(), "coug = ?1 AND inmes IN (?2, ?3) AND conta BETWEEN ?4 AND ?5"},
		{Postgres(), "coug = $1 AND inmes IN ($2, $3) AND conta BETWEEN $4 AND $5"},
	}
	for _, tc := range cases {
		a := NewArgs(tc.d)
		got := "coug = " + a.Add("130101") +
			" AND inmes IN (" + a.InInts([]int{1, 2}) + ")" +
			" AND " + a.Between("conta", "621200000", "621399999")
		if got != tc.want {
			t.Errorf("%s: got %q, want %q", tc.d.Name(), got, tc.want)
		}
		want := []any{"130101", 1, 2, "621200000", "621399999"}
		if !reflect.DeepEqual(a.Values(), want) {
			t.Errorf("%s: values %v", tc.d.Name(), a.Values())
		}
	}
}

func TestBetweenSingleValue(t *testing.T) {
	a := NewArgs(Postgres())
	if got := a.Between("c", "621200000", "621200000"); got != "c = $1" {
		t.Fatalf("got %q", got)
	}
}

func TestInEmpty(t *testing.T) {
	a := NewArgs(SQLite())
	if got := a.In(); got != "NULL" || a.Len() != 0 {
		t.Fatalf("got %q with %d values", got, a.Len())
	}
}

func TestCastsAndQualify(t *testing.T) {
	s, p := SQLite(), Postgres()
	if s.CastInt("coug") != "CAST(coug AS INTEGER)" || p.CastInt("coug") != "(coug)::integer" {
		t.Fatalf("CastInt mismatch")
	}
	if s.CastText("x") != "CAST(x AS TEXT)" || p.CastText("x") != "(x)::text" {
		t.Fatalf("CastText mismatch")
	}
	if s.Qualify("dimensoes", "categorias") != "dimensoes.categorias" {
		t.Fatalf("sqlite qualify")
	}
	if s.Qualify("main", "fato_saldos") != "fato_saldos" {
		t.Fatalf("sqlite main qualify")
	}
	if p.Qualify("dimensoes", "categorias") != "categorias" {
		t.Fatalf("postgres qualify")
	}
	if s.QuoteIdent(`a"b`) != `"a""b"` {
		t.Fatalf("QuoteIdent")
	}
}

func TestDeterministicOutput(t *testing.T) {
	build := func() string {
		a := NewArgs(Postgres())
		return a.Add(1) + a.In("x", "y") + Postgres().Qualify("lancamentos_db", "lancamentos")
	}
	if build() != build() {
		t.Fatalf("output must be deterministic")
	}
}

func TestForName(t *testing.T) {
	if d, err := ForName("postgres"); err != nil || d.Name() != NamePostgres {
		t.Fatalf("ForName(postgres) = %v, %v", d, err)
	}
	if _, err := ForName("mysql"); err == nil {
		t.Fatalf("expected error")
	}
}
