package etl

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"orcamento/internal/amqp"
	"orcamento/internal/storage"
	"orcamento/internal/storage/storagetest"
)

type fakePublisher struct {
	msgs []*amqp.CargaConcluidaMessage
}

func (p *fakePublisher) PublishCargaConcluida(_ context.Context, msg *amqp.CargaConcluidaMessage) error {
	p.msgs = append(p.msgs, msg)
	return nil
}

type fakeRanges map[string][][]string

func (f fakeRanges) ReadRange(_ context.Context, rng string) ([][]string, error) {
	return f[rng], nil
}

func escreverEntradas(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "dimensao"), 0o755); err != nil {
		t.Fatal(err)
	}
	escrever(t, dir, "ReceitaSaldo.csv", []byte(
		"COEXERCICIO;INMES;COUG;COCONTACONTABIL;COCONTACORRENTE;INTIPOADM;VADEBITO;VACREDITO\n"+
			"2025;1;130101;621200000;11125001150000000;1;0;1.000,50\n"+
			"2025;2;130101;621200000;11125001150000000;1;10;110\n"+
			"2025;2;130101;521100000;11125001150000000;;500;0\n"+
			";;;;;;;\n"+
			"xx;2;130101;521100000;11125001150000000;;500;0\n"))
	escrever(t, dir, "ReceitaLancamento.csv", []byte(
		"COEXERCICIO;INMES;COUG;COUGCONTAB;NUDOCUMENTO;COEVENTO;COCONTACONTABIL;COCONTACORRENTE;VALANCAMENTO;INDEBITOCREDITO\n"+
			"2025;1;130101;130101;2025NL0001;500100;621200000;11125001150000000;10,50;c\n"))
	escrever(t, dir, "DespesaSaldo.csv", []byte(
		"COEXERCICIO;INMES;COUG;COCONTACONTABIL;COCONTACORRENTE;VADEBITO;VACREDITO;COFUNCAO\n"+
			"2025;1;130101;522920101;1131011030200012001000115000000033903007;200;50;99\n"))
	escrever(t, dir, "dimensao/unidadegestora.csv", []byte("COUG;NOUG\n130101;Saúde\n130101;Duplicada\n130201;Educação\n"))
	escrever(t, dir, "dimensao/fonte.csv", []byte("cofonte,nofonte\n150000000,Recursos Ordinários\n"))
	escrever(t, dir, "dimensao/desconhecido.csv", []byte("a;b\n1;2\n"))
	return dir
}

func contar(t *testing.T, repo storage.Repository, schema, tabela string) int {
	t.Helper()
	var n int
	if err := repo.QueryRow(context.Background(), "SELECT COUNT(*) FROM "+repo.SchemaQualify(schema, tabela)).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", tabela, err)
	}
	return n
}

func TestPlanejarDiretorio(t *testing.T) {
	dir := escreverEntradas(t)

	entradas, err := PlanejarDiretorio(dir, nil)
	if err != nil {
		t.Fatalf("PlanejarDiretorio() error = %v", err)
	}
	var tabelas []string
	for _, e := range entradas {
		tabelas = append(tabelas, e.Carga.Tabela)
	}
	want := []string{"fontes", "unidades_gestoras", "fato_saldos", "lancamentos", "fato_saldo_despesa"}
	if !reflect.DeepEqual(tabelas, want) {
		t.Errorf("tabelas = %v, want %v", tabelas, want)
	}
}

func TestPlanejarDiretorio_Missing(t *testing.T) {
	if _, err := PlanejarDiretorio(filepath.Join(t.TempDir(), "nada"), nil); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestRunner_Executar(t *testing.T) {
	ctx := context.Background()
	repo := storagetest.NewSQLite(t)
	pub := &fakePublisher{}
	runner := NewRunner(repo, nil, WithBatchSize(1), WithPublisher(pub))

	entradas, err := PlanejarDiretorio(escreverEntradas(t), nil)
	if err != nil {
		t.Fatal(err)
	}
	res, err := runner.Executar(ctx, entradas)
	if err != nil {
		t.Fatalf("Executar() error = %v", err)
	}
	if res.RunID == "" {
		t.Error("RunID should be set")
	}
	// 3 dimension rows, 3 saldos, 1 lancamento, 1 despesa, 2 periods
	if res.Linhas != 10 {
		t.Errorf("Linhas = %d, want 10", res.Linhas)
	}

	if got := contar(t, repo, storage.SchemaSaldos, "fato_saldos"); got != 3 {
		t.Errorf("fato_saldos = %d, want 3", got)
	}
	if got := contar(t, repo, storage.SchemaDimensoes, "unidades_gestoras"); got != 2 {
		t.Errorf("unidades_gestoras = %d, want 2", got)
	}
	if got := contar(t, repo, storage.SchemaSaldos, "dim_tempo"); got != 2 {
		t.Errorf("dim_tempo = %d, want 2", got)
	}

	var saldo float64
	var alinea, cofonte string
	err = repo.QueryRow(ctx, "SELECT saldo_contabil, coalinea, cofonte FROM fato_saldos WHERE inmes = 1").Scan(&saldo, &alinea, &cofonte)
	if err != nil {
		t.Fatal(err)
	}
	if saldo != 1000.5 || alinea != "111250" || cofonte != "150000000" {
		t.Errorf("saldo row = %v %q %q", saldo, alinea, cofonte)
	}

	var nome string
	var periodo int
	if err := repo.QueryRow(ctx, "SELECT nome_mes, periodo FROM dim_tempo WHERE inmes = 2").Scan(&nome, &periodo); err != nil {
		t.Fatal(err)
	}
	if nome != "Fevereiro" || periodo != 202502 {
		t.Errorf("dim_tempo = %q %d", nome, periodo)
	}

	var funcao, natureza, classe string
	var saldoDespesa float64
	err = repo.QueryRow(ctx, "SELECT cofuncao, conatureza, coclasseorc, saldo_contabil_despesa FROM "+
		repo.SchemaQualify(storage.SchemaDespesa, "fato_saldo_despesa")).Scan(&funcao, &natureza, &classe, &saldoDespesa)
	if err != nil {
		t.Fatal(err)
	}
	if funcao != "99" || natureza != "339030" || classe != "33903007" || saldoDespesa != 150 {
		t.Errorf("despesa row = %q %q %q %v", funcao, natureza, classe, saldoDespesa)
	}

	var dc string
	if err := repo.QueryRow(ctx, "SELECT indebitocredito FROM "+repo.SchemaQualify(storage.SchemaLancamentos, "lancamentos")).Scan(&dc); err != nil {
		t.Fatal(err)
	}
	if dc != "C" {
		t.Errorf("indebitocredito = %q, want C", dc)
	}

	if len(pub.msgs) != 1 || pub.msgs[0].RunID != res.RunID || pub.msgs[0].Backend != "sqlite" {
		t.Errorf("published = %+v", pub.msgs)
	}
}

func TestRunner_ReloadReplacesRows(t *testing.T) {
	ctx := context.Background()
	repo := storagetest.NewSQLite(t)
	runner := NewRunner(repo, nil)
	dir := escreverEntradas(t)

	for i := 0; i < 2; i++ {
		entradas, err := PlanejarDiretorio(dir, nil)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := runner.Executar(ctx, entradas); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}
	if got := contar(t, repo, storage.SchemaSaldos, "fato_saldos"); got != 3 {
		t.Errorf("fato_saldos after reload = %d, want 3", got)
	}
}

func TestEntradaPlanilha(t *testing.T) {
	ctx := context.Background()
	repo := storagetest.NewSQLite(t)
	src := fakeRanges{
		"unidades_gestoras!A:B": {{"COUG", "NOUG"}, {"130101", "Saúde"}},
	}

	e, err := EntradaPlanilha(src, "unidades_gestoras!A:B")
	if err != nil {
		t.Fatalf("EntradaPlanilha() error = %v", err)
	}
	res, err := NewRunner(repo, nil).Executar(ctx, []Entrada{e})
	if err != nil {
		t.Fatal(err)
	}
	if res.Linhas != 1 || !reflect.DeepEqual(res.Tabelas, []string{"unidades_gestoras"}) {
		t.Errorf("res = %+v", res)
	}

	if _, err := EntradaPlanilha(src, "desconhecida!A:B"); err == nil {
		t.Error("expected error for unknown sheet")
	}
}

func TestCargaPorNome(t *testing.T) {
	tests := map[string]string{
		"ReceitaSaldo":      "fato_saldos",
		"fato_saldos":       "fato_saldos",
		"DespesaLancamento": "fato_lancamento_despesa",
		"receita_alinea":    "alineas",
		"contas":            "contas",
	}
	for nome, want := range tests {
		c, ok := CargaPorNome(nome)
		if !ok || c.Tabela != want {
			t.Errorf("CargaPorNome(%q) = %q, %v; want %q", nome, c.Tabela, ok, want)
		}
	}
	if _, ok := CargaPorNome("outra"); ok {
		t.Error("CargaPorNome(outra) should fail")
	}
}
