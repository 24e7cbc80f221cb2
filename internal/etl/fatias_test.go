package etl

import "testing"

func TestFatiarReceita(t *testing.T) {
	got := FatiarReceita(" 11125001150000000 ")
	want := FatiasReceita{
		Categoria: "1",
		Fonte:     "11",
		Subfonte:  "111",
		Rubrica:   "1112",
		Alinea:    "111250",
		Cofonte:   "150000000",
	}
	if got != want {
		t.Errorf("FatiarReceita() = %+v, want %+v", got, want)
	}

	curto := FatiarReceita("1112")
	if curto.Rubrica != "1112" || curto.Alinea != "1112" || curto.Cofonte != "" {
		t.Errorf("FatiarReceita(short) = %+v", curto)
	}
}

func TestFatiarDespesa(t *testing.T) {
	const cc38 = "1" + "13101" + "10" + "302" + "0001" + "2001" + "0001" + "150000000" + "339030"

	f, ok := FatiarDespesa(cc38)
	if !ok {
		t.Fatal("FatiarDespesa(38) not ok")
	}
	checks := map[string][2]string{
		"esfera":     {f.Esfera, "1"},
		"uo":         {f.UO, "13101"},
		"funcao":     {f.Funcao, "10"},
		"subfuncao":  {f.Subfuncao, "302"},
		"programa":   {f.Programa, "0001"},
		"projeto":    {f.Projeto, "2001"},
		"subtitulo":  {f.Subtitulo, "0001"},
		"fonte":      {f.Fonte, "150000000"},
		"natureza":   {f.Natureza, "339030"},
		"categoria":  {f.Categoria, "3"},
		"grupo":      {f.Grupo, "3"},
		"modalidade": {f.Modalidade, "90"},
		"elemento":   {f.Elemento, "30"},
	}
	for name, c := range checks {
		if c[0] != c[1] {
			t.Errorf("%s = %q, want %q", name, c[0], c[1])
		}
	}
	if f.Subelemento != "" || f.ClasseOrc != "" {
		t.Errorf("38 chars should not fill subelemento/classe: %+v", f)
	}

	f40, ok := FatiarDespesa(cc38 + "07")
	if !ok || f40.Subelemento != "07" || f40.ClasseOrc != "33903007" {
		t.Errorf("FatiarDespesa(40) = %+v, %v", f40, ok)
	}

	for _, cc := range []string{"", "123", cc38 + "0"} {
		if _, ok := FatiarDespesa(cc); ok {
			t.Errorf("FatiarDespesa(%q) should not be ok", cc)
		}
	}
}
