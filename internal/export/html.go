package export

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

const ContentTypeHTML = "text/html; charset=utf-8"

// Seletores of elements removed from a static snapshot.
var seletoresRemovidos = []string{
	"script",
	"noscript",
	"button",
	"form",
	"input",
	"select",
	".modal",
	".modal-backdrop",
	".loading",
	".loader",
	".spinner",
	".no-print",
	"[data-export=ignore]",
}

// Snapshot describes the page being exported.
type Snapshot struct {
	Titulo    string
	Subtitulo string
	GeradoEm  time.Time
}

// NomeArquivoHTML is the download name of a static snapshot.
func NomeArquivoHTML(base string, em time.Time) string {
	base = strings.TrimSuffix(base, ".html")
	if base == "" {
		base = "relatorio"
	}
	return fmt.Sprintf("%s_%s.html", base, em.Format("20060102_150405"))
}

// HTMLEstatico turns a rendered report page into a self-contained, printable
// document: interactive elements and event handlers are stripped, links
// become spans and the main content is wrapped with header and footer.
func HTMLEstatico(w io.Writer, pagina io.Reader, s Snapshot) error {
	doc, err := goquery.NewDocumentFromReader(pagina)
	if err != nil {
		return fmt.Errorf("parse page: %w", err)
	}
	limparDocumento(doc)

	conteudo := doc.Find("main").First()
	if conteudo.Length() == 0 {
		conteudo = doc.Find("body").First()
	}
	corpo, err := conteudo.Html()
	if err != nil {
		return fmt.Errorf("render content: %w", err)
	}

	if s.Titulo == "" {
		s.Titulo = strings.TrimSpace(doc.Find("title").First().Text())
	}
	if s.GeradoEm.IsZero() {
		s.GeradoEm = time.Now()
	}

	var buf bytes.Buffer
	err = documentoEstatico.Execute(&buf, struct {
		Snapshot
		Conteudo template.HTML
		Data     string
	}{s, template.HTML(corpo), s.GeradoEm.Format("02/01/2006 15:04:05")})
	if err != nil {
		return fmt.Errorf("render snapshot: %w", err)
	}
	_, err = buf.WriteTo(w)
	return err
}

func limparDocumento(doc *goquery.Document) {
	doc.Find(strings.Join(seletoresRemovidos, ", ")).Remove()

	doc.Find("a").Each(func(_ int, a *goquery.Selection) {
		inner, _ := a.Html()
		span := `<span class="link-exportado">` + inner + `</span>`
		a.ReplaceWithHtml(span)
	})

	doc.Find("*").Each(func(_ int, sel *goquery.Selection) {
		for _, n := range sel.Nodes {
			n.Attr = semEventos(n.Attr)
		}
	})
}

func semEventos(attrs []html.Attribute) []html.Attribute {
	out := attrs[:0]
	for _, a := range attrs {
		if strings.HasPrefix(strings.ToLower(a.Key), "on") {
			continue
		}
		if a.Key == "href" && strings.HasPrefix(strings.ToLower(strings.TrimSpace(a.Val)), "javascript:") {
			continue
		}
		out = append(out, a)
	}
	return out
}

var documentoEstatico = template.Must(template.New("snapshot").Parse(`<!DOCTYPE html>
<html lang="pt-BR">
<head>
<meta charset="utf-8">
<title>{{.Titulo}}</title>
<style>
body { font-family: Arial, Helvetica, sans-serif; font-size: 12px; color: #222; margin: 24px; }
header.exportacao { border-bottom: 2px solid #1e3c72; margin-bottom: 16px; padding-bottom: 8px; }
header.exportacao h1 { color: #1e3c72; font-size: 18px; margin: 0; }
header.exportacao p { margin: 4px 0 0; color: #555; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #ccc; padding: 4px 6px; }
th { background: #1e3c72; color: #fff; }
td.valor, td.numero { text-align: right; white-space: nowrap; }
tr.nivel-0, tr.total { font-weight: bold; background: #eef2f8; }
tr.nivel-1 td:nth-child(2) { padding-left: 20px; }
tr.nivel-2 td:nth-child(2) { padding-left: 40px; }
tr.nivel-3 td:nth-child(2) { padding-left: 60px; }
.positivo { color: #1b7f3b; }
.negativo { color: #c0392b; }
.link-exportado { color: inherit; text-decoration: none; }
footer.exportacao { border-top: 1px solid #ccc; margin-top: 24px; padding-top: 8px; color: #777; font-size: 10px; text-align: center; }
@media print { body { margin: 0; } tr { page-break-inside: avoid; } }
</style>
</head>
<body>
<header class="exportacao">
<h1>{{.Titulo}}</h1>
{{if .Subtitulo}}<p>{{.Subtitulo}}</p>{{end}}
<p>Gerado em {{.Data}}</p>
</header>
<main>
{{.Conteudo}}
</main>
<footer class="exportacao">Documento gerado automaticamente pelo sistema de relatórios orçamentários em {{.Data}}</footer>
</body>
</html>
`))
