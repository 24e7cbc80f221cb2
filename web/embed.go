// Package web carries the report templates and the browser assets.
package web

import "embed"

// TemplatesFS holds the page templates. Every file is parsed into a single
// set so shared blocks such as cabecalho and rodape resolve across pages.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds the stylesheet and the table, modal and chart scripts.
//
//go:embed static/css/*.css static/js/*.js
var StaticFS embed.FS
