// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request
// data: report periods, bimestres, unit codes and request bodies.

package http

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"orcamento/internal/core"
)

const maxBodyBytes = 64 << 10

// PeriodParams holds parsed year/month values from request parameters.
type PeriodParams struct {
	Ano int
	Mes int
}

// BimestreParams holds the year and bimestre of an RREO request.
type BimestreParams struct {
	Ano      int
	Bimestre core.Bimestre
}

// intParam returns the integer value of key, or def when the key is absent
// or not an integer.
func intParam(query url.Values, key string, def int) int {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// ParsePeriodParams extracts ano and mes, falling back to the reference
// period for missing, malformed or out-of-range values.
func ParsePeriodParams(query url.Values, ref core.Periodo) PeriodParams {
	p := PeriodParams{
		Ano: intParam(query, "ano", ref.Ano),
		Mes: intParam(query, "mes", ref.Mes),
	}
	if p.Ano < 1900 || p.Ano > 2999 {
		p.Ano = ref.Ano
	}
	if p.Mes < 1 || p.Mes > 12 {
		p.Mes = ref.Mes
	}
	return p
}

// ParseBimestreParams extracts ano and bimestre, defaulting to the current
// year and to the bimestre containing the current month.
func ParseBimestreParams(query url.Values, now time.Time) BimestreParams {
	p := BimestreParams{
		Ano:      intParam(query, "ano", now.Year()),
		Bimestre: core.Bimestre(intParam(query, "bimestre", int(core.BimestreDoMes(int(now.Month()))))),
	}
	if p.Ano < 1900 || p.Ano > 2999 {
		p.Ano = now.Year()
	}
	if p.Bimestre.Validate() != nil {
		p.Bimestre = core.BimestreDoMes(int(now.Month()))
	}
	return p
}

// ParseCOUG returns the digits of the coug parameter.
func ParseCOUG(query url.Values) string {
	return core.SanitizeCOUG(query.Get("coug"))
}

// ParseFiltro returns the named revenue filter, or the zero Filtro when
// the key is empty or unknown.
func ParseFiltro(query url.Values) core.Filtro {
	f, _ := core.FiltroPorChave(sanitizeInput(query.Get("filtro")))
	return f
}

// AnosDisponiveis lists the current year and the four before it.
func AnosDisponiveis(now time.Time) []int {
	out := make([]int, 0, 5)
	for a := now.Year(); a > now.Year()-5; a-- {
		out = append(out, a)
	}
	return out
}

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]interface{}
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}

	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	// Try JSON first if content looks like JSON
	if p.body[0] == '{' {
		p.jsonData = make(map[string]interface{})
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// ContentType returns the Content-Type header value.
func (p *RequestBodyParser) ContentType() string {
	return p.contentType
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// RequireMethod checks if the request method matches the expected method(s).
// Returns an error response builder if the method doesn't match.
func RequireMethod(r *http.Request, methods ...string) *ResponseBuilder {
	for _, m := range methods {
		if r.Method == m {
			return nil
		}
	}
	return MethodNotAllowedError(strings.Join(methods, ", "))
}

// sanitizeInput removes control characters except tab and newlines, then
// trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// wantsJSON reports whether the client asked for a JSON answer.
func wantsJSON(r *http.Request) bool {
	return r.URL.Query().Get("formato") == "json" ||
		strings.Contains(r.Header.Get("Accept"), "application/json")
}
