package handler

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"eam/internal/history"
	"eam/internal/portfolio/models"
	dErrors "eam/pkg/domain-errors"
	"eam/pkg/platform/httputil"
)

//go:embed templates/*.html
var embedded embed.FS

// Views renders the HTML pages of the portfolio.
type Views struct {
	tmpl   *template.Template
	logger *slog.Logger
}

// NewViews parses the embedded templates, or the ones under dir when set.
func NewViews(dir string, logger *slog.Logger) (*Views, error) {
	var src fs.FS = embedded
	pattern := "templates/*.html"
	if dir != "" {
		src = os.DirFS(dir)
		pattern = "*.html"
	}
	tmpl, err := template.New("portfolio").Funcs(template.FuncMap{
		"display": display,
		"title":   title,
	}).ParseFS(src, pattern)
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Views{tmpl: tmpl, logger: logger}, nil
}

// MustViews is NewViews over the embedded templates.
func MustViews(logger *slog.Logger) *Views {
	v, err := NewViews("", logger)
	if err != nil {
		panic(err)
	}
	return v
}

type row struct {
	ID     string
	Label  string
	Values map[string]any
}

type formField struct {
	Name  string
	Input string
	Value string
	Error string
}

type page struct {
	Kind        models.Kind
	Kinds       []models.Kind
	Heading     string
	Columns     []string
	Rows        []row
	Record      row
	Fields      []formField
	Action      string
	Entries     []history.Entry
	Total       int
	Page        int
	PerPage     int
	PrevPage    int
	NextPage    int
	Search      string
	Message     string
	FieldErrors map[string]string
}

func (v *Views) render(w http.ResponseWriter, status int, name string, data page) {
	data.Kinds = models.Kinds
	var buf bytes.Buffer
	if err := v.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		v.logger.Error("render template", "template", name, "error", err)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to render page"))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (v *Views) renderError(w http.ResponseWriter, kind models.Kind, err error) {
	code := dErrors.CodeOf(err)
	msg := "something went wrong"
	var fields map[string]string
	if code != dErrors.CodeInternal {
		var de *dErrors.Error
		if errors.As(err, &de) {
			msg = de.Message
			fields = de.Fields
		}
	}
	v.render(w, httputil.StatusFor(code), "error.html", page{
		Kind:        kind,
		Heading:     http.StatusText(httputil.StatusFor(code)),
		Message:     msg,
		FieldErrors: fields,
	})
}

// toRow flattens a record through its JSON form for generic templates.
func toRow(rec models.Record) row {
	values := map[string]any{}
	if raw, err := json.Marshal(rec); err == nil {
		_ = json.Unmarshal(raw, &values)
	}
	return row{ID: rec.Meta().ID.String(), Label: rec.Label(), Values: values}
}

func columnsOf(t reflect.Type) []string {
	var cols []string
	for _, f := range fieldsOf(t) {
		if bookkeeping[f.Name] || textareas[f.Name] {
			continue
		}
		cols = append(cols, f.Name)
	}
	return cols
}

// formFields builds the inputs for t, prefilled from values.
func formFields(t reflect.Type, values map[string]any, errs map[string]string) []formField {
	var out []formField
	for _, f := range fieldsOf(t) {
		if bookkeeping[f.Name] {
			continue
		}
		input := inputType(f)
		out = append(out, formField{
			Name:  f.Name,
			Input: input,
			Value: formText(values[f.Name], input),
			Error: errs[f.Name],
		})
	}
	return out
}

func formText(v any, input string) string {
	switch val := v.(type) {
	case nil:
		return ""
	case []any:
		parts := make([]string, 0, len(val))
		for _, p := range val {
			parts = append(parts, display(p))
		}
		return strings.Join(parts, "\n")
	case string:
		if input == "datetime-local" {
			if ts, err := time.Parse(time.RFC3339Nano, val); err == nil {
				return ts.UTC().Format("2006-01-02T15:04")
			}
		}
		return val
	}
	return display(v)
}

func display(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		if val {
			return "yes"
		}
		return "no"
	case []any:
		parts := make([]string, 0, len(val))
		for _, p := range val {
			parts = append(parts, display(p))
		}
		return strings.Join(parts, ", ")
	}
	return fmt.Sprint(v)
}

// title turns a snake_case key into a column heading.
func title(s string) string {
	words := strings.Split(strings.ReplaceAll(s, "_", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
