// Package view parses and executes the HTML templates. Pages are parsed
// together with the shared layout and partials. In dev mode templates are read
// from disk and reparsed on every render.
package view

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/ericyum/tour-agent-frontend/internal/i18n"
	"github.com/ericyum/tour-agent-frontend/internal/nav"
)

//go:embed templates
var embedded embed.FS

// ErrUnknownTemplate is returned for a page or partial that was not parsed.
var ErrUnknownTemplate = errors.New("view: unknown template")

// Options configures a Renderer.
type Options struct {
	// Dir overrides the embedded templates. Empty uses the embedded set.
	Dir    string
	Dev    bool
	Bundle *i18n.Bundle
	Now    func() time.Time
}

// Renderer executes pages and fragments.
type Renderer struct {
	opts  Options
	fsys  fs.FS
	funcs template.FuncMap

	mu  sync.RWMutex
	set *templateSet
}

type templateSet struct {
	pages    map[string]*template.Template
	partials *template.Template
}

// Page is the data every template receives.
type Page struct {
	Lang      string
	Title     string
	Path      string
	Nav       []nav.RenderedItem
	Crumbs    []nav.Crumb
	CSRFField template.HTML
	CSRFToken string
	HTMX      bool
	Data      any
}

// New parses the templates once, failing fast on syntax errors.
func New(opts Options) (*Renderer, error) {
	if opts.Bundle == nil {
		return nil, errors.New("view: i18n bundle is required")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	var fsys fs.FS
	if opts.Dir != "" {
		fsys = os.DirFS(opts.Dir)
	} else {
		sub, err := fs.Sub(embedded, "templates")
		if err != nil {
			return nil, err
		}
		fsys = sub
	}

	r := &Renderer{opts: opts, fsys: fsys}
	r.funcs = funcMap(opts.Bundle, opts.Now)
	set, err := r.parse()
	if err != nil {
		return nil, err
	}
	r.set = set
	return r, nil
}

// Render executes page name inside the base layout.
func (r *Renderer) Render(w io.Writer, name string, data Page) error {
	set, err := r.current()
	if err != nil {
		return err
	}
	t, ok := set.pages[name]
	if !ok {
		return fmt.Errorf("%w: page %q", ErrUnknownTemplate, name)
	}
	return execute(w, t, "base", data)
}

// Fragment executes a partial on its own, for htmx swaps.
func (r *Renderer) Fragment(w io.Writer, name string, data Page) error {
	set, err := r.current()
	if err != nil {
		return err
	}
	if set.partials.Lookup(name) == nil {
		return fmt.Errorf("%w: partial %q", ErrUnknownTemplate, name)
	}
	return execute(w, set.partials, name, data)
}

// execute buffers output so a failing template never leaves half a page.
func execute(w io.Writer, t *template.Template, name string, data Page) error {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("view: execute %s: %w", name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

func (r *Renderer) current() (*templateSet, error) {
	if r.opts.Dev {
		return r.parse()
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.set, nil
}

func (r *Renderer) parse() (*templateSet, error) {
	shared, err := fs.Glob(r.fsys, "layouts/*.tmpl")
	if err != nil {
		return nil, err
	}
	partials, err := fs.Glob(r.fsys, "partials/*.tmpl")
	if err != nil {
		return nil, err
	}
	shared = append(shared, partials...)
	if len(shared) == 0 {
		return nil, errors.New("view: no layouts or partials found")
	}

	base, err := template.New("_root").Funcs(r.funcs).ParseFS(r.fsys, shared...)
	if err != nil {
		return nil, fmt.Errorf("view: parse shared templates: %w", err)
	}

	pageFiles, err := fs.Glob(r.fsys, "pages/*.tmpl")
	if err != nil {
		return nil, err
	}
	set := &templateSet{pages: make(map[string]*template.Template, len(pageFiles))}
	for _, file := range pageFiles {
		clone, err := base.Clone()
		if err != nil {
			return nil, err
		}
		t, err := clone.ParseFS(r.fsys, file)
		if err != nil {
			return nil, fmt.Errorf("view: parse %s: %w", file, err)
		}
		set.pages[strings.TrimSuffix(path.Base(file), ".tmpl")] = t
	}
	set.partials = base
	return set, nil
}
