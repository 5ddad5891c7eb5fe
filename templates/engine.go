// templates/engine.go
package templates

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Set describes one group of template files inside an fs.FS.
type Set struct {
	// Name is for logging only (e.g., "shared", "pages").
	Name string
	// FS is usually an embed.FS from the package owning the templates.
	FS fs.FS
	// Patterns are glob patterns within FS (e.g., "templates/pages/*.gohtml").
	Patterns []string
}

// Engine compiles a shared set (layout + partials) and one clone of it per
// page file, so every page can define its own "content" block.
type Engine struct {
	mu     sync.RWMutex
	funcs  template.FuncMap
	base   *template.Template
	byName map[string]*template.Template
	logger *zap.Logger
}

// New creates an Engine with the default helper funcs.
func New(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		funcs:  Funcs(),
		byName: map[string]*template.Template{},
		logger: logger,
	}
}

// Boot parses shared first, then compiles each page file of every page set
// against its own clone of shared. Entry names (every define except
// "content") must be unique across page files.
func (e *Engine) Boot(shared Set, pages ...Set) error {
	base, err := e.parseAll(template.New("root").Funcs(e.funcs), shared)
	if err != nil {
		return fmt.Errorf("parse shared: %w", err)
	}

	byName := map[string]*template.Template{}
	for _, s := range pages {
		files, err := globAll(s.FS, s.Patterns)
		if err != nil {
			return fmt.Errorf("set %q: %w", s.Name, err)
		}
		if len(files) == 0 {
			e.logger.Warn("no templates matched", zap.String("set", s.Name))
			continue
		}

		for _, file := range files {
			src, err := fs.ReadFile(s.FS, file)
			if err != nil {
				return fmt.Errorf("read %s: %w", file, err)
			}
			clone, err := base.Clone()
			if err != nil {
				return fmt.Errorf("clone shared for %s: %w", file, err)
			}
			if _, err := clone.Parse(string(src)); err != nil {
				return fmt.Errorf("parse %s: %w", file, err)
			}

			owned := extractDefineNames(string(src))
			delete(owned, "content")
			if len(owned) == 0 {
				return fmt.Errorf("%s defines no entry template", file)
			}
			for name := range owned {
				if _, dup := byName[name]; dup {
					return fmt.Errorf("template %q defined by more than one page (%s)", name, file)
				}
				byName[name] = clone
			}

			e.logger.Debug("template page compiled",
				zap.String("set", s.Name),
				zap.String("page", path.Base(file)))
		}
	}

	e.mu.Lock()
	e.base = base
	e.byName = byName
	e.mu.Unlock()
	return nil
}

// Has reports whether an entry template named name was compiled.
func (e *Engine) Has(name string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.byName[name]
	return ok
}

// Render executes the entry template name into w. Output is buffered so a
// failing template never leaves a half-written page.
func (e *Engine) Render(w io.Writer, name string, data any) error {
	e.mu.RLock()
	t, ok := e.byName[name]
	e.mu.RUnlock()
	if !ok {
		return fmt.Errorf("template %q not found", name)
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("execute %q: %w", name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

var reDefineName = regexp.MustCompile(`{{-?\s*define\s+"([^"]+)"`)

func extractDefineNames(src string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, g := range reDefineName.FindAllStringSubmatch(src, -1) {
		out[g[1]] = struct{}{}
	}
	return out
}

func (e *Engine) parseAll(root *template.Template, s Set) (*template.Template, error) {
	files, err := globAll(s.FS, s.Patterns)
	if err != nil {
		return nil, err
	}
	for _, file := range files {
		b, err := fs.ReadFile(s.FS, file)
		if err != nil {
			return nil, err
		}
		if _, err := root.Parse(string(b)); err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}
	}
	return root, nil
}

// globAll expands patterns in order, dropping duplicates; output is sorted
// for a stable compile order.
func globAll(filesystem fs.FS, patterns []string) ([]string, error) {
	seen := make(map[string]struct{})
	var out []string
	for _, pat := range patterns {
		matches, err := fs.Glob(filesystem, pat)
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			out = append(out, m)
		}
	}
	sort.Strings(out)
	return out, nil
}
