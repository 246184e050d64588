// Package msgcat renders user-facing messages from YAML templates: embedded
// English defaults plus an optional override directory.
package msgcat

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
	"text/template"

	yaml "gopkg.in/yaml.v3"
)

//go:embed messages.en.yaml
var defaultFiles embed.FS

// Catalog maps dot-keys ("errors.NOT_FOUND") to text/template sources.
// Missing template fields are errors.
type Catalog struct {
	mu      sync.RWMutex
	sources map[string]string
	parsed  map[string]*template.Template
}

// New loads the embedded defaults, then overrides from dir when set.
// Two override files defining the same key is an error.
func New(overrideDir string) (*Catalog, error) {
	c := &Catalog{sources: map[string]string{}, parsed: map[string]*template.Template{}}
	if err := c.load(defaultFiles, false); err != nil {
		return nil, fmt.Errorf("embedded messages: %w", err)
	}
	if dir := strings.TrimSpace(overrideDir); dir != "" {
		if _, err := os.Stat(dir); err != nil {
			return nil, fmt.Errorf("message dir: %w", err)
		}
		if err := c.load(os.DirFS(dir), true); err != nil {
			return nil, fmt.Errorf("message dir %s: %w", dir, err)
		}
	}
	return c, nil
}

func (c *Catalog) load(fsys fs.FS, strict bool) error {
	var names []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		m, err := fs.Glob(fsys, pattern)
		if err != nil {
			return err
		}
		names = append(names, m...)
	}
	sort.Strings(names)

	owner := map[string]string{}
	for _, name := range names {
		raw, err := fs.ReadFile(fsys, name)
		if err != nil {
			return err
		}
		entries, err := flatten(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", path.Base(name), err)
		}
		if strict {
			for key := range entries {
				if prev, dup := owner[key]; dup {
					return fmt.Errorf("key %q defined in both %s and %s", key, prev, name)
				}
				owner[key] = name
			}
		}
		c.mu.Lock()
		for key, src := range entries {
			c.sources[key] = src
			delete(c.parsed, key)
		}
		c.mu.Unlock()
	}
	return nil
}

// flatten turns nested YAML mappings into dot-keys. Leaves must be strings.
func flatten(raw []byte) (map[string]string, error) {
	var root map[string]any
	if err := yaml.Unmarshal(raw, &root); err != nil {
		return nil, err
	}
	out := map[string]string{}
	var walk func(prefix string, node any) error
	walk = func(prefix string, node any) error {
		switch v := node.(type) {
		case nil:
		case string:
			out[prefix] = v
		case map[string]any:
			for k, child := range v {
				key := k
				if prefix != "" {
					key = prefix + "." + k
				}
				if err := walk(key, child); err != nil {
					return err
				}
			}
		default:
			return fmt.Errorf("%s: expected string, got %T", prefix, v)
		}
		return nil
	}
	if err := walk("", root); err != nil {
		return nil, err
	}
	return out, nil
}

// Render executes the template at key with data.
func (c *Catalog) Render(key string, data any) (string, error) {
	t, err := c.lookup(strings.TrimSpace(key))
	if err != nil {
		return "", err
	}
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

// Error renders "errors.<code>", falling back to the code itself.
func (c *Catalog) Error(code string, data any) string {
	if c == nil {
		return code
	}
	msg, err := c.Render("errors."+code, data)
	if err != nil {
		return code
	}
	return msg
}

func (c *Catalog) lookup(key string) (*template.Template, error) {
	c.mu.RLock()
	t, cached := c.parsed[key]
	src := c.sources[key]
	c.mu.RUnlock()
	if cached {
		return t, nil
	}
	if strings.TrimSpace(src) == "" {
		return nil, fmt.Errorf("no message for %q", key)
	}
	t, err := template.New(key).Option("missingkey=error").Parse(src)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.parsed[key] = t
	c.mu.Unlock()
	return t, nil
}
