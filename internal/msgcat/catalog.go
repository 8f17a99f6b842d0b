package msgcat

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"text/template"

	yaml "gopkg.in/yaml.v3"
)

//go:embed messages.*.yaml
var embedded embed.FS

// DefaultLang is the base layer every catalog starts from.
const DefaultLang = "en"

var ErrNotFound = errors.New("message not found")

// Catalog holds banner and prompt templates keyed by dotted path
// ("banner.check"). Templates are parsed once when loaded and executed with
// missingkey=error.
type Catalog struct {
	mu        sync.RWMutex
	templates map[string]*template.Template
}

// New layers the English catalog, then lang, then every YAML file in
// overrideDir. Two override files may not define the same key.
func New(lang, overrideDir string) (*Catalog, error) {
	c := &Catalog{templates: make(map[string]*template.Template)}

	layers := []string{DefaultLang}
	if lang = strings.ToLower(strings.TrimSpace(lang)); lang != "" && lang != DefaultLang {
		layers = append(layers, lang)
	}
	for _, l := range layers {
		raw, err := fs.ReadFile(embedded, "messages."+l+".yaml")
		if err != nil {
			return nil, fmt.Errorf("messages %s: %w", l, err)
		}
		entries, err := flatten(raw)
		if err != nil {
			return nil, fmt.Errorf("messages %s: %w", l, err)
		}
		if err := c.merge(entries); err != nil {
			return nil, fmt.Errorf("messages %s: %w", l, err)
		}
	}

	if dir := strings.TrimSpace(overrideDir); dir != "" {
		if err := c.mergeDir(dir); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Languages lists the embedded catalogs, sorted.
func Languages() []string {
	names, _ := fs.Glob(embedded, "messages.*.yaml")
	langs := make([]string, 0, len(names))
	for _, n := range names {
		langs = append(langs, strings.TrimSuffix(strings.TrimPrefix(n, "messages."), ".yaml"))
	}
	sort.Strings(langs)
	return langs
}

func (c *Catalog) mergeDir(dir string) error {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("messages dir: %w", err)
	}
	var files []string
	for _, e := range dirEntries {
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml":
			if !e.IsDir() {
				files = append(files, e.Name())
			}
		}
	}
	sort.Strings(files)

	definedIn := make(map[string]string)
	for _, name := range files {
		raw, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("messages %s: %w", name, err)
		}
		entries, err := flatten(raw)
		if err != nil {
			return fmt.Errorf("messages %s: %w", name, err)
		}
		for key := range entries {
			if prev, dup := definedIn[key]; dup {
				return fmt.Errorf("message %q defined in both %s and %s", key, prev, name)
			}
			definedIn[key] = name
		}
		if err := c.merge(entries); err != nil {
			return fmt.Errorf("messages %s: %w", name, err)
		}
	}
	return nil
}

func (c *Catalog) merge(entries map[string]string) error {
	parsed := make(map[string]*template.Template, len(entries))
	for key, text := range entries {
		if strings.TrimSpace(text) == "" {
			continue
		}
		tpl, err := template.New(key).Option("missingkey=error").Parse(text)
		if err != nil {
			return fmt.Errorf("message %q: %w", key, err)
		}
		parsed[key] = tpl
	}
	c.mu.Lock()
	for key, tpl := range parsed {
		c.templates[key] = tpl
	}
	c.mu.Unlock()
	return nil
}

// flatten turns nested YAML maps into dotted keys. Only string leaves are
// accepted.
func flatten(raw []byte) (map[string]string, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	out := make(map[string]string)
	var walk func(prefix string, node any) error
	walk = func(prefix string, node any) error {
		switch v := node.(type) {
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
		case string:
			if prefix == "" {
				return errors.New("top-level string without a key")
			}
			out[prefix] = v
		case nil:
		default:
			return fmt.Errorf("%s: want string, got %T", prefix, v)
		}
		return nil
	}
	if err := walk("", doc); err != nil {
		return nil, err
	}
	return out, nil
}

// Render executes the template stored under key.
func (c *Catalog) Render(key string, data any) (string, error) {
	c.mu.RLock()
	tpl, ok := c.templates[strings.TrimSpace(key)]
	c.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	var sb strings.Builder
	if err := tpl.Execute(&sb, data); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// RenderOr is Render with a fallback; a nil catalog always falls back.
func (c *Catalog) RenderOr(key string, data any, fallback string) string {
	if c == nil {
		return fallback
	}
	out, err := c.Render(key, data)
	if err != nil {
		return fallback
	}
	return out
}
