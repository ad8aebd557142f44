package monitor

import (
	"embed"
	"html/template"
	"io"
	"io/fs"
	"sync"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

// TemplateProvider abstracts template loading and execution.
// Production uses EmbeddedTemplateProvider; tests use MockTemplateProvider.
type TemplateProvider interface {
	// GetTemplate returns a parsed template by name.
	GetTemplate(name string) (*template.Template, error)
	// ExecuteTemplate executes a template with the given data.
	ExecuteTemplate(w io.Writer, name string, data interface{}) error
}

// templateFuncs are available to every page template.
var templateFuncs = template.FuncMap{
	"formatNanos": func(ns int64) string {
		return time.Unix(0, ns).UTC().Format(time.RFC3339)
	},
	"formatMicros": func(us int64) string {
		return (time.Duration(us) * time.Microsecond).String()
	},
}

// EmbeddedTemplateProvider loads templates from a filesystem, caching each
// after its first parse. Safe for concurrent use.
type EmbeddedTemplateProvider struct {
	fs      fs.FS
	baseDir string

	mu    sync.Mutex
	cache map[string]*template.Template
}

// NewEmbeddedTemplateProvider creates a provider reading baseDir of fsys.
func NewEmbeddedTemplateProvider(fsys fs.FS, baseDir string) *EmbeddedTemplateProvider {
	return &EmbeddedTemplateProvider{
		fs:      fsys,
		baseDir: baseDir,
		cache:   make(map[string]*template.Template),
	}
}

// DefaultTemplates returns the provider for the built-in pages.
func DefaultTemplates() *EmbeddedTemplateProvider {
	return NewEmbeddedTemplateProvider(templateFS, "templates")
}

// GetTemplate parses and caches a template.
func (p *EmbeddedTemplateProvider) GetTemplate(name string) (*template.Template, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if t, ok := p.cache[name]; ok {
		return t, nil
	}

	path := name
	if p.baseDir != "" {
		path = p.baseDir + "/" + name
	}

	content, err := fs.ReadFile(p.fs, path)
	if err != nil {
		return nil, err
	}

	t, err := template.New(name).Funcs(templateFuncs).Parse(string(content))
	if err != nil {
		return nil, err
	}

	p.cache[name] = t
	return t, nil
}

// ExecuteTemplate loads and executes a template.
func (p *EmbeddedTemplateProvider) ExecuteTemplate(w io.Writer, name string, data interface{}) error {
	t, err := p.GetTemplate(name)
	if err != nil {
		return err
	}
	return t.Execute(w, data)
}

// MockTemplateProvider provides templates for testing.
type MockTemplateProvider struct {
	Templates    map[string]string
	ExecuteError error
	ExecuteCalls []executeCall
	GetError     error
}

type executeCall struct {
	Name string
	Data interface{}
}

// NewMockTemplateProvider creates a mock provider with predefined templates.
func NewMockTemplateProvider(templates map[string]string) *MockTemplateProvider {
	return &MockTemplateProvider{
		Templates:    templates,
		ExecuteCalls: []executeCall{},
	}
}

// GetTemplate returns a parsed template from the mock templates.
func (m *MockTemplateProvider) GetTemplate(name string) (*template.Template, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}

	content, ok := m.Templates[name]
	if !ok {
		return nil, fs.ErrNotExist
	}

	return template.New(name).Funcs(templateFuncs).Parse(content)
}

// ExecuteTemplate records the call and executes the template.
func (m *MockTemplateProvider) ExecuteTemplate(w io.Writer, name string, data interface{}) error {
	m.ExecuteCalls = append(m.ExecuteCalls, executeCall{Name: name, Data: data})

	if m.ExecuteError != nil {
		return m.ExecuteError
	}

	t, err := m.GetTemplate(name)
	if err != nil {
		return err
	}

	return t.Execute(w, data)
}
