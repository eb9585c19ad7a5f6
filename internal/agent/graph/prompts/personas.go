package prompts

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	FriendlyAdvisor    = "Friendly Advisor"
	FinancialGuru      = "Financial Guru"
	EmpatheticListener = "Empathetic Listener"
	DataDrivenAnalyst  = "Data-Driven Analyst"
)

//go:embed personas.yaml
var personasYAML []byte

type personaFile struct {
	Default  string `yaml:"default"`
	Personas []struct {
		Name   string `yaml:"name"`
		Prompt string `yaml:"prompt"`
	} `yaml:"personas"`
}

// Registry maps persona names to system prompts. It is read-only after construction.
type Registry struct {
	prompts  map[string]string
	names    []string
	fallback string
}

// LoadRegistry parses the embedded persona table.
func LoadRegistry() (*Registry, error) {
	return ParseRegistry(personasYAML)
}

// ParseRegistry builds a registry from YAML. The default persona must be defined.
func ParseRegistry(data []byte) (*Registry, error) {
	var f personaFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse personas: %w", err)
	}

	r := &Registry{prompts: make(map[string]string, len(f.Personas)), fallback: f.Default}
	for _, p := range f.Personas {
		name := strings.TrimSpace(p.Name)
		if name == "" || strings.TrimSpace(p.Prompt) == "" {
			return nil, fmt.Errorf("persona %q: name and prompt are required", p.Name)
		}
		if _, dup := r.prompts[name]; dup {
			return nil, fmt.Errorf("persona %q defined twice", name)
		}
		r.prompts[name] = strings.TrimSpace(p.Prompt)
		r.names = append(r.names, name)
	}
	if _, ok := r.prompts[r.fallback]; !ok {
		return nil, fmt.Errorf("default persona %q is not defined", r.fallback)
	}
	sort.Strings(r.names)
	return r, nil
}

// Lookup returns the prompt for name, falling back to the default persona.
func (r *Registry) Lookup(name string) string {
	if p, ok := r.prompts[name]; ok {
		return p
	}
	return r.prompts[r.fallback]
}

func (r *Registry) Has(name string) bool {
	_, ok := r.prompts[name]
	return ok
}

// Names returns the persona names in sorted order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

// Default is the persona a session starts with when none is configured.
func (r *Registry) Default() string { return r.fallback }
