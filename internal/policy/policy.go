// Package policy loads the per-project review policy document: what the
// reviewing model should check, which paths are out of scope, and any
// project-specific conventions treated as ground truth.
package policy

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Exclusion removes a path prefix from review scope, with a stated reason.
type Exclusion struct {
	Path   string `yaml:"path"`
	Reason string `yaml:"reason"`
}

// Schema describes where the project's data schema lives.
type Schema struct {
	ORM  string `yaml:"orm"`
	Path string `yaml:"path"`
}

// MultiTenancy describes tenant-scoping rules the reviewer must enforce.
type MultiTenancy struct {
	Enabled          bool     `yaml:"enabled"`
	ScopeColumn      string   `yaml:"scope_column"`
	CheckDescription string   `yaml:"check_description"`
	AppliesTo        []string `yaml:"applies_to"`
}

// Auth describes the project's authentication conventions.
type Auth struct {
	Provider         string   `yaml:"provider"`
	MiddlewareImport string   `yaml:"middleware_import"`
	ProtectedRoutes  string   `yaml:"protected_routes"`
	Except           []string `yaml:"except"`
	AppliesTo        []string `yaml:"applies_to"`
}

// Testing describes the project's test conventions.
type Testing struct {
	Framework  string   `yaml:"framework"`
	TestDir    string   `yaml:"test_dir"`
	SourceDirs []string `yaml:"source_dirs"`
}

// Routes describes where routes are declared and how they access data.
type Routes struct {
	File       string `yaml:"file"`
	DataAccess string `yaml:"data_access"`
}

// Policy is the declarative, externally authored review policy for one
// project. It is immutable for the duration of a run and loaded fresh on
// every invocation.
type Policy struct {
	ProjectType  string        `yaml:"project_type"`
	Language     string        `yaml:"language"`
	Schema       *Schema       `yaml:"schema,omitempty"`
	MultiTenancy *MultiTenancy `yaml:"multi_tenancy,omitempty"`
	Auth         *Auth         `yaml:"auth,omitempty"`
	Testing      *Testing      `yaml:"testing,omitempty"`
	Routes       *Routes       `yaml:"routes,omitempty"`
	ExcludePaths []Exclusion   `yaml:"exclude_paths,omitempty"`
	Conventions  []string      `yaml:"conventions,omitempty"`
}

// Load reads and validates a policy document. Any failure here is a
// configuration error: the caller must abort before making network calls.
func Load(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy: %w", err)
	}

	var p Policy
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("parse policy %s: %w", path, err)
	}

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid policy %s: %w", path, err)
	}
	return &p, nil
}

// Validate checks required fields.
func (p *Policy) Validate() error {
	if p.ProjectType == "" {
		return fmt.Errorf("project_type is required")
	}
	if p.Language == "" {
		return fmt.Errorf("language is required")
	}
	for i, ex := range p.ExcludePaths {
		if ex.Path == "" {
			return fmt.Errorf("exclude_paths[%d]: path is required", i)
		}
	}
	return nil
}

// ExcludePrefixes returns the exclusion path prefixes in document order.
func (p *Policy) ExcludePrefixes() []string {
	if len(p.ExcludePaths) == 0 {
		return nil
	}
	prefixes := make([]string, 0, len(p.ExcludePaths))
	for _, ex := range p.ExcludePaths {
		prefixes = append(prefixes, ex.Path)
	}
	return prefixes
}
