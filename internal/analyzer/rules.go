package analyzer

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// DetectionRules map manifest filenames to ecosystem tags and list common
// entry-point files. Operators can override them with a YAML file.
type DetectionRules struct {
	Manifests   map[string]string `yaml:"manifests"`
	EntryPoints []string          `yaml:"entry_points"`
}

// DefaultRules returns the built-in detection rules.
func DefaultRules() DetectionRules {
	return DetectionRules{
		Manifests: map[string]string{
			"go.mod":           "go",
			"package.json":     "nodejs",
			"pyproject.toml":   "python",
			"requirements.txt": "python",
			"setup.py":         "python",
			"Cargo.toml":       "rust",
			"pom.xml":          "java",
			"build.gradle":     "java",
			"Gemfile":          "ruby",
			"composer.json":    "php",
			"Dockerfile":       "docker",
			"Makefile":         "make",
		},
		EntryPoints: []string{
			"main.go",
			"cmd/main.go",
			"index.js",
			"src/index.js",
			"index.ts",
			"src/index.ts",
			"main.py",
			"app.py",
			"src/main.py",
			"src/main.rs",
			"Main.java",
		},
	}
}

// LoadRules reads detection rules from a YAML file, falling back to fields
// the file leaves empty.
func LoadRules(path string) (DetectionRules, error) {
	rules := DefaultRules()

	data, err := os.ReadFile(path)
	if err != nil {
		return rules, fmt.Errorf("read detection rules: %w", err)
	}

	var loaded DetectionRules
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return rules, fmt.Errorf("parse detection rules: %w", err)
	}

	if len(loaded.Manifests) > 0 {
		rules.Manifests = loaded.Manifests
	}
	if len(loaded.EntryPoints) > 0 {
		rules.EntryPoints = loaded.EntryPoints
	}
	return rules, nil
}

// ManifestNames returns the known manifest filenames in lexical order.
func (r DetectionRules) ManifestNames() []string {
	names := make([]string, 0, len(r.Manifests))
	for name := range r.Manifests {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
