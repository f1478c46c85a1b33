package tools

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Glossary documents domain fields and business rules for the explain_field
// tool. It is loaded once from YAML and read-only afterwards.
type Glossary struct {
	Version       int                      `yaml:"version"`
	Namespace     string                   `yaml:"namespace"`
	Fields        map[string]GlossaryField `yaml:"fields"`
	BusinessRules map[string]string        `yaml:"business_rules"`
}

// GlossaryField is one documented field.
type GlossaryField struct {
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Examples    []string `yaml:"examples"`
}

// LoadGlossary reads a YAML glossary. A missing file yields an empty
// glossary, not an error: field explanations are a best-effort feature.
func LoadGlossary(path string) (*Glossary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Glossary{Namespace: "default"}, nil
		}
		return nil, fmt.Errorf("tools: read glossary %s: %w", path, err)
	}
	var g Glossary
	if err := yaml.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("tools: parse glossary %s: %w", path, err)
	}
	return &g, nil
}

// FieldDoc returns a one-line explanation for a field name. Lookup is
// tolerant of case, spaces, dashes and underscores.
func (g *Glossary) FieldDoc(field string) (string, bool) {
	if g == nil || len(g.Fields) == 0 {
		return "", false
	}
	info, ok := g.Fields[field]
	if !ok {
		want := normalizeFieldKey(field)
		for k, v := range g.Fields {
			if normalizeFieldKey(k) == want {
				info, ok = v, true
				break
			}
		}
	}
	if !ok {
		return "", false
	}
	title := info.Title
	if title == "" {
		title = field
	}
	doc := title + ": " + info.Description
	if len(info.Examples) > 0 {
		doc += " Examples: " + strings.Join(info.Examples, ", ")
	}
	return doc, true
}

func normalizeFieldKey(k string) string {
	k = strings.ToLower(k)
	return strings.NewReplacer(" ", "", "-", "", "_", "").Replace(k)
}
