package services

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed techstack.yaml
var techstackYAML []byte

// TechCatalog maps user supplied technology names to canonical ones
type TechCatalog struct {
	aliases map[string]string
}

var (
	defaultCatalog     *TechCatalog
	defaultCatalogErr  error
	defaultCatalogOnce sync.Once
)

// DefaultTechCatalog returns the catalog built from the embedded techstack.yaml
func DefaultTechCatalog() (*TechCatalog, error) {
	defaultCatalogOnce.Do(func() {
		defaultCatalog, defaultCatalogErr = ParseTechCatalog(techstackYAML)
	})
	return defaultCatalog, defaultCatalogErr
}

// ParseTechCatalog reads a YAML document of the form
// area -> canonical name -> list of aliases.
func ParseTechCatalog(raw []byte) (*TechCatalog, error) {
	var areas map[string]map[string][]string
	if err := yaml.Unmarshal(raw, &areas); err != nil {
		return nil, fmt.Errorf("parsing tech catalog: %w", err)
	}

	c := &TechCatalog{aliases: map[string]string{}}
	for area, techs := range areas {
		for canonical, aliases := range techs {
			canonical = strings.ToLower(strings.TrimSpace(canonical))
			for _, name := range append([]string{canonical}, aliases...) {
				key := strings.ToLower(strings.TrimSpace(name))
				if prev, ok := c.aliases[key]; ok && prev != canonical {
					return nil, fmt.Errorf("tech catalog: %q in %s maps to both %q and %q", key, area, prev, canonical)
				}
				c.aliases[key] = canonical
			}
		}
	}
	return c, nil
}

// Normalize returns the canonical name of tech, or tech itself trimmed when
// the catalog does not know it
func (c *TechCatalog) Normalize(tech string) string {
	trimmed := strings.TrimSpace(tech)
	if canonical, ok := c.aliases[strings.ToLower(trimmed)]; ok {
		return canonical
	}
	return trimmed
}

// NormalizeAll normalizes every entry, dropping blanks and duplicates
func (c *TechCatalog) NormalizeAll(techs []string) []string {
	out := make([]string, 0, len(techs))
	seen := map[string]bool{}
	for _, t := range techs {
		n := c.Normalize(t)
		if n == "" || seen[strings.ToLower(n)] {
			continue
		}
		seen[strings.ToLower(n)] = true
		out = append(out, n)
	}
	return out
}
