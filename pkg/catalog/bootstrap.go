package catalog

import (
	"context"
	_ "embed"
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"
)

//go:embed builtins.yaml
var builtinsYAML []byte

// Builtins returns the embedded default catalog.
func Builtins() (Catalog, error) {
	return ParseYAML(builtinsYAML)
}

// ParseYAML reads a catalog from a YAML mapping of name -> definition.
func ParseYAML(data []byte) (Catalog, error) {
	var raw map[string]storedDefinition
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse catalog yaml: %w", err)
	}

	out := make(Catalog, len(raw))
	for key, stored := range raw {
		name := NormalizeName(key)
		if name == "" {
			return nil, NewError(ErrorInvalidName, "empty name in catalog yaml")
		}
		def, err := stored.definition()
		if err != nil {
			return nil, fmt.Errorf("catalog yaml entry %q: %w", key, err)
		}
		out[name] = def
	}

	return out, nil
}

// EnsureSeeded inserts every builtin whose name is not stored yet and returns
// the inserted names. Existing entries are never replaced, and nothing is
// written when every builtin is already present.
func (s *Store) EnsureSeeded(ctx context.Context, builtins Catalog) ([]string, error) {
	var added []string
	err := s.mutate(ctx, func(cat Catalog) bool {
		added = added[:0]
		for name, def := range builtins {
			normalized := NormalizeName(name)
			if normalized == "" {
				continue
			}
			if _, exists := cat[normalized]; exists {
				continue
			}
			cat[normalized] = def.normalized()
			added = append(added, normalized)
		}
		return len(added) > 0
	})
	if err != nil {
		return nil, fmt.Errorf("seed catalog: %w", err)
	}

	slices.Sort(added)
	if len(added) > 0 {
		s.log.Info("Catalog seeded with builtins", "added", len(added))
	} else {
		s.log.Debug("Catalog already contains all builtins")
	}

	return added, nil
}
