package catalog

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"
)

// NormalizeName trims and lower-cases a response name. Internal punctuation and
// whitespace are kept as-is.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Definition is one stored response.
type Definition struct {
	Content     string `json:"content"`
	UsesButtons bool   `json:"use_buttons"`
	ButtonLinks Links  `json:"button_links,omitempty"`
}

// NewDefinition builds a definition the way an untyped stored entry is read:
// buttons are on when content spans more than one line or links are present.
func NewDefinition(content string, links Links) Definition {
	return Definition{
		Content:     content,
		UsesButtons: isMultiline(content),
		ButtonLinks: links,
	}.normalized()
}

// HasLinks reports whether the definition carries link buttons.
func (d Definition) HasLinks() bool {
	return len(d.ButtonLinks) > 0
}

// normalized enforces that link-carrying definitions always render buttons.
func (d Definition) normalized() Definition {
	if d.HasLinks() {
		d.UsesButtons = true
	}
	return d
}

func isMultiline(content string) bool {
	return strings.Contains(strings.TrimSpace(content), "\n")
}

// storedDefinition mirrors the durable shape with optional fields detectable.
type storedDefinition struct {
	Content     *string `json:"content" yaml:"content"`
	UsesButtons *bool   `json:"use_buttons" yaml:"use_buttons"`
	ButtonLinks Links   `json:"button_links" yaml:"button_links"`
}

func (s storedDefinition) definition() (Definition, error) {
	if s.Content == nil {
		return Definition{}, NewError(ErrorMalformedEntry, "missing content")
	}

	def := Definition{
		Content:     *s.Content,
		UsesButtons: isMultiline(*s.Content),
		ButtonLinks: s.ButtonLinks,
	}
	if s.UsesButtons != nil {
		def.UsesButtons = *s.UsesButtons
	}

	return def.normalized(), nil
}

// Catalog maps normalized response names to definitions.
type Catalog map[string]Definition

// Names returns every name ordered by descending character length, ties broken
// lexically so the order is stable across loads.
func (c Catalog) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}

	slices.SortFunc(names, func(a, b string) int {
		la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
		if la != lb {
			return lb - la
		}
		return strings.Compare(a, b)
	})

	return names
}

// Clone returns a shallow copy safe to mutate at the top level.
func (c Catalog) Clone() Catalog {
	out := make(Catalog, len(c))
	for name, def := range c {
		out[name] = def
	}
	return out
}

// Skipped describes an entry dropped while decoding a stored document.
type Skipped struct {
	Name string
	Err  error
}

// Decode parses a stored catalog document. Entries that cannot be read are
// reported in skipped and left out; a document that is not an object fails
// as a whole.
func Decode(data []byte) (Catalog, []Skipped, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return Catalog{}, nil, nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, NewError(ErrorStorageUnavailable, fmt.Sprintf("parse catalog document: %v", err))
	}

	keys := make([]string, 0, len(raw))
	for key := range raw {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	out := make(Catalog, len(raw))
	var skipped []Skipped
	for _, key := range keys {
		name := NormalizeName(key)
		if name == "" {
			skipped = append(skipped, Skipped{Name: key, Err: NewError(ErrorInvalidName, "empty name")})
			continue
		}

		var stored storedDefinition
		if err := json.Unmarshal(raw[key], &stored); err != nil {
			skipped = append(skipped, Skipped{Name: key, Err: NewError(ErrorMalformedEntry, err.Error())})
			continue
		}
		def, err := stored.definition()
		if err != nil {
			skipped = append(skipped, Skipped{Name: key, Err: err})
			continue
		}

		// An already-normalized key wins over a differently-cased duplicate.
		if _, exists := out[name]; exists && key != name {
			continue
		}
		out[name] = def
	}

	return out, skipped, nil
}

// Encode renders a catalog document with stable key order.
func Encode(cat Catalog) ([]byte, error) {
	normalized := make(map[string]Definition, len(cat))
	for name, def := range cat {
		normalized[NormalizeName(name)] = def.normalized()
	}

	data, err := json.MarshalIndent(normalized, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode catalog: %w", err)
	}

	return append(data, '\n'), nil
}
