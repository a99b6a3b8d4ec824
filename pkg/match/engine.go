// Package match selects at most one response for a free-form message by running
// an ordered cascade of strategies over the catalog.
package match

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"chanfinder/pkg/catalog"
)

// Strategy names one step of the cascade.
type Strategy string

const (
	StrategyExactName     Strategy = "exact_name"
	StrategyEmbeddedName  Strategy = "embedded_name"
	StrategyRequestPhrase Strategy = "request_phrase"
	StrategyKeyword       Strategy = "keyword"
	StrategyLiteral       Strategy = "literal"
)

// Cascade is the evaluation order used by Match.
var Cascade = []Strategy{
	StrategyExactName,
	StrategyEmbeddedName,
	StrategyRequestPhrase,
	StrategyKeyword,
	StrategyLiteral,
}

const minNameRunes = 2

// Decision is a positive match.
type Decision struct {
	Strategy Strategy
	// Name is the selected catalog name, or the literal rule's target.
	Name string
	// Trigger is the text that produced the hit: a name, a request phrase,
	// a keyword fragment or a literal trigger.
	Trigger    string
	Definition catalog.Definition
}

// Engine holds the declarative tables the cascade consults. It is safe for
// concurrent use; Match never mutates the catalog it is given.
type Engine struct {
	keywords   []Rule
	literals   []Rule
	prefixes   []string
	suffixes   []string
	strategies []Strategy
}

// Option configures an Engine.
type Option func(*Engine)

// WithRules replaces the keyword and literal tables.
func WithRules(rules []Rule) Option {
	return func(e *Engine) {
		e.keywords, e.literals = splitRules(rules)
	}
}

// WithRequestPrefixes replaces the request prefix phrases.
func WithRequestPrefixes(prefixes ...string) Option {
	return func(e *Engine) {
		e.prefixes = normalizeAll(prefixes)
	}
}

// WithRequestSuffixes replaces the request suffix phrases.
func WithRequestSuffixes(suffixes ...string) Option {
	return func(e *Engine) {
		e.suffixes = normalizeAll(suffixes)
	}
}

// WithStrategies restricts the cascade to the given steps, kept in cascade
// order.
func WithStrategies(strategies ...Strategy) Option {
	return func(e *Engine) {
		enabled := make(map[Strategy]bool, len(strategies))
		for _, s := range strategies {
			enabled[s] = true
		}
		e.strategies = e.strategies[:0]
		for _, s := range Cascade {
			if enabled[s] {
				e.strategies = append(e.strategies, s)
			}
		}
	}
}

// New builds an engine with the default tables.
func New(opts ...Option) *Engine {
	e := &Engine{
		prefixes:   normalizeAll(DefaultRequestPrefixes()),
		suffixes:   normalizeAll(DefaultRequestSuffixes()),
		strategies: append([]Strategy(nil), Cascade...),
	}
	e.keywords, e.literals = splitRules(DefaultRules())

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Strategies returns the enabled steps in evaluation order.
func (e *Engine) Strategies() []Strategy {
	return append([]Strategy(nil), e.strategies...)
}

// Match runs the cascade and returns the first hit.
func (e *Engine) Match(text string, cat catalog.Catalog) (Decision, bool) {
	normalized := catalog.NormalizeName(text)
	if normalized == "" {
		return Decision{}, false
	}

	var names []string
	for _, strategy := range e.strategies {
		if names == nil && (strategy == StrategyEmbeddedName || strategy == StrategyRequestPhrase) {
			names = eligibleNames(cat)
		}
		if decision, ok := e.step(strategy, normalized, cat, names); ok {
			return decision, true
		}
	}

	return Decision{}, false
}

// MatchStep runs a single cascade step in isolation.
func (e *Engine) MatchStep(strategy Strategy, text string, cat catalog.Catalog) (Decision, bool) {
	normalized := catalog.NormalizeName(text)
	if normalized == "" {
		return Decision{}, false
	}
	return e.step(strategy, normalized, cat, eligibleNames(cat))
}

func (e *Engine) step(strategy Strategy, normalized string, cat catalog.Catalog, names []string) (Decision, bool) {
	switch strategy {
	case StrategyExactName:
		return exactName(normalized, cat)
	case StrategyEmbeddedName:
		return embeddedName(normalized, cat, names)
	case StrategyRequestPhrase:
		return e.requestPhrase(normalized, cat, names)
	case StrategyKeyword:
		return e.keyword(normalized, cat)
	case StrategyLiteral:
		return e.literal(normalized)
	default:
		return Decision{}, false
	}
}

func exactName(normalized string, cat catalog.Catalog) (Decision, bool) {
	def, ok := cat[normalized]
	if !ok || !eligible(normalized) {
		return Decision{}, false
	}
	return Decision{Strategy: StrategyExactName, Name: normalized, Trigger: normalized, Definition: def}, true
}

func embeddedName(normalized string, cat catalog.Catalog, names []string) (Decision, bool) {
	for _, name := range names {
		if strings.Contains(normalized, name) {
			return Decision{Strategy: StrategyEmbeddedName, Name: name, Trigger: name, Definition: cat[name]}, true
		}
	}
	return Decision{}, false
}

func (e *Engine) requestPhrase(normalized string, cat catalog.Catalog, names []string) (Decision, bool) {
	for _, name := range names {
		for _, prefix := range e.prefixes {
			if phrase := prefix + " " + name; strings.Contains(normalized, phrase) {
				return Decision{Strategy: StrategyRequestPhrase, Name: name, Trigger: phrase, Definition: cat[name]}, true
			}
		}
		for _, suffix := range e.suffixes {
			if phrase := name + " " + suffix; strings.Contains(normalized, phrase) {
				return Decision{Strategy: StrategyRequestPhrase, Name: name, Trigger: phrase, Definition: cat[name]}, true
			}
		}
	}
	return Decision{}, false
}

// keyword stops at the first fragment hit even when its target is missing
// from the catalog; later tokens are not consulted.
func (e *Engine) keyword(normalized string, cat catalog.Catalog) (Decision, bool) {
	tokens := strings.Fields(normalized)
	for i, token := range tokens {
		for _, rule := range e.keywords {
			// A trigger of n words is tested against the n tokens starting here.
			window := token
			if n := strings.Count(rule.Trigger, " ") + 1; n > 1 {
				if i+n > len(tokens) {
					continue
				}
				window = strings.Join(tokens[i:i+n], " ")
			}
			if !strings.Contains(window, rule.Trigger) {
				continue
			}
			def, ok := cat[rule.Target]
			if !ok {
				return Decision{}, false
			}
			return Decision{Strategy: StrategyKeyword, Name: rule.Target, Trigger: rule.Trigger, Definition: def}, true
		}
	}
	return Decision{}, false
}

func (e *Engine) literal(normalized string) (Decision, bool) {
	for _, rule := range e.literals {
		if normalized != rule.Trigger || rule.Reply == nil {
			continue
		}
		name := rule.Target
		if name == "" {
			name = rule.Trigger
		}
		return Decision{Strategy: StrategyLiteral, Name: name, Trigger: rule.Trigger, Definition: *rule.Reply}, true
	}
	return Decision{}, false
}

// eligible rejects one-character names without internal whitespace.
func eligible(name string) bool {
	if utf8.RuneCountInString(name) >= minNameRunes {
		return true
	}
	return strings.IndexFunc(name, unicode.IsSpace) >= 0
}

func eligibleNames(cat catalog.Catalog) []string {
	all := cat.Names()
	names := all[:0]
	for _, name := range all {
		if eligible(name) {
			names = append(names, name)
		}
	}
	return names
}

func splitRules(rules []Rule) ([]Rule, []Rule) {
	var keywords, literals []Rule
	for _, rule := range rules {
		rule.Trigger = catalog.NormalizeName(rule.Trigger)
		rule.Target = catalog.NormalizeName(rule.Target)
		if rule.Trigger == "" {
			continue
		}
		switch rule.Kind {
		case KindKeyword:
			rule.Trigger = strings.Join(strings.Fields(rule.Trigger), " ")
			keywords = append(keywords, rule)
		case KindLiteral:
			literals = append(literals, rule)
		}
	}
	return keywords, literals
}

func normalizeAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if normalized := catalog.NormalizeName(value); normalized != "" {
			out = append(out, normalized)
		}
	}
	return out
}
