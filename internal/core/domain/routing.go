package domain

import (
	"fmt"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Lifecycle stages
const (
	LifecycleDraft      = "draft"
	LifecycleActive     = "active"
	LifecycleStable     = "stable"
	LifecycleDeprecated = "deprecated"
	LifecycleArchived   = "archived"
)

var lifecycleStages = map[string]bool{
	LifecycleDraft: true, LifecycleActive: true, LifecycleStable: true,
	LifecycleDeprecated: true, LifecycleArchived: true,
}

// Known corpora. Corpora may also use the research_ and ephemeral_ prefixes.
var knownCorpora = map[string]bool{"core_kb": true, "deployment": true, "published": true}

// ValidCorpus reports whether c is a recognised corpus tag
func ValidCorpus(c string) bool {
	return knownCorpora[c] ||
		(strings.HasPrefix(c, "research_") && len(c) > len("research_")) ||
		(strings.HasPrefix(c, "ephemeral_") && len(c) > len("ephemeral_"))
}

// ValidLifecycleStage reports whether s is a known lifecycle stage
func ValidLifecycleStage(s string) bool {
	return lifecycleStages[s]
}

// RoutingRule assigns tags to paths matching PathPattern
type RoutingRule struct {
	PathPattern    string `yaml:"path_pattern" json:"path_pattern"`
	Corpus         string `yaml:"corpus" json:"corpus"`
	ContentType    string `yaml:"content_type,omitempty" json:"content_type,omitempty"`
	LifecycleStage string `yaml:"lifecycle_stage,omitempty" json:"lifecycle_stage,omitempty"`
}

// Route is the outcome of routing one path
type Route struct {
	Corpus         string `json:"corpus"`
	ContentType    string `json:"content_type"`
	LifecycleStage string `json:"lifecycle_stage"`
	Rule           int    `json:"rule"` // index of the matching rule, -1 for defaults
}

// Router evaluates routing rules in declared order; the first match wins.
// Routing depends on the path only.
type Router struct {
	rules    []RoutingRule
	defaults Route
}

// NewRouter validates rules and defaults
func NewRouter(rules []RoutingRule, defaultCorpus, defaultContentType, defaultStage string) (*Router, error) {
	if defaultStage == "" {
		defaultStage = LifecycleActive
	}
	if !ValidCorpus(defaultCorpus) {
		return nil, fmt.Errorf("%w: default corpus %q", ErrInvalidRoutingRule, defaultCorpus)
	}
	if !ValidLifecycleStage(defaultStage) {
		return nil, fmt.Errorf("%w: default lifecycle stage %q", ErrInvalidRoutingRule, defaultStage)
	}
	for i, r := range rules {
		if r.PathPattern == "" || !doublestar.ValidatePattern(r.PathPattern) {
			return nil, fmt.Errorf("%w: rule %d: bad path_pattern %q", ErrInvalidRoutingRule, i, r.PathPattern)
		}
		if !ValidCorpus(r.Corpus) {
			return nil, fmt.Errorf("%w: rule %d: unknown corpus %q", ErrInvalidRoutingRule, i, r.Corpus)
		}
		if r.LifecycleStage != "" && !ValidLifecycleStage(r.LifecycleStage) {
			return nil, fmt.Errorf("%w: rule %d: unknown lifecycle stage %q", ErrInvalidRoutingRule, i, r.LifecycleStage)
		}
	}
	return &Router{
		rules: append([]RoutingRule(nil), rules...),
		defaults: Route{
			Corpus:         defaultCorpus,
			ContentType:    defaultContentType,
			LifecycleStage: defaultStage,
			Rule:           -1,
		},
	}, nil
}

// Route returns the tags for sourcePath
func (r *Router) Route(sourcePath string) Route {
	p := strings.TrimPrefix(path.Clean(strings.ReplaceAll(sourcePath, "\\", "/")), "./")
	for i, rule := range r.rules {
		// Patterns are validated in NewRouter, so Match cannot fail here.
		if ok, _ := doublestar.Match(rule.PathPattern, p); !ok {
			continue
		}
		out := Route{
			Corpus:         rule.Corpus,
			ContentType:    rule.ContentType,
			LifecycleStage: rule.LifecycleStage,
			Rule:           i,
		}
		if out.ContentType == "" {
			out.ContentType = r.defaults.ContentType
		}
		if out.LifecycleStage == "" {
			out.LifecycleStage = r.defaults.LifecycleStage
		}
		return out
	}
	return r.defaults
}

// Rules returns a copy of the rules in evaluation order
func (r *Router) Rules() []RoutingRule {
	return append([]RoutingRule(nil), r.rules...)
}
