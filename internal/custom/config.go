// Package custom holds the per-artifact customization parameters.
// Constructors validate their inputs so a Config always carries a
// well-formed parameter set for its artifact kind.
package custom

import (
	"fmt"
	"strings"
)

// Detail is the shared three-level scale used by the formality, detail
// and language complexity parameters.
type Detail string

const (
	DetailLow    Detail = "low"
	DetailMedium Detail = "medium"
	DetailHigh   Detail = "high"
)

type Style string

const (
	StyleAcademic     Style = "academic"
	StyleTechnical    Style = "technical"
	StyleNonTechnical Style = "non-technical"
)

type PodcastType string

const (
	PodcastConversational PodcastType = "conversational"
	PodcastNarrative      PodcastType = "narrative"
)

// Param is one named, labelled customization value.
type Param struct {
	Name  string `json:"name"`
	Label string `json:"label"`
	Value string `json:"value"`
}

// Config is an ordered set of validated parameters for one artifact.
type Config struct {
	params []Param
}

func (c Config) Params() []Param {
	return c.params
}

// Value returns the value of a parameter by name, or "" when the
// artifact does not carry it.
func (c Config) Value(name string) string {
	for _, p := range c.params {
		if p.Name == name {
			return p.Value
		}
	}
	return ""
}

// PromptBlock renders the parameters for inclusion in a model prompt.
// Empty for an empty config.
func (c Config) PromptBlock() string {
	if len(c.params) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("Customization parameters:")
	for _, p := range c.params {
		sb.WriteString(fmt.Sprintf("\n- %s: %s", capitalizeLabel(p.Label), p.Value))
	}
	return sb.String()
}

func capitalizeLabel(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func parseLevel(name, label, raw string) (Param, error) {
	switch Detail(raw) {
	case DetailLow, DetailMedium, DetailHigh:
		return Param{Name: name, Label: label, Value: raw}, nil
	}
	return Param{}, fmt.Errorf("invalid %s %q: want low, medium or high", name, raw)
}

func parseFormality(raw string) (Param, error) {
	return parseLevel("formality", "formality level", raw)
}

func parseDetail(raw string) (Param, error) {
	return parseLevel("detail", "detail level", raw)
}

func parseComplexity(raw string) (Param, error) {
	return parseLevel("language_complexity", "language complexity", raw)
}

func parseStyle(raw string) (Param, error) {
	switch Style(raw) {
	case StyleAcademic, StyleTechnical, StyleNonTechnical:
		return Param{Name: "style", Label: "style", Value: raw}, nil
	}
	return Param{}, fmt.Errorf("invalid style %q: want academic, technical or non-technical", raw)
}

func parsePodcastType(raw string) (Param, error) {
	switch PodcastType(raw) {
	case PodcastConversational, PodcastNarrative:
		return Param{Name: "podcast_type", Label: "podcast type", Value: raw}, nil
	}
	return Param{}, fmt.Errorf("invalid podcast_type %q: want conversational or narrative", raw)
}

func build(parts ...func() (Param, error)) (Config, error) {
	c := Config{params: make([]Param, 0, len(parts))}
	for _, part := range parts {
		p, err := part()
		if err != nil {
			return Config{}, err
		}
		c.params = append(c.params, p)
	}
	return c, nil
}

func ForSummary(formality, style, detail, complexity string) (Config, error) {
	return build(
		func() (Param, error) { return parseFormality(formality) },
		func() (Param, error) { return parseStyle(style) },
		func() (Param, error) { return parseDetail(detail) },
		func() (Param, error) { return parseComplexity(complexity) },
	)
}

func ForFAQ(detail, complexity string) (Config, error) {
	return build(
		func() (Param, error) { return parseDetail(detail) },
		func() (Param, error) { return parseComplexity(complexity) },
	)
}

func ForGlossary(detail, complexity string) (Config, error) {
	return build(
		func() (Param, error) { return parseDetail(detail) },
		func() (Param, error) { return parseComplexity(complexity) },
	)
}

func ForOutline(detail string) (Config, error) {
	return build(func() (Param, error) { return parseDetail(detail) })
}

func ForTimeline(detail string) (Config, error) {
	return build(func() (Param, error) { return parseDetail(detail) })
}

func ForMindMap(detail string) (Config, error) {
	return build(func() (Param, error) { return parseDetail(detail) })
}

func ForPodcast(formality, style, detail, complexity, podcastType string) (Config, error) {
	return build(
		func() (Param, error) { return parseFormality(formality) },
		func() (Param, error) { return parseStyle(style) },
		func() (Param, error) { return parseDetail(detail) },
		func() (Param, error) { return parseComplexity(complexity) },
		func() (Param, error) { return parsePodcastType(podcastType) },
	)
}
