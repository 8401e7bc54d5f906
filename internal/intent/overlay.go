package intent

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParsePatterns reads a YAML document of the form
//
//	schedule_meeting:
//	  - '\bplan\b.*\bsync\b'
//
// and returns the compiled families it declares, keyed by intent.
func ParsePatterns(data []byte) (map[Intent][]*regexp.Regexp, error) {
	var raw map[string][]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse intent patterns: %w", err)
	}

	out := make(map[Intent][]*regexp.Regexp, len(raw))
	for name, exprs := range raw {
		in, ok := Parse(name)
		if !ok || in == Unknown {
			return nil, fmt.Errorf("parse intent patterns: unknown intent %q", name)
		}
		compiled := make([]*regexp.Regexp, 0, len(exprs))
		for _, expr := range exprs {
			expr = strings.TrimSpace(expr)
			if expr == "" {
				continue
			}
			re, err := regexp.Compile(expr)
			if err != nil {
				return nil, fmt.Errorf("parse intent patterns: %s: %w", in, err)
			}
			compiled = append(compiled, re)
		}
		if len(compiled) == 0 {
			return nil, fmt.Errorf("parse intent patterns: %s has no patterns", in)
		}
		out[in] = compiled
	}
	return out, nil
}

// LoadPatternFile reads an overlay from disk and applies it to the default table.
func LoadPatternFile(path string) ([]Family, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read intent patterns: %w", err)
	}
	overlay, err := ParsePatterns(data)
	if err != nil {
		return nil, err
	}
	return ApplyOverlay(DefaultFamilies(), overlay), nil
}

// ApplyOverlay replaces the patterns of overlaid intents while keeping table order.
func ApplyOverlay(base []Family, overlay map[Intent][]*regexp.Regexp) []Family {
	out := make([]Family, 0, len(base))
	for _, f := range base {
		if patterns, ok := overlay[f.Intent]; ok {
			f = Family{Intent: f.Intent, Patterns: patterns}
		}
		out = append(out, f)
	}
	return out
}
