package parser

import (
	"fmt"
	"log/slog"
	"sort"
)

// Parser provides pure page/JSON -> fleet struct conversion.
// It has zero external dependencies beyond a logger: downloads and caching
// live in the api client, orchestration in the worker layer.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a new parser with only a logger dependency
func NewParser(logger *slog.Logger) *Parser {
	return &Parser{logger: logger}
}

// The vehicle spec mixes object shapes per component, so most navigation
// happens on map[string]any. Missing or mistyped fields are errors, never
// panics: one malformed page must not take down a whole fleet fetch.

func objField(m map[string]any, key string) (map[string]any, error) {
	v, ok := m[key].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("couldn't find object %q", key)
	}
	return v, nil
}

func arrField(m map[string]any, key string) ([]any, error) {
	v, ok := m[key].([]any)
	if !ok {
		return nil, fmt.Errorf("couldn't find array %q", key)
	}
	return v, nil
}

func strField(m map[string]any, key string) (string, error) {
	v, ok := m[key].(string)
	if !ok {
		return "", fmt.Errorf("couldn't find string %q", key)
	}
	return v, nil
}

func floatField(m map[string]any, key string) (float64, error) {
	v, ok := m[key].(float64)
	if !ok {
		return 0, fmt.Errorf("couldn't find number %q", key)
	}
	return v, nil
}

// sortedKeys keeps map iteration deterministic, so hulls, guns and scheme
// parts always come out in the same order.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
