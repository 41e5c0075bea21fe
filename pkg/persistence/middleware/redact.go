package middleware

import (
	"context"
	"regexp"

	"github.com/aretw0/playground/pkg/domain"
	"github.com/aretw0/playground/pkg/ports"
)

// Mask replaces redacted values.
const Mask = "***"

// DefaultSecretPatterns match parameter keys that usually carry key material.
var DefaultSecretPatterns = []string{`(?i)secret`, `(?i)private`, `(?i)seed`, `(?i)mnemonic`, `(?i)api[_-]?key`}

type redactMiddleware struct {
	next     ports.PlaygroundStore
	patterns []*regexp.Regexp
}

// NewRedactMiddleware creates a middleware that masks values whose keys match any pattern.
// Node params, published data and outputs are scanned, nested maps included.
// The caller's playground is never modified.
func NewRedactMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.PlaygroundStore) ports.PlaygroundStore {
		return &redactMiddleware{next: next, patterns: patterns}
	}
}

func (m *redactMiddleware) Save(ctx context.Context, p *domain.Playground) error {
	cloned := p.Clone()
	for i := range cloned.Graph.Nodes {
		n := &cloned.Graph.Nodes[i]
		m.maskMap(n.Params)
		for _, v := range n.Data {
			m.maskValue(v)
		}
		m.maskValue(n.Output)
	}
	return m.next.Save(ctx, &cloned)
}

func (m *redactMiddleware) Load(ctx context.Context, id string) (*domain.Playground, error) {
	return m.next.Load(ctx, id)
}

func (m *redactMiddleware) Delete(ctx context.Context, id string) error {
	return m.next.Delete(ctx, id)
}

func (m *redactMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func (m *redactMiddleware) matches(key string) bool {
	for _, p := range m.patterns {
		if p.MatchString(key) {
			return true
		}
	}
	return false
}

func (m *redactMiddleware) maskMap(values map[string]any) {
	for k, v := range values {
		if m.matches(k) {
			values[k] = Mask
			continue
		}
		m.maskValue(v)
	}
}

func (m *redactMiddleware) maskValue(v any) {
	switch t := v.(type) {
	case map[string]any:
		m.maskMap(t)
	case []any:
		for _, item := range t {
			m.maskValue(item)
		}
	}
}
