// Package selector resolves page fields through ordered fallback rules. Rules for a
// field are tried in priority order and the first one that yields a usable value wins.
package selector

import (
	"log/slog"

	"github.com/maltedev/sameday-crawler/internal/browser"
)

// Field names the semantic value a chain resolves.
type Field string

const (
	FieldProducts    Field = "products"
	FieldName        Field = "name"
	FieldPrice       Field = "price"
	FieldImage       Field = "image"
	FieldDetailID    Field = "detail_id"
	FieldDetailImage Field = "detail_image"
)

// Strategy is one extraction rule. ok reports whether the rule produced a usable
// value; an error means the rule could not be evaluated and the next one is tried.
type Strategy[T any] interface {
	Name() string
	Resolve(scope browser.Scope) (value T, ok bool, err error)
}

// StrategyFunc adapts a plain function into a named Strategy.
type StrategyFunc[T any] struct {
	Label string
	Fn    func(scope browser.Scope) (T, bool, error)
}

func (f StrategyFunc[T]) Name() string {
	return f.Label
}

func (f StrategyFunc[T]) Resolve(scope browser.Scope) (T, bool, error) {
	return f.Fn(scope)
}

type Result[T any] struct {
	Value T
	// Rule is the name of the strategy that produced Value.
	Rule  string
	Found bool
}

type Chain[T any] struct {
	Field      Field
	Strategies []Strategy[T]
	Logger     *slog.Logger
}

func NewChain[T any](field Field, logger *slog.Logger, strategies ...Strategy[T]) Chain[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return Chain[T]{
		Field:      field,
		Strategies: strategies,
		Logger:     logger.With("component", "selector", "field", string(field)),
	}
}

// Resolve evaluates the strategies in order and stops at the first success. Later
// strategies are never consulted once one has matched.
func (c Chain[T]) Resolve(scope browser.Scope) Result[T] {
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}

	for _, s := range c.Strategies {
		value, ok, err := s.Resolve(scope)
		if err != nil {
			logger.Debug("rule failed", "rule", s.Name(), "error", err)
			continue
		}
		if ok {
			return Result[T]{Value: value, Rule: s.Name(), Found: true}
		}
	}

	return Result[T]{}
}
