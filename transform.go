package stamp

import (
	"errors"
	"fmt"
	"time"

	"github.com/goliatone/go-stamp/internal/hydrate"
)

// TransformContext identifies the entry a transform is rewriting.
type TransformContext struct {
	Key        string
	OldVersion string
	NewVersion string
	Now        time.Time
}

// Transformer rewrites the parsed JSON value of a stored entry. Returning a
// nil value removes the entry.
type Transformer interface {
	Transform(ctx TransformContext, value any) (any, error)
}

// TransformFunc adapts a function to Transformer.
type TransformFunc func(ctx TransformContext, value any) (any, error)

// Transform implements Transformer.
func (f TransformFunc) Transform(ctx TransformContext, value any) (any, error) {
	if f == nil {
		return nil, errors.New("stamp: transform func is nil")
	}
	return f(ctx, value)
}

// ExprTransform compiles expression once with evaluator. The expression sees
// value, key, old_version, new_version, now and args; its result replaces
// the stored value.
func ExprTransform(evaluator Evaluator, expression string, args map[string]any) (Transformer, error) {
	if evaluator == nil {
		return nil, errors.New("stamp: expression transform requires an evaluator")
	}
	compiled, err := evaluator.Compile(expression)
	if err != nil {
		return nil, err
	}
	return &exprTransformer{
		rule:       compiled,
		expression: expression,
		engine:     evaluatorEngineName(evaluator),
		args:       args,
	}, nil
}

type exprTransformer struct {
	rule       CompiledRule
	expression string
	engine     string
	args       map[string]any
}

func (t *exprTransformer) Transform(ctx TransformContext, value any) (any, error) {
	now := ctx.Now
	if now.IsZero() {
		now = time.Now()
	}
	return t.rule.Evaluate(RuleContext{
		Value:      value,
		Key:        ctx.Key,
		OldVersion: ctx.OldVersion,
		NewVersion: ctx.NewVersion,
		Now:        &now,
		Args:       cloneArgs(t.args),
	})
}

func (t *exprTransformer) String() string {
	return fmt.Sprintf("%s(%s)", t.engine, t.expression)
}

func cloneArgs(args map[string]any) map[string]any {
	out := make(map[string]any, len(args))
	for k, v := range args {
		out[k] = v
	}
	return out
}

// TypedTransform decodes the stored value into T before calling fn. A value
// that does not decode into T is reported as a transform error, which makes
// the engine drop the entry.
func TypedTransform[T any](fn func(ctx TransformContext, value T) (any, error)) Transformer {
	decoder := hydrate.NewDecoder[T]()
	return TransformFunc(func(ctx TransformContext, value any) (any, error) {
		if fn == nil {
			return nil, errors.New("stamp: typed transform func is nil")
		}
		typed, err := decoder.Decode(hydrate.Context{Key: ctx.Key, Version: ctx.OldVersion}, value)
		if err != nil {
			return nil, err
		}
		return fn(ctx, typed)
	})
}
