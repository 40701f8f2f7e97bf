package stamp

import "time"

// RuleContext carries the inputs visible to a transform expression.
type RuleContext struct {
	Value      any
	Key        string
	OldVersion string
	NewVersion string
	Now        *time.Time
	Args       map[string]any
}

func (ctx RuleContext) withDefaultNow() RuleContext {
	if ctx.Now != nil {
		return ctx
	}
	now := time.Now()
	ctx.Now = &now
	return ctx
}

func (ctx RuleContext) withDefaultMaps() RuleContext {
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	return ctx
}

func (ctx RuleContext) withDefaults() RuleContext {
	return ctx.withDefaultNow().withDefaultMaps()
}

func (ctx RuleContext) timestamp() time.Time {
	ctx = ctx.withDefaultNow()
	return *ctx.Now
}

func (ctx RuleContext) keyLabel() string {
	if ctx.Key != "" {
		return ctx.Key
	}
	return "unknown"
}

// bindings returns the variables every engine exposes. Names are fixed so
// engines that need declarations up front (CEL) can build them once.
func (ctx RuleContext) bindings() map[string]any {
	return map[string]any{
		"value":       ctx.Value,
		"key":         ctx.Key,
		"old_version": ctx.OldVersion,
		"new_version": ctx.NewVersion,
		"now":         ctx.timestamp(),
		"args":        ctx.Args,
	}
}

// Evaluator executes expressions against a rule context.
type Evaluator interface {
	Evaluate(ctx RuleContext, expr string) (any, error)
	Compile(expr string) (CompiledRule, error)
}

// CompiledRule represents a reusable expression program.
type CompiledRule interface {
	Evaluate(ctx RuleContext) (any, error)
}
