//go:build js_eval

package stamp

import (
	"errors"
	"testing"
	"time"
)

func TestJSTransformTimesOut(t *testing.T) {
	evaluator := NewJSEvaluator(JSWithTimeout(20 * time.Millisecond))

	_, err := evaluator.Evaluate(RuleContext{Key: KeyExpenses}, "(function(){ while (true) {} })()")
	if !errors.Is(err, ErrTransformTimeout) {
		t.Fatalf("expected ErrTransformTimeout, got %v", err)
	}
	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) || evalErr.Key != KeyExpenses {
		t.Fatalf("expected EvaluationError naming the key, got %v", err)
	}
}

func TestJSRegistryGlobals(t *testing.T) {
	evaluator := NewJSEvaluator(JSWithFunctionRegistry(DefaultFunctions()))

	got, err := evaluator.Evaluate(RuleContext{OldVersion: "1.9.0", NewVersion: "2.0.0"}, `version_lower(old_version, "2.0.0") && call("version_major", new_version) == 2`)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if got != true {
		t.Fatalf("expected true, got %v", got)
	}
}
