package stamp

import (
	"errors"
	"fmt"
	"strings"
)

// EvaluationError is a failed transform expression, tagged with the engine
// that ran it and the storage key it was rewriting. Key is empty for
// compile errors.
type EvaluationError struct {
	Engine string
	Expr   string
	Key    string
	Err    error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	b.WriteString("stamp: ")
	b.WriteString(e.Engine)
	b.WriteString(" transform")
	if e.Expr != "" {
		fmt.Fprintf(&b, " %q", shorten(e.Expr, 60))
	}
	if e.Key != "" {
		fmt.Fprintf(&b, " on key %s", e.Key)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

func (e *EvaluationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func shorten(expr string, limit int) string {
	expr = strings.Join(strings.Fields(expr), " ")
	if len(expr) <= limit {
		return expr
	}
	return expr[:limit] + "..."
}

// wrapEvaluatorError tags engine setup failures. Errors already carrying
// the package prefix pass through untouched.
func wrapEvaluatorError(engine string, err error) error {
	if err == nil {
		return nil
	}
	var evalErr *EvaluationError
	if errors.As(err, &evalErr) || strings.HasPrefix(err.Error(), "stamp:") {
		return err
	}
	return fmt.Errorf("stamp: %s evaluator: %w", engine, err)
}

// wrapEvaluationError attaches expression and key to err, filling only the
// blanks of an existing EvaluationError.
func wrapEvaluationError(engine, expr, key string, err error) error {
	if err == nil {
		return nil
	}
	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		return &EvaluationError{Engine: engine, Expr: expr, Key: key, Err: err}
	}
	if evalErr.Engine == "" {
		evalErr.Engine = engine
	}
	if evalErr.Expr == "" {
		evalErr.Expr = expr
	}
	if evalErr.Key == "" {
		evalErr.Key = key
	}
	return evalErr
}
