//go:build !js_eval

package stamp

// NewJSEvaluator returns nil unless the binary was built with -tags js_eval;
// NewEvaluator reports ErrEngineUnavailable instead of calling it.
func NewJSEvaluator(...JSEvaluatorOption) Evaluator {
	return nil
}

func jsEvaluatorAvailable() bool { return false }
