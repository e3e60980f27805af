// evaluator.go — adapts the engine's page/context Evaluate calls to
// the handle protocol's Evaluator interface (spec §4.1: "the host
// never executes JavaScript itself, it only prepares the call and
// routes the result").
package runner

import (
	"context"
	"fmt"

	"github.com/wrightplay/wrightplay/internal/serialize"
)

// evaluable is satisfied by engine.Page; a browsing context has no
// Evaluate of its own (spec's pageHandle/contextHandle both compile
// through the same protocol, but only the page target can actually
// run script).
type evaluable interface {
	Evaluate(ctx context.Context, expression string, arg any) (any, error)
}

// engineEvaluator runs a compiled expression against whichever
// target resolved from the handle vector supports it.
type engineEvaluator struct{}

func (engineEvaluator) Evaluate(ctx context.Context, target any, compiled serialize.CompiledExpr, arg any) (any, error) {
	ev, ok := target.(evaluable)
	if !ok {
		return nil, fmt.Errorf("runner: target %T cannot evaluate script", target)
	}
	return ev.Evaluate(ctx, compiled.Source, arg)
}
