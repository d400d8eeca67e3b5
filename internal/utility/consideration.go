package utility

import (
	"fmt"
	"log/slog"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/joeycumines/colony-brain/internal/conditions"
	"github.com/joeycumines/colony-brain/internal/curve"
	"github.com/joeycumines/colony-brain/internal/sim"
)

// Context is what considerations score against.
type Context struct {
	View  sim.View
	Agent sim.Entity
}

// Vars returns the agent's facts, or nil without a view.
func (c Context) Vars() map[string]any {
	if c.View == nil {
		return nil
	}
	return c.View.Vars(c.Agent)
}

// Consideration is one scoring input of a Decision. Scores are expected in
// [0,1]; Decision.Score clamps them.
type Consideration interface {
	Name() string
	Score(ctx Context) float64
}

type funcConsideration struct {
	name string
	fn   func(Context) float64
}

func (f funcConsideration) Name() string { return f.name }
func (f funcConsideration) Score(ctx Context) float64 { return f.fn(ctx) }

// Func returns a Consideration backed by fn.
func Func(name string, fn func(ctx Context) float64) Consideration {
	if fn == nil {
		panic(fmt.Sprintf("utility.Func: nil func (name=%s)", name))
	}
	return funcConsideration{name: name, fn: fn}
}

// Const returns a Consideration that always scores v.
func Const(name string, v float64) Consideration {
	return Func(name, func(Context) float64 { return v })
}

// Extractor produces the raw input of a curved consideration.
type Extractor func(ctx Context) float64

// Curved maps an extracted input through a response curve.
type Curved struct {
	Label string
	Curve curve.Curve
	Input Extractor
}

var _ Consideration = Curved{}

func (c Curved) Name() string { return c.Label }

func (c Curved) Score(ctx Context) float64 {
	return c.Curve.Eval(c.Input(ctx))
}

// Var extracts a numeric fact by name. Missing or non-numeric facts are 0.
func Var(name string) Extractor {
	return func(ctx Context) float64 {
		v, _ := toFloat(ctx.Vars()[name])
		return v
	}
}

// ExprExtractor compiles an expr-lang expression over the agent's facts,
// for example "hunger / 100". Run errors and non-numeric results are logged
// and extract 0.
func ExprExtractor(expression string) (Extractor, error) {
	program, err := conditions.Compile(expression)
	if err != nil {
		return nil, fmt.Errorf("consideration input %q: %w", expression, err)
	}
	return exprExtractor(expression, program), nil
}

func exprExtractor(expression string, program *vm.Program) Extractor {
	return func(ctx Context) float64 {
		out, err := expr.Run(program, ctx.Vars())
		if err != nil {
			slog.Warn("[utility] consideration input failed",
				"expression", expression,
				"agent", ctx.Agent,
				"error", err)
			return 0
		}
		v, ok := toFloat(out)
		if !ok {
			slog.Warn("[utility] consideration input is not numeric",
				"expression", expression,
				"resultType", fmt.Sprintf("%T", out))
		}
		return v
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint64:
		return float64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}
