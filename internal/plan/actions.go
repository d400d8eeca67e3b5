package plan

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/joeycumines/colony-brain/internal/conditions"
	bt "github.com/joeycumines/go-behaviortree"
	pabt "github.com/joeycumines/go-pabt"
)

// Action is a planning action: precondition groups (each an AND, the groups
// OR'd), the effects it achieves, and the node that performs it.
type Action struct {
	Name string

	conditions []pabt.IConditions
	effects    pabt.Effects
	node       bt.Node
}

var _ pabt.IAction = (*Action)(nil)

// NewAction returns an Action. It panics if node is nil.
func NewAction(name string, conditions []pabt.IConditions, effects pabt.Effects, node bt.Node) *Action {
	if node == nil {
		panic(fmt.Sprintf("plan.NewAction: node cannot be nil (action=%s)", name))
	}
	return &Action{Name: name, conditions: conditions, effects: effects, node: node}
}

// Conditions implements pabt.IAction.
func (a *Action) Conditions() []pabt.IConditions { return a.conditions }

// Effects implements pabt.IAction.
func (a *Action) Effects() pabt.Effects { return a.effects }

// Node implements pabt.IAction.
func (a *Action) Node() bt.Node { return a.node }

// Builder assembles an Action.
type Builder struct {
	name       string
	conditions []pabt.IConditions
	effects    pabt.Effects
}

// Build starts an Action named name.
func Build(name string) *Builder { return &Builder{name: name} }

// When adds a precondition group; every condition in it must hold.
func (b *Builder) When(conds ...pabt.Condition) *Builder {
	b.conditions = append(b.conditions, conds)
	return b
}

// Sets adds the effect key = value.
func (b *Builder) Sets(key, value any) *Builder {
	b.effects = append(b.effects, Effect{K: key, V: value})
	return b
}

// Do finishes the action with node.
func (b *Builder) Do(node bt.Node) *Action {
	return NewAction(b.name, b.conditions, b.effects, node)
}

// Effect is a key/value state change.
type Effect struct {
	K any
	V any
}

var _ pabt.Effect = Effect{}

// Key implements pabt.Effect.
func (e Effect) Key() any { return e.K }

// Value implements pabt.Effect.
func (e Effect) Value() any { return e.V }

// Cond is a condition over one variable.
type Cond struct {
	key   any
	match func(value any) bool
}

var _ pabt.Condition = (*Cond)(nil)

// NewCond returns a condition on key matched by fn.
func NewCond(key any, fn func(value any) bool) *Cond {
	return &Cond{key: key, match: fn}
}

// Equal matches when the variable equals want.
func Equal(key, want any) *Cond {
	return NewCond(key, func(v any) bool { return v == want })
}

// Set matches any non-nil value.
func Set(key any) *Cond {
	return NewCond(key, func(v any) bool { return v != nil })
}

// Unset matches nil.
func Unset(key any) *Cond {
	return NewCond(key, func(v any) bool { return v == nil })
}

// Key implements pabt.Condition.
func (c *Cond) Key() any { return c.key }

// Match implements pabt.Condition.
func (c *Cond) Match(value any) bool {
	return c.match != nil && c.match(value)
}

// ExprCond is a condition written in expr-lang. The variable is bound as
// "value"; the expression must yield a bool.
type ExprCond struct {
	key        any
	expression string

	mu      sync.Mutex
	program *vm.Program
	lastErr error
}

var _ pabt.Condition = (*ExprCond)(nil)

// NewExprCond returns an ExprCond. It panics on an empty expression; the
// expression is compiled on first use.
func NewExprCond(key any, expression string) *ExprCond {
	if expression == "" {
		panic("plan.NewExprCond: expression cannot be empty")
	}
	return &ExprCond{key: key, expression: expression}
}

// Key implements pabt.Condition.
func (c *ExprCond) Key() any { return c.key }

// LastError returns the compile or evaluation error of the latest Match.
func (c *ExprCond) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Match implements pabt.Condition. Errors and non-bool results are false.
func (c *ExprCond) Match(value any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastErr = nil
	if c.program == nil {
		program, err := conditions.Compile(c.expression)
		if err != nil {
			c.lastErr = fmt.Errorf("compile %q: %w", c.expression, err)
			slog.Error("[plan] condition compile error", "expression", c.expression, "error", err)
			return false
		}
		c.program = program
	}
	out, err := expr.Run(c.program, map[string]any{"value": value})
	if err != nil {
		c.lastErr = fmt.Errorf("evaluate %q: %w", c.expression, err)
		slog.Error("[plan] condition evaluation error", "expression", c.expression, "error", err)
		return false
	}
	b, ok := out.(bool)
	if !ok {
		c.lastErr = fmt.Errorf("evaluate %q: non-boolean result %T", c.expression, out)
		slog.Warn("[plan] condition returned a non-boolean", "expression", c.expression, "type", fmt.Sprintf("%T", out))
		return false
	}
	return b
}
