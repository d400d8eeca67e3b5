package agent

import (
	"maps"

	"github.com/joeycumines/colony-brain/internal/behavior"
	"github.com/joeycumines/colony-brain/internal/conditions"
	"github.com/joeycumines/colony-brain/internal/sim"
	"github.com/joeycumines/colony-brain/internal/utility"
)

// Context is handed to leaf actions and preconditions.
type Context struct {
	System *System
	Agent  *Agent
}

// Blackboard returns the agent's blackboard.
func (c *Context) Blackboard() *behavior.Blackboard {
	return &c.Agent.Blackboard
}

// Position returns the agent's tile.
func (c *Context) Position() (sim.Tile, bool) {
	if c.System.View == nil {
		return sim.Tile{}, false
	}
	return c.System.View.Position(c.Agent.ID)
}

// Vars returns the facts conditions are evaluated against: the blackboard,
// overlaid by the world view's facts about the agent.
func (c *Context) Vars() map[string]any {
	vars := c.Agent.Blackboard.Snapshot()
	if c.System.View != nil {
		maps.Copy(vars, c.System.View.Vars(c.Agent.ID))
	}
	return vars
}

// Utility returns the context considerations are scored against.
func (c *Context) Utility() utility.Context {
	return utility.Context{View: c.System.View, Agent: c.Agent.ID}
}

type serviceConditions struct {
	svc *conditions.Service
}

func (s serviceConditions) Check(name string, c *Context) bool {
	return s.svc.Evaluate(name, c.Vars())
}

// Conditions adapts a conditions service to leaf preconditions.
func Conditions(svc *conditions.Service) behavior.Preconditions[*Context] {
	return serviceConditions{svc: svc}
}
