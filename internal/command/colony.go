package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/joeycumines/colony-brain/internal/agent"
	"github.com/joeycumines/colony-brain/internal/behavior"
	"github.com/joeycumines/colony-brain/internal/conditions"
	"github.com/joeycumines/colony-brain/internal/plan"
	"github.com/joeycumines/colony-brain/internal/script"
	"github.com/joeycumines/colony-brain/internal/sim"
	"github.com/joeycumines/colony-brain/internal/taskcache"
	"github.com/joeycumines/colony-brain/internal/tasks"
	"github.com/joeycumines/colony-brain/internal/utility"
	"github.com/joeycumines/colony-brain/internal/world"
	bt "github.com/joeycumines/go-behaviortree"
	pabt "github.com/joeycumines/go-pabt"
)

// defaultLayout is the built-in map. Besides walls and floor it marks rocks
// (r), trees (t) and colonist spawn points (c).
var defaultLayout = []string{
	"############",
	"#c...r....t#",
	"#..........#",
	"#c...r...t.#",
	"#....##....#",
	"#c.....r...#",
	"############",
}

// Facts the colony keeps on every colonist.
const (
	factHunger = "hunger"
	factEnergy = "energy"
)

// defaultConditions fill in names the [conditions] section leaves out.
var defaultConditions = map[string]string{
	"hungry": "hunger >= 50",
	"tired":  "energy <= 40",
}

// dozeScript keeps a colonist resting for a few ticks.
const dozeScript = `function(bb) {
	var n = (bb.get("rest.ticks") || 0) + 1;
	bb.set("rest.ticks", n);
	if (n < 3) return "busy";
	return "success";
}`

// colonyDecisions pairs each decision with the tree it runs; an empty tree
// is the idle decision.
var colonyDecisions = []struct {
	def  utility.DecisionDef
	tree string
}{
	{utility.DecisionDef{Name: "work", Base: 0.7, Considerations: []utility.ConsiderationDef{
		{Name: "rested", Input: "energy / 100", Curve: "linear"},
	}}, "work"},
	{utility.DecisionDef{Name: "eat", Base: 0.95, Considerations: []utility.ConsiderationDef{
		{Name: "hunger", Input: "hunger / 100", Curve: "logistic c=0.6"},
	}}, "eat"},
	{utility.DecisionDef{Name: "rest", Base: 0.9, Considerations: []utility.ConsiderationDef{
		{Name: "fatigue", Input: "1 - energy / 100", Curve: "exponential k=2"},
	}}, "rest"},
	{utility.DecisionDef{Name: "idle", Base: 0.05}, ""},
}

type colonyOptions struct {
	Agents     int
	Cooldown   uint64
	WorkTicks  int
	Conditions map[string]string
}

type needs struct {
	hunger int
	energy int
}

// colonyStats is a snapshot of a colony's counters.
type colonyStats struct {
	Frame uint64
	Tasks map[string]int
	Meals int
	Rests int
}

// colony is the simulation the run command drives: a world of rocks and
// trees, colonists that work them, and hunger and fatigue that pull the
// colonists away from work.
type colony struct {
	mu        sync.Mutex
	world     *world.World
	sys       *agent.System
	colonists []sim.Entity
	needs     map[sim.Entity]*needs
	completed map[tasks.Kind]int
	meals     int
	rests     int

	// biteTree is run by the meal plan's eat_food action.
	biteTree behavior.Handle
}

type marker struct {
	kind byte
	tile sim.Tile
}

// parseLayout splits the markers out of layout, leaving floor in their
// place.
func parseLayout(layout []string) (*world.World, []marker, error) {
	rows := make([]string, len(layout))
	var markers []marker
	for y, row := range layout {
		b := []byte(row)
		for x, ch := range b {
			switch ch {
			case 'r', 't', 'c':
				markers = append(markers, marker{kind: ch, tile: sim.Tile{X: x, Y: y}})
				b[x] = '.'
			}
		}
		rows[y] = string(b)
	}
	w, err := world.Parse(rows)
	if err != nil {
		return nil, nil, err
	}
	return w, markers, nil
}

func newColony(layout []string, opts colonyOptions) (*colony, error) {
	w, markers, err := parseLayout(layout)
	if err != nil {
		return nil, fmt.Errorf("invalid layout: %w", err)
	}
	w.Require("mine", "pickaxe", 1)
	w.Require("chop", "axe", 1)

	c := &colony{
		world:     w,
		needs:     make(map[sim.Entity]*needs),
		completed: make(map[tasks.Kind]int),
	}

	var spawns []sim.Tile
	for _, m := range markers {
		var task tasks.Task
		switch m.kind {
		case 'c':
			spawns = append(spawns, m.tile)
			continue
		case 'r':
			task = tasks.New(tasks.Mine, 1, "mine")
		case 't':
			task = tasks.New(tasks.Chop, 2, "chop")
		}
		e, err := w.Spawn(m.tile)
		if err != nil {
			return nil, err
		}
		q, err := w.Queue(e)
		if err != nil {
			return nil, err
		}
		q.Insert(task)
	}
	if opts.Agents > len(spawns) {
		return nil, fmt.Errorf("layout has %d colonist spawn points, need %d", len(spawns), opts.Agents)
	}

	svc := conditions.New()
	defs := maps.Clone(defaultConditions)
	maps.Copy(defs, opts.Conditions)
	if err := svc.DefineAll(defs); err != nil {
		return nil, err
	}

	engine, err := c.engine(svc)
	if err != nil {
		return nil, err
	}
	c.sys, err = agent.NewSystem(agent.Options{
		View:           w,
		Pathfinder:     w,
		Initiator:      w,
		Mover:          w,
		Owners:         w,
		Engine:         engine,
		WorkTicks:      opts.WorkTicks,
		OnTaskComplete: c.taskDone,
	})
	if err != nil {
		return nil, err
	}

	for i := 0; i < opts.Agents; i++ {
		if err := c.spawn(i, spawns[i], opts.Cooldown); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// engine registers the colony trees and their leaves.
func (c *colony) engine(svc *conditions.Service) (*behavior.Engine[*agent.Context], error) {
	lib := behavior.NewLibrary()
	reg := behavior.NewRegistry[*agent.Context]()

	b := behavior.NewBuilder("work")
	if _, err := lib.Register(b.MustBuild(b.Sequence(
		b.Leaf("find_task", ""),
		b.Leaf("move", ""),
		b.Leaf("work", ""),
	))); err != nil {
		return nil, err
	}
	b = behavior.NewBuilder("eat")
	if _, err := lib.Register(b.MustBuild(b.Leaf("eat", "hungry"))); err != nil {
		return nil, err
	}
	b = behavior.NewBuilder("rest")
	if _, err := lib.Register(b.MustBuild(b.Sequence(
		b.Leaf("doze", "tired"),
		b.Leaf("recover", ""),
	))); err != nil {
		return nil, err
	}

	b = behavior.NewBuilder("bite")
	bite, err := lib.Register(b.MustBuild(b.Leaf("bite", "")))
	if err != nil {
		return nil, err
	}
	c.biteTree = bite

	agent.RegisterBuiltins(reg, lib)
	doze, err := script.New("doze", dozeScript, (*agent.Context).Blackboard)
	if err != nil {
		return nil, err
	}
	reg.Register("doze", doze)
	reg.RegisterFunc("recover", c.recover)
	reg.RegisterFunc("bite", c.bite)
	reg.Register("eat", &plan.Leaf[*agent.Context]{
		Goal:           []pabt.IConditions{{plan.Equal("fed", true)}},
		Blackboard:     (*agent.Context).Blackboard,
		Actions:        c.mealActions,
		NonCancellable: true,
	})

	return &behavior.Engine[*agent.Context]{
		Library:    lib,
		Actions:    reg,
		Conditions: agent.Conditions(svc),
	}, nil
}

// spawn adds the i'th colonist. Everyone mines; only the first colonist
// carries an axe and chops.
func (c *colony) spawn(i int, at sim.Tile, cooldown uint64) error {
	e, err := c.world.Spawn(at)
	if err != nil {
		return err
	}
	if err := c.world.Give(e, "pickaxe", 1); err != nil {
		return err
	}
	var a *agent.Agent
	if i == 0 {
		if err := c.world.Give(e, "axe", 1); err != nil {
			return err
		}
		a = agent.New(e, prio(tasks.Mine, 1), prio(tasks.Chop, 2))
	} else {
		a = agent.New(e, prio(tasks.Mine, 1))
	}
	c.needs[e] = &needs{hunger: 10 * i, energy: 100 - 10*i}
	if err := c.publish(e); err != nil {
		return err
	}

	for _, d := range colonyDecisions {
		decision, err := utility.Build(d.def, nil)
		if err != nil {
			return err
		}
		if d.tree == "" {
			a.Utility.Idle(decision, cooldown)
			continue
		}
		h, ok := c.sys.Engine.Library.Lookup(d.tree)
		if !ok {
			return fmt.Errorf("decision %q: unknown tree %q", d.def.Name, d.tree)
		}
		a.Utility.Bind(decision, cooldown, h)
	}
	if err := c.sys.Add(a); err != nil {
		return err
	}
	c.colonists = append(c.colonists, e)
	return nil
}

func prio(kind tasks.Kind, priority uint8) taskcache.KindPriority {
	return taskcache.KindPriority{Kind: kind, Priority: priority}
}

func (c *colony) publish(e sim.Entity) error {
	n := c.needs[e]
	return errors.Join(
		c.world.SetFact(e, factHunger, n.hunger),
		c.world.SetFact(e, factEnergy, n.energy),
	)
}

// step advances the colony one tick: every colonist gets hungrier and more
// tired, then the agents run.
func (c *colony) step(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.colonists {
		n := c.needs[e]
		n.hunger = min(n.hunger+1, 100)
		n.energy = max(n.energy-1, 0)
		if err := c.publish(e); err != nil {
			return err
		}
	}
	return c.sys.Tick(ctx)
}

// taskDone counts the task and queues another like it; rocks and trees
// never run out.
func (c *colony) taskDone(_ *agent.Agent, claim agent.Claim) {
	c.completed[claim.Task.Kind]++
	claim.Owner.Queue.Insert(tasks.New(claim.Task.Kind, claim.Task.Priority, claim.Task.Action))
}

func (c *colony) recover(ctx *agent.Context) behavior.Status {
	n, ok := c.needs[ctx.Agent.ID]
	if !ok {
		return behavior.Failure()
	}
	n.energy = 100
	if err := c.publish(ctx.Agent.ID); err != nil {
		return behavior.Error("recover")
	}
	c.rests++
	return behavior.Success()
}

// mealActions plans a meal: fetch food, then eat it over two ticks.
func (c *colony) mealActions(ctx *agent.Context, s *plan.State) {
	bb := s.Blackboard()
	s.Register("fetch_food", plan.Build("fetch_food").
		Sets("food", true).
		Do(bt.New(func([]bt.Node) (bt.Status, error) {
			bb.Set("food", true)
			return bt.Success, nil
		})))
	s.Register("eat_food", plan.Build("eat_food").
		When(plan.Equal("food", true)).
		Sets("fed", true).
		Do(ctx.System.Engine.Node(c.biteTree, ctx)))
}

// bite eats the food on the blackboard. A meal takes two bites.
func (c *colony) bite(ctx *agent.Context) behavior.Status {
	id, bb := ctx.Agent.ID, ctx.Blackboard()
	bites := bb.Int("meal.bites") + 1
	bb.Set("meal.bites", bites)
	if bites < 2 {
		return behavior.Running(true)
	}
	n, ok := c.needs[id]
	if !ok {
		return behavior.Failure()
	}
	n.hunger = 0
	if err := c.publish(id); err != nil {
		return behavior.Error("bite")
	}
	bb.Delete("food")
	bb.Set("fed", true)
	c.meals++
	return behavior.Success()
}

func (c *colony) stats() colonyStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := colonyStats{
		Frame: c.sys.Frame,
		Tasks: make(map[string]int, len(c.completed)),
		Meals: c.meals,
		Rests: c.rests,
	}
	for kind, n := range c.completed {
		s.Tasks[kind.String()] = n
	}
	return s
}

// report writes the run summary and one line per colonist.
func (c *colony) report(out io.Writer) {
	s := c.stats()
	c.mu.Lock()
	defer c.mu.Unlock()

	_, _ = fmt.Fprintf(out, "frames: %d\n", s.Frame)
	var done []string
	for _, kind := range slices.Sorted(maps.Keys(s.Tasks)) {
		done = append(done, fmt.Sprintf("%s=%d", kind, s.Tasks[kind]))
	}
	if len(done) == 0 {
		done = append(done, "none")
	}
	_, _ = fmt.Fprintf(out, "tasks completed: %s\n", strings.Join(done, " "))
	_, _ = fmt.Fprintf(out, "meals: %d\n", s.Meals)
	_, _ = fmt.Fprintf(out, "rests: %d\n", s.Rests)
	_, _ = fmt.Fprintln(out, "")

	w := tabwriter.NewWriter(out, 0, 8, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "AGENT\tPOSITION\tDECISION\tROOT\tHUNGER\tENERGY")
	for _, a := range c.sys.Agents() {
		pos, _ := c.world.Position(a.ID)
		decision := "-"
		if b := a.Utility.Current(); b != nil {
			decision = b.Decision.Name
		}
		root := "-"
		if !a.Tree.Root.None() {
			root = c.sys.Engine.Library.Name(a.Tree.Root.Handle)
		}
		n := c.needs[a.ID]
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%d\n", a.ID, pos, decision, root, n.hunger, n.energy)
	}
	_ = w.Flush()
}
