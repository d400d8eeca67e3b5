package command

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/joeycumines/colony-brain/internal/config"
	bt "github.com/joeycumines/go-behaviortree"
)

// RunCommand runs the colony simulation headless.
type RunCommand struct {
	*BaseCommand
	config   *config.Config
	ticks    int
	interval time.Duration
	layout   string
	agents   int
	logFile  string
	logLevel string
	quiet    bool
}

// NewRunCommand creates a new run command. cfg may be nil.
func NewRunCommand(cfg *config.Config) *RunCommand {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	return &RunCommand{
		BaseCommand: NewBaseCommand(
			"run",
			"Run the colony simulation headless",
			"run [options]",
		),
		config: cfg,
	}
}

// SetupFlags configures the flags for the run command.
func (c *RunCommand) SetupFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.ticks, "ticks", -1, "Ticks to simulate, 0 runs until interrupted (default sim.ticks)")
	fs.DurationVar(&c.interval, "interval", 0, "Wall-clock time between ticks (default sim.tick-interval)")
	fs.StringVar(&c.layout, "layout", "", "Path to an ASCII map (default sim.layout, or the built-in map)")
	fs.IntVar(&c.agents, "agents", 0, "Number of colonists (default agents.count)")
	fs.StringVar(&c.logFile, "log-file", "", "Write JSON logs to this file (default log.file)")
	fs.StringVar(&c.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	fs.BoolVar(&c.quiet, "quiet", false, "Do not print the summary")
}

type runOptions struct {
	ticks    int
	interval time.Duration
	progress time.Duration
	layout   []string
	report   bool
	colony   colonyOptions
}

// resolve merges the flags over the [run] section and the global options.
func (c *RunCommand) resolve() (runOptions, error) {
	schema := config.DefaultSchema()
	var (
		opts runOptions
		err  error
	)
	intOpt := func(flagValue int, unset bool, key string) int {
		if !unset || err != nil {
			return flagValue
		}
		var v int
		v, err = schema.ResolveInt(c.config, "run", key)
		return v
	}

	opts.ticks = intOpt(c.ticks, c.ticks < 0, "sim.ticks")
	opts.colony.Agents = intOpt(c.agents, c.agents <= 0, "agents.count")
	opts.colony.WorkTicks = intOpt(0, true, "tasks.work-ticks")
	cooldown := intOpt(0, true, "scoring.cooldown")
	if err != nil {
		return opts, err
	}
	if cooldown < 0 {
		return opts, fmt.Errorf("scoring.cooldown must not be negative, got %d", cooldown)
	}
	opts.colony.Cooldown = uint64(cooldown)
	if opts.colony.Agents < 1 {
		return opts, fmt.Errorf("agents.count must be positive, got %d", opts.colony.Agents)
	}
	opts.colony.Conditions = c.config.ConditionMap()

	opts.interval = c.interval
	if opts.interval <= 0 {
		if opts.interval, err = schema.ResolveDuration(c.config, "run", "sim.tick-interval"); err != nil {
			return opts, err
		}
	}
	if opts.interval <= 0 {
		return opts, fmt.Errorf("sim.tick-interval must be positive, got %s", opts.interval)
	}
	if opts.progress, err = schema.ResolveDuration(c.config, "run", "progress"); err != nil {
		return opts, err
	}
	if opts.report, err = schema.ResolveBool(c.config, "run", "report"); err != nil {
		return opts, err
	}
	opts.report = opts.report && !c.quiet

	path := c.layout
	if path == "" {
		path = schema.ResolveIn(c.config, "run", "sim.layout")
	}
	opts.layout = defaultLayout
	if path != "" {
		if opts.layout, err = readLayout(path); err != nil {
			return opts, err
		}
	}
	return opts, nil
}

// readLayout reads an ASCII map, ignoring trailing blank lines.
func readLayout(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read layout: %w", err)
	}
	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return lines, nil
}

// Execute runs the simulation until the tick budget is spent or the process
// is interrupted.
func (c *RunCommand) Execute(args []string, stdout, stderr io.Writer) error {
	if len(args) > 0 {
		_, _ = fmt.Fprintf(stderr, "unexpected arguments: %v\n", args)
		return fmt.Errorf("unexpected arguments")
	}

	lc, err := resolveLogConfig(c.logFile, c.logLevel, c.config)
	if err != nil {
		return err
	}
	if lc.logFile != nil {
		defer lc.logFile.Close()
	}
	defer useLogger(lc.logger(stderr))()

	opts, err := c.resolve()
	if err != nil {
		return err
	}
	col, err := newColony(opts.layout, opts.colony)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := col.run(ctx, opts.ticks, opts.interval, opts.progress); err != nil {
		return err
	}
	if opts.report {
		col.report(stdout)
	}
	return nil
}

// run ticks the colony every interval until ticks frames have run (forever
// if ticks is 0) or ctx is done, logging progress every progress interval.
// Cancellation is not an error.
func (c *colony) run(ctx context.Context, ticks int, interval, progress time.Duration) error {
	var frames int
	driver := bt.NewTickerStopOnFailure(ctx, interval, bt.New(func([]bt.Node) (bt.Status, error) {
		if ticks > 0 && frames >= ticks {
			return bt.Failure, nil
		}
		if err := c.step(ctx); err != nil {
			return bt.Failure, err
		}
		frames++
		return bt.Running, nil
	}))

	manager := bt.NewManager()
	if err := manager.Add(driver); err != nil {
		driver.Stop()
		return fmt.Errorf("failed to add ticker to manager: %w", err)
	}
	if progress > 0 {
		err := manager.Add(bt.NewTicker(ctx, progress, bt.New(func([]bt.Node) (bt.Status, error) {
			s := c.stats()
			slog.Info("[run] progress",
				"frame", s.Frame,
				"tasks", s.Tasks,
				"meals", s.Meals,
				"rests", s.Rests)
			return bt.Running, nil
		})))
		if err != nil {
			manager.Stop()
			<-manager.Done()
			return fmt.Errorf("failed to add ticker to manager: %w", err)
		}
	}

	started := time.Now()
	<-driver.Done()
	manager.Stop()
	<-manager.Done()

	s := c.stats()
	err := driver.Err()
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		slog.Info("[run] interrupted", "frame", s.Frame)
		err = nil
	default:
		slog.Error("[run] simulation failed", "frame", s.Frame, "error", err)
		return fmt.Errorf("simulation stopped at frame %d: %w", s.Frame, err)
	}
	slog.Info("[run] finished",
		"frames", s.Frame,
		"elapsed", time.Since(started).String(),
		"tasks", s.Tasks,
		"meals", s.Meals,
		"rests", s.Rests)
	return err
}
