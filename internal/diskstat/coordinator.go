package diskstat

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Coordinator sequences the aggregator and the name-tree builder for a run.
type Coordinator struct {
	cfg    Config
	lister Lister
	opts   []Option
	log    *zap.Logger
}

// NewCoordinator creates a Coordinator. A nil lister selects an OSLister capped at
// cfg.Concurrency.
func NewCoordinator(cfg Config, lister Lister, opts ...Option) *Coordinator {
	if lister == nil {
		lister = NewOSLister(cfg.Concurrency)
	}

	if cfg.NameDepth < 1 {
		cfg.NameDepth = DefaultNameDepth
	}

	return &Coordinator{cfg: cfg, lister: lister, opts: opts, log: newSettings(opts).log}
}

// Config returns the effective configuration.
func (c *Coordinator) Config() Config { return c.cfg }

// Aggregator returns a fresh aggregator bound to the coordinator's lister and configuration.
// Callers that want to poll Progress during a nested traversal use it instead of Measure.
func (c *Coordinator) Aggregator() *Aggregator {
	return NewAggregator(c.lister, c.cfg, c.opts...)
}

// Measure runs a one-shot nested traversal of root.
func (c *Coordinator) Measure(ctx context.Context, root string) (*Stat, []Failure, error) {
	return c.Aggregator().StatTree(ctx, root)
}

// Start launches an accumulating traversal of root and returns immediately.
//
// When names are requested the name-tree build is started first so that a viewer can
// navigate before statistics are complete. Each half closes its own ready channel.
func (c *Coordinator) Start(ctx context.Context, root string) *Run {
	run := &Run{
		id:         uuid.NewString(),
		root:       root,
		nameDepth:  c.cfg.NameDepth,
		acc:        NewAccumulator(),
		aggregator: c.Aggregator(),
		names:      NewNameBuilder(c.lister, c.opts...),
		namesReady: make(chan struct{}),
		statsReady: make(chan struct{}),
	}

	c.log.Debug("run started", zap.String("run", run.id), zap.String("root", root))

	if c.cfg.Names {
		go func() {
			defer close(run.namesReady)

			run.names.BuildInto(ctx, root, "", c.cfg.NameDepth, run.acc)
			c.log.Debug("names ready", zap.String("run", run.id))
		}()
	} else {
		close(run.namesReady)
	}

	go func() {
		defer close(run.statsReady)

		run.err = run.aggregator.StatInto(ctx, root, run.acc)
		c.log.Debug("stats ready", zap.String("run", run.id), zap.Int("degraded", len(run.acc.Failures())))
	}()

	return run
}

// Run is one accumulating traversal.
type Run struct {
	id         string
	root       string
	nameDepth  int
	acc        *Accumulator
	aggregator *Aggregator
	names      *NameBuilder
	namesReady chan struct{}
	statsReady chan struct{}
	err        error
}

// ID returns the unique identifier of the run.
func (r *Run) ID() string { return r.id }

// Root returns the traversed root path.
func (r *Run) Root() string { return r.root }

// NameDepth returns the depth of the initial name-tree build.
func (r *Run) NameDepth() int { return r.nameDepth }

// Accumulator returns the run's shared store.
func (r *Run) Accumulator() *Accumulator { return r.acc }

// NamesReady is closed once the initial name tree is complete.
func (r *Run) NamesReady() <-chan struct{} { return r.namesReady }

// StatsReady is closed once every statistic has been written.
func (r *Run) StatsReady() <-chan struct{} { return r.statsReady }

// Progress reports the directories listed and bytes seen so far.
func (r *Run) Progress() (dirs, bytes int64) { return r.aggregator.Progress() }

// Err returns the failure of the root directory. It is only meaningful after StatsReady.
func (r *Run) Err() error {
	select {
	case <-r.statsReady:
		return r.err
	default:
		return nil
	}
}

// Wait blocks until both halves of the run are complete and returns Err.
func (r *Run) Wait() error {
	<-r.namesReady
	<-r.statsReady

	return r.err
}

// Expand materializes depth more name-tree levels below path.
func (r *Run) Expand(ctx context.Context, path string, depth int) error {
	return r.names.Expand(ctx, path, depth, r.acc)
}
