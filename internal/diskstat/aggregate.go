package diskstat

import (
	"context"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// failureSink receives degraded directories.
type failureSink interface {
	addFailure(failure *Failure)
}

// failureCollector gathers failures from concurrent branches of a nested traversal.
type failureCollector struct {
	mu       sync.Mutex
	failures []Failure
}

func (c *failureCollector) addFailure(failure *Failure) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.failures = append(c.failures, *failure)
}

// list returns the collected failures sorted by path.
func (c *failureCollector) list() []Failure {
	c.mu.Lock()
	defer c.mu.Unlock()

	failures := slices.Clone(c.failures)
	slices.SortFunc(failures, func(a, b Failure) int { return strings.Compare(a.Path, b.Path) })

	return failures
}

// pass carries the per-invocation destinations of one traversal.
type pass struct {
	acc  *Accumulator
	sink failureSink
}

// Aggregator computes rolled-up directory statistics.
type Aggregator struct {
	lister     Lister
	count      bool
	verbose    bool
	subFolders bool
	log        *zap.Logger
	style      PathStyle

	dirs  atomic.Int64
	bytes atomic.Int64
}

// NewAggregator creates an Aggregator reading through lister.
func NewAggregator(lister Lister, cfg Config, opts ...Option) *Aggregator {
	s := newSettings(opts)

	return &Aggregator{
		lister:     lister,
		count:      cfg.Count,
		verbose:    cfg.Verbose,
		subFolders: cfg.SubFolders,
		log:        s.log,
		style:      s.style,
	}
}

// Progress returns the number of directories listed and the bytes of direct files seen
// so far. It is safe to call while a traversal is running.
func (a *Aggregator) Progress() (dirs, bytes int64) {
	return a.dirs.Load(), a.bytes.Load()
}

// StatTree measures the subtree at path and returns its statistic (nested mode).
//
// Subtrees that cannot be read contribute zero and are reported in the returned
// failures. Only a failure of path itself is returned as an error, in which case the
// returned statistic is all zeros.
func (a *Aggregator) StatTree(ctx context.Context, path string) (*Stat, []Failure, error) {
	var collected failureCollector

	stat, err := a.measure(ctx, path, 0, pass{sink: &collected})

	return stat, collected.list(), err
}

// StatInto measures the subtree at path and writes one flat statistic per directory
// into acc (accumulating mode). An entry is written only after the entries of all
// child directories. The error reports a failure of path itself.
func (a *Aggregator) StatInto(ctx context.Context, path string, acc *Accumulator) error {
	_, err := a.measure(ctx, path, 0, pass{acc: acc, sink: acc})

	return err
}

// measure resolves the statistic of path, degrading to zero on failure.
func (a *Aggregator) measure(ctx context.Context, path string, depth int, p pass) (*Stat, error) {
	if a.verbose && depth < VerboseDepth {
		a.log.Info("measuring", zap.String("path", path), zap.Int("depth", depth))
	}

	stat, err := a.fold(ctx, path, depth, p)
	if err != nil {
		failure := newFailure(path, err)
		a.log.Debug("degraded", zap.String("path", path), zap.Stringer("kind", failure.Kind), zap.Error(err))
		p.sink.addFailure(failure)

		stat = zeroStat(path)
		if p.acc != nil {
			p.acc.putStat(path, stat)
		}

		return stat, failure
	}

	if p.acc != nil {
		p.acc.putStat(path, stat)
	}

	return stat, nil
}

// fold lists path, measures every child directory concurrently and combines the results.
func (a *Aggregator) fold(ctx context.Context, path string, depth int, p pass) (*Stat, error) {
	entries, err := a.lister.List(ctx, path)
	if err != nil {
		return nil, err
	}

	var (
		size  uint64
		files int64
		dirs  []string
	)

	for _, entry := range entries {
		switch {
		case entry.IsFile:
			size += uint64(max(entry.Size, 0))
			files++
		case entry.IsDir:
			dirs = append(dirs, a.style.Join(path, entry.Name))
		}
	}

	a.dirs.Add(1)
	a.bytes.Add(int64(size)) //nolint:gosec // Bounded by the sum of int64 file sizes

	children := make([]*Stat, len(dirs))

	var wg sync.WaitGroup

	for i, dir := range dirs {
		wg.Go(func() {
			// Degraded children are already recorded by the sink.
			children[i], _ = a.measure(ctx, dir, depth+1, p)
		})
	}

	wg.Wait()

	self, err := a.lister.Stat(ctx, path)
	if err != nil {
		return nil, err
	}

	var subFiles, subDirs int64

	for _, child := range children {
		size += uint64(child.Size)
		subFiles += child.NumFiles
		subDirs += child.NumDirs
	}

	stat := &Stat{
		Path:             path,
		Size:             Size(size),
		BirthTime:        NewTimestamp(self.BirthTime),
		LastModifiedTime: NewTimestamp(self.ModTime),
	}

	if a.count {
		stat.NumFiles = files + subFiles
		stat.NumDirs = int64(len(children)) + subDirs
	}

	switch {
	case p.acc != nil:
		stat.Children = dirs
	case a.subFolders:
		stat.SubFolders = children
	}

	return stat, nil
}
