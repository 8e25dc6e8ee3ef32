package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/idelchi/diskmanager/internal/breakdown"
	"github.com/idelchi/diskmanager/internal/diskstat"
	"github.com/idelchi/diskmanager/internal/integration"
	"github.com/idelchi/diskmanager/internal/logging"
	"github.com/idelchi/diskmanager/internal/server"
	"github.com/idelchi/diskmanager/internal/viewer"
)

// runner carries the collaborators of one invocation.
type runner struct {
	options Options
	stdout  io.Writer
	stderr  io.Writer
	log     *zap.Logger
	lister  diskstat.Lister
}

func logic(ctx context.Context, options Options, stdout, stderr io.Writer) error {
	log := logging.New(stderr, options.Debug)
	defer log.Sync() //nolint:errcheck // Nothing to do if flushing stderr fails

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := runner{
		options: options,
		stdout:  stdout,
		stderr:  stderr,
		log:     log,
		lister:  diskstat.NewOSLister(options.Traversal.Concurrency),
	}

	switch {
	case options.Integration:
		return r.integration()
	case options.File != "":
		return r.file(ctx)
	}

	root, err := resolveRoot(options.Path)
	if err != nil {
		return err
	}

	if options.Web || options.TUI {
		return r.interactive(ctx, root)
	}

	return r.measure(ctx, root)
}

func (r runner) integration() error {
	binary, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locating executable: %w", err)
	}

	rendered, err := integration.Render(filepath.ToSlash(binary))
	if err != nil {
		return fmt.Errorf("rendering integration script: %w", err)
	}

	_, err = fmt.Fprintln(r.stdout, rendered)

	return err
}

func (r runner) file(ctx context.Context) error {
	path, err := filepath.Abs(filepath.Clean(r.options.File))
	if err != nil {
		return fmt.Errorf("resolving absolute path: %w", err)
	}

	start := time.Now()

	file, err := diskstat.StatFile(ctx, r.lister, path)
	if err != nil {
		return err
	}

	return Print(&Result{Root: filepath.Dir(path), File: file, Elapsed: time.Since(start)}, r.options.Output, r.stdout)
}

// measure runs a one-shot nested traversal and prints it.
func (r runner) measure(ctx context.Context, root string) error {
	coordinator := diskstat.NewCoordinator(r.options.Traversal, r.lister, diskstat.WithLogger(r.log))
	aggregator := coordinator.Aggregator()

	start := time.Now()

	stop := newProgress(r.stderr, r.options).start(ctx, aggregator.Progress)
	stat, failures, err := aggregator.StatTree(ctx, root)

	stop()

	if err != nil {
		return fmt.Errorf("unable to scan %q: %w", root, err)
	}

	r.logFailures(failures)

	result := &Result{
		Root:     root,
		Stat:     stat,
		Degraded: failures,
		Counted:  r.options.Traversal.Count,
		Elapsed:  time.Since(start),
	}

	if err := r.breakdown(ctx, root, result); err != nil {
		return err
	}

	return Print(result, r.options.Output, r.stdout)
}

// interactive runs an accumulating traversal behind the HTTP server and/or the terminal viewer.
func (r runner) interactive(ctx context.Context, root string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	coordinator := diskstat.NewCoordinator(r.options.Traversal, r.lister, diskstat.WithLogger(r.log))

	start := time.Now()
	run := coordinator.Start(ctx, root)

	serving := make(chan error, 1)

	if r.options.Web {
		srv := server.New(run, r.log)

		go func() { serving <- srv.ListenAndServe(ctx, r.options.Addr) }()
	} else {
		close(serving)
	}

	if r.options.TUI {
		if err := viewer.Run(ctx, run); err != nil {
			return err
		}

		cancel()

		return <-serving
	}

	stop := newProgress(r.stderr, r.options).start(ctx, run.Progress)

	select {
	case <-run.StatsReady():
		stop()
	case err := <-serving:
		stop()

		return err
	}

	if err := run.Err(); err != nil {
		cancel()
		<-serving

		return fmt.Errorf("unable to scan %q: %w", root, err)
	}

	acc := run.Accumulator()
	stat, _ := acc.Stat(root)
	failures := acc.Failures()

	r.logFailures(failures)

	result := &Result{
		Root:     root,
		Stat:     stat,
		Degraded: failures,
		Counted:  r.options.Traversal.Count,
		Elapsed:  time.Since(start),
	}

	if err := Print(result, r.options.Output, r.stdout); err != nil {
		return err
	}

	r.log.Info("serving results, press Ctrl-C to stop", zap.String("addr", r.options.Addr), zap.String("run", run.ID()))

	return <-serving
}

func (r runner) breakdown(ctx context.Context, root string, result *Result) error {
	if !r.options.Breakdown {
		return nil
	}

	report, err := breakdown.Run(ctx, breakdown.Options{
		Path:       root,
		Extensions: r.options.Extensions,
		Excludes:   r.options.Excludes,
		MinSize:    r.options.MinSize,
		TopN:       r.options.TopN,
	}, r.log)
	if err != nil {
		return fmt.Errorf("computing breakdown: %w", err)
	}

	result.Breakdown = report

	return nil
}

func (r runner) logFailures(failures []diskstat.Failure) {
	for _, failure := range failures {
		r.log.Debug("degraded", zap.String("path", failure.Path), zap.Stringer("kind", failure.Kind), zap.Error(failure.Err))
	}
}
