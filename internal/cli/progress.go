package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
)

// DefaultProgressInterval is the default interval for progress updates.
const DefaultProgressInterval = 100 * time.Millisecond

// progress renders a single, in-place status line on a terminal.
type progress struct {
	out     io.Writer
	enabled bool
}

// newProgress enables the status line only when out is a terminal and the
// output is meant for humans.
func newProgress(out io.Writer, options Options) *progress {
	return &progress{
		out:     out,
		enabled: options.Output == "table" && !options.Debug && !options.TUI && isTerminal(out),
	}
}

// start polls source on each tick and redraws the line until the returned stop
// function is called. stop clears the line.
func (p *progress) start(ctx context.Context, source func() (dirs, bytes int64)) (stop func()) {
	if !p.enabled {
		return func() {}
	}

	// Hide cursor for in-place updates; restore on exit.
	fmt.Fprint(p.out, "\033[?25l")

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	ticker := time.NewTicker(DefaultProgressInterval)

	go func() {
		defer close(done)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				dirs, bytes := source()
				msg := fmt.Sprintf("Scanning… %d directories, %s",
					dirs, humanize.IBytes(uint64(bytes))) //nolint:gosec // Bytes is always positive
				fmt.Fprintf(p.out, "\r\033[2K%s\r", msg)
			case <-ctx.Done():
				return
			}
		}
	}()

	return func() {
		cancel()
		<-done

		// Clear the status line
		fmt.Fprint(p.out, "\r\033[2K\r\033[?25h")
	}
}

// isTerminal reports whether w is a terminal file.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)

	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}
