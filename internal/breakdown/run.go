package breakdown

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/charlievieth/fastwalk"
	"go.uber.org/zap"
)

// DefaultTopN is the number of extensions and files reported when Options.TopN is unset.
const DefaultTopN = 10

// Options configures a breakdown walk.
type Options struct {
	// Path is the directory to walk.
	Path string
	// Extensions to include (empty = all). A '!' prefix excludes the suffix instead.
	Extensions []string
	// Excludes contains regex patterns matched against slash-separated paths.
	Excludes []string
	// MinSize is the minimum file size in bytes.
	MinSize int64
	// TopN is the number of top extensions and files to report.
	TopN int
}

// filter decides which walked paths are counted.
type filter struct {
	include  []string
	exclude  []string
	patterns []*regexp.Regexp
}

func newFilter(opt Options) (*filter, error) {
	f := &filter{}

	for _, e := range opt.Extensions { //nolint:varnamelen // e is standard for element in range
		e = strings.Trim(e, "'\"")

		if excluded, ok := strings.CutPrefix(e, "!"); ok {
			f.exclude = append(f.exclude, excluded)
		} else {
			f.include = append(f.include, e)
		}
	}

	for _, p := range opt.Excludes {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compiling exclusion pattern %q: %w", p, err)
		}

		f.patterns = append(f.patterns, re)
	}

	return f, nil
}

// excluded reports whether path matches an exclusion pattern.
func (f *filter) excluded(path string) bool {
	slashed := filepath.ToSlash(path)

	for _, re := range f.patterns {
		if re.MatchString(slashed) {
			return true
		}
	}

	return false
}

// included applies the extension filters, excludes first.
func (f *filter) included(path string) bool {
	for _, ext := range f.exclude {
		if strings.HasSuffix(path, ext) {
			return false
		}
	}

	if len(f.include) == 0 {
		return true
	}

	for _, ext := range f.include {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}

	return false
}

// Run walks opt.Path in parallel and returns the extension and largest-file breakdown.
// Unreadable entries are counted in Report.ErrorCount and otherwise skipped.
func Run(ctx context.Context, opt Options, log *zap.Logger) (*Report, error) {
	if log == nil {
		log = zap.NewNop()
	}

	if opt.TopN <= 0 {
		opt.TopN = DefaultTopN
	}

	root := filepath.Clean(opt.Path)

	f, err := newFilter(opt)
	if err != nil {
		return nil, err
	}

	c := newCollector(opt.TopN) //nolint:varnamelen // c is idiomatic for collector
	start := time.Now()

	conf := &fastwalk.Config{
		Follow: false, // Don't follow symlinks
	}

	//nolint:varnamelen // d is standard for DirEntry
	walkErr := fastwalk.Walk(conf, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Debug("skipping unreadable path", zap.String("path", path), zap.Error(err))
			c.addError()

			return nil
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		if path != root && f.excluded(path) {
			log.Debug("excluded", zap.String("path", filepath.ToSlash(path)))

			if d.IsDir() {
				return filepath.SkipDir
			}

			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			c.addError()

			return nil //nolint:nilerr // Intentionally skip errors during walk
		}

		if info.Size() < opt.MinSize || !f.included(path) {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}

		c.add(rel, info.Size())

		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("walking %q: %w", root, walkErr)
	}

	report := c.finalize()
	report.Elapsed = time.Since(start)

	return report, nil
}
