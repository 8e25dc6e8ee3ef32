package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"

	"github.com/idelchi/diskmanager/internal/diskstat"
)

// DefaultExcludes contains the default exclusion patterns of the breakdown.
//
//nolint:gochecknoglobals // Config constant
var DefaultExcludes = []string{`.*\.git/.*`, `.*node_modules/.*`}

// allowedOutputs lists the supported output formats.
//
//nolint:gochecknoglobals // Config constant
var allowedOutputs = []string{"table", "json", "yaml", "list"}

// Options is the resolved command-line configuration.
type Options struct {
	// Path is the directory to analyze.
	Path string
	// File is a single file whose metadata is printed instead.
	File string
	// Web starts the HTTP server.
	Web bool
	// Addr is the listen address of the HTTP server.
	Addr string
	// TUI starts the terminal viewer.
	TUI bool
	// Output represents output format (table, json, yaml or list).
	Output string
	// Breakdown adds the extension and largest-file breakdown.
	Breakdown bool
	// TopN is the number of top entries in the breakdown.
	TopN int
	// Extensions to include in the breakdown (empty = all).
	Extensions []string
	// Excludes contains regex patterns excluded from the breakdown.
	Excludes []string
	// MinSize is the minimum file size of the breakdown in bytes.
	MinSize int64
	// Debug indicates whether debug output is enabled.
	Debug bool
	// Integration indicates whether to output the shell integration script.
	Integration bool
	// Traversal is the configuration handed to the traversal coordinator.
	Traversal diskstat.Config
}

// resolve reads the layered configuration from v and validates it.
func resolve(v *viper.Viper, args []string) (Options, error) {
	options := Options{
		Path:        v.GetString("rootdir"),
		File:        v.GetString("file"),
		Web:         v.GetBool("web"),
		Addr:        v.GetString("addr"),
		TUI:         v.GetBool("tui"),
		Output:      v.GetString("output"),
		Breakdown:   v.GetBool("breakdown"),
		TopN:        v.GetInt("top"),
		Extensions:  v.GetStringSlice("ext"),
		Excludes:    v.GetStringSlice("exclude"),
		Debug:       v.GetBool("debug"),
		Integration: v.GetBool("init"),
		Traversal: diskstat.Config{
			Count:       v.GetBool("count"),
			Verbose:     v.GetBool("log"),
			NameDepth:   v.GetInt("name-depth"),
			SubFolders:  v.GetBool("subfolders"),
			Concurrency: v.GetInt("concurrency"),
		},
	}

	if len(args) > 0 {
		options.Path = args[0]
	}

	if options.Path == "" {
		options.Path = "."
	}

	if !slices.Contains(allowedOutputs, options.Output) {
		return Options{}, fmt.Errorf("invalid output format %q: must be one of %v", options.Output, allowedOutputs)
	}

	if options.Traversal.NameDepth < 1 {
		return Options{}, errors.New("name-depth must be at least 1")
	}

	if options.Traversal.Concurrency < 0 {
		return Options{}, errors.New("concurrency cannot be negative")
	}

	if options.TopN < 1 {
		return Options{}, errors.New("top must be at least 1")
	}

	// Parse min-size string to bytes
	if minSize := v.GetString("min-size"); minSize != "" {
		size, err := humanize.ParseBytes(minSize)
		if err != nil {
			return Options{}, fmt.Errorf("invalid min-size: %w", err)
		}

		options.MinSize = int64(size) //nolint:gosec // Size conversion from humanize is safe
	}

	options.Traversal.Names = options.Web || options.TUI

	return options, nil
}

// resolveRoot normalizes path, resolves symbolic links in it and checks that it is an
// existing directory.
func resolveRoot(path string) (string, error) {
	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("resolving absolute path: %w", err)
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("accessing path %q: %w", path, err)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return "", fmt.Errorf("accessing path %q: %w", path, err)
	}

	if !info.IsDir() {
		return "", fmt.Errorf("path %q is not a directory", path)
	}

	return resolved, nil
}
