package breakdown

import (
	"cmp"
	"path/filepath"
	"slices"
	"sync"
	"time"
)

// ExtStat represents statistics for a file extension.
type ExtStat struct {
	// Count is the number of files with this extension.
	Count int `json:"count" yaml:"count"`
	// Size is the cumulative size in bytes.
	Size int64 `json:"size" yaml:"size"`
}

// FileStat represents a single file path and size.
type FileStat struct {
	// Path is the file path relative to the walked root, with forward slashes.
	Path string `json:"path" yaml:"path"`
	// Size is the size in bytes.
	Size int64 `json:"size" yaml:"size"`
}

// Report holds the breakdown of a directory walk.
type Report struct {
	// FileCount is the number of files that passed the filters.
	FileCount int64 `json:"fileCount" yaml:"fileCount"`
	// TotalBytes is the cumulative size of those files.
	TotalBytes int64 `json:"totalBytes" yaml:"totalBytes"`
	// ExtStats maps file extensions to their statistics.
	ExtStats map[string]ExtStat `json:"extStats" yaml:"extStats"`
	// TopFiles contains the N largest files, largest first.
	TopFiles []FileStat `json:"topFiles" yaml:"topFiles"`
	// ErrorCount is the number of entries that could not be read.
	ErrorCount int64 `json:"errorCount" yaml:"errorCount"`
	// Elapsed is the duration of the walk.
	Elapsed time.Duration `json:"elapsed" yaml:"elapsed"`
	// TopN is the number of top files tracked.
	TopN int `json:"topN" yaml:"topN"`
}

// Extensions returns the extensions of the report ordered by size, largest first,
// limited to TopN.
func (r *Report) Extensions() []string {
	exts := make([]string, 0, len(r.ExtStats))
	for ext := range r.ExtStats {
		exts = append(exts, ext)
	}

	slices.SortFunc(exts, func(a, b string) int {
		if c := cmp.Compare(r.ExtStats[b].Size, r.ExtStats[a].Size); c != 0 {
			return c
		}

		return cmp.Compare(a, b)
	})

	if len(exts) > r.TopN {
		exts = exts[:r.TopN]
	}

	return exts
}

// collector aggregates statistics from concurrent fastwalk callbacks using a mutex.
type collector struct {
	mu         sync.Mutex // Protect concurrent access
	topN       int
	extStats   map[string]ExtStat
	files      []FileStat
	fileCount  int64
	totalBytes int64
	errorCount int64
}

func newCollector(topN int) *collector {
	return &collector{
		topN:     topN,
		extStats: make(map[string]ExtStat),
	}
}

// addError increments the error counter. fastwalk calls back from multiple goroutines.
func (c *collector) addError() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.errorCount++
}

// add records a file of the given size under its extension.
func (c *collector) add(path string, size int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.fileCount++
	c.totalBytes += size

	ext := filepath.Ext(path)
	stat := c.extStats[ext]
	stat.Count++
	stat.Size += size
	c.extStats[ext] = stat

	c.files = append(c.files, FileStat{Path: filepath.ToSlash(path), Size: size})
}

// finalize sorts the collected files by size and keeps the largest N.
func (c *collector) finalize() *Report {
	c.mu.Lock()
	defer c.mu.Unlock()

	slices.SortFunc(c.files, func(a, b FileStat) int {
		if n := cmp.Compare(b.Size, a.Size); n != 0 {
			return n
		}

		return cmp.Compare(a.Path, b.Path)
	})

	top := c.files
	if len(top) > c.topN {
		top = top[:c.topN]
	}

	return &Report{
		FileCount:  c.fileCount,
		TotalBytes: c.totalBytes,
		ExtStats:   c.extStats,
		TopFiles:   slices.Clone(top),
		ErrorCount: c.errorCount,
		TopN:       c.topN,
	}
}
