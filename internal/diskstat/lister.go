package diskstat

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"
	"time"

	"golang.org/x/sync/semaphore"
)

// Entry is one child of a listed directory, or the result of a direct stat.
type Entry struct {
	// Name is the base name of the entry.
	Name string
	// IsFile reports a regular file.
	IsFile bool
	// IsDir reports a directory. Symbolic links are neither files nor directories.
	IsDir bool
	// Size is the size in bytes as reported by the filesystem.
	Size int64
	// ModTime is the last modification time.
	ModTime time.Time
	// BirthTime is the creation time. It is only read by Stat and is zero when the
	// platform does not record it.
	BirthTime time.Time
}

// Lister reads directories and path metadata.
type Lister interface {
	// List returns the children of the directory at path together with their metadata.
	List(ctx context.Context, path string) ([]Entry, error)
	// Stat returns the metadata of path itself.
	Stat(ctx context.Context, path string) (Entry, error)
}

// DefaultConcurrency returns the default cap on in-flight filesystem operations.
func DefaultConcurrency() int {
	return 4 * runtime.GOMAXPROCS(0)
}

// OSLister lists the local filesystem, capping concurrent filesystem calls.
type OSLister struct {
	sem *semaphore.Weighted
}

// NewOSLister creates an OSLister allowing up to limit concurrent filesystem operations.
// A non-positive limit selects DefaultConcurrency.
func NewOSLister(limit int) *OSLister {
	if limit <= 0 {
		limit = DefaultConcurrency()
	}

	return &OSLister{sem: semaphore.NewWeighted(int64(limit))}
}

// List implements Lister.
//
// Children that disappear between reading the directory and reading their metadata
// are skipped.
func (l *OSLister) List(ctx context.Context, path string) ([]Entry, error) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("waiting to list %q: %w", path, err)
	}
	defer l.sem.Release(1)

	dirEntries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(dirEntries))

	for _, d := range dirEntries { //nolint:varnamelen // d is standard for DirEntry
		info, err := d.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}

			return nil, err
		}

		entries = append(entries, entryFromInfo(info))
	}

	return entries, nil
}

// Stat implements Lister. Symbolic links are not followed.
func (l *OSLister) Stat(ctx context.Context, path string) (Entry, error) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return Entry{}, fmt.Errorf("waiting to stat %q: %w", path, err)
	}
	defer l.sem.Release(1)

	info, err := os.Lstat(path)
	if err != nil {
		return Entry{}, err
	}

	entry := entryFromInfo(info)
	entry.BirthTime = birthTime(path, info)

	return entry, nil
}

func entryFromInfo(info fs.FileInfo) Entry {
	return Entry{
		Name:    info.Name(),
		IsFile:  info.Mode().IsRegular(),
		IsDir:   info.IsDir(),
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}
}
