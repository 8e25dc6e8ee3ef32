package diskstat

import (
	"context"
	"fmt"
)

// FileStat describes a single file.
type FileStat struct {
	Path             string     `json:"path"                       yaml:"path"`
	Size             Size       `json:"size"                       yaml:"size"`
	BirthTime        *Timestamp `json:"birthTime,omitempty"        yaml:"birthTime,omitempty"`
	LastModifiedTime *Timestamp `json:"lastModifiedTime,omitempty" yaml:"lastModifiedTime,omitempty"`
}

// StatFile reads the metadata of the file at path.
func StatFile(ctx context.Context, lister Lister, path string) (*FileStat, error) {
	entry, err := lister.Stat(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("reading file metadata: %w", newFailure(path, err))
	}

	if entry.IsDir {
		return nil, fmt.Errorf("path %q is a directory", path)
	}

	return &FileStat{
		Path:             path,
		Size:             Size(max(entry.Size, 0)),
		BirthTime:        NewTimestamp(entry.BirthTime),
		LastModifiedTime: NewTimestamp(entry.ModTime),
	}, nil
}
