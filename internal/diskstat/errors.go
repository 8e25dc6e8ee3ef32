package diskstat

import (
	"errors"
	"fmt"
	"io/fs"
)

// Kind classifies a traversal failure.
type Kind int

const (
	// KindOther is an unexpected I/O failure.
	KindOther Kind = iota
	// KindNotFound means the target vanished between validation and traversal.
	KindNotFound
	// KindAccessDenied is a permission failure on list or stat.
	KindAccessDenied
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindAccessDenied:
		return "access_denied"
	default:
		return "other"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Classify maps an error to its Kind.
func Classify(err error) Kind {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return KindNotFound
	case errors.Is(err, fs.ErrPermission):
		return KindAccessDenied
	default:
		return KindOther
	}
}

// Failure records a directory whose subtree degraded to a zero statistic.
type Failure struct {
	// Path is the directory that could not be measured.
	Path string `json:"path" yaml:"path"`
	// Kind is the classification of Err.
	Kind Kind `json:"kind" yaml:"kind"`
	// Err is the underlying error.
	Err error `json:"-" yaml:"-"`
}

func newFailure(path string, err error) *Failure {
	return &Failure{Path: path, Kind: Classify(err), Err: err}
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s: %v", f.Path, f.Kind, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }
