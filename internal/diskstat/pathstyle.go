package diskstat

import (
	"path/filepath"
	"strings"
)

// PathStyle is the separator convention used to join paths and derive basenames.
type PathStyle struct {
	// Separator is the path separator byte.
	Separator byte
}

var (
	// Posix separates path elements with a forward slash.
	Posix = PathStyle{Separator: '/'}
	// Backslash separates path elements with a backslash, as on Windows.
	Backslash = PathStyle{Separator: '\\'}
)

// NativeStyle returns the style of the running platform.
func NativeStyle() PathStyle {
	if filepath.Separator == '\\' {
		return Backslash
	}

	return Posix
}

// Join appends name to parent, inserting a separator unless parent already ends in one.
func (s PathStyle) Join(parent, name string) string {
	switch {
	case name == "":
		return parent
	case parent == "":
		return name
	case parent[len(parent)-1] == s.Separator:
		return parent + name
	default:
		return parent + string(s.Separator) + name
	}
}

// Base returns the last element of path.
//
// A trailing separator is skipped before searching for the previous one, so "/a/b/"
// yields "b". Paths without an earlier separator, such as "/" or `C:\`, are returned
// whole.
func (s PathStyle) Base(path string) string {
	sep := string(s.Separator)

	index := strings.LastIndex(path, sep)
	if index == len(path)-1 && index >= 0 {
		index = strings.LastIndex(path[:index], sep)
	}

	if index < 0 {
		return path
	}

	return strings.TrimSuffix(path[index+1:], sep)
}
