package diskstat

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// NodeState tells whether a name-tree node's children are known.
type NodeState int

const (
	// StateTruncated marks a lazy leaf: the depth budget ran out before listing it.
	StateTruncated NodeState = iota
	// StateLeaf marks a directory that was listed and has no subdirectories.
	StateLeaf
	// StateExpanded marks a directory whose subdirectories are present.
	StateExpanded
	// StateUnreadable marks a directory whose listing failed.
	StateUnreadable
)

// String returns the name of the state.
func (s NodeState) String() string {
	switch s {
	case StateLeaf:
		return "leaf"
	case StateExpanded:
		return "expanded"
	case StateUnreadable:
		return "unreadable"
	default:
		return "truncated"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s NodeState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *NodeState) UnmarshalText(text []byte) error {
	for _, state := range []NodeState{StateTruncated, StateLeaf, StateExpanded, StateUnreadable} {
		if state.String() == string(text) {
			*s = state

			return nil
		}
	}

	return fmt.Errorf("unknown node state %q", text)
}

// NameNode is a node of an inline name tree.
type NameNode struct {
	Path       string      `json:"path"       yaml:"path"`
	Name       string      `json:"name"       yaml:"name"`
	State      NodeState   `json:"state"      yaml:"state"`
	SubFolders []*NameNode `json:"subFolders" yaml:"subFolders"`
}

// NameEntry is a node of a path-indexed name tree; SubFolders holds child paths.
type NameEntry struct {
	Name       string    `json:"name"       yaml:"name"`
	State      NodeState `json:"state"      yaml:"state"`
	SubFolders []string  `json:"subFolders" yaml:"subFolders"`
}

// NameBuilder builds depth-bounded trees of directory names.
type NameBuilder struct {
	lister Lister
	log    *zap.Logger
	style  PathStyle
}

// NewNameBuilder creates a NameBuilder reading through lister.
func NewNameBuilder(lister Lister, opts ...Option) *NameBuilder {
	s := newSettings(opts)

	return &NameBuilder{lister: lister, log: s.log, style: s.style}
}

// Build returns the inline tree rooted at parent joined with name, descending depth levels.
// Nodes at the depth boundary are truncated.
func (b *NameBuilder) Build(ctx context.Context, parent, name string, depth int) *NameNode {
	path := b.style.Join(parent, name)
	node := &NameNode{Path: path, Name: b.style.Base(path), SubFolders: []*NameNode{}}

	if depth <= 0 {
		node.State = StateTruncated

		return node
	}

	dirs, err := b.subdirectories(ctx, path)

	switch {
	case err != nil:
		node.State = StateUnreadable

		return node
	case len(dirs) == 0:
		node.State = StateLeaf

		return node
	}

	node.State = StateExpanded
	node.SubFolders = make([]*NameNode, len(dirs))

	var wg sync.WaitGroup

	for i, dir := range dirs {
		wg.Go(func() {
			node.SubFolders[i] = b.Build(ctx, path, dir, depth-1)
		})
	}

	wg.Wait()

	return node
}

// BuildInto writes the path-indexed tree rooted at parent joined with name into acc.
// A node's entry is written after the entries of its children.
func (b *NameBuilder) BuildInto(ctx context.Context, parent, name string, depth int, acc *Accumulator) {
	_ = b.buildInto(ctx, b.style.Join(parent, name), depth, acc)
}

// Expand materializes depth more levels below path in acc, replacing its stored entry.
// Expanding a directory already known to have no subdirectories does nothing.
func (b *NameBuilder) Expand(ctx context.Context, path string, depth int, acc *Accumulator) error {
	if depth < 1 {
		return fmt.Errorf("expansion depth must be at least 1, got %d", depth)
	}

	if entry, ok := acc.Name(path); ok && entry.State == StateLeaf {
		return nil
	}

	if err := b.buildInto(ctx, path, depth, acc); err != nil {
		return newFailure(path, err)
	}

	return nil
}

// buildInto returns the listing error of path itself.
func (b *NameBuilder) buildInto(ctx context.Context, path string, depth int, acc *Accumulator) error {
	entry := &NameEntry{Name: b.style.Base(path), SubFolders: []string{}}

	if depth <= 0 {
		// Keep what an earlier expansion already learned about this node.
		entry.State = StateTruncated
		acc.putNameIfTruncated(path, entry)

		return nil
	}

	dirs, err := b.subdirectories(ctx, path)
	if err != nil {
		entry.State = StateUnreadable
		acc.putName(path, entry)

		return err
	}

	var wg sync.WaitGroup

	for _, dir := range dirs {
		child := b.style.Join(path, dir)
		entry.SubFolders = append(entry.SubFolders, child)

		wg.Go(func() {
			_ = b.buildInto(ctx, child, depth-1, acc)
		})
	}

	wg.Wait()

	entry.State = StateLeaf
	if len(dirs) > 0 {
		entry.State = StateExpanded
	}

	acc.putName(path, entry)

	return nil
}

// subdirectories lists the names of the directories directly under path.
func (b *NameBuilder) subdirectories(ctx context.Context, path string) ([]string, error) {
	entries, err := b.lister.List(ctx, path)
	if err != nil {
		b.log.Debug("listing names failed", zap.String("path", path), zap.Error(err))

		return nil, err
	}

	var dirs []string

	for _, entry := range entries {
		if entry.IsDir {
			dirs = append(dirs, entry.Name)
		}
	}

	return dirs, nil
}
