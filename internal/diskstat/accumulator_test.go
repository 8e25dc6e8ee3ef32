package diskstat

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
)

func TestAccumulator_PutNameIfTruncated(t *testing.T) {
	acc := NewAccumulator()
	truncated := &NameEntry{Name: "x", State: StateTruncated, SubFolders: []string{}}

	if !acc.putNameIfTruncated("/x", truncated) {
		t.Fatalf("an unknown path must be stored")
	}

	if !acc.putNameIfTruncated("/x", &NameEntry{Name: "x", State: StateTruncated, SubFolders: []string{}}) {
		t.Fatalf("a truncated entry must be replaceable")
	}

	acc.putName("/x", &NameEntry{Name: "x", State: StateExpanded, SubFolders: []string{"/x/y"}})

	if acc.putNameIfTruncated("/x", truncated) {
		t.Fatalf("an expanded entry must not be replaced by a truncated one")
	}

	if entry, _ := acc.Name("/x"); entry.State != StateExpanded {
		t.Fatalf("expected expanded, got %s", entry.State)
	}
}

func TestExpand_ConcurrentOverlappingExpansions(t *testing.T) {
	root := nestedTree(t)
	builder := NewNameBuilder(NewOSLister(0))
	ctx := context.Background()

	l1 := filepath.Join(root, "l1")
	l2 := filepath.Join(l1, "l2")

	for range 50 {
		acc := NewAccumulator()
		builder.BuildInto(ctx, root, "", 2, acc)

		var wg sync.WaitGroup

		wg.Go(func() {
			if err := builder.Expand(ctx, l2, 2, acc); err != nil {
				t.Errorf("expanding %s: %v", l2, err)
			}
		})
		wg.Go(func() {
			if err := builder.Expand(ctx, l1, 1, acc); err != nil {
				t.Errorf("expanding %s: %v", l1, err)
			}
		})

		wg.Wait()

		if entry, _ := acc.Name(l2); entry.State != StateExpanded {
			t.Fatalf("%s regressed to %s", l2, entry.State)
		}
	}
}
