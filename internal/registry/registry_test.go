package registry

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSnapshotDedupesAcrossAccumulators(t *testing.T) {
	r := New()

	a := NewAccumulator()
	a.AddSlugs("a.md", "a", "alias-one", "alias-one", "")
	a.AddLinks("a.md", "B", "c.md", "B")

	b := NewAccumulator()
	b.AddSlugs("b.md", "b", "alias-one")
	b.AddLinks("b.md")

	r.Merge(a)
	r.Merge(b)
	r.Merge(a)
	r.Merge(nil)

	snap := r.Snapshot()
	assert.Equal(t, []string{"a", "alias-one", "b"}, snap.Slugs)
	assert.Equal(t, []string{"a.md", "b.md"}, snap.Owners["alias-one"])
	assert.Equal(t, map[string][]string{"a.md": {"B", "c.md"}}, snap.Links)
	assert.Equal(t, map[string][]string{"alias-one": {"a.md", "b.md"}}, snap.Conflicts())
	assert.True(t, snap.Has("b"))
	assert.False(t, snap.Has("zzz"))
}

func TestMergeOrderIndependent(t *testing.T) {
	build := func(order []int) *Snapshot {
		r := New()
		accs := make([]*Accumulator, 3)
		for i := range accs {
			accs[i] = NewAccumulator()
			accs[i].AddSlugs(fmt.Sprintf("doc%d.md", i), "shared", fmt.Sprintf("s%d", i))
			accs[i].AddLinks(fmt.Sprintf("doc%d.md", i), "target")
		}
		for _, i := range order {
			r.Merge(accs[i])
		}
		return r.Snapshot()
	}
	assert.Equal(t, build([]int{0, 1, 2}), build([]int{2, 0, 1}))
}

func TestConcurrentMerge(t *testing.T) {
	r := New()
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			acc := NewAccumulator()
			for i := 0; i < 50; i++ {
				acc.AddSlugs(fmt.Sprintf("w%d-%d.md", w, i), fmt.Sprintf("slug-%d", i))
			}
			r.Merge(acc)
		}(w)
	}
	wg.Wait()

	snap := r.Snapshot()
	assert.Len(t, snap.Slugs, 50)
	assert.Len(t, snap.Owners["slug-0"], 8)
}

func TestEmptySnapshot(t *testing.T) {
	snap := New().Snapshot()
	assert.Equal(t, []string{}, snap.Slugs)
	assert.Empty(t, snap.Links)
}
