// Package registry collects the build-wide set of known slugs and the links
// each document declares in its frontmatter.
//
// Workers append to their own Accumulator without locking; accumulators
// are merged into the Registry once the worker is done. De-duplication is
// applied when a Snapshot is taken, so merge order never matters.
package registry

import (
	"sort"
	"sync"
)

// Accumulator buffers contributions from one worker. It is not safe for
// concurrent use.
type Accumulator struct {
	slugs map[string][]string
	links map[string][]string
}

func NewAccumulator() *Accumulator {
	return &Accumulator{
		slugs: make(map[string][]string),
		links: make(map[string][]string),
	}
}

// AddSlugs records path identifiers contributed by owner.
func (a *Accumulator) AddSlugs(owner string, slugs ...string) {
	for _, s := range slugs {
		if s != "" {
			a.slugs[owner] = append(a.slugs[owner], s)
		}
	}
}

// AddLinks records frontmatter link targets declared by owner.
func (a *Accumulator) AddLinks(owner string, targets ...string) {
	if len(targets) == 0 {
		return
	}
	a.links[owner] = append(a.links[owner], targets...)
}

// Registry is the shared, append-only store. Safe for concurrent use.
type Registry struct {
	mu    sync.Mutex
	slugs map[string]map[string]struct{}
	links map[string]map[string]struct{}
}

func New() *Registry {
	return &Registry{
		slugs: make(map[string]map[string]struct{}),
		links: make(map[string]map[string]struct{}),
	}
}

// Merge folds acc into the registry under a single lock.
func (r *Registry) Merge(acc *Accumulator) {
	if acc == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	mergeInto(r.slugs, acc.slugs)
	mergeInto(r.links, acc.links)
}

func mergeInto(dst map[string]map[string]struct{}, src map[string][]string) {
	for owner, values := range src {
		set, ok := dst[owner]
		if !ok {
			set = make(map[string]struct{}, len(values))
			dst[owner] = set
		}
		for _, v := range values {
			set[v] = struct{}{}
		}
	}
}

// Snapshot is an immutable, sorted view of the registry.
type Snapshot struct {
	// Slugs is every known path identifier, sorted and unique.
	Slugs []string `json:"slugs"`
	// Owners maps each path identifier to the documents that claim it.
	Owners map[string][]string `json:"owners"`
	// Links maps each document path to its sorted, unique frontmatter link
	// targets.
	Links map[string][]string `json:"links"`
}

// Snapshot copies the current contents.
func (r *Registry) Snapshot() *Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := &Snapshot{
		Owners: make(map[string][]string),
		Links:  make(map[string][]string, len(r.links)),
	}
	for owner, set := range r.slugs {
		for s := range set {
			snap.Owners[s] = append(snap.Owners[s], owner)
		}
	}
	for s, owners := range snap.Owners {
		sort.Strings(owners)
		snap.Slugs = append(snap.Slugs, s)
	}
	sort.Strings(snap.Slugs)
	if snap.Slugs == nil {
		snap.Slugs = []string{}
	}

	for owner, set := range r.links {
		snap.Links[owner] = sortedKeys(set)
	}
	return snap
}

// Conflicts lists slugs claimed by more than one document.
func (s *Snapshot) Conflicts() map[string][]string {
	out := make(map[string][]string)
	for slug, owners := range s.Owners {
		if len(owners) > 1 {
			out[slug] = owners
		}
	}
	return out
}

// Has reports whether slug is known.
func (s *Snapshot) Has(slug string) bool {
	i := sort.SearchStrings(s.Slugs, slug)
	return i < len(s.Slugs) && s.Slugs[i] == slug
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
