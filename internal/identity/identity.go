// Package identity maps stable player ids to display names (spec §4's
// "player identity mapping") and mints both. Stable ids use google/uuid
// (promoted here from an indirect, transitive dependency in the teacher's
// module graph to a direct one) to satisfy invariant I6: globally unique per
// process lifetime. Display names come from a pet-name NameSource, the
// external collaborator spec.md names but does not specify; this package
// supplies the concrete one this server actually runs.
package identity

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/google/uuid"
)

// NewStableID mints a globally-unique player id (spec I6).
func NewStableID() string {
	return uuid.NewString()
}

var adjectives = []string{
	"Brisk", "Quiet", "Amber", "Bold", "Calm", "Dusty", "Eager", "Faded",
	"Gentle", "Hasty", "Icy", "Jolly", "Keen", "Lucky", "Mellow", "Nimble",
}

var nouns = []string{
	"Falcon", "Otter", "Maple", "Ember", "Harbor", "Comet", "Thistle",
	"Lantern", "Raven", "Summit", "Brook", "Cinder", "Willow", "Orbit",
}

// NameSource generates pet names (spec GLOSSARY: "two or three short words")
// and keeps a bounded LRU of recently-issued names so short-lived rooms don't
// immediately collide with each other, without retaining names forever.
type NameSource struct {
	mu      sync.Mutex
	rng     *rand.Rand
	recent  *lru.Cache[string, struct{}]
}

// NewNameSource builds a generator with a bounded recent-name cache of size
// capacity (e.g. 256): large enough to avoid repeats across concurrently
// active rooms, small enough to never grow unbounded across a long-running
// process.
func NewNameSource(capacity int) *NameSource {
	cache, _ := lru.New[string, struct{}](capacity)
	return &NameSource{
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		recent: cache,
	}
}

// Generate returns a pet name, retrying a bounded number of times to dodge
// the recent-issue cache before falling back to a name with a random numeric
// suffix (which is not checked against the cache).
func (n *NameSource) Generate() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	for attempt := 0; attempt < 8; attempt++ {
		name := fmt.Sprintf("%s%s", adjectives[n.rng.Intn(len(adjectives))], nouns[n.rng.Intn(len(nouns))])
		if _, seen := n.recent.Get(name); !seen {
			n.recent.Add(name, struct{}{})
			return name
		}
	}
	name := fmt.Sprintf("%s%s%d", adjectives[n.rng.Intn(len(adjectives))], nouns[n.rng.Intn(len(nouns))], n.rng.Intn(1000))
	n.recent.Add(name, struct{}{})
	return name
}

// Registry is the stable-id -> display-name index (spec §2, "Player identity
// mapping"). Safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	names map[string]string
}

func NewRegistry() *Registry {
	return &Registry{names: make(map[string]string)}
}

func (r *Registry) Set(id, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names[id] = name
}

func (r *Registry) NameOf(id string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.names[id]
	return name, ok
}

func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.names, id)
}
