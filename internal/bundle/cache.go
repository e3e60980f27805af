// cache.go — the in-memory built-artifact cache (spec §5 "bundle
// cache is a map from path to {hash, text}... read only between build
// completions") and the in-flight-build blocking behavior requests
// arriving mid-rebuild need (spec §4.6 "requests arriving during an
// in-flight build block until the build completes").
package bundle

import (
	"sync"

	"github.com/wrightplay/wrightplay/internal/jsbuild"
)

type builtAsset struct {
	hash        string
	js          []byte
	sourceMap   []byte
	contentType string
}

// Cache holds the most recent successful build's artifacts, and
// coordinates readers against an in-flight rebuild the way the
// teacher's daemonState coordinates stdio callers against an
// in-flight respawn: readers block on a broadcast channel that's
// swapped out each time a build starts, rather than polling.
type Cache struct {
	mu       sync.RWMutex
	assets   map[string]builtAsset
	building bool
	readyCh  chan struct{}
}

// NewCache constructs an empty, immediately-ready cache.
func NewCache() *Cache {
	c := &Cache{assets: map[string]builtAsset{}}
	c.readyCh = closedChan()
	return c
}

func closedChan() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

// BeginBuild marks the cache as mid-rebuild: Lookup calls will block
// until EndBuild is called. Safe to call from the single watcher
// goroutine only; concurrent builds are not supported (mirrors spec
// §5's single-writer bundle cache).
func (c *Cache) BeginBuild() {
	c.mu.Lock()
	c.building = true
	c.readyCh = make(chan struct{})
	c.mu.Unlock()
}

// EndBuild installs outputs as the new cache contents (on success) or
// leaves the prior contents in place (on failure, outputs is nil),
// per spec §7 "the build that failed leaves the prior successful
// output in place." Either way, blocked Lookup callers are released.
func (c *Cache) EndBuild(outputs []jsbuild.BuildOutput) {
	c.mu.Lock()
	if outputs != nil {
		next := make(map[string]builtAsset, len(outputs))
		for _, o := range outputs {
			next[o.Path] = builtAsset{
				hash:        o.ContentHash,
				js:          o.JS,
				sourceMap:   o.SourceMap,
				contentType: "application/javascript; charset=utf-8",
			}
		}
		c.assets = next
	}
	c.building = false
	ready := c.readyCh
	c.mu.Unlock()
	close(ready)
}

// Lookup blocks until any in-flight build completes, then returns the
// asset at path, if present.
func (c *Cache) Lookup(path string) (js []byte, contentType string, found bool) {
	c.mu.RLock()
	building := c.building
	ready := c.readyCh
	c.mu.RUnlock()
	if building {
		<-ready
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	asset, ok := c.assets[path]
	if !ok {
		return nil, "", false
	}
	return asset.js, asset.contentType, true
}

// Hashes returns the current path->hash map, for the watcher to
// compare against the next build's outputs when deciding whether to
// raise a Changed event.
func (c *Cache) Hashes() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]string, len(c.assets))
	for path, a := range c.assets {
		out[path] = a.hash
	}
	return out
}
