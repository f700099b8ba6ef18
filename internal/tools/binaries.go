package tools

import (
	"sync"

	"github.com/haasonsaas/netprobe/internal/probe"
)

// BinaryCache memoizes PATH lookups so repeated executions do not stat
// the filesystem for every call.
type BinaryCache struct {
	mu     sync.RWMutex
	lookup func(string) (string, bool)
	found  map[string]string
	missed map[string]bool
}

// NewBinaryCache builds a cache backed by the real PATH.
func NewBinaryCache() *BinaryCache {
	return &BinaryCache{
		lookup: probe.BinaryPath,
		found:  make(map[string]string),
		missed: make(map[string]bool),
	}
}

// WithLookup replaces the PATH resolver. Tests use this to simulate
// missing binaries.
func (c *BinaryCache) WithLookup(fn func(string) (string, bool)) *BinaryCache {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lookup = fn
	c.found = make(map[string]string)
	c.missed = make(map[string]bool)
	return c
}

// Lookup resolves a binary name, caching both hits and misses.
func (c *BinaryCache) Lookup(name string) (string, bool) {
	c.mu.RLock()
	if path, ok := c.found[name]; ok {
		c.mu.RUnlock()
		return path, true
	}
	if c.missed[name] {
		c.mu.RUnlock()
		return "", false
	}
	c.mu.RUnlock()

	path, ok := c.lookup(name)
	c.mu.Lock()
	defer c.mu.Unlock()
	if ok {
		c.found[name] = path
	} else {
		c.missed[name] = true
	}
	return path, ok
}

// Available reports whether the binary resolves.
func (c *BinaryCache) Available(name string) bool {
	_, ok := c.Lookup(name)
	return ok
}

// Binaries exposes the registry's cache so startup checks and probe
// packages share one view of what is installed.
func (r *Registry) Binaries() *BinaryCache { return r.binaries }
