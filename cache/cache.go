// Package cache implements a tag- and scope-aware in-process cache.
// Entries are kept in an LRU-ordered doubly linked list with an
// auxiliary map for O(1) lookup, plus inverted indices from tag and
// scope to the keys carrying them so bulk invalidation never needs a
// full scan. A scoped entry is sealed with AES-256-GCM under a subkey
// HKDF-derived from the cache's master key and the scope string, so the
// cache can double as a distributed-cache backend shared by callers
// that must never see each other's plaintext.
package cache

import (
	"container/list"
	"context"
	"errors"
	"sync"
	"time"
)

var (
	ErrNilKey   = errors.New("cache: key must not be empty")
	ErrNilValue = errors.New("cache: value must not be nil")
)

type entry struct {
	key   string
	value []byte // ciphertext when scope != "" and entitlement is enabled
	size  int
	tags  []string
	scope string

	absoluteExpiration time.Time
	slidingExpiration  time.Duration
	lastAccessed       time.Time

	elem *list.Element
}

// Options configures a Cache at construction time.
type Options struct {
	// MaxSizeBytes bounds the sum of stored value sizes; 0 disables the
	// size-based eviction trigger.
	MaxSizeBytes int64
	// MaxEntries bounds the entry count; 0 disables the count trigger.
	MaxEntries int
	// SweepInterval, if non-zero, starts a background goroutine that
	// periodically removes expired entries even absent a Get/Set touch.
	SweepInterval time.Duration
	// Clock overrides time.Now for tests; nil uses the system clock.
	Clock TimeProvider

	// EntitlementEnabled turns on scope-bound AES-256-GCM sealing for
	// entries stored with a non-empty EntryOptions.Scope.
	EntitlementEnabled bool
	// MasterKey is the HKDF input key material; must be set when
	// EntitlementEnabled is true.
	MasterKey []byte
	// EntitlementProvider resolves the calling context's current scope
	// on Get; a scoped entry is invisible to a caller whose scope
	// doesn't match the one it was Set under.
	EntitlementProvider EntitlementProvider
}

// Cache is a bounded, tag/scope-aware LRU cache safe for concurrent use.
type Cache struct {
	mu   sync.Mutex
	opts Options

	clock   TimeProvider
	entries map[string]*entry
	recency *list.List // front = most recently used

	totalSize int64

	tagIndex   map[string]map[string]struct{}
	scopeIndex map[string]map[string]struct{}

	sweepStop chan struct{}
	sweepOnce sync.Once
}

// New constructs a Cache and, if opts.SweepInterval > 0, starts its
// background expiry sweeper. Call Close to stop the sweeper.
func New(opts Options) *Cache {
	clock := opts.Clock
	if clock == nil {
		clock = systemClock{}
	}
	c := &Cache{
		opts:       opts,
		clock:      clock,
		entries:    make(map[string]*entry),
		recency:    list.New(),
		tagIndex:   make(map[string]map[string]struct{}),
		scopeIndex: make(map[string]map[string]struct{}),
	}
	if opts.SweepInterval > 0 {
		c.sweepStop = make(chan struct{})
		go c.sweepLoop(opts.SweepInterval)
	}
	return c
}

// Close stops the background sweeper, if one was started. It is safe to
// call more than once and safe to omit when SweepInterval was 0.
func (c *Cache) Close() {
	if c.sweepStop != nil {
		c.sweepOnce.Do(func() { close(c.sweepStop) })
	}
}

func (c *Cache) sweepLoop(interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			c.SweepExpired()
		case <-c.sweepStop:
			return
		}
	}
}

// Set stores value under key, encrypting it first when opts.Scope is
// non-empty and entitlement is enabled. An existing entry under key is
// replaced and loses its prior tags/scope.
func (c *Cache) Set(key string, value []byte, opts EntryOptions) error {
	if key == "" {
		return ErrNilKey
	}
	if value == nil {
		return ErrNilValue
	}
	stored := value
	if opts.Scope != "" && c.opts.EntitlementEnabled {
		ciphertext, err := encryptForScope(c.opts.MasterKey, opts.Scope, value)
		if err != nil {
			return err
		}
		stored = ciphertext
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.clock.Now()
	c.insertLocked(key, stored, opts, now)
	c.evictLocked()
	return nil
}

// insertLocked replaces (or creates) key's entry. It does not evict;
// callers run evictLocked once after all inserts in a batch are done.
func (c *Cache) insertLocked(key string, stored []byte, opts EntryOptions, now time.Time) {
	if old, ok := c.entries[key]; ok {
		c.removeLocked(old)
	}
	e := &entry{
		key:                key,
		value:              stored,
		size:               len(stored),
		tags:               append([]string(nil), opts.Tags...),
		scope:              opts.Scope,
		absoluteExpiration: opts.resolveAbsolute(now),
		slidingExpiration:  opts.SlidingExpiration,
		lastAccessed:       now,
	}
	e.elem = c.recency.PushFront(e)
	c.entries[key] = e
	c.totalSize += int64(e.size)
	c.index(e)
}

func (c *Cache) index(e *entry) {
	for _, tag := range e.tags {
		set, ok := c.tagIndex[tag]
		if !ok {
			set = make(map[string]struct{})
			c.tagIndex[tag] = set
		}
		set[e.key] = struct{}{}
	}
	if e.scope != "" {
		set, ok := c.scopeIndex[e.scope]
		if !ok {
			set = make(map[string]struct{})
			c.scopeIndex[e.scope] = set
		}
		set[e.key] = struct{}{}
	}
}

func (c *Cache) unindex(e *entry) {
	for _, tag := range e.tags {
		if set, ok := c.tagIndex[tag]; ok {
			delete(set, e.key)
			if len(set) == 0 {
				delete(c.tagIndex, tag)
			}
		}
	}
	if e.scope != "" {
		if set, ok := c.scopeIndex[e.scope]; ok {
			delete(set, e.key)
			if len(set) == 0 {
				delete(c.scopeIndex, e.scope)
			}
		}
	}
}

// evictLocked drops least-recently-used entries until both the size and
// count budgets (where configured) are satisfied.
func (c *Cache) evictLocked() {
	for (c.opts.MaxSizeBytes > 0 && c.totalSize > c.opts.MaxSizeBytes) ||
		(c.opts.MaxEntries > 0 && len(c.entries) > c.opts.MaxEntries) {
		back := c.recency.Back()
		if back == nil {
			break
		}
		c.removeLocked(back.Value.(*entry))
	}
}

func (c *Cache) removeLocked(e *entry) {
	c.recency.Remove(e.elem)
	delete(c.entries, e.key)
	c.totalSize -= int64(e.size)
	c.unindex(e)
}

// Get retrieves key's value. A scoped entry is returned only when the
// EntitlementProvider's current scope (under context.Background, since
// entitlement is a property of the caller identity, not of ctx's
// deadline/cancellation) matches the scope it was stored under;
// otherwise Get reports a miss rather than an authorization error, so a
// cache miss and an entitlement mismatch are indistinguishable to a
// caller that shouldn't learn the key exists under another scope.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.getLocked(key)
}

func (c *Cache) getLocked(key string) ([]byte, bool, error) {
	e, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	now := c.clock.Now()
	if isExpired(e, now) {
		c.removeLocked(e)
		return nil, false, nil
	}
	e.lastAccessed = now
	c.recency.MoveToFront(e.elem)

	if e.scope == "" || !c.opts.EntitlementEnabled {
		return e.value, true, nil
	}
	current := ""
	if c.opts.EntitlementProvider != nil {
		current = c.opts.EntitlementProvider.CurrentScope(context.Background())
	}
	if current != e.scope {
		return nil, false, nil
	}
	plain, err := decryptForScope(c.opts.MasterKey, e.scope, e.value)
	if err != nil {
		return nil, false, nil
	}
	return plain, true, nil
}

// Refresh touches key without returning its value, resetting any
// sliding-expiration window and promoting it to most-recently-used.
func (c *Cache) Refresh(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return
	}
	now := c.clock.Now()
	if isExpired(e, now) {
		c.removeLocked(e)
		return
	}
	e.lastAccessed = now
	c.recency.MoveToFront(e.elem)
}

// Remove evicts key, reporting whether it was present.
func (c *Cache) Remove(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return false
	}
	c.removeLocked(e)
	return true
}

// SweepExpired removes every currently expired entry and returns how
// many it removed.
func (c *Cache) SweepExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.clock.Now()
	var removed int
	for _, e := range c.entries {
		if isExpired(e, now) {
			c.removeLocked(e)
			removed++
		}
	}
	return removed
}

// EvictByTag removes every entry carrying tag and returns the count.
func (c *Cache) EvictByTag(tag string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictKeySetLocked(c.tagIndex[tag])
}

// EvictByTags removes every entry carrying any of tags and returns the
// count of distinct entries removed.
func (c *Cache) EvictByTags(tags []string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	union := make(map[string]struct{})
	for _, tag := range tags {
		for k := range c.tagIndex[tag] {
			union[k] = struct{}{}
		}
	}
	return c.evictKeySetLocked(union)
}

// EvictByScope removes every entry stored under scope and returns the
// count.
func (c *Cache) EvictByScope(scope string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictKeySetLocked(c.scopeIndex[scope])
}

// evictKeySetLocked removes the entries named by keys. It copies keys
// into a slice before mutating so eviction never races the maps backing
// the tag/scope indices it was handed a live reference into.
func (c *Cache) evictKeySetLocked(keys map[string]struct{}) int {
	toRemove := make([]string, 0, len(keys))
	for k := range keys {
		toRemove = append(toRemove, k)
	}
	var n int
	for _, k := range toRemove {
		if e, ok := c.entries[k]; ok {
			c.removeLocked(e)
			n++
		}
	}
	return n
}

// Len returns the current entry count.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Size returns the current sum of stored (post-encryption) value sizes.
func (c *Cache) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalSize
}
