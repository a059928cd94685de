package cache

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// SetItem is one entry of a SetMany batch.
type SetItem struct {
	Key     string
	Value   []byte
	Options EntryOptions
}

// preparedSet is a SetItem after concurrent validation and (when
// scoped) entitlement encryption, ready for the single mutating
// critical section SetMany runs once the whole batch checks out.
type preparedSet struct {
	key    string
	stored []byte
	opts   EntryOptions
}

// SetMany validates and (for scoped items) encrypts every item
// concurrently via errgroup, then applies the whole batch under one
// lock acquisition and evicts once at the end — so the size/count
// budget is enforced after the last insert rather than after each one
// as individual Set calls do, and a single bad item fails the batch
// before anything is mutated.
func (c *Cache) SetMany(ctx context.Context, items []SetItem) error {
	prepared := make([]preparedSet, len(items))
	g, gctx := errgroup.WithContext(ctx)
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if item.Key == "" {
				return ErrNilKey
			}
			if item.Value == nil {
				return ErrNilValue
			}
			stored := item.Value
			if item.Options.Scope != "" && c.opts.EntitlementEnabled {
				ciphertext, err := encryptForScope(c.opts.MasterKey, item.Options.Scope, item.Value)
				if err != nil {
					return err
				}
				stored = ciphertext
			}
			prepared[i] = preparedSet{key: item.Key, stored: stored, opts: item.Options}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.clock.Now()
	for _, p := range prepared {
		c.insertLocked(p.key, p.stored, p.opts, now)
	}
	c.evictLocked()
	return nil
}

// GetMany retrieves every key present and not expired, returning only
// the hits. Lookups run sequentially under one lock, in request order,
// so each hit's MRU promotion and sliding-expiration touch happen in
// the order the caller asked for them — an errgroup fan-out here would
// just reorder the very recency list it's supposed to update.
func (c *Cache) GetMany(ctx context.Context, keys []string) (map[string][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string][]byte, len(keys))
	for _, k := range keys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if v, ok, err := c.getLocked(k); err != nil {
			return nil, err
		} else if ok {
			out[k] = v
		}
	}
	return out, nil
}

// RemoveMany validates keys concurrently, then removes every present
// one under a single lock acquisition, returning the number removed.
func (c *Cache) RemoveMany(ctx context.Context, keys []string) (int, error) {
	g, gctx := errgroup.WithContext(ctx)
	for _, k := range keys {
		k := k
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if k == "" {
				return ErrNilKey
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	var n int
	for _, k := range keys {
		if e, ok := c.entries[k]; ok {
			c.removeLocked(e)
			n++
		}
	}
	return n, nil
}
