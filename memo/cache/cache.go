// Copyright 2026 The Klepto Authors. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cache implements the bounded, policy-driven working set that fronts
// an archive: a family of eviction policies (LRU, LFU, MRU, RR, INF, NO)
// behind one generic interface, grounded on the architecture of
// storage/cachestore in the teacher library (a mutex-guarded map paired with
// a throttled, lazily-populated view of a durable backing store) but
// replacing that package's single fixed LRU-by-size policy with the closed
// set of policies this module's callers need to select among explicitly.
package cache

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"math/rand/v2"
	"sync"

	"github.com/creachadair/klepto/archive"
	"github.com/creachadair/klepto/archive/nullblob"
	"github.com/creachadair/klepto/encoder"
	"github.com/creachadair/klepto/keymap"
)

// A Policy selects the eviction rule a Cache uses to choose a victim when a
// Put at capacity must make room for a new key.
type Policy int

const (
	// LRU evicts the entry with the smallest access timestamp, breaking ties
	// by earliest insertion order.
	LRU Policy = iota

	// LFU evicts the entry with the smallest access count, breaking ties by
	// the LRU rule.
	LFU

	// MRU evicts the entry with the largest access timestamp, breaking ties
	// by latest insertion order.
	MRU

	// RR evicts a uniformly random entry.
	RR

	// INF never evicts; the Cache is unbounded regardless of its configured
	// capacity.
	INF

	// NO gives the Cache a capacity of zero: every Put demotes straight to
	// the archive (or is discarded, if there is none), and nothing is ever
	// retained in memory.
	NO
)

func (p Policy) String() string {
	switch p {
	case LRU:
		return "LRU"
	case LFU:
		return "LFU"
	case MRU:
		return "MRU"
	case RR:
		return "RR"
	case INF:
		return "INF"
	case NO:
		return "NO"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// Unbounded is the capacity sentinel used by the INF policy.
const Unbounded = -1

// A Codec converts between a Cache's value type and the byte string an
// Archive stores. The zero value of [GobCodec] is the default.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}

// GobCodec is a Codec built on the gob encoding the rest of this module's
// encoder package uses.
type GobCodec[V any] struct{}

// Encode implements Codec.
func (GobCodec[V]) Encode(v V) ([]byte, error) { return encoder.Encode(v) }

// Decode implements Codec.
func (GobCodec[V]) Decode(data []byte) (V, error) {
	var v V
	err := encoder.Decode(data, &v)
	return v, err
}

// CapacityError reports that a Cache was configured with an invalid
// capacity.
type CapacityError struct{ Capacity int }

func (e *CapacityError) Error() string {
	return fmt.Sprintf("cache: invalid capacity %d", e.Capacity)
}

// ValueEncodingError reports that a value could not be encoded for storage
// in, or decoded after retrieval from, the archive.
type ValueEncodingError struct{ Err error }

func (e *ValueEncodingError) Error() string { return fmt.Sprintf("cache: value encoding: %v", e.Err) }
func (e *ValueEncodingError) Unwrap() error { return e.Err }

// InvariantViolation indicates a bug in the Cache implementation itself: a
// mutation left the Cache in a state the specification forbids. It is never
// produced by caller input and is not meant to be recovered from.
type InvariantViolation struct{ Detail string }

func (e *InvariantViolation) Error() string { return "cache: invariant violation: " + e.Detail }

// ErrNotFound is returned by Delete when the key is not present.
var ErrNotFound = errors.New("cache: key not found")

type entry[V any] struct {
	key   keymap.Key
	value V
	stamp uint64 // recency timestamp, for LRU/MRU
	count uint64 // access count, for LFU
	seq   uint64 // insertion order, for tie-breaks
}

// Cache is a bounded Key -> Value mapping with an eviction Policy and an
// optional bound Archive. Its zero value is not usable; construct one with
// [New]. All methods are safe for concurrent use by multiple goroutines.
type Cache[V any] struct {
	policy   Policy
	capacity int
	codec    Codec[V]
	variant  keymap.Variant
	arc      archive.Archive

	μ       sync.Mutex
	entries map[keymap.Key]*entry[V]
	clock   uint64
	seq     uint64

	hits, misses, loads uint64
}

// An Option configures a Cache at construction time.
type Option[V any] func(*Cache[V])

// WithArchive attaches a to the Cache, for demotion on eviction and for
// Load/Dump/Sync. Without this option, the Cache uses a null archive (every
// demotion is discarded, and Load is a no-op).
func WithArchive[V any](a archive.Archive) Option[V] { return func(c *Cache[V]) { c.arc = a } }

// WithCodec overrides the default [GobCodec] used to translate values to and
// from the byte strings the archive stores.
func WithCodec[V any](codec Codec[V]) Option[V] { return func(c *Cache[V]) { c.codec = codec } }

// WithKeyVariant records which [keymap.Variant] produced the keys this Cache
// will see, so that Load can reconstruct a [keymap.Key] from the plain
// strings an Archive's Keys method returns. Callers that always pass
// explicit keys to Load do not need this option.
func WithKeyVariant[V any](v keymap.Variant) Option[V] { return func(c *Cache[V]) { c.variant = v } }

// New constructs a Cache with the given capacity and eviction policy.
// Capacity must be non-negative, or [Unbounded]; New returns a
// *CapacityError otherwise. The INF policy always behaves as unbounded
// regardless of capacity; the NO policy always behaves as capacity zero.
func New[V any](capacity int, policy Policy, opts ...Option[V]) (*Cache[V], error) {
	if capacity != Unbounded && capacity < 0 {
		return nil, &CapacityError{Capacity: capacity}
	}
	switch policy {
	case INF:
		capacity = Unbounded
	case NO:
		capacity = 0
	}
	c := &Cache[V]{
		policy:   policy,
		capacity: capacity,
		codec:    GobCodec[V]{},
		arc:      nullblob.New(),
		entries:  make(map[keymap.Key]*entry[V]),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Policy reports the eviction policy c was constructed with.
func (c *Cache[V]) Policy() Policy { return c.policy }

// Capacity reports the capacity c was constructed with ([Unbounded] for the
// INF policy).
func (c *Cache[V]) Capacity() int { return c.capacity }

// Archive returns the archive c is bound to. It is never nil; a Cache built
// without [WithArchive] is bound to a null archive.
func (c *Cache[V]) Archive() archive.Archive { return c.arc }

// Get reports the value stored under key, and whether it was present. A
// miss is reported as ok == false with a nil error, never as an error.
func (c *Cache[V]) Get(ctx context.Context, key keymap.Key) (value V, ok bool, err error) {
	if c.policy == NO {
		data, err := c.arc.Get(ctx, key)
		if err != nil {
			if archive.IsNotFound(err) {
				c.μ.Lock()
				c.misses++
				c.μ.Unlock()
				return value, false, nil
			}
			return value, false, err
		}
		v, err := c.codec.Decode(data)
		if err != nil {
			return value, false, &ValueEncodingError{Err: err}
		}
		c.μ.Lock()
		c.hits++
		c.μ.Unlock()
		return v, true, nil
	}

	c.μ.Lock()
	defer c.μ.Unlock()
	e, present := c.entries[key]
	if !present {
		c.misses++
		return value, false, nil
	}
	c.clock++
	e.stamp = c.clock
	e.count++
	c.hits++
	return e.value, true, nil
}

// Contains reports whether key is present, without affecting policy
// metadata.
func (c *Cache[V]) Contains(key keymap.Key) bool {
	c.μ.Lock()
	defer c.μ.Unlock()
	_, ok := c.entries[key]
	return ok
}

// Len reports the number of entries currently resident in memory.
func (c *Cache[V]) Len() int {
	c.μ.Lock()
	defer c.μ.Unlock()
	return len(c.entries)
}

// Keys returns the keys currently resident in memory, in no particular
// order.
func (c *Cache[V]) Keys() []keymap.Key {
	c.μ.Lock()
	defer c.μ.Unlock()
	out := make([]keymap.Key, 0, len(c.entries))
	for k := range c.entries {
		out = append(out, k)
	}
	return out
}

// All returns an iterator over the entries currently resident in memory. The
// iterator is a snapshot: mutations made while ranging over it are not
// observed.
func (c *Cache[V]) All() iter.Seq2[keymap.Key, V] {
	return func(yield func(keymap.Key, V) bool) {
		c.μ.Lock()
		snap := make([]*entry[V], 0, len(c.entries))
		for _, e := range c.entries {
			snap = append(snap, e)
		}
		c.μ.Unlock()
		for _, e := range snap {
			if !yield(e.key, e.value) {
				return
			}
		}
	}
}

// selectVictim chooses the entry to evict under c's policy. Must be called
// with c.μ held. It returns nil if there is no entry to evict (an empty
// Cache, or the INF policy).
func (c *Cache[V]) selectVictim() *entry[V] {
	if len(c.entries) == 0 || c.policy == INF {
		return nil
	}
	switch c.policy {
	case LRU:
		var best *entry[V]
		for _, e := range c.entries {
			if best == nil || e.stamp < best.stamp || (e.stamp == best.stamp && e.seq < best.seq) {
				best = e
			}
		}
		return best
	case LFU:
		var best *entry[V]
		for _, e := range c.entries {
			if best == nil || e.count < best.count ||
				(e.count == best.count && (e.stamp < best.stamp || (e.stamp == best.stamp && e.seq < best.seq))) {
				best = e
			}
		}
		return best
	case MRU:
		var best *entry[V]
		for _, e := range c.entries {
			if best == nil || e.stamp > best.stamp || (e.stamp == best.stamp && e.seq > best.seq) {
				best = e
			}
		}
		return best
	case RR:
		n := rand.IntN(len(c.entries))
		i := 0
		for _, e := range c.entries {
			if i == n {
				return e
			}
			i++
		}
		return nil
	default:
		return nil
	}
}

// Put inserts value under key, updating it in place if already present.
// Otherwise, if the Cache is at capacity, a victim is chosen per policy,
// unlinked from memory, and (if an archive is attached) written to the
// archive -- after the Cache's lock has been released, per the
// specification's concurrency model. A failure writing the victim to the
// archive is reported as an *archive.Error, but the eviction is not rolled
// back: the value is already gone from memory either way. A Cache of
// capacity zero (including the NO policy) writes value straight to the
// archive and keeps nothing in memory.
func (c *Cache[V]) Put(ctx context.Context, key keymap.Key, value V) error {
	if c.capacity == 0 {
		enc, err := c.codec.Encode(value)
		if err != nil {
			return &ValueEncodingError{Err: err}
		}
		return c.arc.Put(ctx, key, enc)
	}

	c.μ.Lock()
	c.clock++
	if e, ok := c.entries[key]; ok {
		e.value = value
		e.stamp = c.clock
		e.count++
		c.μ.Unlock()
		return nil
	}

	var victim *entry[V]
	if c.capacity != Unbounded && len(c.entries) >= c.capacity {
		victim = c.selectVictim()
		if victim != nil {
			delete(c.entries, victim.key)
		}
	}
	c.seq++
	c.entries[key] = &entry[V]{key: key, value: value, stamp: c.clock, count: 1, seq: c.seq}
	n := len(c.entries)
	c.μ.Unlock()

	if c.capacity != Unbounded && n > c.capacity {
		panic(&InvariantViolation{Detail: fmt.Sprintf("len %d exceeds capacity %d after Put", n, c.capacity)})
	}

	if victim == nil {
		return nil
	}
	enc, err := c.codec.Encode(victim.value)
	if err != nil {
		return &ValueEncodingError{Err: err}
	}
	return c.arc.Put(ctx, victim.key, enc)
}

// Promote checks the archive for key; if present, it decodes the stored
// value, inserts it into memory via a normal Put (so it participates in
// eviction bookkeeping like any other entry), and reports it as a hit. If
// key is absent from the archive, Promote reports a miss with a nil error,
// exactly like Get. It is the building block the memo package's decorator
// uses for its "miss in cache, hit in archive" step.
func (c *Cache[V]) Promote(ctx context.Context, key keymap.Key) (value V, ok bool, err error) {
	data, err := c.arc.Get(ctx, key)
	if err != nil {
		if archive.IsNotFound(err) {
			return value, false, nil
		}
		return value, false, err
	}
	v, err := c.codec.Decode(data)
	if err != nil {
		return value, false, &ValueEncodingError{Err: err}
	}
	if err := c.Put(ctx, key, v); err != nil {
		return v, true, err
	}
	return v, true, nil
}

// Delete removes key from memory. It does not touch the archive. It reports
// ErrNotFound if key was not present.
func (c *Cache[V]) Delete(_ context.Context, key keymap.Key) error {
	c.μ.Lock()
	defer c.μ.Unlock()
	if _, ok := c.entries[key]; !ok {
		return ErrNotFound
	}
	delete(c.entries, key)
	return nil
}

// Drop discards the entire in-memory working set. It does not touch the
// archive.
func (c *Cache[V]) Drop() {
	c.μ.Lock()
	defer c.μ.Unlock()
	c.entries = make(map[keymap.Key]*entry[V])
}

// loadOne inserts (key, value) without updating policy metadata, so a
// freshly loaded entry sorts to the bottom of LRU/LFU order and is the first
// candidate for eviction. Eviction triggered by Load does not demote its
// victim to the archive: the archive is the source Load is reading from, and
// writing to it mid-load could clobber data Load has not reached yet. A
// Cache of capacity zero keeps nothing.
func (c *Cache[V]) loadOne(key keymap.Key, value V) {
	if c.capacity == 0 {
		return
	}
	c.μ.Lock()
	defer c.μ.Unlock()
	if _, ok := c.entries[key]; !ok && c.capacity != Unbounded && len(c.entries) >= c.capacity {
		if victim := c.selectVictim(); victim != nil {
			delete(c.entries, victim.key)
		}
	}
	c.seq++
	c.entries[key] = &entry[V]{key: key, value: value, seq: c.seq}
}

// Load pulls entries from the archive into memory. With no keys given, every
// key currently in the archive is loaded; otherwise only the given keys are
// attempted. A key absent from the archive is silently skipped. Loaded
// entries do not update policy metadata (see loadOne).
func (c *Cache[V]) Load(ctx context.Context, keys ...keymap.Key) error {
	targets := keys
	if len(targets) == 0 {
		names, err := c.arc.Keys(ctx)
		if err != nil {
			return err
		}
		for _, s := range names.Slice() {
			targets = append(targets, keymap.Wrap(c.variant, s))
		}
	}
	for _, k := range targets {
		data, err := c.arc.Get(ctx, k)
		if err != nil {
			if archive.IsNotFound(err) {
				continue
			}
			return err
		}
		v, err := c.codec.Decode(data)
		if err != nil {
			return &ValueEncodingError{Err: err}
		}
		c.loadOne(k, v)
	}
	c.μ.Lock()
	c.loads++
	c.μ.Unlock()
	return nil
}

// Dump pushes entries from memory to the archive. With no keys given, every
// key currently resident in memory is dumped; otherwise only the given keys
// that are resident are dumped.
func (c *Cache[V]) Dump(ctx context.Context, keys ...keymap.Key) error {
	c.μ.Lock()
	var toDump []*entry[V]
	if len(keys) == 0 {
		toDump = make([]*entry[V], 0, len(c.entries))
		for _, e := range c.entries {
			toDump = append(toDump, e)
		}
	} else {
		for _, k := range keys {
			if e, ok := c.entries[k]; ok {
				toDump = append(toDump, e)
			}
		}
	}
	c.μ.Unlock()

	for _, e := range toDump {
		enc, err := c.codec.Encode(e.value)
		if err != nil {
			return &ValueEncodingError{Err: err}
		}
		if err := c.arc.Put(ctx, e.key, enc); err != nil {
			return err
		}
	}
	return nil
}

// Sync aligns the Cache and its archive: it loads every archive key, then
// dumps every memory key, so that on a collision the in-memory value wins.
func (c *Cache[V]) Sync(ctx context.Context) error {
	if err := c.Load(ctx); err != nil {
		return err
	}
	return c.Dump(ctx)
}

// Hits reports the number of Get calls that found their key present.
func (c *Cache[V]) Hits() uint64 {
	c.μ.Lock()
	defer c.μ.Unlock()
	return c.hits
}

// Misses reports the number of Get calls that did not find their key.
func (c *Cache[V]) Misses() uint64 {
	c.μ.Lock()
	defer c.μ.Unlock()
	return c.misses
}

// Loads reports the number of completed Load calls.
func (c *Cache[V]) Loads() uint64 {
	c.μ.Lock()
	defer c.μ.Unlock()
	return c.loads
}
