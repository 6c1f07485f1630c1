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

// Package memo implements the decorator binding: the glue that attaches a
// keymap, a cache, and an archive to an arbitrary callable and reproduces
// the call's semantics with memoization layered in front of it.
//
// Go has no reflective call-site binding of keyword arguments, defaults, or
// variadic parameters, so a decorated function is modeled as one that
// already accepts its arguments split into a positional slice and a named
// map (see [keymap.Call]); the [WithParams] option supplies the declared
// signature a real Go function would otherwise carry implicitly.
package memo

import (
	"context"
	"fmt"
	"sync"

	"github.com/creachadair/klepto/archive"
	"github.com/creachadair/klepto/archive/nullblob"
	"github.com/creachadair/klepto/keymap"
	"github.com/creachadair/klepto/memo/cache"
)

// RawFunc is the shape a memoized callable must have at the decorator
// boundary: its positional and named arguments already split the way a
// caller supplied them, mirroring [keymap.Call].
type RawFunc[T any] func(ctx context.Context, pos []any, named map[string]any) (T, error)

// Func is a memoized callable: a RawFunc bound to a keymap, a cache, and an
// optional archive. Construct one with [Wrap] or [WrapSafe].
type Func[T any] struct {
	fn     RawFunc[T]
	km     keymap.Map
	params keymap.Params
	cache  *cache.Cache[T]
	safe   bool

	μ      sync.Mutex
	errors uint64
}

// Wrap decorates fn with a cache, per the given options. The returned Func's
// Invoke/Call methods implement the hit/promote/miss sequence: a cache hit
// returns immediately; a cache miss that is present in the archive is
// promoted into the cache and returned; a miss in both invokes fn, inserts
// the result, and returns it.
//
// If M(params, call) fails to form a key (a [keymap.ErrNotComparable] or
// similar encoding failure), the error is returned to the caller wrapped
// with a "memo: key:" prefix, so errors.Is still matches it.
// Use [WrapSafe] for a decorator that instead bypasses the cache on such
// failures.
func Wrap[T any](fn RawFunc[T], opts ...Option[T]) (*Func[T], error) {
	return newFunc(fn, false, opts)
}

// WrapSafe decorates fn exactly like [Wrap], except that a key-formation
// failure does not propagate: the call bypasses the cache entirely, fn is
// invoked directly, and the failure is counted by [Func.Errors] instead.
// This is strictly a superset of the inputs [Wrap] accepts — it never
// hides an error raised by fn itself.
func WrapSafe[T any](fn RawFunc[T], opts ...Option[T]) (*Func[T], error) {
	return newFunc(fn, true, opts)
}

func newFunc[T any](fn RawFunc[T], safe bool, opts []Option[T]) (*Func[T], error) {
	cfg := defaultConfig[T]()
	for _, opt := range opts {
		opt(&cfg)
	}
	arc := cfg.arc
	if arc == nil {
		arc = nullblob.New()
	}
	c, err := cache.New[T](cfg.capacity, cfg.policy,
		cache.WithArchive[T](arc),
		cache.WithCodec[T](cfg.codec),
		cache.WithKeyVariant[T](cfg.variant),
	)
	if err != nil {
		return nil, err
	}
	return &Func[T]{fn: fn, km: cfg.km, params: cfg.params, cache: c, safe: safe}, nil
}

// Key previews the canonical key a call would use, without invoking fn or
// touching the cache.
func (d *Func[T]) Key(ctx context.Context, call keymap.Call) (keymap.Key, error) {
	return d.km.Key(ctx, d.params, call)
}

// Cache returns the Cache backing d.
func (d *Func[T]) Cache() *cache.Cache[T] { return d.cache }

// Archive returns the archive d's Cache is bound to.
func (d *Func[T]) Archive() archive.Archive { return d.cache.Archive() }

// Invoke calls d with purely positional arguments. It is a convenience for
// the common case in which no named arguments or signature binding is
// needed; see [Func.Call] for the general form.
func (d *Func[T]) Invoke(ctx context.Context, pos ...any) (T, error) {
	return d.Call(ctx, keymap.Call{Pos: pos})
}

// Call runs the decorated function for call: a cache hit returns
// immediately; a miss promoted from the archive is inserted into the cache
// and returned; a double miss invokes the underlying function, inserts its
// result, and returns it.
func (d *Func[T]) Call(ctx context.Context, call keymap.Call) (T, error) {
	var zero T
	k, err := d.km.Key(ctx, d.params, call)
	if err != nil {
		if d.safe {
			d.μ.Lock()
			d.errors++
			d.μ.Unlock()
			return d.fn(ctx, call.Pos, call.Named)
		}
		return zero, fmt.Errorf("memo: key: %w", err)
	}

	if v, ok, err := d.cache.Get(ctx, k); err != nil {
		return zero, err
	} else if ok {
		return v, nil
	}

	if v, ok, err := d.cache.Promote(ctx, k); err != nil {
		return zero, err
	} else if ok {
		return v, nil
	}

	result, err := d.fn(ctx, call.Pos, call.Named)
	if err != nil {
		return result, err
	}
	if err := d.cache.Put(ctx, k, result); err != nil {
		return result, err
	}
	return result, nil
}

// Load pulls every entry from the archive into the cache; see
// [cache.Cache.Load].
func (d *Func[T]) Load(ctx context.Context) error { return d.cache.Load(ctx) }

// Dump pushes every cached entry to the archive; see [cache.Cache.Dump].
func (d *Func[T]) Dump(ctx context.Context) error { return d.cache.Dump(ctx) }

// Clear discards the in-memory working set without touching the archive.
func (d *Func[T]) Clear() { d.cache.Drop() }

// Hits reports the number of calls satisfied directly from the cache.
func (d *Func[T]) Hits() uint64 { return d.cache.Hits() }

// Misses reports the number of calls that found no entry in the cache
// (whether or not they were then satisfied from the archive).
func (d *Func[T]) Misses() uint64 { return d.cache.Misses() }

// Errors reports the number of calls that bypassed the cache entirely
// because the keymap could not form a key. It is always zero for a Func
// built with [Wrap] rather than [WrapSafe].
func (d *Func[T]) Errors() uint64 {
	d.μ.Lock()
	defer d.μ.Unlock()
	return d.errors
}

// Info summarizes the decorated function's cache for display.
type Info struct {
	Len      int
	Capacity int
	Policy   cache.Policy
	Hits     uint64
	Misses   uint64
	Errors   uint64
}

// Info reports the current size, capacity, policy, and counters of d's
// cache.
func (d *Func[T]) Info() Info {
	return Info{
		Len:      d.cache.Len(),
		Capacity: d.cache.Capacity(),
		Policy:   d.cache.Policy(),
		Hits:     d.cache.Hits(),
		Misses:   d.cache.Misses(),
		Errors:   d.Errors(),
	}
}
