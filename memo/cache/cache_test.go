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

package cache_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/creachadair/klepto/archive/memblob"
	"github.com/creachadair/klepto/keymap"
	"github.com/creachadair/klepto/memo/cache"
)

func intKey(t *testing.T, n int) keymap.Key {
	t.Helper()
	k, err := keymap.NewString(keymap.Config{}).Key(context.Background(), keymap.Params{}, keymap.Call{Pos: []any{n}})
	if err != nil {
		t.Fatalf("Key(%d): %v", n, err)
	}
	return k
}

// TestCapacityNeverExceeded exercises invariant 1: size(Cache) <= capacity
// after every operation, for every policy.
func TestCapacityNeverExceeded(t *testing.T) {
	ctx := context.Background()
	for _, policy := range []cache.Policy{cache.LRU, cache.LFU, cache.MRU, cache.RR} {
		t.Run(policy.String(), func(t *testing.T) {
			c, err := cache.New[int](3, policy)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			for i := 0; i < 50; i++ {
				if err := c.Put(ctx, intKey(t, i), i); err != nil {
					t.Fatalf("Put(%d): %v", i, err)
				}
				if n := c.Len(); n > 3 {
					t.Fatalf("Len() = %d after Put(%d), want <= 3", n, i)
				}
			}
		})
	}
}

func TestNegativeCapacityRejected(t *testing.T) {
	// -1 is the Unbounded sentinel, so the first invalid capacity is -2.
	if _, err := cache.New[int](-2, cache.LRU); err == nil {
		t.Fatalf("New(-2, LRU) succeeded, want CapacityError")
	}
}

// TestLRUEvictsOldest exercises property 5 for the LRU policy.
func TestLRUEvictsOldest(t *testing.T) {
	ctx := context.Background()
	c, err := cache.New[int](2, cache.LRU)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	k1, k2, k3 := intKey(t, 1), intKey(t, 2), intKey(t, 3)
	for _, k := range []keymap.Key{k1, k2, k3} {
		if err := c.Put(ctx, k, 0); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}
	if c.Contains(k1) {
		t.Errorf("Contains(k1) = true, want false (LRU should have evicted 1)")
	}
	if !c.Contains(k2) || !c.Contains(k3) {
		t.Errorf("expected k2 and k3 to remain")
	}
}

// TestMRUEvictsNewest exercises property 5 for the MRU policy.
func TestMRUEvictsNewest(t *testing.T) {
	ctx := context.Background()
	c, err := cache.New[int](2, cache.MRU)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	k1, k2, k3 := intKey(t, 1), intKey(t, 2), intKey(t, 3)
	for _, k := range []keymap.Key{k1, k2} {
		if err := c.Put(ctx, k, 0); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}
	// Access k2 to make it the most-recently-used entry before the Put that
	// forces an eviction.
	if _, ok, err := c.Get(ctx, k2); err != nil || !ok {
		t.Fatalf("Get(k2) = _, %v, %v, want true, nil", ok, err)
	}
	if err := c.Put(ctx, k3, 0); err != nil {
		t.Fatalf("Put(k3): %v", err)
	}
	if c.Contains(k2) {
		t.Errorf("Contains(k2) = true, want false (MRU should have evicted the most recently touched entry)")
	}
}

// TestLFUEvictsLeastUsed exercises property 5 for the LFU policy.
func TestLFUEvictsLeastUsed(t *testing.T) {
	ctx := context.Background()
	c, err := cache.New[int](2, cache.LFU)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	k1, k2, k3 := intKey(t, 1), intKey(t, 2), intKey(t, 3)
	if err := c.Put(ctx, k1, 0); err != nil {
		t.Fatalf("Put(k1): %v", err)
	}
	if err := c.Put(ctx, k2, 0); err != nil {
		t.Fatalf("Put(k2): %v", err)
	}
	for i := 0; i < 5; i++ {
		if _, ok, err := c.Get(ctx, k1); err != nil || !ok {
			t.Fatalf("Get(k1): %v, %v", ok, err)
		}
	}
	if err := c.Put(ctx, k3, 0); err != nil {
		t.Fatalf("Put(k3): %v", err)
	}
	if c.Contains(k2) {
		t.Errorf("Contains(k2) = true, want false (LFU should evict the least-accessed key)")
	}
	if !c.Contains(k1) {
		t.Errorf("Contains(k1) = false, want true")
	}
}

// TestNoPolicyNeverRetains exercises invariant 6.
func TestNoPolicyNeverRetains(t *testing.T) {
	ctx := context.Background()
	arc := memblob.New()
	c, err := cache.New[int](0, cache.NO, cache.WithArchive[int](arc))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for i := 0; i < 10; i++ {
		if err := c.Put(ctx, intKey(t, i), i); err != nil {
			t.Fatalf("Put(%d): %v", i, err)
		}
	}
	if n := c.Len(); n != 0 {
		t.Errorf("Len() = %d, want 0", n)
	}
	n, err := arc.Len(ctx)
	if err != nil {
		t.Fatalf("arc.Len: %v", err)
	}
	if n != 10 {
		t.Errorf("archive Len() = %d, want 10", n)
	}
}

// TestInfNeverEvicts exercises the INF policy.
func TestInfNeverEvicts(t *testing.T) {
	ctx := context.Background()
	c, err := cache.New[int](1, cache.INF)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for i := 0; i < 1000; i++ {
		if err := c.Put(ctx, intKey(t, i), i); err != nil {
			t.Fatalf("Put(%d): %v", i, err)
		}
	}
	if n := c.Len(); n != 1000 {
		t.Errorf("Len() = %d, want 1000", n)
	}
}

// TestDumpThenArchiveContainsEverything exercises invariant 4.
func TestDumpThenArchiveContainsEverything(t *testing.T) {
	ctx := context.Background()
	arc := memblob.New()
	c, err := cache.New[string](100, cache.LRU, cache.WithArchive[string](arc))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for i := 0; i < 20; i++ {
		if err := c.Put(ctx, intKey(t, i), fmt.Sprintf("v%d", i)); err != nil {
			t.Fatalf("Put(%d): %v", i, err)
		}
	}
	if err := c.Dump(ctx); err != nil {
		t.Fatalf("Dump: %v", err)
	}
	for _, k := range c.Keys() {
		v, ok, err := c.Get(ctx, k)
		if err != nil || !ok {
			t.Fatalf("Get: %v, %v", ok, err)
		}
		got, err := arc.Get(ctx, k)
		if err != nil {
			t.Fatalf("arc.Get: %v", err)
		}
		decoded, err := (cache.GobCodec[string]{}).Decode(got)
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if decoded != v {
			t.Errorf("archive value for %s = %q, want %q", k, decoded, v)
		}
	}
}

// TestLoadAndSyncRoundTrip exercises scenario (f): dump from one Cache,
// load into a fresh one sharing the same archive, and expect equal contents.
func TestLoadAndSyncRoundTrip(t *testing.T) {
	ctx := context.Background()
	arc := memblob.New()
	c1, err := cache.New[string](100, cache.LRU, cache.WithArchive[string](arc), cache.WithKeyVariant[string](keymap.String))
	if err != nil {
		t.Fatalf("New c1: %v", err)
	}
	want := make(map[string]string)
	for i := 0; i < 100; i++ {
		k := intKey(t, i)
		v := fmt.Sprintf("value-%d", i)
		if err := c1.Put(ctx, k, v); err != nil {
			t.Fatalf("Put: %v", err)
		}
		want[k.String()] = v
	}
	if err := c1.Dump(ctx); err != nil {
		t.Fatalf("Dump: %v", err)
	}

	c2, err := cache.New[string](100, cache.LRU, cache.WithArchive[string](arc), cache.WithKeyVariant[string](keymap.String))
	if err != nil {
		t.Fatalf("New c2: %v", err)
	}
	if err := c2.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c2.Len() != len(want) {
		t.Fatalf("c2.Len() = %d, want %d", c2.Len(), len(want))
	}
	for _, k := range c2.Keys() {
		v, ok, err := c2.Get(ctx, k)
		if err != nil || !ok {
			t.Fatalf("Get: %v, %v", ok, err)
		}
		if v != want[k.String()] {
			t.Errorf("c2[%s] = %q, want %q", k, v, want[k.String()])
		}
	}
}
