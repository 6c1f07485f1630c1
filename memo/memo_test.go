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

package memo_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/creachadair/klepto/archive/fileblob"
	"github.com/creachadair/klepto/keymap"
	"github.com/creachadair/klepto/memo"
	"github.com/creachadair/klepto/memo/cache"
)

// square is a RawFunc computing x*x, used to exercise scenario (a).
func square(_ context.Context, pos []any, _ map[string]any) (int, error) {
	x := pos[0].(int)
	return x * x, nil
}

// TestLRUWithFileArchive exercises scenario (a): capacity 2, LRU, a
// file-backed archive, calling f(1), f(2), f(3), f(1) again, then f(4).
func TestLRUWithFileArchive(t *testing.T) {
	ctx := context.Background()
	arc, err := fileblob.Open(filepath.Join(t.TempDir(), "archive.klepto"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	km := keymap.NewRaw(keymap.Config{})
	f, err := memo.Wrap[int](square,
		memo.WithCapacity[int](2),
		memo.WithPolicy[int](cache.LRU),
		memo.WithArchive[int](arc),
		memo.WithKeymap[int](km, keymap.Raw),
	)
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}

	keyOf := func(n int) keymap.Key {
		k, err := f.Key(ctx, keymap.Call{Pos: []any{n}})
		if err != nil {
			t.Fatalf("Key(%d): %v", n, err)
		}
		return k
	}

	for _, n := range []int{1, 2, 3} {
		v, err := f.Invoke(ctx, n)
		if err != nil {
			t.Fatalf("Invoke(%d): %v", n, err)
		}
		if v != n*n {
			t.Fatalf("Invoke(%d) = %d, want %d", n, v, n*n)
		}
	}

	if f.Cache().Contains(keyOf(1)) {
		t.Errorf("cache still contains key 1, want evicted")
	}
	if !f.Cache().Contains(keyOf(2)) || !f.Cache().Contains(keyOf(3)) {
		t.Errorf("cache missing keys 2 and/or 3")
	}
	if ok, err := arc.Contains(ctx, keyOf(1)); err != nil || !ok {
		t.Errorf("archive.Contains(1) = %v, %v, want true, nil", ok, err)
	}

	// f(1) again: archive supplies the value (promotion); cache becomes
	// {3, 1}; archive still contains 1.
	v, err := f.Invoke(ctx, 1)
	if err != nil {
		t.Fatalf("Invoke(1) again: %v", err)
	}
	if v != 1 {
		t.Fatalf("Invoke(1) again = %d, want 1", v)
	}
	if !f.Cache().Contains(keyOf(1)) || !f.Cache().Contains(keyOf(3)) {
		t.Errorf("cache should now contain {1, 3}")
	}
	if ok, err := arc.Contains(ctx, keyOf(1)); err != nil || !ok {
		t.Errorf("archive should still contain 1")
	}

	// f(4): victim is 3 (least recently used); archive now contains {1, 3}.
	if _, err := f.Invoke(ctx, 4); err != nil {
		t.Fatalf("Invoke(4): %v", err)
	}
	if f.Cache().Contains(keyOf(3)) {
		t.Errorf("cache still contains key 3, want evicted")
	}
	for _, n := range []int{1, 3} {
		if ok, err := arc.Contains(ctx, keyOf(n)); err != nil || !ok {
			t.Errorf("archive.Contains(%d) = %v, %v, want true, nil", n, ok, err)
		}
	}
}

// echoFirst is a RawFunc that returns len(pos[0].([]int)), used as a stand-in
// for a function whose first argument is unhashable under the Raw variant.
func echoFirst(_ context.Context, pos []any, _ map[string]any) (int, error) {
	lst := pos[0].([]int)
	return len(lst), nil
}

// TestSafeModeWithUnhashableArgument exercises scenario (e).
func TestSafeModeWithUnhashableArgument(t *testing.T) {
	ctx := context.Background()
	f, err := memo.WrapSafe[int](echoFirst)
	if err != nil {
		t.Fatalf("WrapSafe: %v", err)
	}

	for i := 0; i < 2; i++ {
		v, err := f.Invoke(ctx, []int{1, 2})
		if err != nil {
			t.Fatalf("Invoke: %v", err)
		}
		if v != 2 {
			t.Fatalf("Invoke = %d, want 2", v)
		}
	}

	if got := f.Errors(); got != 2 {
		t.Errorf("Errors() = %d, want 2", got)
	}
	if got := f.Misses(); got != 0 {
		t.Errorf("Misses() = %d, want 0", got)
	}
	if got := f.Hits(); got != 0 {
		t.Errorf("Hits() = %d, want 0", got)
	}
}

// TestIgnoreListMasksArgument exercises scenario (d) at the decorator level.
func TestIgnoreListMasksArgument(t *testing.T) {
	ctx := context.Background()
	calls := 0
	h := func(_ context.Context, pos []any, _ map[string]any) (int, error) {
		calls++
		return pos[0].(int) * 2, nil
	}
	km := keymap.NewRaw(keymap.Config{Ignore: []string{"verbose"}})
	params := keymap.Params{Positional: []keymap.Param{{Name: "x"}, {Name: "verbose", Default: false, HasDefault: true}}}
	f, err := memo.Wrap[int](h, memo.WithKeymap[int](km, keymap.Raw), memo.WithParams[int](params))
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}

	v1, err := f.Call(ctx, keymap.Call{Pos: []any{1}, Named: map[string]any{"verbose": true}})
	if err != nil {
		t.Fatalf("Call (verbose=true): %v", err)
	}
	v2, err := f.Call(ctx, keymap.Call{Pos: []any{1}, Named: map[string]any{"verbose": false}})
	if err != nil {
		t.Fatalf("Call (verbose=false): %v", err)
	}
	if v1 != 2 || v2 != 2 {
		t.Fatalf("got v1=%d v2=%d, want both 2", v1, v2)
	}
	if calls != 1 {
		t.Errorf("underlying function invoked %d times, want 1 (second call should hit cache)", calls)
	}
}
