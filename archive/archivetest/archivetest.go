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

// Package archivetest provides a shared conformance test suite for
// implementations of the archive.Archive interface, mirroring the role
// blob/storetest plays for blob.Store implementations in the teacher
// library this module is derived from.
package archivetest

import (
	"context"
	"testing"

	"github.com/creachadair/klepto/archive"
	"github.com/creachadair/klepto/keymap"
)

func key(s string) keymap.Key {
	k, err := keymap.NewString(keymap.Config{}).Key(context.Background(), keymap.Params{}, keymap.Call{Pos: []any{s}})
	if err != nil {
		panic(err)
	}
	return k
}

// Run exercises the correctness properties every Archive implementation must
// satisfy: round-trip storage (invariant 3 of the specification), correct
// miss reporting, deletion, and key enumeration.
func Run(t *testing.T, a archive.Archive) {
	t.Helper()
	ctx := context.Background()

	t.Run("MissIsNotFound", func(t *testing.T) {
		if _, err := a.Get(ctx, key("nonesuch")); !archive.IsNotFound(err) {
			t.Errorf("Get(nonesuch): got err %v, want ErrNotFound", err)
		}
		if ok, err := a.Contains(ctx, key("nonesuch")); err != nil || ok {
			t.Errorf("Contains(nonesuch) = %v, %v, want false, nil", ok, err)
		}
		if err := a.Delete(ctx, key("nonesuch")); !archive.IsNotFound(err) {
			t.Errorf("Delete(nonesuch): got err %v, want ErrNotFound", err)
		}
	})

	t.Run("RoundTrip", func(t *testing.T) {
		k := key("fruit")
		if err := a.Put(ctx, k, []byte("apple")); err != nil {
			t.Fatalf("Put: %v", err)
		}
		got, err := a.Get(ctx, k)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if string(got) != "apple" {
			t.Errorf("Get(fruit) = %q, want %q", got, "apple")
		}
		if ok, err := a.Contains(ctx, k); err != nil || !ok {
			t.Errorf("Contains(fruit) = %v, %v, want true, nil", ok, err)
		}
	})

	t.Run("Replace", func(t *testing.T) {
		k := key("fruit")
		if err := a.Put(ctx, k, []byte("pear")); err != nil {
			t.Fatalf("Put (replace): %v", err)
		}
		got, err := a.Get(ctx, k)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if string(got) != "pear" {
			t.Errorf("Get(fruit) after replace = %q, want %q", got, "pear")
		}
	})

	t.Run("KeysAndLen", func(t *testing.T) {
		if err := a.Put(ctx, key("nut"), []byte("hazelnut")); err != nil {
			t.Fatalf("Put: %v", err)
		}
		n, err := a.Len(ctx)
		if err != nil {
			t.Fatalf("Len: %v", err)
		}
		if n < 2 {
			t.Errorf("Len() = %d, want >= 2", n)
		}
		keys, err := a.Keys(ctx)
		if err != nil {
			t.Fatalf("Keys: %v", err)
		}
		for _, want := range []string{"fruit", "nut"} {
			if !keys.Has(key(want).String()) {
				t.Errorf("Keys() missing %q", want)
			}
		}
	})

	t.Run("Delete", func(t *testing.T) {
		k := key("nut")
		if err := a.Delete(ctx, k); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if ok, err := a.Contains(ctx, k); err != nil || ok {
			t.Errorf("Contains(nut) after delete = %v, %v, want false, nil", ok, err)
		}
	})
}
