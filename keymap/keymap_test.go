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

package keymap_test

import (
	"context"
	"errors"
	"testing"

	"github.com/creachadair/klepto/keymap"
)

type Param = keymap.Param

func TestHashTypedDistinguishesTypes(t *testing.T) {
	params := keymap.Params{Positional: []Param{{Name: "a"}, {Name: "b"}}}
	typed := keymap.NewHash(keymap.Config{Typed: true})
	untyped := keymap.NewHash(keymap.Config{Typed: false})
	ctx := context.Background()

	k1, err := typed.Key(ctx, params, keymap.Call{Pos: []any{1, 2}})
	if err != nil {
		t.Fatalf("Key(1,2): %v", err)
	}
	k2, err := typed.Key(ctx, params, keymap.Call{Pos: []any{1.0, 2}})
	if err != nil {
		t.Fatalf("Key(1.0,2): %v", err)
	}
	if k1.String() == k2.String() {
		t.Errorf("typed keymap: g(1,2) and g(1.0,2) produced the same key")
	}

	u1, err := untyped.Key(ctx, params, keymap.Call{Pos: []any{1, 2}})
	if err != nil {
		t.Fatalf("Key(1,2): %v", err)
	}
	u2, err := untyped.Key(ctx, params, keymap.Call{Pos: []any{1.0, 2}})
	if err != nil {
		t.Fatalf("Key(1.0,2): %v", err)
	}
	if u1.String() != u2.String() {
		t.Errorf("untyped keymap: g(1,2) and g(1.0,2) produced different keys")
	}
}

func TestIgnoreListMasksArgument(t *testing.T) {
	params := keymap.Params{Positional: []Param{
		{Name: "x"},
		{Name: "verbose", HasDefault: true, Default: false},
	}}
	m := keymap.NewString(keymap.Config{Ignore: []string{"verbose"}})
	ctx := context.Background()

	k1, err := m.Key(ctx, params, keymap.Call{Pos: []any{1}, Named: map[string]any{"verbose": true}})
	if err != nil {
		t.Fatalf("Key(1, verbose=true): %v", err)
	}
	k2, err := m.Key(ctx, params, keymap.Call{Pos: []any{1}, Named: map[string]any{"verbose": false}})
	if err != nil {
		t.Fatalf("Key(1, verbose=false): %v", err)
	}
	if k1.String() != k2.String() {
		t.Errorf("ignored verbose flag still affects the key: %q != %q", k1, k2)
	}
}

func TestDeterministic(t *testing.T) {
	params := keymap.Params{Positional: []Param{{Name: "a"}, {Name: "b"}}}
	m := keymap.NewHash(keymap.Config{})
	ctx := context.Background()

	k1, err := m.Key(ctx, params, keymap.Call{Pos: []any{"x", 1}})
	if err != nil {
		t.Fatalf("Key: %v", err)
	}
	k2, err := m.Key(ctx, params, keymap.Call{Pos: []any{"x", 1}})
	if err != nil {
		t.Fatalf("Key: %v", err)
	}
	if k1.String() != k2.String() {
		t.Errorf("identical calls produced different keys: %q != %q", k1, k2)
	}
}

func TestRawRejectsUnhashable(t *testing.T) {
	params := keymap.Params{Positional: []Param{{Name: "lst"}}}
	m := keymap.NewRaw(keymap.Config{})
	_, err := m.Key(context.Background(), params, keymap.Call{Pos: []any{[]int{1, 2}}})
	if !errors.Is(err, keymap.ErrNotComparable) {
		t.Errorf("Key(unhashable): got err %v, want ErrNotComparable", err)
	}
}

func TestSafeFallsBackToString(t *testing.T) {
	params := keymap.Params{Positional: []Param{{Name: "lst"}}}
	m := keymap.Safe(keymap.NewRaw(keymap.Config{}), keymap.Config{})
	k, err := m.Key(context.Background(), params, keymap.Call{Pos: []any{[]int{1, 2}}})
	if err != nil {
		t.Fatalf("Safe Key(unhashable): %v", err)
	}
	if k.IsZero() {
		t.Errorf("Safe Key(unhashable): got zero key")
	}
}

func TestComposeRawThenHash(t *testing.T) {
	params := keymap.Params{Positional: []Param{{Name: "a"}}}
	m := keymap.Compose(keymap.NewRaw(keymap.Config{}), keymap.NewHash(keymap.Config{}))
	k, err := m.Key(context.Background(), params, keymap.Call{Pos: []any{42}})
	if err != nil {
		t.Fatalf("Compose.Key: %v", err)
	}
	if k.Variant() != keymap.Hash {
		t.Errorf("Compose(Raw, Hash).Variant() = %v, want Hash", k.Variant())
	}
}
