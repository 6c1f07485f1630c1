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

package dirblob_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/creachadair/klepto/archive/archivetest"
	"github.com/creachadair/klepto/archive/dirblob"
	"github.com/creachadair/klepto/keymap"
)

func TestConformance(t *testing.T) {
	a, err := dirblob.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	archivetest.Run(t, a)
}

func TestPutAllIsParallelAndComplete(t *testing.T) {
	ctx := context.Background()
	a, err := dirblob.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	km := keymap.NewString(keymap.Config{})
	kv := make(map[keymap.Key][]byte)
	for i := 0; i < 64; i++ {
		k, err := km.Key(ctx, keymap.Params{}, keymap.Call{Pos: []any{fmt.Sprintf("key-%d", i)}})
		if err != nil {
			t.Fatalf("Key: %v", err)
		}
		kv[k] = []byte(fmt.Sprintf("value-%d", i))
	}
	if err := a.PutAll(ctx, kv); err != nil {
		t.Fatalf("PutAll: %v", err)
	}
	n, err := a.Len(ctx)
	if err != nil {
		t.Fatalf("Len: %v", err)
	}
	if n != len(kv) {
		t.Errorf("Len() = %d, want %d", n, len(kv))
	}
	for k, want := range kv {
		got, err := a.Get(ctx, k)
		if err != nil {
			t.Fatalf("Get(%s): %v", k, err)
		}
		if string(got) != string(want) {
			t.Errorf("Get(%s) = %q, want %q", k, got, want)
		}
	}
}

func TestIndexIsAdvisoryNotAuthoritative(t *testing.T) {
	ctx := context.Background()
	a, err := dirblob.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	k, err := keymap.NewString(keymap.Config{}).Key(ctx, keymap.Params{}, keymap.Call{Pos: []any{"x"}})
	if err != nil {
		t.Fatalf("Key: %v", err)
	}
	if err := a.Put(ctx, k, []byte("y")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if !a.IndexDirty() {
		t.Errorf("IndexDirty() = false after Put, want true")
	}
	if err := a.WriteIndex(ctx); err != nil {
		t.Fatalf("WriteIndex: %v", err)
	}
	if a.IndexDirty() {
		t.Errorf("IndexDirty() = true after WriteIndex, want false")
	}

	keys, err := a.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if !keys.Has(k.String()) {
		t.Errorf("Keys() missing %q after WriteIndex", k.String())
	}
}
