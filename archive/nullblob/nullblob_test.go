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

package nullblob_test

import (
	"context"
	"testing"

	"github.com/creachadair/klepto/archive"
	"github.com/creachadair/klepto/archive/nullblob"
	"github.com/creachadair/klepto/keymap"
)

func TestDiscardsEverything(t *testing.T) {
	ctx := context.Background()
	a := nullblob.New()
	k, err := keymap.NewString(keymap.Config{}).Key(ctx, keymap.Params{}, keymap.Call{Pos: []any{"x"}})
	if err != nil {
		t.Fatalf("Key: %v", err)
	}
	if err := a.Put(ctx, k, []byte("y")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := a.Get(ctx, k); !archive.IsNotFound(err) {
		t.Errorf("Get after Put: got err %v, want ErrNotFound", err)
	}
	if ok, _ := a.Contains(ctx, k); ok {
		t.Errorf("Contains after Put = true, want false")
	}
	if n, err := a.Len(ctx); err != nil || n != 0 {
		t.Errorf("Len() = %d, %v, want 0, nil", n, err)
	}
	if err := a.Delete(ctx, k); !archive.IsNotFound(err) {
		t.Errorf("Delete: got err %v, want ErrNotFound", err)
	}
}

func TestOpen(t *testing.T) {
	a, err := archive.Open(context.Background(), "null://anything")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, ok := a.(nullblob.Archive); !ok {
		t.Fatalf("Open returned %T, want nullblob.Archive", a)
	}
}
