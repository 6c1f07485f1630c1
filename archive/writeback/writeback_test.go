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

package writeback_test

import (
	"context"
	"testing"
	"time"

	"github.com/creachadair/klepto/archive/archivetest"
	"github.com/creachadair/klepto/archive/memblob"
	"github.com/creachadair/klepto/archive/writeback"
	"github.com/creachadair/klepto/keymap"
)

func TestConformance(t *testing.T) {
	ctx := context.Background()
	a := writeback.New(ctx, memblob.New(), writeback.WithKeyVariant(keymap.String))
	defer a.Close(ctx)
	archivetest.Run(t, a)
}

func key(t *testing.T, s string) keymap.Key {
	t.Helper()
	k, err := keymap.NewString(keymap.Config{}).Key(context.Background(), keymap.Params{}, keymap.Call{Pos: []any{s}})
	if err != nil {
		t.Fatalf("Key(%q): %v", s, err)
	}
	return k
}

func TestPutIsVisibleBeforeFlush(t *testing.T) {
	ctx := context.Background()
	base := memblob.New()
	a := writeback.New(ctx, base, writeback.WithKeyVariant(keymap.String))
	defer a.Close(ctx)

	k := key(t, "alpha")
	if err := a.Put(ctx, k, []byte("value")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := a.Get(ctx, k)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "value" {
		t.Errorf("Get = %q, want %q", got, "value")
	}
}

func TestSyncFlushesToBase(t *testing.T) {
	ctx := context.Background()
	base := memblob.New()
	a := writeback.New(ctx, base, writeback.WithKeyVariant(keymap.String))
	defer a.Close(ctx)

	for i := 0; i < 20; i++ {
		k := key(t, string(rune('a'+i)))
		if err := a.Put(ctx, k, []byte{byte(i)}); err != nil {
			t.Fatalf("Put(%d): %v", i, err)
		}
	}

	syncCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := a.Sync(syncCtx); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	n, err := base.Len(ctx)
	if err != nil {
		t.Fatalf("base.Len: %v", err)
	}
	if n != 20 {
		t.Errorf("base.Len() = %d, want 20", n)
	}
}

func TestCloseStopsWriter(t *testing.T) {
	ctx := context.Background()
	base := memblob.New()
	a := writeback.New(ctx, base)
	closeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := a.Close(closeCtx); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
