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

package memblob_test

import (
	"context"
	"testing"

	"github.com/creachadair/klepto/archive"
	"github.com/creachadair/klepto/archive/archivetest"
	"github.com/creachadair/klepto/archive/memblob"
	"github.com/creachadair/klepto/keymap"
)

func TestConformance(t *testing.T) {
	archivetest.Run(t, memblob.New())
}

func TestOpen(t *testing.T) {
	a, err := archive.Open(context.Background(), "mem://anything")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, ok := a.(*memblob.Archive); !ok {
		t.Fatalf("Open returned %T, want *memblob.Archive", a)
	}
}

func TestSnapshot(t *testing.T) {
	ctx := context.Background()
	a := memblob.New()
	k, err := keymap.NewString(keymap.Config{}).Key(ctx, keymap.Params{}, keymap.Call{Pos: []any{"x"}})
	if err != nil {
		t.Fatalf("Key: %v", err)
	}
	if err := a.Put(ctx, k, []byte("y")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	snap := a.Snapshot(nil)
	if snap[k.String()] != "y" {
		t.Errorf("Snapshot()[%q] = %q, want %q", k.String(), snap[k.String()], "y")
	}
}
