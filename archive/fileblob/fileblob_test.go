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

package fileblob_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/creachadair/klepto/archive/archivetest"
	"github.com/creachadair/klepto/archive/fileblob"
	"github.com/creachadair/klepto/keymap"
)

func TestConformance(t *testing.T) {
	a, err := fileblob.Open(filepath.Join(t.TempDir(), "archive.klepto"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	archivetest.Run(t, a)
}

func TestSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "archive.klepto")
	a, err := fileblob.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	k, err := keymap.NewString(keymap.Config{}).Key(ctx, keymap.Params{}, keymap.Call{Pos: []any{"x"}})
	if err != nil {
		t.Fatalf("Key: %v", err)
	}
	if err := a.Put(ctx, k, []byte("value")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	reopened, err := fileblob.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, err := reopened.Get(ctx, k)
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if string(got) != "value" {
		t.Errorf("Get after reopen = %q, want %q", got, "value")
	}
}
