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

// Package memblob implements the archive.Archive interface with an in-memory
// dictionary, for uniformity and for use in tests. It is modeled directly on
// the teacher library's blob/memstore package.
package memblob

import (
	"context"
	"strings"
	"sync"

	"github.com/creachadair/klepto/archive"
	"github.com/creachadair/klepto/keymap"
	"github.com/creachadair/mds/mapset"
	"github.com/creachadair/mds/stree"
)

// Archive implements archive.Archive using an in-memory ordered map. A zero
// value is ready for use. All methods are safe for concurrent use by
// multiple goroutines; contents are not persisted.
type Archive struct {
	μ sync.Mutex
	m *stree.Tree[entry]
}

type entry struct{ key, val string }

func compare(a, b entry) int { return strings.Compare(a.key, b.key) }

// New constructs a new, empty Archive.
func New() *Archive { return &Archive{m: stree.New(300, compare)} }

// Opener constructs a memblob Archive, for use with archive.Open. The
// address is ignored.
func Opener(context.Context, string) (archive.Archive, error) { return New(), nil }

func init() { archive.Register("mem", Opener) }

// Snapshot copies the current contents of a into m, allocating m if nil.
func (a *Archive) Snapshot(m map[string]string) map[string]string {
	if m == nil {
		m = make(map[string]string)
	}
	a.μ.Lock()
	defer a.μ.Unlock()
	for e := range a.m.Inorder {
		m[e.key] = e.val
	}
	return m
}

// Get implements archive.Archive.
func (a *Archive) Get(_ context.Context, key keymap.Key) ([]byte, error) {
	a.μ.Lock()
	defer a.μ.Unlock()
	if e, ok := a.m.Get(entry{key: key.String()}); ok {
		return []byte(e.val), nil
	}
	return nil, archive.NotFound(key)
}

// Put implements archive.Archive.
func (a *Archive) Put(_ context.Context, key keymap.Key, value []byte) error {
	a.μ.Lock()
	defer a.μ.Unlock()
	a.m.Replace(entry{key: key.String(), val: string(value)})
	return nil
}

// Delete implements archive.Archive.
func (a *Archive) Delete(_ context.Context, key keymap.Key) error {
	a.μ.Lock()
	defer a.μ.Unlock()
	if !a.m.Remove(entry{key: key.String()}) {
		return archive.NotFound(key)
	}
	return nil
}

// Contains implements archive.Archive.
func (a *Archive) Contains(_ context.Context, key keymap.Key) (bool, error) {
	a.μ.Lock()
	defer a.μ.Unlock()
	_, ok := a.m.Get(entry{key: key.String()})
	return ok, nil
}

// Keys implements archive.Archive.
func (a *Archive) Keys(context.Context) (mapset.Set[string], error) {
	a.μ.Lock()
	defer a.μ.Unlock()
	out := make(mapset.Set[string])
	for e := range a.m.Inorder {
		out.Add(e.key)
	}
	return out, nil
}

// Len implements archive.Archive.
func (a *Archive) Len(context.Context) (int, error) {
	a.μ.Lock()
	defer a.μ.Unlock()
	return a.m.Len(), nil
}

// Close implements archive.Archive. This implementation is a no-op.
func (*Archive) Close(context.Context) error { return nil }
