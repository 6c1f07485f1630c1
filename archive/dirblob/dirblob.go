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

// Package dirblob implements the archive.Archive interface using a directory
// of files, one per key, mirroring storage/filestore in the teacher library.
// Each key maps to a file whose name is a sharded, hex-safe encoding of the
// key; file content is the raw value. Writes go through a temp file and an
// atomic rename, so the directory is safe for concurrent access by multiple
// processes at single-key granularity: readers only ever observe a fully
// committed value.
package dirblob

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/creachadair/atomicfile"
	"github.com/creachadair/klepto/archive"
	"github.com/creachadair/klepto/keymap"
	"github.com/creachadair/mds/mapset"
	"github.com/creachadair/taskgroup"
)

// Archive implements archive.Archive over a directory tree.
type Archive struct {
	dir   string
	shard shardConfig

	μ          sync.Mutex
	indexDirty bool
}

// Open creates an Archive rooted at dir, creating the directory if it does
// not already exist.
func Open(dir string) (*Archive, error) {
	path := filepath.Clean(dir)
	if err := os.MkdirAll(path, 0700); err != nil {
		return nil, err
	}
	return &Archive{dir: path, shard: shardConfig{shard: 2}}, nil
}

// Opener constructs a directory Archive from an address comprising a path,
// for use with archive.Open.
func Opener(_ context.Context, addr string) (archive.Archive, error) {
	return Open(strings.TrimPrefix(addr, "//"))
}

func init() { archive.Register("dir", Opener) }

func (a *Archive) keyPath(key keymap.Key) string {
	return filepath.Join(a.dir, a.shard.encode(key.String()))
}

// Get implements archive.Archive. It linearizes to the point at which
// opening the key's file for reading returns.
func (a *Archive) Get(_ context.Context, key keymap.Key) ([]byte, error) {
	data, err := os.ReadFile(a.keyPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, archive.NotFound(key)
		}
		return nil, archive.Wrap("get", key, err)
	}
	return data, nil
}

// Put implements archive.Archive. A successful Put linearizes to the point
// at which the rename of its write temporary succeeds.
func (a *Archive) Put(_ context.Context, key keymap.Key, value []byte) error {
	path := a.keyPath(key)
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return archive.Wrap("put", key, err)
	}
	if err := atomicfile.WriteData(path, value, 0600); err != nil {
		return archive.Wrap("put", key, err)
	}
	a.μ.Lock()
	a.indexDirty = true
	a.μ.Unlock()
	return nil
}

// Delete implements archive.Archive.
func (a *Archive) Delete(_ context.Context, key keymap.Key) error {
	path := a.keyPath(key)
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return archive.NotFound(key)
		}
		return archive.Wrap("delete", key, err)
	}
	_ = os.Remove(filepath.Dir(path)) // best effort, only succeeds if now empty
	a.μ.Lock()
	a.indexDirty = true
	a.μ.Unlock()
	return nil
}

// Contains implements archive.Archive.
func (a *Archive) Contains(_ context.Context, key keymap.Key) (bool, error) {
	_, err := os.Stat(a.keyPath(key))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, archive.Wrap("stat", key, err)
}

// Keys implements archive.Archive by enumerating the directory tree. This is
// the authoritative source of the key set; the optional ".index" sidecar
// (see WriteIndex) is never consulted here.
func (a *Archive) Keys(context.Context) (mapset.Set[string], error) {
	out := make(mapset.Set[string])
	roots, err := listdir(a.dir)
	if err != nil {
		return nil, err
	}
	for _, root := range roots {
		if root == indexFileName {
			continue
		}
		tails, err := listdir(filepath.Join(a.dir, root))
		if err != nil {
			if !errors.Is(err, errNotADirectory) {
				return nil, err
			}
			continue
		}
		for _, tail := range tails {
			key, err := a.shard.decode(filepath.Join(root, tail))
			if err != nil {
				continue // not a file this archive produced
			}
			out.Add(key)
		}
	}
	return out, nil
}

// Len implements archive.Archive.
func (a *Archive) Len(ctx context.Context) (int, error) {
	keys, err := a.Keys(ctx)
	if err != nil {
		return 0, err
	}
	return keys.Len(), nil
}

// Close implements archive.Archive. This implementation always reports nil.
func (*Archive) Close(context.Context) error { return nil }

// PutAll writes every (key, value) pair in kv, one write per key, each in its
// own goroutine of a task group with no limit on concurrency, so that a bulk
// write does not serialize its archive I/O key by key. Grounded on storage/cachestore.loadKeyMap's use of
// taskgroup to parallelize per-key work against a flat-namespace store.
func (a *Archive) PutAll(ctx context.Context, kv map[keymap.Key][]byte) error {
	g := taskgroup.New(nil)
	for k, v := range kv {
		k, v := k, v
		g.Go(func() error { return a.Put(ctx, k, v) })
	}
	return g.Wait()
}

var errNotADirectory = errors.New("dirblob: not a directory")

func listdir(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if !fi.IsDir() {
		return nil, errNotADirectory
	}
	names, err := f.Readdirnames(-1)
	sort.Strings(names)
	return names, err
}

// indexFileName names the optional, non-authoritative sidecar file that
// caches the list of present keys for fast enumeration. Directory
// enumeration (Keys) remains authoritative regardless of its contents.
const indexFileName = ".index"

// WriteIndex regenerates the ".index" sidecar from the authoritative
// directory listing. It is purely an optimization for external tools; klepto
// itself never reads it back.
func (a *Archive) WriteIndex(ctx context.Context) error {
	keys, err := a.Keys(ctx)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	list := keys.Slice()
	sort.Strings(list)
	for _, k := range list {
		buf.WriteString(k)
		buf.WriteByte('\n')
	}
	a.μ.Lock()
	a.indexDirty = false
	a.μ.Unlock()
	return atomicfile.WriteData(filepath.Join(a.dir, indexFileName), buf.Bytes(), 0600)
}

// IndexDirty reports whether a mutation has occurred since the index sidecar
// was last written.
func (a *Archive) IndexDirty() bool {
	a.μ.Lock()
	defer a.μ.Unlock()
	return a.indexDirty
}
