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

// Package dataset implements the archive.Archive interface over a
// hierarchical container in which keys become named members and values
// become the member's encoded byte content, the read-write generalization of
// the teacher library's read-only storage/zipstore. Two layouts are
// provided: FileArchive, a single container file holding every key (read
// entirely into memory and rewritten atomically on each mutation, the same
// tradeoff archive/fileblob makes for its single-file mapping); and
// DirArchive, one container file per key within a directory, for callers
// that want per-key atomicity instead of a single resident file.
package dataset

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/creachadair/atomicfile"
	"github.com/creachadair/klepto/archive"
	"github.com/creachadair/klepto/keymap"
	"github.com/creachadair/mds/mapset"
)

func memberName(key keymap.Key) string { return hex.EncodeToString(key.Bytes()) }

// FileArchive implements archive.Archive as a single zip-format container
// file. Concurrent writer semantics across processes are whatever the
// filesystem's rename semantics provide -- the same caveat fileblob
// documents for its single resident file.
type FileArchive struct {
	path string

	μ       sync.Mutex
	entries map[string][]byte
}

// OpenFile loads (or creates) a single-file dataset archive at path.
func OpenFile(path string) (*FileArchive, error) {
	a := &FileArchive{path: path, entries: make(map[string][]byte)}
	if err := a.load(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	return a, nil
}

// Opener constructs a single-file dataset Archive, for use with archive.Open.
func Opener(_ context.Context, addr string) (archive.Archive, error) {
	return OpenFile(strings.TrimPrefix(addr, "//"))
}

func init() { archive.Register("dataset", Opener) }

func (a *FileArchive) load() error {
	zr, err := zip.OpenReader(a.path)
	if err != nil {
		return err
	}
	defer zr.Close()
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return err
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return err
		}
		a.entries[f.Name] = data
	}
	return nil
}

// save rewrites the whole container file. Must be called with a.μ held.
func (a *FileArchive) save() error {
	names := make([]string, 0, len(a.entries))
	for n := range a.entries {
		names = append(names, n)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, n := range names {
		w, err := zw.Create(n)
		if err != nil {
			return err
		}
		if _, err := w.Write(a.entries[n]); err != nil {
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return err
	}
	return atomicfile.WriteData(a.path, buf.Bytes(), 0600)
}

// Get implements archive.Archive.
func (a *FileArchive) Get(_ context.Context, key keymap.Key) ([]byte, error) {
	a.μ.Lock()
	defer a.μ.Unlock()
	v, ok := a.entries[memberName(key)]
	if !ok {
		return nil, archive.NotFound(key)
	}
	return bytes.Clone(v), nil
}

// Put implements archive.Archive.
func (a *FileArchive) Put(_ context.Context, key keymap.Key, value []byte) error {
	a.μ.Lock()
	defer a.μ.Unlock()
	name := memberName(key)
	prev, had := a.entries[name]
	a.entries[name] = bytes.Clone(value)
	if err := a.save(); err != nil {
		if had {
			a.entries[name] = prev
		} else {
			delete(a.entries, name)
		}
		return archive.Wrap("put", key, err)
	}
	return nil
}

// Delete implements archive.Archive.
func (a *FileArchive) Delete(_ context.Context, key keymap.Key) error {
	a.μ.Lock()
	defer a.μ.Unlock()
	name := memberName(key)
	prev, ok := a.entries[name]
	if !ok {
		return archive.NotFound(key)
	}
	delete(a.entries, name)
	if err := a.save(); err != nil {
		a.entries[name] = prev
		return archive.Wrap("delete", key, err)
	}
	return nil
}

// Contains implements archive.Archive.
func (a *FileArchive) Contains(_ context.Context, key keymap.Key) (bool, error) {
	a.μ.Lock()
	defer a.μ.Unlock()
	_, ok := a.entries[memberName(key)]
	return ok, nil
}

// Keys implements archive.Archive.
func (a *FileArchive) Keys(context.Context) (mapset.Set[string], error) {
	a.μ.Lock()
	defer a.μ.Unlock()
	out := make(mapset.Set[string])
	for n := range a.entries {
		key, err := hex.DecodeString(n)
		if err != nil {
			continue
		}
		out.Add(string(key))
	}
	return out, nil
}

// Len implements archive.Archive.
func (a *FileArchive) Len(context.Context) (int, error) {
	a.μ.Lock()
	defer a.μ.Unlock()
	return len(a.entries), nil
}

// Close implements archive.Archive. This implementation always reports nil.
func (*FileArchive) Close(context.Context) error { return nil }

// DirArchive implements archive.Archive as a directory holding one
// single-member zip container per key, giving per-key write atomicity
// instead of FileArchive's single resident file.
type DirArchive struct {
	dir string
}

// OpenDir creates a DirArchive rooted at dir, creating the directory if it
// does not already exist.
func OpenDir(dir string) (*DirArchive, error) {
	path := filepath.Clean(dir)
	if err := os.MkdirAll(path, 0700); err != nil {
		return nil, err
	}
	return &DirArchive{dir: path}, nil
}

// OpenerDir constructs a sharded dataset Archive, for use with archive.Open
// under the "datasetdir" scheme.
func OpenerDir(_ context.Context, addr string) (archive.Archive, error) {
	return OpenDir(strings.TrimPrefix(addr, "//"))
}

func init() { archive.Register("datasetdir", OpenerDir) }

func (a *DirArchive) path(key keymap.Key) string {
	name := memberName(key)
	if len(name) < 2 {
		name = name + strings.Repeat("0", 2-len(name))
	}
	return filepath.Join(a.dir, name+".zip")
}

// Get implements archive.Archive.
func (a *DirArchive) Get(_ context.Context, key keymap.Key) ([]byte, error) {
	zr, err := zip.OpenReader(a.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, archive.NotFound(key)
		}
		return nil, archive.Wrap("get", key, err)
	}
	defer zr.Close()
	if len(zr.File) != 1 {
		return nil, archive.Wrap("get", key, io.ErrUnexpectedEOF)
	}
	rc, err := zr.File[0].Open()
	if err != nil {
		return nil, archive.Wrap("get", key, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Put implements archive.Archive.
func (a *DirArchive) Put(_ context.Context, key keymap.Key, value []byte) error {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(memberName(key))
	if err != nil {
		return archive.Wrap("put", key, err)
	}
	if _, err := w.Write(value); err != nil {
		return archive.Wrap("put", key, err)
	}
	if err := zw.Close(); err != nil {
		return archive.Wrap("put", key, err)
	}
	if err := atomicfile.WriteData(a.path(key), buf.Bytes(), 0600); err != nil {
		return archive.Wrap("put", key, err)
	}
	return nil
}

// Delete implements archive.Archive.
func (a *DirArchive) Delete(_ context.Context, key keymap.Key) error {
	if err := os.Remove(a.path(key)); err != nil {
		if os.IsNotExist(err) {
			return archive.NotFound(key)
		}
		return archive.Wrap("delete", key, err)
	}
	return nil
}

// Contains implements archive.Archive.
func (a *DirArchive) Contains(_ context.Context, key keymap.Key) (bool, error) {
	_, err := os.Stat(a.path(key))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, archive.Wrap("stat", key, err)
}

// Keys implements archive.Archive.
func (a *DirArchive) Keys(context.Context) (mapset.Set[string], error) {
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		return nil, err
	}
	out := make(mapset.Set[string])
	for _, e := range entries {
		name := strings.TrimSuffix(e.Name(), ".zip")
		if name == e.Name() {
			continue // not a dataset member file
		}
		key, err := hex.DecodeString(name)
		if err != nil {
			continue
		}
		out.Add(string(key))
	}
	return out, nil
}

// Len implements archive.Archive.
func (a *DirArchive) Len(ctx context.Context) (int, error) {
	keys, err := a.Keys(ctx)
	if err != nil {
		return 0, err
	}
	return keys.Len(), nil
}

// Close implements archive.Archive. This implementation always reports nil.
func (*DirArchive) Close(context.Context) error { return nil }
