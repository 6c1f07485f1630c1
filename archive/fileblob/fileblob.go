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

// Package fileblob implements the archive.Archive interface as a single
// serialized mapping stored at one file path. The whole mapping is loaded
// into memory on first use and written back atomically (temp file, then
// rename) on every mutation, the way storage/zipstore treats its single
// archive file as an always-resident index in the teacher library.
//
// Concurrent writers from multiple processes are not safe without external
// locking; readers see either the old or the new complete state, never a
// partial one, because the rename is atomic.
package fileblob

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/creachadair/atomicfile"
	"github.com/creachadair/klepto/archive"
	"github.com/creachadair/klepto/keymap"
	"github.com/creachadair/mds/mapset"
)

// formatVersion is written as the first byte of the file. A later version of
// this package that changes the body encoding must bump this, and must keep
// the ability to decode older versions if it wants to remain
// backward-compatible.
const formatVersion = 1

// Archive implements archive.Archive by keeping the entire mapping resident
// in memory and flushing it to a single file on every mutation.
type Archive struct {
	path string

	μ sync.Mutex
	m map[string][]byte
}

// Open loads (or creates) a file archive at path.
func Open(path string) (*Archive, error) {
	a := &Archive{path: path, m: make(map[string][]byte)}
	if err := a.load(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	return a, nil
}

// Opener constructs a file Archive from an address comprising a path, for
// use with archive.Open.
func Opener(_ context.Context, addr string) (archive.Archive, error) {
	return Open(strings.TrimPrefix(addr, "//"))
}

func init() { archive.Register("file", Opener) }

func (a *Archive) load() error {
	data, err := os.ReadFile(a.path)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	if data[0] != formatVersion {
		return fmt.Errorf("fileblob: unsupported format version %d", data[0])
	}
	m := make(map[string][]byte)
	if err := gob.NewDecoder(bytes.NewReader(data[1:])).Decode(&m); err != nil {
		return fmt.Errorf("fileblob: decode: %w", err)
	}
	a.m = m
	return nil
}

// save writes the current contents of a to its file atomically. Must be
// called with a.μ held.
func (a *Archive) save() error {
	var buf bytes.Buffer
	buf.WriteByte(formatVersion)
	if err := gob.NewEncoder(&buf).Encode(a.m); err != nil {
		return fmt.Errorf("fileblob: encode: %w", err)
	}
	return atomicfile.WriteData(a.path, buf.Bytes(), 0600)
}

// Get implements archive.Archive.
func (a *Archive) Get(_ context.Context, key keymap.Key) ([]byte, error) {
	a.μ.Lock()
	defer a.μ.Unlock()
	v, ok := a.m[key.String()]
	if !ok {
		return nil, archive.NotFound(key)
	}
	return bytes.Clone(v), nil
}

// Put implements archive.Archive.
func (a *Archive) Put(_ context.Context, key keymap.Key, value []byte) error {
	a.μ.Lock()
	defer a.μ.Unlock()
	prev, existed := a.m[key.String()]
	a.m[key.String()] = bytes.Clone(value)
	if err := a.save(); err != nil {
		if existed {
			a.m[key.String()] = prev
		} else {
			delete(a.m, key.String())
		}
		return archive.Wrap("put", key, err)
	}
	return nil
}

// Delete implements archive.Archive.
func (a *Archive) Delete(_ context.Context, key keymap.Key) error {
	a.μ.Lock()
	defer a.μ.Unlock()
	if _, ok := a.m[key.String()]; !ok {
		return archive.NotFound(key)
	}
	prev := a.m[key.String()]
	delete(a.m, key.String())
	if err := a.save(); err != nil {
		a.m[key.String()] = prev
		return archive.Wrap("delete", key, err)
	}
	return nil
}

// Contains implements archive.Archive.
func (a *Archive) Contains(_ context.Context, key keymap.Key) (bool, error) {
	a.μ.Lock()
	defer a.μ.Unlock()
	_, ok := a.m[key.String()]
	return ok, nil
}

// Keys implements archive.Archive.
func (a *Archive) Keys(context.Context) (mapset.Set[string], error) {
	a.μ.Lock()
	defer a.μ.Unlock()
	out := make(mapset.Set[string])
	for k := range a.m {
		out.Add(k)
	}
	return out, nil
}

// Len implements archive.Archive.
func (a *Archive) Len(context.Context) (int, error) {
	a.μ.Lock()
	defer a.μ.Unlock()
	return len(a.m), nil
}

// Close implements archive.Archive. This implementation always reports nil;
// the file is already fully flushed after every mutation.
func (*Archive) Close(context.Context) error { return nil }
