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

// Package archive defines the durable-mapping abstraction that backs a
// Cache's working set: a uniform contract over several storage backends
// (single-file blob, directory-of-files, SQL table, hierarchical dataset,
// in-memory, null), plus the error taxonomy shared by all of them.
package archive

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/creachadair/klepto/keymap"
	"github.com/creachadair/mds/mapset"
)

// An Archive is a durable Key -> Value mapping. Implementations must be safe
// for concurrent use by multiple goroutines; cross-process safety is
// backend-specific and documented on each implementation.
type Archive interface {
	// Get fetches the value stored under key. If key is not present, Get
	// must report an error satisfying errors.Is(err, archive.ErrNotFound).
	Get(ctx context.Context, key keymap.Key) ([]byte, error)

	// Put writes value under key, replacing any existing value.
	Put(ctx context.Context, key keymap.Key, value []byte) error

	// Delete removes key. If key is not present, Delete must report an error
	// satisfying errors.Is(err, archive.ErrNotFound).
	Delete(ctx context.Context, key keymap.Key) error

	// Contains reports whether key is present, without fetching its value.
	Contains(ctx context.Context, key keymap.Key) (bool, error)

	// Keys returns the set of all keys currently present, rendered as their
	// canonical string form (see keymap.Key.String).
	Keys(ctx context.Context) (mapset.Set[string], error)

	// Len reports the number of keys currently present.
	Len(ctx context.Context) (int, error)

	// Close releases any resources (file handles, database connections)
	// held by the archive.
	Close(ctx context.Context) error
}

// ErrNotFound is reported by Get and Delete when a key is absent.
var ErrNotFound = errors.New("key not found")

// IsNotFound reports whether err is or wraps ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// Error is the concrete type of archive I/O and protocol failures. It wraps
// the backend's underlying error together with the operation and key that
// were implicated, the way [keymap] wraps key-binding failures.
type Error struct {
	Op  string
	Key string
	Err error
}

func (e *Error) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("archive: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("archive: %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// NotFound constructs an ErrNotFound-wrapping Error for the given key.
func NotFound(key keymap.Key) error {
	return &Error{Op: "get", Key: key.String(), Err: ErrNotFound}
}

// wrap is a convenience constructor used by backend implementations.
func wrap(op string, key keymap.Key, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Key: key.String(), Err: err}
}

// Wrap exports wrap for use by sibling backend packages without widening the
// Error type's construction surface to arbitrary callers.
func Wrap(op string, key keymap.Key, err error) error { return wrap(op, key, err) }

// Rekey replaces the key recorded in err, if err is (or wraps) an *Error,
// with key's own string form. Wrapping archives that transform keys (see
// archive/affixed) use it so a caller sees the key it passed in, not the
// transformed key the wrapper wrote to the base archive.
func Rekey(err error, key keymap.Key) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return &Error{Op: e.Op, Key: key.String(), Err: e.Err}
	}
	return err
}

// An Opener constructs an Archive from the address portion of a URI (the
// part following "scheme://").
type Opener func(ctx context.Context, addr string) (Archive, error)

var openers = map[string]Opener{}

// Register associates scheme with opener, so that Open(ctx, "scheme://addr")
// dispatches to opener(ctx, "addr"). Backend packages call Register from an
// init function.
func Register(scheme string, opener Opener) { openers[scheme] = opener }

// Open constructs an Archive from a URI of the form "scheme://address". The
// scheme must have been registered by importing the corresponding backend
// package (e.g. importing archive/dirblob registers "dir").
func Open(ctx context.Context, uri string) (Archive, error) {
	scheme, addr, ok := strings.Cut(uri, "://")
	if !ok {
		return nil, fmt.Errorf("archive: malformed URI %q", uri)
	}
	opener, ok := openers[scheme]
	if !ok {
		return nil, fmt.Errorf("archive: unknown scheme %q", scheme)
	}
	return opener(ctx, addr)
}
