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

// Package nullblob implements an archive.Archive that discards every write
// and reports every read as a miss. It is used to disable archiving
// uniformly, without special-casing a nil Archive throughout the Cache and
// decorator implementations.
package nullblob

import (
	"context"

	"github.com/creachadair/klepto/archive"
	"github.com/creachadair/klepto/keymap"
	"github.com/creachadair/mds/mapset"
)

// Archive is the null archive. Its zero value is ready for use.
type Archive struct{}

// New constructs a null Archive.
func New() Archive { return Archive{} }

// Opener constructs a null Archive, for use with archive.Open. The address
// is ignored.
func Opener(context.Context, string) (archive.Archive, error) { return New(), nil }

func init() { archive.Register("null", Opener) }

// Get always reports a miss.
func (Archive) Get(_ context.Context, key keymap.Key) ([]byte, error) {
	return nil, archive.NotFound(key)
}

// Put discards value.
func (Archive) Put(context.Context, keymap.Key, []byte) error { return nil }

// Delete always reports a miss.
func (Archive) Delete(_ context.Context, key keymap.Key) error { return archive.NotFound(key) }

// Contains always reports false.
func (Archive) Contains(context.Context, keymap.Key) (bool, error) { return false, nil }

// Keys always reports the empty set.
func (Archive) Keys(context.Context) (mapset.Set[string], error) { return nil, nil }

// Len always reports zero.
func (Archive) Len(context.Context) (int, error) { return 0, nil }

// Close is a no-op.
func (Archive) Close(context.Context) error { return nil }
