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

// Package affixed implements an archive.Archive that delegates to another
// archive, with keys namespaced by a fixed prefix and/or suffix attached to
// the key's byte encoding, adapted from storage/affixed in the teacher
// library. This lets several decorated functions share one underlying
// archive (a single SQL table, a single directory) without their keys
// colliding.
package affixed

import (
	"context"
	"strings"

	"github.com/creachadair/klepto/archive"
	"github.com/creachadair/klepto/keymap"
	"github.com/creachadair/mds/mapset"
)

// Archive implements archive.Archive by delegating to an underlying archive,
// with each key's byte encoding prefixed and/or suffixed by a fixed string.
type Archive struct {
	real   archive.Archive
	prefix string
	suffix string
}

// New creates an Archive delegating to real with no affixes. Affixes do not
// nest: if real is already an *Archive, its base is reused.
func New(real archive.Archive) *Archive {
	if a, ok := real.(*Archive); ok {
		return &Archive{real: a.real}
	}
	return &Archive{real: real}
}

// WithPrefix returns a clone of a that delegates to the same base archive
// but uses a different prefix. The suffix, if any, is unchanged.
func (a *Archive) WithPrefix(prefix string) *Archive {
	return &Archive{real: a.real, prefix: prefix, suffix: a.suffix}
}

// WithSuffix returns a clone of a that delegates to the same base archive
// but uses a different suffix. The prefix, if any, is unchanged.
func (a *Archive) WithSuffix(suffix string) *Archive {
	return &Archive{real: a.real, prefix: a.prefix, suffix: suffix}
}

// Base returns the archive underlying a.
func (a *Archive) Base() archive.Archive { return a.real }

func (a *Archive) wrap(key keymap.Key) keymap.Key {
	return keymap.Wrap(key.Variant(), a.prefix+string(key.Bytes())+a.suffix)
}

func (a *Archive) unwrap(raw string) string {
	p := strings.TrimPrefix(raw, a.prefix)
	return strings.TrimSuffix(p, a.suffix)
}

// Get implements archive.Archive by delegation.
func (a *Archive) Get(ctx context.Context, key keymap.Key) ([]byte, error) {
	v, err := a.real.Get(ctx, a.wrap(key))
	if err != nil {
		return nil, archive.Rekey(err, key)
	}
	return v, nil
}

// Put implements archive.Archive by delegation.
func (a *Archive) Put(ctx context.Context, key keymap.Key, value []byte) error {
	if err := a.real.Put(ctx, a.wrap(key), value); err != nil {
		return archive.Rekey(err, key)
	}
	return nil
}

// Delete implements archive.Archive by delegation.
func (a *Archive) Delete(ctx context.Context, key keymap.Key) error {
	if err := a.real.Delete(ctx, a.wrap(key)); err != nil {
		return archive.Rekey(err, key)
	}
	return nil
}

// Contains implements archive.Archive by delegation.
func (a *Archive) Contains(ctx context.Context, key keymap.Key) (bool, error) {
	return a.real.Contains(ctx, a.wrap(key))
}

// Keys implements archive.Archive. It filters the underlying key set to
// those matching this Archive's prefix/suffix, and strips the affixes from
// each before returning it.
func (a *Archive) Keys(ctx context.Context) (mapset.Set[string], error) {
	all, err := a.real.Keys(ctx)
	if err != nil {
		return nil, err
	}
	if a.prefix == "" && a.suffix == "" {
		return all, nil
	}
	out := make(mapset.Set[string])
	for _, raw := range all.Slice() {
		if !strings.HasPrefix(raw, a.prefix) || !strings.HasSuffix(raw, a.suffix) {
			continue
		}
		out.Add(a.unwrap(raw))
	}
	return out, nil
}

// Len implements archive.Archive. It reports only the count of keys
// matching this Archive's prefix/suffix.
func (a *Archive) Len(ctx context.Context) (int, error) {
	if a.prefix == "" && a.suffix == "" {
		return a.real.Len(ctx)
	}
	keys, err := a.Keys(ctx)
	if err != nil {
		return 0, err
	}
	return keys.Len(), nil
}

// Close implements archive.Archive by delegation.
func (a *Archive) Close(ctx context.Context) error { return a.real.Close(ctx) }
