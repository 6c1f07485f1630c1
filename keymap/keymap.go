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

// Package keymap implements the key-mapping subsystem of klepto: it collapses
// a function call's positional and named arguments into a canonical,
// comparable, serializable Key.
//
// Go has no runtime reflection over a function's declared parameter names,
// defaults, or variadic markers, so binding a call against a signature -- the
// step dynamic languages perform implicitly -- is made explicit here as
// [Params]. Callers describe a function's signature once, at decoration
// time, and every call is bound against that description before a Key is
// formed.
package keymap

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/creachadair/klepto/encoder"
)

// A Variant selects the concrete encoding a Key uses.
type Variant int

const (
	// Raw keys compare by structural (Go) equality of the canonicalized
	// argument tuple. It requires every argument to be comparable; see
	// [ErrNotComparable].
	Raw Variant = iota

	// Hash keys are a fixed-width fingerprint of the canonicalized argument
	// tuple. Collisions are possible in principle but are not a practical
	// concern at the digest width used here.
	Hash

	// String keys are a stable, printable rendering of the canonicalized
	// argument tuple. They are suitable for use as directory file names or
	// SQL column values.
	String

	// Pickle keys are the gob encoding of the canonicalized argument tuple.
	// They are injective for any value the encoder can serialize.
	Pickle
)

func (v Variant) String() string {
	switch v {
	case Raw:
		return "raw"
	case Hash:
		return "hash"
	case String:
		return "string"
	case Pickle:
		return "pickle"
	default:
		return fmt.Sprintf("Variant(%d)", int(v))
	}
}

// A Key is the canonical representation of a call signature. Its zero value
// is not a valid key; use a [Map] to construct one.
//
// Every variant ultimately reduces to a comparable, byte-addressable string
// so that a Key can serve simultaneously as a Go map key (the Cache's
// in-memory index) and as an archive-ready byte string (the durable index),
// without a second encoding pass at the storage boundary.
type Key struct {
	variant Variant
	data    string
}

// Variant reports which variant produced k.
func (k Key) Variant() Variant { return k.variant }

// String returns the canonical textual form of k.
func (k Key) String() string { return k.data }

// Bytes returns the canonical byte form of k.
func (k Key) Bytes() []byte { return []byte(k.data) }

// IsZero reports whether k is the zero Key.
func (k Key) IsZero() bool { return k.data == "" && k.variant == Raw }

// Wrap constructs a Key directly from a variant and its canonical data,
// bypassing the normal Map.Key formation. It exists for archive wrappers
// (see archive/affixed) that need to transform an existing Key's data while
// preserving its variant tag.
func Wrap(variant Variant, data string) Key { return Key{variant: variant, data: data} }

// A Param describes one declared parameter of a function being memoized.
type Param struct {
	Name       string // parameter name, used for named-argument binding
	Default    any    // default value, used when HasDefault is true
	HasDefault bool   // whether Default should be used for a missing argument
	Variadic   bool   // whether this is the final, variadic parameter
}

// Params describes the declared signature of a memoized function, in
// declaration order. It is the [SignatureBinder] capability: given a call's
// positional and named arguments, it supplies enough information to
// reconstruct the full, canonical argument vector.
type Params struct {
	Positional []Param
}

// A Call captures one invocation's actual arguments, split the way a caller
// supplied them: as positional arguments, and as named (keyword) arguments.
type Call struct {
	Pos   []any
	Named map[string]any
}

// ErrNotComparable is returned by the Raw variant when an argument (or a
// value nested within one) is a slice, map, or function and so cannot
// participate in Go's built-in equality, and hence cannot be used as a map
// key. [Safe] catches this error and falls back to its alternate Map. The
// safe decorator (see [memo.WrapSafe]) instead catches it to bypass the
// cache for that call, invoking the underlying function directly.
var ErrNotComparable = errors.New("argument is not comparable")

// ErrMissingArgument is returned when binding a call against Params finds a
// required parameter with neither a supplied value nor a default.
var ErrMissingArgument = errors.New("missing required argument")

// A Map converts a call against a known signature into a canonical Key.
// Implementations must be pure: the same (Params, Call) pair, modulo the
// equivalence relation the Map's canonicalization defines, must always yield
// a byte-identical Key.
type Map interface {
	Key(ctx context.Context, params Params, call Call) (Key, error)
}

// Config carries the canonicalization policy shared by every keymap variant.
type Config struct {
	// Typed, if true, retains a type discriminant alongside each argument, so
	// that e.g. 1 (int) and 1.0 (float64) map to distinct keys. If false, the
	// discriminant is dropped and both map to the same key.
	Typed bool

	// Flat, if true, merges positional and named parameters into one ordered
	// sequence by declaration order. If false, the canonical form keeps
	// positionally-supplied and named-supplied arguments as two separate
	// groups, the second sorted by name.
	Flat bool

	// Ignore lists parameter names to drop before key formation, e.g. to mask
	// a "verbose" flag that should not affect caching.
	Ignore []string
}

func (c Config) ignores(name string) bool {
	for _, n := range c.Ignore {
		if n == name {
			return true
		}
	}
	return false
}

// mapFunc adapts a plain function to the Map interface.
type mapFunc struct {
	variant Variant
	cfg     Config
}

// NewRaw constructs a Map using the Raw variant.
func NewRaw(cfg Config) Map { return mapFunc{variant: Raw, cfg: cfg} }

// NewHash constructs a Map using the Hash variant.
func NewHash(cfg Config) Map { return mapFunc{variant: Hash, cfg: cfg} }

// NewString constructs a Map using the String variant.
func NewString(cfg Config) Map { return mapFunc{variant: String, cfg: cfg} }

// NewPickle constructs a Map using the Pickle variant.
func NewPickle(cfg Config) Map { return mapFunc{variant: Pickle, cfg: cfg} }

func (m mapFunc) Key(_ context.Context, params Params, call Call) (Key, error) {
	canon, err := canonicalize(params, call, m.cfg)
	if err != nil {
		return Key{}, err
	}
	switch m.variant {
	case Raw:
		return rawKey(canon)
	case Hash:
		fp, err := encoder.Fingerprint(canon)
		if err != nil {
			return Key{}, err
		}
		return Key{variant: Hash, data: string(fp[:])}, nil
	case String:
		s, err := encoder.Stringify(canon)
		if err != nil {
			return Key{}, err
		}
		return Key{variant: String, data: s}, nil
	case Pickle:
		enc, err := encoder.Encode(canon)
		if err != nil {
			return Key{}, err
		}
		return Key{variant: Pickle, data: string(enc)}, nil
	default:
		return Key{}, fmt.Errorf("keymap: unknown variant %d", m.variant)
	}
}

// Compose returns a Map that first forms a Key using first, then treats that
// Key's byte form as a single canonical positional argument fed to second.
// The canonical use is Compose(NewRaw(cfg), NewHash(Config{})): canonicalize
// the call once under cfg, then digest the result.
func Compose(first, second Map) Map { return composed{first, second} }

type composed struct{ first, second Map }

func (c composed) Key(ctx context.Context, params Params, call Call) (Key, error) {
	k1, err := c.first.Key(ctx, params, call)
	if err != nil {
		return Key{}, err
	}
	return c.second.Key(ctx, Params{}, Call{Pos: []any{k1.Bytes()}})
}

// sortedNames returns the keys of m in sorted order.
func sortedNames(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
