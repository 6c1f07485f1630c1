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

// Package encoder implements the serialization primitives shared by the
// keymap and archive packages: a deterministic byte encoding, a fixed-width
// fingerprint, and a stable textual form for arbitrary Go values.
//
// The encoder is the sole place floating-point NaN values are canonicalized:
// since NaN is never equal to itself, every NaN encountered here is rewritten
// to a single canonical bit pattern before it is encoded, hashed, or
// stringified, so that repeated calls with NaN arguments collapse to the same
// key.
package encoder

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"math"
	"reflect"

	"github.com/cespare/xxhash/v2"
)

// EncodingError reports that a value could not be serialized.
type EncodingError struct {
	Value any
	Err   error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encode %T: %v", e.Value, e.Err)
}

func (e *EncodingError) Unwrap() error { return e.Err }

// canonicalNaN is the bit pattern used to represent any NaN value, so that
// two calls made with distinct NaN payloads still produce identical keys.
const canonicalNaN = 0x7FF8000000000001

// Canonicalize rewrites v so that any NaN float32/float64 values it contains
// are replaced by a single canonical bit pattern. Composite values (slices,
// arrays, maps, structs, pointers) are walked recursively; everything else is
// returned unchanged. A struct with an unexported field cannot be rebuilt
// through reflection, so it is returned as it is, NaNs included.
func Canonicalize(v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	out := canonicalizeValue(rv)
	if !out.IsValid() {
		return v
	}
	return out.Interface()
}

func canonicalizeValue(rv reflect.Value) reflect.Value {
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) {
			nv := reflect.New(rv.Type()).Elem()
			nv.SetFloat(math.Float64frombits(canonicalNaN))
			return nv
		}
		return rv
	case reflect.Slice:
		if rv.IsNil() {
			return rv
		}
		out := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out.Index(i).Set(canonicalizeValue(rv.Index(i)))
		}
		return out
	case reflect.Array:
		out := reflect.New(rv.Type()).Elem()
		for i := 0; i < rv.Len(); i++ {
			out.Index(i).Set(canonicalizeValue(rv.Index(i)))
		}
		return out
	case reflect.Map:
		if rv.IsNil() {
			return rv
		}
		out := reflect.MakeMapWithSize(rv.Type(), rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), canonicalizeValue(iter.Value()))
		}
		return out
	case reflect.Struct:
		out := reflect.New(rv.Type()).Elem()
		for i := 0; i < rv.NumField(); i++ {
			if !out.Field(i).CanSet() {
				return rv // unexported field: the struct is left as it is
			}
			out.Field(i).Set(canonicalizeValue(rv.Field(i)))
		}
		return out
	case reflect.Ptr:
		if rv.IsNil() {
			return rv
		}
		out := reflect.New(rv.Type().Elem())
		out.Elem().Set(canonicalizeValue(rv.Elem()))
		return out
	case reflect.Interface:
		if rv.IsNil() {
			return rv
		}
		inner := canonicalizeValue(rv.Elem())
		out := reflect.New(rv.Type()).Elem()
		out.Set(inner)
		return out
	default:
		return rv
	}
}

// Encode produces a deterministic byte encoding of v, suitable for use as an
// archive value or as the body of a Pickle key. Encoding is based on
// encoding/gob; the caller must register any concrete types that will be
// encoded through an interface value, exactly as required by gob itself.
func Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(Canonicalize(v)); err != nil {
		return nil, &EncodingError{Value: v, Err: err}
	}
	return buf.Bytes(), nil
}

// Decode reverses Encode, populating out (which must be a non-nil pointer)
// with the decoded value.
func Decode(data []byte, out any) error {
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(out); err != nil {
		return &EncodingError{Value: out, Err: err}
	}
	return nil
}

// Fingerprint returns a fixed-width digest of v's canonical encoding. It is
// the basis of the Hash keymap variant.
func Fingerprint(v any) ([32]byte, error) {
	enc, err := Encode(v)
	if err != nil {
		return [32]byte{}, err
	}
	return fingerprintBytes(enc), nil
}

// fingerprintBytes folds xxhash digests of data into a 32-byte array. Four
// independent seeds (0 through 3), each contributing 8 bytes, are used
// rather than a single wide hash so the result is
// still computed with a small, fast non-cryptographic primitive, matching
// the class of hash the rest of the module uses for content addressing.
func fingerprintBytes(data []byte) [32]byte {
	var out [32]byte
	for i := 0; i < 4; i++ {
		d := xxhash.NewWithSeed(uint64(i))
		d.Write(data)
		sum := d.Sum64()
		for j := 0; j < 8; j++ {
			out[i*8+j] = byte(sum >> (8 * j))
		}
	}
	return out
}

// Stringify renders v as a stable, printable string. It is the basis of the
// String keymap variant and of the directory and SQL archive's debug output.
func Stringify(v any) (string, error) {
	// A value that cannot round-trip through gob is still acceptable for
	// stringification as long as fmt can render it; only reject values with
	// cyclic structure, which neither Canonicalize nor %#v would terminate on.
	if hasCycle(reflect.ValueOf(v), make(map[uintptr]bool)) {
		return "", &EncodingError{Value: v, Err: errCyclic}
	}
	return fmt.Sprintf("%#v", Canonicalize(v)), nil
}

var errCyclic = fmt.Errorf("value contains a reference cycle")

func hasCycle(rv reflect.Value, seen map[uintptr]bool) bool {
	if !rv.IsValid() {
		return false
	}
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice:
		if rv.IsNil() {
			return false
		}
		ptr := rv.Pointer()
		if seen[ptr] {
			return true
		}
		seen[ptr] = true
		defer delete(seen, ptr) // seen holds the current path only, so shared references are not cycles
	}
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return false
		}
		return hasCycle(rv.Elem(), seen)
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			if hasCycle(rv.Index(i), seen) {
				return true
			}
		}
	case reflect.Map:
		iter := rv.MapRange()
		for iter.Next() {
			if hasCycle(iter.Value(), seen) {
				return true
			}
		}
	case reflect.Struct:
		for i := 0; i < rv.NumField(); i++ {
			if rv.Field(i).CanInterface() && hasCycle(rv.Field(i), seen) {
				return true
			}
		}
	}
	return false
}
