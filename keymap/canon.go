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

package keymap

import (
	"encoding/gob"
	"fmt"
	"math"
	"reflect"

	"github.com/creachadair/klepto/encoder"
)

// boundArg is one argument after binding against Params: its declared name
// (empty for excess variadic positions), its value, and whether the caller
// supplied it positionally (as opposed to by name or via a default).
type boundArg struct {
	name       string
	value      any
	positional bool
}

// typedValue wraps a value with its dynamic type, used when Config.Typed is
// set so that e.g. 1 and 1.0 canonicalize to distinct forms.
type typedValue struct {
	Type  string
	Value any
}

// typedValue travels through gob as an interface value in the Hash and
// Pickle variants, so gob must know it by name.
func init() { gob.Register(typedValue{}) }

// canonicalize binds call against params, applies the ignore list, and
// returns the ordered argument sequence the configured variant should
// encode. If params has no declared parameters, the call's positional
// arguments are used as given (and its named arguments, if any, are
// appended sorted by name) -- this is the path used internally by
// [Compose], whose second stage has no signature to bind against.
func canonicalize(params Params, call Call, cfg Config) ([]any, error) {
	var bound []boundArg
	if len(params.Positional) == 0 {
		bound = bindless(call)
	} else {
		var err error
		bound, err = bind(params, call)
		if err != nil {
			return nil, err
		}
	}

	kept := bound[:0:0]
	for _, b := range bound {
		if cfg.ignores(b.name) {
			continue
		}
		kept = append(kept, b)
	}

	if !cfg.Flat {
		kept = regroup(kept)
	}

	out := make([]any, len(kept))
	for i, b := range kept {
		v := encoder.Canonicalize(b.value)
		if cfg.Typed {
			v = typedValue{Type: fmt.Sprintf("%T", b.value), Value: v}
		} else if rv := reflect.ValueOf(v); rv.CanInt() {
			// Untyped: an integral number of any Go numeric type takes the
			// int64 form, so that e.g. 1 and 1.0 give the same key.
			v = rv.Int()
		} else if rv.CanUint() && rv.Uint() <= math.MaxInt64 {
			v = int64(rv.Uint())
		} else if rv.CanFloat() && rv.Float() == math.Trunc(rv.Float()) && math.Abs(rv.Float()) < 1<<63 {
			v = int64(rv.Float())
		}
		out[i] = v
	}
	return out, nil
}

// bind reconstructs the full, ordered argument vector for params given call,
// applying defaults and collapsing any trailing variadic parameter.
func bind(params Params, call Call) ([]boundArg, error) {
	out := make([]boundArg, 0, len(params.Positional))
	for i, p := range params.Positional {
		if p.Variadic {
			if i < len(call.Pos) {
				for _, v := range call.Pos[i:] {
					out = append(out, boundArg{name: p.Name, value: v, positional: true})
				}
			}
			continue
		}
		switch {
		case i < len(call.Pos):
			out = append(out, boundArg{name: p.Name, value: call.Pos[i], positional: true})
		case call.Named != nil:
			if v, ok := call.Named[p.Name]; ok {
				out = append(out, boundArg{name: p.Name, value: v})
				continue
			}
			fallthrough
		default:
			if p.HasDefault {
				out = append(out, boundArg{name: p.Name, value: p.Default})
			} else {
				return nil, fmt.Errorf("%w: %q", ErrMissingArgument, p.Name)
			}
		}
	}
	return out, nil
}

// bindless treats call's positional arguments as already canonical, and
// appends any named arguments sorted by name.
func bindless(call Call) []boundArg {
	out := make([]boundArg, 0, len(call.Pos)+len(call.Named))
	for _, v := range call.Pos {
		out = append(out, boundArg{value: v, positional: true})
	}
	for _, name := range sortedNames(call.Named) {
		out = append(out, boundArg{name: name, value: call.Named[name]})
	}
	return out
}

// regroup reorders bound so that positionally-supplied arguments come first
// in their original order, followed by named-supplied (or defaulted)
// arguments sorted by name. This implements the non-flat canonical form.
func regroup(bound []boundArg) []boundArg {
	var pos, named []boundArg
	for _, b := range bound {
		if b.positional {
			pos = append(pos, b)
		} else {
			named = append(named, b)
		}
	}
	byName := make(map[string]boundArg, len(named))
	for _, b := range named {
		byName[b.name] = b
	}
	out := make([]boundArg, 0, len(bound))
	out = append(out, pos...)
	for _, n := range sortNames(byName) {
		out = append(out, byName[n])
	}
	return out
}

func sortNames(m map[string]boundArg) []string {
	names := make(map[string]any, len(m))
	for k := range m {
		names[k] = nil
	}
	return sortedNames(names)
}

// rawKey builds a Key for the Raw variant. It requires every element of
// canon to be comparable (directly usable as a Go map key); if not, it
// reports ErrNotComparable, which [Safe] answers by falling back to String.
func rawKey(canon []any) (Key, error) {
	for _, v := range canon {
		if !isComparable(reflect.ValueOf(v)) {
			return Key{}, ErrNotComparable
		}
	}
	s, err := encoder.Stringify(canon)
	if err != nil {
		return Key{}, err
	}
	return Key{variant: Raw, data: s}, nil
}

func isComparable(rv reflect.Value) bool {
	if !rv.IsValid() {
		return true // nil
	}
	switch rv.Kind() {
	case reflect.Slice, reflect.Func, reflect.Map:
		return false
	case reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			if !isComparable(rv.Index(i)) {
				return false
			}
		}
		return true
	case reflect.Struct:
		for i := 0; i < rv.NumField(); i++ {
			if rv.Field(i).CanInterface() && !isComparable(rv.Field(i)) {
				return false
			}
		}
		return true
	case reflect.Ptr:
		return true // pointer identity is comparable regardless of pointee
	case reflect.Interface:
		if rv.IsNil() {
			return true
		}
		return isComparable(rv.Elem())
	default:
		return true
	}
}
