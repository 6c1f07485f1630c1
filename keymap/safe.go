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

import "context"

// Safe wraps m so that if it fails to produce a Key, the call is retried
// with the String variant; if that also fails, ErrUnkeyable is reported so
// the caller can bypass the cache entirely rather than fail the call. This
// is a fallback at the keymap level: a call that succeeds under the String
// variant still gets memoized. [memo.WrapSafe] takes a stricter stance,
// bypassing the cache on any key-formation failure with no retry, since a
// retried call usually succeeds and so would undercount the failure.
func Safe(m Map, cfg Config) Map { return safeMap{base: m, fallback: NewString(cfg)} }

// ErrUnkeyable is returned by a Safe map when neither the wrapped variant nor
// the String fallback can form a Key for a call.
var ErrUnkeyable = &unkeyableError{}

type unkeyableError struct{ cause error }

func (e *unkeyableError) Error() string {
	if e.cause == nil {
		return "keymap: call is not keyable"
	}
	return "keymap: call is not keyable: " + e.cause.Error()
}

func (e *unkeyableError) Unwrap() error { return e.cause }

func (e *unkeyableError) Is(target error) bool {
	_, ok := target.(*unkeyableError)
	return ok
}

type safeMap struct {
	base     Map
	fallback Map
}

func (m safeMap) Key(ctx context.Context, params Params, call Call) (Key, error) {
	if k, err := m.base.Key(ctx, params, call); err == nil {
		return k, nil
	}
	if k, err := m.fallback.Key(ctx, params, call); err == nil {
		return k, nil
	} else {
		return Key{}, &unkeyableError{cause: err}
	}
}
