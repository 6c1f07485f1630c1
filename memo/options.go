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

package memo

import (
	"github.com/creachadair/klepto/archive"
	"github.com/creachadair/klepto/keymap"
	"github.com/creachadair/klepto/memo/cache"
)

type config[T any] struct {
	capacity int
	policy   cache.Policy
	arc      archive.Archive
	km       keymap.Map
	variant  keymap.Variant
	params   keymap.Params
	codec    cache.Codec[T]
}

func defaultConfig[T any]() config[T] {
	return config[T]{
		capacity: cache.Unbounded,
		policy:   cache.INF,
		km:       keymap.NewRaw(keymap.Config{}),
		variant:  keymap.Raw,
		codec:    cache.GobCodec[T]{},
	}
}

// An Option configures a decorated function at Wrap time.
type Option[T any] func(*config[T])

// WithCapacity sets the Cache's capacity. The default is [cache.Unbounded].
func WithCapacity[T any](n int) Option[T] { return func(c *config[T]) { c.capacity = n } }

// WithPolicy sets the Cache's eviction policy. The default is [cache.INF].
func WithPolicy[T any](p cache.Policy) Option[T] { return func(c *config[T]) { c.policy = p } }

// WithArchive attaches a durable archive to the decorated function's Cache.
// Without this option, results are never demoted: memory is all there is.
func WithArchive[T any](a archive.Archive) Option[T] { return func(c *config[T]) { c.arc = a } }

// WithKeymap overrides the Map used to reduce a call's arguments to a Key.
// variant must match the Variant the Map produces, so that Load can
// reconstruct Keys from the archive's plain key strings. The default is
// keymap.NewRaw(keymap.Config{}).
func WithKeymap[T any](m keymap.Map, variant keymap.Variant) Option[T] {
	return func(c *config[T]) { c.km, c.variant = m, variant }
}

// WithParams supplies the decorated function's declared signature, so that
// calls using named arguments, defaults, or a variadic tail are bound
// correctly before key formation. Without this option, arguments are taken
// exactly as supplied with no binding against declared parameters.
func WithParams[T any](p keymap.Params) Option[T] { return func(c *config[T]) { c.params = p } }

// WithCodec overrides how results are translated to and from the byte
// strings the archive stores. The default is [cache.GobCodec].
func WithCodec[T any](codec cache.Codec[T]) Option[T] { return func(c *config[T]) { c.codec = codec } }
