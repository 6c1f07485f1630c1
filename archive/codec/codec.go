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

// Package codec implements an archive.Archive wrapper that applies a
// reversible encoding -- compression or encryption -- to values before they
// reach the underlying archive, mirroring storage/encoded in the teacher
// library. Two codecs are provided: Zlib, grounded on storage/codecs/zlib,
// and AEAD, grounded on blob/codecs/encrypted (generalized from the
// teacher's CTR-mode block cipher to an authenticated construction, since an
// archive codec should not silently accept tampered ciphertext; the snappy
// pre-compression step is kept as-is from that same file).
package codec

import (
	"bytes"
	"compress/zlib"
	"context"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/creachadair/klepto/archive"
	"github.com/creachadair/klepto/keymap"
	"github.com/creachadair/mds/mapset"
	"github.com/golang/snappy"
	"golang.org/x/crypto/chacha20poly1305"
)

// A Codec reversibly transforms archive values, e.g. to compress or encrypt
// them at rest.
type Codec interface {
	Encode(plain []byte) ([]byte, error)
	Decode(coded []byte) ([]byte, error)
}

// Archive wraps a base archive.Archive so that every value is passed through
// a Codec on the way in and out. Keys are left untouched.
type Archive struct {
	base  archive.Archive
	codec Codec
}

// New constructs an Archive that encodes values with c before writing them to
// base, and decodes them on the way out. New panics if base or c is nil.
func New(base archive.Archive, c Codec) *Archive {
	if base == nil {
		panic("codec: base archive is nil")
	}
	if c == nil {
		panic("codec: codec is nil")
	}
	return &Archive{base: base, codec: c}
}

// Get implements archive.Archive.
func (a *Archive) Get(ctx context.Context, key keymap.Key) ([]byte, error) {
	coded, err := a.base.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	plain, err := a.codec.Decode(coded)
	if err != nil {
		return nil, archive.Wrap("decode", key, err)
	}
	return plain, nil
}

// Put implements archive.Archive.
func (a *Archive) Put(ctx context.Context, key keymap.Key, value []byte) error {
	coded, err := a.codec.Encode(value)
	if err != nil {
		return archive.Wrap("encode", key, err)
	}
	return a.base.Put(ctx, key, coded)
}

// Delete implements archive.Archive. It delegates directly to base.
func (a *Archive) Delete(ctx context.Context, key keymap.Key) error { return a.base.Delete(ctx, key) }

// Contains implements archive.Archive. It delegates directly to base.
func (a *Archive) Contains(ctx context.Context, key keymap.Key) (bool, error) {
	return a.base.Contains(ctx, key)
}

// Keys implements archive.Archive. It delegates directly to base.
func (a *Archive) Keys(ctx context.Context) (mapset.Set[string], error) { return a.base.Keys(ctx) }

// Len implements archive.Archive. It delegates directly to base.
func (a *Archive) Len(ctx context.Context) (int, error) { return a.base.Len(ctx) }

// Close implements archive.Archive. It delegates directly to base.
func (a *Archive) Close(ctx context.Context) error { return a.base.Close(ctx) }

// Zlib is a Codec that compresses values with zlib at the configured level.
type Zlib struct{ Level int }

// Encode implements Codec.
func (z Zlib) Encode(plain []byte) ([]byte, error) {
	var buf bytes.Buffer
	level := z.Level
	if level == 0 {
		level = zlib.DefaultCompression
	}
	w, err := zlib.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(plain); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode implements Codec.
func (Zlib) Decode(coded []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(coded))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// AEAD is a Codec that compresses values with snappy and then encrypts them
// with ChaCha20-Poly1305, prefixing each ciphertext with a fresh random
// nonce.
type AEAD struct {
	aead interface {
		Seal(dst, nonce, plaintext, additionalData []byte) []byte
		Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error)
		NonceSize() int
	}
}

// NewAEAD constructs an AEAD codec from a 32-byte key.
func NewAEAD(key []byte) (AEAD, error) {
	a, err := chacha20poly1305.New(key)
	if err != nil {
		return AEAD{}, fmt.Errorf("codec: new AEAD: %w", err)
	}
	return AEAD{aead: a}, nil
}

// Encode implements Codec.
func (c AEAD) Encode(plain []byte) ([]byte, error) {
	compressed := snappy.Encode(nil, plain)
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("codec: nonce: %w", err)
	}
	return c.aead.Seal(nonce, nonce, compressed, nil), nil
}

// Decode implements Codec.
func (c AEAD) Decode(coded []byte) ([]byte, error) {
	n := c.aead.NonceSize()
	if len(coded) < n {
		return nil, fmt.Errorf("codec: ciphertext too short")
	}
	compressed, err := c.aead.Open(nil, coded[:n], coded[n:], nil)
	if err != nil {
		return nil, err
	}
	return snappy.Decode(nil, compressed)
}
