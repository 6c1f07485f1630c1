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

// Package writeback implements an archive.Archive wrapper that buffers Put
// calls locally and pushes them to a slower base archive concurrently in the
// background, so that a Cache's Dump does not block on the base archive's
// I/O latency. Grounded on storage/wbstore in the teacher library, simplified
// to a single keyspace (wbstore supports many derived blob.KV instances
// sharing one background writer; an Archive has only one).
package writeback

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"time"

	"github.com/creachadair/klepto/archive"
	"github.com/creachadair/klepto/archive/memblob"
	"github.com/creachadair/klepto/keymap"
	"github.com/creachadair/mds/mapset"
	"github.com/creachadair/msync"
	"github.com/creachadair/msync/trigger"
	"github.com/creachadair/taskgroup"
)

var errWriterStopped = errors.New("writeback: background writer stopped")

// Archive wraps base so that Put writes land in a local in-memory buffer and
// are pushed to base by a background goroutine. Get and Contains consult the
// buffer first, so a value is visible immediately even before it reaches
// base. Construct one with New; call Close to stop the background writer.
type Archive struct {
	base    archive.Archive
	buf     *memblob.Archive
	variant keymap.Variant

	stop   context.CancelFunc
	exited chan struct{}
	err    error

	nempty   *msync.Flag[any]
	bufClean *trigger.Cond
}

// Option configures an Archive at construction time.
type Option func(*Archive)

// WithKeyVariant tells the background writer which Variant to reconstruct
// from the buffer's plain key strings. It must match the Variant used by
// whatever produces the Keys this Archive is given. The default is
// keymap.Raw.
func WithKeyVariant(v keymap.Variant) Option { return func(a *Archive) { a.variant = v } }

// New constructs a write-back wrapper over base. The background writer runs
// until ctx ends or the Archive is closed. New panics if base is nil.
func New(ctx context.Context, base archive.Archive, opts ...Option) *Archive {
	if base == nil {
		panic("writeback: base archive is nil")
	}
	ctx, cancel := context.WithCancel(ctx)
	a := &Archive{
		base:     base,
		buf:      memblob.New(),
		variant:  keymap.Raw,
		stop:     cancel,
		exited:   make(chan struct{}),
		nempty:   msync.NewFlag[any](),
		bufClean: trigger.New(),
	}
	for _, opt := range opts {
		opt(a)
	}
	g := taskgroup.Go(func() error { return a.run(ctx) })
	go func() {
		a.err = g.Wait()
		close(a.exited)
	}()
	return a
}

// Get implements archive.Archive, preferring an unflushed value in the
// local buffer over one already pushed to base.
func (a *Archive) Get(ctx context.Context, key keymap.Key) ([]byte, error) {
	if v, err := a.buf.Get(ctx, key); err == nil {
		return v, nil
	} else if !errors.Is(err, archive.ErrNotFound) {
		return nil, err
	}
	return a.base.Get(ctx, key)
}

// Put implements archive.Archive. The value is written to the local buffer
// and flushed to base asynchronously.
func (a *Archive) Put(ctx context.Context, key keymap.Key, value []byte) error {
	if err := a.buf.Put(ctx, key, value); err != nil {
		return err
	}
	a.nempty.Set(nil)
	return nil
}

// Delete implements archive.Archive, removing key from both the buffer and
// base so a pending writeback cannot resurrect a deleted value.
func (a *Archive) Delete(ctx context.Context, key keymap.Key) error {
	berr := a.buf.Delete(ctx, key)
	if berr != nil && !errors.Is(berr, archive.ErrNotFound) {
		return berr
	}
	aerr := a.base.Delete(ctx, key)
	if aerr != nil && !errors.Is(aerr, archive.ErrNotFound) {
		return aerr
	}
	if berr != nil && aerr != nil {
		return aerr // both missing: report base's not-found
	}
	return nil
}

// Contains implements archive.Archive.
func (a *Archive) Contains(ctx context.Context, key keymap.Key) (bool, error) {
	if ok, err := a.buf.Contains(ctx, key); err != nil {
		return false, err
	} else if ok {
		return true, nil
	}
	return a.base.Contains(ctx, key)
}

// Keys implements archive.Archive, as the union of the local buffer and base.
func (a *Archive) Keys(ctx context.Context) (mapset.Set[string], error) {
	bufKeys, err := a.buf.Keys(ctx)
	if err != nil {
		return nil, err
	}
	baseKeys, err := a.base.Keys(ctx)
	if err != nil {
		return nil, err
	}
	out := make(mapset.Set[string])
	for _, k := range bufKeys.Slice() {
		out.Add(k)
	}
	for _, k := range baseKeys.Slice() {
		out.Add(k)
	}
	return out, nil
}

// Len implements archive.Archive.
func (a *Archive) Len(ctx context.Context) (int, error) {
	keys, err := a.Keys(ctx)
	if err != nil {
		return 0, err
	}
	return keys.Len(), nil
}

// Close stops the background writer and closes base. It blocks until
// pending writes have been pushed or ctx ends.
func (a *Archive) Close(ctx context.Context) error {
	serr := a.Sync(ctx)
	a.stop()
	var werr error
	select {
	case <-ctx.Done():
		werr = ctx.Err()
	case <-a.exited:
		if a.err != errWriterStopped && a.err != context.Canceled {
			werr = a.err
		}
	}
	return errors.Join(serr, werr, a.base.Close(ctx))
}

// Sync blocks until the local buffer has been fully flushed to base, or ctx
// ends.
func (a *Archive) Sync(ctx context.Context) error {
	for {
		ready := a.bufClean.Ready()
		n, err := a.buf.Len(ctx)
		if err != nil {
			return err
		} else if n == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ready:
		}
	}
}

// run is the background writer. It wakes whenever the buffer becomes
// non-empty, pushes every buffered key to base, and signals Sync waiters.
func (a *Archive) run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return errWriterStopped
		case <-a.nempty.Ready():
		}

		keys, err := a.buf.Keys(ctx)
		if err != nil {
			log.Printf("writeback: error listing buffer: %v", err)
			continue
		}
		work := keys.Slice()
		rand.Shuffle(len(work), func(i, j int) { work[i], work[j] = work[j], work[i] })

		g, run := taskgroup.New(nil).Limit(16)
		for _, s := range work {
			k := keymap.Wrap(a.variant, s)
			run(func() error { return a.flush(ctx, k) })
		}
		if err := g.Wait(); err != nil {
			log.Printf("writeback: error flushing buffer: %v", err)
		}
		a.bufClean.Signal()
	}
}

// flush pushes one buffered key to base and removes it from the buffer. A
// key that disappeared from the buffer before flush got to it (because it
// was deleted concurrently) is not an error.
func (a *Archive) flush(ctx context.Context, key keymap.Key) error {
	v, err := a.buf.Get(ctx, key)
	if errors.Is(err, archive.ErrNotFound) {
		return nil
	} else if err != nil {
		return err
	}
	if err := a.base.Put(ctx, key, v); err != nil {
		return err
	}
	if err := a.buf.Delete(ctx, key); err != nil && !errors.Is(err, archive.ErrNotFound) {
		return err
	}
	return nil
}
