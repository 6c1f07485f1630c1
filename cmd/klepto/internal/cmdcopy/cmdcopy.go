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

package cmdcopy

import (
	"context"
	"errors"
	"fmt"

	"github.com/creachadair/command"
	"github.com/creachadair/klepto/archive"
	"github.com/creachadair/klepto/keymap"
)

var Command = &command.C{
	Name:  "copy",
	Usage: "<src-address> <dst-address>",
	Help: `Copy every entry from the archive at src-address into the archive at
dst-address, e.g. "klepto copy dir:///var/cache/old sqlite:///var/cache/new.db".

Both addresses are opened directly; the -archive flag and config file are
not consulted, since copy names two archives explicitly.`,

	Run: func(env *command.Env, args []string) error {
		if len(args) != 2 {
			return errors.New("exactly two archive addresses are required")
		}
		ctx := context.Background()
		src, err := archive.Open(ctx, args[0])
		if err != nil {
			return fmt.Errorf("opening source: %w", err)
		}
		defer src.Close(ctx)
		dst, err := archive.Open(ctx, args[1])
		if err != nil {
			return fmt.Errorf("opening destination: %w", err)
		}
		defer dst.Close(ctx)

		keys, err := src.Keys(ctx)
		if err != nil {
			return err
		}
		var n int
		for _, s := range keys.Slice() {
			k := keymap.Wrap(keymap.Raw, s)
			v, err := src.Get(ctx, k)
			if err != nil {
				return fmt.Errorf("reading %s: %w", k, err)
			}
			if err := dst.Put(ctx, k, v); err != nil {
				return fmt.Errorf("writing %s: %w", k, err)
			}
			n++
		}
		fmt.Printf("copied %d entries\n", n)
		return nil
	},
}
