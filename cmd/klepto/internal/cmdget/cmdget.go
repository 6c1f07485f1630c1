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

package cmdget

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/creachadair/command"
	"github.com/creachadair/klepto/archive"
	"github.com/creachadair/klepto/cmd/klepto/config"
	"github.com/creachadair/klepto/keymap"
)

var Command = &command.C{
	Name:  "get",
	Usage: "<argument>...",
	Help: `Fetch the value stored for the key derived from the given arguments.

The arguments are treated as a call's positional arguments, reduced to a key
the same way the configured keymap variant would reduce them for a decorated
function.`,

	Run: func(env *command.Env, args []string) error {
		if len(args) == 0 {
			return errors.New("at least one argument is required")
		}
		cfg := env.Config.(*config.Settings)
		km, err := cfg.Keymap()
		if err != nil {
			return err
		}
		arc, err := cfg.OpenArchive(cfg.Context)
		if err != nil {
			return err
		}
		defer arc.Close(cfg.Context)

		pos := make([]any, len(args))
		for i, a := range args {
			pos[i] = a
		}
		key, err := km.Key(cfg.Context, keymap.Params{}, keymap.Call{Pos: pos})
		if err != nil {
			return fmt.Errorf("computing key: %w", err)
		}
		v, err := arc.Get(cfg.Context, key)
		if err != nil {
			if archive.IsNotFound(err) {
				return fmt.Errorf("key %s: not found", key)
			}
			return err
		}
		if utf8.Valid(v) {
			fmt.Println(string(v))
		} else {
			fmt.Printf("%x\n", v)
		}
		return nil
	},
}
