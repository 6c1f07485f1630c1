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

package cmdput

import (
	"errors"
	"fmt"

	"github.com/creachadair/command"
	"github.com/creachadair/klepto/cmd/klepto/config"
	"github.com/creachadair/klepto/keymap"
)

var Command = &command.C{
	Name:  "put",
	Usage: "<value> <argument>...",
	Help: `Store value under the key derived from the given arguments.

The value is stored literally, as given on the command line; the arguments
are reduced to a key the same way cmdget computes one for the matching
lookup.`,

	Run: func(env *command.Env, args []string) error {
		if len(args) < 2 {
			return errors.New("a value and at least one argument are required")
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

		value, rest := args[0], args[1:]
		pos := make([]any, len(rest))
		for i, a := range rest {
			pos[i] = a
		}
		key, err := km.Key(cfg.Context, keymap.Params{}, keymap.Call{Pos: pos})
		if err != nil {
			return fmt.Errorf("computing key: %w", err)
		}
		if err := arc.Put(cfg.Context, key, []byte(value)); err != nil {
			return err
		}
		fmt.Println(key)
		return nil
	},
}
