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

package cmdkey

import (
	"fmt"

	"github.com/creachadair/command"
	"github.com/creachadair/klepto/cmd/klepto/config"
	"github.com/creachadair/klepto/keymap"
)

var Command = &command.C{
	Name:  "key",
	Usage: "<argument>...",
	Help: `Print the canonical key the configured keymap variant would derive
from a call with the given positional arguments, without touching any
archive. Useful for checking what a decorated function would cache a call
under before running it.`,

	Run: func(env *command.Env, args []string) error {
		cfg := env.Config.(*config.Settings)
		km, err := cfg.Keymap()
		if err != nil {
			return err
		}
		pos := make([]any, len(args))
		for i, a := range args {
			pos[i] = a
		}
		key, err := km.Key(cfg.Context, keymap.Params{}, keymap.Call{Pos: pos})
		if err != nil {
			return fmt.Errorf("computing key: %w", err)
		}
		fmt.Printf("variant  %s\n", key.Variant())
		fmt.Printf("key      %s\n", key)
		return nil
	},
}
