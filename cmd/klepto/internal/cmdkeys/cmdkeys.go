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

package cmdkeys

import (
	"fmt"
	"sort"

	"github.com/creachadair/command"
	"github.com/creachadair/klepto/cmd/klepto/config"
)

var Command = &command.C{
	Name: "keys",
	Help: "List the keys present in the configured archive, one per line.",

	Run: func(env *command.Env, args []string) error {
		cfg := env.Config.(*config.Settings)
		arc, err := cfg.OpenArchive(cfg.Context)
		if err != nil {
			return err
		}
		defer arc.Close(cfg.Context)

		keys, err := arc.Keys(cfg.Context)
		if err != nil {
			return err
		}
		list := keys.Slice()
		sort.Strings(list)
		for _, k := range list {
			fmt.Println(k)
		}
		return nil
	},
}
