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

package cmdstat

import (
	"fmt"

	"github.com/creachadair/command"
	"github.com/creachadair/klepto/cmd/klepto/config"
)

var Command = &command.C{
	Name: "stat",
	Help: "Print the number of entries stored in the configured archive.",

	Run: func(env *command.Env, args []string) error {
		cfg := env.Config.(*config.Settings)
		arc, err := cfg.OpenArchive(cfg.Context)
		if err != nil {
			return err
		}
		defer arc.Close(cfg.Context)

		n, err := arc.Len(cfg.Context)
		if err != nil {
			return err
		}
		fmt.Printf("archive  %s\n", cfg.ArchiveAddress)
		fmt.Printf("entries  %d\n", n)
		return nil
	},
}
