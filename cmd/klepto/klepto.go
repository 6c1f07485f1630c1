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

// Program klepto inspects and manipulates the archives backing a klepto
// memoization cache: it lists and fetches keys, previews what key a literal
// argument list would derive under a keymap variant, and copies entries
// between two archive backends.
package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"

	"github.com/creachadair/command"
	"github.com/creachadair/klepto/cmd/klepto/config"

	// Subcommands.
	"github.com/creachadair/klepto/cmd/klepto/internal/cmdcopy"
	"github.com/creachadair/klepto/cmd/klepto/internal/cmdget"
	"github.com/creachadair/klepto/cmd/klepto/internal/cmdkey"
	"github.com/creachadair/klepto/cmd/klepto/internal/cmdkeys"
	"github.com/creachadair/klepto/cmd/klepto/internal/cmdput"
	"github.com/creachadair/klepto/cmd/klepto/internal/cmdstat"
)

var (
	configPath  = "$HOME/.config/klepto/config.yml"
	archiveAddr string
	variant     string
)

func main() {
	root := &command.C{
		Name: filepath.Base(os.Args[0]),
		Usage: `<command> [arguments]
help [<command>]`,
		Help: `A command-line tool to inspect and manipulate klepto archives.`,

		SetFlags: func(env *command.Env, fs *flag.FlagSet) {
			if cf, ok := os.LookupEnv("KLEPTO_CONFIG"); ok && cf != "" {
				configPath = cf
			}
			fs.StringVar(&configPath, "config", configPath, "Configuration file path")
			fs.StringVar(&archiveAddr, "archive", archiveAddr, "Archive address (overrides config), e.g. dir:///var/cache/klepto")
			fs.StringVar(&variant, "variant", variant, "Keymap variant: raw, hash, string, or pickle (overrides config)")
		},

		Init: func(env *command.Env) error {
			cfg, err := config.Load(os.ExpandEnv(configPath))
			if err != nil {
				return err
			}
			if archiveAddr != "" {
				cfg.ArchiveAddress = archiveAddr
			}
			if variant != "" {
				cfg.Variant = variant
			}
			cfg.Context = context.Background()
			env.Config = cfg
			return nil
		},

		Commands: []*command.C{
			cmdstat.Command,
			cmdkeys.Command,
			cmdget.Command,
			cmdput.Command,
			cmdkey.Command,
			cmdcopy.Command,
			command.HelpCommand(nil),
		},
	}
	command.RunOrFail(root.NewEnv(nil), os.Args[1:])
}
