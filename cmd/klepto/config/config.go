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

// Package config defines the configuration settings shared by the
// subcommands of the klepto command-line tool.
package config

import (
	"context"
	"fmt"
	"os"

	"github.com/creachadair/klepto/archive"
	_ "github.com/creachadair/klepto/archive/dataset"
	_ "github.com/creachadair/klepto/archive/dirblob"
	_ "github.com/creachadair/klepto/archive/fileblob"
	_ "github.com/creachadair/klepto/archive/memblob"
	_ "github.com/creachadair/klepto/archive/nullblob"
	_ "github.com/creachadair/klepto/archive/sqlblob"
	"github.com/creachadair/klepto/keymap"
	"gopkg.in/yaml.v3"
)

// Settings represents the stored configuration settings for the klepto tool.
type Settings struct {
	// Context value governing the execution of the tool.
	Context context.Context `json:"-" yaml:"-"`

	// The default archive address, e.g. "dir:///var/cache/klepto".
	// Overridden by the -archive flag.
	ArchiveAddress string `yaml:"archive-address"`

	// The default keymap variant used by the "key" subcommand: one of
	// "raw", "hash", "string", "pickle". Overridden by the -variant flag.
	Variant string `yaml:"variant"`
}

// OpenArchive connects to the archive address in the configuration. The
// caller is responsible for closing the archive when it is no longer
// needed.
func (s *Settings) OpenArchive(ctx context.Context) (archive.Archive, error) {
	if s.ArchiveAddress == "" {
		return nil, fmt.Errorf("no archive address")
	}
	return archive.Open(ctx, s.ArchiveAddress)
}

// ParseVariant maps the configured variant name to a keymap.Variant. The
// empty string means Raw.
func (s *Settings) ParseVariant() (keymap.Variant, error) {
	switch s.Variant {
	case "", "raw":
		return keymap.Raw, nil
	case "hash":
		return keymap.Hash, nil
	case "string":
		return keymap.String, nil
	case "pickle":
		return keymap.Pickle, nil
	default:
		return keymap.Raw, fmt.Errorf("unknown keymap variant %q", s.Variant)
	}
}

// Keymap returns the Map corresponding to the configured variant, unadorned
// by any Params (the CLI has no declared function signature to bind
// against, so every argument is taken as supplied).
func (s *Settings) Keymap() (keymap.Map, error) {
	v, err := s.ParseVariant()
	if err != nil {
		return nil, err
	}
	switch v {
	case keymap.Hash:
		return keymap.NewHash(keymap.Config{}), nil
	case keymap.String:
		return keymap.NewString(keymap.Config{}), nil
	case keymap.Pickle:
		return keymap.NewPickle(keymap.Config{}), nil
	default:
		return keymap.NewRaw(keymap.Config{}), nil
	}
}

// Load reads and parses the contents of a config file from path. If the
// specified path does not exist, an empty config is returned without error.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return new(Settings), nil
	} else if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	cfg := new(Settings)
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}
