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

package dirblob

import (
	"cmp"
	"encoding/hex"
	"errors"
	"path"
	"strings"
)

// shardConfig controls how a key is rendered into a relative file path
// beneath a directory archive's root. Keys are hex-encoded and sharded by a
// short prefix so that a single directory never accumulates an unbounded
// number of entries, the same tradeoff storage/hexkey makes for the
// teacher's own directory-backed store.
type shardConfig struct {
	shard int // length of the shard prefix; <= 0 disables sharding
}

// errNotMine is reported by decode when a relative path does not look like
// one this package produced.
var errNotMine = errors.New("dirblob: path does not match the archive's naming scheme")

func (c shardConfig) encode(key string) string {
	tail := hex.EncodeToString([]byte(key))
	if c.shard <= 0 {
		return cmp.Or(tail, "-")
	}
	shard := tail
	if len(shard) > c.shard {
		shard = shard[:c.shard]
	}
	for len(shard) < c.shard {
		shard += "-"
	}
	return path.Join(shard, cmp.Or(tail, "-"))
}

func (c shardConfig) decode(relPath string) (string, error) {
	if c.shard <= 0 {
		key, err := hex.DecodeString(relPath)
		return string(key), err
	}
	pre, post, ok := strings.Cut(relPath, "/")
	if !ok || len(pre) != c.shard || post == "" {
		return "", errNotMine
	}
	if post == "-" {
		return "", nil
	}
	key, err := hex.DecodeString(post)
	return string(key), err
}
