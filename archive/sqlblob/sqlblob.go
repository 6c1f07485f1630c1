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

// Package sqlblob implements the archive.Archive interface over a
// two-column SQL table (key, value), reached through database/sql. The SQL
// dialect is treated as an opaque collaborator, per the specification this
// module implements; the reference driver wired in by this package's tests
// is github.com/mattn/go-sqlite3, the SQL driver carried into this module
// from the retrieval pack's goliatone-go-repository-cache example (the
// teacher library itself has no SQL-backed store).
//
// Two constructors are provided: New, which uses the single table its caller
// names within a *sql.DB, and NewMultiTable, which gives each
// named Archive instance its own table within the database -- the "SQL
// multi-table" backend of the specification, letting several decorated
// functions share one database file without colliding.
package sqlblob

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	"github.com/creachadair/klepto/archive"
	"github.com/creachadair/klepto/keymap"
	"github.com/creachadair/mds/mapset"

	_ "github.com/mattn/go-sqlite3" // reference driver for archive.Open("sqlite://...")
)

// Archive implements archive.Archive over a single SQL table.
type Archive struct {
	db    *sql.DB
	table string
	owned bool // whether Close should close db
}

var validTable = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// New constructs an Archive backed by table within db. The table is created
// if it does not already exist. New will panic if table is not a valid SQL
// identifier, to avoid building an injectable query string.
func New(db *sql.DB, table string) (*Archive, error) {
	if !validTable.MatchString(table) {
		panic("sqlblob: invalid table name " + table)
	}
	a := &Archive{db: db, table: table}
	_, err := db.Exec(fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %s (k TEXT PRIMARY KEY, v BLOB)`, table))
	if err != nil {
		return nil, fmt.Errorf("sqlblob: create table: %w", err)
	}
	return a, nil
}

// NewMultiTable constructs an Archive within db whose table is named after
// name, so that several Archives created against the same database do not
// collide. The table name is derived from name by replacing every
// non-identifier byte with "_".
func NewMultiTable(db *sql.DB, name string) (*Archive, error) {
	return New(db, sanitizeTableName(name))
}

func sanitizeTableName(name string) string {
	out := []byte(name)
	for i, b := range out {
		if !(b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')) {
			out[i] = '_'
		}
	}
	if len(out) == 0 || (out[0] >= '0' && out[0] <= '9') {
		out = append([]byte{'t', '_'}, out...)
	}
	return string(out)
}

// Open opens addr (a database/sql data source name for the sqlite3 driver)
// and returns a single-table Archive named "klepto".
func Open(addr string) (*Archive, error) {
	db, err := sql.Open("sqlite3", addr)
	if err != nil {
		return nil, err
	}
	a, err := New(db, "klepto")
	if err != nil {
		db.Close()
		return nil, err
	}
	a.owned = true
	return a, nil
}

// Opener constructs a sqlite-backed Archive from an address comprising a
// data source name, for use with archive.Open.
func Opener(_ context.Context, addr string) (archive.Archive, error) { return Open(addr) }

func init() { archive.Register("sqlite", Opener) }

// Get implements archive.Archive.
func (a *Archive) Get(ctx context.Context, key keymap.Key) ([]byte, error) {
	row := a.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT v FROM %s WHERE k = ?`, a.table), key.String())
	var v []byte
	if err := row.Scan(&v); err != nil {
		if err == sql.ErrNoRows {
			return nil, archive.NotFound(key)
		}
		return nil, archive.Wrap("get", key, err)
	}
	return v, nil
}

// Put implements archive.Archive.
func (a *Archive) Put(ctx context.Context, key keymap.Key, value []byte) error {
	_, err := a.db.ExecContext(ctx, fmt.Sprintf(
		`INSERT INTO %s (k, v) VALUES (?, ?) ON CONFLICT(k) DO UPDATE SET v = excluded.v`, a.table),
		key.String(), value)
	if err != nil {
		return archive.Wrap("put", key, err)
	}
	return nil
}

// Delete implements archive.Archive.
func (a *Archive) Delete(ctx context.Context, key keymap.Key) error {
	res, err := a.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE k = ?`, a.table), key.String())
	if err != nil {
		return archive.Wrap("delete", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return archive.Wrap("delete", key, err)
	}
	if n == 0 {
		return archive.NotFound(key)
	}
	return nil
}

// Contains implements archive.Archive.
func (a *Archive) Contains(ctx context.Context, key keymap.Key) (bool, error) {
	row := a.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT 1 FROM %s WHERE k = ?`, a.table), key.String())
	var one int
	if err := row.Scan(&one); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, archive.Wrap("contains", key, err)
	}
	return true, nil
}

// Keys implements archive.Archive.
func (a *Archive) Keys(ctx context.Context) (mapset.Set[string], error) {
	rows, err := a.db.QueryContext(ctx, fmt.Sprintf(`SELECT k FROM %s`, a.table))
	if err != nil {
		return nil, fmt.Errorf("sqlblob: keys: %w", err)
	}
	defer rows.Close()
	out := make(mapset.Set[string])
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("sqlblob: keys: %w", err)
		}
		out.Add(k)
	}
	return out, rows.Err()
}

// Len implements archive.Archive.
func (a *Archive) Len(ctx context.Context) (int, error) {
	row := a.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, a.table))
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlblob: len: %w", err)
	}
	return n, nil
}

// Close implements archive.Archive. It closes the underlying *sql.DB only if
// this Archive created it (via Open); Archives built with New or
// NewMultiTable over a caller-supplied *sql.DB leave it open, since the
// caller may share that handle across several Archives.
func (a *Archive) Close(context.Context) error {
	if a.owned {
		return a.db.Close()
	}
	return nil
}
