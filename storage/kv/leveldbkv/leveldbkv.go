// Copyright 2014-2015 The Coname Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not
// use this file except in compliance with the License. You may obtain a copy of
// the License at
//
// 	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the
// License for the specific language governing permissions and limitations under
// the License.

// Package leveldbkv stores the auditor's local state in a leveldb
// database. Every write is synced to disk before it returns.
package leveldbkv

import (
	"fmt"

	"github.com/coniks-sys/coniks-selfaudit/storage/kv"
	"github.com/syndtr/goleveldb/leveldb"
	lerrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

var syncWrites = &opt.WriteOptions{Sync: true}

// DB is a kv.DB backed by leveldb.
type DB struct {
	ldb *leveldb.DB
}

var _ kv.DB = (*DB)(nil)

// OpenDB opens, or creates, the database at path. A database whose
// manifest is corrupted, for instance after a crash during compaction,
// is recovered from its table files. The caller closes the returned DB.
func OpenDB(path string) (*DB, error) {
	ldb, err := leveldb.OpenFile(path, nil)
	if lerrors.IsCorrupted(err) {
		ldb, err = leveldb.RecoverFile(path, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("[leveldbkv] Cannot open %s: %v", path, err)
	}
	return Wrap(ldb), nil
}

// Wrap returns a DB using ldb. Closing the DB closes ldb.
func Wrap(ldb *leveldb.DB) *DB {
	return &DB{ldb: ldb}
}

// Get returns the value of key, or ErrNotFound().
func (db *DB) Get(key []byte) ([]byte, error) {
	return db.ldb.Get(key, nil)
}

func (db *DB) Put(key, value []byte) error {
	return db.ldb.Put(key, value, syncWrites)
}

func (db *DB) Delete(key []byte) error {
	return db.ldb.Delete(key, syncWrites)
}

func (db *DB) NewBatch() kv.Batch {
	return new(leveldb.Batch)
}

// Write applies b atomically. b must come from NewBatch.
func (db *DB) Write(b kv.Batch) error {
	batch, ok := b.(*leveldb.Batch)
	if !ok {
		return fmt.Errorf("[leveldbkv] Cannot write a batch of type %T", b)
	}
	return db.ldb.Write(batch, syncWrites)
}

// NewIterator iterates over the keys in rg, or over every key if rg is
// nil.
func (db *DB) NewIterator(rg *kv.Range) kv.Iterator {
	var slice *util.Range
	if rg != nil {
		slice = &util.Range{Start: rg.Start, Limit: rg.Limit}
	}
	return db.ldb.NewIterator(slice, nil)
}

func (db *DB) Close() error {
	return db.ldb.Close()
}

func (db *DB) ErrNotFound() error {
	return leveldb.ErrNotFound
}
