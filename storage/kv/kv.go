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

// Package kv contains a generic interface for key-value databases with support
// for batch writes. All operations are safe for concurrent use, atomic and
// synchronously persistent.
//
// The auditor keeps its local state, the pending address changes and the
// outcome of the last self-audit, in such a database.
package kv

import "errors"

// DB is an abstract ordered key-value store. All operations are assumed to be
// synchronous, atomic and linearizable: after Put(k, v) has returned, and as
// long as no other Put(k, ?) happened, Get(k) MUST return v, even across a
// restart of the process. Write(...) performs a series of Put-s and Delete-s
// atomically.
type DB interface {
	Get(key []byte) ([]byte, error)
	Put(key, value []byte) error
	Delete(key []byte) error
	NewBatch() Batch
	Write(Batch) error
	NewIterator(*Range) Iterator
	Close() error

	ErrNotFound() error
}

// A Batch contains a sequence of Put-s waiting to be Write-n to a DB.
type Batch interface {
	Reset()
	Put(key, value []byte)
	Delete(key []byte)
}

// Iterator is an abstract pointer to a DB entry. It must be valid to call
// Error() after release. The boolean return values indicate whether the
// requested entry exists.
type Iterator interface {
	Key() []byte
	Value() []byte
	First() bool
	Next() bool
	Last() bool
	Release()
	Error() error
}

// Range is a key range. Start is included in the range, Limit is not;
// a nil Limit means no limit.
type Range struct {
	Start []byte
	Limit []byte
}

// IncrementKey returns the lexicographically first key which is greater
// than all keys prefixed by prefix, or nil when there is none.
func IncrementKey(prefix []byte) []byte {
	for i := len(prefix) - 1; i >= 0; i-- {
		if c := prefix[i]; c < 0xff {
			limit := make([]byte, i+1)
			copy(limit, prefix)
			limit[i] = c + 1
			return limit
		}
	}
	return nil
}

// BytesPrefix returns the range of the keys starting with prefix.
func BytesPrefix(prefix []byte) *Range {
	return &Range{Start: prefix, Limit: IncrementKey(prefix)}
}

// Key joins a domain identifier and the given parts into a key. Parts
// are separated by a zero byte, so that the key of one part is never a
// prefix of the key of a longer one.
func Key(identifier byte, parts ...string) []byte {
	n := 1
	for _, p := range parts {
		n += len(p) + 1
	}
	key := make([]byte, 0, n)
	key = append(key, identifier)
	for _, p := range parts {
		key = append(key, p...)
		key = append(key, 0)
	}
	return key
}

// ErrCorruptedValue is returned when a stored value cannot be decoded.
var ErrCorruptedValue = errors.New("[kv] Stored value is corrupted")
