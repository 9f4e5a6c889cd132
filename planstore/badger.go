package planstore

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/chrontext/chrontext/pushdown"
)

// PersistentLog optionally persists recent pushdown_paths observations
// across process restarts (spec §6.7), keyed by query fingerprint.
// Grounded on the teacher's BadgerStore (datalog/storage/badger_store.go):
// one badger.DB, opened with its read-heavy performance options, storing
// small JSON-encoded values directly in the LSM tree.
//
// A PlannedQuery itself is never persisted: splitting and pushdown
// rewriting are pure, CPU-only tree walks over the query algebra (no I/O),
// so recomputing a cache miss is cheap — there is no latency win from
// deserializing a sealed algebra.Node tree back out of badger, only the
// complexity of gob-registering every Node/Expression/VQNode variant for
// no benefit. What *is* worth keeping across restarts is the observable
// history of which pushdown tags a query fingerprint achieved, for
// dashboards and postmortems.
type PersistentLog struct {
	db *badger.DB
}

// Entry is one persisted observation: the pushdown paths recorded the
// last time a query with this fingerprint ran, and when.
type Entry struct {
	PushdownPaths [][]pushdown.Tag `json:"pushdown_paths"`
	RecordedAt    time.Time        `json:"recorded_at"`
}

// OpenPersistentLog opens (creating if absent) a badger database at dir.
func OpenPersistentLog(dir string) (*PersistentLog, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	opts.MemTableSize = 64 << 20
	opts.ValueThreshold = 1 << 10 // plan-log entries are small; keep them in the LSM tree

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("planstore: failed to open badger: %w", err)
	}
	return &PersistentLog{db: db}, nil
}

// Close releases the underlying badger database.
func (l *PersistentLog) Close() error {
	return l.db.Close()
}

func logKey(k Key) []byte {
	return []byte("pushdown_paths/" + strconv.FormatUint(uint64(k.QueryFingerprint), 16) + "/" + strconv.FormatUint(uint64(k.ConfigFingerprint), 16))
}

// Record persists the pushdown paths observed for one query fingerprint.
func (l *PersistentLog) Record(key Key, paths [][]pushdown.Tag) error {
	entry := Entry{PushdownPaths: paths, RecordedAt: time.Now()}
	value, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("planstore: failed to encode entry: %w", err)
	}
	return l.db.Update(func(txn *badger.Txn) error {
		return txn.Set(logKey(key), value)
	})
}

// Lookup retrieves the last recorded pushdown paths for a query
// fingerprint, if any.
func (l *PersistentLog) Lookup(key Key) (Entry, bool, error) {
	var entry Entry
	found := false
	err := l.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(logKey(key))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
	})
	if err != nil {
		return Entry{}, false, fmt.Errorf("planstore: lookup failed: %w", err)
	}
	return entry, found, nil
}
