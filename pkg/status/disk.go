package status

import (
	"encoding/json"
	"time"

	"go.etcd.io/bbolt"
)

var bucketEntries = []byte("codebase_status")

// diskShadow is the durable, disk-backed shadow of a Registry's in-memory
// state: written asynchronously after every transition, and read back
// once at process start to hydrate the in-memory map. It is never
// consulted for a live status read — see spec's race-fix rule in
// Registry.
type diskShadow struct {
	db *bbolt.DB
}

// openDiskShadow opens (creating if absent) a bbolt database at path.
func openDiskShadow(path string) (*diskShadow, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketEntries)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &diskShadow{db: db}, nil
}

// loadAll returns every persisted entry, keyed by canonical root.
func (d *diskShadow) loadAll() (map[string]CodebaseEntry, error) {
	entries := make(map[string]CodebaseEntry)
	err := d.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketEntries)
		return b.ForEach(func(k, v []byte) error {
			var entry CodebaseEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				return err
			}
			entries[string(k)] = entry
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// save persists entry under canonicalRoot. bbolt's own transaction commit
// (write-ahead via mmap + fsync) is what makes this crash-safe; no
// separate temp-file dance is needed here the way it is for the plain
// JSON snapshot file.
func (d *diskShadow) save(canonicalRoot string, entry CodebaseEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return d.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketEntries).Put([]byte(canonicalRoot), data)
	})
}

// delete removes canonicalRoot's persisted entry, if any.
func (d *diskShadow) delete(canonicalRoot string) error {
	return d.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketEntries).Delete([]byte(canonicalRoot))
	})
}

// Close closes the underlying database.
func (d *diskShadow) Close() error {
	return d.db.Close()
}
