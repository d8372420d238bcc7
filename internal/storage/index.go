package storage

import (
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
)

// Index maps namespace/id to the stored filename so local lookups can skip
// the directory scan. It is a cache: the filesystem stays authoritative.
type Index struct {
	db *badger.DB
}

// OpenIndex opens (or creates) a badger database at dir.
func OpenIndex(dir string) (*Index, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create index directory: %w", err)
	}

	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	return &Index{db: db}, nil
}

// Get returns the filename recorded for id in ns.
func (x *Index) Get(ns Namespace, id string) (string, bool, error) {
	var filename string
	err := x.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(indexKey(ns, id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			filename = string(val)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return filename, true, nil
}

// Put records filename for id in ns.
func (x *Index) Put(ns Namespace, id, filename string) error {
	return x.db.Update(func(txn *badger.Txn) error {
		return txn.Set(indexKey(ns, id), []byte(filename))
	})
}

// Delete drops the entry for id in ns. Missing entries are ignored.
func (x *Index) Delete(ns Namespace, id string) error {
	return x.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(indexKey(ns, id))
	})
}

// Close closes the database.
func (x *Index) Close() error {
	if x.db != nil {
		return x.db.Close()
	}
	return nil
}

func indexKey(ns Namespace, id string) []byte {
	return []byte(string(ns) + "/" + id)
}
