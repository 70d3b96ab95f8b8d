package share

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

var badgerPrefix = []byte("share/")

// Badger stores records in an embedded Badger database.
type Badger struct {
	db *badger.DB
}

// OpenBadger opens (or creates) a database in dir. An empty dir keeps the
// database in memory.
func OpenBadger(dir string) (*Badger, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &Badger{db: db}, nil
}

func (b *Badger) Close() error { return b.db.Close() }

func badgerKey(id string) []byte {
	return append(append([]byte(nil), badgerPrefix...), id...)
}

func (b *Badger) Put(_ context.Context, rec Record) error {
	val, err := encodeRecord(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(badgerKey(rec.ID), val)
	})
}

func (b *Badger) Get(_ context.Context, id string) (Record, error) {
	var rec Record
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		rec, err = decodeRecord(val)
		return err
	})
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (b *Badger) Delete(_ context.Context, id string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(badgerKey(id))
	})
}

func (b *Badger) Sweep(_ context.Context, now time.Time) (int, error) {
	var expired [][]byte
	err := b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(badgerPrefix); it.ValidForPrefix(badgerPrefix); it.Next() {
			item := it.Item()
			var rec Record
			err := item.Value(func(val []byte) error {
				var err error
				rec, err = decodeRecord(val)
				return err
			})
			if err != nil {
				return err
			}
			if rec.ExpiresAt.Before(now) {
				expired = append(expired, item.KeyCopy(nil))
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if len(expired) == 0 {
		return 0, nil
	}
	err = b.db.Update(func(txn *badger.Txn) error {
		for _, k := range expired {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(expired), nil
}
