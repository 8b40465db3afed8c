// Package boltdb provides a persistent linkstore.Store that keeps data in a file.
package boltdb

import (
	"context"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	"code.rereg.org/golang/internal/transport"
	"code.rereg.org/golang/pkg/linkstore"
)

const (
	connectTimeout = 5 * time.Second
	recordBucket   = "recordTbl"
)

var srz transport.Serializer = transport.CBORSerializer{}

type recordStore struct {
	dbpath string
}

// New returns a linkstore.Store that persists Records in a single file boltdb database.
// It errors if the database schema can not be created.
func New(dbpath string) (linkstore.Store, error) {
	store := recordStore{dbpath: dbpath}

	db, err := store.open()
	if nil != err {
		return nil, err
	}
	defer db.Close()

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(recordBucket))
		return wrapError(err, "failed %s bucket creation", recordBucket)
	})
	if nil != err {
		return nil, wrapError(err, "failed db initialization")
	}

	return store, nil
}

func (self recordStore) open() (*bolt.DB, error) {
	db, err := bolt.Open(self.dbpath, 0600, &bolt.Options{Timeout: connectTimeout})
	if nil != err {
		return nil, wrapError(err, "failed connecting to database")
	}
	return db, nil
}

// SaveRecord saves rec in the recordStore and returns the assigned ID.
func (self recordStore) SaveRecord(_ context.Context, rec linkstore.Record) (string, error) {
	rec, err := linkstore.Prepare(rec)
	if nil != err {
		return "", wrapError(err, "record is invalid")
	}

	srzrec, err := srz.Marshal(rec)
	if nil != err {
		return "", wrapError(err, "failed cbor Marshal(rec)")
	}

	db, err := self.open()
	if nil != err {
		return "", err
	}
	defer db.Close()

	err = db.Update(func(tx *bolt.Tx) error {
		tbl, err := loadBucket(tx)
		if nil != err {
			return err
		}
		return wrapError(tbl.Put([]byte(rec.ID), srzrec), "failed storing record in bucket")
	})
	if nil != err {
		return "", wrapError(err, "failed db.Update")
	}

	return rec.ID, nil
}

// LoadRecord loads the Record with id ID into dst.
// It returns true if the Record was found and successfully loaded.
func (self recordStore) LoadRecord(_ context.Context, id string, dst *linkstore.Record) (bool, error) {
	db, err := self.open()
	if nil != err {
		return false, err
	}
	defer db.Close()

	var loaded bool
	err = db.View(func(tx *bolt.Tx) error {
		tbl, err := loadBucket(tx)
		if nil != err {
			return err
		}
		key := []byte(strings.ToLower(id))
		srzrec := tbl.Get(key)
		if nil == srzrec {
			return nil
		}
		if err = decode(key, srzrec, dst); nil != err {
			return err
		}
		loaded = true

		return nil
	})

	return loaded, wrapError(err, "failed db.View")
}

// ListRecords returns at most limit Records ordered by decreasing ID.
func (self recordStore) ListRecords(_ context.Context, limit int) ([]linkstore.Record, error) {
	if limit <= 0 {
		limit = linkstore.DefaultLimit
	}

	db, err := self.open()
	if nil != err {
		return nil, err
	}
	defer db.Close()

	records := make([]linkstore.Record, 0, 4)
	err = db.View(func(tx *bolt.Tx) error {
		tbl, err := loadBucket(tx)
		if nil != err {
			return err
		}
		c := tbl.Cursor()
		for k, v := c.Last(); k != nil && len(records) < limit; k, v = c.Prev() {
			var rec linkstore.Record
			if err = decode(k, v, &rec); nil != err {
				return err
			}
			records = append(records, rec)
		}
		return nil
	})

	return records, wrapError(err, "failed db.View")
}

// RemoveRecord removes the Record with id ID from the recordStore.
// It returns true if the Record was effectively removed.
func (self recordStore) RemoveRecord(_ context.Context, id string) (bool, error) {
	db, err := self.open()
	if nil != err {
		return false, err
	}
	defer db.Close()

	var removed bool
	err = db.Update(func(tx *bolt.Tx) error {
		tbl, err := loadBucket(tx)
		if nil != err {
			return err
		}
		key := []byte(strings.ToLower(id))
		if nil == tbl.Get(key) {
			return nil
		}
		if err = tbl.Delete(key); nil != err {
			return err
		}
		removed = true
		return nil
	})

	return removed, wrapError(err, "failed db.Update")
}

// RecordCount returns the number of Record in the recordStore.
func (self recordStore) RecordCount(_ context.Context) int {
	db, err := self.open()
	if nil != err {
		return -1
	}
	defer db.Close()

	var count int
	err = db.View(func(tx *bolt.Tx) error {
		tbl, err := loadBucket(tx)
		if nil != err {
			return err
		}
		count = tbl.Stats().KeyN
		return nil
	})
	if nil != err {
		return -1
	}

	return count
}

func loadBucket(tx *bolt.Tx) (*bolt.Bucket, error) {
	tbl := tx.Bucket([]byte(recordBucket))
	if nil == tbl {
		return nil, newError("missing %s bucket", recordBucket)
	}
	return tbl, nil
}

func decode(key []byte, srzrec []byte, dst *linkstore.Record) error {
	var rec linkstore.Record
	if err := srz.Unmarshal(srzrec, &rec); nil != err {
		return wrapError(err, "failed unmarshaling record")
	}
	rec.ID = string(key)
	*dst = rec
	return nil
}

var _ linkstore.Store = recordStore{}
