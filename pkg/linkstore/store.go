// Package linkstore persists the outcome of completed linking sessions.
package linkstore

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Store interface {

	// SaveRecord saves rec in the Store and returns its ID.
	// A time ordered ID is assigned if rec.ID is empty.
	// It errors if rec is invalid or could not be saved.
	SaveRecord(ctx context.Context, rec Record) (string, error)

	// LoadRecord loads the Record with id ID into dst.
	// It returns true if the Record was found and successfully loaded.
	LoadRecord(ctx context.Context, id string, dst *Record) (bool, error)

	// ListRecords returns at most limit Records ordered by decreasing ID.
	// limit <= 0 means DefaultLimit.
	ListRecords(ctx context.Context, limit int) ([]Record, error)

	// RemoveRecord removes the Record with id ID from the Store.
	// It returns true if the Record was effectively removed.
	RemoveRecord(ctx context.Context, id string) (bool, error)

	// RecordCount returns the number of Record in the Store.
	// It returns -1 in case of error.
	RecordCount(ctx context.Context) int
}

const DefaultLimit = 16

// Record holds what a linking session obtained.
type Record struct {
	ID              string    `json:"id" cbor:"-"`
	SessionID       int64     `json:"sessionId" cbor:"1,keyasint"`
	Address         string    `json:"address" cbor:"2,keyasint"`
	ProvisioningURL string    `json:"provisioningUrl" cbor:"3,keyasint"`
	Message         []byte    `json:"message" cbor:"4,keyasint"`
	SenderKey       []byte    `json:"senderKey" cbor:"5,keyasint"`
	CreatedAt       time.Time `json:"createdAt" cbor:"6,keyasint"`
}

// Check returns an error if the Record is invalid.
func (self Record) Check() error {
	if "" != self.ID {
		if _, err := uuid.Parse(self.ID); nil != err {
			return newError(ErrInvalidRecord, "invalid ID %q", self.ID)
		}
	}
	if "" == self.Address {
		return newError(ErrInvalidRecord, "empty Address")
	}
	if "" == self.ProvisioningURL {
		return newError(ErrInvalidRecord, "empty ProvisioningURL")
	}
	if 0 == len(self.Message) {
		return newError(ErrInvalidRecord, "empty Message")
	}
	if 0 == len(self.SenderKey) {
		return newError(ErrInvalidRecord, "empty SenderKey")
	}
	return nil
}

// Prepare returns a copy of rec with ID & CreatedAt assigned if missing.
// IDs are uuid version 7 so that ordering by ID follows creation order.
func Prepare(rec Record) (Record, error) {
	if err := rec.Check(); nil != err {
		return rec, err
	}
	if "" == rec.ID {
		id, err := uuid.NewV7()
		if nil != err {
			return rec, wrapError(err, "failed generating record ID")
		}
		rec.ID = id.String()
	} else {
		rec.ID = strings.ToLower(rec.ID)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	rec.CreatedAt = rec.CreatedAt.UTC().Truncate(time.Microsecond)
	return rec, nil
}

// MemStore provides "in memory" implementation of Store.
type MemStore struct {
	mut     sync.Mutex
	records map[string]Record
}

func NewMemStore() *MemStore {
	return &MemStore{records: make(map[string]Record)}
}

// SaveRecord saves rec in the MemStore.
func (self *MemStore) SaveRecord(_ context.Context, rec Record) (string, error) {
	rec, err := Prepare(rec)
	if nil != err {
		return "", wrapError(err, "invalid record")
	}
	self.mut.Lock()
	defer self.mut.Unlock()
	self.records[rec.ID] = clone(rec)

	return rec.ID, nil
}

// LoadRecord loads the Record with id ID into dst.
func (self *MemStore) LoadRecord(_ context.Context, id string, dst *Record) (bool, error) {
	self.mut.Lock()
	defer self.mut.Unlock()
	rec, found := self.records[strings.ToLower(id)]
	if found {
		*dst = clone(rec)
	}
	return found, nil
}

// ListRecords returns at most limit Records ordered by decreasing ID.
func (self *MemStore) ListRecords(_ context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	self.mut.Lock()
	defer self.mut.Unlock()

	ids := make([]string, 0, len(self.records))
	for id := range self.records {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	slices.Reverse(ids)

	rv := make([]Record, 0, min(limit, len(ids)))
	for _, id := range ids[:min(limit, len(ids))] {
		rv = append(rv, clone(self.records[id]))
	}
	return rv, nil
}

// RemoveRecord removes the Record with id ID from the MemStore.
func (self *MemStore) RemoveRecord(_ context.Context, id string) (bool, error) {
	self.mut.Lock()
	defer self.mut.Unlock()
	id = strings.ToLower(id)
	_, found := self.records[id]
	delete(self.records, id)
	return found, nil
}

func (self *MemStore) RecordCount(_ context.Context) int {
	self.mut.Lock()
	defer self.mut.Unlock()
	return len(self.records)
}

func clone(rec Record) Record {
	rec.Message = slices.Clone(rec.Message)
	rec.SenderKey = slices.Clone(rec.SenderKey)
	return rec
}

var _ Store = &MemStore{}
