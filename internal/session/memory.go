package session

import (
	"sync"
)

const (
	numSlot = 16
)

type TimedKey interface {
	comparable
	Timed
}

type slot[K TimedKey, V any] struct {
	mut   sync.RWMutex
	t     int64
	store map[K]V
}

// MemStore is an in memory Store that automatically expires keys.
//
// Values are grouped in slots by key creation time, a slot is cleared
// when a key created numSlot steps later reuses it.
type MemStore[K TimedKey, V any] struct {
	KeyFacto KeyFactory[K]
	slots    [numSlot]slot[K, V]
}

// NewMemStore instantiates a new MemStore.
// It errors if kf is nil.
func NewMemStore[K TimedKey, V any](kf KeyFactory[K]) (*MemStore[K, V], error) {
	if nil == kf {
		return nil, newError(Error, "nil KeyFactory")
	}

	return &MemStore[K, V]{KeyFacto: kf}, nil
}

// Get returns the value indexed by key.
// The bool flag is true if the key exists in the MemStore.
func (self *MemStore[K, V]) Get(key K) (V, bool) {
	var v V
	var present bool

	if err := self.KeyFacto.Check(key); nil != err {
		return v, present
	}

	ts := key.T()
	slot := self.slot(ts)
	slot.mut.RLock()
	defer slot.mut.RUnlock()

	if ts == slot.t {
		v, present = slot.store[key]
	}

	return v, present
}

// Pop removes the key from the MemStore and returns the associated value.
// The bool flag is true if the key was found in the MemStore.
func (self *MemStore[K, V]) Pop(key K) (V, bool) {
	var v V
	var present bool

	if err := self.KeyFacto.Check(key); nil != err {
		return v, present
	}

	ts := key.T()
	slot := self.slot(ts)
	slot.mut.Lock()
	defer slot.mut.Unlock()

	if ts == slot.t {
		v, present = slot.store[key]
		delete(slot.store, key)
	}

	return v, present
}

// Set registers key, data in the MemStore.
// It errors if key is not valid.
func (self *MemStore[K, V]) Set(key K, data V) error {
	_, err := self.upsert(key, func(V, bool) (V, bool) { return data, true })
	return err
}

// GetOrSet returns the value indexed by key, if key is missing the value returned by create is registered.
// It errors if key is not valid.
func (self *MemStore[K, V]) GetOrSet(key K, create func() V) (V, error) {
	return self.upsert(key, func(cur V, found bool) (V, bool) {
		if found {
			return cur, false
		}
		return create(), true
	})
}

// Save registers data in the MemStore using a new key.
// Save returns the key indexing data.
func (self *MemStore[K, V]) Save(data V) (K, error) {
	key := self.KeyFacto.New()
	err := self.Set(key, data)
	return key, err
}

// upsert calls update with the current value of key under the slot lock,
// the returned value is stored if the bool flag is true.
func (self *MemStore[K, V]) upsert(key K, update func(V, bool) (V, bool)) (V, error) {
	var v V
	err := self.KeyFacto.Check(key)
	if nil != err {
		return v, wrapError(err, "invalid key")
	}

	ts := key.T()
	slot := self.slot(ts)
	slot.mut.Lock()
	defer slot.mut.Unlock()

	if ts != slot.t || nil == slot.store {
		// slot contains expired data
		slot.t = ts
		slot.store = make(map[K]V)
	}
	cur, found := slot.store[key]
	v, store := update(cur, found)
	if store {
		slot.store[key] = v
	}

	return v, nil
}

func (self *MemStore[K, V]) slot(ts int64) *slot[K, V] {
	return &(self.slots[ts%numSlot])
}
