// Package linkstoretest checks linkstore.Store implementations.
package linkstoretest

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"code.rereg.org/golang/pkg/linkstore"
)

// NewRecord returns a valid Record with random Message & SenderKey.
func NewRecord(sessionID int64) linkstore.Record {
	msg := make([]byte, 64)
	rand.Read(msg)
	key := make([]byte, 33)
	rand.Read(key)
	key[0] = 0x05
	address := uuid.NewString()
	return linkstore.Record{
		SessionID:       sessionID,
		Address:         address,
		ProvisioningURL: fmt.Sprintf("sgnl://rereg?uuid=%s&pub_key=BQ", address),
		Message:         msg,
		SenderKey:       key,
	}
}

// Run executes the Store test suite, newStore must return an empty Store.
func Run(t *testing.T, newStore func(t *testing.T) linkstore.Store) {
	t.Run("SaveLoad", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)
		rec := NewRecord(1)
		id, err := store.SaveRecord(ctx, rec)
		if nil != err {
			t.Fatalf("failed SaveRecord, got error %v", err)
		}
		if _, err = uuid.Parse(id); nil != err {
			t.Errorf("failed ID control, got %q", id)
		}

		var loaded linkstore.Record
		found, err := store.LoadRecord(ctx, id, &loaded)
		if nil != err {
			t.Fatalf("failed LoadRecord, got error %v", err)
		}
		if !found {
			t.Fatal("failed LoadRecord, record not found")
		}
		if id != loaded.ID || rec.SessionID != loaded.SessionID || rec.Address != loaded.Address || rec.ProvisioningURL != loaded.ProvisioningURL {
			t.Errorf("failed loaded record control, got %+v", loaded)
		}
		if !bytes.Equal(rec.Message, loaded.Message) || !bytes.Equal(rec.SenderKey, loaded.SenderKey) {
			t.Error("failed loaded record bytes control")
		}
		if loaded.CreatedAt.IsZero() || time.Since(loaded.CreatedAt) > time.Minute {
			t.Errorf("failed CreatedAt control, got %v", loaded.CreatedAt)
		}
	})

	t.Run("SaveKeepsID", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)
		rec := NewRecord(2)
		rec.ID = uuid.NewString()
		rec.CreatedAt = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
		id, err := store.SaveRecord(ctx, rec)
		if nil != err {
			t.Fatalf("failed SaveRecord, got error %v", err)
		}
		if rec.ID != id {
			t.Errorf("failed ID control, %q != %q", id, rec.ID)
		}

		// saving again replaces the Record
		rec.SessionID = 3
		if _, err = store.SaveRecord(ctx, rec); nil != err {
			t.Fatalf("failed second SaveRecord, got error %v", err)
		}
		if 1 != store.RecordCount(ctx) {
			t.Errorf("failed RecordCount control, got %d", store.RecordCount(ctx))
		}
		var loaded linkstore.Record
		if found, err := store.LoadRecord(ctx, id, &loaded); !found || nil != err {
			t.Fatalf("failed LoadRecord, got %v %v", found, err)
		}
		if 3 != loaded.SessionID {
			t.Errorf("failed SessionID control, got %d", loaded.SessionID)
		}
		if !rec.CreatedAt.Equal(loaded.CreatedAt) {
			t.Errorf("failed CreatedAt control, %v != %v", loaded.CreatedAt, rec.CreatedAt)
		}
	})

	t.Run("SaveInvalid", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)
		mutations := map[string]func(*linkstore.Record){
			"bad id":       func(r *linkstore.Record) { r.ID = "not-a-uuid" },
			"no address":   func(r *linkstore.Record) { r.Address = "" },
			"no url":       func(r *linkstore.Record) { r.ProvisioningURL = "" },
			"no message":   func(r *linkstore.Record) { r.Message = nil },
			"no senderkey": func(r *linkstore.Record) { r.SenderKey = nil },
		}
		for name, mutate := range mutations {
			rec := NewRecord(4)
			mutate(&rec)
			_, err := store.SaveRecord(ctx, rec)
			if !errors.Is(err, linkstore.ErrInvalidRecord) {
				t.Errorf("failed SaveRecord control for %s, got %v", name, err)
			}
		}
		if 0 != store.RecordCount(ctx) {
			t.Errorf("failed RecordCount control, got %d", store.RecordCount(ctx))
		}
	})

	t.Run("LoadMissing", func(t *testing.T) {
		store := newStore(t)
		var loaded linkstore.Record
		found, err := store.LoadRecord(context.Background(), uuid.NewString(), &loaded)
		if nil != err {
			t.Fatalf("failed LoadRecord, got error %v", err)
		}
		if found {
			t.Error("failed LoadRecord control, found a missing record")
		}
	})

	t.Run("ListRemove", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)
		ids := make([]string, 0, 5)
		for i := range 5 {
			id, err := store.SaveRecord(ctx, NewRecord(int64(10+i)))
			if nil != err {
				t.Fatalf("failed SaveRecord #%d, got error %v", i, err)
			}
			ids = append(ids, id)
		}
		if 5 != store.RecordCount(ctx) {
			t.Errorf("failed RecordCount control, got %d", store.RecordCount(ctx))
		}

		records, err := store.ListRecords(ctx, 3)
		if nil != err {
			t.Fatalf("failed ListRecords, got error %v", err)
		}
		if 3 != len(records) {
			t.Fatalf("failed ListRecords length control, got %d", len(records))
		}
		for i, rec := range records {
			if ids[4-i] != rec.ID {
				t.Errorf("failed ListRecords order control #%d, %s != %s", i, rec.ID, ids[4-i])
			}
		}

		removed, err := store.RemoveRecord(ctx, ids[4])
		if nil != err {
			t.Fatalf("failed RemoveRecord, got error %v", err)
		}
		if !removed {
			t.Error("failed RemoveRecord control, not removed")
		}
		removed, err = store.RemoveRecord(ctx, ids[4])
		if nil != err || removed {
			t.Errorf("failed second RemoveRecord control, got %v %v", removed, err)
		}

		records, err = store.ListRecords(ctx, 0)
		if nil != err {
			t.Fatalf("failed ListRecords, got error %v", err)
		}
		if 4 != len(records) || ids[3] != records[0].ID {
			t.Errorf("failed ListRecords control after removal, got %d records", len(records))
		}
	})
}
