package linkstore_test

import (
	"context"
	"errors"
	"testing"

	"code.rereg.org/golang/pkg/linkstore"
	"code.rereg.org/golang/pkg/linkstore/linkstoretest"
)

func TestMemStore(t *testing.T) {
	linkstoretest.Run(t, func(t *testing.T) linkstore.Store {
		return linkstore.NewMemStore()
	})
}

func TestMemStoreCopies(t *testing.T) {
	ctx := context.Background()
	store := linkstore.NewMemStore()
	rec := linkstoretest.NewRecord(1)
	id, err := store.SaveRecord(ctx, rec)
	if nil != err {
		t.Fatalf("failed SaveRecord, got error %v", err)
	}
	rec.Message[0] ^= 0xFF

	var loaded linkstore.Record
	if found, err := store.LoadRecord(ctx, id, &loaded); !found || nil != err {
		t.Fatalf("failed LoadRecord, got %v %v", found, err)
	}
	if loaded.Message[0] == rec.Message[0] {
		t.Error("failed copy control, stored Message was mutated")
	}
}

func TestPrepare(t *testing.T) {
	rec := linkstoretest.NewRecord(1)
	rec.ID = "0190A9B2-1C3D-7E4F-8A5B-6C7D8E9F0A1B"
	prepared, err := linkstore.Prepare(rec)
	if nil != err {
		t.Fatalf("failed Prepare, got error %v", err)
	}
	if "0190a9b2-1c3d-7e4f-8a5b-6c7d8e9f0a1b" != prepared.ID {
		t.Errorf("failed ID normalization control, got %s", prepared.ID)
	}
	if prepared.CreatedAt.IsZero() || "UTC" != prepared.CreatedAt.Location().String() {
		t.Errorf("failed CreatedAt control, got %v", prepared.CreatedAt)
	}

	rec.Address = ""
	_, err = linkstore.Prepare(rec)
	if !errors.Is(err, linkstore.ErrInvalidRecord) {
		t.Errorf("failed invalid record control, got %v", err)
	}
	if !errors.Is(err, linkstore.Error) {
		t.Errorf("failed error flag control, got %v", err)
	}
}
