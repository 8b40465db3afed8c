package pgdb

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"

	"code.rereg.org/golang/pkg/linkstore"
	"code.rereg.org/golang/pkg/linkstore/linkstoretest"
)

// tests run against the database referenced by REREG_TEST_DSN, eg
// "host=localhost port=25432 database=reregdb user=postgres password=notasecret sslmode=disable search_path=rereg_test,public"
const dsnEnv = "REREG_TEST_DSN"

func TestPing(t *testing.T) {
	ctx := context.Background()
	pgconn := newConn(ctx, t)
	err := pgconn.Ping(ctx)
	if nil != err {
		t.Fatalf("failed connection test, got error %v", err)
	}
}

func TestRecordStore(t *testing.T) {
	linkstoretest.Run(t, func(t *testing.T) linkstore.Store {
		return newRecordStore(context.Background(), t)
	})
}

func TestMigrateIdempotent(t *testing.T) {
	ctx := context.Background()
	pgconn := newConn(ctx, t)
	err := Migrate(ctx, pgconn, "rereg_test")
	if nil != err {
		t.Errorf("failed second Migrate, got error %v", err)
	}
}

var (
	migrateOnce sync.Once
	migrateErr  error
)

func newConn(ctx context.Context, t *testing.T) *pgx.Conn {
	dsn := os.Getenv(dsnEnv)
	if "" == dsn {
		t.Skipf("%s not set", dsnEnv)
	}
	pgconn, err := pgx.Connect(ctx, dsn)
	if nil != err {
		t.Fatalf("failed pgx.Connect, got error %v", err)
	}
	t.Cleanup(func() { pgconn.Close(ctx) })

	migrateOnce.Do(func() {
		migrateErr = Migrate(ctx, pgconn, "rereg_test")
	})
	if nil != migrateErr {
		t.Fatalf("failed rereg_test schema initialization, got error %v", migrateErr)
	}

	return pgconn
}

// newRecordStore returns a RecordStore that runs inside a transaction rolled back at test end.
func newRecordStore(ctx context.Context, t *testing.T) *RecordStore {
	pgconn := newConn(ctx, t)
	tx, err := pgconn.Begin(ctx)
	if nil != err {
		t.Fatalf("failed starting transaction, got error %v", err)
	}
	_, err = tx.Exec(ctx, "DELETE FROM link_record")
	if nil != err {
		t.Fatalf("failed tx initialization, got error %v", err)
	}
	t.Cleanup(func() {
		err := tx.Rollback(ctx)
		if nil != err {
			t.Logf("failed rolling back test transaction, got error %v", err)
		} else {
			t.Log("rolled back test transaction")
		}
	})

	return &RecordStore{DB: tx}
}
