// Package pgdb provides a linkstore.Store that keeps data in a postgres database.
package pgdb

import (
	"context"
	_ "embed"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"code.rereg.org/golang/pkg/linkstore"
)

// PGDB is implemented by pgx.Tx, pgx.Conn & pgxpool.Pool
// accessing a postgres database through this common interface simplifies testing
type PGDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type RecordStore struct {
	DB PGDB
}

//go:embed linkstore_schema.sql
var schemaScriptTpl string

// Migrate creates the link_record table in the dbschema schema.
func Migrate(ctx context.Context, db PGDB, dbschema string) error {
	schemaName := pgx.Identifier{dbschema}.Sanitize()
	schemaScript := strings.ReplaceAll(schemaScriptTpl, "${schema_name}", schemaName)

	_, err := db.Exec(ctx, schemaScript)

	return wrapError(err, "failed db schema initialization") // nil if err is nil...
}

// New returns a RecordStore backed by a pgxpool.Pool connected to dsn.
// If dbschema is not empty, it is placed first in the connections search_path.
func New(ctx context.Context, dsn string, dbschema string) (*RecordStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if nil != err {
		return nil, wrapError(err, "invalid dsn")
	}
	if "" != dbschema {
		cfg.ConnConfig.RuntimeParams["search_path"] = dbschema + ",public"
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if nil != err {
		return nil, wrapError(err, "failed connection pool creation")
	}

	return &RecordStore{DB: pool}, nil
}

// SaveRecord saves rec into the RecordStore, an existing Record with same ID is replaced.
func (self *RecordStore) SaveRecord(ctx context.Context, rec linkstore.Record) (string, error) {
	rec, err := linkstore.Prepare(rec)
	if nil != err {
		return "", wrapError(err, "invalid record")
	}
	_, err = self.DB.Exec(
		ctx,
		`INSERT INTO link_record(id, session_id, address, provisioning_url, message, sender_key, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO UPDATE SET
		 session_id = EXCLUDED.session_id,
		 address = EXCLUDED.address,
		 provisioning_url = EXCLUDED.provisioning_url,
		 message = EXCLUDED.message,
		 sender_key = EXCLUDED.sender_key,
		 created_at = EXCLUDED.created_at`,
		rec.ID,
		rec.SessionID,
		rec.Address,
		rec.ProvisioningURL,
		rec.Message,
		rec.SenderKey,
		rec.CreatedAt,
	)
	if nil != err {
		return "", wrapError(err, "failed saving record")
	}

	return rec.ID, nil
}

const selectRecord = `SELECT
   id as "ID",
   session_id as "SessionID",
   address as "Address",
   provisioning_url as "ProvisioningURL",
   message as "Message",
   sender_key as "SenderKey",
   created_at as "CreatedAt"
 FROM
   link_record
`

// LoadRecord loads the Record with id ID into dst.
func (self *RecordStore) LoadRecord(ctx context.Context, id string, dst *linkstore.Record) (bool, error) {
	rows, err := self.DB.Query(ctx, selectRecord+" WHERE id = $1", strings.ToLower(id))
	if nil != err {
		return false, wrapError(err, "failed DB.Query")
	}
	rec, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[linkstore.Record])
	if nil != err {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, wrapError(err, "failed loading record")
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	*dst = rec

	return true, nil
}

// ListRecords returns at most limit Records ordered by decreasing ID.
func (self *RecordStore) ListRecords(ctx context.Context, limit int) ([]linkstore.Record, error) {
	if limit <= 0 {
		limit = linkstore.DefaultLimit
	}
	rows, err := self.DB.Query(ctx, selectRecord+" ORDER BY id DESC LIMIT $1", limit)
	if nil != err {
		return nil, wrapError(err, "failed DB.Query")
	}
	records, err := pgx.CollectRows(rows, pgx.RowToStructByName[linkstore.Record])
	for i := range records {
		records[i].CreatedAt = records[i].CreatedAt.UTC()
	}

	return records, wrapError(err, "failed pgx.CollectRows") // nil if err is nil
}

// RemoveRecord removes the Record with id ID from the RecordStore.
func (self *RecordStore) RemoveRecord(ctx context.Context, id string) (bool, error) {
	var deleted int
	row := self.DB.QueryRow(
		ctx,
		`WITH deleted AS (DELETE FROM link_record WHERE id = $1 RETURNING id)
		 SELECT count(id) FROM deleted`,
		strings.ToLower(id),
	)
	err := row.Scan(&deleted)
	if nil != err {
		return false, wrapError(err, "failed DELETE query")
	}

	return deleted > 0, nil
}

// RecordCount returns the number of Record in the RecordStore.
func (self *RecordStore) RecordCount(ctx context.Context) int {
	var count int
	err := self.DB.QueryRow(ctx, `SELECT count(*) FROM link_record`).Scan(&count)
	if nil != err {
		return -1
	}
	return count
}

var _ linkstore.Store = &RecordStore{}
