// Package pgdb provides a credentials.DeviceStore that keeps data in a postgres database.
package pgdb

import (
	"context"
	_ "embed"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"code.linkpair.org/golang/pkg/credentials"
)

// PGDB is implemented by pgx.Tx, pgx.Conn & pgxpool.Pool
// accessing a postgres database through this common interface simplifies testing
type PGDB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Cfg holds the configuration of a DeviceStore.
type Cfg struct {
	DSN string

	// DeviceName selects the device row, a database may hold several devices.
	DeviceName string
}

// Check returns an error if the Cfg is invalid.
func (self Cfg) Check() error {
	if "" == self.DSN {
		return newError("empty DSN")
	}
	if "" == self.DeviceName {
		return newError("empty DeviceName")
	}
	return nil
}

// DeviceStore is a credentials.DeviceStore that persists a Device in the device & identity tables.
type DeviceStore struct {
	DB         PGDB
	DeviceName string
}

//go:embed device_store_schema.sql
var schemaScriptTpl string

// DeviceStoreMigrate creates the DeviceStore tables in the dbschema schema.
func DeviceStoreMigrate(ctx context.Context, pgconn *pgx.Conn, dbschema string) error {
	schemaName := pgx.Identifier{dbschema}.Sanitize()
	schemaScript := strings.ReplaceAll(schemaScriptTpl, "${schema_name}", schemaName)

	_, err := pgconn.Exec(ctx, schemaScript)

	return wrapError(err, "failed db schema initialization") // nil if err is nil...
}

// NewDeviceStore returns a DeviceStore that uses a pgxpool.Pool connected to cfg.DSN.
func NewDeviceStore(ctx context.Context, cfg Cfg) (*DeviceStore, error) {
	err := cfg.Check()
	if nil != err {
		return nil, wrapError(err, "invalid cfg")
	}
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if nil != err {
		return nil, wrapError(err, "failed connection pool creation")
	}

	return &DeviceStore{DB: pool, DeviceName: cfg.DeviceName}, nil
}

// SaveDevice saves dev, replacing the stored Device & Identities.
func (self *DeviceStore) SaveDevice(ctx context.Context, dev credentials.Device) error {
	srzdev, err := credentials.MarshalDevice(dev)
	if nil != err {
		return wrapError(err, "failed credentials.MarshalDevice")
	}

	err = pgx.BeginFunc(ctx, self.DB, func(tx pgx.Tx) error {
		current, err := self.loadDevice(ctx, tx, true)
		switch {
		case nil == err:
			err = credentials.CheckReplacement(current, dev)
			if nil != err {
				return err
			}
		case !errors.Is(err, credentials.ErrNotFound):
			return err
		}

		err = self.putDevice(ctx, tx, dev, srzdev)
		if nil != err {
			return err
		}
		_, err = tx.Exec(ctx, `DELETE FROM identity WHERE device_name = $1`, self.DeviceName)
		if nil != err {
			return wrapError(err, "failed clearing identities")
		}
		return self.putIdentities(ctx, tx, dev.Identities)
	})

	return wrapError(err, "failed saving device") // nil if err is nil...
}

// LoadDevice loads the stored Device, including its Identities.
func (self *DeviceStore) LoadDevice(ctx context.Context) (credentials.Device, error) {
	return self.loadDevice(ctx, self.DB, false)
}

// ApplyPairing merges delta in the stored Device within a single transaction.
// The device row is locked until the transaction completes.
func (self *DeviceStore) ApplyPairing(ctx context.Context, delta credentials.Delta) error {
	err := delta.Check()
	if nil != err {
		return wrapError(err, "invalid delta")
	}

	return pgx.BeginFunc(ctx, self.DB, func(tx pgx.Tx) error {
		dev, err := self.loadDevice(ctx, tx, true)
		if nil != err {
			return err
		}
		dev = dev.Apply(delta)

		srzdev, err := credentials.MarshalDevice(dev)
		if nil != err {
			return wrapError(err, "failed credentials.MarshalDevice")
		}
		err = self.putDevice(ctx, tx, dev, srzdev)
		if nil != err {
			return err
		}
		return self.putIdentities(ctx, tx, delta.AppendedIdentities)
	})
}

type identityRow struct {
	LinkedId   string `db:"linked_id"`
	SigningKey []byte `db:"signing_key"`
}

func (self *DeviceStore) loadDevice(ctx context.Context, db PGDB, forUpdate bool) (credentials.Device, error) {
	qry := `SELECT data FROM device WHERE name = $1`
	if forUpdate {
		qry += ` FOR UPDATE`
	}
	var srzdev []byte
	err := db.QueryRow(ctx, qry, self.DeviceName).Scan(&srzdev)
	if nil != err {
		if errors.Is(err, pgx.ErrNoRows) {
			return credentials.Device{}, wrapError(credentials.ErrNotFound, "unknown device %q", self.DeviceName)
		}
		return credentials.Device{}, wrapError(err, "failed loading device")
	}
	dev, err := credentials.UnmarshalDevice(srzdev)
	if nil != err {
		return credentials.Device{}, wrapError(err, "failed credentials.UnmarshalDevice")
	}

	rows, err := db.Query(
		ctx,
		`SELECT linked_id, signing_key FROM identity WHERE device_name = $1 ORDER BY address`,
		self.DeviceName,
	)
	if nil != err {
		return credentials.Device{}, wrapError(err, "failed DB.Query")
	}
	idrows, err := pgx.CollectRows(rows, pgx.RowToStructByName[identityRow])
	if nil != err {
		return credentials.Device{}, wrapError(err, "failed pgx.CollectRows")
	}
	for _, row := range idrows {
		id, err := credentials.NewIdentity(row.LinkedId, row.SigningKey)
		if nil != err {
			return credentials.Device{}, wrapError(err, "invalid identity row")
		}
		dev.Identities = append(dev.Identities, id)
	}

	return dev, nil
}

func (self *DeviceStore) putDevice(ctx context.Context, tx pgx.Tx, dev credentials.Device, srzdev []byte) error {
	var meId *string
	if !dev.Me.ID.IsEmpty() {
		s := dev.Me.ID.String()
		meId = &s
	}
	_, err := tx.Exec(
		ctx,
		`INSERT INTO device(name, data, me_id, platform) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (name) DO UPDATE SET
		 data = EXCLUDED.data,
		 me_id = EXCLUDED.me_id,
		 platform = EXCLUDED.platform,
		 updated_at = now()`,
		self.DeviceName,
		srzdev,
		meId,
		dev.Platform,
	)

	return wrapError(err, "failed saving device row") // nil if err is nil...
}

func (self *DeviceStore) putIdentities(ctx context.Context, tx pgx.Tx, ids []credentials.Identity) error {
	if 0 == len(ids) {
		return nil
	}
	batch := &pgx.Batch{}
	for _, id := range ids {
		batch.Queue(
			`INSERT INTO identity(device_name, address, linked_id, signing_key) VALUES ($1, $2, $3, $4)
			 ON CONFLICT (device_name, address) DO UPDATE SET
			 linked_id = EXCLUDED.linked_id,
			 signing_key = EXCLUDED.signing_key`,
			self.DeviceName,
			id.Address(),
			id.LinkedId.String(),
			id.SigningKey[:],
		)
	}
	err := tx.SendBatch(ctx, batch).Close()

	return wrapError(err, "failed saving identity rows") // nil if err is nil...
}

var _ credentials.DeviceStore = &DeviceStore{}
