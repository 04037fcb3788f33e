// Package boltdb provides a persistent credentials.DeviceStore that keeps data in a file.
package boltdb

import (
	"context"
	"errors"
	"time"

	bolt "go.etcd.io/bbolt"

	"code.linkpair.org/golang/pkg/credentials"
)

const (
	connectTimeout = 5 * time.Second
)

var (
	deviceTblName   = []byte("deviceTbl")
	identityTblName = []byte("identityTbl")
	deviceKey       = []byte("device")
)

// Cfg holds the configuration of a bolt DeviceStore.
type Cfg struct {
	DbPath string
}

// Check returns an error if the Cfg is invalid.
func (self Cfg) Check() error {
	if "" == self.DbPath {
		return newError("empty DbPath")
	}
	return nil
}

type deviceStore struct {
	dbpath string
}

// New returns a DeviceStore implementation that persists the Device in a single file boltdb database.
// It errors if the database schema can not be created.
func New(cfg Cfg) (credentials.DeviceStore, error) {
	err := cfg.Check()
	if nil != err {
		return nil, wrapError(err, "invalid cfg")
	}
	store := deviceStore{dbpath: cfg.DbPath}

	err = store.update(func(tx *bolt.Tx) error {
		for _, bucketname := range [][]byte{deviceTblName, identityTblName} {
			_, err := tx.CreateBucketIfNotExists(bucketname)
			if nil != err {
				return wrapError(err, "failed %s bucket creation", bucketname)
			}
		}
		return nil
	})
	if nil != err {
		return nil, wrapError(err, "failed db initialization")
	}

	return store, nil
}

// SaveDevice saves dev in the deviceStore, replacing the stored Device & Identities.
func (self deviceStore) SaveDevice(ctx context.Context, dev credentials.Device) error {
	srzdev, err := credentials.MarshalDevice(dev)
	if nil != err {
		return wrapError(err, "failed credentials.MarshalDevice")
	}

	err = self.update(func(tx *bolt.Tx) error {
		sch, err := loadSchema(tx)
		if nil != err {
			return wrapError(err, "failed loadSchema")
		}

		if srzcur := sch.deviceTbl.Get(deviceKey); nil != srzcur {
			current, err := credentials.UnmarshalDevice(srzcur)
			if nil != err {
				return wrapError(err, "failed credentials.UnmarshalDevice")
			}
			err = credentials.CheckReplacement(current, dev)
			if nil != err {
				return err
			}
		}

		err = sch.deviceTbl.Put(deviceKey, srzdev)
		if nil != err {
			return wrapError(err, "failed storing device in bucket")
		}

		// replaces identities
		err = tx.DeleteBucket(identityTblName)
		if nil != err && !errors.Is(err, bolt.ErrBucketNotFound) {
			return wrapError(err, "failed clearing identityTbl bucket")
		}
		sch.identityTbl, err = tx.CreateBucket(identityTblName)
		if nil != err {
			return wrapError(err, "failed identityTbl bucket creation")
		}

		return sch.putIdentities(dev.Identities)
	})

	return wrapError(err, "failed db.Update") // nil if err is nil
}

// LoadDevice loads the stored Device, including its Identities.
func (self deviceStore) LoadDevice(ctx context.Context) (credentials.Device, error) {
	var dev credentials.Device
	err := self.view(func(tx *bolt.Tx) error {
		sch, err := loadSchema(tx)
		if nil != err {
			return wrapError(err, "failed loadSchema")
		}

		dev, err = sch.loadDevice()
		return err
	})

	return dev, err
}

// ApplyPairing merges delta in the stored Device within a single transaction.
func (self deviceStore) ApplyPairing(ctx context.Context, delta credentials.Delta) error {
	err := delta.Check()
	if nil != err {
		return wrapError(err, "invalid delta")
	}

	return self.update(func(tx *bolt.Tx) error {
		sch, err := loadSchema(tx)
		if nil != err {
			return wrapError(err, "failed loadSchema")
		}

		dev, err := sch.loadDevice()
		if nil != err {
			return err
		}
		dev = dev.Apply(delta)

		srzdev, err := credentials.MarshalDevice(dev)
		if nil != err {
			return wrapError(err, "failed credentials.MarshalDevice")
		}
		err = sch.deviceTbl.Put(deviceKey, srzdev)
		if nil != err {
			return wrapError(err, "failed storing device in bucket")
		}

		return sch.putIdentities(delta.AppendedIdentities)
	})
}

func (self deviceStore) update(fn func(*bolt.Tx) error) error {
	db, err := bolt.Open(self.dbpath, 0600, &bolt.Options{Timeout: connectTimeout})
	if nil != err {
		return wrapError(err, "failed connecting to database")
	}
	defer db.Close()

	return db.Update(fn)
}

func (self deviceStore) view(fn func(*bolt.Tx) error) error {
	db, err := bolt.Open(self.dbpath, 0600, &bolt.Options{Timeout: connectTimeout})
	if nil != err {
		return wrapError(err, "failed connecting to database")
	}
	defer db.Close()

	return db.View(fn)
}

// schema holds deviceStore buckets reference
type schema struct {
	deviceTbl   *bolt.Bucket
	identityTbl *bolt.Bucket
}

func loadSchema(tx *bolt.Tx) (schema, error) {
	rv := schema{
		deviceTbl:   tx.Bucket(deviceTblName),
		identityTbl: tx.Bucket(identityTblName),
	}
	var err error
	if nil == rv.deviceTbl || nil == rv.identityTbl {
		err = newError("1 or more bucket is missing")
	}

	return rv, err
}

func (self schema) loadDevice() (credentials.Device, error) {
	srzdev := self.deviceTbl.Get(deviceKey)
	if nil == srzdev {
		return credentials.Device{}, wrapError(credentials.ErrNotFound, "no device saved")
	}
	dev, err := credentials.UnmarshalDevice(srzdev)
	if nil != err {
		return credentials.Device{}, wrapError(err, "failed credentials.UnmarshalDevice")
	}

	err = self.identityTbl.ForEach(func(k, v []byte) error {
		id, err := credentials.UnmarshalIdentity(v)
		if nil != err {
			return wrapError(err, "failed loading identity %s", k)
		}
		dev.Identities = append(dev.Identities, id)
		return nil
	})

	return dev, err
}

// putIdentities stores ids keyed by their Address, replacing existing entries.
func (self schema) putIdentities(ids []credentials.Identity) error {
	for _, id := range ids {
		srzid, err := credentials.MarshalIdentity(id)
		if nil != err {
			return wrapError(err, "failed credentials.MarshalIdentity")
		}
		err = self.identityTbl.Put([]byte(id.Address()), srzid)
		if nil != err {
			return wrapError(err, "failed storing identity in bucket")
		}
	}
	return nil
}
