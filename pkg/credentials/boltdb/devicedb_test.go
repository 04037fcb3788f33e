package boltdb

import (
	"context"
	"errors"
	"path"
	"testing"

	bolt "go.etcd.io/bbolt"

	"code.linkpair.org/golang/pkg/credentials"
	"code.linkpair.org/golang/pkg/jid"
)

func TestNew(t *testing.T) {
	newStore(t)
}

func TestNewInvalidCfg(t *testing.T) {
	_, err := New(Cfg{})
	if nil == err {
		t.Error("New accepted empty DbPath")
	}
}

func TestLoadDeviceNotFound(t *testing.T) {
	store, _ := newStore(t)
	_, err := store.LoadDevice(context.Background())
	if !errors.Is(err, credentials.ErrNotFound) {
		t.Errorf("failed LoadDevice, got error %v", err)
	}
}

func TestSaveLoadDevice(t *testing.T) {
	ctx := context.Background()
	store, dbPath := newStore(t)

	dev := mustDevice(t)
	dev.Identities = []credentials.Identity{
		{LinkedId: jid.MustParse("1@lid"), SigningKey: [32]byte{1}},
		{LinkedId: jid.MustParse("2@lid"), SigningKey: [32]byte{2}},
	}
	err := store.SaveDevice(ctx, dev)
	if nil != err {
		t.Fatalf("failed SaveDevice, got error %v", err)
	}
	loaded, err := store.LoadDevice(ctx)
	if nil != err {
		t.Fatalf("failed LoadDevice, got error %v", err)
	}
	if loaded.IdentityKey != dev.IdentityKey {
		t.Error("IdentityKey mismatch")
	}
	if loaded.IsPaired() {
		t.Error("loaded Device is paired")
	}
	if 2 != len(loaded.Identities) {
		t.Errorf("unexpected Identities %+v", loaded.Identities)
	}

	// saving replaces Identities
	dev.Identities = dev.Identities[:1]
	err = store.SaveDevice(ctx, dev)
	if nil != err {
		t.Fatalf("failed second SaveDevice, got error %v", err)
	}
	loaded, err = store.LoadDevice(ctx)
	if nil != err {
		t.Fatalf("failed second LoadDevice, got error %v", err)
	}
	if 1 != len(loaded.Identities) || loaded.Identities[0] != dev.Identities[0] {
		t.Errorf("unexpected Identities %+v", loaded.Identities)
	}

	err = printDB(t, dbPath)
	if nil != err {
		t.Errorf("failed printDB, got error %v", err)
	}
}

func TestSaveDeviceInvalid(t *testing.T) {
	store, _ := newStore(t)
	err := store.SaveDevice(context.Background(), credentials.Device{})
	if !errors.Is(err, credentials.ErrValidation) {
		t.Errorf("failed SaveDevice, got error %v", err)
	}
}

func TestApplyPairing(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore(t)

	dev := mustDevice(t)
	dev.Identities = []credentials.Identity{
		{LinkedId: jid.MustParse("1@lid"), SigningKey: [32]byte{1}},
	}
	delta, err := credentials.NewTestDelta(dev, "123:3@s.whatsapp.net", "456@lid")
	if nil != err {
		t.Fatalf("failed NewTestDelta, got error %v", err)
	}

	err = store.ApplyPairing(ctx, delta)
	if !errors.Is(err, credentials.ErrNotFound) {
		t.Errorf("failed ApplyPairing on empty store, got error %v", err)
	}

	err = store.SaveDevice(ctx, dev)
	if nil != err {
		t.Fatalf("failed SaveDevice, got error %v", err)
	}
	err = store.ApplyPairing(ctx, delta)
	if nil != err {
		t.Fatalf("failed ApplyPairing, got error %v", err)
	}

	loaded, err := store.LoadDevice(ctx)
	if nil != err {
		t.Fatalf("failed LoadDevice, got error %v", err)
	}
	if !loaded.IsPaired() || !loaded.Account.Equal(delta.Account) {
		t.Error("Account mismatch")
	}
	if loaded.Me != delta.Me {
		t.Errorf("Me mismatch, %+v != %+v", loaded.Me, delta.Me)
	}
	if loaded.Platform != delta.Platform {
		t.Errorf("Platform mismatch, %q != %q", loaded.Platform, delta.Platform)
	}
	addrs := make(map[string]bool)
	for _, id := range loaded.Identities {
		addrs[id.Address()] = true
	}
	if 2 != len(addrs) || !addrs["1_1:0"] || !addrs["456_1:0"] {
		t.Errorf("unexpected Identities %+v", loaded.Identities)
	}
}

func TestApplyPairingInvalidDelta(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore(t)
	dev := mustDevice(t)
	err := store.SaveDevice(ctx, dev)
	if nil != err {
		t.Fatalf("failed SaveDevice, got error %v", err)
	}

	err = store.ApplyPairing(ctx, credentials.Delta{})
	if !errors.Is(err, credentials.ErrValidation) {
		t.Errorf("failed ApplyPairing, got error %v", err)
	}
	loaded, err := store.LoadDevice(ctx)
	if nil != err {
		t.Fatalf("failed LoadDevice, got error %v", err)
	}
	if loaded.IsPaired() {
		t.Error("invalid delta was applied")
	}
}

func newStore(t *testing.T) (credentials.DeviceStore, string) {
	dbPath := path.Join(t.TempDir(), "device.db")
	store, err := New(Cfg{DbPath: dbPath})
	if nil != err {
		t.Fatalf("failed New, got error %v", err)
	}
	return store, dbPath
}

func TestSaveDeviceIdentityClash(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore(t)

	dev := mustDevice(t)
	err := store.SaveDevice(ctx, dev)
	if nil != err {
		t.Fatalf("failed SaveDevice, got error %v", err)
	}
	delta, err := credentials.NewTestDelta(dev, "123:3@s.whatsapp.net", "456@lid")
	if nil != err {
		t.Fatalf("failed NewTestDelta, got error %v", err)
	}
	err = store.ApplyPairing(ctx, delta)
	if nil != err {
		t.Fatalf("failed ApplyPairing, got error %v", err)
	}

	err = store.SaveDevice(ctx, mustDevice(t))
	if !errors.Is(err, credentials.ErrIdentityClash) {
		t.Errorf("failed replacing paired Device, got error %v", err)
	}
	loaded, err := store.LoadDevice(ctx)
	if nil != err {
		t.Fatalf("failed LoadDevice, got error %v", err)
	}
	if loaded.IdentityKey != dev.IdentityKey || !loaded.IsPaired() {
		t.Error("rejected SaveDevice modified the store")
	}
}

func mustDevice(t *testing.T) credentials.Device {
	dev, err := credentials.NewDevice()
	if nil != err {
		t.Fatalf("failed credentials.NewDevice, got error %v", err)
	}
	return dev
}

func printDB(t *testing.T, dbpath string) error {
	db, err := bolt.Open(dbpath, 0600, nil)
	if nil != err {
		return wrapError(err, "failed bolt.Open")
	}
	defer db.Close()

	return db.View(func(tx *bolt.Tx) error {
		for _, bucketname := range [][]byte{deviceTblName, identityTblName} {
			t.Logf("%s bucket:", bucketname)
			err := tx.Bucket(bucketname).ForEach(func(k, v []byte) error {
				t.Logf("    %s: %d bytes", k, len(v))
				return nil
			})
			if nil != err {
				return wrapError(err, "failed %s.ForEach", bucketname)
			}
		}
		return nil
	})
}
