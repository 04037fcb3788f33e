package credentials

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"code.linkpair.org/golang/pkg/jid"
)

func TestNewDevice(t *testing.T) {
	dev, err := NewDevice()
	if nil != err {
		t.Fatalf("failed NewDevice, got error %v", err)
	}
	err = dev.Check()
	if nil != err {
		t.Errorf("failed dev.Check, got error %v", err)
	}
	if dev.IsPaired() {
		t.Error("new Device is paired")
	}
}

func TestDeviceCheckFail(t *testing.T) {
	dev := mustDevice(t)
	dev.PairingSecret = dev.PairingSecret[:16]
	err := dev.Check()
	if !errors.Is(err, ErrValidation) {
		t.Errorf("failed dev.Check, got error %v", err)
	}
}

func TestDeviceApply(t *testing.T) {
	dev := mustDevice(t)
	delta := mustDelta(t, dev, "456@lid")

	paired := dev.Apply(delta)
	if dev.IsPaired() {
		t.Error("Apply modified its receiver")
	}
	if !paired.IsPaired() {
		t.Fatal("Apply result is not paired")
	}
	if !paired.Account.Equal(delta.Account) {
		t.Error("Account mismatch")
	}
	if paired.Me != delta.Me {
		t.Errorf("Me mismatch, %+v != %+v", paired.Me, delta.Me)
	}
	if 1 != len(paired.Identities) || "456_1:0" != paired.Identities[0].Address() {
		t.Errorf("unexpected Identities %+v", paired.Identities)
	}
	err := paired.Check()
	if nil != err {
		t.Errorf("failed paired.Check, got error %v", err)
	}
}

func TestDeltaCheckFail(t *testing.T) {
	valid := mustDelta(t, mustDevice(t), "456@lid")
	testcases := []struct {
		name   string
		change func(*Delta)
	}{
		{name: "not cosigned", change: func(d *Delta) { d.Account.DeviceSignature = nil }},
		{name: "no account key", change: func(d *Delta) { d.Account.AccountSignatureKey = nil }},
		{name: "no Me.ID", change: func(d *Delta) { d.Me.ID = jid.JID{} }},
		{name: "no Me.LinkedId", change: func(d *Delta) { d.Me.LinkedId = jid.JID{} }},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			delta := valid
			delta.Account = valid.Account.Clone()
			tc.change(&delta)
			err := delta.Check()
			if !errors.Is(err, ErrValidation) {
				t.Errorf("failed delta.Check, got error %v", err)
			}
		})
	}
}

func TestMergeIdentities(t *testing.T) {
	a := Identity{LinkedId: jid.MustParse("1@lid"), SigningKey: [32]byte{1}}
	b := Identity{LinkedId: jid.MustParse("2@lid"), SigningKey: [32]byte{2}}
	b2 := Identity{LinkedId: jid.MustParse("2@lid"), SigningKey: [32]byte{3}}
	c := Identity{LinkedId: jid.MustParse("2@s.whatsapp.net"), SigningKey: [32]byte{4}}

	current := []Identity{a, b}
	merged := MergeIdentities(current, b2, c)
	if 3 != len(merged) {
		t.Fatalf("unexpected merged size %d", len(merged))
	}
	if merged[1] != b2 {
		t.Errorf("added Identity did not replace current one, got %+v", merged[1])
	}
	if merged[2] != c {
		t.Errorf("unexpected merged[2] %+v", merged[2])
	}
	if current[1] != b {
		t.Error("MergeIdentities modified current")
	}
}

func TestMarshalDevice(t *testing.T) {
	dev := mustDevice(t)
	paired := dev.Apply(mustDelta(t, dev, "456@lid"))

	for _, d := range []Device{dev, paired} {
		srz, err := MarshalDevice(d)
		if nil != err {
			t.Fatalf("failed MarshalDevice, got error %v", err)
		}
		loaded, err := UnmarshalDevice(srz)
		if nil != err {
			t.Fatalf("failed UnmarshalDevice, got error %v", err)
		}
		assertSameDevice(t, d, loaded, false)
	}
}

func TestUnmarshalDeviceFail(t *testing.T) {
	_, err := UnmarshalDevice([]byte{0xFF, 0x00})
	if nil == err {
		t.Error("UnmarshalDevice accepted invalid data")
	}
}

func TestMarshalIdentity(t *testing.T) {
	id := Identity{LinkedId: jid.MustParse("456@lid"), SigningKey: [32]byte{7, 8, 9}}
	srz, err := MarshalIdentity(id)
	if nil != err {
		t.Fatalf("failed MarshalIdentity, got error %v", err)
	}
	loaded, err := UnmarshalIdentity(srz)
	if nil != err {
		t.Fatalf("failed UnmarshalIdentity, got error %v", err)
	}
	if loaded != id {
		t.Errorf("Identity mismatch, %+v != %+v", loaded, id)
	}
}

func TestMemDeviceStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemDeviceStore()

	_, err := store.LoadDevice(ctx)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("failed empty store LoadDevice, got error %v", err)
	}

	dev := mustDevice(t)
	delta := mustDelta(t, dev, "456@lid")
	err = store.ApplyPairing(ctx, delta)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("failed empty store ApplyPairing, got error %v", err)
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
	assertSameDevice(t, dev.Apply(delta), loaded, true)
}

func TestMemDeviceStoreIdentityClash(t *testing.T) {
	ctx := context.Background()
	store := NewMemDeviceStore()
	dev := mustDevice(t)
	err := store.SaveDevice(ctx, dev)
	if nil != err {
		t.Fatalf("failed SaveDevice, got error %v", err)
	}

	// unpaired Device can be replaced
	other := mustDevice(t)
	err = store.SaveDevice(ctx, other)
	if nil != err {
		t.Fatalf("failed replacing unpaired Device, got error %v", err)
	}

	err = store.ApplyPairing(ctx, mustDelta(t, other, "456@lid"))
	if nil != err {
		t.Fatalf("failed ApplyPairing, got error %v", err)
	}
	err = store.SaveDevice(ctx, dev)
	if !errors.Is(err, ErrIdentityClash) {
		t.Errorf("failed replacing paired Device, got error %v", err)
	}
	loaded, err := store.LoadDevice(ctx)
	if nil != err {
		t.Fatalf("failed LoadDevice, got error %v", err)
	}
	if loaded.IdentityKey != other.IdentityKey || !loaded.IsPaired() {
		t.Error("rejected SaveDevice modified the store")
	}

	// paired Device keeping its identity key can be saved
	err = store.SaveDevice(ctx, loaded)
	if nil != err {
		t.Errorf("failed saving paired Device, got error %v", err)
	}
}

func TestMemDeviceStoreConcurrentApply(t *testing.T) {
	ctx := context.Background()
	store := NewMemDeviceStore()
	dev := mustDevice(t)
	err := store.SaveDevice(ctx, dev)
	if nil != err {
		t.Fatalf("failed SaveDevice, got error %v", err)
	}

	deltas := make([]Delta, 8)
	for i := range deltas {
		deltas[i] = mustDelta(t, dev, "456@lid")
	}
	var wg sync.WaitGroup
	for _, delta := range deltas {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.ApplyPairing(ctx, delta)
			if nil != err {
				t.Errorf("failed ApplyPairing, got error %v", err)
			}
		}()
	}
	wg.Wait()

	loaded, err := store.LoadDevice(ctx)
	if nil != err {
		t.Fatalf("failed LoadDevice, got error %v", err)
	}
	// the stored Account & Identities come from the same delta
	if 1 != len(loaded.Identities) {
		t.Fatalf("unexpected Identities %+v", loaded.Identities)
	}
	for _, delta := range deltas {
		if loaded.Account.Equal(delta.Account) {
			if loaded.Identities[0] != delta.AppendedIdentities[0] {
				t.Error("partial delta application")
			}
			return
		}
	}
	t.Error("stored Account does not match any delta")
}

func mustDevice(t *testing.T) Device {
	dev, err := NewDevice()
	if nil != err {
		t.Fatalf("failed NewDevice, got error %v", err)
	}
	return dev
}

func mustDelta(t *testing.T, dev Device, lid string) Delta {
	delta, err := NewTestDelta(dev, "123:3@s.whatsapp.net", lid)
	if nil != err {
		t.Fatalf("failed NewTestDelta, got error %v", err)
	}
	return delta
}

func assertSameDevice(t *testing.T, expected, got Device, withIdentities bool) {
	t.Helper()
	if expected.IdentityKey != got.IdentityKey {
		t.Error("IdentityKey mismatch")
	}
	if !bytes.Equal(expected.PairingSecret, got.PairingSecret) {
		t.Error("PairingSecret mismatch")
	}
	if expected.IsPaired() != got.IsPaired() {
		t.Fatalf("IsPaired mismatch, %v != %v", expected.IsPaired(), got.IsPaired())
	}
	if expected.IsPaired() && !expected.Account.Equal(*got.Account) {
		t.Error("Account mismatch")
	}
	if expected.Me != got.Me {
		t.Errorf("Me mismatch, %+v != %+v", expected.Me, got.Me)
	}
	if expected.Platform != got.Platform {
		t.Errorf("Platform mismatch, %q != %q", expected.Platform, got.Platform)
	}
	if withIdentities && len(expected.Identities) != len(got.Identities) {
		t.Errorf("Identities mismatch, %+v != %+v", expected.Identities, got.Identities)
	}
}
