package credentials

import (
	"context"
	"sync"
)

// DeviceStore persists the credentials of this companion device.
//
// ApplyPairing must be atomic: concurrent calls never interleave partial writes
// of Account, Me & Identities.
type DeviceStore interface {

	// SaveDevice saves dev in the DeviceStore, replacing the stored Device & Identities.
	// It errors if dev is invalid or could not be saved, and with ErrIdentityClash
	// if dev changes the identity key of a paired Device.
	SaveDevice(ctx context.Context, dev Device) error

	// LoadDevice loads the stored Device.
	// It errors with ErrNotFound if no Device was saved.
	LoadDevice(ctx context.Context) (Device, error)

	// ApplyPairing merges delta in the stored Device.
	// It errors with ErrNotFound if no Device was saved, the store is left unchanged on error.
	ApplyPairing(ctx context.Context, delta Delta) error
}

// MemDeviceStore provides "in memory" implementation of DeviceStore.
type MemDeviceStore struct {
	mut    sync.Mutex
	device *Device
}

func NewMemDeviceStore() *MemDeviceStore {
	return &MemDeviceStore{}
}

// SaveDevice saves dev in the MemDeviceStore.
func (self *MemDeviceStore) SaveDevice(_ context.Context, dev Device) error {
	err := dev.Check()
	if nil != err {
		return wrapError(err, "invalid Device")
	}
	dev = dev.Clone()

	self.mut.Lock()
	defer self.mut.Unlock()
	if nil != self.device {
		err = CheckReplacement(*self.device, dev)
		if nil != err {
			return err
		}
	}
	self.device = &dev

	return nil
}

// LoadDevice returns a copy of the stored Device.
func (self *MemDeviceStore) LoadDevice(_ context.Context) (Device, error) {
	self.mut.Lock()
	defer self.mut.Unlock()

	if nil == self.device {
		return Device{}, wrapError(ErrNotFound, "no Device saved")
	}
	return self.device.Clone(), nil
}

// ApplyPairing merges delta in the stored Device.
func (self *MemDeviceStore) ApplyPairing(_ context.Context, delta Delta) error {
	err := delta.Check()
	if nil != err {
		return wrapError(err, "invalid Delta")
	}

	self.mut.Lock()
	defer self.mut.Unlock()

	if nil == self.device {
		return wrapError(ErrNotFound, "no Device saved")
	}
	updated := self.device.Apply(delta)
	self.device = &updated

	return nil
}

var _ DeviceStore = &MemDeviceStore{}
