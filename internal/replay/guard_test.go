package replay

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"testing/synctest"
	"time"
)

func TestClockInit(t *testing.T) {
	clock := Clock{}

	// error if step == 0
	err := clock.Init(0)
	if nil == err {
		t.Error("Init returned nil error with 0 step")
	}

	// error if step < 0
	err = clock.Init(-10 * time.Second)
	if nil == err {
		t.Error("Init returned nil error with step < 0")
	}

	err = clock.Init(3 * time.Minute)
	if nil != err {
		t.Errorf("Init failed with step > 0, got error %v", err)
	}
}

func TestClockTick(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		step := 32 * time.Second
		clock := Clock{}
		err := clock.Init(step)
		if nil != err {
			t.Fatalf("Failed clock.Init, got error %v", err)
		}

		time.Sleep(step - 1*time.Nanosecond)
		if 0 != clock.T() {
			t.Errorf("clock.T() -> %d != 0", clock.T())
		}
		time.Sleep(1 * time.Nanosecond)
		if 1 != clock.T() {
			t.Errorf("clock.T() -> %d != 1", clock.T())
		}
	})
}

func TestNewGuardInvalid(t *testing.T) {
	_, err := NewGuard(numSlot - 1)
	if nil == err {
		t.Error("NewGuard accepted a lifetime shorter than numSlot ns")
	}
}

func TestGuardExpiration(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		lifetime := 32 * time.Second
		guard, err := NewGuard(lifetime)
		if nil != err {
			t.Fatalf("failed NewGuard, got error %v", err)
		}

		if guard.Seen("pair-1") {
			t.Error("[0]: Seen reports unmarked id")
		}
		guard.Mark("pair-1")
		err = guard.Check("pair-1")
		if !errors.Is(err, ErrReplayed) {
			t.Errorf("[1]: failed Check, got error %v", err)
		}
		if nil != guard.Check("pair-2") {
			t.Error("[2]: Check rejects unmarked id")
		}

		// Advance the clock just before expiration limit
		time.Sleep(lifetime - 1*time.Nanosecond)
		if !guard.Seen("pair-1") {
			t.Error("[3]: id expired before lifetime")
		}

		// Pass the expiration limit
		time.Sleep(2 * time.Nanosecond)
		if guard.Seen("pair-1") {
			t.Error("[4]: Seen reports expired id")
		}
	})
}

func TestGuardSlotReuse(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		lifetime := 16 * time.Second
		guard, err := NewGuard(lifetime)
		if nil != err {
			t.Fatalf("failed NewGuard, got error %v", err)
		}

		guard.Mark("old")
		time.Sleep(lifetime)
		// same slot, next cycle
		guard.Mark("new")
		if guard.Seen("old") {
			t.Error("reused slot kept expired id")
		}
		if !guard.Seen("new") {
			t.Error("Seen does not report marked id")
		}
	})
}

func TestGuardReserve(t *testing.T) {
	guard, err := NewGuard(time.Hour)
	if nil != err {
		t.Fatalf("failed NewGuard, got error %v", err)
	}

	err = guard.Reserve("pair-1")
	if nil != err {
		t.Fatalf("failed first Reserve, got error %v", err)
	}
	err = guard.Reserve("pair-1")
	if !errors.Is(err, ErrReplayed) {
		t.Errorf("failed second Reserve, got error %v", err)
	}

	guard.Release("pair-1")
	if guard.Seen("pair-1") {
		t.Error("Seen reports released id")
	}
	err = guard.Reserve("pair-1")
	if nil != err {
		t.Errorf("failed Reserve after Release, got error %v", err)
	}
}

func TestGuardConcurrentReserve(t *testing.T) {
	guard, err := NewGuard(time.Hour)
	if nil != err {
		t.Fatalf("failed NewGuard, got error %v", err)
	}

	var reserved atomic.Int32
	var wg sync.WaitGroup
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if nil == guard.Reserve("pair-1") {
				reserved.Add(1)
			}
		}()
	}
	wg.Wait()

	if 1 != reserved.Load() {
		t.Errorf("%d concurrent Reserve succeeded, expected 1", reserved.Load())
	}
}
