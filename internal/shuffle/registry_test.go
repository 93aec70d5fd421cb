package shuffle

import (
	"testing"
	"time"
)

func TestRegistryFirstPutWins(t *testing.T) {
	reg := newStreamRegistry()
	first := newTrackedStream([]byte("first"))
	second := newTrackedStream([]byte("second"))

	if !reg.put(7, first) {
		t.Fatal("first put rejected")
	}
	if reg.put(7, second) {
		t.Fatal("second put accepted")
	}
	s, ok := reg.get(7)
	if !ok || s != first {
		t.Fatal("registry does not hold the first stream")
	}
	if _, ok := reg.get(8); ok {
		t.Fatal("unexpected stream for unrelated partition")
	}
}

func TestRegistryWaitWakesOnPut(t *testing.T) {
	reg := newStreamRegistry()
	woke := make(chan bool, 1)
	go func() { woke <- reg.wait(5 * time.Second) }()

	time.Sleep(5 * time.Millisecond)
	reg.put(0, newTrackedStream(nil))

	select {
	case ok := <-woke:
		if !ok {
			t.Fatal("wait reported timeout despite a put")
		}
	case <-time.After(time.Second):
		t.Fatal("wait did not wake")
	}
}

func TestRegistryWaitTimesOut(t *testing.T) {
	reg := newStreamRegistry()
	if reg.wait(5 * time.Millisecond) {
		t.Fatal("wait woke with nothing recorded")
	}
}

func TestRegistryCloseAll(t *testing.T) {
	reg := newStreamRegistry()
	a := newTrackedStream(nil)
	b := newTrackedStream(nil)
	reg.put(0, a)
	reg.put(1, b)

	reg.closeAll()
	if !a.closed.Load() || !b.closed.Load() {
		t.Fatal("closeAll left streams open")
	}

	// Streams realized after the sweep are released immediately.
	late := newTrackedStream(nil)
	if reg.put(2, late) {
		t.Fatal("put accepted after closeAll")
	}
	if !late.closed.Load() {
		t.Fatal("late stream left open")
	}

	reg.closeAll() // idempotent
}
