package ksys

import (
	"bytes"
	"testing"

	"nyxkernel/kbd"
	"nyxkernel/klog"
)

func TestSysPrintWritesRawString(t *testing.T) {
	e := newTestEnv(t)
	var buf bytes.Buffer
	old := klog.Out
	klog.Out = &buf
	defer func() { klog.Out = old }()

	putString(t, e, 0x2000, "booting")
	if r := e.d.Dispatch(e.p, PRINT, 0x2000, 0, 0, 0, 0); r != 0 {
		t.Fatalf("PRINT: errno %d", -r)
	}
	if buf.String() != "booting" {
		t.Fatalf("console output = %q, want %q (no prefix, no newline)", buf.String(), "booting")
	}
}

func TestSysPrintPtrFormatsHex(t *testing.T) {
	e := newTestEnv(t)
	var buf bytes.Buffer
	old := klog.Out
	klog.Out = &buf
	defer func() { klog.Out = old }()

	if r := e.d.Dispatch(e.p, PRINT_PTR, 0xdead, 0, 0, 0, 0); r != 0 {
		t.Fatalf("PRINT_PTR: errno %d", -r)
	}
	if buf.String() != "0xdead" {
		t.Fatalf("console output = %q, want 0xdead", buf.String())
	}
}

func TestSysSleepReturnsImmediatelyForZero(t *testing.T) {
	e := newTestEnv(t)
	if r := e.d.Dispatch(e.p, SLEEP, 0, 0, 0, 0, 0); r != 0 {
		t.Fatalf("SLEEP: errno %d", -r)
	}
}

func TestGetKbDrainsPendingEvent(t *testing.T) {
	e := newTestEnv(t)
	e.d.Kbd.Push(kbd.Event{Code: 0x1e, State: kbd.KeyPressed, Mods: 0})

	if r := e.d.Dispatch(e.p, GET_KB, 0x2000, 0, 0, 0, 0); r != 0 {
		t.Fatalf("GET_KB: errno %d", -r)
	}
	got := getBytes(t, e, 0x2000, 4)
	want := []byte{0x1e, 0x00, byte(kbd.KeyPressed), 0}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("GET_KB event bytes = %v, want %v", got, want)
		}
	}
}

func TestGetKbEmptyRingFails(t *testing.T) {
	e := newTestEnv(t)
	if r := e.d.Dispatch(e.p, GET_KB, 0x2000, 0, 0, 0, 0); r >= 0 {
		t.Fatal("GET_KB on an empty ring should fail, not succeed")
	}
}

func TestKbReadReturnsScancode(t *testing.T) {
	e := newTestEnv(t)
	e.d.Kbd.Push(kbd.Event{Code: 0x20, State: kbd.KeyPressed, Mods: 0})
	r := e.d.Dispatch(e.p, KB_READ, 0, 0, 0, 0, 0)
	if r != 0x20 {
		t.Fatalf("KB_READ = %d, want 0x20", r)
	}
}
