package pse

import (
	"bytes"
	"context"
	"testing"
	"time"
)

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}

// TestFreshEEPROMAllocatesTopmostPage exercises scenario S1: a fresh
// (all-0xFF) EEPROM reinitializes on load, and the first allocation lands
// at the topmost aligned page.
func TestFreshEEPROMAllocatesTopmostPage(t *testing.T) {
	ee := NewSimEEPROM(64, 128)
	ps, err := New(ee, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	buf, err := ps.GetSection(0x0101, 1, 10)
	if err != nil {
		t.Fatalf("GetSection: %v", err)
	}
	if len(buf) != 10 {
		t.Fatalf("expected a 10-byte view, got %d", len(buf))
	}

	recs := ps.ListSections()
	if len(recs) != 1 {
		t.Fatalf("expected exactly one section, got %d", len(recs))
	}
	want := IndexRecord{ID: 0x0101, PageOffset: uint16(ps.numPages - 1), PageCount: 1, Version: 1}
	if recs[0] != want {
		t.Fatalf("got %+v want %+v", recs[0], want)
	}
}

// TestAllocationFailsWhenIndexWouldCollide exercises scenario S2: with a
// small EEPROM, allocations eventually fail once the index's own growth
// would collide with the topmost allocated data.
func TestAllocationFailsWhenIndexWouldCollide(t *testing.T) {
	ee := NewSimEEPROM(64, 128)
	ps, err := New(ee, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ok := 0
	failed := false
	for i := 0; i < 200; i++ {
		id := uint16(0x0200 + i)
		if _, err := ps.GetSection(id, 1, 1); err != nil {
			failed = true
			break
		}
		ok++
	}
	if !failed {
		t.Fatal("expected allocation to eventually fail as the index grows into the data region")
	}
	if ok == 0 {
		t.Fatal("expected at least one allocation to succeed before failing")
	}
}

// TestNonOverlapInvariant exercises property 2: no two live sections'
// page ranges ever intersect, across a mixed sequence of allocate/delete.
func TestNonOverlapInvariant(t *testing.T) {
	ee := NewSimEEPROM(32, 256)
	ps, err := New(ee, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ids := []uint16{0x0301, 0x0302, 0x0303, 0x0304, 0x0305}
	for i, id := range ids {
		if _, err := ps.GetSection(id, 1, 16*(i+1)); err != nil {
			t.Fatalf("GetSection(%#x): %v", id, err)
		}
	}
	if err := ps.DeleteSection(ids[1]); err != nil {
		t.Fatalf("DeleteSection: %v", err)
	}
	if _, err := ps.GetSection(0x0306, 1, 8); err != nil {
		t.Fatalf("GetSection after delete: %v", err)
	}

	recs := ps.ListSections()
	for i := 0; i < len(recs); i++ {
		for j := i + 1; j < len(recs); j++ {
			if recs[i].overlaps(recs[j]) {
				t.Fatalf("sections overlap: %+v and %+v", recs[i], recs[j])
			}
		}
	}
}

// TestVersionGate exercises property 3: a version mismatch on retrieval
// fails, and only the matching version succeeds.
func TestVersionGate(t *testing.T) {
	ee := NewSimEEPROM(64, 128)
	ps, err := New(ee, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := ps.GetSection(0x0401, 1, 10); err != nil {
		t.Fatalf("GetSection v1: %v", err)
	}
	if _, err := ps.GetSection(0x0401, 2, 10); err == nil {
		t.Fatal("expected version mismatch to fail")
	}
	if _, err := ps.GetSection(0x0401, 1, 10); err != nil {
		t.Fatalf("GetSection v1 again: %v", err)
	}
}

// TestRoundTripAcrossSimulatedReboot exercises property 1: writing through
// a section, flushing synchronously, and reloading a fresh PSE from the
// same backing EEPROM reproduces the bytes.
func TestRoundTripAcrossSimulatedReboot(t *testing.T) {
	ee := NewSimEEPROM(64, 128)
	ps, err := New(ee, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	go ps.Run(testContext(t), time.Hour)

	buf, err := ps.GetSection(0x0501, 1, 20)
	if err != nil {
		t.Fatalf("GetSection: %v", err)
	}
	want := bytes.Repeat([]byte{0xAB}, 20)
	copy(buf, want)

	flushed := make(chan struct{})
	ps.Flush(0, len(ee.data), PriorityDriver, func() { close(flushed) })
	select {
	case <-flushed:
	case <-time.After(time.Second):
		t.Fatal("flush did not complete")
	}

	// Simulated reboot: a fresh PSE loads from the same backing EEPROM.
	ps2, err := New(ee, nil)
	if err != nil {
		t.Fatalf("New (reload): %v", err)
	}
	got, err := ps2.GetSection(0x0501, 1, 20)
	if err != nil {
		t.Fatalf("GetSection (reload): %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

// TestFlushPriorityInheritance exercises scenario S3: a blocking,
// callback-bearing flush must be serviced ahead of an already-queued
// background full-image flush.
func TestFlushPriorityInheritance(t *testing.T) {
	ee := NewSimEEPROM(64, 256)
	ps, err := New(ee, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	buf, err := ps.GetSection(0x0601, 1, 16)
	if err != nil {
		t.Fatalf("GetSection: %v", err)
	}
	copy(buf, bytes.Repeat([]byte{0x11}, 16))

	// Service the index flush GetSection queued (index flushes always sort
	// first), then enqueue a background full flush without starting the
	// flush thread, so it is the only request waiting.
	for ps.drainOne() {
	}
	ps.FlushAll()

	done := make(chan struct{})
	var order []string

	// Now enqueue a second, high-priority, callback-bearing flush for a
	// narrow range and confirm it is serviced at the front of the queue.
	// Flush blocks until its request is serviced, so it runs on its own
	// goroutine while this one inspects and drains the queue.
	go ps.Flush(0, ps.pageSize, PriorityDriver, func() {
		order = append(order, "priority")
		close(done)
	})
	for {
		ps.queueMu.Lock()
		n := ps.queue.Len()
		ps.queueMu.Unlock()
		if n == 2 {
			break
		}
		time.Sleep(time.Millisecond)
	}

	ps.queueMu.Lock()
	top, ok := ps.queue.Peek()
	ps.queueMu.Unlock()
	if ok && top.completion == nil {
		t.Fatal("expected the callback-bearing request to be queued ahead of the background flush")
	}

	for ps.drainOne() {
	}
	<-done
	if len(order) != 1 || order[0] != "priority" {
		t.Fatalf("unexpected completion order: %v", order)
	}
}
