package sp

import (
	"testing"
	"time"

	"pmc-core/internal/regmap"
)

func TestSetThresholdsAndHysteresisRoundTrip(t *testing.T) {
	c := New(regmap.NewSimBank(), 4, nil)
	want := ThrCfg{LNC: 1, LCR: 2, LNR: 3, UNC: 228, UCR: 5, UNR: 6}
	if err := c.SetThresholds(0, want); err != nil {
		t.Fatalf("SetThresholds: %v", err)
	}
	got, err := c.GetThresholds(0)
	if err != nil || got != want {
		t.Fatalf("got %+v want %+v (err=%v)", got, want, err)
	}

	if err := c.SetHysteresis(0, 4, 2); err != nil {
		t.Fatalf("SetHysteresis: %v", err)
	}
	h, err := c.GetHysteresis(0)
	if err != nil || h != (HystCfg{HystPos: 4, HystNeg: 2}) {
		t.Fatalf("got %+v (err=%v)", h, err)
	}
}

func TestInvalidChannelRejected(t *testing.T) {
	c := New(regmap.NewSimBank(), 2, nil)
	if _, err := c.GetThresholds(5); err == nil {
		t.Fatal("expected error for out-of-range channel")
	}
	if err := c.SetEventEnable(-1, 0, 0); err == nil {
		t.Fatal("expected error for negative channel")
	}
}

// TestEventEnableRearmsOnlyNewBits exercises property 4 (rearm idempotence)
// and property 5 (enable-new-bit rearm): enabling the same bits twice must
// not re-rearm already-enabled bits, and newly-enabled bits get rearmed
// exactly once.
func TestEventEnableRearmsOnlyNewBits(t *testing.T) {
	bank := regmap.NewSimBank()
	c := New(bank, 1, nil)

	var rearmWrites []uint32
	bank.OnWrite = func(off, v uint32) {
		if off == chStatusBaseOf(0)+offEvAssertRearm && v != 0 {
			rearmWrites = append(rearmWrites, v)
		}
	}

	if err := c.SetEventEnable(0, BitUNCUp, 0); err != nil {
		t.Fatalf("SetEventEnable: %v", err)
	}
	if err := c.SetEventEnable(0, BitUNCUp, 0); err != nil { // same bits again
		t.Fatalf("SetEventEnable (repeat): %v", err)
	}
	if err := c.SetEventEnable(0, BitUNCUp|BitUCRUp, 0); err != nil { // one new bit
		t.Fatalf("SetEventEnable (add bit): %v", err)
	}

	if len(rearmWrites) != 2 {
		t.Fatalf("expected 2 nonzero rearm writes (initial enable + new bit), got %d: %v", len(rearmWrites), rearmWrites)
	}
	if rearmWrites[0] != BitUNCUp {
		t.Fatalf("first rearm should cover only BitUNCUp, got %#x", rearmWrites[0])
	}
	if rearmWrites[1] != BitUCRUp {
		t.Fatalf("second rearm should cover only the newly-added bit, got %#x", rearmWrites[1])
	}
}

// TestServiceInterruptDeliversEventSequence exercises scenario S4: a
// sequence of hardware-latched crossings on channel 0 must produce exactly
// one assert and one deassert, sampling the raw reading at interrupt time.
func TestServiceInterruptDeliversEventSequence(t *testing.T) {
	bank := regmap.NewSimBank()
	var currentReading uint32
	reader := RawReaderFunc(func(ch int) uint32 { return currentReading })
	c := New(bank, 1, reader)

	base := chStatusBaseOf(0)

	step := func(reading uint32, assertBits, deassertBits uint16) {
		currentReading = reading
		bank.Poke(base+offEvAssertSt, uint32(assertBits))
		bank.Poke(base+offEvDeassertSt, uint32(deassertBits))
		c.ServiceInterrupt()
	}

	step(220, 0, 0)
	step(229, BitUNCUp, 0) // 220->229 crosses UNC upward: assert
	step(229, 0, 0)        // 229->229: no event
	step(225, 0, 0)        // still above hysteresis band
	step(224, 0, BitUNCUp) // 225->224 crosses back below UNC-hyst: deassert

	ev1, ok := c.GetEvent(50 * time.Millisecond)
	if !ok {
		t.Fatal("expected assert event")
	}
	if ev1.AssertMask != BitUNCUp || ev1.Reading != 229 {
		t.Fatalf("unexpected assert event: %+v", ev1)
	}

	ev2, ok := c.GetEvent(50 * time.Millisecond)
	if !ok {
		t.Fatal("expected deassert event")
	}
	if ev2.DeassertMask != BitUNCUp || ev2.Reading != 224 {
		t.Fatalf("unexpected deassert event: %+v", ev2)
	}

	if _, ok := c.GetEvent(5 * time.Millisecond); ok {
		t.Fatal("expected no further events")
	}

	stats := c.Stats()
	if stats.EventsReceived != 2 || stats.EventsDelivered != 2 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestServiceInterruptRearmsLatchedBits(t *testing.T) {
	bank := regmap.NewSimBank()
	c := New(bank, 1, RawReaderFunc(func(int) uint32 { return 0 }))
	base := chStatusBaseOf(0)

	bank.Poke(base+offEvAssertSt, BitUNCUp)
	c.ServiceInterrupt()

	if got := bank.Peek(base + offEvAssertRearm); got != 0 {
		t.Fatalf("rearm register should settle back to 0 after the two-write contract, got %#x", got)
	}
}

func TestISRQueueOverflowIsCountedNotBlocking(t *testing.T) {
	bank := regmap.NewSimBank()
	c := New(bank, 1, RawReaderFunc(func(int) uint32 { return 0 }))
	base := chStatusBaseOf(0)

	// Queue capacity is n + n/2 = 1 for n=1; fire far more interrupts than
	// that without ever draining via GetEvent.
	for i := 0; i < 5; i++ {
		bank.Poke(base+offEvAssertSt, BitUNCUp)
		c.ServiceInterrupt()
	}

	if c.Stats().ISRDrops == 0 {
		t.Fatal("expected ISR drops to be counted once the queue fills")
	}
}
