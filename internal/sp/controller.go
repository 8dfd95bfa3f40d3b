// Package sp implements the Sensor Processor driver (§4.3): a
// hardware-assisted threshold/hysteresis engine covering N analog
// channels, converting interrupt-time threshold crossings into a
// consumable event stream without loss under bursty conditions.
package sp

import (
	"sync"
	"sync/atomic"
	"time"

	"pmc-core/errcode"
	"pmc-core/internal/regmap"
)

// Controller drives one Sensor Processor PL IP instance.
type Controller struct {
	bank   regmap.Bank
	reader RawReader
	n      int

	isrQ chan Event

	mu     sync.Mutex // guards the unbounded userland deque
	events []Event

	eventsReceived    atomic.Uint32
	isrQueueHighWater atomic.Uint32
	userQueueHighWater atomic.Uint32
	eventsDelivered   atomic.Uint32
	isrDrops          atomic.Uint32
}

// New builds a Controller for n channels. The ISR->task queue is sized
// n + n/2, matching the original driver's "handle every sensor getting an
// event at once, and then a bit extra."
func New(bank regmap.Bank, n int, reader RawReader) *Controller {
	qlen := n + n/2
	if qlen <= 0 {
		qlen = 1
	}
	return &Controller{bank: bank, reader: reader, n: n, isrQ: make(chan Event, qlen)}
}

func (c *Controller) validChannel(ch int) error {
	if ch < 0 || ch >= c.n {
		return errcode.InvalidChannel
	}
	return nil
}

func (c *Controller) SetHysteresis(ch int, pos, neg uint16) error {
	if err := c.validChannel(ch); err != nil {
		return err
	}
	base := chConfigBaseOf(ch)
	c.bank.WriteReg(base+offHystPos, uint32(pos))
	c.bank.WriteReg(base+offHystNeg, uint32(neg))
	return nil
}

func (c *Controller) GetHysteresis(ch int) (HystCfg, error) {
	if err := c.validChannel(ch); err != nil {
		return HystCfg{}, err
	}
	base := chConfigBaseOf(ch)
	return HystCfg{
		HystPos: uint16(c.bank.ReadReg(base + offHystPos)),
		HystNeg: uint16(c.bank.ReadReg(base + offHystNeg)),
	}, nil
}

func (c *Controller) SetThresholds(ch int, t ThrCfg) error {
	if err := c.validChannel(ch); err != nil {
		return err
	}
	base := chConfigBaseOf(ch)
	c.bank.WriteReg(base+offLNC, uint32(t.LNC))
	c.bank.WriteReg(base+offLCR, uint32(t.LCR))
	c.bank.WriteReg(base+offLNR, uint32(t.LNR))
	c.bank.WriteReg(base+offUNC, uint32(t.UNC))
	c.bank.WriteReg(base+offUCR, uint32(t.UCR))
	c.bank.WriteReg(base+offUNR, uint32(t.UNR))
	return nil
}

func (c *Controller) GetThresholds(ch int) (ThrCfg, error) {
	if err := c.validChannel(ch); err != nil {
		return ThrCfg{}, err
	}
	base := chConfigBaseOf(ch)
	return ThrCfg{
		LNC: uint16(c.bank.ReadReg(base + offLNC)),
		LCR: uint16(c.bank.ReadReg(base + offLCR)),
		LNR: uint16(c.bank.ReadReg(base + offLNR)),
		UNC: uint16(c.bank.ReadReg(base + offUNC)),
		UCR: uint16(c.bank.ReadReg(base + offUCR)),
		UNR: uint16(c.bank.ReadReg(base + offUNR)),
	}, nil
}

// rearm clears the named latched bits for a channel. The hardware contract
// (confirmed against the reference driver) is two writes: the bits to
// clear, then zero.
func (c *Controller) rearm(ch int, assertBits, deassertBits uint16) {
	base := chStatusBaseOf(ch)
	c.bank.WriteReg(base+offEvAssertRearm, uint32(assertBits))
	c.bank.WriteReg(base+offEvAssertRearm, 0)
	c.bank.WriteReg(base+offEvDeassertRearm, uint32(deassertBits))
	c.bank.WriteReg(base+offEvDeassertRearm, 0)
}

// SetEventEnable is the single subtlest contract in the whole core
// (§4.3). Enabling a bit that is already true would otherwise cause the
// hardware to re-present stale state as a fresh event; rearming exactly
// the newly-enabled bits before writing the new masks prevents that
// without discarding already-enabled bits' legitimate pending state.
func (c *Controller) SetEventEnable(ch int, assert, deassert uint16) error {
	if err := c.validChannel(ch); err != nil {
		return err
	}
	old, err := c.GetEventEnable(ch)
	if err != nil {
		return err
	}
	newAssert := assert &^ old.AssertMask
	newDeassert := deassert &^ old.DeassertMask
	c.rearm(ch, newAssert, newDeassert)

	base := chStatusBaseOf(ch)
	c.bank.WriteReg(base+offEvAssertEn, uint32(assert))
	c.bank.WriteReg(base+offEvDeassertEn, uint32(deassert))
	return nil
}

func (c *Controller) GetEventEnable(ch int) (Event, error) {
	if err := c.validChannel(ch); err != nil {
		return Event{}, err
	}
	base := chStatusBaseOf(ch)
	return Event{
		Channel:      ch,
		AssertMask:   uint16(c.bank.ReadReg(base+offEvAssertEn)) & eventBitMask,
		DeassertMask: uint16(c.bank.ReadReg(base+offEvDeassertEn)) & eventBitMask,
	}, nil
}

// CurrentEventStatus returns the live (not latched) assertion mask for a
// channel. Per the preserved Open Question (§9), the deassert half of this
// is always zero. The reference source stubs it, and this implementation
// keeps that observable behavior rather than inventing a value the
// hardware never produced.
func (c *Controller) CurrentEventStatus(ch int) (assert, deassert uint16, err error) {
	if err := c.validChannel(ch); err != nil {
		return 0, 0, err
	}
	base := chStatusBaseOf(ch)
	assert = uint16(c.bank.ReadReg(base+offEvAssertCurSt)) & eventBitMask
	return assert, 0, nil
}

// ServiceInterrupt is the ISR-context handler (§4.3, §5): O(N) register
// reads, up to N callback invocations, up to N queue sends. It must never
// block and never allocate beyond the fixed-size Event it enqueues.
func (c *Controller) ServiceInterrupt() {
	for ch := 0; ch < c.n; ch++ {
		base := chStatusBaseOf(ch)
		assertSt := uint16(c.bank.ReadReg(base+offEvAssertSt)) & eventBitMask
		deassertSt := uint16(c.bank.ReadReg(base+offEvDeassertSt)) & eventBitMask
		if assertSt == 0 && deassertSt == 0 {
			continue
		}
		c.rearm(ch, assertSt, deassertSt)

		var reading uint32
		if c.reader != nil {
			reading = c.reader.ReadRaw(ch)
		}
		ev := Event{Channel: ch, Reading: reading, AssertMask: assertSt, DeassertMask: deassertSt}
		c.eventsReceived.Add(1)

		select {
		case c.isrQ <- ev:
		default:
			c.isrDrops.Add(1)
		}
	}
	c.bank.WriteReg(regIRQAck, c.bank.ReadReg(regIRQReq))
	if n := uint32(len(c.isrQ)); n > c.isrQueueHighWater.Load() {
		c.isrQueueHighWater.Store(n)
	}
}

// GetEvent drains the bounded ISR queue into an unbounded in-task deque
// (single-consumer), then pops one event. This two-level buffering
// isolates the ISR queue from userland latency (§4.3).
func (c *Controller) GetEvent(timeout time.Duration) (Event, bool) {
	c.mu.Lock()
	for {
		select {
		case ev := <-c.isrQ:
			c.events = append(c.events, ev)
		default:
			goto drained
		}
	}
drained:
	if uint32(len(c.events)) > c.userQueueHighWater.Load() {
		c.userQueueHighWater.Store(uint32(len(c.events)))
	}
	if len(c.events) > 0 {
		ev := c.events[0]
		c.events = c.events[1:]
		c.eventsDelivered.Add(1)
		c.mu.Unlock()
		return ev, true
	}
	c.mu.Unlock()

	select {
	case ev := <-c.isrQ:
		c.mu.Lock()
		c.eventsDelivered.Add(1)
		c.mu.Unlock()
		return ev, true
	case <-time.After(timeout):
		return Event{}, false
	}
}

// Stats carries the original driver's three counter exports (events
// received, ISR-queue high water, deliveries) plus the userland deque's
// high water and the count of events dropped on a full ISR queue.
type Stats struct {
	EventsReceived     uint32
	ISRQueueHighWater  uint32
	UserQueueHighWater uint32
	EventsDelivered    uint32
	ISRDrops           uint32
}

func (c *Controller) Stats() Stats {
	return Stats{
		EventsReceived:     c.eventsReceived.Load(),
		ISRQueueHighWater:  c.isrQueueHighWater.Load(),
		UserQueueHighWater: c.userQueueHighWater.Load(),
		EventsDelivered:    c.eventsDelivered.Load(),
		ISRDrops:           c.isrDrops.Load(),
	}
}
