package imt

import (
	"sync"
	"sync/atomic"
	"time"

	"pmc-core/internal/rtos"
)

// DefaultClockHz is the bus clock programmed on every role switch,
// matching the original driver's 400 kHz fast-mode setting.
const DefaultClockHz = 400_000

// Verdict is the ISR's translation of a raw controller event into one of
// the outcomes send() distinguishes (§4.2).
type Verdict int

const (
	VerdictComplete Verdict = iota
	VerdictNack
	VerdictArbLost
	VerdictError
)

// Device drives one IMT instance: role switching between master and
// slave, synchronous sends serialized by mu, and delivery of verified
// inbound frames to an owner-supplied queue.
type Device struct {
	bus  Bus
	addr byte // own IPMB slave address, already in 8-bit wire form

	mu     sync.Mutex // serializes send() and role switches (§4.2)
	master bool
	recvBuf []byte

	// SendTimeout bounds how long send() waits for a verdict before
	// declaring a lost interrupt (§4.2; default ~10ms). Exported so tests
	// need not wait out the real default.
	SendTimeout time.Duration

	result *rtos.OneShot[Verdict]

	inboundMu sync.Mutex
	inbound   chan *IpmiMessage

	messagesReceived               atomic.Uint32
	invalidMessagesReceived        atomic.Uint32
	incomingMessagesMissed         atomic.Uint32
	unexpectedSendResultInterrupts atomic.Uint32
	lostTransmitInterrupts         atomic.Uint32
}

// New builds a Device addressed at addr (already shifted into 8-bit wire
// form, i.e. the value IPMB frames carry as rsSA) and immediately enters
// slave mode, matching the original driver's constructor.
func New(bus Bus, addr byte) *Device {
	d := &Device{
		bus:         bus,
		addr:        addr,
		recvBuf:     make([]byte, BufSize),
		SendTimeout: 10 * time.Millisecond,
		result:      rtos.NewOneShot[Verdict](),
	}
	d.enterSlaveLocked()
	return d
}

// SetInboundQueue registers the delivery queue for inbound frames (§4.2).
func (d *Device) SetInboundQueue(q chan *IpmiMessage) {
	d.inboundMu.Lock()
	d.inbound = q
	d.inboundMu.Unlock()
}

func (d *Device) waitNotBusy() {
	for d.bus.BusBusy() {
		time.Sleep(100 * time.Microsecond)
	}
}

// enterMasterLocked and enterSlaveLocked implement the five-step role
// switching protocol (§4.2). Caller must hold mu.
func (d *Device) enterMasterLocked() {
	d.waitNotBusy()
	d.bus.Reset()
	d.bus.ConfigureClock(DefaultClockHz)
	d.master = true
	d.bus.EnterMaster()
}

func (d *Device) enterSlaveLocked() {
	d.waitNotBusy()
	d.bus.Reset()
	d.bus.ConfigureClock(DefaultClockHz)
	d.master = false
	d.bus.EnterSlave(d.addr, d.recvBuf)
}

// Send serializes msg, switches to master, transmits, and waits for a
// verdict bounded by SendTimeout; on exit it always returns to slave mode
// and re-arms receiving (§4.2), even on a lost-interrupt timeout. It
// retries up to retries additional times on a non-complete-send verdict.
func (d *Device) Send(msg IpmiMessage, retries int) bool {
	return d.sendFrame(msg.RsSA, Unparse(msg), retries)
}

// SendRaw transmits an already-framed, already-checksummed payload to
// targetAddr (the IPMB rsSA-form address). This is the path the tinygo I2C
// adapter uses, since a generic Tx caller has no notion of IpmiMessage.
func (d *Device) SendRaw(targetAddr byte, frame []byte, retries int) bool {
	return d.sendFrame(targetAddr, frame, retries)
}

func (d *Device) sendFrame(targetAddr byte, frame []byte, retries int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	attempt := func() bool {
		d.enterMasterLocked()
		d.result.Reset()
		d.bus.MasterSend(targetAddr>>1, frame)
		verdict, ok := d.result.Wait(d.SendTimeout)
		d.enterSlaveLocked()
		if !ok {
			d.lostTransmitInterrupts.Add(1)
			return false
		}
		return verdict == VerdictComplete
	}

	ok := attempt()
	for i := 0; !ok && i < retries; i++ {
		ok = attempt()
	}
	return ok
}

// HandleSendEvent is the ISR-context callback for master-mode events: the
// real or simulated controller calls it once per transaction outcome
// (§4.2, §5: "ISR" here is just a function call, never its own
// goroutine). A verdict delivered while not in master mode is counted as
// unexpected and otherwise ignored.
func (d *Device) HandleSendEvent(v Verdict) {
	if !d.master {
		d.unexpectedSendResultInterrupts.Add(1)
		return
	}
	d.result.Post(v)
}

// HandleSlaveRecv is the ISR-context callback for a completed slave
// reception. unused is the count of buffer bytes the controller did not
// fill. "Receive buffer not completely filled" is success, not error,
// per the variable-length contract (§4.2); overflow signals the vendor
// error case, "receive buffer completely filled," implying an over-length
// frame, and is dropped and counted as invalid without attempting to
// parse it.
func (d *Device) HandleSlaveRecv(unused int, overflow bool) {
	if overflow {
		d.invalidMessagesReceived.Add(1)
		d.bus.EnterSlave(d.addr, d.recvBuf) // re-arm receiving
		return
	}
	frameLen := len(d.recvBuf) - unused
	if frameLen < 0 {
		frameLen = 0
	}
	msg, err := Parse(d.recvBuf[:frameLen])
	d.bus.EnterSlave(d.addr, d.recvBuf) // re-arm receiving for the next frame
	if err != nil {
		d.invalidMessagesReceived.Add(1)
		return
	}

	d.inboundMu.Lock()
	q := d.inbound
	d.inboundMu.Unlock()
	if q == nil {
		d.incomingMessagesMissed.Add(1)
		return
	}
	select {
	case q <- &msg:
		d.messagesReceived.Add(1)
	default:
		d.incomingMessagesMissed.Add(1)
	}
}

// Stats mirrors the original driver's per-instance StatCounters.
type Stats struct {
	MessagesReceived               uint32
	InvalidMessagesReceived        uint32
	IncomingMessagesMissed         uint32
	UnexpectedSendResultInterrupts uint32
	LostTransmitInterrupts         uint32
}

func (d *Device) Stats() Stats {
	return Stats{
		MessagesReceived:               d.messagesReceived.Load(),
		InvalidMessagesReceived:        d.invalidMessagesReceived.Load(),
		IncomingMessagesMissed:         d.incomingMessagesMissed.Load(),
		UnexpectedSendResultInterrupts: d.unexpectedSendResultInterrupts.Load(),
		LostTransmitInterrupts:         d.lostTransmitInterrupts.Load(),
	}
}
