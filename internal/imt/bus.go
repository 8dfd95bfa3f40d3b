package imt

// Bus is the I2C controller capability the IMT drives through its role
// switching protocol (§4.2): wait for idle, reset, reconfigure, set mode,
// and, when returning to slave, repost the receive buffer. It is the
// IMT's equivalent of regmap.Bank: the thinnest shape that lets Device be
// tested against a simulated controller instead of real silicon.
type Bus interface {
	BusBusy() bool
	Reset()
	ConfigureClock(hz uint32)
	// EnterSlave configures address-matched slave reception into buf.
	EnterSlave(addr byte, buf []byte)
	// EnterMaster configures master mode; no receive buffer is posted.
	EnterMaster()
	// MasterSend issues an asynchronous send to addr (a 7-bit address).
	// The verdict is delivered later through Device.HandleSendEvent,
	// called from wherever the real or simulated interrupt fires.
	MasterSend(addr byte, data []byte)
}

// SimBus is an in-memory Bus standing in for the PS I2C controller in
// tests, matching the HAL's driver_host.go simulated-device pattern.
// OnMasterSend lets a test script the wire-level outcome of a send: call
// nothing to model "no device acknowledges" (the send times out), or
// invoke the owning Device's HandleSendEvent to model a real responder.
type SimBus struct {
	Busy         bool
	OnMasterSend func(addr byte, data []byte)

	ResetCount  int
	ClockHz     uint32
	SlaveAddr   byte
	SlaveBuf    []byte
	EnteredMaster bool
}

func NewSimBus() *SimBus { return &SimBus{} }

func (b *SimBus) BusBusy() bool { return b.Busy }

func (b *SimBus) Reset() { b.ResetCount++ }

func (b *SimBus) ConfigureClock(hz uint32) { b.ClockHz = hz }

func (b *SimBus) EnterSlave(addr byte, buf []byte) {
	b.EnteredMaster = false
	b.SlaveAddr = addr
	b.SlaveBuf = buf
}

func (b *SimBus) EnterMaster() { b.EnteredMaster = true }

func (b *SimBus) MasterSend(addr byte, data []byte) {
	if b.OnMasterSend != nil {
		b.OnMasterSend(addr, data)
	}
}
