package imt

import "pmc-core/errcode"

// I2CAdapter exposes a Device as a tinygo.org/x/drivers.I2C-shaped
// transport: IPMB is I2C at the wire level (§6), so any driver already
// written against that ecosystem's minimal `Tx(addr, w, r) error`
// interface (as drivers/ltc4015 is) can issue a
// pre-framed IPMB transaction as if it were a plain I2C write. Reads are
// not meaningful over IPMB's half-duplex send/receive model and are
// rejected rather than faked.
type I2CAdapter struct {
	dev     *Device
	retries int
}

// NewI2CAdapter wraps dev for use wherever a drivers.I2C is expected.
// retries is forwarded to every Tx's underlying Send.
func NewI2CAdapter(dev *Device, retries int) *I2CAdapter {
	return &I2CAdapter{dev: dev, retries: retries}
}

// Tx implements tinygo.org/x/drivers.I2C. w must already be a complete,
// checksummed IPMB frame (header, body, and both checksums); Tx does not
// construct one. A non-nil r is rejected: IMT has no synchronous
// request/response primitive, only send() and asynchronous slave
// delivery.
func (a *I2CAdapter) Tx(addr uint16, w, r []byte) error {
	if len(r) > 0 {
		return errcode.Unsupported
	}
	if len(w) == 0 {
		return nil
	}
	if !a.dev.SendRaw(byte(addr<<1), w, a.retries) {
		return errcode.SendNotComplete
	}
	return nil
}
