// Package mzc implements the Management Zone Controller (§4.4): sequenced
// power-on/off of up to MaxPins enable pins grouped into up to MaxZones
// management zones, against a 64-bit hard-fault input vector, with
// per-pin timing and per-zone fault-holdoff windows.
package mzc

import (
	"pmc-core/errcode"
	"pmc-core/internal/regmap"
)

var (
	timerField = regmap.Field{Lo: 0, Hi: 15}
)

// Controller drives one Management Zone Controller PL IP instance through
// a register Bank. It holds no software state of its own beyond the bank
// reference: every query re-reads hardware, matching the original driver's
// stateless-wrapper design.
type Controller struct {
	bank regmap.Bank
}

func New(bank regmap.Bank) *Controller {
	return &Controller{bank: bank}
}

func validZone(z int) error {
	if z < 0 || z >= MaxZones {
		return errcode.InvalidZone
	}
	return nil
}

func validPin(p int) error {
	if p < 0 || p >= MaxPins {
		return errcode.InvalidPin
	}
	return nil
}

// SetZoneConfig programs every pin with a non-zero TimerMS into the zone's
// ownership, plus the zone's fault mask and holdoff window (§4.4). Pins
// with TimerMS == 0 are left untouched. "Not used by this zone" does not
// mean "clear this pin's existing configuration."
func (c *Controller) SetZoneConfig(z int, cfg ZoneConfig) error {
	if err := validZone(z); err != nil {
		return err
	}
	zoneBit := uint32(1) << uint(z)

	for pin := 0; pin < MaxPins; pin++ {
		pc := cfg.PwrEn[pin]
		if pc.TimerMS == 0 {
			continue
		}
		base := pinBase(pin)
		c.bank.WriteReg(base+pinCfg0Offset, msToTicks(pc.TimerMS))

		cfg1 := c.bank.ReadReg(base+pinCfg1Offset) | zoneBit
		cfg1 = regmap.SetBit(cfg1, 16, pc.ActiveLevel)
		cfg1 = regmap.SetBit(cfg1, 17, pc.DriveEnable)
		c.bank.WriteReg(base+pinCfg1Offset, cfg1)
	}

	zb := zoneBase(z)
	c.bank.WriteReg(zb+zoneHFMask0Offset, uint32(cfg.HardFaultMask))
	c.bank.WriteReg(zb+zoneHFMask1Offset, uint32(cfg.HardFaultMask>>32))
	c.bank.WriteReg(zb+zoneHoldoffOffset, msToTicks(cfg.FaultHoldoffMS))
	return nil
}

// GetZoneConfig reads back a zone's configuration, converting tick fields
// to milliseconds. Pins not owned by the zone report a zero PinConfig.
func (c *Controller) GetZoneConfig(z int) (ZoneConfig, error) {
	var cfg ZoneConfig
	if err := validZone(z); err != nil {
		return cfg, err
	}
	zoneBit := uint32(1) << uint(z)

	for pin := 0; pin < MaxPins; pin++ {
		base := pinBase(pin)
		owning := c.bank.ReadReg(base + pinCfg1Offset)
		if owning&zoneBit == 0 {
			continue
		}
		cfg.PwrEn[pin] = PinConfig{
			TimerMS:     ticksToMS(c.bank.ReadReg(base + pinCfg0Offset)),
			ActiveLevel: regmap.GetBit(owning, 16),
			DriveEnable: regmap.GetBit(owning, 17),
		}
	}

	zb := zoneBase(z)
	lo := uint64(c.bank.ReadReg(zb + zoneHFMask0Offset))
	hi := uint64(c.bank.ReadReg(zb + zoneHFMask1Offset))
	cfg.HardFaultMask = lo | (hi << 32)
	cfg.FaultHoldoffMS = ticksToMS(c.bank.ReadReg(zb + zoneHoldoffOffset))
	return cfg, nil
}

// GetZoneState computes the aggregate MZ_pwr for a zone from the
// individual states of the pins it owns, per the priority in §3:
// any TRANS_ON beats any TRANS_OFF beats any ON beats OFF.
func (c *Controller) GetZoneState(z int) (PwrState, error) {
	if err := validZone(z); err != nil {
		return PwrOff, err
	}
	zoneBit := uint32(1) << uint(z)

	var sawTransOn, sawTransOff, sawOn bool
	for pin := 0; pin < MaxPins; pin++ {
		base := pinBase(pin)
		owning := c.bank.ReadReg(base + pinCfg1Offset)
		if owning&zoneBit == 0 {
			continue
		}
		switch PwrState(c.bank.ReadReg(base+pinIndivStatOffset) & 0x3) {
		case PwrTransOn:
			sawTransOn = true
		case PwrTransOff:
			sawTransOff = true
		case PwrOn:
			sawOn = true
		}
	}
	switch {
	case sawTransOn:
		return PwrTransOn, nil
	case sawTransOff:
		return PwrTransOff, nil
	case sawOn:
		return PwrOn, nil
	default:
		return PwrOff, nil
	}
}

// PowerOnSequence and PowerOffSequence each initiate a zone's full
// sequence with a single register write; the PL IP owns the timing
// thereafter (§4.4 ordering/atomicity).
func (c *Controller) PowerOnSequence(z int) error {
	if err := validZone(z); err != nil {
		return err
	}
	c.bank.WriteReg(zoneBase(z)+zonePwrOnInitOffset, uint32(1)<<uint(z))
	return nil
}

func (c *Controller) PowerOffSequence(z int) error {
	if err := validZone(z); err != nil {
		return err
	}
	c.bank.WriteReg(zoneBase(z)+zonePwrOffInitOffset, uint32(1)<<uint(z))
	return nil
}

// DispatchSoftFault is software-originated, with effect identical to any
// enabled hard fault targeting this zone alone.
func (c *Controller) DispatchSoftFault(z int) error {
	if err := validZone(z); err != nil {
		return err
	}
	c.bank.WriteReg(zoneBase(z)+zoneSoftFaultOffset, uint32(1)<<uint(z))
	return nil
}

// Override registers let bring-up/lab tooling force pins to a value
// regardless of zone state (§4.4): one bit per pin, across three masks.
func (c *Controller) SetEnableOverride(mask uint32) {
	c.bank.WriteReg(regPwrEnOvrdEnable, mask)
}

func (c *Controller) SetOverrideDrive(mask uint32) {
	c.bank.WriteReg(regPwrEnOvrdDrive, mask)
}

func (c *Controller) SetOverrideLevel(mask uint32) {
	c.bank.WriteReg(regPwrEnOvrdLevel, mask)
}

// GetOverrideInput returns the raw pin level, meaningful when a pin is
// tri-stated under override.
func (c *Controller) GetOverrideInput() uint32 {
	return c.bank.ReadReg(regPwrEnOvrdRead)
}

// SetSequenceTimerMax and SequenceTimerMax write and read the hardware-wide
// ceiling register for pin sequence timers (§3, supplemented from the
// original IP). SetZoneConfig does not read this register: it programs
// each pin's timer exactly as requested.
func (c *Controller) SetSequenceTimerMax(ms uint16) {
	c.bank.WriteReg(regSequenceTimerMax, msToTicks(ms))
}

func (c *Controller) SequenceTimerMax() uint16 {
	return ticksToMS(c.bank.ReadReg(regSequenceTimerMax))
}

// IRQ status/enable/ack are bit-per-zone passthroughs (§4.4 IRQ semantics).
func (c *Controller) IRQStatus() uint32            { return c.bank.ReadReg(regIRQStatus) }
func (c *Controller) SetIRQEnable(mask uint32)     { c.bank.WriteReg(regIRQEnable, mask) }
func (c *Controller) IRQEnable() uint32            { return c.bank.ReadReg(regIRQEnable) }
func (c *Controller) AckIRQ(mask uint32)           { c.bank.WriteReg(regIRQAck, mask) }

// HardFaultStatus returns the raw 64-bit hard-fault input vector, split
// across the two status words the PL IP exposes.
func (c *Controller) HardFaultStatus() uint64 {
	lo := uint64(c.bank.ReadReg(regHardFaultStatus0))
	hi := uint64(c.bank.ReadReg(regHardFaultStatus1))
	return lo | (hi << 32)
}
