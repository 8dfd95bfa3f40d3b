// Package boardpower adapts the battery-charger driver onto the Sensor
// Processor's RawReader capability trait (§4.3, §9): "anything with
// read_raw(channel) -> u32 is an ADC" is exactly satisfied by reading one
// field of an LTC4015 telemetry snapshot per channel, letting the SP's
// threshold/hysteresis engine watch charger rails the same way it watches
// any other analog input, without the SP knowing anything about I2C.
package boardpower

import (
	"pmc-core/drivers/ltc4015"
	"pmc-core/internal/sp"
)

// Channel assignments for a charger wired in as sensor channels.
const (
	ChannelPackMilliVolts   = 0
	ChannelBatteryMilliAmps = 1
	ChannelInputMilliVolts  = 2
	ChannelInputMilliAmps   = 3
)

// Reader adapts one ltc4015.Device onto sp.RawReader.
type Reader struct {
	dev *ltc4015.Device
}

var _ sp.RawReader = (*Reader)(nil)

func NewReader(dev *ltc4015.Device) *Reader { return &Reader{dev: dev} }

// ReadRaw takes a fresh telemetry snapshot and returns the engineering-unit
// reading for channel, clamped to zero for a charger rail that reads
// negative (e.g. a discharging pack's IBAT) since the SP's raw units are
// unsigned (§3). A failed underlying read surfaces as the snapshot's zero
// value, matching Snapshot's own "zero value where a read failed" contract.
func (r *Reader) ReadRaw(channel int) uint32 {
	s := r.dev.Snapshot()
	switch channel {
	case ChannelPackMilliVolts:
		return clampUint32(s.Pack_mV)
	case ChannelBatteryMilliAmps:
		return clampUint32(s.IBat_mA)
	case ChannelInputMilliVolts:
		return clampUint32(s.Vin_mV)
	case ChannelInputMilliAmps:
		return clampUint32(s.IIn_mA)
	default:
		return 0
	}
}

func clampUint32(v int32) uint32 {
	if v < 0 {
		return 0
	}
	return uint32(v)
}
