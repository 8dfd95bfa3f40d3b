package sp

// ThrCfg holds the six raw-unit thresholds a channel compares its reading
// against (§3).
type ThrCfg struct {
	LNC, LCR, LNR uint16
	UNC, UCR, UNR uint16
}

// HystCfg is the positive/negative hysteresis band applied around each
// threshold before a deassert is recognized.
type HystCfg struct {
	HystPos, HystNeg uint16
}

// Event is what the interrupt path delivers: the channel, the raw reading
// sampled at the moment of the interrupt, and the latched assert/deassert
// bitmasks that triggered it (§4.3).
type Event struct {
	Channel           int
	Reading           uint32
	AssertMask        uint16
	DeassertMask      uint16
}

// Empty reports whether an Event carries no signaled bits, used by
// callers the way the original driver's AlertEvent.Empty() is.
func (e Event) Empty() bool { return e.AssertMask == 0 && e.DeassertMask == 0 }

// RawReader is the capability trait Design Notes §9 calls for: "anything
// with read_raw(channel) -> u32 is an ADC." The SP depends on exactly
// this, and nothing wider: no inheritance, no driver-specific type.
// Implementations must be ISR-safe: bounded, non-blocking, no allocation.
type RawReader interface {
	ReadRaw(channel int) uint32
}

// RawReaderFunc adapts a plain function to RawReader.
type RawReaderFunc func(channel int) uint32

func (f RawReaderFunc) ReadRaw(channel int) uint32 { return f(channel) }
