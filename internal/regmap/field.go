package regmap

import "pmc-core/x/mathx"

// Field describes a packed bit field [lo, hi] (inclusive) within a 32-bit
// register, in the style of the PL IP documentation (§6): pin config
// fields like "[15:0] owning_zone", "[16] active_level" are expressed this
// way rather than as ad-hoc shifts scattered through callers.
type Field struct {
	Lo, Hi uint8
}

func (f Field) mask() uint32 {
	width := uint32(f.Hi-f.Lo) + 1
	if width >= 32 {
		return 0xFFFFFFFF
	}
	return (uint32(1)<<width - 1) << f.Lo
}

// Get extracts the field's value from a register word.
func (f Field) Get(reg uint32) uint32 {
	return (reg & f.mask()) >> f.Lo
}

// Set returns reg with the field replaced by v, clamping v to the field's
// width so a caller-supplied value can never bleed into neighboring bits.
func (f Field) Set(reg uint32, v uint32) uint32 {
	width := uint32(f.Hi-f.Lo) + 1
	var maxV uint32 = 0xFFFFFFFF
	if width < 32 {
		maxV = uint32(1)<<width - 1
	}
	v = mathx.Clamp(v, 0, maxV)
	return (reg &^ f.mask()) | (v << f.Lo)
}

// Bit is a one-bit Field.
func Bit(n uint8) Field { return Field{Lo: n, Hi: n} }

// GetBit/SetBit are convenience wrappers over Bit for boolean flags such
// as active_level and drive_enable.
func GetBit(reg uint32, n uint8) bool { return Bit(n).Get(reg) != 0 }

func SetBit(reg uint32, n uint8, v bool) uint32 {
	var bit uint32
	if v {
		bit = 1
	}
	return Bit(n).Set(reg, bit)
}
