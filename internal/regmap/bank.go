// Package regmap is the register map abstraction (§4.1): a thin typed
// layer mapping (base, offset) -> uint32 reads/writes, plus small
// packed-bit-field helpers. No locking and no side-effect modeling belongs
// here; that is every caller's job. Out-of-range channel/zone/pin
// indices are the caller's responsibility to reject before reaching a
// Bank; this layer never validates indices.
package regmap

// Bank is a 32-bit-word-addressed register window. Offsets are in bytes,
// matching the PL IP documentation (§6), and must be word-aligned; MMIOBank
// divides by 4 to index its word slice, SimBank keys words by the byte
// offset itself.
type Bank interface {
	ReadReg(off uint32) uint32
	WriteReg(off uint32, v uint32)
}

// MMIOBank is a Bank over a slice standing in for a memory-mapped
// register window. A bare Go process has no way to reach real PL MMIO
// space, so this plays the role a build-tagged real-silicon driver would:
// the shape a genuine memory-mapped backend would have, with the mapping
// itself swapped for something portable.
type MMIOBank struct {
	words []uint32
}

// NewMMIOBank allocates a window sized bytes bytes (rounded up to a whole
// word).
func NewMMIOBank(bytes int) *MMIOBank {
	n := (bytes + 3) / 4
	if n <= 0 {
		n = 1
	}
	return &MMIOBank{words: make([]uint32, n)}
}

func (b *MMIOBank) ReadReg(off uint32) uint32 {
	i := off / 4
	if int(i) >= len(b.words) {
		return 0
	}
	return b.words[i]
}

func (b *MMIOBank) WriteReg(off uint32, v uint32) {
	i := off / 4
	if int(i) >= len(b.words) {
		return
	}
	b.words[i] = v
}

// SimBank is a Bank with injectable hooks, used by component tests and by
// the host demo to model hardware side effects (e.g. a write to a command
// register causing a later read to reflect a transitioned state) without a
// real PL IP. It is the register-level analogue of the HAL's
// driver_host.go simulated devices.
type SimBank struct {
	words   map[uint32]uint32
	OnRead  func(off uint32, cur uint32) uint32
	OnWrite func(off uint32, v uint32)
}

func NewSimBank() *SimBank {
	return &SimBank{words: make(map[uint32]uint32)}
}

func (b *SimBank) ReadReg(off uint32) uint32 {
	v := b.words[off]
	if b.OnRead != nil {
		v = b.OnRead(off, v)
	}
	return v
}

func (b *SimBank) WriteReg(off uint32, v uint32) {
	b.words[off] = v
	if b.OnWrite != nil {
		b.OnWrite(off, v)
	}
}

// Poke/Peek let tests set up or inspect state without going through
// OnRead/OnWrite side effects.
func (b *SimBank) Poke(off uint32, v uint32) { b.words[off] = v }
func (b *SimBank) Peek(off uint32) uint32    { return b.words[off] }
