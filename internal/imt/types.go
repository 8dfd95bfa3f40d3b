// Package imt implements the IPMB Slave/Master Transceiver (§4.2): a
// half-duplex, role-switching I2C station that frames outbound messages,
// drives the bus as master, and returns to listening slave between sends.
package imt

import "pmc-core/errcode"

// MaxDataLen and BufSize bound an accepted frame (§6, §9 Open Questions):
// the wire format admits up to ~25 data bytes; the receive buffer carries
// a safety margin above the documented 32-byte maximum frame.
const (
	MaxDataLen = 25
	BufSize    = 40
	MaxFrame   = 32
)

// IpmiMessage is the typed form of one IPMB frame (§3): target/requester
// addressing, netFn/LUN pair, command, and up to MaxDataLen data bytes.
// Both checksums are computed, never stored. Parse validates them on the
// way in and Unparse regenerates them on the way out.
type IpmiMessage struct {
	RsSA  byte
	NetFn byte
	RsLUN byte
	RqSA  byte
	RqSeq byte
	RqLUN byte
	Cmd   byte
	Data  []byte
}

// Equal compares two messages field-by-field, treating a nil Data and an
// empty Data as equal (§8 property 6: round-tripping a zero-length-data
// message must not fail equality on that technicality alone).
func (m IpmiMessage) Equal(o IpmiMessage) bool {
	if m.RsSA != o.RsSA || m.NetFn != o.NetFn || m.RsLUN != o.RsLUN ||
		m.RqSA != o.RqSA || m.RqSeq != o.RqSeq || m.RqLUN != o.RqLUN || m.Cmd != o.Cmd {
		return false
	}
	if len(m.Data) != len(o.Data) {
		return false
	}
	for i := range m.Data {
		if m.Data[i] != o.Data[i] {
			return false
		}
	}
	return true
}

// checksum returns the 2's-complement of the byte sum over bs, the
// convention both IPMB checksums use (§6).
func checksum(bs ...byte) byte {
	var sum byte
	for _, b := range bs {
		sum += b
	}
	return -sum
}

// checksumValid reports whether bs sums to zero mod 256, true exactly
// when the last byte of bs is the correct checksum of the bytes before it.
func checksumValid(bs ...byte) bool {
	var sum byte
	for _, b := range bs {
		sum += b
	}
	return sum == 0
}

// Unparse serializes m into its wire form: rsSA, netFn<<2|rsLUN, csum1,
// rqSA, rqSeq<<2|rqLUN, cmd, data..., csum2.
func Unparse(m IpmiMessage) []byte {
	netFnLUN := m.NetFn<<2 | (m.RsLUN & 0x3)
	header := [2]byte{m.RsSA, netFnLUN}
	csum1 := checksum(header[0], header[1])

	body := make([]byte, 0, 3+len(m.Data))
	body = append(body, m.RqSA, m.RqSeq<<2|(m.RqLUN&0x3), m.Cmd)
	body = append(body, m.Data...)
	csum2 := checksum(body...)

	out := make([]byte, 0, 2+1+len(body)+1)
	out = append(out, header[0], header[1], csum1)
	out = append(out, body...)
	out = append(out, csum2)
	return out
}

// Parse decodes a wire frame into an IpmiMessage, verifying both checksums
// (§3 invariant, §8 property 7). A length or checksum failure returns
// errcode.InvalidFrame; the caller is expected to count and drop, not log
// per-byte diagnostics (§4.2).
func Parse(buf []byte) (IpmiMessage, error) {
	const minLen = 7 // rsSA, netFnLUN, csum1, rqSA, rqSeqLUN, cmd, csum2
	if len(buf) < minLen {
		return IpmiMessage{}, errcode.InvalidFrame
	}
	if !checksumValid(buf[0], buf[1], buf[2]) {
		return IpmiMessage{}, errcode.InvalidFrame
	}
	dataLen := len(buf) - minLen
	if dataLen > MaxDataLen {
		return IpmiMessage{}, errcode.InvalidFrame
	}
	if !checksumValid(buf[3 : 6+dataLen+1]...) {
		return IpmiMessage{}, errcode.InvalidFrame
	}

	m := IpmiMessage{
		RsSA:  buf[0],
		NetFn: buf[1] >> 2,
		RsLUN: buf[1] & 0x3,
		RqSA:  buf[3],
		RqSeq: buf[4] >> 2,
		RqLUN: buf[4] & 0x3,
		Cmd:   buf[5],
	}
	if dataLen > 0 {
		m.Data = append([]byte(nil), buf[6:6+dataLen]...)
	}
	return m, nil
}
