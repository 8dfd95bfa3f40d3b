// Package varalloc implements the Variable-Length Allocation Helper
// (§4.6): a thin, length-prefixed view over a single PSE section, used by
// consumers (a sensor record repository, FRU data) that need a
// variable-size blob rather than the PSE's own fixed-size sections.
package varalloc

import (
	"encoding/binary"
	"sync"

	"pmc-core/internal/pse"
)

const lengthPrefixSize = 2 // {length: u16}

// View is one variable-length allocation, serialized by its own mutex on
// top of the PSE's own guarantees (§4.6).
type View struct {
	mu      sync.Mutex
	storage *pse.PSE
	id      uint16
	version uint16
}

// New builds a View over section id/version in storage. No allocation
// happens until the first SetData or GetData call.
func New(storage *pse.PSE, id uint16, version uint16) *View {
	return &View{storage: storage, id: id, version: version}
}

// GetData returns a copy of the current variable-length payload, or an
// empty slice if the section has never been written.
func (v *View) GetData() ([]byte, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	_, length, ok := v.storage.SectionByteRange(v.id)
	if !ok {
		return nil, nil
	}
	buf, err := v.storage.GetSection(v.id, v.version, length)
	if err != nil {
		return nil, err
	}
	n := int(binary.LittleEndian.Uint16(buf[0:lengthPrefixSize]))
	if max := len(buf) - lengthPrefixSize; n > max { // defensive: never trust a corrupt prefix past the buffer
		n = max
	}
	out := make([]byte, n)
	copy(out, buf[lengthPrefixSize:lengthPrefixSize+n])
	return out, nil
}

// SetData stores data, resizing the underlying PSE section (by deleting
// and reallocating) only when the required page count has changed; an
// in-place rewrite is used otherwise so callers touching the same size
// repeatedly don't churn the index or disturb page wear unnecessarily.
// If cb is non-nil, SetData blocks until the new data is flushed to the
// backing EEPROM (§4.6). Its boolean result reports whether the section
// could be (re)allocated and the data staged and queued for flushing; a
// failed EEPROM page write does not change it.
func (v *View) SetData(data []byte, cb func()) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	needed := lengthPrefixSize + len(data)
	neededPages := ceilDiv(needed, v.storage.PageSize())

	if _, curLen, exists := v.storage.SectionByteRange(v.id); exists {
		curPages := ceilDiv(curLen, v.storage.PageSize())
		if curPages != neededPages {
			if err := v.storage.DeleteSection(v.id); err != nil {
				return false
			}
		}
	}

	buf, err := v.storage.GetSection(v.id, v.version, needed)
	if err != nil {
		return false
	}
	binary.LittleEndian.PutUint16(buf[0:lengthPrefixSize], uint16(len(data)))
	copy(buf[lengthPrefixSize:], data)

	start, length, ok := v.storage.SectionByteRange(v.id)
	if !ok {
		return false
	}
	if cb != nil {
		v.storage.Flush(start, length, pse.PriorityDriver, cb)
	} else {
		v.storage.Flush(start, length, pse.PriorityBackground, nil)
	}
	return true
}

func ceilDiv(a, b int) int { return (a + b - 1) / b }
