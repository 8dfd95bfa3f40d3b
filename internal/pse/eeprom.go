package pse

import "pmc-core/errcode"

// EEPROM is the byte-addressed, paged backing device (§6). The PSE assumes
// TotalPages() <= 65535 so page offsets fit in a uint16 index record.
type EEPROM interface {
	PageSize() int
	TotalPages() int
	ReadPage(page int, dst []byte) error
	WritePage(page int, src []byte) error
}

// SimEEPROM is an in-memory EEPROM, standing in for real hardware in tests
// and the host demo exactly as the HAL's driver_host.go simulated devices
// stand in for silicon. FailPages lets a test force a write to fail on
// specific pages to exercise the PSE's retry-next-cycle behavior.
type SimEEPROM struct {
	pageSize int
	data     []byte
	FailPages map[int]bool
}

func NewSimEEPROM(pageSize, totalPages int) *SimEEPROM {
	e := &SimEEPROM{pageSize: pageSize, data: make([]byte, pageSize*totalPages)}
	for i := range e.data {
		e.data[i] = 0xFF // erased EEPROM reads as all-ones
	}
	return e
}

func (e *SimEEPROM) PageSize() int   { return e.pageSize }
func (e *SimEEPROM) TotalPages() int { return len(e.data) / e.pageSize }

func (e *SimEEPROM) ReadPage(page int, dst []byte) error {
	if page < 0 || page >= e.TotalPages() {
		return errcode.Error
	}
	off := page * e.pageSize
	copy(dst, e.data[off:off+e.pageSize])
	return nil
}

func (e *SimEEPROM) WritePage(page int, src []byte) error {
	if page < 0 || page >= e.TotalPages() {
		return errcode.Error
	}
	if e.FailPages != nil && e.FailPages[page] {
		return errcode.EepromWriteFailed
	}
	off := page * e.pageSize
	copy(e.data[off:off+e.pageSize], src)
	return nil
}
