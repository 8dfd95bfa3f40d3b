package pse

import "pmc-core/errcode"

func ceilDiv(a, b int) int { return (a + b - 1) / b }

func (ps *PSE) findRecordLocked(recs []IndexRecord, id uint16) (IndexRecord, int) {
	for i, r := range recs {
		if r.ID == id {
			return r, i
		}
	}
	return IndexRecord{}, -1
}

// PageSize returns the EEPROM's page size in bytes.
func (ps *PSE) PageSize() int { return ps.pageSize }

// SectionByteRange returns the byte offset and allocated length of an
// existing section, used by consumers such as the variable-length
// allocation helper that need to schedule a flush of exactly their own
// section rather than the whole image.
func (ps *PSE) SectionByteRange(id uint16) (start, length int, ok bool) {
	ps.indexMu.Lock()
	defer ps.indexMu.Unlock()
	r, idx := ps.findRecordLocked(ps.readIndexLocked(), id)
	if idx < 0 {
		return 0, 0, false
	}
	return int(r.PageOffset) * ps.pageSize, int(r.PageCount) * ps.pageSize, true
}

// GetSectionVersion returns the on-RAM version for id, or 0 if absent.
func (ps *PSE) GetSectionVersion(id uint16) uint16 {
	ps.indexMu.Lock()
	defer ps.indexMu.Unlock()
	r, idx := ps.findRecordLocked(ps.readIndexLocked(), id)
	if idx < 0 {
		return 0
	}
	return r.Version
}

// SetSectionVersion updates a section's version and schedules an index
// flush. The section must already exist.
func (ps *PSE) SetSectionVersion(id uint16, v uint16) error {
	ps.indexMu.Lock()
	defer ps.indexMu.Unlock()
	recs := ps.readIndexLocked()
	_, idx := ps.findRecordLocked(recs, id)
	if idx < 0 {
		return errcode.AllocationFailed
	}
	recs[idx].Version = v
	ps.writeIndexLocked(recs)
	ps.enqueueIndexFlushLocked()
	return nil
}

// ListSections returns the current index snapshot.
func (ps *PSE) ListSections() []IndexRecord {
	ps.indexMu.Lock()
	defer ps.indexMu.Unlock()
	return ps.readIndexLocked()
}

// GetSection is the only way to obtain a writable view onto a section. It
// allocates on first call and fails (nil, err) on a version or size
// mismatch; the caller treats both as "not found" per §7.
func (ps *PSE) GetSection(id uint16, version uint16, size int) ([]byte, error) {
	if id == 0 {
		return nil, errcode.AllocationFailed
	}
	pg := ceilDiv(size, ps.pageSize)
	if pg == 0 {
		pg = 1
	}

	ps.indexMu.Lock()
	defer ps.indexMu.Unlock()
	recs := ps.readIndexLocked()
	existing, idx := ps.findRecordLocked(recs, id)

	if idx >= 0 {
		if existing.Version != version {
			return nil, errcode.VersionMismatch
		}
		if pg > int(existing.PageCount) {
			return nil, errcode.SizeOverflow
		}
		base := int(existing.PageOffset) * ps.pageSize
		return ps.data[base : base+size], nil
	}

	candidate, err := ps.findFreeRangeLocked(recs, pg)
	if err != nil {
		return nil, err
	}
	newRec := IndexRecord{ID: id, PageOffset: uint16(candidate), PageCount: uint16(pg), Version: version}
	recs = append(recs, newRec)
	ps.writeIndexLocked(recs)
	ps.enqueueIndexFlushLocked()

	base := candidate * ps.pageSize
	return ps.data[base : base+size], nil
}

// findFreeRangeLocked implements the first-fit-from-the-top algorithm
// (§4.5): starting at the top of the EEPROM, walk downward past any
// overlapping section until either a free candidate is found or the
// candidate would collide with the (growing) index.
func (ps *PSE) findFreeRangeLocked(recs []IndexRecord, pg int) (int, error) {
	candidate := ps.numPages - pg
	minDataPage := ceilDiv(indexBytesFor(len(recs)+1), ps.pageSize)

	for {
		if candidate < minDataPage {
			return 0, errcode.AllocationFailed
		}
		cand := IndexRecord{PageOffset: uint16(candidate), PageCount: uint16(pg)}
		blocked := false
		for _, r := range recs {
			if cand.overlaps(r) {
				candidate = int(r.PageOffset) - pg
				blocked = true
				break
			}
		}
		if !blocked {
			return candidate, nil
		}
	}
}

// DeleteSection shift-removes a section's index record. The underlying
// pages are not zeroed; this is not a security boundary (§4.5).
func (ps *PSE) DeleteSection(id uint16) error {
	ps.indexMu.Lock()
	defer ps.indexMu.Unlock()
	recs := ps.readIndexLocked()
	_, idx := ps.findRecordLocked(recs, id)
	if idx < 0 {
		return errcode.AllocationFailed
	}
	recs = append(recs[:idx], recs[idx+1:]...)
	ps.writeIndexLocked(recs)
	ps.enqueueIndexFlushLocked()
	return nil
}
