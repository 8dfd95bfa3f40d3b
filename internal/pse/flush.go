package pse

import (
	"context"
	"time"

	"pmc-core/internal/diagbus"
)

// Priority-bearing flush ordering (§4.5). A real RTOS applies this through
// the blocked caller's own task priority inherited onto the flush thread;
// Go has no per-goroutine priority to inherit, so the caller passes its
// priority explicitly and the ordering effect (a high-priority blocking
// flush overtakes a queued background job) is produced entirely by the
// queue's comparator rather than by boosting any goroutine's scheduling
// class. This is a deliberate, documented substitution for RTOS priority
// inheritance, not an approximation of it.
type Priority int

const (
	PriorityBackground Priority = 0
	PriorityDriver     Priority = 100
)

// flushReq is one entry in the PSE's flush-request queue (§4.5).
type flushReq struct {
	start, end int
	priority   Priority
	completion func()
	indexFlush bool
	requestedAt int64 // monotonic sequence, older is smaller
}

// flushReqLess implements the §4.5 ordering: index flushes first, then
// callback-bearing requests (blocked callers) in descending priority, then
// FIFO by request order.
func flushReqLess(a, b *flushReq) bool {
	if a.indexFlush != b.indexFlush {
		return a.indexFlush
	}
	aBlocking := a.completion != nil
	bBlocking := b.completion != nil
	if aBlocking != bBlocking {
		return aBlocking
	}
	if aBlocking && a.priority != b.priority {
		return a.priority > b.priority
	}
	return a.requestedAt < b.requestedAt
}

func (ps *PSE) nextSeq() int64 {
	return int64(ps.seq.Add(1))
}

// enqueueLocked pushes req and wakes the flush thread. Caller must hold
// queueMu.
func (ps *PSE) enqueueLocked(req *flushReq) {
	ps.queue.Push(req)
	select {
	case ps.wake <- struct{}{}:
	default:
	}
}

// Flush schedules the byte range [start, start+length) for a background
// write to the EEPROM. If completion is non-nil, Flush blocks the caller
// until the flush thread has applied this exact request and the cache
// mirror reflects the device for this range (§5 suspension points).
// priority only matters when completion is non-nil: it is compared against
// other callback-bearing requests and against any queued index flush,
// which is elevated to match if this request would otherwise be starved
// behind it.
func (ps *PSE) Flush(start, length int, priority Priority, completion func()) {
	if start < 0 {
		start = 0
	}
	end := start + length
	if end > len(ps.data) {
		end = len(ps.data)
	}

	var done chan struct{}
	cb := completion
	if completion != nil {
		done = make(chan struct{})
		user := completion
		cb = func() {
			user()
			close(done)
		}
	}

	req := &flushReq{start: start, end: end, priority: priority, completion: cb, requestedAt: ps.nextSeq()}

	ps.queueMu.Lock()
	if cb != nil {
		if top, ok := ps.queue.Peek(); ok && top.indexFlush && top.priority < priority {
			top.priority = priority
			ps.queue.Reorder()
		}
	}
	ps.enqueueLocked(req)
	ps.queueMu.Unlock()

	if done != nil {
		<-done
	}
}

// FlushAll schedules the entire image for a background flush, matching the
// flush thread's own idle-timeout behavior (§4.5).
func (ps *PSE) FlushAll() {
	ps.Flush(0, len(ps.data), PriorityBackground, nil)
}

// enqueueIndexFlushLocked synthesizes the single queued index-flush
// request covering [0, header+index_length). Caller must hold indexMu; it
// takes queueMu itself. If an index flush is already queued, its end is
// extended rather than a duplicate enqueued (§4.5).
func (ps *PSE) enqueueIndexFlushLocked() {
	recs := ps.readIndexLocked()
	end := headerSize + (len(recs)+1)*indexRecordSize
	if end > len(ps.data) {
		end = len(ps.data)
	}

	ps.queueMu.Lock()
	defer ps.queueMu.Unlock()
	if top, ok := ps.queue.Peek(); ok && top.indexFlush {
		if end > top.end {
			top.end = end
		}
		ps.queue.Reorder()
		return
	}
	req := &flushReq{start: 0, end: end, indexFlush: true, requestedAt: ps.nextSeq()}
	if top, ok := ps.queue.Peek(); ok {
		if top.priority > req.priority {
			req.priority = top.priority
		}
	}
	ps.enqueueLocked(req)
}

// Run is the flush thread (§5): it starts at driver priority only in the
// sense that New() performs the initial load inline before Run is ever
// started, then services the flush-request queue until ctx is canceled,
// falling back to a periodic full-image background flush when idle for
// flushTicks.
func (ps *PSE) Run(ctx context.Context, flushTicks time.Duration) {
	if flushTicks <= 0 {
		flushTicks = 10 * time.Second
	}
	timer := time.NewTimer(flushTicks)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ps.wake:
		case <-timer.C:
			ps.FlushAll()
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(flushTicks)

		for ps.drainOne() {
		}
	}
}

// drainOne services exactly one queued flush request, if any, returning
// whether it did. It is the unit the flush thread loops on between wake
// events.
func (ps *PSE) drainOne() bool {
	ps.queueMu.Lock()
	req, ok := ps.queue.Pop()
	ps.queueMu.Unlock()
	if !ok {
		return false
	}

	if err := ps.checkCanary(); err != nil {
		// Fatal: refuse all further flushing, but still invoke the
		// caller's completion so a blocked task does not hang forever on
		// a PSE that can no longer make progress.
		if req.completion != nil {
			req.completion()
		}
		return false
	}

	changed := ps.doFlushRangeLocked(req.start, req.end)
	if ps.watchdog != nil {
		ps.watchdog.Feed()
	}
	if req.completion != nil {
		req.completion()
	}
	if changed {
		ps.publish(diagbus.T("pse", "flush", "applied"), req.end-req.start)
	}
	return true
}

// doFlushRangeLocked rounds [start, end) to page boundaries and writes any
// differing page to the backing EEPROM, advancing cache only for pages
// that wrote successfully (§4.5 failure model: a failed page write is
// retried on the next cycle that touches it, never throttled).
func (ps *PSE) doFlushRangeLocked(start, end int) bool {
	start -= start % ps.pageSize
	if r := end % ps.pageSize; r != 0 {
		end += ps.pageSize - r
	}
	if end > len(ps.data) {
		end = len(ps.data)
	}

	changed := false
	for off := start; off < end; off += ps.pageSize {
		page := off / ps.pageSize
		pageEnd := off + ps.pageSize
		if bytesEqual(ps.data[off:pageEnd], ps.cache[off:pageEnd]) {
			continue
		}
		if err := ps.eeprom.WritePage(page, ps.data[off:pageEnd]); err != nil {
			continue
		}
		copy(ps.cache[off:pageEnd], ps.data[off:pageEnd])
		changed = true
	}
	return changed
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// UnflushedBytes reports how many bytes in [0, len(data)) currently differ
// between data and cache. Used by tests to observe flush progress (S3)
// without reaching into PSE internals.
func (ps *PSE) UnflushedBytes() int {
	ps.indexMu.Lock()
	defer ps.indexMu.Unlock()
	n := 0
	for i := range ps.data {
		if ps.data[i] != ps.cache[i] {
			n++
		}
	}
	return n
}
