// Package zcopy implements the pooled output buffer the session uses to
// serialize result frames (spec.md §5 "Zero-copy output buffer"). Growth
// releases the previous buffer back to the pool before the new one is
// written into; final extraction transfers ownership to the caller and
// clears every internal mapping, so a leftover mapping after Extract is a
// programmer error rather than a state the type tolerates silently.
package zcopy

import "sync"

const defaultCapacity = 4096

var pool = sync.Pool{
	New: func() any {
		buf := make([]byte, 0, defaultCapacity)
		return &buf
	},
}

// Buffer grows a pooled byte slice on demand, tracking which reserved
// regions have not yet been released so an Extract with an outstanding
// reservation is detectable.
type Buffer struct {
	buf     *[]byte
	offsets map[int]struct{}
	next    int
}

// New returns a Buffer backed by a pooled byte slice.
func New() *Buffer {
	return &Buffer{
		buf:     pool.Get().(*[]byte),
		offsets: make(map[int]struct{}),
	}
}

// Reserve appends n zero bytes and returns a handle to the region, growing
// the underlying slice (and releasing the prior one back to the pool
// first) if needed.
func (b *Buffer) Reserve(n int) (offset int, handle int) {
	cur := *b.buf
	if len(cur)+n > cap(cur) {
		b.grow(len(cur) + n)
		cur = *b.buf
	}
	offset = len(cur)
	*b.buf = cur[:offset+n]
	clear(cur[offset : offset+n])
	handle = b.next
	b.offsets[handle] = struct{}{}
	b.next++
	return offset, handle
}

// Release marks handle's region as no longer owned by the caller. It does
// not shrink or compact the buffer; it only clears the bookkeeping entry.
func (b *Buffer) Release(handle int) {
	delete(b.offsets, handle)
}

// Region returns the n bytes reserved at offset, for the caller to write
// into directly. The returned slice aliases the buffer's live backing
// array and is only valid until the next Reserve triggers a grow.
func (b *Buffer) Region(offset, n int) []byte {
	return (*b.buf)[offset : offset+n]
}

// grow replaces the underlying slice with a larger, newly allocated one,
// copying the bytes written so far and releasing the previous slice back
// to the pool before the new one is written into (spec.md §5 contract).
func (b *Buffer) grow(minCap int) {
	newCap := cap(*b.buf) * 2
	if newCap < minCap {
		newCap = minCap
	}
	old := b.buf
	next := make([]byte, len(*old), newCap)
	copy(next, *old)

	*old = (*old)[:0]
	pool.Put(old)

	b.buf = &next
}

// Extract transfers the remaining owned bytes to the caller. All internal
// mappings must be empty at this point; a non-empty map means some
// Reserve'd region was never Release'd, which is a programmer error and
// panics rather than returning a silently truncated buffer.
func (b *Buffer) Extract() []byte {
	if len(b.offsets) != 0 {
		panic("zcopy: Extract called with outstanding unreleased regions")
	}
	out := *b.buf
	b.buf = nil
	return out
}

// Recycle returns buf to the pool after the caller is done with bytes
// produced by Extract. It is the caller's responsibility not to retain buf
// past this call.
func Recycle(buf []byte) {
	reset := buf[:0]
	pool.Put(&reset)
}
