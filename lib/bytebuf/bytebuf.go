// Package bytebuf provides a growable read-accumulation buffer.
package bytebuf

import "io"

// Accumulator owns the pending, not-yet-decoded bytes of one stream.
// It accumulates reads until a full frame is available, grows by a fixed
// increment when spare capacity runs low, and discards decoded prefixes.
type Accumulator struct {
	buf []byte // filled region, including the consumed prefix.
	off int    // length of the consumed prefix.

	lowWater int
	growth   int
}

func NewAccumulator(initialCap, lowWater, growth uint) *Accumulator {
	return &Accumulator{
		buf:      make([]byte, 0, initialCap),
		lowWater: int(lowWater),
		growth:   int(growth),
	}
}

// Fill performs a single read from r into spare capacity.
// If spare capacity is below the low-water mark, the buffer is grown
// first so every read has room for a full increment.
func (a *Accumulator) Fill(r io.Reader) (int, error) {
	if a.spare() < a.lowWater {
		a.grow()
	}

	n, err := r.Read(a.buf[len(a.buf):cap(a.buf)])
	a.buf = a.buf[:len(a.buf)+n]
	return n, err
}

// Bytes returns the unconsumed window. It is only valid until the next
// Fill or Discard.
func (a *Accumulator) Bytes() []byte { return a.buf[a.off:] }

func (a *Accumulator) Len() int { return len(a.buf) - a.off }

// Cap returns the total capacity of the underlying storage.
func (a *Accumulator) Cap() int { return cap(a.buf) }

// Discard drops n bytes from the front of the unconsumed window.
// Call it with the decoded frame length before the next decode attempt.
func (a *Accumulator) Discard(n int) {
	if n < 0 || n > a.Len() {
		panic("bytebuf: discard out of range")
	}

	a.off += n
	if a.off == len(a.buf) {
		// Empty. Recycle the storage.
		a.buf = a.buf[:0]
		a.off = 0
	}
}

func (a *Accumulator) spare() int { return cap(a.buf) - len(a.buf) }

func (a *Accumulator) grow() {
	if a.off > 0 {
		// The consumed prefix holds fully decoded frames only,
		// so it is dead weight. Reclaim it before allocating.
		n := copy(a.buf, a.buf[a.off:])
		a.buf = a.buf[:n]
		a.off = 0
	}

	if a.spare() >= a.lowWater {
		return
	}

	next := make([]byte, len(a.buf), cap(a.buf)+a.growth)
	copy(next, a.buf)
	a.buf = next
}
