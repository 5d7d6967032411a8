// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package flight

import (
	"sort"

	"github.com/pion/flight/pkg/protocol/handshake"
)

// maxHandshakeLength caps the declared length of a single handshake
// message, bounding what a peer can make us allocate. 2 megabytes.
const maxHandshakeLength = 2000000

type fragment struct {
	offset uint32
	data   []byte
}

// reassembler accumulates the fragments of one handshake message and
// reports completion. The first fragment fixes the message type and full
// length; fragments disagreeing with them are dropped. Overlapping and
// duplicate fragments are legal, only uncovered byte ranges are stored.
type reassembler struct {
	typ    handshake.Type
	length uint32

	// non-overlapping chunks, sorted by offset.
	frags []*fragment

	receivedLength uint32 // union length of covered bytes (no double-counting)
}

func newReassembler(typ handshake.Type, length uint32) *reassembler {
	return &reassembler{typ: typ, length: length}
}

// scanUncovered iterates uncovered sub-ranges of [start,end) given existing
// non-overlapping, sorted fragments. visit is called with [uStart,uEnd) in
// ascending order.
func (r *reassembler) scanUncovered(start, end uint32, visit func(uStart, uEnd uint32)) {
	if start >= end {
		return
	}

	// find first fragment with end > start.
	i := sort.Search(len(r.frags), func(i int) bool {
		existing := r.frags[i]

		return existing.offset+uint32(len(existing.data)) > start
	})

	pos := start
	for ; i < len(r.frags); i++ {
		existing := r.frags[i]
		existingStart := existing.offset
		if existingStart >= end {
			break
		}
		existingEnd := existingStart + uint32(len(existing.data))

		if existingStart > pos {
			uEnd := existingStart
			if uEnd > end {
				uEnd = end
			}
			if uEnd > pos {
				visit(pos, uEnd)
			}
		}

		if existingEnd > pos {
			pos = existingEnd
			if pos >= end {
				return
			}
		}
	}

	if pos < end {
		visit(pos, end)
	}
}

// insertMany merges a sorted list of new fragments into the existing
// sorted list.
func (r *reassembler) insertMany(newFrags []*fragment) {
	if len(newFrags) == 0 {
		return
	}

	if len(r.frags) == 0 {
		r.frags = newFrags

		return
	}

	merged := make([]*fragment, 0, len(r.frags)+len(newFrags))
	i, j := 0, 0
	for i < len(r.frags) && j < len(newFrags) {
		if r.frags[i].offset < newFrags[j].offset {
			merged = append(merged, r.frags[i])
			i++
		} else {
			merged = append(merged, newFrags[j])
			j++
		}
	}
	merged = append(merged, r.frags[i:]...)
	merged = append(merged, newFrags[j:]...)

	r.frags = merged
}

// contribute merges the fragment data covering
// [fragmentOffset, fragmentOffset+len(data)) into the reassembler.
// Fragments whose type or length disagree with the first contribution are
// dropped silently, as is anything past the declared message length.
func (r *reassembler) contribute(typ handshake.Type, length, fragmentOffset uint32, data []byte) {
	if typ != r.typ || length != r.length {
		return
	}

	fragStart := fragmentOffset
	fragEnd := fragStart + uint32(len(data))
	if fragStart > r.length || fragEnd > r.length {
		return
	}

	// already complete, nothing to store.
	if r.complete() {
		return
	}

	var newFrags []*fragment
	store := func(uStart, uEnd uint32) {
		if uEnd <= uStart {
			return
		}
		chunk := make([]byte, uEnd-uStart)
		copy(chunk, data[uStart-fragStart:uEnd-fragStart])
		newFrags = append(newFrags, &fragment{offset: uStart, data: chunk})
		r.receivedLength += uEnd - uStart
	}

	if len(r.frags) == 0 {
		store(fragStart, fragEnd)
	} else {
		r.scanUncovered(fragStart, fragEnd, store)
	}

	r.insertMany(newFrags)
}

func (r *reassembler) complete() bool {
	return r.receivedLength == r.length
}

// bodyIfComplete reassembles the message body once the union of received
// fragments covers the full declared length, and nil before that. It does
// not change any state.
func (r *reassembler) bodyIfComplete() []byte {
	if !r.complete() {
		return nil
	}

	body := make([]byte, r.length)
	for _, frag := range r.frags {
		copy(body[frag.offset:], frag.data)
	}

	return body
}

// reset discards all received data but keeps the message type and length,
// so a re-received identical message completes exactly as before.
func (r *reassembler) reset() {
	r.frags = nil
	r.receivedLength = 0
}
