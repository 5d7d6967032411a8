// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package handshake

import (
	"golang.org/x/crypto/cryptobyte"
)

// HeaderLength is the size of the fragmentable DTLS handshake header.
const HeaderLength = 12

// maxUint24 bounds the uint24 length fields of the header.
const maxUint24 = (1 << 24) - 1

// Header is the static first 12 bytes of each handshake record payload
// https://tools.ietf.org/html/rfc6347#section-4.2.2
//
//	 0                   1                   2                   3
//	 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|   msg_type    |                   length                      |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|          message_seq          |        fragment_offset        .
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	.  (cont)       |                fragment_length                |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
type Header struct {
	Type            Type
	Length          uint32 // uint24 in spec
	MessageSequence uint16
	FragmentOffset  uint32 // uint24 in spec
	FragmentLength  uint32 // uint24 in spec
}

// Marshal encodes the header to binary.
func (h *Header) Marshal() ([]byte, error) {
	if h.Length > maxUint24 || h.FragmentOffset > maxUint24 || h.FragmentLength > maxUint24 {
		return nil, errLengthOverflow
	}

	var builder cryptobyte.Builder
	builder.AddUint8(uint8(h.Type))
	builder.AddUint24(h.Length)
	builder.AddUint16(h.MessageSequence)
	builder.AddUint24(h.FragmentOffset)
	builder.AddUint24(h.FragmentLength)

	return builder.Bytes()
}

// Unmarshal populates the header from binary data.
func (h *Header) Unmarshal(data []byte) error {
	str := cryptobyte.String(data)

	var typ uint8
	if !str.ReadUint8(&typ) ||
		!str.ReadUint24(&h.Length) ||
		!str.ReadUint16(&h.MessageSequence) ||
		!str.ReadUint24(&h.FragmentOffset) ||
		!str.ReadUint24(&h.FragmentLength) {
		return errBufferTooSmall
	}
	h.Type = Type(typ)

	return nil
}
