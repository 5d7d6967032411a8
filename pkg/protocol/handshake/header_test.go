// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package handshake

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderRoundtrip(t *testing.T) {
	header := Header{
		Type:            TypeClientHello,
		Length:          0x030201,
		MessageSequence: 0x0405,
		FragmentOffset:  0x060708,
		FragmentLength:  0x090a0b,
	}

	raw, err := header.Marshal()
	require.NoError(t, err)
	assert.Equal(t, []byte{
		0x01,
		0x03, 0x02, 0x01,
		0x04, 0x05,
		0x06, 0x07, 0x08,
		0x09, 0x0a, 0x0b,
	}, raw)
	assert.Len(t, raw, HeaderLength)

	var parsed Header
	require.NoError(t, parsed.Unmarshal(raw))
	assert.Equal(t, header, parsed)
}

func TestHeaderUnmarshalShortBuffer(t *testing.T) {
	var header Header
	assert.ErrorIs(t, header.Unmarshal(make([]byte, HeaderLength-1)), errBufferTooSmall)
}

func TestHeaderMarshalOverflow(t *testing.T) {
	header := Header{Type: TypeCertificate, Length: 1 << 24}
	_, err := header.Marshal()
	assert.ErrorIs(t, err, errLengthOverflow)
}

func TestMessageCanonicalHeader(t *testing.T) {
	msg := &Message{MessageSequence: 7, Type: TypeFinished, Body: []byte{0xde, 0xad, 0xbe, 0xef}}

	header := msg.Header()
	assert.Equal(t, Header{
		Type:            TypeFinished,
		Length:          4,
		MessageSequence: 7,
		FragmentOffset:  0,
		FragmentLength:  4,
	}, header)
}
