// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package flight

import (
	"github.com/pion/flight/pkg/protocol/handshake"
)

// handshakeRetransmit answers retransmits of the peer's last flight after
// the handshake has concluded.
//
// RFC 6347 4.2.4: for at least twice the default MSL defined for TCP, when
// in the FINISHED state, the node that transmits the last flight MUST
// respond to a retransmit of the peer's last flight with a retransmit of
// the last flight. The record layer owns the grace window and feeds us
// each incoming handshake record until it closes.
type handshakeRetransmit struct {
	transport *Transport
}

// OnHandshakeRecord implements RetransmitHandler.
func (r *handshakeRetransmit) OnHandshakeRecord(_ uint16, data []byte) error {
	// TODO Handle the case where the previous inbound flight contains
	// messages from two epochs.
	transport := r.transport

	if len(data) < handshake.HeaderLength {
		return nil
	}
	var header handshake.Header
	if err := header.Unmarshal(data); err != nil {
		return nil //nolint:nilerr
	}
	if len(data) != int(header.FragmentLength)+handshake.HeaderLength {
		return nil
	}
	if header.MessageSequence >= transport.nextReceiveSeq {
		return nil
	}
	if header.FragmentOffset+header.FragmentLength > header.Length {
		return nil
	}

	reassembler, ok := transport.previousInboundFlight[header.MessageSequence]
	if !ok {
		return nil
	}
	reassembler.contribute(header.Type, header.Length, header.FragmentOffset, data[handshake.HeaderLength:])

	if transport.previousInboundFlight.complete() {
		transport.log.Tracef("previous flight re-received after finish, retransmitting last flight")
		if err := transport.resendOutboundFlight(); err != nil {
			return err
		}
		transport.previousInboundFlight.resetAll()
	}

	return nil
}
