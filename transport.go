// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package flight implements the reliable handshake transport of DTLS
// (RFC 6347 4.2.4): it turns an unreliable, record-oriented datagram
// transport into an ordered, reliably delivered, fragment-reassembled
// stream of handshake messages, retransmitting whole flights under
// exponential backoff and maintaining the running handshake transcript
// hash for the cryptographic handshake above it.
package flight

import (
	"crypto"
	"math"
	"time"

	"github.com/pion/flight/pkg/crypto/transcript"
	"github.com/pion/flight/pkg/protocol/handshake"
	"github.com/pion/logging"
)

// maxReceiveAhead bounds how far past the next expected message_seq we
// buffer reassemblers.
const maxReceiveAhead = 10

// Transport is the reliable handshake engine bound to one DTLS
// association. It is owned by a single goroutine; no method may be called
// concurrently with another.
type Transport struct {
	recordLayer RecordLayer

	hash          transcript.Hash
	hashAlgorithm crypto.Hash

	currentInboundFlight  inboundFlight
	previousInboundFlight inboundFlight // nil once the peer has provably moved on
	outboundFlight        []*handshake.Message
	sending               bool

	nextSendSeq    uint16
	nextReceiveSeq uint16

	readTimeout    time.Duration
	maxReadTimeout time.Duration

	log logging.LeveledLogger
}

// NewTransport creates a handshake transport on top of recordLayer.
// config may be nil.
func NewTransport(recordLayer RecordLayer, config *Config) (*Transport, error) {
	if recordLayer == nil {
		return nil, errNilRecordLayer
	}
	if config == nil {
		config = &Config{}
	}

	return &Transport{
		recordLayer:          recordLayer,
		hash:                 transcript.NewDeferred(),
		hashAlgorithm:        config.transcriptAlgorithm(),
		currentInboundFlight: inboundFlight{},
		sending:              true,
		readTimeout:          config.initialRetransmitTimeout(),
		maxReadTimeout:       config.maxRetransmitTimeout(),
		log:                  config.loggerFactory().NewLogger("flight"),
	}, nil
}

// SendMessage queues body as the next handshake message of the current
// outbound flight and writes it to the record layer, fragmented to the
// current send limit. The first send after a receive starts a new flight.
func (t *Transport) SendMessage(typ handshake.Type, body []byte) error {
	if !t.sending {
		t.checkInboundFlight()
		t.sending = true
		t.outboundFlight = t.outboundFlight[:0]
	}

	if len(body) > maxHandshakeLength {
		return errMessageTooLarge
	}
	if t.nextSendSeq == math.MaxUint16 {
		return errSequenceNumberOverflow
	}

	msg := &handshake.Message{MessageSequence: t.nextSendSeq, Type: typ, Body: body}
	t.nextSendSeq++
	t.outboundFlight = append(t.outboundFlight, msg)

	if err := t.writeMessage(msg); err != nil {
		return err
	}

	return t.updateTranscript(msg)
}

// ReceiveMessage blocks until the next in-order handshake message has been
// fully reassembled, retransmitting the last outbound flight on timeout.
// Messages are delivered in ascending message_seq starting at 0.
func (t *Transport) ReceiveMessage() (*handshake.Message, error) {
	if t.sending {
		t.sending = false
		t.prepareInboundFlight()
	}

	// Check if we already have the next message waiting.
	if next, ok := t.currentInboundFlight[t.nextReceiveSeq]; ok {
		if body := next.bodyIfComplete(); body != nil {
			return t.deliver(next.typ, body)
		}
	}

	var buf []byte
	for {
		receiveLimit := t.recordLayer.ReceiveLimit()
		if len(buf) < receiveLimit {
			buf = make([]byte, receiveLimit)
		}

		// TODO Handle records containing multiple handshake messages.

		for {
			n, err := t.recordLayer.Receive(buf[:receiveLimit], t.readTimeout)
			if err != nil {
				// Assume this is a timeout for the moment.
				break
			}

			msg, err := t.handleRecord(buf[:n])
			if err != nil {
				return nil, err
			}
			if msg != nil {
				return msg, nil
			}
		}

		if err := t.resendOutboundFlight(); err != nil {
			return nil, err
		}
		t.backoffReadTimeout()
	}
}

// NotifyHelloComplete commits the transcript to the hash algorithm of the
// now-negotiated cipher suite.
func (t *Transport) NotifyHelloComplete() error {
	committed, err := t.hash.Commit(t.hashAlgorithm)
	if err != nil {
		return err
	}
	t.hash = committed

	return nil
}

// CurrentHash returns the digest of the handshake transcript so far. The
// live transcript is not disturbed.
func (t *Transport) CurrentHash() ([]byte, error) {
	snapshot, err := t.hash.Clone()
	if err != nil {
		return nil, err
	}

	return snapshot.Sum()
}

// ResetTranscript restarts the handshake transcript, as required when a
// HelloRequest begins renegotiation.
func (t *Transport) ResetTranscript() {
	t.hash.Reset()
}

// Finish concludes the handshake. The side that transmitted the final
// flight keeps answering retransmits of the peer's last flight through
// the record layer's grace window.
func (t *Transport) Finish() {
	var retransmit RetransmitHandler
	if !t.sending {
		t.checkInboundFlight()
	} else {
		t.prepareInboundFlight()
		if t.previousInboundFlight != nil {
			retransmit = &handshakeRetransmit{transport: t}
		}
	}

	t.recordLayer.HandshakeSuccessful(retransmit)
}

// handleRecord validates one incoming handshake record and contributes its
// fragment. It returns a non-nil message when the next in-order message
// became complete. Malformed or unusable records are dropped silently.
func (t *Transport) handleRecord(data []byte) (*handshake.Message, error) { //nolint:cyclop
	if len(data) < handshake.HeaderLength {
		return nil, nil
	}
	var header handshake.Header
	if err := header.Unmarshal(data); err != nil {
		return nil, nil //nolint:nilerr
	}
	if len(data) != int(header.FragmentLength)+handshake.HeaderLength {
		return nil, nil
	}
	if int(header.MessageSequence) > int(t.nextReceiveSeq)+maxReceiveAhead {
		return nil, nil
	}
	if header.FragmentOffset+header.FragmentLength > header.Length {
		return nil, nil
	}
	fragmentData := data[handshake.HeaderLength:]

	if header.MessageSequence < t.nextReceiveSeq {
		// If we receive the previous flight of incoming messages in full
		// again, retransmit our last flight.
		if t.previousInboundFlight == nil {
			return nil, nil
		}
		previous, ok := t.previousInboundFlight[header.MessageSequence]
		if !ok {
			return nil, nil
		}
		previous.contribute(header.Type, header.Length, header.FragmentOffset, fragmentData)

		if t.previousInboundFlight.complete() {
			t.log.Tracef("peer re-sent its previous flight, retransmitting ours")
			if err := t.resendOutboundFlight(); err != nil {
				return nil, err
			}

			// TODO Implementations SHOULD back off handshake packet size
			// during the retransmit backoff.
			t.backoffReadTimeout()

			t.previousInboundFlight.resetAll()
		}

		return nil, nil
	}

	current, ok := t.currentInboundFlight[header.MessageSequence]
	if !ok {
		if header.Length > maxHandshakeLength {
			t.log.Debugf("dropping handshake message (seq %d) with excessive length %d",
				header.MessageSequence, header.Length)

			return nil, nil
		}
		current = newReassembler(header.Type, header.Length)
		t.currentInboundFlight[header.MessageSequence] = current
	}

	current.contribute(header.Type, header.Length, header.FragmentOffset, fragmentData)

	if header.MessageSequence == t.nextReceiveSeq {
		if body := current.bodyIfComplete(); body != nil {
			return t.deliver(current.typ, body)
		}
	}

	return nil, nil
}

// deliver hands the next in-order message up, discarding the previous
// inbound flight: the peer has clearly moved on.
func (t *Transport) deliver(typ handshake.Type, body []byte) (*handshake.Message, error) {
	t.previousInboundFlight = nil

	msg := &handshake.Message{MessageSequence: t.nextReceiveSeq, Type: typ, Body: body}
	t.nextReceiveSeq++

	if err := t.updateTranscript(msg); err != nil {
		return nil, err
	}

	return msg, nil
}

// checkInboundFlight checks that there are no "extra" messages left in the
// current inbound flight.
func (t *Transport) checkInboundFlight() {
	for seq := range t.currentInboundFlight {
		if seq >= t.nextReceiveSeq {
			// TODO Should this be considered an error?
			t.log.Debugf("unprocessed handshake message (seq %d) left in inbound flight", seq)
		}
	}
}

// prepareInboundFlight demotes the current inbound flight to the previous
// one, so that a peer retransmit of it can be recognized.
func (t *Transport) prepareInboundFlight() {
	t.currentInboundFlight.resetAll()
	t.previousInboundFlight = t.currentInboundFlight
	t.currentInboundFlight = inboundFlight{}
}

// resendOutboundFlight re-sends the last flight under the epoch it was
// originally transmitted with. Re-fragmentation follows the current send
// limit; message_seq and length do not change.
func (t *Transport) resendOutboundFlight() error {
	t.recordLayer.ResetWriteEpoch()
	for _, msg := range t.outboundFlight {
		if err := t.writeMessage(msg); err != nil {
			return err
		}
	}
	t.log.Tracef("retransmitted flight of %d message(s)", len(t.outboundFlight))

	return nil
}

func (t *Transport) backoffReadTimeout() {
	t.readTimeout *= 2
	if t.readTimeout > t.maxReadTimeout {
		t.readTimeout = t.maxReadTimeout
	}
}

// updateTranscript feeds the transcript with the canonical unfragmented
// framing of msg followed by its body. HelloRequest never participates in
// the transcript.
func (t *Transport) updateTranscript(msg *handshake.Message) error {
	if msg.Type == handshake.TypeHelloRequest {
		return nil
	}

	header := msg.Header()
	raw, err := header.Marshal()
	if err != nil {
		return &InternalError{Err: err}
	}
	t.hash.Update(raw)
	t.hash.Update(msg.Body)

	return nil
}

// writeMessage fragments msg to the record layer's current send limit and
// writes each fragment as one record. A message with an empty body is
// still sent as exactly one fragment.
func (t *Transport) writeMessage(msg *handshake.Message) error {
	fragmentLimit := t.recordLayer.SendLimit() - handshake.HeaderLength
	if fragmentLimit < 1 {
		return errSendLimitTooSmall
	}

	length := len(msg.Body)
	fragmentOffset := 0
	for {
		fragmentLength := length - fragmentOffset
		if fragmentLength > fragmentLimit {
			fragmentLength = fragmentLimit
		}

		if err := t.writeFragment(msg, fragmentOffset, fragmentLength); err != nil {
			return err
		}

		fragmentOffset += fragmentLength
		if fragmentOffset >= length {
			return nil
		}
	}
}

func (t *Transport) writeFragment(msg *handshake.Message, fragmentOffset, fragmentLength int) error {
	header := handshake.Header{
		Type:            msg.Type,
		Length:          uint32(len(msg.Body)),
		MessageSequence: msg.MessageSequence,
		FragmentOffset:  uint32(fragmentOffset),
		FragmentLength:  uint32(fragmentLength),
	}

	record, err := header.Marshal()
	if err != nil {
		return &InternalError{Err: err}
	}
	record = append(record, msg.Body[fragmentOffset:fragmentOffset+fragmentLength]...)

	return t.recordLayer.Send(record)
}
