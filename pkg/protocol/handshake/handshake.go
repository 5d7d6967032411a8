// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package handshake provides the DTLS wire protocol for handshake messages:
// the fragmentable 12-byte header and the message model shared by the
// reliable handshake transport.
package handshake

// Type is the unique identifier for each handshake message
// https://tools.ietf.org/html/rfc5246#section-7.4
type Type uint8

// Types of DTLS Handshake messages we know about.
const (
	TypeHelloRequest       Type = 0
	TypeClientHello        Type = 1
	TypeServerHello        Type = 2
	TypeHelloVerifyRequest Type = 3
	TypeCertificate        Type = 11
	TypeServerKeyExchange  Type = 12
	TypeCertificateRequest Type = 13
	TypeServerHelloDone    Type = 14
	TypeCertificateVerify  Type = 15
	TypeClientKeyExchange  Type = 16
	TypeFinished           Type = 20
)

func (t Type) String() string {
	switch t {
	case TypeHelloRequest:
		return "HelloRequest"
	case TypeClientHello:
		return "ClientHello"
	case TypeServerHello:
		return "ServerHello"
	case TypeHelloVerifyRequest:
		return "HelloVerifyRequest"
	case TypeCertificate:
		return "TypeCertificate"
	case TypeServerKeyExchange:
		return "ServerKeyExchange"
	case TypeCertificateRequest:
		return "CertificateRequest"
	case TypeServerHelloDone:
		return "ServerHelloDone"
	case TypeCertificateVerify:
		return "CertificateVerify"
	case TypeClientKeyExchange:
		return "ClientKeyExchange"
	case TypeFinished:
		return "Finished"
	default:
		return "Unknown Handshake Type"
	}
}

// Message is one complete handshake message, independent of how it was (or
// will be) fragmented on the wire. MessageSequence is the DTLS
// message_seq; Body excludes the 12-byte handshake header.
type Message struct {
	MessageSequence uint16
	Type            Type
	Body            []byte
}

// Header returns the canonical unfragmented header for the message, with
// fragment_offset zero and fragment_length equal to the full body length.
func (m *Message) Header() Header {
	length := uint32(len(m.Body))

	return Header{
		Type:            m.Type,
		Length:          length,
		MessageSequence: m.MessageSequence,
		FragmentOffset:  0,
		FragmentLength:  length,
	}
}
