// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package transcript implements the running handshake transcript hash.
//
// At the start of a handshake the hash algorithm is not yet known: it is
// fixed by the negotiated cipher suite. A Deferred transcript records the
// raw message stream until Commit replays it into the concrete algorithm;
// after that, updates flow directly into the digest.
package transcript

import (
	"crypto"
	"encoding"
	"errors"
	"hash"
)

// Typed errors
var (
	// ErrUncommitted is returned when a digest is requested before the
	// transcript has been committed to a concrete algorithm.
	ErrUncommitted = errors.New("transcript has not been committed to a hash algorithm")

	errAlgorithmUnavailable = errors.New("hash algorithm is not linked into the binary")
	errSnapshotUnsupported  = errors.New("hash state does not support snapshots")
)

// Hash is the running transcript of the handshake message stream.
type Hash interface {
	// Update appends p to the transcript.
	Update(p []byte)

	// Clone returns an independent snapshot of the transcript. Updating
	// either copy does not affect the other.
	Clone() (Hash, error)

	// Sum returns the digest of everything written so far. It fails with
	// ErrUncommitted until the transcript is committed.
	Sum() ([]byte, error)

	// Commit fixes the transcript to the negotiated hash algorithm,
	// replaying any recorded bytes. Committing an already committed
	// transcript is a no-op.
	Commit(algorithm crypto.Hash) (Hash, error)

	// Reset restarts the transcript, preserving the committed algorithm
	// if there is one.
	Reset()
}

// Deferred buffers the message stream until the hash algorithm is known.
type Deferred struct {
	log []byte
}

// NewDeferred creates an empty transcript with no algorithm bound yet.
func NewDeferred() *Deferred {
	return &Deferred{}
}

// Update implements Hash.
func (d *Deferred) Update(p []byte) {
	d.log = append(d.log, p...)
}

// Clone implements Hash.
func (d *Deferred) Clone() (Hash, error) {
	return &Deferred{log: append([]byte{}, d.log...)}, nil
}

// Sum implements Hash.
func (d *Deferred) Sum() ([]byte, error) {
	return nil, ErrUncommitted
}

// Commit implements Hash, replaying the recorded stream into the now-known
// algorithm.
func (d *Deferred) Commit(algorithm crypto.Hash) (Hash, error) {
	if !algorithm.Available() {
		return nil, errAlgorithmUnavailable
	}

	committed := &committed{algorithm: algorithm, digest: algorithm.New()}
	committed.Update(d.log)

	return committed, nil
}

// Reset implements Hash.
func (d *Deferred) Reset() {
	d.log = nil
}

// committed wraps a concrete digest once the algorithm is negotiated.
type committed struct {
	algorithm crypto.Hash
	digest    hash.Hash
}

func (c *committed) Update(p []byte) {
	// hash.Hash.Write never returns an error.
	_, _ = c.digest.Write(p)
}

func (c *committed) Clone() (Hash, error) {
	marshaler, ok := c.digest.(encoding.BinaryMarshaler)
	if !ok {
		return nil, errSnapshotUnsupported
	}
	state, err := marshaler.MarshalBinary()
	if err != nil {
		return nil, err
	}

	fork := c.algorithm.New()
	unmarshaler, ok := fork.(encoding.BinaryUnmarshaler)
	if !ok {
		return nil, errSnapshotUnsupported
	}
	if err := unmarshaler.UnmarshalBinary(state); err != nil {
		return nil, err
	}

	return &committed{algorithm: c.algorithm, digest: fork}, nil
}

func (c *committed) Sum() ([]byte, error) {
	// hash.Hash.Sum appends to a copy of its state.
	return c.digest.Sum(nil), nil
}

func (c *committed) Commit(crypto.Hash) (Hash, error) {
	return c, nil
}

func (c *committed) Reset() {
	c.digest.Reset()
}
