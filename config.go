// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package flight

import (
	"crypto"
	_ "crypto/sha256" // registers the default transcript algorithm
	"time"

	"github.com/pion/logging"
)

const (
	defaultInitialRetransmitTimeout = time.Second
	defaultMaxRetransmitTimeout     = 60 * time.Second
)

// Config is used to configure a handshake Transport. All fields are
// optional.
type Config struct {
	// TranscriptAlgorithm is the hash the transcript is committed to once
	// the cipher suite is negotiated. Defaults to crypto.SHA256.
	TranscriptAlgorithm crypto.Hash

	// InitialRetransmitTimeout is the first receive timeout; it doubles
	// on every retransmit. Defaults to 1s (RFC 6347 4.2.4.1).
	InitialRetransmitTimeout time.Duration

	// MaxRetransmitTimeout caps the backoff. Defaults to 60s.
	MaxRetransmitTimeout time.Duration

	// LoggerFactory produces the transport's logger.
	LoggerFactory logging.LoggerFactory
}

func (c *Config) transcriptAlgorithm() crypto.Hash {
	if c.TranscriptAlgorithm == 0 {
		return crypto.SHA256
	}

	return c.TranscriptAlgorithm
}

func (c *Config) initialRetransmitTimeout() time.Duration {
	if c.InitialRetransmitTimeout <= 0 {
		return defaultInitialRetransmitTimeout
	}

	return c.InitialRetransmitTimeout
}

func (c *Config) maxRetransmitTimeout() time.Duration {
	if c.MaxRetransmitTimeout <= 0 {
		return defaultMaxRetransmitTimeout
	}

	return c.MaxRetransmitTimeout
}

func (c *Config) loggerFactory() logging.LoggerFactory {
	if c.LoggerFactory == nil {
		return logging.NewDefaultLoggerFactory()
	}

	return c.LoggerFactory
}
