// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package flight

import (
	"errors"
	"fmt"

	"github.com/pion/flight/pkg/protocol"
	"github.com/pion/flight/pkg/protocol/alert"
)

// Typed errors.
var (
	//nolint:err113
	errNilRecordLayer = &FatalError{Err: errors.New("handshake transport can not be created with a nil record layer")}
	//nolint:err113
	errSendLimitTooSmall = &FatalError{
		Err: &alertError{&alert.Alert{Level: alert.Fatal, Description: alert.InternalError}},
	}
	//nolint:err113
	errMessageTooLarge = &InternalError{Err: errors.New("handshake message body exceeds the maximum message size")}
	//nolint:err113
	errSequenceNumberOverflow = &InternalError{Err: errors.New("message sequence number overflow")}
)

// FatalError indicates that the DTLS association is no longer available.
type FatalError = protocol.FatalError

// InternalError indicates an internal error caused by the implementation,
// and the DTLS association is no longer available.
type InternalError = protocol.InternalError

// TemporaryError indicates that the DTLS association is still available,
// but the request failed temporarily.
type TemporaryError = protocol.TemporaryError

// TimeoutError indicates that the request timed out.
type TimeoutError = protocol.TimeoutError

// alertError wraps DTLS alert notification as an error.
type alertError struct {
	*alert.Alert
}

func (e *alertError) Error() string {
	return fmt.Sprintf("alert: %s", e.Alert.String())
}

func (e *alertError) Is(err error) bool {
	var other *alertError
	if errors.As(err, &other) {
		return e.Level == other.Level && e.Description == other.Description
	}

	return false
}
