package session

import "errors"

// ErrDuplicateBinding marks a join attempted while another channel binding is
// active. This is a programming-contract violation: the previous binding's
// leave must complete before a new join is issued.
var ErrDuplicateBinding = errors.New("session: channel binding already active")

// ErrJoinFailure wraps REST or socket failures during a join sequence.
var ErrJoinFailure = errors.New("session: join failed")

// ErrNotJoined is returned when sending without an established channel.
var ErrNotJoined = errors.New("session: not joined")

// ErrClosed is returned by operations on an unmounted controller.
var ErrClosed = errors.New("session: controller closed")

// ErrEmptyMessage is returned when a send contains no non-whitespace content.
var ErrEmptyMessage = errors.New("session: empty message")

// ErrMessageTooLong is returned when a send exceeds the content bound.
var ErrMessageTooLong = errors.New("session: message too long")
