package transport

import "errors"

// ErrUnauthenticated is returned by Connect when no credential is stored.
var ErrUnauthenticated = errors.New("transport: unauthenticated")

// ErrConnectionFailure wraps dial and handshake failures. The handle never
// retries on its own; retry policy belongs to the caller.
var ErrConnectionFailure = errors.New("transport: connection failure")

// ErrNotConnected is returned by Emit when no connection is established.
var ErrNotConnected = errors.New("transport: not connected")

// ErrConnectInProgress is returned by Connect when another Connect is still
// dialing. The first caller wins; the loser retries or gives up.
var ErrConnectInProgress = errors.New("transport: connect in progress")
