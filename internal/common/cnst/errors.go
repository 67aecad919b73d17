package cnst

import "errors"

var (
	// ErrTransportUnavailable is returned when the pub/sub broker cannot be reached
	ErrTransportUnavailable = errors.New("transport unavailable")
	// ErrSubscriptionClosed is returned by Receive after the subscription was closed
	ErrSubscriptionClosed = errors.New("subscription closed")
	// ErrTransportClosed is returned when using a transport after Close
	ErrTransportClosed = errors.New("transport closed")
	// ErrConnClosed is returned when writing to a closed connection
	ErrConnClosed = errors.New("connection closed")
	// ErrInvalidUserID is returned for user ids that are not decimal numbers
	ErrInvalidUserID = errors.New("invalid user id")
	// ErrShuttingDown is returned by Connect once the manager began shutting down
	ErrShuttingDown = errors.New("notify service is shutting down")
	// ErrUnsupportedTransport is returned by the transport factory
	ErrUnsupportedTransport = errors.New("unsupported transport type")
)
