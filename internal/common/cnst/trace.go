package cnst

// Tracer names used across the service
const (
	// TraceNotify is the tracer name for publishing notifications
	TraceNotify = "notifyd/notify"
	// TraceServer is the tracer name for the inbound connection handler
	TraceServer = "notifyd/server"
)

// Common span names
const (
	SpanPublish   = "notify.publish"
	SpanWSConnect = "ws.connect"
)

// Common attribute keys
const (
	AttrUserID        = "user.id"
	AttrChannel       = "pubsub.channel"
	AttrPayloadSize   = "pubsub.payload_size"
	AttrTransportType = "transport.type"
	AttrSessionID     = "session.id"
	AttrClientAddr    = "client.remote_addr"
	AttrErrorReason   = "error.reason"
)
