package cnst

// ChannelPrefix prefixes every per-user notification channel.
const ChannelPrefix = "notify:"

// Liveness probe frames exchanged on the real-time connection.
const (
	FramePing = "ping"
	FramePong = "pong"
)

// FrameType is the "type" field of inbound and outbound JSON frames
type FrameType string

const (
	FrameTypeChat      FrameType = "chat"
	FrameTypeOCRResult FrameType = "ocr_result"
)
