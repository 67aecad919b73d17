package notify

import (
	"time"

	"github.com/102326/PyLab/internal/common/cnst"
)

// ChatEvent is delivered to the receiver of a private chat message
type ChatEvent struct {
	Type       cnst.FrameType `json:"type"`
	FromUserID uint64         `json:"from_user_id"`
	Content    string         `json:"content"`
	Time       string         `json:"time"`
}

// NewChatEvent builds a chat event stamped with the given send time
func NewChatEvent(from uint64, content string, at time.Time) ChatEvent {
	return ChatEvent{
		Type:       cnst.FrameTypeChat,
		FromUserID: from,
		Content:    content,
		Time:       at.Format(time.TimeOnly),
	}
}

// OCR verification outcomes
const (
	OCRStatusSuccess = "success"
	OCRStatusFailed  = "failed"
	OCRStatusError   = "error"
)

// OCRResultEvent reports an identity verification result from a worker
type OCRResultEvent struct {
	Type   cnst.FrameType `json:"type"`
	Status string         `json:"status"`
	Data   *OCRResultData `json:"data,omitempty"`
	Msg    string         `json:"msg,omitempty"`
}

// VerifyStatusApproved is the profile verify_status after a successful check
const VerifyStatusApproved = 2

// OCRResultData carries the verified profile on success
type OCRResultData struct {
	UserID       uint64 `json:"user_id"`
	RealName     string `json:"real_name"`
	VerifyStatus int    `json:"verify_status"`
	Role         int    `json:"role"`
}

// NewOCRResult builds an ocr_result event; data is only kept on success
func NewOCRResult(status string, data *OCRResultData, msg string) OCRResultEvent {
	ev := OCRResultEvent{Type: cnst.FrameTypeOCRResult, Status: status, Msg: msg}
	if status == OCRStatusSuccess {
		ev.Data = data
	}
	return ev
}
