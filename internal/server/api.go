package server

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tidwall/gjson"

	"github.com/102326/PyLab/internal/common/errorx"
	"github.com/102326/PyLab/internal/notify"
)

const maxPublishBody = 1 << 20

// handlePublish lets workers push a JSON payload to a user without holding
// a broker client. The body is relayed verbatim.
func (s *Server) handlePublish(c *gin.Context) {
	userID, err := notify.ParseUserID(c.Param("user_id"))
	if err != nil {
		s.errs.HandleError(c, err)
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxPublishBody+1))
	if err != nil {
		s.errs.HandleError(c, errorx.ErrInvalidPayload)
		return
	}
	if len(body) > maxPublishBody {
		s.errs.HandleError(c, errorx.ErrPayloadTooLarge.WithDetail("limit", maxPublishBody))
		return
	}
	if !gjson.ValidBytes(body) {
		s.errs.HandleError(c, errorx.ErrInvalidPayload)
		return
	}

	if err := s.publisher.Publish(c.Request.Context(), userID, body); err != nil {
		s.errs.HandleError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"status":  "accepted",
		"channel": notify.ChannelFor(userID),
	})
}

// handleSession reports whether the user is connected to this process
func (s *Server) handleSession(c *gin.Context) {
	userID, err := notify.ParseUserID(c.Param("user_id"))
	if err != nil {
		s.errs.HandleError(c, err)
		return
	}

	sess, ok := s.manager.Lookup(userID)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"user_id": userID, "connected": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user_id":      userID,
		"connected":    true,
		"session_id":   sess.ID,
		"connected_at": sess.CreatedAt.Format(time.RFC3339),
	})
}
