package server

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/102326/PyLab/internal/common/cnst"
	"github.com/102326/PyLab/internal/common/errorx"
	"github.com/102326/PyLab/internal/notify"
	"github.com/102326/PyLab/internal/session"
	"github.com/102326/PyLab/pkg/logger"
	"github.com/102326/PyLab/pkg/trace"
)

// handleWebSocket accepts /ws/:user_id and keeps the connection until the
// client leaves or the session is replaced.
func (s *Server) handleWebSocket(c *gin.Context) {
	userID, err := notify.ParseUserID(c.Param("user_id"))
	if err != nil {
		s.errs.HandleError(c, err)
		return
	}
	if s.jwt != nil && !s.authorize(c, userID) {
		return
	}

	ws, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// the upgrader already answered the request
		s.logger.Debug("failed to upgrade connection",
			zap.String("user_id", userID),
			zap.Error(err))
		return
	}
	conn := session.NewWSConn(ws, s.cfg.WebSocket.WriteTimeout, s.cfg.WebSocket.ReadLimit)

	// the request context ends with this handler; keep its values only
	ctx := context.WithoutCancel(c.Request.Context())
	span := trace.Tracer(cnst.TraceServer).Start(ctx, cnst.SpanWSConnect).
		WithAttrs(
			attribute.String(cnst.AttrUserID, userID),
			attribute.String(cnst.AttrClientAddr, conn.RemoteAddr()),
		)
	sess, err := s.manager.Connect(span.Ctx, userID, conn)
	if err != nil {
		span.Fail(err)
		span.End()
		s.logger.Error("failed to register connection",
			zap.String("user_id", userID),
			zap.Error(err))
		_ = conn.CloseWith(websocket.CloseTryAgainLater, "notification channel unavailable")
		return
	}
	span.WithAttrs(attribute.String(cnst.AttrSessionID, sess.ID))
	span.End()

	lg := logger.ForSession(s.logger, userID, sess.ID)
	s.readLoop(ctx, lg, sess, conn)
	s.manager.DisconnectSession(sess)
}

// authorize checks the access token against the path user id and answers
// the request itself on failure.
func (s *Server) authorize(c *gin.Context, userID string) bool {
	token := c.Query("token")
	if token == "" {
		// Authorization: Bearer <token>
		parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			token = strings.TrimSpace(parts[1])
		}
	}
	if token == "" {
		s.errs.HandleError(c, errorx.ErrMissingToken)
		return false
	}

	claims, err := s.jwt.ValidateToken(token)
	if err != nil {
		s.errs.HandleError(c, err)
		return false
	}
	if subject, err := notify.ParseUserID(claims.UserID()); err != nil || subject != userID {
		s.errs.HandleError(c, errorx.ErrUserMismatch.WithDetail("user_id", userID))
		return false
	}
	return true
}

func (s *Server) readLoop(ctx context.Context, lg *zap.Logger, sess *session.Session, conn *session.WSConn) {
	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) && !conn.Closed() {
				lg.Warn("connection read failed", zap.Error(err))
			} else {
				lg.Debug("connection closed", zap.Error(err))
			}
			return
		}
		if mt != websocket.TextMessage {
			continue
		}
		s.handleFrame(ctx, lg, sess, data)
	}
}

func (s *Server) handleFrame(ctx context.Context, lg *zap.Logger, sess *session.Session, data []byte) {
	if string(data) == cnst.FramePing {
		if err := sess.Conn.Send(ctx, []byte(cnst.FramePong)); err != nil {
			lg.Debug("failed to answer ping", zap.Error(err))
		}
		return
	}

	if !gjson.ValidBytes(data) {
		lg.Debug("ignoring non-json frame", zap.Int("size", len(data)))
		return
	}
	frame := gjson.ParseBytes(data)
	switch t := cnst.FrameType(frame.Get("type").String()); t {
	case cnst.FrameTypeChat:
		s.routeChat(ctx, lg, sess, frame)
	default:
		lg.Debug("ignoring frame", zap.String("type", string(t)))
	}
}

// routeChat forwards a private chat message to the receiver's channel,
// wherever the receiver is connected.
func (s *Server) routeChat(ctx context.Context, lg *zap.Logger, sess *session.Session, frame gjson.Result) {
	to := frame.Get("to_user_id").String()
	content := frame.Get("content").String()
	if to == "" || content == "" {
		lg.Debug("ignoring incomplete chat frame")
		return
	}
	toID, err := notify.ParseUserID(to)
	if err != nil {
		lg.Debug("ignoring chat frame", zap.Error(err))
		return
	}
	fromID, err := strconv.ParseUint(sess.UserID, 10, 64)
	if err != nil {
		lg.Debug("ignoring chat frame", zap.Error(err))
		return
	}

	pctx, cancel := context.WithTimeout(ctx, s.cfg.WebSocket.WriteTimeout)
	defer cancel()
	if err := s.publisher.PublishEvent(pctx, toID, notify.NewChatEvent(fromID, content, time.Now())); err != nil {
		lg.Warn("failed to forward chat message",
			zap.String("to_user_id", toID),
			zap.Error(err))
	}
}
