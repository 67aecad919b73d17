package errorx

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/102326/PyLab/internal/auth/jwt"
	"github.com/102326/PyLab/internal/common/cnst"
)

// ErrorHandler writes errors as APIError responses
type ErrorHandler struct {
	logger *zap.Logger
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *zap.Logger) *ErrorHandler {
	return &ErrorHandler{
		logger: logger,
	}
}

// HandleError converts err to an APIError, logs it and aborts the request
func (h *ErrorHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	apiErr := ConvertToAPIError(err)
	if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
		apiErr = withTraceID(apiErr, sc.TraceID().String())
	}

	fields := []zap.Field{
		zap.String("error_code", apiErr.Code),
		zap.Int("http_status", apiErr.HTTPStatus),
		zap.String("path", c.Request.URL.Path),
		zap.String("client_ip", c.ClientIP()),
		zap.Error(err),
	}
	if apiErr.Category == CategoryExternal || apiErr.Category == CategoryInternal {
		h.logger.Error(apiErr.Message, fields...)
	} else {
		h.logger.Debug(apiErr.Message, fields...)
	}

	c.AbortWithStatusJSON(apiErr.HTTPStatus, gin.H{
		"error": apiErr,
	})
}

// ConvertToAPIError maps service errors to their API form
func ConvertToAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	switch {
	case errors.Is(err, cnst.ErrInvalidUserID):
		return ErrInvalidUserID
	case errors.Is(err, jwt.ErrExpiredToken):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrWrongTokenType):
		return ErrWrongTokenType
	case errors.Is(err, jwt.ErrInvalidToken), errors.Is(err, jwt.ErrInvalidAlgorithm):
		return ErrInvalidToken
	case errors.Is(err, cnst.ErrTransportUnavailable), errors.Is(err, cnst.ErrTransportClosed):
		return ErrTransportUnavailable
	default:
		return ErrInternal
	}
}

func withTraceID(e *APIError, traceID string) *APIError {
	c := *e
	c.TraceID = traceID
	return &c
}
