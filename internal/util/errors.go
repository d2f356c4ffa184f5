package util

import (
	"cofq_backend/internal/llm"
	"cofq_backend/pkg/logger"
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailRegistered    = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountDisabled    = errors.New("account disabled")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrUserMismatch       = errors.New("userId does not match the authenticated user")
	ErrTopicNotFound      = errors.New("topic not found")
	ErrTopicExists        = errors.New("topic slug already exists")
	ErrQuestionNotFound   = errors.New("question not found")
	ErrInvalidQuestion    = errors.New("invalid question")
	ErrFlashcardNotFound  = errors.New("flashcard not found")
	ErrDocumentNotFound   = errors.New("document not found")
	ErrDocumentBusy       = errors.New("document is already being ingested")
	ErrEmptyDocument      = errors.New("document has no content")
	ErrUnsupportedFile    = errors.New("unsupported document file")
	ErrAttemptNotFound    = errors.New("attempt not found")
	ErrNoEmbedder         = errors.New("no embedding provider configured")
	ErrEmptyPrompt        = errors.New("prompt must not be blank")
	ErrInvalidChoice      = errors.New("choiceIndex must be between 0 and 3")
)

// HandleError 把 service 层错误映射为统一响应，未知错误记日志后返回 500
func HandleError(c *gin.Context, err error) {
	var (
		rateLimit   *llm.ErrRateLimit
		unavailable *llm.ErrProviderUnavailable
		invalid     *llm.ErrInvalidResponse
		truncated   *llm.ErrMaxTokensExceeded
	)

	switch {
	case errors.Is(err, ErrTopicNotFound),
		errors.Is(err, ErrQuestionNotFound),
		errors.Is(err, ErrFlashcardNotFound),
		errors.Is(err, ErrDocumentNotFound),
		errors.Is(err, ErrAttemptNotFound),
		errors.Is(err, ErrUserNotFound):
		Error(c, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrEmailRegistered), errors.Is(err, ErrTopicExists), errors.Is(err, ErrDocumentBusy):
		Conflict(c, err.Error())
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrAccountDisabled):
		Error(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, ErrUserMismatch), errors.Is(err, ErrPermissionDenied):
		Error(c, http.StatusForbidden, err.Error())
	case errors.Is(err, ErrInvalidQuestion),
		errors.Is(err, ErrEmptyDocument),
		errors.Is(err, ErrUnsupportedFile),
		errors.Is(err, ErrNoEmbedder),
		errors.Is(err, ErrEmptyPrompt),
		errors.Is(err, ErrInvalidChoice):
		BadRequest(c, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		Error(c, http.StatusGatewayTimeout, "upstream request timed out")
	case errors.Is(err, context.Canceled):
		// 客户端已断开，不按内部错误记录
		logger.Log.Debug("Request canceled by client", zap.String("path", c.FullPath()))
		Error(c, StatusClientClosedRequest, "request canceled")
	case errors.As(err, &rateLimit):
		TooManyRequests(c)
	case errors.As(err, &unavailable), errors.As(err, &invalid), errors.As(err, &truncated):
		BadGateway(c, err.Error())
	default:
		LogInternalError(c, err)
	}
}
