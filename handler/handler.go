package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"profsync/internal/usecase"
)

const (
	SendMessagePath     = "/api/send-message"
	correlationIDHeader = "X-Correlation-Id"
	maxBodyBytes        = 1 << 20
)

const (
	msgMessageRequired = "Message is required"
	msgInternal        = "Internal Server Error"
)

type ChatUseCase interface {
	SendMessage(ctx context.Context, in usecase.SendInput) (usecase.SendOutput, error)
}

type sendRequest struct {
	Message *string `json:"message"`
}

type sendResponse struct {
	Response string `json:"response"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type Handler struct {
	uc     ChatUseCase
	logger *slog.Logger
}

type Option func(*Handler)

func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

func NewHandler(uc ChatUseCase, opts ...Option) (*Handler, error) {
	if uc == nil {
		return nil, errors.New("handler: use case must not be nil")
	}
	h := &Handler{uc: uc, logger: slog.Default()}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Register mounts the chat route on e.
func (h *Handler) Register(e *echo.Echo) {
	e.POST(SendMessagePath, h.sendMessage)
}

func (h *Handler) sendMessage(c echo.Context) error {
	req := c.Request()
	correlationID := correlationIDOrNew(req.Header.Get(correlationIDHeader))
	c.Response().Header().Set(correlationIDHeader, correlationID)

	body, err := io.ReadAll(io.LimitReader(req.Body, maxBodyBytes))
	if err != nil {
		h.logger.ErrorContext(req.Context(), "failed to read request body", "correlation_id", correlationID, "err", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: msgInternal})
	}
	status, payload := h.process(req.Context(), correlationID, req.Header.Get(echo.HeaderContentType), body)
	return c.JSON(status, payload)
}

// Handle serves the same route behind an API Gateway proxy integration.
func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	correlationID := correlationIDOrNew(headerValue(event.Headers, correlationIDHeader))
	status, payload := h.handleEvent(ctx, correlationID, event)

	body, err := json.Marshal(payload)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to encode response", "correlation_id", correlationID, "err", err)
		status = http.StatusInternalServerError
		body = []byte(`{"error":"` + msgInternal + `"}`)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type":                "application/json",
			"Access-Control-Allow-Origin": "*",
			correlationIDHeader:           correlationID,
		},
		Body: string(body),
	}, nil
}

func (h *Handler) handleEvent(ctx context.Context, correlationID string, event events.APIGatewayProxyRequest) (int, any) {
	body := []byte(event.Body)
	if event.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(event.Body)
		if err != nil {
			h.logger.ErrorContext(ctx, "failed to decode base64 body", "correlation_id", correlationID, "err", err)
			return http.StatusInternalServerError, errorResponse{Error: msgInternal}
		}
		body = decoded
	}
	return h.process(ctx, correlationID, headerValue(event.Headers, "Content-Type"), body)
}

// process decodes the request and runs it through the use case. A body that
// is empty or sent with a non-JSON content type counts as an empty object, so
// the caller gets the missing-message response.
func (h *Handler) process(ctx context.Context, correlationID, contentType string, body []byte) (int, any) {
	start := time.Now()
	ctx = usecase.ContextWithCorrelationID(ctx, correlationID)

	if !isJSON(contentType) || len(bytes.TrimSpace(body)) == 0 {
		body = []byte("{}")
	}

	var req sendRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.logger.ErrorContext(ctx, "failed to decode request", "correlation_id", correlationID, "err", err)
		return http.StatusInternalServerError, errorResponse{Error: msgInternal}
	}
	if req.Message == nil || *req.Message == "" {
		return http.StatusBadRequest, errorResponse{Error: msgMessageRequired}
	}

	out, err := h.uc.SendMessage(ctx, usecase.SendInput{Message: *req.Message})
	if err != nil {
		status, msg := mapError(err)
		h.logger.ErrorContext(ctx, "send message failed", "correlation_id", correlationID, "status", status, "err", err)
		return status, errorResponse{Error: msg}
	}

	h.logger.InfoContext(ctx, "message handled",
		"correlation_id", correlationID,
		"classification", string(out.Classification),
		"degraded", out.Degraded,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return http.StatusOK, sendResponse{Response: out.Response}
}

func mapError(err error) (int, string) {
	var ue *usecase.Error
	if errors.As(err, &ue) && ue.Code == usecase.ErrorInvalidInput {
		return http.StatusBadRequest, msgMessageRequired
	}
	return http.StatusInternalServerError, msgInternal
}

// isJSON reports whether contentType names a JSON body. A missing header is
// treated as JSON.
func isJSON(contentType string) bool {
	if strings.TrimSpace(contentType) == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

func correlationIDOrNew(v string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return uuid.NewString()
}

// headerValue looks up name case-insensitively; API Gateway passes headers
// through with whatever casing the client used.
func headerValue(headers map[string]string, name string) string {
	if v, ok := headers[name]; ok {
		return v
	}
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}
