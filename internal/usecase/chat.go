package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"profsync/internal/domain"
	"profsync/internal/format"
)

// FallbackResponse is returned in place of a reply whenever an upstream call fails.
const FallbackResponse = "Sorry, I encountered an error while processing your request."

const defaultTopK = 5

const (
	branchProfessor = "professor"
	branchCasual    = "casual"
	branchFailed    = "failed"
)

type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingVector, error)
}

type Searcher interface {
	Search(ctx context.Context, vector domain.EmbeddingVector, topK int) ([]domain.SearchMatch, error)
}

type HistoryStore interface {
	Record(message string, classification domain.Classification)
	RecentWindow() []domain.ConversationTurn
	Len() int
}

type Metrics interface {
	ObserveMessage(branch string, elapsed time.Duration)
	UpstreamError(stage string)
	SetHistoryTurns(n int)
}

type SendInput struct {
	Message string
}

type SendOutput struct {
	Response       string
	Classification domain.Classification
	// Degraded is set when Response is the fallback apology.
	Degraded bool
}

type ChatService struct {
	generator Generator
	embedder  Embedder
	searcher  Searcher
	history   HistoryStore
	formatter format.Formatter
	metrics   Metrics
	logger    *slog.Logger
	topK      int
}

type Option func(*ChatService)

func WithFormatter(f format.Formatter) Option {
	return func(s *ChatService) {
		if f != nil {
			s.formatter = f
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *ChatService) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithMetrics(m Metrics) Option {
	return func(s *ChatService) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithTopK sets how many matches are requested from the index. Non-positive
// values are ignored.
func WithTopK(k int) Option {
	return func(s *ChatService) {
		if k > 0 {
			s.topK = k
		}
	}
}

func NewChatService(gen Generator, emb Embedder, search Searcher, hist HistoryStore, opts ...Option) (*ChatService, error) {
	if gen == nil {
		return nil, errors.New("usecase: generator must not be nil")
	}
	if emb == nil {
		return nil, errors.New("usecase: embedder must not be nil")
	}
	if search == nil {
		return nil, errors.New("usecase: searcher must not be nil")
	}
	if hist == nil {
		return nil, errors.New("usecase: history store must not be nil")
	}
	s := &ChatService{
		generator: gen,
		embedder:  emb,
		searcher:  search,
		history:   hist,
		formatter: format.Legacy{},
		metrics:   noopMetrics{},
		logger:    slog.Default(),
		topK:      defaultTopK,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SendMessage classifies the message and produces an HTML reply. Upstream
// failures do not surface as errors: the caller gets FallbackResponse with
// Degraded set. The only error returned is for an empty message.
func (s *ChatService) SendMessage(ctx context.Context, in SendInput) (SendOutput, error) {
	if in.Message == "" {
		return SendOutput{}, newError(ErrorInvalidInput, "missing_message", nil)
	}

	start := time.Now()
	out, branch, err := s.respond(ctx, in.Message)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to handle message",
			"correlation_id", CorrelationID(ctx),
			"reason", err.Reason,
			"err", err,
		)
		s.metrics.UpstreamError(strings.TrimSuffix(err.Reason, "_error"))
		out = SendOutput{
			Response:       FallbackResponse,
			Classification: out.Classification,
			Degraded:       true,
		}
		branch = branchFailed
	}
	s.metrics.ObserveMessage(branch, time.Since(start))
	return out, nil
}

// respond runs one message through the pipeline. Every failure it reports is
// an upstream error tagged with its stage.
func (s *ChatService) respond(ctx context.Context, message string) (SendOutput, string, *Error) {
	label, err := s.generator.Generate(ctx, buildClassificationPrompt(message))
	if err != nil {
		return SendOutput{}, "", upstreamError("classification", err)
	}
	classification := domain.Classification(label)

	s.history.Record(message, classification)
	window := s.history.RecentWindow()
	s.metrics.SetHistoryTurns(s.history.Len())
	s.logger.DebugContext(ctx, "message classified",
		"correlation_id", CorrelationID(ctx),
		"classification", label,
		"history_window", len(window),
	)

	out := SendOutput{Classification: classification}
	if classification == domain.ProfessorSpecific {
		reply, err := s.professorReply(ctx, message)
		if err != nil {
			return out, "", err
		}
		out.Response = s.formatter.Format(reply)
		return out, branchProfessor, nil
	}

	reply, err := s.generator.Generate(ctx, buildCasualPrompt(message))
	if err != nil {
		return out, "", upstreamError("casual_reply", err)
	}
	out.Response = s.formatter.Format(reply)
	return out, branchCasual, nil
}

func (s *ChatService) professorReply(ctx context.Context, message string) (string, *Error) {
	vector, err := s.embedder.Embed(ctx, message)
	if err != nil {
		return "", upstreamError("embedding", err)
	}
	matches, err := s.searcher.Search(ctx, vector, s.topK)
	if err != nil {
		return "", upstreamError("search", err)
	}
	reply, err := s.generator.Generate(ctx, buildSummaryPrompt(FlattenMatches(matches), message))
	if err != nil {
		return "", upstreamError("summary", err)
	}
	return reply, nil
}

type noopMetrics struct{}

func (noopMetrics) ObserveMessage(string, time.Duration) {}
func (noopMetrics) UpstreamError(string)                 {}
func (noopMetrics) SetHistoryTurns(int)                  {}
