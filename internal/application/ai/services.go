package ai

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/bryanwahyu/lungscan/internal/domain/ai"
	"github.com/bryanwahyu/lungscan/internal/domain/scans"
	"github.com/bryanwahyu/lungscan/internal/infra/ai/prompt"
)

const (
	DefaultTimeout = 30 * time.Second

	FallbackUnavailable   = "Advisory service unavailable; consult a specialist."
	FallbackNotConfigured = "Advisory service not configured; consult a specialist."

	ChatFallbackUnavailable = "AI unavailable. Consult doctor."
	ChatFallbackEmpty       = "AI service error"
)

// ExplainRequest carries what the advisory prompt embeds.
type ExplainRequest struct {
	Name       string
	Label      scans.Label
	Confidence float64
	History    []scans.HistoryEntry
}

// Service turns provider calls into narratives that never fail the caller.
// A nil client means no provider is configured.
type Service struct {
	client  ai.Client
	timeout time.Duration
	logger  *slog.Logger
}

func NewService(client ai.Client, timeout time.Duration, logger *slog.Logger) *Service {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{client: client, timeout: timeout, logger: logger}
}

// Configured reports whether a provider will be called.
func (s *Service) Configured() bool { return s.client != nil }

// Explain returns the advisory narrative for a scan, or a fixed fallback.
// It always returns a non-empty string.
func (s *Service) Explain(ctx context.Context, req ExplainRequest) string {
	if s.client == nil {
		return FallbackNotConfigured
	}
	user := prompt.GetUserPrompt(req.Name, req.Label, req.Confidence, req.History)
	out, err := s.complete(ctx, prompt.AdvisorySystemPrompt, user)
	if err != nil {
		s.logger.Warn("advisory unavailable, using fallback",
			"patient", req.Name, "error", err)
		return FallbackUnavailable
	}
	return out
}

// Chat answers a free-form question with the same degrade-never-fail policy.
func (s *Service) Chat(ctx context.Context, msg string) string {
	if s.client == nil {
		return FallbackNotConfigured
	}
	out, err := s.complete(ctx, prompt.ChatSystemPrompt, msg)
	switch {
	case errors.Is(err, ai.ErrEmptyCompletion):
		return ChatFallbackEmpty
	case err != nil:
		s.logger.Warn("chat unavailable, using fallback", "error", err)
		return ChatFallbackUnavailable
	}
	return out
}

func (s *Service) complete(ctx context.Context, system, user string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	out, err := s.client.Complete(ctx, system, user)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(out) == "" {
		return "", ai.ErrEmptyCompletion
	}
	return out, nil
}
