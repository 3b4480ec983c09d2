package llm

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strings"

	"govassist/app/config"

	"github.com/samber/do"
	"github.com/samber/oops"
)

var (
	ErrUnavailable   = errors.New("language model unavailable")
	ErrEmptyResponse = errors.New("empty model response")
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role Role
	Text string
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type Output struct {
	Text  string
	Usage Usage
}

// Generator is one chat completion backend.
type Generator interface {
	Generate(ctx context.Context, messages []Message) (Output, error)
}

// Request is everything sent to the model for one turn.
type Request struct {
	Message   string
	History   []Message
	Context   Enrichment
	Reference []DepartmentReference
	// Enhanced applies the sentiment-driven tone and the inferred expertise.
	Enhanced bool
}

type Enrichment struct {
	Intent       string
	Entities     map[string]string
	ActiveTopics []string
	Sentiment    string
	Goal         string
	Digest       string
	Expertise    string
	Tone         string
	// LocalAnswer is the rule-based answer the model should build on when blending.
	LocalAnswer string
}

type DepartmentReference struct {
	Name        string
	Description string
	URL         string
	Pages       []string
	Phone       string
	Email       string
	Hours       string
}

type Response struct {
	Text        string
	Suggestions []string
	Usage       Usage
}

type Service struct {
	cfg         config.LLM
	generator   Generator
	countTokens func(string) int
}

type Option func(*Service)

// WithTokenCounter replaces the tiktoken based counter used for history trimming.
func WithTokenCounter(count func(string) int) Option {
	return func(s *Service) {
		s.countTokens = count
	}
}

func New(di *do.Injector) (*Service, error) {
	appCtx := do.MustInvoke[context.Context](di)
	cfg := do.MustInvoke[*config.Config](di).LLM

	var (
		generator Generator
		err       error
	)

	switch cfg.Provider {
	case "langchain":
		generator, err = newLangchainGenerator(cfg)
	case "eino":
		generator, err = newEinoGenerator(appCtx, cfg)
	}
	if err != nil {
		return nil, oops.In("llm").With("provider", cfg.Provider).Wrapf(err, "failed to create generator")
	}

	if generator == nil {
		slog.Warn("Language model disabled, answering from rules only")
	} else {
		slog.Info("Language model enabled", "provider", cfg.Provider, "model", cfg.Model)
		defaultTokenCounter.Preload()
	}

	return NewService(cfg, generator), nil
}

// NewService wraps a generator; a nil generator makes the service unavailable.
func NewService(cfg config.LLM, generator Generator, opts ...Option) *Service {
	s := &Service{
		cfg:         cfg,
		generator:   generator,
		countTokens: defaultTokenCounter.Count,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Service) Available() bool {
	return s != nil && s.generator != nil
}

// Complete sends one request bounded by the configured timeout. Failures are returned
// as errors for the caller to classify and fall back on; nothing is retried.
func (s *Service) Complete(ctx context.Context, req Request) (*Response, error) {
	if !s.Available() {
		return nil, ErrUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	messages := s.buildMessages(req)

	out, err := s.generator.Generate(ctx, messages)
	if err != nil {
		return nil, oops.In("llm").With("model", s.cfg.Model).Wrapf(err, "failed to generate completion")
	}

	text, suggestions := splitSuggestions(out.Text)
	if text == "" {
		return nil, oops.In("llm").With("model", s.cfg.Model).Wrap(ErrEmptyResponse)
	}

	return &Response{
		Text:        text,
		Suggestions: suggestions,
		Usage:       out.Usage,
	}, nil
}

type Cause string

const (
	CauseTimeout     Cause = "timeout"
	CauseQuota       Cause = "quota"
	CauseSafety      Cause = "safety"
	CauseNetwork     Cause = "network"
	CauseUnavailable Cause = "unavailable"
	CauseBadResponse Cause = "bad_response"
	CauseUnknown     Cause = "unknown"
)

// Classify maps a Complete error onto a small set of causes for logging.
func Classify(err error) Cause {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return CauseTimeout
	case errors.Is(err, ErrUnavailable):
		return CauseUnavailable
	case errors.Is(err, ErrEmptyResponse):
		return CauseBadResponse
	}

	msg := strings.ToLower(err.Error())

	switch {
	case containsAny(msg, "timeout", "timed out", "deadline exceeded"):
		return CauseTimeout
	case containsAny(msg, "429", "rate limit", "quota", "insufficient_quota", "too many requests"):
		return CauseQuota
	case containsAny(msg, "content_filter", "content policy", "safety", "moderation"):
		return CauseSafety
	}

	var netErr net.Error
	if errors.As(err, &netErr) || containsAny(msg, "connection refused", "no such host", "connection reset", "eof") {
		return CauseNetwork
	}

	if containsAny(msg, "unmarshal", "invalid character", "no choices") {
		return CauseBadResponse
	}

	return CauseUnknown
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}

	return false
}
