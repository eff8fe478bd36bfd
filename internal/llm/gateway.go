package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/promptvault/promptvault/internal/models"
	"github.com/promptvault/promptvault/internal/store"
	"github.com/promptvault/promptvault/pkg/tokenizer"
)

// GenerateRequest describes a single completion call. When PromptSlug is
// set, the stored template is rendered with Variables and used as the user
// message; otherwise Messages are sent as-is.
type GenerateRequest struct {
	PromptSlug string            `json:"prompt_slug,omitempty"`
	Variables  map[string]string `json:"variables,omitempty"`
	Messages   []Message         `json:"messages,omitempty"`

	Provider    string  `json:"provider,omitempty"`
	Model       string  `json:"model,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Capability  string  `json:"capability,omitempty"`

	UserID    string `json:"user_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	RequestID string `json:"-"`
}

type GenerateResponse struct {
	Content       string `json:"content"`
	Provider      string `json:"provider"`
	Model         string `json:"model"`
	InputTokens   int    `json:"input_tokens"`
	OutputTokens  int    `json:"output_tokens"`
	LatencyMs     int64  `json:"latency_ms"`
	PromptSlug    string `json:"prompt_slug,omitempty"`
	PromptVersion int    `json:"prompt_version,omitempty"`
}

// Gateway routes completion requests to providers and records every call
// in the execution log.
type Gateway struct {
	providers       map[string]Provider
	backend         store.Backend
	defaultProvider string
	defaultModel    string
	logger          *slog.Logger
}

func NewGateway(backend store.Backend, defaultProvider, defaultModel string, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		providers:       make(map[string]Provider),
		backend:         backend,
		defaultProvider: defaultProvider,
		defaultModel:    defaultModel,
		logger:          logger,
	}
}

func (g *Gateway) RegisterProvider(p Provider) {
	g.providers[p.Name()] = p
}

func (g *Gateway) Providers() []string {
	names := make([]string, 0, len(g.providers))
	for name := range g.providers {
		names = append(names, name)
	}
	return names
}

func (g *Gateway) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	providerName := req.Provider
	if providerName == "" {
		providerName = g.defaultProvider
	}
	provider, ok := g.providers[providerName]
	if !ok {
		return nil, store.Invalidf("unknown provider %q", providerName)
	}

	model := req.Model
	if model == "" {
		model = g.defaultModel
	}

	messages := req.Messages
	var promptID *uuid.UUID
	var promptVersion *int
	if req.PromptSlug != "" {
		prompt, err := g.loadPrompt(ctx, req.PromptSlug)
		if err != nil {
			return nil, err
		}
		rendered, err := Render(prompt.Template, prompt.Variables, req.Variables)
		if err != nil {
			return nil, err
		}
		messages = append([]Message{{Role: "user", Content: rendered}}, messages...)
		promptID = &prompt.ID
		promptVersion = &prompt.Version
	}
	if len(messages) == 0 {
		return nil, store.Invalidf("request has no messages and no prompt_slug")
	}

	capability := req.Capability
	if capability == "" {
		capability = "chat"
	}

	start := time.Now()
	resp, callErr := provider.ChatCompletion(ctx, ChatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	latency := time.Since(start).Milliseconds()

	inputTokens, outputTokens := 0, 0
	content := ""
	if resp != nil {
		content = resp.Content
		inputTokens = resp.InputTokens
		outputTokens = resp.OutputTokens
	}
	if inputTokens == 0 {
		texts := make([]string, len(messages))
		for i, m := range messages {
			texts[i] = m.Content
		}
		inputTokens = tokenizer.EstimateMessages(texts)
	}
	if outputTokens == 0 && content != "" {
		outputTokens = tokenizer.Estimate(content)
	}

	rec := models.RecordExecution{
		PromptID:      promptID,
		PromptVersion: promptVersion,
		Capability:    capability,
		Provider:      providerName,
		Model:         model,
		InputTokens:   inputTokens,
		OutputTokens:  outputTokens,
		LatencyMs:     latency,
		Success:       callErr == nil,
		UserID:        req.UserID,
		SessionID:     req.SessionID,
		RequestID:     req.RequestID,
		InputPreview:  joinMessages(messages),
		OutputPreview: content,
	}
	if callErr != nil {
		rec.ErrorText = callErr.Error()
	}
	g.record(ctx, rec)

	if callErr != nil {
		return nil, fmt.Errorf("provider %s: %w", providerName, callErr)
	}

	out := &GenerateResponse{
		Content:      content,
		Provider:     providerName,
		Model:        model,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		LatencyMs:    latency,
		PromptSlug:   req.PromptSlug,
	}
	if promptVersion != nil {
		out.PromptVersion = *promptVersion
	}
	return out, nil
}

func (g *Gateway) loadPrompt(ctx context.Context, slug string) (*models.Prompt, error) {
	var prompt *models.Prompt
	err := g.backend.UnitOfWork(ctx, func(uow store.UnitOfWork) error {
		var err error
		prompt, err = uow.Prompts().GetBySlug(ctx, slug)
		return err
	})
	if err != nil {
		return nil, err
	}
	return prompt, nil
}

// record writes the execution log entry. Logging failures must not mask a
// successful completion, so errors are reported but swallowed.
func (g *Gateway) record(ctx context.Context, rec models.RecordExecution) {
	recordCtx := context.WithoutCancel(ctx)
	err := g.backend.UnitOfWork(recordCtx, func(uow store.UnitOfWork) error {
		_, err := uow.Executions().Record(recordCtx, rec)
		return err
	})
	if err != nil {
		g.logger.Error("failed to record execution",
			"provider", rec.Provider,
			"model", rec.Model,
			"error", err)
	}
}

func joinMessages(messages []Message) string {
	parts := make([]string, len(messages))
	for i, m := range messages {
		parts[i] = m.Role + ": " + m.Content
	}
	return strings.Join(parts, "\n")
}
