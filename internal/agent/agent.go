package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/teemow/calchat/internal/instrumentation"
	"github.com/teemow/calchat/internal/llm"
	"github.com/teemow/calchat/internal/logging"
)

// DefaultMaxIterations bounds the number of model calls per turn.
const DefaultMaxIterations = 10

// ErrMaxIterationsReached is returned when the model keeps calling tools
// past the iteration limit.
var ErrMaxIterationsReached = errors.New("agent stopped after reaching the maximum number of iterations")

// ToolExecutor exposes tools to the agent.
type ToolExecutor interface {
	Definitions() []llm.ToolDefinition
	Call(ctx context.Context, call llm.ToolCall) llm.ToolResult
}

// Config holds the agent settings.
type Config struct {
	MaxIterations int
	Temperature   float64
	MaxTokens     int
}

// Result is the outcome of one turn.
type Result struct {
	Reply string
	// Messages is the full transcript: history, the user input, any tool
	// exchanges and the final reply.
	Messages   []llm.Message
	Iterations int
	Usage      llm.Usage
}

// Option configures an Agent.
type Option func(*Agent)

// WithMetrics records LLM metrics.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(a *Agent) {
		a.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Agent) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithClock overrides the time source used for the system prompt.
func WithClock(now func() time.Time) Option {
	return func(a *Agent) {
		a.now = now
	}
}

// Agent answers user messages with a model and a set of tools.
type Agent struct {
	model   llm.Model
	tools   ToolExecutor
	cfg     Config
	metrics *instrumentation.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// New creates an Agent.
func New(model llm.Model, tools ToolExecutor, cfg Config, opts ...Option) (*Agent, error) {
	if model == nil {
		return nil, errors.New("model is required")
	}
	if tools == nil {
		return nil, errors.New("tool executor is required")
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}

	a := &Agent{
		model:  model,
		tools:  tools,
		cfg:    cfg,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = logging.WithComponent(a.logger, "agent")

	return a, nil
}

// ModelID returns the ID of the underlying model.
func (a *Agent) ModelID() string {
	return a.model.ID()
}

// Run answers input given the earlier conversation.
func (a *Agent) Run(ctx context.Context, history []llm.Message, input string) (*Result, error) {
	transcript := make([]llm.Message, 0, len(history)+2)
	transcript = append(transcript, history...)
	transcript = append(transcript, llm.Message{Role: llm.RoleUser, Content: input})

	req := llm.Request{
		System:      SystemPrompt(a.now()),
		Tools:       a.tools.Definitions(),
		Temperature: a.cfg.Temperature,
		MaxTokens:   a.cfg.MaxTokens,
	}

	result := &Result{}
	for result.Iterations < a.cfg.MaxIterations {
		result.Iterations++
		req.Messages = transcript

		resp, err := a.generate(ctx, req)
		if err != nil {
			return nil, err
		}
		result.Usage.InputTokens += resp.Usage.InputTokens
		result.Usage.OutputTokens += resp.Usage.OutputTokens

		if len(resp.ToolCalls) == 0 {
			transcript = append(transcript, llm.Message{Role: llm.RoleAssistant, Content: resp.Content})
			result.Reply = resp.Content
			result.Messages = transcript
			a.logger.Debug("agent turn finished", "iterations", result.Iterations,
				"input_tokens", result.Usage.InputTokens, "output_tokens", result.Usage.OutputTokens)
			return result, nil
		}

		transcript = append(transcript, llm.Message{
			Role:      llm.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		results := make([]llm.ToolResult, 0, len(resp.ToolCalls))
		for _, call := range resp.ToolCalls {
			a.logger.Info("executing tool", logging.Tool(call.Name), "call_id", call.ID)
			tr := a.tools.Call(ctx, call)
			if tr.IsError {
				a.logger.Warn("tool returned an error", logging.Tool(call.Name), "call_id", call.ID)
			}
			results = append(results, tr)
		}
		transcript = append(transcript, llm.Message{Role: llm.RoleTool, ToolResults: results})
	}

	a.logger.Warn("agent reached the iteration limit", "max_iterations", a.cfg.MaxIterations)
	return nil, fmt.Errorf("%w (%d)", ErrMaxIterationsReached, a.cfg.MaxIterations)
}

func (a *Agent) generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	provider, model := llm.SplitID(a.model.ID())

	ctx, span := instrumentation.StartLLMSpan(ctx, provider, model,
		attribute.Int("llm.messages", len(req.Messages)),
		attribute.Int("llm.tools", len(req.Tools)),
	)
	defer span.End()

	start := time.Now()
	resp, err := a.model.Generate(ctx, req)
	duration := time.Since(start)

	status := instrumentation.StatusSuccess
	var usage llm.Usage
	if err != nil {
		status = instrumentation.StatusError
		instrumentation.SetSpanError(span, err)
	} else {
		usage = resp.Usage
		span.SetAttributes(
			attribute.Int("llm.input_tokens", usage.InputTokens),
			attribute.Int("llm.output_tokens", usage.OutputTokens),
			attribute.Int("llm.tool_calls", len(resp.ToolCalls)),
		)
		instrumentation.SetSpanSuccess(span)
	}

	if a.metrics != nil {
		a.metrics.RecordLLMRequest(ctx, provider, model, status, usage.InputTokens, usage.OutputTokens, duration)
	}

	if err != nil {
		a.logger.Error("model request failed", logging.Model(a.model.ID()), logging.Err(err))
		return nil, fmt.Errorf("model request failed: %w", err)
	}
	return resp, nil
}
