// Package assistant runs the AI conversation loop for one owner. Each turn,
// the active opportunity's projected context is prepended to the user's
// message, and any function calls the model makes are dispatched through the
// tool registry - never directly to the store - so every domain invariant
// applies to the model exactly as it does to a human caller.
package assistant

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"consultai/internal/engagement"
	"consultai/internal/tools"
)

// Instructions is the assistant's standing brief.
const Instructions = `You are a consulting delivery assistant. You help track
consulting engagements through pre-assessment, discovery, solution design,
and implementation. Use the provided tools to capture artifacts, record
insights, manage tasks, and move the engagement between phases. Ground every
answer in the opportunity context you are given.`

// maxToolRounds bounds how many consecutive function-call rounds one user
// message may trigger.
const maxToolRounds = 8

// Assistant holds one owner's conversation with the model.
type Assistant struct {
	client   *genai.Client
	model    string
	svc      *engagement.Service
	registry *tools.Registry
	ownerID  string
	logger   *zap.Logger

	history []*genai.Content
}

// New creates an assistant bound to one owner, with the consulting tool set
// registered.
func New(ctx context.Context, apiKey, model string, svc *engagement.Service, ownerID string, logger *zap.Logger) (*Assistant, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("assistant API key is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	registry := tools.NewRegistry(logger)
	if err := tools.RegisterConsultingTools(registry, svc, ownerID); err != nil {
		return nil, err
	}

	return &Assistant{
		client:   client,
		model:    model,
		svc:      svc,
		registry: registry,
		ownerID:  ownerID,
		logger:   logger,
	}, nil
}

// Registry exposes the assistant's tool registry.
func (a *Assistant) Registry() *tools.Registry {
	return a.registry
}

// Send runs one conversation turn: inject context, send the message, resolve
// any function calls, and return the model's final text.
func (a *Assistant) Send(ctx context.Context, message string) (string, error) {
	injected, err := a.injectContext(ctx, message)
	if err != nil {
		return "", err
	}
	a.history = append(a.history, genai.NewContentFromText(injected, genai.RoleUser))

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(Instructions, genai.RoleUser),
		Tools: []*genai.Tool{
			{FunctionDeclarations: BuildDeclarations(a.registry)},
		},
	}

	for round := 0; round < maxToolRounds; round++ {
		resp, err := a.client.Models.GenerateContent(ctx, a.model, a.history, cfg)
		if err != nil {
			return "", fmt.Errorf("generate failed: %w", err)
		}

		calls := resp.FunctionCalls()
		if len(calls) == 0 {
			text := resp.Text()
			a.history = append(a.history, genai.NewContentFromText(text, genai.RoleModel))
			return text, nil
		}

		if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
			a.history = append(a.history, resp.Candidates[0].Content)
		}
		a.history = append(a.history, a.dispatch(ctx, calls))
	}

	return "", fmt.Errorf("model exceeded %d consecutive tool rounds", maxToolRounds)
}

// injectContext prepends the active opportunity's projection to the user's
// message, matching what the tools will see when they run.
func (a *Assistant) injectContext(ctx context.Context, message string) (string, error) {
	ac, err := a.svc.GetActiveContext(ctx, a.ownerID)
	if err != nil {
		return "", err
	}
	if ac == nil {
		return message, nil
	}
	var b strings.Builder
	b.WriteString(ac.Projection.Render())
	b.WriteString("\n")
	b.WriteString(message)
	return b.String(), nil
}

// dispatch executes the model's function calls through the registry and
// packages the results as one function-response content.
func (a *Assistant) dispatch(ctx context.Context, calls []*genai.FunctionCall) *genai.Content {
	parts := make([]*genai.Part, 0, len(calls))
	for _, call := range calls {
		result, err := a.registry.Execute(ctx, call.Name, call.Args)

		var response map[string]any
		if err != nil {
			a.logger.Warn("tool call failed",
				zap.String("tool", call.Name),
				zap.Error(err))
			response = map[string]any{"error": err.Error()}
		} else {
			response = map[string]any{"output": result.Output}
		}
		parts = append(parts, genai.NewPartFromFunctionResponse(call.Name, response))
	}
	return genai.NewContentFromParts(parts, genai.RoleUser)
}
