package extractor

import (
	"context"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/gram-sahayak/assistant/contract"
	"github.com/tanpawarit/gram-sahayak/assistant/llm"
	openrouterx "github.com/tanpawarit/gram-sahayak/pkg/openrouter"
)

const (
	BackendEino   = "eino"
	BackendOpenAI = "openai"
)

// New builds the configured extractor backend against OpenRouter.
func New(ctx context.Context, backend string, cfg llm.Config, directive string) (contractx.ProfileExtractor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	orCfg := cfg.ForExtractor()

	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendEino:
		chatModel, err := orCfg.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", contractx.ErrConfig, err)
		}
		return NewEino(ctx, chatModel, directive)
	case BackendOpenAI:
		client := openrouterx.NewClient(orCfg)
		return NewOpenAI(client, orCfg.Model, directive, cfg.MaxCompletionToken, orCfg.Temperature)
	default:
		return nil, fmt.Errorf("%w: unknown extractor backend %q", contractx.ErrConfig, backend)
	}
}
