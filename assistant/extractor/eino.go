package extractor

import (
	"context"
	"errors"
	"fmt"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	contractx "github.com/tanpawarit/gram-sahayak/assistant/contract"
)

// EinoExtractor runs the land record graph on top of an eino chat model.
type EinoExtractor struct {
	runner compose.Runnable[contractx.ExtractRequest, contractx.ProfileFields]
}

var _ contractx.ProfileExtractor = (*EinoExtractor)(nil)

func NewEino(ctx context.Context, chatModel einomodel.BaseChatModel, directive string) (*EinoExtractor, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("%w: chat model is required", contractx.ErrConfig)
	}
	runner, err := compileExtractGraph(ctx, chatModel, directive)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
	}
	return &EinoExtractor{runner: runner}, nil
}

func (e *EinoExtractor) Extract(ctx context.Context, req contractx.ExtractRequest) (contractx.ProfileFields, error) {
	out, err := e.runner.Invoke(ctx, req)
	if err != nil {
		return contractx.ProfileFields{}, classify(err)
	}
	return out, nil
}

// classify keeps our own sentinels visible through the graph's error wrapping
// and tags everything else as a model failure.
func classify(err error) error {
	for _, known := range []error{
		contractx.ErrSchemaViolation,
		contractx.ErrValidation,
		contractx.ErrPromptMissing,
		context.DeadlineExceeded,
		context.Canceled,
	} {
		if errors.Is(err, known) {
			return err
		}
	}
	return fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
}
