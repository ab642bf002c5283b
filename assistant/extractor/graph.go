package extractor

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/gram-sahayak/assistant/contract"
)

const graphName = "extractor.land_record_graph"

// compileExtractGraph wires build_messages -> model -> parse_profile.
func compileExtractGraph(
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
	directive string,
) (compose.Runnable[contractx.ExtractRequest, contractx.ProfileFields], error) {
	graph := compose.NewGraph[contractx.ExtractRequest, contractx.ProfileFields]()

	if err := graph.AddLambdaNode("build_messages",
		compose.InvokableLambda(func(ctx context.Context, req contractx.ExtractRequest) ([]*schema.Message, error) {
			return buildMessages(req, directive)
		}),
	); err != nil {
		return nil, fmt.Errorf("add build_messages node: %w", err)
	}
	if err := graph.AddChatModelNode("model", chatModel); err != nil {
		return nil, fmt.Errorf("add model node: %w", err)
	}
	if err := graph.AddLambdaNode("parse_profile",
		compose.InvokableLambda(func(ctx context.Context, msg *schema.Message) (contractx.ProfileFields, error) {
			if msg == nil {
				return contractx.ProfileFields{}, fmt.Errorf("%w: model returned no message", contractx.ErrSchemaViolation)
			}
			return ParseProfile(msg.Content)
		}),
	); err != nil {
		return nil, fmt.Errorf("add parse_profile node: %w", err)
	}

	if err := graph.AddEdge(compose.START, "build_messages"); err != nil {
		return nil, fmt.Errorf("add edge start->build_messages: %w", err)
	}
	if err := graph.AddEdge("build_messages", "model"); err != nil {
		return nil, fmt.Errorf("add edge build_messages->model: %w", err)
	}
	if err := graph.AddEdge("model", "parse_profile"); err != nil {
		return nil, fmt.Errorf("add edge model->parse_profile: %w", err)
	}
	if err := graph.AddEdge("parse_profile", compose.END); err != nil {
		return nil, fmt.Errorf("add edge parse_profile->end: %w", err)
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName(graphName))
	if err != nil {
		return nil, fmt.Errorf("compile extract graph: %w", err)
	}
	return runner, nil
}

func buildMessages(req contractx.ExtractRequest, directive string) ([]*schema.Message, error) {
	text, dataURL, err := prepare(req, directive)
	if err != nil {
		return nil, err
	}
	return []*schema.Message{
		{
			Role: schema.User,
			MultiContent: []schema.ChatMessagePart{
				{Type: schema.ChatMessagePartTypeText, Text: text},
				{
					Type: schema.ChatMessagePartTypeImageURL,
					ImageURL: &schema.ChatMessageImageURL{
						URL:    dataURL,
						Detail: schema.ImageURLDetailHigh,
					},
				},
			},
		},
	}, nil
}

// prepare validates the request and returns the directive text plus the
// image as a data URL. Both backends share it.
func prepare(req contractx.ExtractRequest, directive string) (string, string, error) {
	if len(req.Image) == 0 {
		return "", "", fmt.Errorf("%w: image is required", contractx.ErrValidation)
	}
	text := strings.TrimSpace(req.Directive)
	if text == "" {
		text = strings.TrimSpace(directive)
	}
	if text == "" {
		return "", "", fmt.Errorf("%w: extraction directive", contractx.ErrPromptMissing)
	}
	mime := strings.TrimSpace(req.MIMEType)
	if mime == "" {
		detected, err := DetectImage(req.Image)
		if err != nil {
			return "", "", err
		}
		mime = detected
	}
	return text, dataURL(mime, req.Image), nil
}

func dataURL(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}
