package artdirect

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	domainimage "pixelmill-server-go/internal/domain/image"
	"pixelmill-server-go/internal/platform/config"
	platformerrors "pixelmill-server-go/internal/platform/errors"
	"pixelmill-server-go/internal/utils"
)

const focalPrompt = "Locate the main subject of this image. " +
	"Reply with only two decimals in [0,1] as \"x,y\" for its center. " +
	"Example: 0.62,0.41"

// VLMDetector asks an OpenAI-compatible vision model for the focal point.
// Callers fall back to the heuristic detector on any error.
type VLMDetector struct {
	client    *openai.Client
	model     string
	maxTokens int
	logger    *utils.Logger
}

func NewVLMDetector(cfg config.VLMConfig, logger *utils.Logger) (*VLMDetector, error) {
	if cfg.APIKey == "" {
		return nil, platformerrors.New(platformerrors.KindConfig, "vlm.new", "api key required")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	model := cfg.ModelName
	if model == "" {
		model = "gpt-4o-mini"
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 64
	}

	return &VLMDetector{
		client:    openai.NewClientWithConfig(clientCfg),
		model:     model,
		maxTokens: maxTokens,
		logger:    logger,
	}, nil
}

func (d *VLMDetector) Detect(ctx context.Context, path string) (Point, float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Point{}, 0, platformerrors.Wrap(platformerrors.KindArtDirection, "vlm.detect", "read image", err)
	}

	format := domainimage.SniffFormat(data)
	if format == "" {
		format = domainimage.FormatJPEG
	}
	dataURI := fmt.Sprintf("data:%s;base64,%s", format.MIME(), base64.StdEncoding.EncodeToString(data))

	resp, err := d.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     d.model,
		MaxTokens: d.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: focalPrompt},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    dataURI,
							Detail: openai.ImageURLDetailLow,
						},
					},
				},
			},
		},
	})
	if err != nil {
		return Point{}, 0, platformerrors.Wrap(platformerrors.KindArtDirection, "vlm.detect", "chat completion", err)
	}
	if len(resp.Choices) == 0 {
		return Point{}, 0, platformerrors.New(platformerrors.KindArtDirection, "vlm.detect", "empty response")
	}

	point, err := parseFocalReply(resp.Choices[0].Message.Content)
	if err != nil {
		return Point{}, 0, err
	}

	if d.logger != nil {
		d.logger.DebugTag("ART", "vlm focal point for %s: %.2f,%.2f", path, point.X, point.Y)
	}
	return point, 0.9, nil
}

func parseFocalReply(reply string) (Point, error) {
	reply = strings.TrimSpace(reply)
	parts := strings.SplitN(reply, ",", 2)
	if len(parts) != 2 {
		return Point{}, platformerrors.New(platformerrors.KindArtDirection, "vlm.detect",
			fmt.Sprintf("unparseable reply %q", reply))
	}

	x, errX := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	y, errY := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if errX != nil || errY != nil || x < 0 || x > 1 || y < 0 || y > 1 {
		return Point{}, platformerrors.New(platformerrors.KindArtDirection, "vlm.detect",
			fmt.Sprintf("focal point out of range in reply %q", reply))
	}
	return Point{X: x, Y: y}, nil
}
