package llm

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/gram-sahayak/assistant/contract"
	openrouterx "github.com/tanpawarit/gram-sahayak/pkg/openrouter"
)

// Config is loaded with the OPENROUTER prefix.
type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" default:"google/gemini-2.5-flash"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"512"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"60s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true" default:"Gram Sahayak"`

	// Optional overrides for the land record extractor only.
	ExtractorModel       string  `envconfig:"EXTRACTOR_MODEL" split_words:"true"`
	ExtractorTemperature float32 `envconfig:"EXTRACTOR_TEMPERATURE" split_words:"true" default:"-1"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: OPENROUTER_API_KEY is required", contractx.ErrConfig)
	}
	if strings.TrimSpace(c.Model) == "" && strings.TrimSpace(c.ExtractorModel) == "" {
		return fmt.Errorf("%w: a model name is required", contractx.ErrConfig)
	}
	if c.MaxCompletionToken <= 0 {
		return fmt.Errorf("%w: max completion token must be positive", contractx.ErrConfig)
	}
	return nil
}

// ForExtractor resolves the OpenRouter settings used to read land records.
func (c Config) ForExtractor() openrouterx.Config {
	modelName := strings.TrimSpace(c.Model)
	if v := strings.TrimSpace(c.ExtractorModel); v != "" {
		modelName = v
	}
	temp := c.Temperature
	if c.ExtractorTemperature >= 0 {
		temp = c.ExtractorTemperature
	}

	maxCompletionToken := c.MaxCompletionToken
	return openrouterx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              modelName,
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        temp,
		Timeout:            c.Timeout,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
	}
}
