package conversation

import (
	"context"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/gram-sahayak/assistant/contract"
)

// LogSpeaker voices prompts into the structured log. Real speech output is
// left to the client, which receives the same prompts in View.Spoken.
type LogSpeaker struct{}

var _ contractx.Speaker = LogSpeaker{}

func (LogSpeaker) Speak(ctx context.Context, locale, text string) error {
	log.Info().Str("locale", locale).Str("prompt", text).Msg("speak")
	return nil
}
