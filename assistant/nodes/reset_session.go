package nodes

import (
	"fmt"

	contractx "github.com/tanpawarit/gram-sahayak/assistant/contract"
)

// ResetSession handles reset and locale events. Choosing the locale the
// session already has keeps the conversation.
func ResetSession(in *GraphState) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}

	switch in.Event.Kind {
	case EventReset:
		in.Session.Reset("", in.Now)
	case EventLocale:
		if in.Event.Locale != in.Session.Locale {
			in.Session.Reset(in.Event.Locale, in.Now)
		}
	default:
		return nil, fmt.Errorf("%w: %s is not a reset event", contractx.ErrValidation, in.Event.Kind)
	}
	return in, nil
}
