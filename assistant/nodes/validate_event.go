package nodes

import (
	"errors"
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/gram-sahayak/assistant/contract"
	"github.com/tanpawarit/gram-sahayak/assistant/eligibility"
	"github.com/tanpawarit/gram-sahayak/assistant/locale"
)

var (
	ErrInvalidSession = errors.New("session id is empty")
	ErrUnknownEvent   = errors.New("unknown event kind")
)

func ParseEventKind(raw string) (EventKind, error) {
	kind := EventKind(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := knownEvents[kind]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownEvent, raw)
	}
	return kind, nil
}

func ValidateEvent(in GraphInput, locales *locale.Bundle, nowFn func() time.Time) (*GraphState, error) {
	sessionID := strings.TrimSpace(in.SessionID)
	if sessionID == "" {
		return nil, ErrInvalidSession
	}

	ev := in.Event
	if _, ok := knownEvents[ev.Kind]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, ev.Kind)
	}

	switch ev.Kind {
	case EventUtterance:
		ev.Text = strings.TrimSpace(ev.Text)
		if ev.Text == "" {
			return nil, fmt.Errorf("%w: utterance text is empty", contractx.ErrValidation)
		}
	case EventExtract:
		if len(ev.Image) == 0 {
			return nil, fmt.Errorf("%w: no document image uploaded", contractx.ErrValidation)
		}
		ev.MIMEType = strings.TrimSpace(ev.MIMEType)
	case EventSelect:
		ev.Scheme = eligibility.SchemeID(strings.TrimSpace(string(ev.Scheme)))
		if ev.Scheme == "" {
			return nil, fmt.Errorf("%w: scheme is required", contractx.ErrValidation)
		}
	case EventLocale:
		ev.Locale = strings.TrimSpace(ev.Locale)
		if !locales.Has(ev.Locale) {
			return nil, fmt.Errorf("%w: unsupported locale %q", contractx.ErrValidation, ev.Locale)
		}
	}

	return &GraphState{
		SessionID: sessionID,
		Event:     ev,
		Now:       nowFn().UTC(),
	}, nil
}
