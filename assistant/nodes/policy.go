package nodes

import (
	statex "github.com/tanpawarit/gram-sahayak/assistant/state"
)

var knownEvents = map[EventKind]struct{}{
	EventStart:     {},
	EventUtterance: {},
	EventExtract:   {},
	EventConfirm:   {},
	EventReject:    {},
	EventSelect:    {},
	EventSubmit:    {},
	EventReset:     {},
	EventLocale:    {},
	EventRefresh:   {},
}

// stepEvents lists the step-bound events. reset, locale and refresh are
// accepted in every step and are not listed.
var stepEvents = map[statex.Step][]EventKind{
	statex.StepWelcome:          {EventStart},
	statex.StepCaptureAmount:    {EventUtterance},
	statex.StepScanDocument:     {EventExtract},
	statex.StepVerifyExtraction: {EventConfirm, EventReject},
	statex.StepShowEligibility:  nil,
	statex.StepPreviewAndSubmit: {EventSelect, EventSubmit},
}

func isGlobal(kind EventKind) bool {
	return kind == EventReset || kind == EventLocale || kind == EventRefresh
}

// Allowed reports whether kind may be applied to a session in step.
func Allowed(step statex.Step, kind EventKind) bool {
	if isGlobal(kind) {
		return true
	}
	for _, k := range stepEvents[step] {
		if k == kind {
			return true
		}
	}
	return false
}

// AllowedEvents lists the events a caller can offer in step.
func AllowedEvents(step statex.Step) []EventKind {
	out := append([]EventKind(nil), stepEvents[step]...)
	return append(out, EventReset, EventLocale, EventRefresh)
}

func NeedsReset(kind EventKind) bool {
	return kind == EventReset || kind == EventLocale
}
