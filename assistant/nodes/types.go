package nodes

import (
	"time"

	contractx "github.com/tanpawarit/gram-sahayak/assistant/contract"
	"github.com/tanpawarit/gram-sahayak/assistant/eligibility"
	"github.com/tanpawarit/gram-sahayak/assistant/loan"
	statex "github.com/tanpawarit/gram-sahayak/assistant/state"
)

type EventKind string

const (
	EventStart     EventKind = "start"
	EventUtterance EventKind = "utterance"
	EventExtract   EventKind = "extract"
	EventConfirm   EventKind = "confirm"
	EventReject    EventKind = "reject"
	EventSelect    EventKind = "select"
	EventSubmit    EventKind = "submit"
	EventReset     EventKind = "reset"
	EventLocale    EventKind = "locale"
	EventRefresh   EventKind = "refresh"
)

// Event is one user action. Only the fields relevant to Kind are read.
type Event struct {
	Kind     EventKind
	Text     string
	Image    []byte
	MIMEType string
	Scheme   eligibility.SchemeID
	Locale   string
}

type GraphInput struct {
	SessionID string
	Event     Event
}

type GraphState struct {
	SessionID string
	Event     Event
	Now       time.Time

	Session *statex.Session

	// Prompts to voice once the round is saved, in order.
	Spoken     []string
	Submission *contractx.Submission
}

func (g *GraphState) speak(text string) {
	g.Spoken = append(g.Spoken, text)
}

// Outcome is what one round hands back to the caller.
type Outcome struct {
	View       View
	Submission *contractx.Submission
}

type View struct {
	SessionID  string               `json:"session_id"`
	Locale     string               `json:"locale"`
	Step       statex.Step          `json:"step"`
	StepName   string               `json:"step_name"`
	Transcript []statex.Entry       `json:"transcript"`
	Profile    statex.FarmerProfile `json:"profile"`
	Loan       *loan.Request        `json:"loan,omitempty"`
	Eligible   []eligibility.Scheme `json:"eligible,omitempty"`
	Selected   eligibility.SchemeID `json:"selected,omitempty"`
	NoMatch    bool                 `json:"no_match"`
	Submitted  bool                 `json:"submitted"`
	Notice     *ViewNotice          `json:"notice,omitempty"`
	Spoken     []string             `json:"spoken,omitempty"`
}

type ViewNotice struct {
	Level   statex.NoticeLevel `json:"level"`
	Key     string             `json:"key"`
	Message string             `json:"message"`
	Detail  string             `json:"detail,omitempty"`
}

func (v View) SelectedScheme() (eligibility.Scheme, bool) {
	for _, s := range v.Eligible {
		if s.ID == v.Selected {
			return s, true
		}
	}
	return eligibility.Scheme{}, false
}
