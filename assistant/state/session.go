package state

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/tanpawarit/gram-sahayak/assistant/eligibility"
	"github.com/tanpawarit/gram-sahayak/assistant/loan"
)

// Session is the per-user source of truth for one guided application.
// - Step only moves forward, except RetryScan and Reset.
// - Flags gate side effects that must happen once per step visit.
type Session struct {
	ID     string `json:"id"`
	Locale string `json:"locale"`

	Step       Step          `json:"step"`
	Profile    FarmerProfile `json:"profile"`
	Loan       *loan.Request `json:"loan,omitempty"`
	Transcript []Entry       `json:"transcript,omitempty"`
	Flags      map[Flag]bool `json:"flags,omitempty"`

	Eligible []eligibility.SchemeID `json:"eligible,omitempty"`
	Selected eligibility.SchemeID   `json:"selected,omitempty"`
	NoMatch  bool                   `json:"no_match,omitempty"`

	// Notice is the last user-facing message for this round. Cleared at the start of each round.
	Notice *Notice `json:"notice,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Step int

const (
	StepWelcome Step = iota
	StepCaptureAmount
	StepScanDocument
	StepVerifyExtraction
	StepShowEligibility
	StepPreviewAndSubmit
)

var stepNames = [...]string{
	StepWelcome:          "welcome",
	StepCaptureAmount:    "capture_amount",
	StepScanDocument:     "scan_document",
	StepVerifyExtraction: "verify_extraction",
	StepShowEligibility:  "show_eligibility",
	StepPreviewAndSubmit: "preview_and_submit",
}

func (s Step) String() string {
	if s < 0 || int(s) >= len(stepNames) {
		return fmt.Sprintf("step(%d)", int(s))
	}
	return stepNames[s]
}

func (s Step) Valid() bool {
	return s >= StepWelcome && s <= StepPreviewAndSubmit
}

type Flag string

const (
	FlagScanIntroSpoken    Flag = "scan_intro_spoken"
	FlagVerificationSpoken Flag = "verification_spoken"
	FlagSchemesListed      Flag = "schemes_listed"
	FlagPreviewSpoken      Flag = "preview_spoken"
	FlagSubmitted          Flag = "submitted"
)

const (
	RoleAssistant = "assistant"
	RoleUser      = "user"
)

type Entry struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// FarmerProfile is filled once from the land record.
type FarmerProfile struct {
	Name        string  `json:"name,omitempty"`
	Occupation  string  `json:"occupation,omitempty"`
	LandHolding string  `json:"land_holding,omitempty"`
	Hectares    float64 `json:"hectares,omitempty"`
}

func (p FarmerProfile) IsZero() bool {
	return p.Name == "" && p.LandHolding == ""
}

func (p FarmerProfile) Eligibility() eligibility.Profile {
	return eligibility.Profile{Occupation: p.Occupation, LandHolding: p.LandHolding}
}

type NoticeLevel string

const (
	NoticeInfo  NoticeLevel = "info"
	NoticeError NoticeLevel = "error"
)

// Notice carries a locale key so the view can translate it, plus raw detail.
type Notice struct {
	Level  NoticeLevel `json:"level"`
	Key    string      `json:"key"`
	Detail string      `json:"detail,omitempty"`
}

var (
	ErrNilSession        = errors.New("nil session")
	ErrStepRegression    = errors.New("step cannot move backwards")
	ErrWrongStep         = errors.New("operation not allowed in current step")
	ErrAlreadySet        = errors.New("value is already set")
	ErrSchemeNotEligible = errors.New("scheme is not in the eligible set")
	ErrInvalidSession    = errors.New("invalid session")
)

func NewSession(id, locale string, now time.Time) *Session {
	return &Session{
		ID:        id,
		Locale:    locale,
		Step:      StepWelcome,
		Flags:     make(map[Flag]bool, 5),
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}
}

func (s *Session) Touch(now time.Time) {
	s.UpdatedAt = now.UTC()
}

/* ------------------------------- Flags -------------------------------- */

func (s *Session) HasFlag(f Flag) bool {
	return s != nil && s.Flags[f]
}

// MarkOnce sets f and reports whether it was unset before. Callers run the
// guarded side effect only when it returns true.
func (s *Session) MarkOnce(f Flag) bool {
	if s.Flags == nil {
		s.Flags = make(map[Flag]bool, 5)
	}
	if s.Flags[f] {
		return false
	}
	s.Flags[f] = true
	return true
}

func (s *Session) ClearFlag(f Flag) {
	delete(s.Flags, f)
}

/* ----------------------------- Transcript ----------------------------- */

func (s *Session) Say(text string) {
	s.Transcript = append(s.Transcript, Entry{Role: RoleAssistant, Text: text})
}

func (s *Session) Heard(text string) {
	s.Transcript = append(s.Transcript, Entry{Role: RoleUser, Text: text})
}

func (s *Session) SetNotice(level NoticeLevel, key, detail string) {
	s.Notice = &Notice{Level: level, Key: key, Detail: detail}
}

/* ----------------------------- Transitions ---------------------------- */

// Advance moves the session forward to step. Moving backwards or staying put is rejected.
func (s *Session) Advance(to Step, now time.Time) error {
	if s == nil {
		return ErrNilSession
	}
	if !to.Valid() {
		return fmt.Errorf("%w: unknown step %d", ErrInvalidSession, int(to))
	}
	if to <= s.Step {
		return fmt.Errorf("%w: %s -> %s", ErrStepRegression, s.Step, to)
	}
	s.Step = to
	s.Touch(now)
	return nil
}

// RetryScan is the only backward edge: the user rejected the extracted data.
// The extracted profile and the verification flag are dropped so the next
// extraction starts clean.
func (s *Session) RetryScan(now time.Time) error {
	if s == nil {
		return ErrNilSession
	}
	if s.Step != StepVerifyExtraction {
		return fmt.Errorf("%w: retry from %s", ErrWrongStep, s.Step)
	}
	s.Profile = FarmerProfile{}
	s.ClearFlag(FlagVerificationSpoken)
	s.Step = StepScanDocument
	s.Touch(now)
	return nil
}

// Reset discards all conversation state but keeps identity and locale.
func (s *Session) Reset(locale string, now time.Time) {
	id := s.ID
	if strings.TrimSpace(locale) == "" {
		locale = s.Locale
	}
	*s = *NewSession(id, locale, now)
}

func (s *Session) SetLoan(req loan.Request) error {
	if s.Loan != nil {
		return fmt.Errorf("%w: loan", ErrAlreadySet)
	}
	s.Loan = &req
	return nil
}

// SetProfile stores the extracted name and area. Area is normalized to
// hectares; unparseable values become 0.
func (s *Session) SetProfile(name, area string) error {
	if !s.Profile.IsZero() {
		return fmt.Errorf("%w: profile", ErrAlreadySet)
	}
	s.Profile = FarmerProfile{
		Name:        strings.TrimSpace(name),
		Occupation:  eligibility.OccupationFarmer,
		LandHolding: strings.TrimSpace(area),
		Hectares:    eligibility.ParseHectares(area),
	}
	return nil
}

// SetEligible records the match set and defaults the selection to the first scheme.
func (s *Session) SetEligible(ids []eligibility.SchemeID) {
	s.Eligible = append([]eligibility.SchemeID(nil), ids...)
	s.NoMatch = len(ids) == 0
	if len(ids) == 0 {
		s.Selected = ""
		return
	}
	if !slices.Contains(s.Eligible, s.Selected) {
		s.Selected = s.Eligible[0]
	}
}

func (s *Session) Select(id eligibility.SchemeID) error {
	if s.Step != StepPreviewAndSubmit {
		return fmt.Errorf("%w: select in %s", ErrWrongStep, s.Step)
	}
	if !slices.Contains(s.Eligible, id) {
		return fmt.Errorf("%w: %s", ErrSchemeNotEligible, id)
	}
	s.Selected = id
	return nil
}

func (s *Session) Submitted() bool {
	return s.HasFlag(FlagSubmitted)
}

/* ------------------------------ Validation ---------------------------- */

func (s *Session) Validate() error {
	if s == nil {
		return ErrNilSession
	}
	if strings.TrimSpace(s.ID) == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidSession)
	}
	if !s.Step.Valid() {
		return fmt.Errorf("%w: unknown step %d", ErrInvalidSession, int(s.Step))
	}
	if s.Step >= StepScanDocument && s.Loan == nil {
		return fmt.Errorf("%w: %s requires a loan request", ErrInvalidSession, s.Step)
	}
	if s.Step >= StepVerifyExtraction && s.Profile.IsZero() {
		return fmt.Errorf("%w: %s requires a profile", ErrInvalidSession, s.Step)
	}
	if s.Step == StepPreviewAndSubmit {
		if len(s.Eligible) == 0 {
			return fmt.Errorf("%w: preview requires eligible schemes", ErrInvalidSession)
		}
		if !slices.Contains(s.Eligible, s.Selected) {
			return fmt.Errorf("%w: selected=%s", ErrSchemeNotEligible, s.Selected)
		}
	}
	if s.Submitted() && s.Step != StepPreviewAndSubmit {
		return fmt.Errorf("%w: submitted outside preview", ErrInvalidSession)
	}
	return nil
}

// Clone returns a deep copy so stores never share mutable state with callers.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	if s.Loan != nil {
		l := *s.Loan
		out.Loan = &l
	}
	out.Transcript = append([]Entry(nil), s.Transcript...)
	out.Flags = make(map[Flag]bool, len(s.Flags))
	for k, v := range s.Flags {
		out.Flags[k] = v
	}
	out.Eligible = append([]eligibility.SchemeID(nil), s.Eligible...)
	if s.Notice != nil {
		n := *s.Notice
		out.Notice = &n
	}
	return &out
}
