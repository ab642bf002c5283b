package nodes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/gram-sahayak/assistant/contract"
	"github.com/tanpawarit/gram-sahayak/assistant/eligibility"
	"github.com/tanpawarit/gram-sahayak/assistant/extractor"
	"github.com/tanpawarit/gram-sahayak/assistant/loan"
	"github.com/tanpawarit/gram-sahayak/assistant/locale"
	statex "github.com/tanpawarit/gram-sahayak/assistant/state"
	logx "github.com/tanpawarit/gram-sahayak/pkg/logger"
)

// Collaborators are the read-only dependencies of the transition nodes.
type Collaborators struct {
	Catalog        *eligibility.Catalog
	Locales        *locale.Bundle
	Extractor      contractx.ProfileExtractor
	SubmissionLog  contractx.SubmissionLog
	Directive      string
	ExtractTimeout time.Duration
}

// Notice keys shared with the locale tables.
const (
	NoticeExtractFailed = "error_extract"
	NoticeBadImage      = "error_image"
	NoticeSubmitFailed  = "error_submit"
	NoticeNoMatch       = "no_match"
)

// ApplyEvent runs one step-bound event. Events that do not belong to the
// current step fail with ErrInvalidTransition and the round is abandoned,
// so nothing is saved. Collaborator failures become a notice instead.
func ApplyEvent(ctx context.Context, in *GraphState, deps Collaborators) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}

	st := in.Session
	kind := in.Event.Kind
	if !Allowed(st.Step, kind) {
		return nil, fmt.Errorf("%w: %s in %s", contractx.ErrInvalidTransition, kind, st.Step)
	}

	var err error
	switch kind {
	case EventRefresh:
	case EventStart:
		err = applyStart(in, deps.Locales)
	case EventUtterance:
		err = applyUtterance(in, deps.Locales)
	case EventExtract:
		err = applyExtract(ctx, in, deps)
	case EventConfirm:
		err = st.Advance(statex.StepShowEligibility, in.Now)
	case EventReject:
		err = st.RetryScan(in.Now)
	case EventSelect:
		err = applySelect(in)
	case EventSubmit:
		err = applySubmit(ctx, in, deps)
	default:
		err = fmt.Errorf("%w: %s in %s", contractx.ErrInvalidTransition, kind, st.Step)
	}
	if err != nil {
		return nil, err
	}
	return in, nil
}

func applyStart(in *GraphState, locales *locale.Bundle) error {
	st := in.Session
	greeting := locales.T(st.Locale, "greeting")
	st.Say(greeting)
	in.speak(greeting)
	return st.Advance(statex.StepCaptureAmount, in.Now)
}

func applyUtterance(in *GraphState, locales *locale.Bundle) error {
	st := in.Session
	req := loan.Resolve(in.Event.Text)
	if err := st.SetLoan(req); err != nil {
		return err
	}
	st.Heard(in.Event.Text)

	confirm := locales.T(st.Locale, "amount_confirm", "amount", req.Display)
	st.Say(confirm)
	in.speak(confirm)
	return st.Advance(statex.StepScanDocument, in.Now)
}

func applyExtract(ctx context.Context, in *GraphState, deps Collaborators) error {
	st := in.Session
	logger := logx.WithSession(st.ID, st.Step.String(), string(in.Event.Kind))

	mime, err := extractor.DetectImage(in.Event.Image)
	if err != nil {
		logger.Warn().Err(err).Msg("rejected land record upload")
		st.SetNotice(statex.NoticeError, NoticeBadImage, err.Error())
		return nil
	}

	in.speak(deps.Locales.T(st.Locale, "analyzing"))

	callCtx := ctx
	if deps.ExtractTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, deps.ExtractTimeout)
		defer cancel()
	}

	fields, err := deps.Extractor.Extract(callCtx, contractx.ExtractRequest{
		Image:     in.Event.Image,
		MIMEType:  mime,
		Directive: deps.Directive,
	})
	if err != nil {
		// The caller going away is not an extraction failure.
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Warn().Err(err).Msg("land record extraction failed")
		st.SetNotice(statex.NoticeError, NoticeExtractFailed, err.Error())
		return nil
	}

	if strings.TrimSpace(fields.Name) == "" || strings.TrimSpace(fields.Area) == "" {
		logger.Warn().Msg("extractor returned an incomplete profile")
		st.SetNotice(statex.NoticeError, NoticeExtractFailed, "incomplete profile")
		return nil
	}
	if err := st.SetProfile(fields.Name, fields.Area); err != nil {
		return err
	}
	logger.Info().Float64("hectares", st.Profile.Hectares).Msg("land record extracted")
	return st.Advance(statex.StepVerifyExtraction, in.Now)
}

func applySelect(in *GraphState) error {
	st := in.Session
	if st.Submitted() {
		return fmt.Errorf("%w: scheme is locked after submission", contractx.ErrInvalidTransition)
	}
	if err := st.Select(in.Event.Scheme); err != nil {
		if errors.Is(err, statex.ErrSchemeNotEligible) {
			return fmt.Errorf("%w: %v", contractx.ErrValidation, err)
		}
		return err
	}
	return nil
}

func applySubmit(ctx context.Context, in *GraphState, deps Collaborators) error {
	st := in.Session
	if st.Submitted() {
		return nil
	}

	scheme, ok := deps.Catalog.Lookup(st.Selected)
	if !ok {
		return fmt.Errorf("%w: selected scheme %q is not in the catalog", contractx.ErrValidation, st.Selected)
	}

	sub := contractx.Submission{
		Timestamp: in.Now,
		SessionID: st.ID,
		Name:      st.Profile.Name,
		Area:      st.Profile.LandHolding,
		Scheme:    scheme.Name,
		Amount:    st.Loan.Display,
	}
	if err := deps.SubmissionLog.Append(ctx, sub); err != nil {
		log.Error().Err(err).Str("session_id", st.ID).Msg("submission log append failed")
		st.SetNotice(statex.NoticeError, NoticeSubmitFailed, err.Error())
		return nil
	}

	st.MarkOnce(statex.FlagSubmitted)
	success := deps.Locales.T(st.Locale, "success")
	st.Say(success)
	in.speak(success)
	in.Submission = &sub
	return nil
}
